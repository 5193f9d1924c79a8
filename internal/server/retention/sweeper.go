// Package retention removes messages once they are older than the retention
// window.
package retention

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/onechat/internal/logging"
	"github.com/dmitrijs2005/onechat/internal/timex"
)

const (
	DefaultWindow   = 24 * time.Hour
	DefaultInterval = time.Hour
)

type State int32

const (
	Idle State = iota
	Sweeping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sweeping:
		return "sweeping"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Evictor is the part of storage.Store the sweeper needs.
type Evictor interface {
	EvictMessages(ctx context.Context, cutoff time.Time) (int, error)
	Flush(ctx context.Context) error
}

// Observer is told about every finished pass.
type Observer interface {
	ObserveSweep(evicted int, took time.Duration, err error)
}

type Options struct {
	Window   time.Duration
	Interval time.Duration
	Clock    timex.Clock
	Observer Observer
}

// Sweeper runs one pass at start and then one per interval until its
// context is cancelled. Passes never overlap.
type Sweeper struct {
	store    Evictor
	window   time.Duration
	interval time.Duration
	clock    timex.Clock
	observer Observer
	log      logging.Logger

	state atomic.Int32
}

func New(store Evictor, opts Options, log logging.Logger) *Sweeper {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = timex.SystemClock
	}
	return &Sweeper{
		store:    store,
		window:   opts.Window,
		interval: opts.Interval,
		clock:    opts.Clock,
		observer: opts.Observer,
		log:      log.With("module", "retention"),
	}
}

func (s *Sweeper) State() State {
	return State(s.state.Load())
}

// Run blocks until ctx is done and returns ctx.Err().
func (s *Sweeper) Run(ctx context.Context) error {
	s.log.Info(ctx, "sweeper started", "window", s.window.String(), "interval", s.interval.String())

	s.safeSweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info(ctx, "sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			s.safeSweep(ctx)
		}
	}
}

// Sweep performs a single pass: evict everything sent before now-window,
// then flush.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	s.state.Store(int32(Sweeping))
	defer s.state.Store(int32(Idle))

	start := time.Now()
	cutoff := s.clock.Now().Add(-s.window)

	n, err := s.store.EvictMessages(ctx, cutoff)
	if err == nil {
		err = s.store.Flush(ctx)
	}
	took := time.Since(start)

	if s.observer != nil {
		s.observer.ObserveSweep(n, took, err)
	}
	if err != nil {
		return n, fmt.Errorf("sweep failed: %w", err)
	}

	s.log.Info(ctx, "sweep finished", "cutoff", cutoff, "evicted", n, "took", took.String())
	return n, nil
}

func (s *Sweeper) safeSweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.state.Store(int32(Idle))
			s.log.Error(ctx, "sweep panicked", "panic", fmt.Sprint(r))
		}
	}()

	if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
		s.log.Error(ctx, "sweep failed", "error", err)
	}
}
