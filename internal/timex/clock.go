package timex

import (
	"sync"
	"time"
)

// Resolution is the granularity of timestamps produced by Monotonic. It
// matches what PostgreSQL timestamptz can store, so a value survives every
// backend unchanged.
const Resolution = time.Microsecond

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns time.Now in UTC.
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })

// Monotonic hands out strictly increasing UTC instants truncated to
// Resolution. If the source clock stalls or steps backwards, the last value
// is advanced by one Resolution step instead.
type Monotonic struct {
	mu     sync.Mutex
	source Clock
	last   time.Time
}

// NewMonotonic wraps source; a nil source means SystemClock.
func NewMonotonic(source Clock) *Monotonic {
	if source == nil {
		source = SystemClock
	}
	return &Monotonic{source: source}
}

func (m *Monotonic) Now() time.Time {
	now := m.source.Now().UTC().Truncate(Resolution)

	m.mu.Lock()
	defer m.mu.Unlock()

	if !now.After(m.last) {
		now = m.last.Add(Resolution)
	}
	m.last = now
	return now
}

// Observe raises the floor of m so every later Now is strictly after t.
// Stores call it on open with the newest persisted message time, so a wall
// clock that is behind the stored data cannot reorder the log.
func (m *Monotonic) Observe(t time.Time) {
	t = t.UTC().Truncate(Resolution)

	m.mu.Lock()
	defer m.mu.Unlock()

	if t.After(m.last) {
		m.last = t
	}
}

// Observe forwards t to clock when it tracks a floor, as Monotonic does.
// Other clocks are left alone.
func Observe(clock Clock, t time.Time) {
	if o, ok := clock.(interface{ Observe(time.Time) }); ok {
		o.Observe(t)
	}
}
