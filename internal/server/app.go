// Package server wires configuration, storage, services and the HTTP API
// into a runnable application and handles graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/onechat/internal/logging"
	"github.com/dmitrijs2005/onechat/internal/server/auth"
	"github.com/dmitrijs2005/onechat/internal/server/config"
	"github.com/dmitrijs2005/onechat/internal/server/httpapi"
	"github.com/dmitrijs2005/onechat/internal/server/metrics"
	"github.com/dmitrijs2005/onechat/internal/server/retention"
	"github.com/dmitrijs2005/onechat/internal/server/services"
	"github.com/dmitrijs2005/onechat/internal/server/storage"
	"github.com/dmitrijs2005/onechat/internal/server/storage/kv"
	"github.com/dmitrijs2005/onechat/internal/server/storage/memory"
	"github.com/dmitrijs2005/onechat/internal/server/storage/postgres"
	"github.com/dmitrijs2005/onechat/internal/server/storage/snapshot"
	"github.com/dmitrijs2005/onechat/internal/timex"
	"github.com/gin-gonic/gin"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	store   storage.Store
	sweeper *retention.Sweeper
	handler http.Handler
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if c.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := openStore(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	hasher := auth.NewPasswordHasher(c.PasswordHashCost)

	if _, err := services.Seed(ctx, store, hasher, services.DefaultAccounts, logger); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("seed error: %w", err)
	}

	gw := auth.NewGateway(store, []byte(c.SecretKey), c.SessionValidityDuration, nil)
	m := metrics.New()

	sweeper := retention.New(store, retention.Options{
		Window:   c.RetentionWindow,
		Interval: c.SweepInterval,
		Observer: m,
	}, logger)

	handler := httpapi.NewRouter(httpapi.Deps{
		Users:    services.NewUserService(store, gw, hasher, logger),
		Groups:   services.NewGroupService(store, gw, logger),
		Messages: services.NewMessageService(store, gw, logger),
		Metrics:  m,
		Logger:   logger,
		Env:      c.Env,
	})

	return &App{config: c, logger: logger, store: store, sweeper: sweeper, handler: handler}, nil
}

// openStore builds the configured backend. The memory, file and s3 backends
// share the in-memory store and differ only in where snapshots go.
func openStore(ctx context.Context, c *config.Config, logger logging.Logger) (storage.Store, error) {
	clock := timex.NewMonotonic(nil)
	logger.Info(ctx, "opening storage", "backend", c.StorageBackend)

	switch c.StorageBackend {
	case config.BackendMemory:
		return memory.New(clock, nil), nil

	case config.BackendFile:
		return openSnapshotStore(ctx, clock, snapshot.NewFileSink(c.DataFile), logger)

	case config.BackendS3:
		sink, err := snapshot.NewS3Sink(ctx, snapshot.S3Options{
			Bucket:       c.S3Bucket,
			Key:          c.S3Key,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
		})
		if err != nil {
			return nil, err
		}
		return openSnapshotStore(ctx, clock, sink, logger)

	case config.BackendBadger:
		return kv.Open(kv.Options{Path: c.BadgerPath, Clock: clock, Logger: logger})

	case config.BackendPostgres:
		return postgres.Open(ctx, c.DatabaseDSN, clock)

	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
}

func openSnapshotStore(ctx context.Context, clock timex.Clock, sink memory.Sink, logger logging.Logger) (storage.Store, error) {
	store, loaded, err := memory.Open(ctx, clock, sink)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "snapshot loaded", "existing", loaded)
	return store, nil
}

func (app *App) Handler() http.Handler { return app.handler }

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) newHTTPServer() *http.Server {
	return &http.Server{
		Addr:              app.config.HTTPAddress,
		Handler:           app.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Run serves HTTP and runs the retention sweeper until ctx is cancelled or
// a termination signal arrives, then shuts both down and closes storage.
func (app *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", app.config.HTTPAddress)
	if err != nil {
		return fmt.Errorf("listen %s: %w", app.config.HTTPAddress, err)
	}
	return app.serve(ctx, ln)
}

func (app *App) serve(ctx context.Context, ln net.Listener) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	srv := app.newHTTPServer()
	app.logger.Info(ctx, "Starting app...", "addr", ln.Addr().String())

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			cancelFunc()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = app.sweeper.Run(ctx)
	}()

	<-ctx.Done()
	app.logger.Info(context.Background(), "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "http shutdown failed", "error", err)
	}
	wg.Wait()

	var errs []error
	select {
	case err := <-serveErr:
		errs = append(errs, err)
	default:
	}
	if err := app.store.Flush(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("final flush: %w", err))
	}
	if err := app.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}
	return errors.Join(errs...)
}
