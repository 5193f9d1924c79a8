// Package postgres is the relational backend. Every operation runs in its own
// statement or transaction, so Flush has nothing to do.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/onechat/internal/dbx"
	"github.com/dmitrijs2005/onechat/internal/server/migrations"
	"github.com/dmitrijs2005/onechat/internal/timex"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// txAttempts bounds reruns of a transaction aborted by a serialization
// failure or deadlock.
const txAttempts = 3

var readOnly = &sql.TxOptions{ReadOnly: true}

type Store struct {
	db    *sql.DB
	clock timex.Clock
}

// New wraps an open database. clock stamps messages; nil means a Monotonic
// system clock.
func New(db *sql.DB, clock timex.Clock) *Store {
	if clock == nil {
		clock = timex.NewMonotonic(nil)
	}
	return &Store{db: db, clock: clock}
}

var sqlOpen = sql.Open

// Open connects to dsn with the pgx driver and brings the schema up to date.
func Open(ctx context.Context, dsn string, clock timex.Clock) (*Store, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error running migrations: %w", err)
	}

	s := New(db, clock)
	newest, err := s.newestMessage(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	timex.Observe(s.clock, newest)
	return s, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func (s *Store) Flush(ctx context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) withTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTxRetry(ctx, s.db, opts, txAttempts, fn)
}
