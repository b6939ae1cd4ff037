// Package bootstrap brings up the infrastructure a bot needs before it can take
// updates: the logger, an optional Postgres pool with its schema, and seed data.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	coredatabase "github.com/m3rciful/shopbot/core/database"
	"github.com/m3rciful/shopbot/core/logger"
)

// Options control Run. Nil hooks select the core implementations.
type Options struct {
	Config *coreconfig.Config
	// Database is nil for bots that keep no state in SQL.
	Database *coredatabase.Config
	Modules  Modules

	LoggerInit func(*coreconfig.Config) error
	Connect    func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(context.Context, coredatabase.Config) error
}

// Result is the infrastructure handed to seeders and to the app.
type Result struct {
	DB *sqlx.DB
}

// Close releases the database pool, if any.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run performs the steps in order. On failure everything acquired so far is released.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}
	initLogger := opts.LoggerInit
	if initLogger == nil {
		initLogger = logger.InitLogger
	}
	if err := initLogger(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	res := &Result{}
	if opts.Database != nil {
		db, err := openDatabase(ctx, *opts.Database, opts.Connect, opts.Migrate)
		if err != nil {
			return nil, err
		}
		res.DB = db
	}
	if err := opts.Modules.seed(ctx, res); err != nil {
		return nil, errors.Join(err, res.Close())
	}
	return res, nil
}

func openDatabase(ctx context.Context, cfg coredatabase.Config,
	connect func(context.Context, coredatabase.Config) (*sqlx.DB, error),
	migrate func(context.Context, coredatabase.Config) error,
) (*sqlx.DB, error) {
	if connect == nil {
		connect = coredatabase.ConnectContext
	}
	if migrate == nil {
		migrate = coredatabase.Migrate
	}
	db, err := connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	if err := migrate(ctx, cfg); err != nil {
		return nil, errors.Join(fmt.Errorf("bootstrap: migrations failed: %w", err), db.Close())
	}
	return db, nil
}

func (m Modules) seed(ctx context.Context, res *Result) error {
	for i, s := range m.Seeders {
		if s == nil {
			continue
		}
		start := time.Now()
		err := s.Seed(ctx, res)
		logger.Info(ctx, "app", "seed",
			slog.String("status", logger.Status(err)),
			slog.Int("seeder", i),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
		if err != nil {
			return fmt.Errorf("bootstrap: seeder %d failed: %w", i, err)
		}
	}
	return nil
}
