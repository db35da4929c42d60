// internal/app/app.go
//
// Process bootstrap shared by cmd/web and cmd/rolectl.
//
// Boot order
// ----------
//
//  1. Load config (dotenv → YAML → ROLE_ env).
//  2. Start the rotating logger under <root>/logs.
//  3. Resolve `vault:` references when any are present.
//  4. Open the content database, with the password spliced into the DSN.
//  5. Apply embedded migrations when `database.migrate` is set.
//  6. Pick the event publisher: NATS when `nats.url` is set, log-only
//     otherwise.
//
// Close releases everything Bootstrap opened, in reverse.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/rolecultura/role/internal/agenda"
	"github.com/rolecultura/role/internal/config"
	"github.com/rolecultura/role/internal/database"
	"github.com/rolecultura/role/internal/logger"
	"github.com/rolecultura/role/internal/message"
	"github.com/rolecultura/role/internal/vault"
)

// App bundles the long-lived dependencies of one process.
type App struct {
	Config    *config.Config
	Log       *zap.Logger
	DB        *sqlx.DB
	Publisher message.Publisher
	Store     *agenda.Store
	Scheduler *agenda.Scheduler

	closers []io.Closer
}

// BootOptions select optional boot steps.
type BootOptions struct {
	// SkipMigrate suppresses step 5 even when config enables it.
	SkipMigrate bool
	// NoPublisher forces the log-only publisher.
	NoPublisher bool
}

// Bootstrap runs the boot order above.
func Bootstrap(ctx context.Context, opts BootOptions) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	sugar, err := logger.New(logger.Options{
		Root:       cfg.Paths.Root,
		Level:      cfg.Log.Level,
		Tee:        logger.RunningInTTY(),
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("start logger: %w", err)
	}
	log := sugar.Desugar()
	a := &App{Config: cfg, Log: log}

	if cfg.NeedsSecrets() {
		vc, err := vault.New(ctx, log)
		if err != nil {
			return nil, err
		}
		if err := cfg.ResolveSecrets(ctx, vc); err != nil {
			return nil, err
		}
		log.Info("vault references resolved")
	}

	dsn, err := database.WithPassword(cfg.Database.DSN, cfg.Database.Password)
	if err != nil {
		return nil, err
	}
	db, err := database.OpenWithOptions(ctx, dsn, database.Options{
		MaxOpenConns:    cfg.Database.MaxOpen,
		MaxIdleConns:    cfg.Database.MaxIdle,
		ConnMaxLifetime: database.DefaultOptions.ConnMaxLifetime,
		Retries:         cfg.Database.Retries,
		RetryBackoff:    cfg.Database.RetryBackoff,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db)
	log.Info("database online")

	if cfg.Database.Migrate && !opts.SkipMigrate {
		if err := database.Migrate(db.DB); err != nil {
			a.Close()
			return nil, err
		}
		log.Info("migrations applied")
	}

	a.Publisher = message.LogPublisher{Log: log.Named("events")}
	if cfg.NATS.URL != "" && !opts.NoPublisher {
		np, err := message.DialNATS(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Publisher = np
		a.closers = append(a.closers, np)
		log.Info("nats publisher connected")
	}

	a.Store = agenda.NewStore(db)
	a.Scheduler = agenda.NewScheduler(a.Store, a.Publisher, log)
	return a, nil
}

// Close releases resources in reverse order and flushes the logger.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.Log.Warn("close", zap.Error(err))
		}
	}
	a.closers = nil
	_ = a.Log.Sync()
}
