package migrate

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Options configures a single migration run. Zero-value fields fall
// back to the same defaults config.Load uses, so callers that build
// Options by hand (tests, tools) don't need to repeat them.
type Options struct {
	MigrationsDir string
	ReadyTimeout  time.Duration
}

func (o Options) withDefaults() Options {
	if o.MigrationsDir == "" {
		o.MigrationsDir = "db/migrations"
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = 30 * time.Second
	}
	return o
}

// Run applies all pending migrations in opts.MigrationsDir using goose.
// It opens and closes its own DB handle so it is independent of the app store.
func Run(dsn string, opts Options) error {
	opts = opts.withDefaults()

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	// On fresh docker-compose startup, Postgres may not be ready immediately.
	// Do a short retry loop to avoid failing hard on initial connection refusal.
	deadline := time.Now().Add(opts.ReadyTimeout)
	for {
		if err := db.Ping(); err == nil {
			break
		}
		if time.Now().After(deadline) {
			if err := db.Ping(); err != nil {
				return fmt.Errorf("db not ready: %w", err)
			}
			break
		}
		time.Sleep(500 * time.Millisecond)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db, opts.MigrationsDir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}
