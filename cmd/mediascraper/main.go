package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"mediascraper/internal/bootstrap"
	"mediascraper/internal/cache"
	"mediascraper/internal/config"
	"mediascraper/internal/httpapi"
	"mediascraper/internal/migrate"
	"mediascraper/internal/pipeline"
	"mediascraper/internal/queue"
	"mediascraper/internal/scrape"
	"mediascraper/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{}))
	slog.SetDefault(logger)

	if err := migrate.Run(cfg.Database.URL, migrate.Options{
		MigrationsDir: cfg.Database.MigrationsDir,
		ReadyTimeout:  cfg.Database.ReadyTimeout,
	}); err != nil {
		logger.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		logger.Error("open db failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	st := store.New(db)

	rootCtx := context.Background()
	if err := bootstrap.Run(rootCtx, cfg, st); err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Host + ":" + strconv.Itoa(cfg.Redis.Port),
	})
	defer rdb.Close()

	c := cache.New(rdb)

	extractor := scrape.NewExtractor(cfg.Scraper.Timeout, cfg.Scraper.UserAgent)
	renderer := scrape.NewRenderer(cfg.Scraper.Timeout, cfg.Puppeteer.DisableImages, logger)
	defer renderer.Close()
	router := scrape.NewRouter(extractor, renderer, logger)

	// The queue needs a dead-letter sink that is itself built from the
	// queue, so it's constructed with a nil sink and wired afterward.
	q := queue.New(rdb, "scrape", queue.Options{
		ItemTimeout: cfg.Scraper.Timeout + 5*time.Second,
	}, nil, logger)
	ctl := pipeline.New(st, c, q, router, logger)
	q.SetDeadLetterSink(ctl)

	server := httpapi.New(cfg, st, c, ctl, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go q.Process(ctx, cfg.Scraper.Concurrency, ctl.HandleItem)
	go ctl.RunBackpressureLoops(ctx)

	go func() {
		if err := server.Listen(); err != nil {
			logger.Error("http server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	q.Close(shutdownTimeout)

	logger.Info("shutdown complete")
}

