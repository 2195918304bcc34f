package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"workpile/internal/api"
	"workpile/internal/config"
	"workpile/internal/execute"
	"workpile/internal/loader"
	"workpile/internal/queue"
	"workpile/internal/store"
	"workpile/internal/work"
	"workpile/internal/worker"
)

func main() {
	var (
		addr   = flag.String("addr", "", "HTTP bind address (overrides WORKPILE_ADDR)")
		dbPath = flag.String("db", "", "SQLite DB path (overrides WORKPILE_DB)")
	)
	flag.Parse()

	cfg := config.Load()
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("open db")
	}
	defer db.Close()
	db.SetMaxOpenConns(1) // SQLite single writer

	if err := store.EnsureSchema(db); err != nil {
		log.Fatal().Err(err).Msg("ensure schema")
	}

	var st store.Store
	switch cfg.CompletionMode {
	case "status":
		st = store.NewStatusStore(db)
	default:
		st = store.NewOutboxStore(db)
	}
	log.Info().Str("completion_mode", cfg.CompletionMode).Msg("store ready")

	q := queue.New(cfg.QueueCapacity)
	works := work.NewService(st, q)

	var do worker.UnitOfWork
	switch cfg.Executor {
	case "webhook":
		if cfg.WebhookURL == "" {
			log.Fatal().Msg("WORKPILE_WEBHOOK_URL is required for the webhook executor")
		}
		do = execute.NewWebhook(cfg.WebhookURL, cfg.WebhookTimeout).Do
	default:
		do = execute.Sleep(cfg.WorkDelay)
	}

	policy := worker.Policy{
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     worker.ExpBackoff(cfg.BackoffBase),
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Startup recovery plus the periodic cycle share one loader.
	ld := loader.New(st, q, cfg.LoadInterval)
	ld.Start(ctx)

	pool := worker.NewPool(st, q, do, policy, cfg.Workers)
	pool.Start(ctx)

	srv := &http.Server{Addr: cfg.Addr, Handler: api.NewServerWithDebug(works, st, cfg.Debug)}
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	// Graceful shutdown. Items still queued are not compensated; the
	// next startup's loader pass recovers them from the store.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Info().Msg("shutting down")

	ctxTimeout, cancelTimeout := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelTimeout()
	_ = srv.Shutdown(ctxTimeout)

	ld.Stop()
	cancel()
	pool.Stop()
}
