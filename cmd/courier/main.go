package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/courierhq/courier/internal/api"
	"github.com/courierhq/courier/internal/config"
	"github.com/courierhq/courier/internal/email"
	"github.com/courierhq/courier/internal/lockfile"
	"github.com/courierhq/courier/internal/metrics"
	"github.com/courierhq/courier/internal/queue"
	"github.com/courierhq/courier/internal/scheduler"
	"github.com/courierhq/courier/internal/store"
)

// DefaultDBFileName is the SQLite database filename used when no DSN is set.
const DefaultDBFileName = "courier.db"

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Flags override the environment for the settings most often changed in
	// development.
	listenAddr := flag.String("addr", cfg.ListenAddr, "HTTP listen address")
	stateDir := flag.String("state-dir", cfg.StateDir, "state directory for the lock file and SQLite database")
	dbDSN := flag.String("db-dsn", cfg.DatabaseDSN, "database DSN (postgres:// URL or SQLite path)")
	flag.Parse()
	cfg.ListenAddr = *listenAddr
	cfg.StateDir = *stateDir
	cfg.DatabaseDSN = *dbDSN

	initializeLogger(cfg.LogLevel)

	lock, err := lockfile.AcquireLock(cfg.StateDir)
	if err != nil {
		slog.Error("failed to lock state directory", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	st, err := openStore(cfg)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	metrics.Init()

	sender := buildSender(cfg)
	slog.Info("email transport configured", "transport", sender.Name())

	enqueuer := queue.NewEnqueuer(st)
	processor := queue.NewProcessor(st, sender, queue.ProcessorConfig{
		BatchSize:   cfg.QueueBatchSize,
		MaxAttempts: cfg.QueueMaxAttempts,
		FromEmail:   cfg.FromEmail,
		FromName:    cfg.FromName,
		StaleAfter:  cfg.QueueStaleAfter,
	})

	// Reclaim jobs a previous crash left in sending.
	if _, err := processor.RecoverStale(); err != nil {
		slog.Error("stale job recovery failed", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.PollInterval > 0 {
		go processor.Run(ctx, cfg.PollInterval)
	}

	if cfg.ProcessQueueCron != "" {
		sched := scheduler.NewScheduler()
		defer sched.Stop()
		err := sched.AddJob(cfg.ProcessQueueCron, func() {
			result := processor.Process(context.Background())
			if result.Processed > 0 {
				slog.Info("scheduled queue drain complete",
					"processed", result.Processed, "sent", result.Sent, "failed", result.Failed)
			}
		})
		if err != nil {
			slog.Error("invalid PROCESS_QUEUE_CRON expression", "error", err)
			os.Exit(1)
		}
		slog.Info("internal queue drain scheduled", "cron", cfg.ProcessQueueCron)
	}

	server := api.NewServer(st, enqueuer, processor, cfg.CronSecret)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Courier API listening", "addr", cfg.ListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}
	slog.Info("Courier exited")
}

// initializeLogger sets up the default structured logger at the configured
// level.
func initializeLogger(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
}

// openStore selects the storage backend from the DSN. A postgres:// URL uses
// Postgres; anything else is a SQLite path, defaulting to a database file in
// the state directory.
func openStore(cfg *config.Config) (store.Store, error) {
	dsn := cfg.DatabaseDSN
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		slog.Info("using Postgres store")
		return store.NewPostgresStore(store.WithPostgresDSN(dsn))
	}
	if dsn == "" {
		dsn = filepath.Join(cfg.StateDir, DefaultDBFileName)
	}
	slog.Info("using SQLite store", "path", dsn)
	return store.NewSQLiteStore(store.WithSQLiteDSN(dsn))
}

// buildSender picks the email transport.
func buildSender(cfg *config.Config) email.Sender {
	if cfg.EmailProvider == "smtp" {
		return email.NewSMTPSender(email.SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUser,
			Password:    cfg.SMTPPassword,
			RetryWindow: cfg.SMTPRetryWindow,
		})
	}
	return email.NewConsoleSender()
}
