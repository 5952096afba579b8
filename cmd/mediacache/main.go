package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/reelpipe/mediacache/internal/cache"
	"github.com/reelpipe/mediacache/internal/config"
	"github.com/reelpipe/mediacache/internal/fetch"
	"github.com/reelpipe/mediacache/internal/http/rest"
	"github.com/reelpipe/mediacache/internal/logctx"
	"github.com/reelpipe/mediacache/internal/notifier"
	"github.com/reelpipe/mediacache/internal/storage/sqlite"
	"github.com/reelpipe/mediacache/internal/telemetry"
)

const usage = `usage: mediacache <command> [args]

commands:
  fetch <url>...   download media URLs through the cache
  cleanup          remove expired cache entries
  history          show recent fetch outcomes
  serve            run the HTTP API
`

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	logger := buildLogger(cfg)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(logctx.WithLogger(ctx, logger), cfg, os.Args[1:]); err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

// buildLogger fans JSON records out to stdout and, when configured, an
// append-only rolling file.
func buildLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)

	if cfg.LogFile != "" {
		fileSink := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		handler = slogmulti.Fanout(handler, slog.NewJSONHandler(fileSink, opts))
	}

	return slog.New(logctx.NewTraceHandler(handler))
}

func run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)

		return fmt.Errorf("no command given")
	}

	tel, err := telemetry.New(telemetry.Config{
		Enabled:     cfg.TelemetryEnabled,
		ServiceName: "mediacache",
	})
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}

	// =========================================================================
	// Start Database
	database, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open fetch history db: %w", err)
	}
	defer database.Close()

	repo := sqlite.NewFetchRepository(database)

	// =========================================================================
	// Start Cache Manager
	fetcher := fetch.NewFetcher(cfg.HTTPTimeout, cfg.UserAgent)
	policy := fetch.Policy{MaxAttempts: cfg.MaxAttempts, Base: cfg.BackoffBase}

	manager, err := cache.NewManager(cfg.CacheDir, cfg.CacheTTL, fetcher, policy,
		cache.WithTelemetry(tel),
		cache.WithAudit(repo),
	)
	if err != nil {
		return err
	}

	switch args[0] {
	case "fetch":
		return runFetch(ctx, cfg, manager, args[1:])
	case "cleanup":
		return runCleanup(ctx, manager)
	case "history":
		return runHistory(repo)
	case "serve":
		return runServe(ctx, cfg, manager, tel)
	default:
		fmt.Fprint(os.Stderr, usage)

		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func runFetch(ctx context.Context, cfg *config.Config, manager *cache.Manager, urls []string) error {
	logger := logctx.LoggerFromContext(ctx)

	if len(urls) == 0 {
		return fmt.Errorf("fetch requires at least one URL")
	}

	reqs := make([]cache.Request, 0, len(urls))
	for _, u := range urls {
		reqs = append(reqs, cache.Request{URL: u})
	}

	results, summary := manager.FetchBatch(ctx, reqs, cfg.MaxParallel)

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "FAILED %s: %v\n", r.Request.URL, r.Err)

			continue
		}

		fmt.Println(r.Path)
	}

	logger.Info("batch finished", "total", summary.Total, "succeeded", summary.Succeeded, "failed", summary.Failed)

	if cfg.WebhookURL != "" {
		notif := &notifier.WebhookNotifier{WebhookURL: cfg.WebhookURL}

		msg := fmt.Sprintf("media fetch finished: %d/%d succeeded", summary.Succeeded, summary.Total)
		if err := notif.Notify(msg); err != nil {
			logger.Error("failed to send notification", "err", err)
		}
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", summary.Failed, summary.Total)
	}

	return nil
}

func runCleanup(ctx context.Context, manager *cache.Manager) error {
	removed, err := manager.ClearExpired(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("removed %d expired cache entries\n", removed)

	return nil
}

func runHistory(repo *sqlite.FetchRepository) error {
	records, err := repo.RecentFetches(50)
	if err != nil {
		return err
	}

	for _, rec := range records {
		fmt.Printf("%-25s %-10s attempts=%d size=%s %s\n",
			rec.CreatedAt, rec.Outcome, rec.Attempts, humanize.Bytes(uint64(rec.ByteSize)), rec.URL)
	}

	return nil
}

func runServe(ctx context.Context, cfg *config.Config, manager *cache.Manager, tel *telemetry.Telemetry) error {
	logger := logctx.LoggerFromContext(ctx)

	handler := rest.NewCacheHandler(manager, tel)

	server := &http.Server{
		Addr:         cfg.Web.BindAddress,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		Handler:      handler.Routes(),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	// Buffered so the goroutine can exit if we never collect the error.
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("serving cache API", "host", cfg.Web.BindAddress, "cache_dir", cfg.CacheDir, "ttl", cfg.CacheTTL.String())
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("start shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to gracefully shutdown the server", "err", err)

			if err = server.Close(); err != nil {
				return fmt.Errorf("could not stop server gracefully: %w", err)
			}
		}

		return nil
	}
}
