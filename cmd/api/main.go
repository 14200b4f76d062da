package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/soheilhy/cmux"
	"google.golang.org/grpc"

	"github.com/nyashahama/scenario-outcome-analyzer/internal/ai"
	"github.com/nyashahama/scenario-outcome-analyzer/internal/analysis"
	"github.com/nyashahama/scenario-outcome-analyzer/internal/api"
	"github.com/nyashahama/scenario-outcome-analyzer/internal/config"
	"github.com/nyashahama/scenario-outcome-analyzer/internal/db"
	"github.com/nyashahama/scenario-outcome-analyzer/internal/notify"
	"github.com/nyashahama/scenario-outcome-analyzer/internal/rpc"
	"github.com/nyashahama/scenario-outcome-analyzer/internal/store"
	"github.com/nyashahama/scenario-outcome-analyzer/internal/worker"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port)

	// ── Database ──────────────────────────────────────────────────────────────
	pool, queries, err := openDB(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	// ── Store (atomic multi-step writes) ──────────────────────────────────────
	st := store.New(pool, queries)

	// ── Analyzer ──────────────────────────────────────────────────────────────
	analyzer := analysis.NewAnalyzer(buildGenerator(cfg, logger), analysis.Options{
		Timeout:                cfg.AnalyzeTimeout,
		NormalizeProbabilities: cfg.NormalizeProbabilities,
	})

	// ── Completion webhooks ───────────────────────────────────────────────────
	notifier := notify.NewWebhookClient(cfg.BaseURL)

	// ── Worker ────────────────────────────────────────────────────────────────
	job := worker.NewJob(queries, st, analyzer, notifier, logger)
	runner := worker.NewRunner(job, queries, worker.RunnerConfig{
		Workers:      cfg.WorkerCount,
		PollInterval: cfg.PollInterval,
		JobTimeout:   cfg.JobTimeout,
		MaxRetries:   cfg.MaxRetries,
	}, logger)

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.NewServer(
		queries,
		analyzer,
		runner, // *Runner satisfies worker.Enqueuer
		api.Config{
			BaseURL: cfg.BaseURL,
			Env:     cfg.Env,
			Models:  cfg.Models(),
		},
		logger,
	)

	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute, // generous — the sync endpoint waits on the AI provider
		IdleTimeout:  120 * time.Second,
	}

	// ── gRPC server ───────────────────────────────────────────────────────────
	grpcServer := rpc.NewServer(analyzer, logger)

	// ── Listener ──────────────────────────────────────────────────────────────
	// One port for both protocols: cmux peeks at each connection and routes
	// gRPC (HTTP/2 with the grpc content-type) and plain HTTP separately.
	lis, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	mux := cmux.New(lis)
	grpcL := mux.MatchWithWriters(
		cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"),
	)
	httpL := mux.Match(cmux.Any())

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	// Root context cancelled by OS signal. Worker and both servers respect it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start the worker pool in a background goroutine. It blocks until ctx is done.
	go runner.Start(ctx)

	serverErr := make(chan error, 2)
	go func() {
		logger.Info("grpc listening", "addr", lis.Addr().String())
		if err := grpcServer.Serve(grpcL); err != nil && !errors.Is(err, grpc.ErrServerStopped) && !errors.Is(err, cmux.ErrServerClosed) {
			serverErr <- fmt.Errorf("grpc: %w", err)
		}
	}()
	go func() {
		logger.Info("http listening", "addr", lis.Addr().String())
		if err := srv.Serve(httpL); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, cmux.ErrServerClosed) {
			serverErr <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		if err := mux.Serve(); err != nil && !errors.Is(err, net.ErrClosed) {
			serverErr <- fmt.Errorf("mux: %w", err)
		}
	}()

	// Block until either a signal arrives or a server dies unexpectedly.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	// Give in-flight HTTP requests up to 20 seconds to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	grpcServer.GracefulStop()
	mux.Close()

	// The worker goroutine exits when ctx is cancelled (already done).
	// runner.Start blocks until all worker goroutines finish — nothing extra needed.
	logger.Info("shutdown complete")
	return nil
}

// buildGenerator wires the generator chain from whichever API keys are set:
// OpenAI primary, Anthropic fallback, rule-based last resort. With no keys at
// all the server runs entirely on the rule-based generator, which is enough
// for development and demos.
func buildGenerator(cfg *config.Config, logger *slog.Logger) analysis.Generator {
	var primary, secondary analysis.Generator
	if cfg.OpenAIAPIKey != "" {
		primary = ai.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}
	if cfg.AnthropicAPIKey != "" {
		secondary = ai.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	}

	switch {
	case primary != nil && secondary != nil:
		logger.Info("ai: using OpenAI with Anthropic fallback")
		return ai.NewFallbackGenerator(primary, secondary, logger)
	case primary != nil:
		logger.Info("ai: using OpenAI with rule-based fallback")
		return ai.NewFallbackGenerator(primary, ai.NewRuleBasedGenerator(), logger)
	case secondary != nil:
		logger.Info("ai: using Anthropic with rule-based fallback")
		return ai.NewFallbackGenerator(secondary, ai.NewRuleBasedGenerator(), logger)
	default:
		logger.Info("ai: no API keys set, using rule-based generator")
		return ai.NewRuleBasedGenerator()
	}
}

// openDB opens and tunes the connection pool, verifies connectivity, and
// returns the query layer bound to it.
func openDB(dsn string) (*sql.DB, *db.Queries, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open: %w", err)
	}

	// Tune the connection pool.
	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(10)
	pool.SetConnMaxLifetime(5 * time.Minute)
	pool.SetConnMaxIdleTime(2 * time.Minute)

	// Verify the connection is reachable before proceeding.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}

	return pool, db.New(pool), nil
}
