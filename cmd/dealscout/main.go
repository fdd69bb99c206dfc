package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/dealscout/dealscout/api"
	"github.com/dealscout/dealscout/cache"
	"github.com/dealscout/dealscout/config"
	"github.com/dealscout/dealscout/content"
	"github.com/dealscout/dealscout/fetch"
	"github.com/dealscout/dealscout/legacy"
	"github.com/dealscout/dealscout/llm"
	"github.com/dealscout/dealscout/markup"
	"github.com/dealscout/dealscout/pipeline"
	"github.com/dealscout/dealscout/synth"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("dealscout starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"llm", cfg.LLM.Configured(),
	)

	// ── 3. Build the extraction pipeline ────────────────────────────
	client := fetch.NewClient(cfg.Fetch.Timeout, cfg.Fetch.MaxRedirects, cfg.Fetch.Proxy)
	sessions := fetch.NewSessionStore()
	builder := content.NewBuilder()

	strategies := []pipeline.Strategy{
		markup.New(client),
	}

	var enhancer pipeline.Enhancer
	if cfg.LLM.Configured() {
		providers := llm.NewProviders(cfg.LLM, &http.Client{Timeout: cfg.LLM.Timeout})
		// One shared budget across extraction and enhancement calls.
		limiter := rate.NewLimiter(
			rate.Limit(float64(cfg.LLM.BudgetRequests)/cfg.LLM.BudgetWindow.Seconds()),
			cfg.LLM.BudgetRequests,
		)
		ex := llm.NewExtractor(providers, limiter, client, builder, cfg.LLM.ExcerptBytes)
		strategies = append(strategies, ex)
		enhancer = ex
	} else {
		slog.Info("no llm credentials configured, model-assisted stage disabled")
	}

	strategies = append(strategies,
		legacy.NewExtractor(client, sessions, cfg.Retry.BaseDelay, cfg.Retry.MaxAttempts),
	)

	store := cache.New(cfg.Cache.TTL, cfg.Cache.MaxEntries)
	orch := pipeline.New(strategies, synth.New(), enhancer, store)

	// ── 4. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(orch, cfg, startTime)

	// ── 5. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 6. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("dealscout stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
