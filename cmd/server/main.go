package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Simplici0/orcafacil/internal/cache"
	"github.com/Simplici0/orcafacil/internal/config"
	"github.com/Simplici0/orcafacil/internal/db"
	"github.com/Simplici0/orcafacil/internal/migrations"
	"github.com/Simplici0/orcafacil/internal/observability"
	"github.com/Simplici0/orcafacil/internal/seed"
	"github.com/Simplici0/orcafacil/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "orcafacil: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := config.Load()

	logger, err := observability.NewLogger(cfg.LogLevel, cfg.IsDev())
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	for _, warning := range cfg.Warnings {
		logger.Warn("config", zap.String("warning", warning))
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if err := migrations.Up(database, observability.NewPrintfAdapter(logger.Named("goose"))); err != nil {
		return err
	}

	if cfg.Seed {
		stats, err := seed.Run(ctx, database)
		if err != nil {
			return fmt.Errorf("seed database: %w", err)
		}
		logger.Info("seed complete", zap.Int("inserts", stats.Inserts))
	}

	quoteCache, closeCache := openCache(ctx, cfg, logger)
	defer closeCache()

	srv := newServer(store.New(database), quoteCache, cfg.CacheTTL, observability.NewMetrics(), logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", httpServer.Addr), zap.String("env", cfg.Env))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// openCache prefers Redis when configured and falls back to the in-process
// cache when it cannot be reached.
func openCache(ctx context.Context, cfg config.Config, logger *zap.Logger) (cache.Cache, func()) {
	if cfg.RedisURL == "" {
		return cache.NewMemory(), func() {}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	redisCache, err := cache.NewRedis(pingCtx, cfg.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable, using in-memory quote cache", zap.Error(err))
		return cache.NewMemory(), func() {}
	}
	logger.Info("quote cache backed by redis")
	return redisCache, func() {
		if err := redisCache.Close(); err != nil {
			logger.Warn("close redis", zap.Error(err))
		}
	}
}
