package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/candelento/balanza/internal/config"
	"github.com/candelento/balanza/internal/infra"
	"github.com/candelento/balanza/internal/middleware"
	"github.com/candelento/balanza/internal/offline"
	"github.com/candelento/balanza/internal/router"
	"github.com/candelento/balanza/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	// The gateway logs to stderr; LOG_FILE belongs to the console.
	defer infra.SetupLogger(cfg.Env, cfg.LogLevel, "").Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rdb *redis.Client
	store := offline.Store(offline.NewMemoryStore())
	if cfg.CacheBackend == "redis" {
		rdb, err = infra.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		store = offline.NewRedisStore(rdb, "offline")
	}

	// Background revalidation of cache hits
	pool := worker.NewPool(256)
	pool.Start(ctx, cfg.WorkerPoolSize)

	w, err := offline.New(offline.Config{
		Store:        store,
		Version:      cfg.CacheVersion,
		Upstream:     cfg.UpstreamURL,
		AllowedHosts: cfg.AllowedHosts(),
		Pool:         pool,
		MaxBody:      int64(cfg.CacheMaxBodyMB) << 20,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid upstream")
	}

	// Install then activate, like a freshly registered service worker.
	// Precaching runs in the background so the port opens right away.
	go func() {
		w.Install(ctx, offline.LocalAssets, offline.ExternalAssets)
		if _, err := w.Activate(ctx); err != nil {
			log.Error().Err(err).Msg("cache activation failed")
		}
	}()

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)
	go limiter.Purge(ctx)

	r := router.New(cfg, w, limiter, rdb)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.GatewayPort),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("upstream", cfg.UpstreamURL).Str("cache", w.CacheName()).Msgf("balanza gateway listening on :%d", cfg.GatewayPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down gateway…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	cancel()
	pool.Wait()
	log.Info().Msg("gateway exited")
}
