package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/trustrail/trustrail/internal/cache"
	"github.com/trustrail/trustrail/internal/config"
	"github.com/trustrail/trustrail/internal/database"
	"github.com/trustrail/trustrail/internal/logging"
	"github.com/trustrail/trustrail/internal/monitoring"
	"github.com/trustrail/trustrail/internal/server"
	"github.com/trustrail/trustrail/internal/stats"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(&cfg.Logging, cfg.Server.Env)

	log.Info().
		Str("env", cfg.Server.Env).
		Str("name", cfg.Server.Name).
		Msg("Starting trustrail API server")

	db, err := database.New(cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	var redisCache *cache.Redis
	if cfg.Redis.Enabled {
		redisCache, err = cache.New(cfg.Redis.URL)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, stats cache disabled")
		} else {
			defer redisCache.Close()
		}
	}

	monitoring.Init()
	log.Info().Msg("Prometheus metrics initialized")

	if cfg.Monitoring.PrometheusEnabled {
		go startMetricsServer(cfg.Monitoring.PrometheusPort)
		go samplePoolStats(db)
	}

	// Periodic reconciliation picks up any recompute deferred by a
	// transient failure.
	reconcileCtx, stopReconcile := context.WithCancel(context.Background())
	defer stopReconcile()
	go runReconcileLoop(reconcileCtx, stats.NewService(db.Pool, redisCache), cfg.Stats.ReconcileInterval)

	srv := server.NewAPIServer(cfg, db.Pool, redisCache)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().
			Int("port", cfg.Server.Port).
			Msg("API server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().
		Str("signal", sig.String()).
		Msg("Shutdown signal received, gracefully shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}

func runReconcileLoop(ctx context.Context, svc *stats.Service, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := svc.ReconcileAll(ctx); err != nil {
				log.Error().Err(err).Msg("Periodic stats reconciliation failed")
			}
		}
	}
}

func samplePoolStats(db *database.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		stat := db.Pool.Stat()
		monitoring.RecordDBPoolStats(int(stat.AcquiredConns()), int(stat.IdleConns()))
	}
}

func startMetricsServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.Handler())

	metricsServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Info().
		Int("port", port).
		Msg("Prometheus metrics server listening")

	if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("Metrics server error")
	}
}
