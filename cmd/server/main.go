package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VarshaLala06/giribazar/internal/alert"
	"github.com/VarshaLala06/giribazar/internal/cache"
	"github.com/VarshaLala06/giribazar/internal/config"
	"github.com/VarshaLala06/giribazar/internal/httpapi"
	"github.com/VarshaLala06/giribazar/internal/logger"
	"github.com/VarshaLala06/giribazar/internal/service"
	"github.com/VarshaLala06/giribazar/internal/store"
	"github.com/VarshaLala06/giribazar/internal/store/memory"
	pgstore "github.com/VarshaLala06/giribazar/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback")
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("documents schema setup failed")
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Info().Msg("repository: postgres")
	} else if cfg.SeedDemoData {
		repo = memory.NewSeeded()
		log.Info().Msg("repository: in-memory (seeded)")
	} else {
		repo = memory.New()
		log.Info().Msg("repository: in-memory")
	}

	reports := cache.ReportCache(cache.NoopReportCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisReportCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using noop report cache")
		} else {
			reports = redisCache
			closers = append(closers, redisCache.Close)
			log.Info().Msg("report cache: redis")
		}
	} else {
		log.Info().Msg("report cache: noop")
	}

	alerts := alert.NewEngine(alert.DefaultThreshold, cfg.LowStockWatch)
	svc := service.New(repo, alerts, reports, time.Duration(cfg.ReportTTLSeconds)*time.Second, log)
	api := httpapi.New(svc, cfg.AllowedOrigin, log)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Address()).Msg("inventory backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Error().Err(err).Msg("close error")
		}
	}

	log.Info().Msg("server stopped")
}
