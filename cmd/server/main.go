package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"shopstack/backend/internal/blob"
	"shopstack/backend/internal/cache"
	"shopstack/backend/internal/config"
	"shopstack/backend/internal/dashboard"
	"shopstack/backend/internal/httpapi"
	"shopstack/backend/internal/logging"
	"shopstack/backend/internal/service"
	"shopstack/backend/internal/store"
	"shopstack/backend/internal/store/memory"
	pgstore "shopstack/backend/internal/store/postgres"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid security configuration")
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid timezone")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		if cfg.AutoMigrate {
			if err := pgstore.Migrate(cfg.DatabaseURL); err != nil {
				log.Fatal().Err(err).Msg("database migration failed")
			}
			log.Info().Msg("migrations applied")
		}
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback")
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Info().Str("repository", "postgres").Msg("repository ready")
	} else {
		repo = memory.NewSeeded()
		log.Info().Str("repository", "memory").Msg("repository ready")
	}

	cacheStore := cache.DashboardCache(cache.NoopDashboardCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisDashboardCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using noop cache")
			_ = redisCache.Close()
		} else {
			cacheStore = redisCache
			closers = append(closers, redisCache.Close)
			log.Info().Str("cache", "redis").Msg("dashboard cache ready")
		}
	} else {
		log.Info().Str("cache", "noop").Msg("dashboard cache ready")
	}

	logos, err := blob.NewLogoStore(cfg.LogoDir, cfg.PublicBaseURL, cfg.MaxLogoBytes)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.LogoDir).Msg("logo storage unavailable")
	}

	aggregator := dashboard.NewAggregator(repo, cacheStore, time.Duration(cfg.DashboardCacheTTLSeconds)*time.Second, loc)
	svc := service.New(repo, aggregator, logos, loc)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, logos.Handler(), logos.MaxBytes())

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Address()).Str("timezone", loc.String()).Msg("shopstack backend listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.AllowedOrigin == "*" {
		return fmt.Errorf("ALLOWED_ORIGIN must name a single origin, not *")
	}
	return nil
}
