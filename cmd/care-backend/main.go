package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/careapi/care-backend/internal/api"
	"github.com/careapi/care-backend/internal/core/ports"
	"github.com/careapi/care-backend/internal/core/service"
	"github.com/careapi/care-backend/internal/infrastructure/cache"
	"github.com/careapi/care-backend/internal/infrastructure/cms"
	"github.com/careapi/care-backend/internal/infrastructure/config"
	"github.com/careapi/care-backend/internal/infrastructure/fhir"
	"github.com/careapi/care-backend/internal/infrastructure/oidc"
	"github.com/careapi/care-backend/pkg/logger"
)

func main() {
	// A missing .env is fine; real deployments configure the
	// environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Collaborators ---
	var whitelist ports.Whitelist = cms.NewClient(cfg.CMS.URL)
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		client, err := cache.Connect(ctx, cache.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		rdb = client
		whitelist = cache.NewWhitelistCache(rdb, whitelist, log)
	}

	patients := fhir.NewClient(cfg.FHIR.BaseURL, cfg.FHIR.IdentifierSystem)
	discovery := oidc.NewFetcher(cfg.B2C.HostName, cfg.B2C.TenantName, cfg.B2C.PolicyName)

	// --- Auth core ---
	hash := service.NewHashValidator(cfg.HashSecretKey)
	issuer := service.NewTokenIssuer(cfg.JWTSecretKey, cfg.JWTRefreshSecretKey, cfg.Issuer, cfg.Audience)
	verifier := service.NewTokenVerifier(cfg.JWTSecretKey, cfg.JWTRefreshSecretKey, cfg.Issuer, cfg.Audience, discovery, cfg.DevMode(), log)
	authService := service.NewAuthService(hash, issuer, verifier, whitelist, patients, log)

	e := api.NewRouter(cfg, authService, rdb, log)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil {
			log.Info().Err(err).Msg("http server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("care-backend started")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
