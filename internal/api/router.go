package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/careapi/care-backend/internal/api/handler"
	"github.com/careapi/care-backend/internal/api/middleware"
	"github.com/careapi/care-backend/internal/core/domain"
	"github.com/careapi/care-backend/internal/core/ports"
	"github.com/careapi/care-backend/internal/infrastructure/config"
)

// NewRouter builds and returns the Echo instance with all routes registered.
// rdb may be nil when the whitelist cache is disabled.
func NewRouter(cfg *config.Config, authService ports.AuthService, rdb *redis.Client, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("care"))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(authService, cfg.DefaultUserID, cfg.DefaultOrganizationID)
	invitationHandler := handler.NewInvitationHandler(cfg.Invitations.BaseURL)
	authMiddleware := middleware.Auth(authService)

	// --- Auth routes (the hashlink and refresh exchanges are the
	// bootstrap credentials, so they are unauthenticated) ---
	e.GET("/auth/token", authHandler.Token)
	e.GET("/auth/access-token", authHandler.AccessToken)
	e.GET("/auth/check-admin", authHandler.CheckAdmin)
	e.GET("/auth/check-patient", authHandler.CheckPatient)

	// --- Invitations ---
	e.GET("/invitations/url", invitationHandler.BuildRedeemURL, authMiddleware, middleware.RBAC(domain.RoleAdmin))
	e.GET("/invitations/redeem", invitationHandler.Redeem)

	// --- Observability ---
	e.GET("/metrics", echoprometheus.NewHandler())

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(rdb)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	return e
}
