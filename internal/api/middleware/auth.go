package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/careapi/care-backend/internal/api/metrics"
	"github.com/careapi/care-backend/internal/core/domain"
	"github.com/careapi/care-backend/internal/core/ports"
)

const authUserKey = "auth_user"

// Auth runs the bearer-token flow and injects the normalized identity
// into the request context. Unauthenticated requests are rejected with
// the domain sentinels; the central error handler maps them to status
// codes, so handlers never see an unauthenticated identity.
func Auth(svc ports.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")

			start := time.Now()
			user := svc.AuthenticateRequest(c.Request().Context(), header)
			metrics.AuthDuration.WithLabelValues("bearer").Observe(time.Since(start).Seconds())

			if !user.IsAuthenticated {
				metrics.AuthAttemptsTotal.WithLabelValues("bearer", "unauthorized").Inc()
				if user.TokenStatus == domain.TokenStatusNone {
					return domain.ErrMissingAuthorization
				}
				return domain.ErrInvalidToken
			}
			metrics.AuthAttemptsTotal.WithLabelValues("bearer", "authorized").Inc()

			c.Set(authUserKey, user)
			c.Set("patient_id", user.PatientID)
			c.Set("role", user.Role)

			return next(c)
		}
	}
}

// AuthUserFrom extracts the identity injected by Auth. The zero value
// is returned when the middleware did not run.
func AuthUserFrom(c echo.Context) domain.AuthUser {
	user, _ := c.Get(authUserKey).(domain.AuthUser)
	return user
}
