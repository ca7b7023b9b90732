package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/careapi/care-backend/internal/api/metrics"
	"github.com/careapi/care-backend/internal/core/ports"
)

// AuthHandler exposes the token-issuance and token-inspection
// endpoints backed by the authentication gateway.
type AuthHandler struct {
	authService ports.AuthService

	// Applied when the hashlink request omits user or organization.
	defaultUserID         string
	defaultOrganizationID string
}

func NewAuthHandler(authService ports.AuthService, defaultUserID, defaultOrganizationID string) *AuthHandler {
	return &AuthHandler{
		authService:           authService,
		defaultUserID:         defaultUserID,
		defaultOrganizationID: defaultOrganizationID,
	}
}

type unauthorizedResponse struct {
	Message string `json:"Message"`
}

// Token exchanges a signed hashlink for an access/refresh token pair.
//
// @Summary      Exchange a hashlink for tokens
// @Tags         auth
// @Produce      json
// @Param        organization_id  query  string  false  "Organization id"
// @Param        user_id          query  string  false  "User id"
// @Param        date_time        query  string  true   "Timestamp, yyyyMMddHHmmssfff"
// @Param        hash             query  string  true   "Hashlink signature"
// @Param        patient_id       query  string  false  "Patient id or business identifier"
// @Param        timeZone         query  string  false  "IANA or Windows timezone id"
// @Success      200  {object}  domain.AuthResult
// @Failure      401  {object}  unauthorizedResponse
// @Router       /auth/token [get]
func (h *AuthHandler) Token(c echo.Context) error {
	start := time.Now()

	userID := c.QueryParam("user_id")
	if userID == "" {
		userID = h.defaultUserID
	}
	organizationID := c.QueryParam("organization_id")
	if organizationID == "" {
		organizationID = h.defaultOrganizationID
	}

	result := h.authService.ExchangeHashlink(
		c.Request().Context(),
		organizationID,
		userID,
		c.QueryParam("hash"),
		c.QueryParam("date_time"),
		c.QueryParam("patient_id"),
		c.QueryParam("timeZone"),
	)

	metrics.AuthDuration.WithLabelValues("hashlink").Observe(time.Since(start).Seconds())
	if result.StatusCode == http.StatusUnauthorized {
		metrics.AuthAttemptsTotal.WithLabelValues("hashlink", "unauthorized").Inc()
		return c.JSON(http.StatusUnauthorized, unauthorizedResponse{Message: result.Message})
	}
	metrics.AuthAttemptsTotal.WithLabelValues("hashlink", "authorized").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("hashlink").Inc()

	return c.JSON(http.StatusOK, result)
}

// AccessToken exchanges a refresh token for a fresh token pair.
//
// @Summary      Refresh an access token
// @Tags         auth
// @Produce      json
// @Param        token  query  string  true  "Refresh token"
// @Success      200  {object}  domain.AuthResult
// @Failure      401  "Unauthorized"
// @Router       /auth/access-token [get]
func (h *AuthHandler) AccessToken(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		metrics.AuthAttemptsTotal.WithLabelValues("refresh", "unauthorized").Inc()
		return c.NoContent(http.StatusUnauthorized)
	}

	start := time.Now()
	result := h.authService.RefreshTokens(c.Request().Context(), token)
	metrics.AuthDuration.WithLabelValues("refresh").Observe(time.Since(start).Seconds())

	if result.StatusCode == http.StatusUnauthorized {
		metrics.AuthAttemptsTotal.WithLabelValues("refresh", "unauthorized").Inc()
		return c.NoContent(http.StatusUnauthorized)
	}
	metrics.AuthAttemptsTotal.WithLabelValues("refresh", "authorized").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("refresh").Inc()

	return c.JSON(http.StatusOK, result)
}

// CheckAdmin reports whether the bearer token carries an admin
// identity. Always answers 200 with a bare boolean body.
//
// @Summary      Check a token for the admin role
// @Tags         auth
// @Produce      json
// @Success      200  {boolean}  bool
// @Router       /auth/check-admin [get]
func (h *AuthHandler) CheckAdmin(c echo.Context) error {
	user := h.authService.AuthenticateRequest(c.Request().Context(), c.Request().Header.Get("Authorization"))
	return c.JSON(http.StatusOK, user.IsAdmin())
}

// CheckPatient reports whether the bearer token carries exactly the
// patient identity given in the query, with no role attached.
//
// @Summary      Check a token for a patient identity
// @Tags         auth
// @Produce      json
// @Param        patient_id  query  string  true  "Expected patient id"
// @Success      200  {boolean}  bool
// @Router       /auth/check-patient [get]
func (h *AuthHandler) CheckPatient(c echo.Context) error {
	patientID := c.QueryParam("patient_id")
	user := h.authService.AuthenticateRequest(c.Request().Context(), c.Request().Header.Get("Authorization"))

	ok := user.IsAuthenticated && user.PatientID != "" && user.PatientID == patientID && user.Role == ""
	return c.JSON(http.StatusOK, ok)
}
