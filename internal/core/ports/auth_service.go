package ports

import (
	"context"

	"github.com/careapi/care-backend/internal/core/domain"
)

// AuthService is the authentication gateway: every inbound request
// passes through exactly one of its three flows.
type AuthService interface {
	// ExchangeHashlink validates a time-boxed signed hashlink and, on
	// success, issues an access/refresh token pair. Failures of any
	// kind surface as AuthResult{StatusCode: 401}; the method never
	// returns an error.
	ExchangeHashlink(ctx context.Context, organizationID, userID, suppliedHash, hitTimestamp, patientID, timeZone string) domain.AuthResult

	// AuthenticateRequest runs the bearer-token flow against the raw
	// Authorization header value and returns a normalized identity.
	AuthenticateRequest(ctx context.Context, authorizationHeader string) domain.AuthUser

	// RefreshTokens exchanges a valid refresh token for a fresh
	// access/refresh pair. Any verification failure collapses to a
	// single 401 result with no detail.
	RefreshTokens(ctx context.Context, refreshToken string) domain.AuthResult
}
