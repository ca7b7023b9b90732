package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/careapi/care-backend/internal/core/domain"
)

// Token lifetimes are fixed policy, not caller-configurable.
const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 12 * time.Hour
)

// TokenIssuer builds HMAC-SHA256 signed access and refresh tokens.
type TokenIssuer struct {
	secret        string
	refreshSecret string
	issuer        string
	audience      string
}

// NewTokenIssuer returns an issuer. When refreshSecret is empty the
// primary secret is used for refresh tokens too; that configuration
// convenience is part of the contract.
func NewTokenIssuer(secret, refreshSecret, issuer, audience string) *TokenIssuer {
	if refreshSecret == "" {
		refreshSecret = secret
	}
	return &TokenIssuer{
		secret:        secret,
		refreshSecret: refreshSecret,
		issuer:        issuer,
		audience:      audience,
	}
}

// Issue signs a token for userID expiring at expiresAt. An empty
// patientID produces an admin token (role=admin); otherwise the token
// carries patient_id and no role. The iss claim is always the
// configured issuer; the caller-supplied organization id is accepted
// for call-site symmetry but never reaches the token.
func (i *TokenIssuer) Issue(userID, _ string, expiresAt time.Time, patientID string, isRefresh bool) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"iss":     i.issuer,
		"aud":     i.audience,
		"exp":     jwt.NewNumericDate(expiresAt),
	}
	if patientID == "" {
		claims["role"] = domain.RoleAdmin
	} else {
		claims["patient_id"] = patientID
	}

	secret := i.secret
	if isRefresh {
		secret = i.refreshSecret
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
