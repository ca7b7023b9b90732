package domain

import (
	"errors"
	"time"
)

const RoleAdmin = "admin"

// TokenStatus describes the outcome of decoding a bearer token.
type TokenStatus string

const (
	TokenStatusValid   TokenStatus = "valid"
	TokenStatusExpired TokenStatus = "expired"
	TokenStatusError   TokenStatus = "error"
	TokenStatusNone    TokenStatus = "no_token"
)

var ErrInvalidToken = errors.New("invalid token")
var ErrMissingAuthorization = errors.New("missing authorization header")
var ErrForbidden = errors.New("access forbidden")

// AuthUser is the normalized identity produced by bearer-token
// authentication. It is rebuilt for every request and never persisted;
// all identity state lives inside the signed token itself.
//
// PatientID and Role are mutually exclusive: a token carries either a
// patient identity or an admin role, never both.
type AuthUser struct {
	IsAuthenticated bool        `json:"is_authenticated"`
	PatientID       string      `json:"patient_id,omitempty"`
	Role            string      `json:"role,omitempty"`
	IsFederated     bool        `json:"is_federated"`
	TokenStatus     TokenStatus `json:"token_status,omitempty"`
	ErrorMessage    string      `json:"error_message,omitempty"`

	// RawToken is the bearer credential as presented, kept so downstream
	// collaborators (the FHIR server in particular) can re-present it.
	RawToken string `json:"-"`
}

// IsAdmin reports whether the identity is an admin without a patient
// context attached.
func (u AuthUser) IsAdmin() bool {
	return u.IsAuthenticated && u.Role == RoleAdmin && u.PatientID == ""
}

// AuthResult is the outcome of a hashlink or refresh-token exchange.
// Field names follow the wire contract consumed by the frontend.
type AuthResult struct {
	AccessToken  string `json:"JWTAccessToken,omitempty"`
	RefreshToken string `json:"RefreshToken,omitempty"`
	Message      string `json:"Message,omitempty"`
	StatusCode   int    `json:"StatusCode"`
}

// TokenClaims is the typed view of a decoded token. Claims are read
// once during decoding into named fields; nothing downstream searches
// the raw claim set by string key.
type TokenClaims struct {
	UserID    string
	PatientID string
	Role      string
	Issuer    string
	// ExpiresAt is zero when the token carries no exp claim.
	ExpiresAt time.Time
}

// PatientRecord is the minimal projection of a patient resource
// returned by the clinical-data server.
type PatientRecord struct {
	ID string
}

// SigningKey is a single public key published by a federated identity
// provider. Key holds the parsed public key in the form the JWT
// library expects.
type SigningKey struct {
	KeyID string
	Key   any
}

// DiscoveryDocument is the subset of a federated provider's OpenID
// discovery metadata needed for token verification.
type DiscoveryDocument struct {
	Issuer string
	Keys   []SigningKey
}
