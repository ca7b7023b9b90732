package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careapi/care-backend/internal/core/domain"
	"github.com/careapi/care-backend/internal/core/ports"
)

const bearerPrefix = "Bearer "

// AuthService orchestrates the three authentication flows: hashlink
// exchange, bearer-token verification, and refresh-token exchange.
// It is stateless; every call rebuilds its result from the request and
// the injected configuration.
type AuthService struct {
	hash      *HashValidator
	issuer    *TokenIssuer
	verifier  *TokenVerifier
	whitelist ports.Whitelist
	patients  ports.PatientDirectory
	log       zerolog.Logger

	now func() time.Time
}

func NewAuthService(hash *HashValidator, issuer *TokenIssuer, verifier *TokenVerifier, whitelist ports.Whitelist, patients ports.PatientDirectory, log zerolog.Logger) *AuthService {
	return &AuthService{
		hash:      hash,
		issuer:    issuer,
		verifier:  verifier,
		whitelist: whitelist,
		patients:  patients,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ExchangeHashlink implements the hashlink flow. Every failure path
// returns 401 with its own fixed message; messages are not sanitized
// here, that is the HTTP boundary's concern.
func (s *AuthService) ExchangeHashlink(ctx context.Context, organizationID, userID, suppliedHash, hitTimestamp, patientID, timeZone string) domain.AuthResult {
	currentDate, err := WallClock(s.now(), timeZone)
	if err != nil {
		s.log.Error().Err(err).Str("time_zone", timeZone).Msg("hashlink rejected: bad timezone")
		return unauthorized("Unauthorized " + err.Error())
	}

	hitDateTime, err := ParseHitTimestamp(hitTimestamp)
	if err != nil {
		s.log.Error().Err(err).Msg("hashlink rejected: bad timestamp")
		return unauthorized("Unauthorized " + err.Error())
	}

	if !WithinPrimaryWindow(hitDateTime, currentDate) {
		s.log.Info().
			Time("hit_date_time", hitDateTime).
			Time("current_date", currentDate).
			Msg("hashlink rejected: outside validity window, max validity is 1 minute")
		return unauthorized("Unauthorized no match between hitDateTime")
	}

	if !s.hash.Matches(organizationID, userID, patientID, hitTimestamp, suppliedHash) {
		s.log.Info().Msg("hashlink rejected: hash codes do not match")
		return unauthorized("Unauthorized hash code does not match")
	}
	s.log.Info().Msg("hashlink signature matches")

	// Second window check, distinct from the first: same calendar date
	// and under 60 seconds elapsed. Reachable independently of the
	// primary check near midnight boundaries.
	if !WithinSecondaryWindow(hitDateTime, currentDate) {
		s.log.Info().
			Time("hit_date_time", hitDateTime).
			Time("current_date", currentDate).
			Float64("elapsed_seconds", currentDate.Sub(hitDateTime).Seconds()).
			Msg("hashlink rejected: date mismatch or over 60 seconds elapsed")
		return unauthorized("UnAuthorized no match between hitDateTime")
	}

	// Whitelist lookup fails open: an unreachable whitelist service
	// must not block issuance. A reachable whitelist that excludes the
	// user does block it.
	users, err := s.whitelist.GetWhitelist(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("whitelist lookup failed, continuing issuance")
	} else if !containsUser(users, userID) {
		return unauthorized("The user is not on the whitelist")
	}

	// A patient id that is not a native id must be resolved through
	// the patient directory before issuance. Resolution fails closed.
	if patientID != "" {
		if _, err := uuid.Parse(patientID); err != nil {
			resolved, res := s.resolvePatient(ctx, userID, organizationID, patientID)
			if res != nil {
				return *res
			}
			patientID = resolved
		}
	}

	accessToken, err := s.issuer.Issue(userID, organizationID, s.now().Add(AccessTokenTTL), patientID, false)
	if err != nil {
		return unauthorized("Unauthorized " + err.Error())
	}
	refreshToken, err := s.issuer.Issue(userID, organizationID, s.now().Add(RefreshTokenTTL), patientID, true)
	if err != nil {
		return unauthorized("Unauthorized " + err.Error())
	}

	return domain.AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		StatusCode:   http.StatusOK,
		Message:      "Authorized",
	}
}

// AuthenticateRequest implements the bearer flow. A missing header or
// missing Bearer prefix short-circuits without any token parsing.
func (s *AuthService) AuthenticateRequest(ctx context.Context, authorizationHeader string) domain.AuthUser {
	if authorizationHeader == "" {
		s.log.Debug().Msg("missing authorization header")
		return domain.AuthUser{TokenStatus: domain.TokenStatusNone}
	}
	if !strings.HasPrefix(authorizationHeader, bearerPrefix) {
		s.log.Debug().Msg("authorization header missing bearer prefix")
		return domain.AuthUser{TokenStatus: domain.TokenStatusNone}
	}

	token := strings.TrimPrefix(authorizationHeader, bearerPrefix)
	return s.verifier.Authenticate(ctx, token)
}

// RefreshTokens implements the refresh flow. Lifetime is enforced on
// the presented token; any failure collapses to a single opaque 401.
func (s *AuthService) RefreshTokens(_ context.Context, refreshToken string) domain.AuthResult {
	claims, verr := s.verifier.VerifyCustom(refreshToken, true)
	if verr != nil {
		s.log.Info().Err(verr).Msg("refresh token rejected")
		return unauthorized("UnAuthorized")
	}

	// The issuer claim of the refresh token stands in for the
	// organization on re-issue.
	accessToken, err := s.issuer.Issue(claims.UserID, claims.Issuer, s.now().Add(AccessTokenTTL), claims.PatientID, false)
	if err != nil {
		return unauthorized("UnAuthorized")
	}
	newRefresh, err := s.issuer.Issue(claims.UserID, claims.Issuer, s.now().Add(RefreshTokenTTL), claims.PatientID, true)
	if err != nil {
		return unauthorized("UnAuthorized")
	}

	return domain.AuthResult{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		StatusCode:   http.StatusOK,
		Message:      "Authorized",
	}
}

// resolvePatient mints a short-lived token for the directory lookup
// and returns either the native patient id or a terminal 401 result.
func (s *AuthService) resolvePatient(ctx context.Context, userID, organizationID, patientID string) (string, *domain.AuthResult) {
	s.log.Info().Str("identifier", patientID).Msg("resolving patient id by identifier")

	lookupToken, err := s.issuer.Issue(userID, organizationID, s.now().Add(AccessTokenTTL), patientID, false)
	if err != nil {
		res := unauthorized("Unauthorized " + err.Error())
		return "", &res
	}

	records, err := s.patients.ResolveByIdentifier(ctx, patientID, lookupToken)
	if err != nil {
		s.log.Error().Err(err).Msg("patient resolution failed")
		res := unauthorized("Unauthorized " + err.Error())
		return "", &res
	}
	if len(records) == 0 {
		res := unauthorized("No user found with the PatientId")
		return "", &res
	}

	s.log.Info().Str("patient_id", records[0].ID).Msg("patient resolved")
	return records[0].ID, nil
}

func containsUser(users []string, userID string) bool {
	for _, u := range users {
		if u == userID {
			return true
		}
	}
	return false
}

func unauthorized(message string) domain.AuthResult {
	return domain.AuthResult{StatusCode: http.StatusUnauthorized, Message: message}
}
