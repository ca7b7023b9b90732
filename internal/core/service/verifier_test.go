package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/careapi/care-backend/internal/core/domain"
)

const (
	testSecret   = "unit-test-secret-key"
	testIssuer   = "care-org"
	testAudience = "care-app"
)

type stubDiscovery struct {
	doc *domain.DiscoveryDocument
	err error
}

func (s *stubDiscovery) Fetch(context.Context) (*domain.DiscoveryDocument, error) {
	return s.doc, s.err
}

func newTestVerifier(devMode bool, discovery *stubDiscovery) *TokenVerifier {
	if discovery == nil {
		discovery = &stubDiscovery{err: errors.New("discovery unavailable")}
	}
	return NewTokenVerifier(testSecret, "", testIssuer, testAudience, discovery, devMode, zerolog.Nop())
}

func newTestIssuer() *TokenIssuer {
	return NewTokenIssuer(testSecret, "", testIssuer, testAudience)
}

func TestIssueAndVerify_RoundTrip_Patient(t *testing.T) {
	issuer := newTestIssuer()
	verifier := newTestVerifier(false, nil)

	token, err := issuer.Issue("user-1", "org-1", time.Now().Add(AccessTokenTTL), "patient-1", false)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	claims, verr := verifier.VerifyCustom(token, false)
	if verr != nil {
		t.Fatalf("verify failed: %v", verr)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("user_id round trip failed: %q", claims.UserID)
	}
	if claims.PatientID != "patient-1" || claims.Role != "" {
		t.Fatalf("expected patient claim only, got patient=%q role=%q", claims.PatientID, claims.Role)
	}
	if claims.Issuer != testIssuer {
		t.Fatalf("issuer must be the configured value, got %q", claims.Issuer)
	}
}

func TestIssueAndVerify_RoundTrip_Admin(t *testing.T) {
	issuer := newTestIssuer()
	verifier := newTestVerifier(false, nil)

	token, err := issuer.Issue("user-1", "org-1", time.Now().Add(AccessTokenTTL), "", false)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	claims, verr := verifier.VerifyCustom(token, false)
	if verr != nil {
		t.Fatalf("verify failed: %v", verr)
	}
	if claims.Role != domain.RoleAdmin || claims.PatientID != "" {
		t.Fatalf("expected admin claim only, got patient=%q role=%q", claims.PatientID, claims.Role)
	}
}

func TestVerifyCustom_WrongSecret(t *testing.T) {
	other := NewTokenIssuer("a-different-secret", "", testIssuer, testAudience)
	token, _ := other.Issue("user-1", "org-1", time.Now().Add(AccessTokenTTL), "", false)

	if _, verr := newTestVerifier(false, nil).VerifyCustom(token, false); verr == nil {
		t.Fatalf("expected wrong secret to fail")
	}
}

func TestVerifyCustom_WrongIssuer(t *testing.T) {
	other := NewTokenIssuer(testSecret, "", "someone-else", testAudience)
	token, _ := other.Issue("user-1", "org-1", time.Now().Add(AccessTokenTTL), "", false)

	if _, verr := newTestVerifier(false, nil).VerifyCustom(token, false); verr == nil {
		t.Fatalf("expected wrong issuer to fail")
	}
}

func TestVerifyCustom_WrongAudience(t *testing.T) {
	other := NewTokenIssuer(testSecret, "", testIssuer, "another-app")
	token, _ := other.Issue("user-1", "org-1", time.Now().Add(AccessTokenTTL), "", false)

	if _, verr := newTestVerifier(false, nil).VerifyCustom(token, false); verr == nil {
		t.Fatalf("expected wrong audience to fail")
	}
}

// Signature validation of an access token deliberately skips lifetime
// checking; expiry is enforced during claim extraction instead.
func TestVerifyCustom_ExpiredAccessTokenStillDecodes(t *testing.T) {
	issuer := newTestIssuer()
	token, _ := issuer.Issue("user-1", "org-1", time.Now().Add(-time.Hour), "patient-1", false)

	claims, verr := newTestVerifier(false, nil).VerifyCustom(token, false)
	if verr != nil {
		t.Fatalf("structural verification must pass for expired access tokens: %v", verr)
	}
	if claims.PatientID != "patient-1" {
		t.Fatalf("claims must still be readable")
	}
}

func TestVerifyCustom_ExpiredRefreshTokenRejected(t *testing.T) {
	issuer := newTestIssuer()
	token, _ := issuer.Issue("user-1", "org-1", time.Now().Add(-time.Hour), "patient-1", true)

	if _, verr := newTestVerifier(false, nil).VerifyCustom(token, true); verr == nil {
		t.Fatalf("refresh verification must enforce lifetime")
	}
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	issuer := newTestIssuer()
	token, _ := issuer.Issue("user-1", "org-1", time.Now().Add(-time.Minute), "patient-1", false)

	user := newTestVerifier(false, nil).Authenticate(context.Background(), token)
	if user.IsAuthenticated {
		t.Fatalf("expired token must not authenticate")
	}
	if user.TokenStatus != domain.TokenStatusExpired {
		t.Fatalf("expected expired status, got %q", user.TokenStatus)
	}
}

func TestAuthenticate_DevModeIgnoresExpiry(t *testing.T) {
	issuer := newTestIssuer()
	token, _ := issuer.Issue("user-1", "org-1", time.Now().Add(-time.Minute), "patient-1", false)

	user := newTestVerifier(true, nil).Authenticate(context.Background(), token)
	if !user.IsAuthenticated {
		t.Fatalf("dev mode must not enforce expiry")
	}
	if user.PatientID != "patient-1" {
		t.Fatalf("claims must be populated, got %+v", user)
	}
}

func TestAuthenticate_BothStrategiesFail(t *testing.T) {
	user := newTestVerifier(false, nil).Authenticate(context.Background(), "not-a-token")
	if user.IsAuthenticated {
		t.Fatalf("garbage token must not authenticate")
	}
	if user.ErrorMessage != "Invalid Token" {
		t.Fatalf("expected fixed error message, got %q", user.ErrorMessage)
	}
	if user.TokenStatus != domain.TokenStatusError {
		t.Fatalf("expected error status, got %q", user.TokenStatus)
	}
}

func federatedToken(t *testing.T, key *rsa.PrivateKey, kid, issuer string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	claims["iss"] = issuer
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign federated token: %v", err)
	}
	return signed
}

func TestAuthenticate_FederatedFallback(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	discovery := &stubDiscovery{doc: &domain.DiscoveryDocument{
		Issuer: "https://b2c.example.com/tenant/v2.0/",
		Keys:   []domain.SigningKey{{KeyID: "k1", Key: &key.PublicKey}},
	}}

	token := federatedToken(t, key, "k1", discovery.doc.Issuer, jwt.MapClaims{
		"extension_PatientID": "patient-9",
		"exp":                 jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	user := newTestVerifier(false, discovery).Authenticate(context.Background(), token)
	if !user.IsAuthenticated {
		t.Fatalf("federated token should authenticate: %+v", user)
	}
	if !user.IsFederated {
		t.Fatalf("identity must be marked federated")
	}
	if user.PatientID != "patient-9" {
		t.Fatalf("federated patient claim not mapped: %+v", user)
	}
	if user.RawToken != token {
		t.Fatalf("raw token must be retained for downstream calls")
	}
}

func TestVerifyFederated_WrongIssuer(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	discovery := &stubDiscovery{doc: &domain.DiscoveryDocument{
		Issuer: "https://b2c.example.com/tenant/v2.0/",
		Keys:   []domain.SigningKey{{KeyID: "k1", Key: &key.PublicKey}},
	}}

	token := federatedToken(t, key, "k1", "https://evil.example.com/", jwt.MapClaims{
		"exp": jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	if _, verr := newTestVerifier(false, discovery).VerifyFederated(context.Background(), token); verr == nil {
		t.Fatalf("issuer mismatch must fail federated verification")
	}
}

// Federated verification skips audience and lifetime validation; an
// expired federated token is rejected during claim extraction, not by
// the strategy itself.
func TestAuthenticate_ExpiredFederatedToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	discovery := &stubDiscovery{doc: &domain.DiscoveryDocument{
		Issuer: "https://b2c.example.com/tenant/v2.0/",
		Keys:   []domain.SigningKey{{KeyID: "k1", Key: &key.PublicKey}},
	}}

	token := federatedToken(t, key, "k1", discovery.doc.Issuer, jwt.MapClaims{
		"exp": jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})

	if _, verr := newTestVerifier(false, discovery).VerifyFederated(context.Background(), token); verr != nil {
		t.Fatalf("expired federated token must still pass structural verification: %v", verr)
	}

	user := newTestVerifier(false, discovery).Authenticate(context.Background(), token)
	if user.IsAuthenticated {
		t.Fatalf("expired federated token must not authenticate")
	}
	if user.TokenStatus != domain.TokenStatusExpired {
		t.Fatalf("expected expired status, got %q", user.TokenStatus)
	}
}

func TestNewTokenIssuer_RefreshSecretDefaultsToPrimary(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, "", testIssuer, testAudience)
	token, err := issuer.Issue("user-1", "org-1", time.Now().Add(RefreshTokenTTL), "", true)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	// With no explicit refresh secret the refresh token verifies
	// against the primary secret.
	if _, verr := newTestVerifier(false, nil).VerifyCustom(token, true); verr != nil {
		t.Fatalf("refresh token should verify with primary secret: %v", verr)
	}
}

func TestRefreshSecret_DistinctWhenConfigured(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, "separate-refresh-secret", testIssuer, testAudience)
	refresh, _ := issuer.Issue("user-1", "org-1", time.Now().Add(RefreshTokenTTL), "", true)

	// A verifier without the refresh secret must reject it.
	if _, verr := newTestVerifier(false, nil).VerifyCustom(refresh, true); verr == nil {
		t.Fatalf("refresh token signed with distinct secret should not verify against primary")
	}

	v := NewTokenVerifier(testSecret, "separate-refresh-secret", testIssuer, testAudience, &stubDiscovery{err: errors.New("n/a")}, false, zerolog.Nop())
	if _, verr := v.VerifyCustom(refresh, true); verr != nil {
		t.Fatalf("refresh token should verify with configured refresh secret: %v", verr)
	}
}
