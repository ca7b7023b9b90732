package service

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Invitation URLs reuse the hashlink signature primitive: a signed,
// time-boxed credential carried entirely in the query string, with no
// server-side invitation store.

// GenerateSignedRedeemURL builds a one-time invitation URL for email
// that is redeemable between now and now+lifetime.
func GenerateSignedRedeemURL(baseURL, email, patientID string, lifetime time.Duration, now time.Time) (string, error) {
	notBefore := now.UTC().Unix()
	expires := now.UTC().Add(lifetime).Unix()
	signature := sha256Hex(invitationCode(email, notBefore, expires, patientID))
	return buildRedeemURL(baseURL, email, notBefore, expires, signature, patientID)
}

// ValidateSignedRedeemURL checks the invitation signature and its
// validity window against now.
func ValidateSignedRedeemURL(email string, notBefore, expires int64, signature, patientID string, now time.Time) bool {
	computed := sha256Hex(invitationCode(email, notBefore, expires, patientID))
	return computed == signature && ValidateInvitationWindow(notBefore, expires, now)
}

// ValidateInvitationWindow reports whether now falls inside
// [notBefore, expires), both epoch seconds.
func ValidateInvitationWindow(notBefore, expires int64, now time.Time) bool {
	n := now.UTC().Unix()
	return n >= notBefore && n < expires
}

// GenerateSignUpURL builds the federated provider's signup authorize
// URL with the invitee's email pre-filled as the login hint.
func GenerateSignUpURL(hostName, tenantName, clientID, nonce, redirectURI, email, displayName string) string {
	q := url.Values{}
	q.Set("p", "B2C_1_Signup")
	q.Set("client_id", clientID)
	q.Set("nonce", nonce)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_mode", "query")
	q.Set("scope", "openid")
	q.Set("response_type", "id_token")
	q.Set("disable_cache", "true")
	q.Set("login_hint", email)
	q.Set("displayName", displayName)
	q.Set("prompt", "login")
	return fmt.Sprintf("https://%s/%s/oauth2/v2.0/authorize?%s", hostName, tenantName, q.Encode())
}

func invitationCode(email string, notBefore, expires int64, patientID string) string {
	return fmt.Sprintf("%s|%d|%d|%s|X", email, notBefore, expires, patientID)
}

func buildRedeemURL(baseURL, email string, notBefore, expires int64, signature, patientID string) (string, error) {
	u, err := url.Parse(baseURL + "/Redeem")
	if err != nil {
		return "", fmt.Errorf("redeem url: %w", err)
	}
	q := u.Query()
	q.Set("email", email)
	q.Set("nbf", strconv.FormatInt(notBefore, 10))
	q.Set("exp", strconv.FormatInt(expires, 10))
	q.Set("sig", signature)
	q.Set("baseUrl", baseURL)
	q.Set("patientId", patientID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
