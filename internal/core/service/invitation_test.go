package service

import (
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestSignedRedeemURL_RoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	raw, err := GenerateSignedRedeemURL("https://portal.example.com", "alice@example.com", "patient-1", 24*time.Hour, now)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse generated url: %v", err)
	}
	if !strings.HasSuffix(u.Path, "/Redeem") {
		t.Fatalf("unexpected path %q", u.Path)
	}
	q := u.Query()
	if q.Get("baseUrl") != "https://portal.example.com" {
		t.Fatalf("baseUrl not echoed back: %q", q.Get("baseUrl"))
	}

	nbf, err := strconv.ParseInt(q.Get("nbf"), 10, 64)
	if err != nil {
		t.Fatalf("nbf: %v", err)
	}
	exp, err := strconv.ParseInt(q.Get("exp"), 10, 64)
	if err != nil {
		t.Fatalf("exp: %v", err)
	}
	if exp-nbf != int64(24*time.Hour/time.Second) {
		t.Fatalf("window is %d seconds, want 86400", exp-nbf)
	}

	if !ValidateSignedRedeemURL(q.Get("email"), nbf, exp, q.Get("sig"), q.Get("patientId"), now.Add(time.Hour)) {
		t.Fatalf("freshly generated url must validate")
	}
}

func TestSignedRedeemURL_TamperedFields(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	nbf := now.Unix()
	exp := now.Add(24 * time.Hour).Unix()
	sig := sha256Hex(invitationCode("alice@example.com", nbf, exp, "patient-1"))

	cases := []struct {
		name      string
		email     string
		nbf, exp  int64
		patientID string
	}{
		{"email", "mallory@example.com", nbf, exp, "patient-1"},
		{"nbf", "alice@example.com", nbf + 1, exp, "patient-1"},
		{"exp", "alice@example.com", nbf, exp + 3600, "patient-1"},
		{"patient", "alice@example.com", nbf, exp, "patient-2"},
	}
	for _, tc := range cases {
		if ValidateSignedRedeemURL(tc.email, tc.nbf, tc.exp, sig, tc.patientID, now.Add(time.Hour)) {
			t.Fatalf("tampered %s must not validate", tc.name)
		}
	}

	if !ValidateSignedRedeemURL("alice@example.com", nbf, exp, sig, "patient-1", now.Add(time.Hour)) {
		t.Fatalf("untampered control case must validate")
	}
}

func TestValidateInvitationWindow_Edges(t *testing.T) {
	nbf := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	exp := nbf.Add(24 * time.Hour)

	if ValidateInvitationWindow(nbf.Unix(), exp.Unix(), nbf.Add(-time.Second)) {
		t.Fatalf("before nbf must be invalid")
	}
	if !ValidateInvitationWindow(nbf.Unix(), exp.Unix(), nbf) {
		t.Fatalf("exactly nbf must be valid")
	}
	if !ValidateInvitationWindow(nbf.Unix(), exp.Unix(), exp.Add(-time.Second)) {
		t.Fatalf("one second before exp must be valid")
	}
	if ValidateInvitationWindow(nbf.Unix(), exp.Unix(), exp) {
		t.Fatalf("exactly exp must be invalid")
	}
}

func TestGenerateSignUpURL(t *testing.T) {
	raw := GenerateSignUpURL("login.example.com", "tenant.example.com", "client-1", "nonce-1", "https://app.example.com/cb", "alice@example.com", "Alice")

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Host != "login.example.com" {
		t.Fatalf("host %q", u.Host)
	}
	if u.Path != "/tenant.example.com/oauth2/v2.0/authorize" {
		t.Fatalf("path %q", u.Path)
	}

	q := u.Query()
	for key, want := range map[string]string{
		"p":            "B2C_1_Signup",
		"client_id":    "client-1",
		"login_hint":   "alice@example.com",
		"displayName":  "Alice",
		"redirect_uri": "https://app.example.com/cb",
		"prompt":       "login",
	} {
		if got := q.Get(key); got != want {
			t.Fatalf("%s = %q, want %q", key, got, want)
		}
	}
}
