package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// hitTimestampLen is the length of the yyyyMMddHHmmssfff wire format:
// second precision plus three millisecond digits, no separators.
const hitTimestampLen = 17

// hashlinkWindow is the only anti-replay control on a hashlink. The
// signature is stateless (no nonce store, no replay cache), so replay
// within this window is structurally possible; that is an accepted
// risk, not something this layer tries to fix.
const hashlinkWindow = time.Minute

// windowsZoneAliases maps the Windows timezone ids still sent by some
// EHR integrations onto IANA names, following the CLDR windowsZones
// golden mapping for each id's reference territory. Anything not
// listed here must be a valid IANA id or the request fails hard.
var windowsZoneAliases = map[string]string{
	"UTC":                            "UTC",
	"Greenwich Standard Time":        "Atlantic/Reykjavik",
	"GMT Standard Time":              "Europe/London",
	"W. Europe Standard Time":        "Europe/Amsterdam",
	"Romance Standard Time":          "Europe/Paris",
	"Central Europe Standard Time":   "Europe/Budapest",
	"Central European Standard Time": "Europe/Warsaw",
	"E. Europe Standard Time":        "Europe/Chisinau",
	"FLE Standard Time":              "Europe/Kiev",
	"GTB Standard Time":              "Europe/Bucharest",
	"Turkey Standard Time":           "Europe/Istanbul",
	"Russian Standard Time":          "Europe/Moscow",
	"South Africa Standard Time":     "Africa/Johannesburg",
	"Egypt Standard Time":            "Africa/Cairo",
	"Arabian Standard Time":          "Asia/Dubai",
	"India Standard Time":            "Asia/Kolkata",
	"SE Asia Standard Time":          "Asia/Bangkok",
	"China Standard Time":            "Asia/Shanghai",
	"Tokyo Standard Time":            "Asia/Tokyo",
	"AUS Eastern Standard Time":      "Australia/Sydney",
	"New Zealand Standard Time":      "Pacific/Auckland",
	"Atlantic Standard Time":         "America/Halifax",
	"Eastern Standard Time":          "America/New_York",
	"US Eastern Standard Time":       "America/Indiana/Indianapolis",
	"SA Pacific Standard Time":       "America/Bogota",
	"Central Standard Time":          "America/Chicago",
	"Mountain Standard Time":         "America/Denver",
	"US Mountain Standard Time":      "America/Phoenix",
	"Pacific Standard Time":          "America/Los_Angeles",
	"Alaskan Standard Time":          "America/Anchorage",
	"Hawaiian Standard Time":         "Pacific/Honolulu",
	"E. South America Standard Time": "America/Sao_Paulo",
}

// HashValidator verifies the SHA-256 signature and time window of a
// hashlink. Verification is pure: the caller supplies the reference
// clock, already converted into the requested timezone.
type HashValidator struct {
	secret string
}

func NewHashValidator(secret string) *HashValidator {
	return &HashValidator{secret: secret}
}

// Compute reconstructs the signature payload and returns its SHA-256
// hex digest. A present patientID is prepended as an extra field, so
// it changes the field count of the payload, not just one field value.
func (v *HashValidator) Compute(organizationID, userID, patientID, hitTimestamp string) string {
	code := fmt.Sprintf("%s|%s|%s|%s|X", userID, hitTimestamp, v.secret, organizationID)
	if patientID != "" {
		code = fmt.Sprintf("%s|%s|%s|%s|%s|X", patientID, userID, hitTimestamp, v.secret, organizationID)
	}
	return sha256Hex(code)
}

// Matches compares the supplied hash against the recomputed one.
// Comparison is exact, case-sensitive string equality; it is not
// constant-time, a known hardening gap.
func (v *HashValidator) Matches(organizationID, userID, patientID, hitTimestamp, suppliedHash string) bool {
	return v.Compute(organizationID, userID, patientID, hitTimestamp) == suppliedHash
}

// ParseHitTimestamp parses the yyyyMMddHHmmssfff wire format into a
// wall-clock time. The result carries no zone information; it is
// compared against a reference clock converted by WallClock.
func ParseHitTimestamp(s string) (time.Time, error) {
	if len(s) != hitTimestampLen {
		return time.Time{}, fmt.Errorf("timestamp %q: want %d digits", s, hitTimestampLen)
	}
	t, err := time.Parse("20060102150405.000", s[:14]+"."+s[14:])
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", s, err)
	}
	return t, nil
}

// WallClock converts now into the requested timezone and strips the
// zone, so it can be compared against the zoneless hit timestamp.
// An empty timeZone means UTC. An unknown id is a hard failure for the
// request, never a silent fallback to UTC.
func WallClock(now time.Time, timeZone string) (time.Time, error) {
	if timeZone == "" {
		return stripZone(now.UTC()), nil
	}
	name := timeZone
	if alias, ok := windowsZoneAliases[timeZone]; ok {
		name = alias
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Time{}, fmt.Errorf("timezone %q: %w", timeZone, err)
	}
	return stripZone(now.In(loc)), nil
}

// WithinPrimaryWindow is the first of two deliberately redundant
// window checks: the hit timestamp plus one minute must still be in
// the future relative to now.
func WithinPrimaryWindow(hit, now time.Time) bool {
	return hit.Add(hashlinkWindow).After(now)
}

// WithinSecondaryWindow is the second check, applied only after the
// hash matched: same calendar date and strictly less than 60 seconds
// elapsed. The two checks overlap in the normal case but diverge
// around local midnight; both are kept on purpose, because collapsing
// them would change accepted-token behavior at that margin.
func WithinSecondaryWindow(hit, now time.Time) bool {
	hy, hm, hd := hit.Date()
	ny, nm, nd := now.Date()
	if hy != ny || hm != nm || hd != nd {
		return false
	}
	return now.Sub(hit).Seconds() < hashlinkWindow.Seconds()
}

func stripZone(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
