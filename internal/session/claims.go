// Package session owns the authenticated-session lifecycle: the bearer
// token, the identity derived from its claims, and the cached profile.
package session

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
)

// Claims is the decoded payload of a bearer token. The backend encodes
// userID as a JSON string and expiredAt as Unix seconds; both fields keep
// their zero value when absent or non-numeric, which downstream checks
// treat as "no identity" and "already expired" respectively.
type Claims struct {
	UserID    int   // positive when a valid userID claim is present
	ExpiredAt int64 // Unix seconds, 0 when absent or non-numeric
}

// DecodeClaims splits a compact token on ".", base64url-decodes the middle
// segment, and strictly parses it as a JSON object. Any malformed input
// (missing segment, invalid base64, non-object or invalid JSON) yields nil.
// It is a total function: no input panics.
func DecodeClaims(token string) *Claims {
	parts := strings.Split(token, ".")
	if len(parts) < 2 || parts[1] == "" {
		return nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return nil
	}

	trimmed := strings.TrimSpace(string(decoded))
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}

	var raw struct {
		UserID    any `json:"userID"`
		ExpiredAt any `json:"expiredAt"`
	}
	if err := json.Unmarshal(decoded, &raw); err != nil {
		return nil
	}

	claims := &Claims{}
	if id, ok := claimNumber(raw.UserID); ok && id == float64(int(id)) && id > 0 {
		claims.UserID = int(id)
	}
	if exp, ok := claimNumber(raw.ExpiredAt); ok {
		claims.ExpiredAt = int64(exp)
	}
	return claims
}

// ExpiryMillis returns the token's expiry as Unix milliseconds, or 0 when
// the token is undecodable or carries no numeric expiredAt claim. A zero
// result reads as "already expired".
func ExpiryMillis(token string) int64 {
	claims := DecodeClaims(token)
	if claims == nil || claims.ExpiredAt == 0 {
		return 0
	}
	return claims.ExpiredAt * 1000
}

// claimNumber coerces a decoded JSON claim value to a number. The backend
// signs userID as a string, so both string and number encodings are
// accepted.
func claimNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
