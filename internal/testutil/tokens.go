// Package testutil provides common testing utilities, fixtures, and
// helpers shared by the client's test files: signed test tokens, an
// in-memory fake backend, and domain fixtures.
package testutil

import (
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestSecret signs every token minted by this package. The client never
// verifies signatures, but the fake backend does.
var TestSecret = []byte("test-secret-key-min-32-bytes-long!!")

// MintToken creates a compact HS256 token shaped exactly like the
// backend's: userID signed as a string, expiredAt as Unix seconds.
func MintToken(t testing.TB, userID int, expiresAt time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userID":    strconv.Itoa(userID),
		"expiredAt": expiresAt.Unix(),
	})
	signed, err := token.SignedString(TestSecret)
	if err != nil {
		t.Fatalf("Failed to sign test token: %v", err)
	}
	return signed
}

// MintValidToken mints a token for userID that expires in one hour.
func MintValidToken(t testing.TB, userID int) string {
	return MintToken(t, userID, time.Now().Add(time.Hour))
}

// MintExpiredToken mints a well-formed token whose expiry is in the past.
func MintExpiredToken(t testing.TB, userID int) string {
	return MintToken(t, userID, time.Now().Add(-time.Hour))
}

// MintTokenWithClaims creates a compact HS256 token with arbitrary claims,
// for tests that need malformed or partial payloads.
func MintTokenWithClaims(t testing.TB, claims jwt.MapClaims) string {
	t.Helper()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(TestSecret)
	if err != nil {
		t.Fatalf("Failed to sign test token: %v", err)
	}
	return signed
}
