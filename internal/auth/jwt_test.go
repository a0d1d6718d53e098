package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-at-least-16-chars!!"

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// =========================================================================
// CONSTRUCTION
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	if _, err := NewTokenService("short", time.Hour); err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_DefaultTTL(t *testing.T) {
	ts, err := NewTokenService("this-is-16-chars", 0)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	if ts.ttl != DefaultTokenTTL {
		t.Errorf("ttl = %v, want %v", ts.ttl, DefaultTokenTTL)
	}
}

// =========================================================================
// GENERATE / RESOLVE
// =========================================================================

func TestGenerateResolve_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	before := time.Now()
	token, expiresAt, err := ts.Generate("user-abc", "alice")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("token %q does not look like a JWT", token)
	}
	if d := expiresAt.Sub(before); d < 59*time.Minute || d > 61*time.Minute {
		t.Errorf("expiresAt is %v after issue, want ~1h", d)
	}

	id, err := ts.Resolve(token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if id.UserID != "user-abc" || id.Username != "alice" {
		t.Errorf("Resolve() = %+v, want user-abc/alice", id)
	}
}

func TestResolve_Expired(t *testing.T) {
	ts := newTestTokenService(t)

	token, _, err := ts.GenerateWithDuration("user-123", "alice", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateWithDuration() error = %v", err)
	}

	_, err = ts.Resolve(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Resolve() error = %v, want ErrTokenExpired", err)
	}
}

func TestResolve_Rejects(t *testing.T) {
	ts := newTestTokenService(t)
	good, _, _ := ts.Generate("user-123", "alice")

	other, _ := NewTokenService("a-completely-different-secret!!", time.Hour)
	foreign, _, _ := other.Generate("user-123", "alice")

	now := time.Now()
	wrongIssuer, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-123", Issuer: Issuer},
	}).SignedString([]byte(testSecret))

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: Issuer, ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
	}).SignedString([]byte(testSecret))

	algNone, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt.token"},
		{"tampered signature", good[:len(good)-3] + "xxx"},
		{"signed with another secret", foreign},
		{"wrong issuer", wrongIssuer},
		{"no expiry", noExpiry},
		{"no subject", noSubject},
		{"alg none", algNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.Resolve(tt.token)
			if !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("Resolve() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}
