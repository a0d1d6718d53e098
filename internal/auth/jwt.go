// Package auth issues and resolves session tokens, hashes passwords and
// carries the caller's identity through the request context.
//
// SESSION FLOW:
//  1. POST /api/auth/register or /api/auth/login checks credentials
//  2. The server signs a JWT naming the user and returns it in the body
//  3. The client sends it back on every call as "Authorization: Bearer <jwt>"
//  4. RequireAuth resolves the token into an Identity and stores it in the
//     request context, where handlers pick it up with IdentityFromContext
//
// Nothing about a session is stored server-side. Everything needed to resolve
// a token (user id, username, expiry) is inside it, and the HMAC signature
// proves the server issued it.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is written into every token and required when resolving one.
const Issuer = "artifact-cms"

// DefaultTokenTTL is how long a session stays valid.
const DefaultTokenTTL = 7 * 24 * time.Hour

var (
	// ErrTokenExpired means the token was genuine but is past its exp claim.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenInvalid covers everything else: malformed, bad signature,
	// wrong algorithm, wrong issuer, missing subject.
	ErrTokenInvalid = errors.New("auth: invalid token")
)

// TokenService signs and verifies HS256 session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. A ttl <= 0 selects DefaultTokenTTL.
//
// Generate a secret with: openssl rand -hex 32
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// Claims is the JWT payload: the registered claims (sub, iss, iat, exp) plus
// the username, so a resolved token can be displayed without a DB lookup.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Generate signs a session token for the user using the service's TTL.
// It returns the token and the moment it expires.
func (s *TokenService) Generate(userID, username string) (string, time.Time, error) {
	return s.GenerateWithDuration(userID, username, s.ttl)
}

// GenerateWithDuration signs a token with a custom lifetime. Tests use a
// negative duration to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID, username string, d time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(d)

	c := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, expiresAt.UTC().Truncate(time.Second), nil
}

// Resolve verifies a token and returns the identity it names.
//
// The parser is pinned to HS256. Without WithValidMethods a token whose
// header says "alg":"none" (or an RSA algorithm, with the HMAC secret used
// as a "public key") could be accepted. Issuer and exp are required too.
//
// The returned error wraps ErrTokenExpired or ErrTokenInvalid.
func (s *TokenService) Resolve(tokenStr string) (Identity, error) {
	var c Claims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid || c.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return Identity{UserID: c.Subject, Username: c.Username}, nil
}
