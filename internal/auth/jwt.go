// Package auth handles session tokens, password hashing, Google identity
// verification and the authentication middleware.
//
// SESSION MODEL:
// Sessions are stateless. After register/login the client receives an HS256
// JWT and sends it back as "Authorization: Bearer <token>". Nothing is stored
// server-side; a token stays valid until it expires, even after logout.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// Issuer is stamped into every token and required on validation.
	Issuer = "teyvat-companion"

	// DefaultTokenTTL is used when NewTokenService receives a zero TTL.
	DefaultTokenTTL = 24 * time.Hour
)

// ErrTokenExpired lets callers distinguish expiry from other failures
// (the HTTP layer answers both with the same 401).
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService creates and validates session tokens.
//
// The secret is a []byte because that's what the HMAC functions take; it must
// be at least 16 characters. In production it comes from JWT_SECRET.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. ttl <= 0 selects DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL reports how long freshly generated tokens stay valid.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Generate creates a signed token for userID with the configured lifetime.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration creates a token with a custom lifetime. A negative d
// produces an already-expired token, which is how the tests exercise expiry.
//
// CLAIMS:
//   - sub: the user's internal ID (the only thing the server needs back)
//   - jti: random UUID, so two tokens minted in the same second still differ
//   - iat/exp: issue and expiry times
//   - iss: Issuer
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()

	c := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		Issuer:    Issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses tokenStr and returns the user ID from its subject.
//
// It fails for empty or malformed input, a bad signature, any algorithm
// other than HS256 (including "none"), a foreign issuer, a missing or past
// expiry, and an empty subject.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid {
		return "", errors.New("auth: invalid token claims")
	}
	if c.Subject == "" {
		return "", errors.New("auth: token has no subject")
	}
	return c.Subject, nil
}
