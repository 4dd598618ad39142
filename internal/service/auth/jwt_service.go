// Package auth verifies the bearer tokens that carry a caller's username and
// mints tokens for local development.
package auth

import (
	"context"
	"time"
)

// Claims is the identity extracted from a validated token.
type Claims struct {
	// Username is the sub claim.
	Username  string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}

// JWTService signs and validates HS256 bearer tokens.
type JWTService interface {
	// GenerateToken signs a token whose subject is username.
	GenerateToken(ctx context.Context, username string) (string, error)

	// ValidateToken verifies signature, expiry and issuer and returns the
	// claims. Failures are ErrInvalidToken, ErrExpiredToken or
	// ErrTokenNotYetValid.
	ValidateToken(ctx context.Context, token string) (*Claims, error)
}
