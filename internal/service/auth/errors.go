package auth

import "errors"

// Token validation errors. The API maps all of them to 401 Unauthorized.
var (
	// ErrInvalidToken indicates a malformed token, a bad signature, a wrong
	// issuer or a missing subject.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken indicates the token's exp claim has passed.
	ErrExpiredToken = errors.New("token expired")

	// ErrTokenNotYetValid indicates the token's nbf claim is in the future.
	ErrTokenNotYetValid = errors.New("token not yet valid")
)
