// Package auth checks the shared-secret bearer credential on protected routes.
package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
)

// Sentinel errors for credential checks.
var (
	ErrEmptySecret         = errors.New("bearer secret is not configured")
	ErrMalformedCredential = errors.New("authorization header missing or not a bearer credential")
	ErrInvalidCredential   = errors.New("bearer token does not match")
)

const bearerScheme = "Bearer "

// Guard compares presented bearer tokens against one configured secret.
// It holds no per-request state.
type Guard struct {
	secret []byte
}

// NewGuard returns a Guard for secret. An empty secret is refused so that a
// misconfigured server never accepts every request.
func NewGuard(secret string) (*Guard, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Guard{secret: []byte(secret)}, nil
}

// Authorize checks an Authorization header value. The scheme is matched
// case-insensitively; the token is compared in constant time.
func (g *Guard) Authorize(header string) error {
	if len(header) < len(bearerScheme) || !strings.EqualFold(header[:len(bearerScheme)], bearerScheme) {
		return ErrMalformedCredential
	}
	token := header[len(bearerScheme):]
	if token == "" || subtle.ConstantTimeCompare([]byte(token), g.secret) != 1 {
		return ErrInvalidCredential
	}
	return nil
}
