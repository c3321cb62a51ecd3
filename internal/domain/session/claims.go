package session

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Claims mirrors the payload the API signs into its bearer tokens.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// ParseClaims decodes the payload of a JWT without verifying its signature.
// The result is for display only; the server remains the authority on
// whether a token is valid.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token claims: %w", err)
	}
	return claims, nil
}

// ExpiresAt returns the token expiry, or the zero time if the token carries
// none or is not a JWT.
func (s Session) ExpiresAt() time.Time {
	if s.Token == "" {
		return time.Time{}
	}
	claims, err := ParseClaims(s.Token)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// Fingerprint returns a short non-reversible identifier for a token,
// suitable for logs.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	return strconv.FormatUint(xxhash.Sum64String(token), 16)
}
