package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry decodes the exp claim of a JWT without verifying its
// signature. Verification belongs to the backend; the client only uses
// expiry to decide whether a stored token is worth presenting at all.
// Tokens without an exp claim report a zero time and are treated as
// unexpired.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}

// TokenExpired reports whether the token's exp claim is in the past. A
// token that cannot be parsed is treated as expired.
func TokenExpired(token string) bool {
	at, err := TokenExpiry(token)
	if err != nil {
		return true
	}
	return !at.IsZero() && time.Now().After(at)
}
