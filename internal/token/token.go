// Package token issues and verifies the signed session credential carried by
// the client in an HTTP-only cookie.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/pavelanni/quizdesk/internal/model"
)

// DefaultLifetime is the credential validity window used when none is
// configured.
const DefaultLifetime = 7 * 24 * time.Hour

// ErrInvalid is returned for missing, malformed, expired or badly signed
// credentials.
var ErrInvalid = errors.New("invalid or expired token")

// Claims is the payload embedded in the session credential. The role is a
// snapshot from issue time; handlers re-resolve the current role from the
// store on every request.
type Claims struct {
	UserID int64          `json:"uid"`
	Role   model.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies session credentials with an HMAC secret.
type Issuer struct {
	secret   []byte
	lifetime time.Duration
}

// NewIssuer creates an Issuer. Lifetime defaults to 7 days when zero.
func NewIssuer(secret string, lifetime time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("signing secret is required")
	}
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &Issuer{secret: []byte(secret), lifetime: lifetime}, nil
}

// Lifetime returns the validity window of issued credentials.
func (i *Issuer) Lifetime() time.Duration {
	return i.lifetime
}

// Issue creates a signed credential embedding the user's id and role.
func (i *Issuer) Issue(userID int64, role model.UserRole) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.lifetime)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a credential, returning its claims. Any
// failure (malformed, expired, wrong signature, wrong algorithm) collapses
// into ErrInvalid; the caller never learns why a token was rejected.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalid
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalid
	}
	return claims, nil
}
