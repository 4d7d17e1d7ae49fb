package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL is how long an operator session token lives.
const DefaultAccessTokenTTL = 30 * time.Minute

var (
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrAudience    = errors.New("jwtx: audience mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// Claims carried by operator access tokens. The role is resolved once at
// login so handlers never look it up again mid-request.
type Claims struct {
	jwt.RegisteredClaims

	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`

	// MustChangePassword mirrors the profile flag at issue time so clients
	// can route straight to the password screen.
	MustChangePassword bool `json:"mcp,omitempty"`
}

// NewAccessClaims builds the claims for a freshly authenticated identity.
func NewAccessClaims(
	subject, email, role string,
	mustChangePassword bool,
	issuer string,
	audience []string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        newJTI(),
		},
		Email:              email,
		Role:               role,
		MustChangePassword: mustChangePassword,
	}
}

func newJTI() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" || c.Issuer == expected {
		return nil
	}
	return ErrIssuer
}

// ValidateAudience passes when any expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateExpiry checks exp and nbf against now, allowing leeway of skew.
func (c *Claims) ValidateExpiry(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
