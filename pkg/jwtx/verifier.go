package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates access tokens and returns their claims.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// EdDSAVerifier checks signature, issuer, audience and lifetime.
type EdDSAVerifier struct {
	Keys     *KeySet
	Issuer   string
	Audience []string
	Leeway   time.Duration

	// Now is overridable for tests.
	Now func() time.Time
}

func (v *EdDSAVerifier) Verify(raw string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	token, err := parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("jwtx: missing kid")
		}
		return v.Keys.Get(kid)
	})
	if err != nil {
		return Claims{}, fmt.Errorf("jwtx: parse or verify: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, errors.New("jwtx: invalid token claims")
	}

	now := time.Now().UTC()
	if v.Now != nil {
		now = v.Now()
	}

	if err := claims.ValidateIssuer(v.Issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateAudience(v.Audience); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(now, v.Leeway); err != nil {
		return Claims{}, err
	}
	return *claims, nil
}
