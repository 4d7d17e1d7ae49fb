package jwtx

import (
	"fmt"

	"github.com/ppmkfriends/ppmkconnect/pkg/cryptox"
)

// KeyManager owns the in-memory signing key of one service instance. Keys
// are generated at start-up and never persisted, so a restart signs every
// operator out.
type KeyManager struct {
	Signer   *Signer
	KeySet   *KeySet
	Verifier Verifier
}

func NewEphemeralKeyManager(issuer string, audience []string) (*KeyManager, error) {
	if issuer == "" {
		return nil, fmt.Errorf("jwtx: issuer is required")
	}

	pemKey, err := cryptox.GenerateEd25519Key()
	if err != nil {
		return nil, err
	}

	kid, err := cryptox.GenerateToken(12)
	if err != nil {
		return nil, fmt.Errorf("jwtx: key id: %w", err)
	}

	signer, err := NewSigner(kid, pemKey)
	if err != nil {
		return nil, err
	}

	keys := NewKeySet()
	if err := keys.Add(signer.PublicJWK()); err != nil {
		return nil, err
	}

	return &KeyManager{
		Signer: signer,
		KeySet: keys,
		Verifier: &EdDSAVerifier{
			Keys:     keys,
			Issuer:   issuer,
			Audience: audience,
		},
	}, nil
}
