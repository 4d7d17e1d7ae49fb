package jwtx

import (
	"crypto/ed25519"
	"errors"
	"sync"
)

var ErrNoKey = errors.New("jwtx: key not found")

// KeySet holds the public keys tokens may be verified against.
type KeySet struct {
	mu   sync.RWMutex
	jwks JWKS
	pub  map[string]ed25519.PublicKey
}

func NewKeySet() *KeySet {
	return &KeySet{pub: make(map[string]ed25519.PublicKey)}
}

func (k *KeySet) Add(j JWK) error {
	pub, err := j.PublicKey()
	if err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pub[j.Kid] = pub
	k.jwks.Keys = append(k.jwks.Keys, j)
	return nil
}

func (k *KeySet) Get(kid string) (ed25519.PublicKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if pub, ok := k.pub[kid]; ok {
		return pub, nil
	}
	return nil, ErrNoKey
}

// JWKS returns a copy suitable for serving.
func (k *KeySet) JWKS() JWKS {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := JWKS{Keys: make([]JWK, len(k.jwks.Keys))}
	copy(out.Keys, k.jwks.Keys)
	return out
}

func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.pub) > 0
}
