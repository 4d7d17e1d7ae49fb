package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/domain"
	"github.com/ppmkfriends/ppmkconnect/internal/provision/store"
	"github.com/ppmkfriends/ppmkconnect/pkg/cryptox"
	"github.com/ppmkfriends/ppmkconnect/pkg/idx"
)

// IdentityProvider creates accounts in the identity directory. It is the
// only non-idempotent step of provisioning and is never retried.
type IdentityProvider interface {
	CreateUser(ctx context.Context, u domain.NewIdentity) (userID string, err error)
}

// DirectoryIdentityProvider keeps identities in the service's own store.
type DirectoryIdentityProvider struct {
	Store store.Store
}

func (p *DirectoryIdentityProvider) CreateUser(ctx context.Context, u domain.NewIdentity) (string, error) {
	hash, err := cryptox.HashPassword(u.Password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	id := domain.Identity{
		ID:             idx.New().String(),
		Email:          u.Email,
		PasswordHash:   hash,
		EmailConfirmed: u.EmailConfirmed,
		Username:       u.Username,
		DisplayName:    u.DisplayName,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := p.Store.Identities().Create(ctx, id); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return "", ErrEmailTaken
		}
		return "", err
	}
	return id.ID, nil
}
