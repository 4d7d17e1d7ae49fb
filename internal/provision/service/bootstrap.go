package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/domain"
	"github.com/ppmkfriends/ppmkconnect/internal/provision/store"
	"github.com/ppmkfriends/ppmkconnect/pkg/cryptox"
	"github.com/ppmkfriends/ppmkconnect/pkg/idx"
	"github.com/ppmkfriends/ppmkconnect/pkg/slogx"
)

// BootstrapData describes the first superadmin.
type BootstrapData struct {
	Email    string
	Password string
	FullName string
}

type BootstrapService struct {
	Store store.Store
	Token string // pre-configured bootstrap token, empty disables bootstrap
}

func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	empty, err := s.Store.Identities().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// Bootstrap creates the first superadmin on an empty directory.
func (s *BootstrapService) Bootstrap(ctx context.Context, token string, req BootstrapData) (domain.Identity, error) {
	l := slogx.FromContext(ctx)

	if s.Token == "" {
		return domain.Identity{}, ErrBootstrapDisabled
	}
	if bootstrapped, err := s.IsBootstrapped(ctx); err != nil {
		return domain.Identity{}, err
	} else if bootstrapped {
		l.Warn("attempted bootstrap on already-bootstrapped system")
		return domain.Identity{}, ErrBootstrapAlready
	}
	if !cryptox.EqualTokens(token, s.Token) {
		l.Warn("unauthorized bootstrap attempt")
		return domain.Identity{}, ErrBootstrapUnauthorized
	}

	email := strings.TrimSpace(req.Email)
	fullName := strings.TrimSpace(req.FullName)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Identity{}, ErrInvalidCredentials
	}
	if len(req.Password) < MinPasswordLength || len(req.Password) > MaxPasswordLength {
		return domain.Identity{}, ErrWeakPassword
	}
	if fullName == "" {
		fullName = domain.UsernameFromEmail(email)
	}

	hash, err := cryptox.HashPassword(req.Password)
	if err != nil {
		l.Error("failed to hash superadmin password", slog.Any("error", err))
		return domain.Identity{}, err
	}

	now := time.Now().UTC()
	id := domain.Identity{
		ID:             idx.New().String(),
		Email:          email,
		PasswordHash:   hash,
		EmailConfirmed: true,
		Username:       domain.UsernameFromEmail(email),
		DisplayName:    fullName,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Identities().Create(ctx, id); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrBootstrapAlready
			}
			return err
		}
		if err := tx.Profiles().Upsert(ctx, domain.Profile{
			UserID:      id.ID,
			Username:    id.Username,
			DisplayName: fullName,
			Email:       email,
			Data:        domain.ProfileData{FullName: &fullName},
			CreatedAt:   now,
			UpdatedAt:   now,
		}); err != nil {
			return err
		}
		return tx.Roles().Assign(ctx, domain.RoleAssignment{
			UserID:     id.ID,
			Role:       domain.RoleSuperadmin,
			AssignedBy: id.ID,
			AssignedAt: now,
		})
	})
	if err != nil {
		l.Error("bootstrap failed", slog.Any("error", err))
		return domain.Identity{}, err
	}

	l.Info("successfully bootstrapped system", slog.String("user_id", id.ID))
	return id, nil
}
