package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/domain"
	"github.com/ppmkfriends/ppmkconnect/internal/provision/store"
	"github.com/ppmkfriends/ppmkconnect/pkg/slogx"
)

const MaxListUsers = 500

type UserService struct {
	Store store.Store
}

// UpdateRole replaces the target's role. The operator must be able to manage
// both the target's current role and the requested one.
func (s *UserService) UpdateRole(ctx context.Context, operatorID string, operatorRole domain.Role, targetID, role string) error {
	next, err := domain.ParseRole(role)
	if err != nil || strings.TrimSpace(role) == "" {
		return ErrInvalidRole
	}
	if !operatorRole.CanManage(next) {
		return ErrForbiddenRole
	}

	now := time.Now().UTC()
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Identities().GetByID(ctx, targetID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		current := domain.RoleMember
		a, err := tx.Roles().Get(ctx, targetID)
		switch {
		case err == nil:
			current = a.Role
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
		if !operatorRole.CanManage(current) {
			return ErrForbiddenRole
		}

		return tx.Roles().Assign(ctx, domain.RoleAssignment{
			UserID:     targetID,
			Role:       next,
			AssignedBy: operatorID,
			AssignedAt: now,
		})
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("role updated",
		slog.String("user_id", targetID),
		slog.String("role", next.String()),
	)
	return nil
}

// List returns members matching query, newest first.
func (s *UserService) List(ctx context.Context, query string) ([]domain.Member, error) {
	return s.Store.Profiles().Search(ctx, query, MaxListUsers)
}

func (s *UserService) ListInvitations(ctx context.Context) ([]domain.Invitation, error) {
	return s.Store.Invitations().List(ctx)
}
