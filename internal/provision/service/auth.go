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
	"github.com/ppmkfriends/ppmkconnect/pkg/jwtx"
	"github.com/ppmkfriends/ppmkconnect/pkg/slogx"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// TokenResult is an issued operator session.
type TokenResult struct {
	AccessToken        string
	ExpiresIn          int
	Role               domain.Role
	MustChangePassword bool
}

// Session is the signed-in user's view of their own account.
type Session struct {
	Identity domain.Identity
	Profile  *domain.Profile
	Role     domain.Role
}

type AuthService struct {
	KeyManager *jwtx.KeyManager
	Store      store.Store
	Issuer     string
	Audience   []string
	AccessTTL  time.Duration
}

// Login checks email and password and signs an access token carrying the
// user's effective role. The first successful login consumes a live
// invitation for the email.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenResult, error) {
	l := slogx.FromContext(ctx)
	email = strings.TrimSpace(email)

	id, err := s.Store.Identities().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Warn("login for unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := cryptox.VerifyPassword(password, id.PasswordHash); err != nil {
		l.Warn("login with wrong password", slog.String("user_id", id.ID))
		return nil, ErrInvalidCredentials
	}

	role, err := s.effectiveRole(ctx, id.ID)
	if err != nil {
		return nil, err
	}

	mustChange := false
	p, err := s.Store.Profiles().Get(ctx, id.ID)
	switch {
	case err == nil:
		mustChange = p.MustChangePassword
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	now := time.Now().UTC()
	s.consumeInvitation(ctx, id.Email, now)

	ttl := s.AccessTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultAccessTokenTTL
	}
	claims := jwtx.NewAccessClaims(id.ID, id.Email, role.String(), mustChange, s.Issuer, s.Audience, ttl, now)
	token, err := s.KeyManager.Signer.Sign(claims)
	if err != nil {
		l.Error("failed to sign access token", slog.Any("error", err))
		return nil, err
	}

	l.Info("user signed in", slog.String("user_id", id.ID), slog.String("role", role.String()))
	return &TokenResult{
		AccessToken:        token,
		ExpiresIn:          int(ttl.Seconds()),
		Role:               role,
		MustChangePassword: mustChange,
	}, nil
}

// effectiveRole falls back to member when no assignment exists yet.
func (s *AuthService) effectiveRole(ctx context.Context, userID string) (domain.Role, error) {
	a, err := s.Store.Roles().Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.RoleMember, nil
		}
		return "", err
	}
	return a.Role, nil
}

func (s *AuthService) consumeInvitation(ctx context.Context, email string, now time.Time) {
	inv, err := s.Store.Invitations().GetByEmail(ctx, email)
	if err != nil || inv.Used || inv.Expired(now) {
		return
	}
	if err := s.Store.Invitations().MarkUsed(ctx, inv.ID, now); err != nil {
		slogx.FromContext(ctx).Error("failed to mark invitation used", "invitation_id", inv.ID, "error", err)
	}
}

// ChangePassword replaces the password and clears the forced-change flag.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if len(next) < MinPasswordLength || len(next) > MaxPasswordLength || next == current {
		return ErrWeakPassword
	}

	id, err := s.Store.Identities().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if err := cryptox.VerifyPassword(current, id.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := cryptox.HashPassword(next)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Identities().UpdatePasswordHash(ctx, userID, hash, now); err != nil {
			return err
		}
		err := tx.Profiles().SetMustChangePassword(ctx, userID, false, now)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("password changed", slog.String("user_id", userID))
	return nil
}

// Me loads the caller's identity, profile and role. Profile is nil while a
// repair for the account is still pending.
func (s *AuthService) Me(ctx context.Context, userID string) (*Session, error) {
	id, err := s.Store.Identities().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	role, err := s.effectiveRole(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &Session{Identity: id, Role: role}
	p, err := s.Store.Profiles().Get(ctx, userID)
	switch {
	case err == nil:
		out.Profile = &p
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}
	return out, nil
}
