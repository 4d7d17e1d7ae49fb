package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/domain"
	"github.com/ppmkfriends/ppmkconnect/pkg/jwtx"
)

func newAuthService(t *testing.T, f *fixture) *AuthService {
	t.Helper()
	km, err := jwtx.NewEphemeralKeyManager("ppmk-test", []string{"provision"})
	require.NoError(t, err)
	return &AuthService{
		KeyManager: km,
		Store:      f.store,
		Issuer:     "ppmk-test",
		Audience:   []string{"provision"},
		AccessTTL:  time.Minute,
	}
}

func TestLoginFirstTimeFlow(t *testing.T) {
	f := newFixture(t)
	auth := newAuthService(t, f)
	ctx := context.Background()

	u := account("first@ppmk.my", "First Login")
	u.Role = "admin"
	res, err := f.batch.Run(ctx, []domain.AccountRequest{u}, testOperator)
	require.NoError(t, err)
	userID := res.Results[0].UserID

	_, err = auth.Login(ctx, "first@ppmk.my", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, "nobody@ppmk.my", u.Password)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	tok, err := auth.Login(ctx, "FIRST@ppmk.my", u.Password)
	require.NoError(t, err)
	require.True(t, tok.MustChangePassword)
	require.Equal(t, domain.RoleAdmin, tok.Role)
	require.Equal(t, 60, tok.ExpiresIn)

	claims, err := auth.KeyManager.Verifier.Verify(tok.AccessToken)
	require.NoError(t, err)
	require.Equal(t, userID, claims.Subject)
	require.Equal(t, "admin", claims.Role)
	require.True(t, claims.MustChangePassword)

	inv, err := f.store.Invitations().GetByEmail(ctx, "first@ppmk.my")
	require.NoError(t, err)
	require.True(t, inv.Used)
	require.NotNil(t, inv.UsedAt)

	require.ErrorIs(t, auth.ChangePassword(ctx, userID, u.Password, "short"), ErrWeakPassword)
	require.ErrorIs(t, auth.ChangePassword(ctx, userID, "wrong-password", "BrandNew#2024"), ErrInvalidCredentials)
	require.NoError(t, auth.ChangePassword(ctx, userID, u.Password, "BrandNew#2024"))

	tok, err = auth.Login(ctx, "first@ppmk.my", "BrandNew#2024")
	require.NoError(t, err)
	require.False(t, tok.MustChangePassword)
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	auth := newAuthService(t, f)
	ctx := context.Background()

	res, err := f.batch.Run(ctx, []domain.AccountRequest{account("me@ppmk.my", "Mei Ling")}, testOperator)
	require.NoError(t, err)

	me, err := auth.Me(ctx, res.Results[0].UserID)
	require.NoError(t, err)
	require.Equal(t, "me@ppmk.my", me.Identity.Email)
	require.Equal(t, domain.RoleMember, me.Role)
	require.NotNil(t, me.Profile)
	require.Equal(t, "me", me.Profile.Username)
	require.Equal(t, "Mei Ling", *me.Profile.Data.FullName)

	_, err = auth.Me(ctx, "missing")
	require.ErrorIs(t, err, ErrUserNotFound)
}
