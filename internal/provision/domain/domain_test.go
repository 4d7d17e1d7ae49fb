package domain_test

import (
	"testing"
	"time"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/domain"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    domain.Role
		wantErr bool
	}{
		{"", domain.RoleMember, false},
		{"  ", domain.RoleMember, false},
		{"member", domain.RoleMember, false},
		{"Admin", domain.RoleAdmin, false},
		{" superadmin ", domain.RoleSuperadmin, false},
		{"owner", "", true},
		{"members", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := domain.ParseRole(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrUnknownRole)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestCanManage(t *testing.T) {
	require.True(t, domain.RoleSuperadmin.CanManage(domain.RoleSuperadmin))
	require.True(t, domain.RoleAdmin.CanManage(domain.RoleAdmin))
	require.False(t, domain.RoleAdmin.CanManage(domain.RoleSuperadmin))
	require.False(t, domain.RoleMember.CanManage(domain.RoleMember))
}

func TestUsernameFromEmail(t *testing.T) {
	require.Equal(t, "ali", domain.UsernameFromEmail("ali@example.com"))
	require.Equal(t, "nodomain", domain.UsernameFromEmail("nodomain"))
}

func TestInvitationExpired(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	inv := domain.Invitation{CreatedAt: now, ExpiresAt: now.Add(domain.InvitationTTL)}

	require.False(t, inv.Expired(now.Add(29*24*time.Hour)))
	require.True(t, inv.Expired(now.Add(domain.InvitationTTL)))
}
