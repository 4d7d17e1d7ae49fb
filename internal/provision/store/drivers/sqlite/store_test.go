package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/domain"
	"github.com/ppmkfriends/ppmkconnect/internal/provision/store"
	"github.com/ppmkfriends/ppmkconnect/internal/provision/store/drivers/sqlite"
	"github.com/ppmkfriends/ppmkconnect/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func ptr(s string) *string { return &s }

func createIdentity(t *testing.T, s store.Store, email string) domain.Identity {
	t.Helper()
	now := time.Now().UTC()
	id := domain.Identity{
		ID:             idx.New().String(),
		Email:          email,
		PasswordHash:   "hash",
		EmailConfirmed: true,
		Username:       domain.UsernameFromEmail(email),
		DisplayName:    "Someone",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, s.Identities().Create(context.Background(), id))
	return id
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(context.Background()))
}

func TestInvitations(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	inv := domain.Invitation{
		ID:         idx.New().String(),
		Email:      "ali@example.com",
		SecretHash: "$argon2id$...",
		Role:       domain.RoleMember,
		InvitedBy:  "op1",
		CreatedAt:  now,
		ExpiresAt:  now.Add(domain.InvitationTTL),
	}
	require.NoError(t, s.Invitations().Create(ctx, inv))

	t.Run("lookup is case insensitive", func(t *testing.T) {
		got, err := s.Invitations().GetByEmail(ctx, "ALI@example.com")
		require.NoError(t, err)
		require.Equal(t, inv.ID, got.ID)
		require.Equal(t, domain.RoleMember, got.Role)
		require.True(t, got.ExpiresAt.Equal(inv.ExpiresAt))
		require.False(t, got.Used)
	})

	t.Run("one per email", func(t *testing.T) {
		dup := inv
		dup.ID = idx.New().String()
		dup.Email = "Ali@Example.com"
		require.ErrorIs(t, s.Invitations().Create(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := s.Invitations().GetByEmail(ctx, "nobody@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("mark used", func(t *testing.T) {
		require.NoError(t, s.Invitations().MarkUsed(ctx, inv.ID, now))
		got, err := s.Invitations().GetByEmail(ctx, inv.Email)
		require.NoError(t, err)
		require.True(t, got.Used)
		require.NotNil(t, got.UsedAt)

		require.ErrorIs(t, s.Invitations().MarkUsed(ctx, "nope", now), store.ErrNotFound)
	})
}

func TestInvitationsListAndExpiry(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Now().UTC()

	mk := func(email string, created time.Time, used bool) {
		require.NoError(t, s.Invitations().Create(ctx, domain.Invitation{
			ID:         idx.NewAt(created).String(),
			Email:      email,
			SecretHash: "h",
			Role:       domain.RoleMember,
			InvitedBy:  "op",
			CreatedAt:  created,
			ExpiresAt:  created.Add(domain.InvitationTTL),
			Used:       used,
		}))
	}
	mk("old@example.com", now.Add(-40*24*time.Hour), false)
	mk("oldused@example.com", now.Add(-39*24*time.Hour), true)
	mk("new@example.com", now, false)

	list, err := s.Invitations().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "new@example.com", list[0].Email)

	n, err := s.Invitations().CountExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	old, err := s.Invitations().GetByEmail(ctx, "old@example.com")
	require.NoError(t, err)

	renewed := now.Add(domain.InvitationTTL)
	require.NoError(t, s.Invitations().Renew(ctx, old.ID, "h2", renewed))
	old, err = s.Invitations().GetByEmail(ctx, "old@example.com")
	require.NoError(t, err)
	require.Equal(t, "h2", old.SecretHash)
	require.False(t, old.Expired(now))

	used, err := s.Invitations().GetByEmail(ctx, "oldused@example.com")
	require.NoError(t, err)
	require.ErrorIs(t, s.Invitations().Renew(ctx, used.ID, "h3", renewed), store.ErrNotFound)

	n, err = s.Invitations().CountExpired(ctx, now)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestIdentities(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	empty, err := s.Identities().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	id := createIdentity(t, s, "siti@example.com")

	dup := id
	dup.ID = idx.New().String()
	require.ErrorIs(t, s.Identities().Create(ctx, dup), store.ErrAlreadyExists)

	got, err := s.Identities().GetByEmail(ctx, "SITI@example.com")
	require.NoError(t, err)
	require.Equal(t, id.ID, got.ID)
	require.True(t, got.EmailConfirmed)
	require.Equal(t, "siti", got.Username)

	require.NoError(t, s.Identities().UpdatePasswordHash(ctx, id.ID, "new-hash", time.Now()))
	got, err = s.Identities().GetByID(ctx, id.ID)
	require.NoError(t, err)
	require.Equal(t, "new-hash", got.PasswordHash)

	empty, err = s.Identities().IsEmpty(ctx)
	require.NoError(t, err)
	require.False(t, empty)
}

func TestProfilesUpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Now().UTC()

	a := createIdentity(t, s, "ali@example.com")
	b := createIdentity(t, s, "mei@example.com")

	p := domain.Profile{
		UserID:             a.ID,
		Username:           "ali",
		DisplayName:        "Ali Hassan",
		Email:              a.Email,
		MustChangePassword: true,
		Data: domain.ProfileData{
			FullName:       ptr("Ali Hassan"),
			StudyCourse:    ptr("Mechanical Engineering"),
			TelephoneKorea: ptr("010-1234-5678"),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.Profiles().Upsert(ctx, p))

	got, err := s.Profiles().Get(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, got.MustChangePassword)
	require.Equal(t, "Mechanical Engineering", *got.Data.StudyCourse)
	require.Nil(t, got.Data.Gender, "absent fields stay absent")

	// Upsert replaces in place.
	p.DisplayName = "Ali H."
	p.Data.Gender = ptr("male")
	require.NoError(t, s.Profiles().Upsert(ctx, p))
	got, err = s.Profiles().Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "Ali H.", got.DisplayName)
	require.Equal(t, "male", *got.Data.Gender)

	require.NoError(t, s.Profiles().Upsert(ctx, domain.Profile{
		UserID: b.ID, Username: "mei", DisplayName: "Mei Ling", Email: b.Email,
		CreatedAt: now.Add(time.Second), UpdatedAt: now.Add(time.Second),
	}))
	require.NoError(t, s.Roles().Assign(ctx, domain.RoleAssignment{UserID: b.ID, Role: domain.RoleAdmin, AssignedBy: "op", AssignedAt: now}))

	all, err := s.Profiles().Search(ctx, "", 50)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, b.ID, all[0].Profile.UserID)
	require.Equal(t, domain.RoleAdmin, all[0].Role)
	require.Equal(t, domain.RoleMember, all[1].Role, "no assignment reads as member")

	byCourse, err := s.Profiles().Search(ctx, "mechanical", 50)
	require.NoError(t, err)
	require.Len(t, byCourse, 1)
	require.Equal(t, a.ID, byCourse[0].Profile.UserID)

	byRole, err := s.Profiles().Search(ctx, "admin", 50)
	require.NoError(t, err)
	require.Len(t, byRole, 1)
	require.Equal(t, b.ID, byRole[0].Profile.UserID)

	wildcard, err := s.Profiles().Search(ctx, "%", 50)
	require.NoError(t, err)
	require.Empty(t, wildcard)

	require.NoError(t, s.Profiles().SetMustChangePassword(ctx, a.ID, false, now))
	got, err = s.Profiles().Get(ctx, a.ID)
	require.NoError(t, err)
	require.False(t, got.MustChangePassword)
}

func TestRolesAssignReplaces(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	id := createIdentity(t, s, "x@example.com")
	now := time.Now().UTC()

	require.NoError(t, s.Roles().Assign(ctx, domain.RoleAssignment{UserID: id.ID, Role: domain.RoleMember, AssignedBy: "op1", AssignedAt: now}))
	require.NoError(t, s.Roles().Assign(ctx, domain.RoleAssignment{UserID: id.ID, Role: domain.RoleAdmin, AssignedBy: "op2", AssignedAt: now}))

	got, err := s.Roles().Get(ctx, id.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, got.Role)
	require.Equal(t, "op2", got.AssignedBy)

	_, err = s.Roles().Get(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateIfAbsentKeepsExistingRows(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	id := createIdentity(t, s, "y@example.com")
	now := time.Now().UTC()

	require.NoError(t, s.Roles().AssignIfAbsent(ctx, domain.RoleAssignment{UserID: id.ID, Role: domain.RoleMember, AssignedBy: "op1", AssignedAt: now}))
	require.NoError(t, s.Roles().Assign(ctx, domain.RoleAssignment{UserID: id.ID, Role: domain.RoleAdmin, AssignedBy: "op2", AssignedAt: now}))
	require.NoError(t, s.Roles().AssignIfAbsent(ctx, domain.RoleAssignment{UserID: id.ID, Role: domain.RoleMember, AssignedBy: "op1", AssignedAt: now}))

	got, err := s.Roles().Get(ctx, id.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, got.Role)

	p := domain.Profile{UserID: id.ID, Username: "y", DisplayName: "Yusof", Email: id.Email, MustChangePassword: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.Profiles().CreateIfAbsent(ctx, p))
	require.NoError(t, s.Profiles().SetMustChangePassword(ctx, id.ID, false, now))

	p.DisplayName = "Stale"
	require.NoError(t, s.Profiles().CreateIfAbsent(ctx, p))
	profile, err := s.Profiles().Get(ctx, id.ID)
	require.NoError(t, err)
	require.Equal(t, "Yusof", profile.DisplayName)
	require.False(t, profile.MustChangePassword)
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	id := createIdentity(t, s, "tx@example.com")
	now := time.Now().UTC()

	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Profiles().Upsert(ctx, domain.Profile{UserID: id.ID, Username: "tx", DisplayName: "Tx", Email: id.Email, CreatedAt: now, UpdatedAt: now}))
		// Unknown role violates the CHECK constraint and aborts the whole tx.
		return tx.Roles().Assign(ctx, domain.RoleAssignment{UserID: id.ID, Role: "owner", AssignedBy: "op", AssignedAt: now})
	})
	require.Error(t, err)

	_, err = s.Profiles().Get(ctx, id.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRepairTasks(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	id := createIdentity(t, s, "r@example.com")
	now := time.Now().UTC()

	task := domain.RepairTask{
		ID:            idx.New().String(),
		UserID:        id.ID,
		Kind:          domain.RepairProfile,
		Payload:       []byte(`{"profile":{}}`),
		NextAttemptAt: now,
		CreatedAt:     now,
	}
	require.NoError(t, s.RepairTasks().Enqueue(ctx, task))

	due, err := s.RepairTasks().ListDue(ctx, now.Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, domain.RepairProfile, due[0].Kind)
	require.JSONEq(t, `{"profile":{}}`, string(due[0].Payload))

	require.NoError(t, s.RepairTasks().RecordFailure(ctx, task.ID, "boom", now.Add(time.Hour)))
	due, err = s.RepairTasks().ListDue(ctx, now.Add(time.Second), 10)
	require.NoError(t, err)
	require.Empty(t, due)

	due, err = s.RepairTasks().ListDue(ctx, now.Add(2*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, 1, due[0].Attempts)
	require.Equal(t, "boom", due[0].LastError)

	open, err := s.RepairTasks().CountOpen(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, open)

	require.NoError(t, s.RepairTasks().MarkDone(ctx, task.ID, now))
	open, err = s.RepairTasks().CountOpen(ctx)
	require.NoError(t, err)
	require.Zero(t, open)
}
