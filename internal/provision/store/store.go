package store

import (
	"context"
	"errors"
	"time"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Sub-repositories are exposed as
// methods so that a Tx can hand out the same repositories bound to the
// transaction, and nested transactions are impossible by construction.
type Store interface {
	Invitations() Invitations
	Identities() Identities
	Profiles() Profiles
	Roles() Roles
	RepairTasks() RepairTasks

	ApplyMigrations() error

	// Tx starts a read/write transaction. The caller must Commit or Rollback.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Invitations interface {
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (domain.Invitation, error)

	// Create fails with ErrAlreadyExists when the email already has one.
	Create(ctx context.Context, inv domain.Invitation) error

	MarkUsed(ctx context.Context, id string, at time.Time) error

	// List returns all invitations, newest first.
	List(ctx context.Context) ([]domain.Invitation, error)

	// Renew replaces the secret hash and expiry of an unused invitation.
	Renew(ctx context.Context, id, secretHash string, expiresAt time.Time) error

	// CountExpired counts unused invitations past their expiry. Invitations
	// are kept as history and never deleted.
	CountExpired(ctx context.Context, now time.Time) (int, error)
}

type Identities interface {
	// Create fails with ErrAlreadyExists on a duplicate email.
	Create(ctx context.Context, id domain.Identity) error

	GetByID(ctx context.Context, id string) (domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (domain.Identity, error)
	UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error

	// IsEmpty reports whether the directory has no identities at all.
	IsEmpty(ctx context.Context) (bool, error)
}

type Profiles interface {
	// Upsert inserts or fully replaces the profile keyed by UserID.
	Upsert(ctx context.Context, p domain.Profile) error

	// CreateIfAbsent inserts p unless a profile for UserID already exists.
	CreateIfAbsent(ctx context.Context, p domain.Profile) error

	Get(ctx context.Context, userID string) (domain.Profile, error)
	SetMustChangePassword(ctx context.Context, userID string, v bool, at time.Time) error

	// Search lists profiles joined with their role, newest first. A blank
	// query lists everyone; otherwise it matches name, email, username,
	// course, level, phone numbers and role.
	Search(ctx context.Context, query string, limit int) ([]domain.Member, error)
}

type Roles interface {
	// Assign replaces the user's role assignment.
	Assign(ctx context.Context, a domain.RoleAssignment) error

	// AssignIfAbsent inserts a unless the user already has a role.
	AssignIfAbsent(ctx context.Context, a domain.RoleAssignment) error

	Get(ctx context.Context, userID string) (domain.RoleAssignment, error)
}

type RepairTasks interface {
	Enqueue(ctx context.Context, t domain.RepairTask) error

	// ListDue returns open tasks whose next attempt is at or before now,
	// oldest first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.RepairTask, error)

	MarkDone(ctx context.Context, id string, at time.Time) error

	// RecordFailure increments Attempts and schedules the next attempt.
	RecordFailure(ctx context.Context, id, lastErr string, next time.Time) error

	CountOpen(ctx context.Context) (int, error)
}
