package domain

import "time"

// InvitationTTL is how long an unused invitation stays valid.
const InvitationTTL = 30 * 24 * time.Hour

// Invitation is the pre-authorization record created before an identity is
// provisioned. There is at most one per email.
type Invitation struct {
	ID         string
	Email      string
	SecretHash string // argon2id, never the plaintext
	Role       Role
	InvitedBy  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Used       bool
	UsedAt     *time.Time
}

func (i Invitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
