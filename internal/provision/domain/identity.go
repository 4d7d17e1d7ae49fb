package domain

import (
	"strings"
	"time"
)

// Identity is an account in the identity directory.
type Identity struct {
	ID             string
	Email          string
	PasswordHash   string
	EmailConfirmed bool
	Username       string
	DisplayName    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewIdentity is the input to identity creation.
type NewIdentity struct {
	Email          string
	Password       string
	EmailConfirmed bool
	Username       string
	DisplayName    string
}

// UsernameFromEmail returns the local part of an address.
func UsernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
