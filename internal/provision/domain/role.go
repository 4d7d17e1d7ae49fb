package domain

import (
	"errors"
	"strings"
	"time"
)

// Role is the closed set of application roles.
type Role string

const (
	RoleMember     Role = "member"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

var ErrUnknownRole = errors.New("unknown role")

// ParseRole accepts the three known roles, case-insensitively and ignoring
// surrounding whitespace. A blank value is the default member role.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleMember:
		return RoleMember, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleSuperadmin:
		return RoleSuperadmin, nil
	}
	return "", ErrUnknownRole
}

func (r Role) String() string { return string(r) }

// CanManage reports whether r may assign target to another user. Admins
// manage members and admins; only superadmins hand out superadmin.
func (r Role) CanManage(target Role) bool {
	switch r {
	case RoleSuperadmin:
		return true
	case RoleAdmin:
		return target != RoleSuperadmin
	}
	return false
}

// RoleAssignment is the single effective role of a user.
type RoleAssignment struct {
	UserID     string
	Role       Role
	AssignedBy string
	AssignedAt time.Time
}
