package sqlite

import (
	"context"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/domain"
)

type rolesRepo struct {
	q queryer
}

func (r *rolesRepo) Assign(ctx context.Context, a domain.RoleAssignment) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role, assigned_by, assigned_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			role = excluded.role,
			assigned_by = excluded.assigned_by,
			assigned_at = excluded.assigned_at`,
		a.UserID, string(a.Role), a.AssignedBy, a.AssignedAt.UTC(),
	)
	return err
}

func (r *rolesRepo) AssignIfAbsent(ctx context.Context, a domain.RoleAssignment) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role, assigned_by, assigned_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING`,
		a.UserID, string(a.Role), a.AssignedBy, a.AssignedAt.UTC(),
	)
	return err
}

func (r *rolesRepo) Get(ctx context.Context, userID string) (domain.RoleAssignment, error) {
	var (
		a    domain.RoleAssignment
		role string
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT user_id, role, assigned_by, assigned_at FROM user_roles WHERE user_id = ?`, userID,
	).Scan(&a.UserID, &role, &a.AssignedBy, &a.AssignedAt)
	if err != nil {
		return domain.RoleAssignment{}, mapNotFound(err)
	}
	a.Role = domain.Role(role)
	return a, nil
}
