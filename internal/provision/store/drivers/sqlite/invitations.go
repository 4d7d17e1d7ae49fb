package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/domain"
)

type invitationsRepo struct {
	q queryer
}

const invitationColumns = `id, email, secret_hash, role, invited_by, created_at, expires_at, used, used_at`

func (r *invitationsRepo) GetByEmail(ctx context.Context, email string) (domain.Invitation, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE email = ?`, email)
	inv, err := scanInvitation(row)
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitationsRepo) Create(ctx context.Context, inv domain.Invitation) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO invitations (id, email, secret_hash, role, invited_by, created_at, expires_at, used, used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Email, inv.SecretHash, string(inv.Role), inv.InvitedBy,
		inv.CreatedAt.UTC(), inv.ExpiresAt.UTC(), inv.Used, mapOptionalTime(inv.UsedAt),
	)
	return mapConstraint(err)
}

func (r *invitationsRepo) MarkUsed(ctx context.Context, id string, at time.Time) error {
	return requireAffected(r.q.ExecContext(ctx,
		`UPDATE invitations SET used = 1, used_at = ? WHERE id = ?`, at.UTC(), id))
}

func (r *invitationsRepo) List(ctx context.Context) ([]domain.Invitation, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *invitationsRepo) Renew(ctx context.Context, id, secretHash string, expiresAt time.Time) error {
	return requireAffected(r.q.ExecContext(ctx,
		`UPDATE invitations SET secret_hash = ?, expires_at = ? WHERE id = ? AND used = 0`,
		secretHash, expiresAt.UTC(), id))
}

func (r *invitationsRepo) CountExpired(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM invitations WHERE used = 0 AND expires_at <= ?`, now.UTC(),
	).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInvitation(s scanner) (domain.Invitation, error) {
	var (
		inv    domain.Invitation
		role   string
		usedAt sql.NullTime
	)
	if err := s.Scan(&inv.ID, &inv.Email, &inv.SecretHash, &role, &inv.InvitedBy,
		&inv.CreatedAt, &inv.ExpiresAt, &inv.Used, &usedAt); err != nil {
		return domain.Invitation{}, err
	}
	inv.Role = domain.Role(role)
	inv.UsedAt = mapNullTimePtr(usedAt)
	return inv, nil
}
