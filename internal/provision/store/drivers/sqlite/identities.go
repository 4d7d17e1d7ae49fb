package sqlite

import (
	"context"
	"time"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/domain"
)

type identitiesRepo struct {
	q queryer
}

const identityColumns = `id, email, password_hash, email_confirmed, username, display_name, created_at, updated_at`

func (r *identitiesRepo) Create(ctx context.Context, id domain.Identity) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO identities (`+identityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id.ID, id.Email, id.PasswordHash, id.EmailConfirmed, id.Username, id.DisplayName,
		id.CreatedAt.UTC(), id.UpdatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *identitiesRepo) GetByID(ctx context.Context, id string) (domain.Identity, error) {
	return r.get(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = ?`, id)
}

func (r *identitiesRepo) GetByEmail(ctx context.Context, email string) (domain.Identity, error) {
	return r.get(ctx, `SELECT `+identityColumns+` FROM identities WHERE email = ?`, email)
}

func (r *identitiesRepo) get(ctx context.Context, query string, arg string) (domain.Identity, error) {
	var id domain.Identity
	err := r.q.QueryRowContext(ctx, query, arg).Scan(
		&id.ID, &id.Email, &id.PasswordHash, &id.EmailConfirmed,
		&id.Username, &id.DisplayName, &id.CreatedAt, &id.UpdatedAt,
	)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	return id, nil
}

func (r *identitiesRepo) UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error {
	return requireAffected(r.q.ExecContext(ctx,
		`UPDATE identities SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, at.UTC(), id))
}

func (r *identitiesRepo) IsEmpty(ctx context.Context) (bool, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM identities`).Scan(&n); err != nil {
		return false, err
	}
	return n == 0, nil
}
