package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/domain"
)

type repairTasksRepo struct {
	q queryer
}

func (r *repairTasksRepo) Enqueue(ctx context.Context, t domain.RepairTask) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO repair_tasks (id, user_id, kind, payload, attempts, last_error, next_attempt_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, string(t.Kind), t.Payload, t.Attempts, t.LastError,
		t.NextAttemptAt.UTC(), t.CreatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *repairTasksRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.RepairTask, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, user_id, kind, payload, attempts, last_error, next_attempt_at, created_at, done_at
		FROM repair_tasks
		WHERE done_at IS NULL AND next_attempt_at <= ?
		ORDER BY next_attempt_at, id
		LIMIT ?`, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RepairTask
	for rows.Next() {
		var (
			t      domain.RepairTask
			kind   string
			doneAt sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.UserID, &kind, &t.Payload, &t.Attempts, &t.LastError,
			&t.NextAttemptAt, &t.CreatedAt, &doneAt); err != nil {
			return nil, err
		}
		t.Kind = domain.RepairKind(kind)
		t.DoneAt = mapNullTimePtr(doneAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repairTasksRepo) MarkDone(ctx context.Context, id string, at time.Time) error {
	return requireAffected(r.q.ExecContext(ctx,
		`UPDATE repair_tasks SET done_at = ? WHERE id = ?`, at.UTC(), id))
}

func (r *repairTasksRepo) RecordFailure(ctx context.Context, id, lastErr string, next time.Time) error {
	return requireAffected(r.q.ExecContext(ctx, `
		UPDATE repair_tasks
		SET attempts = attempts + 1, last_error = ?, next_attempt_at = ?
		WHERE id = ?`, lastErr, next.UTC(), id))
}

func (r *repairTasksRepo) CountOpen(ctx context.Context) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM repair_tasks WHERE done_at IS NULL`).Scan(&n)
	return n, err
}
