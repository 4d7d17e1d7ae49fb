package sqlite

import (
	"context"
	"database/sql"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the outer Store owns the database handle.
func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(ctx context.Context) error { return nil }

// Nested transactions are not supported.
func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) ApplyMigrations() error { return nil }

func (t *txStore) Invitations() store.Invitations { return &invitationsRepo{q: t.tx} }
func (t *txStore) Identities() store.Identities   { return &identitiesRepo{q: t.tx} }
func (t *txStore) Profiles() store.Profiles       { return &profilesRepo{q: t.tx} }
func (t *txStore) Roles() store.Roles             { return &rolesRepo{q: t.tx} }
func (t *txStore) RepairTasks() store.RepairTasks { return &repairTasksRepo{q: t.tx} }
