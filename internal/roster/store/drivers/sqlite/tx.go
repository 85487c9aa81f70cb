package sqlite

import (
	"context"
	"database/sql"

	"github.com/koki-kondo/mind-status-app/internal/roster/store"
)

// txStore exposes the repositories bound to one open transaction. Services
// receive it as a store.Tx inside WithTx callbacks.
type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close leaves the pool alone; the owner of the transaction ends it.
func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(ctx context.Context) error { return nil }

// Tx refuses to open a second transaction on the same connection.
func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	return nil, sql.ErrTxDone
}

// WithTx joins the enclosing transaction, so helpers that open their own
// scope still commit or roll back together with the caller.
func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return fn(t)
}

func (t *txStore) Organizations() store.Organizations { return &organizationsRepo{db: t.tx} }
func (t *txStore) Members() store.Members             { return &membersRepo{db: t.tx} }
func (t *txStore) InviteTokens() store.InviteTokens   { return &inviteTokensRepo{db: t.tx} }
func (t *txStore) ImportRuns() store.ImportRuns       { return &importRunsRepo{db: t.tx} }

// ApplyMigrations is only meaningful on the root store.
func (t *txStore) ApplyMigrations() error { return nil }
