package store

import (
	"context"
	"errors"
	"time"

	"github.com/koki-kondo/mind-status-app/internal/roster/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement this.
// Repositories hang off it as methods so a Tx-scoped Store can be handed
// to code that must not open a transaction of its own.
type Store interface {
	Organizations() Organizations
	Members() Members
	InviteTokens() InviteTokens
	ImportRuns() ImportRuns

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Organizations interface {
	// CreateOrganization inserts a new organization. A duplicate name
	// returns ErrAlreadyExists.
	CreateOrganization(ctx context.Context, o domain.Organization) error

	GetOrganizationByID(ctx context.Context, id string) (domain.Organization, error)
}

type Members interface {
	GetMemberByID(ctx context.Context, id string) (domain.Member, error)

	// GetMemberByOrgAndEmail looks up by the canonical email inside one
	// organization.
	GetMemberByOrgAndEmail(ctx context.Context, orgID, email string) (domain.Member, error)

	// ListActiveMembersByEmail returns every ACTIVE member with email across
	// all organizations, oldest first.
	ListActiveMembersByEmail(ctx context.Context, email string) ([]domain.Member, error)

	// CreateMember inserts a member. An email already present in the
	// organization returns ErrAlreadyExists.
	CreateMember(ctx context.Context, m domain.Member) error

	// UpdateMember rewrites role, state and profile and bumps updated_at.
	// Organization and email are immutable.
	UpdateMember(ctx context.Context, m domain.Member) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, memberID, hash string, now time.Time) error

	// ActivateMember flips a PENDING member to ACTIVE. It is a no-op for a
	// member that is already active.
	ActivateMember(ctx context.Context, memberID string, now time.Time) error
}

type InviteTokens interface {
	CreateInviteToken(ctx context.Context, t domain.InviteToken) error

	// GetInviteTokenByHash returns the token regardless of its state.
	GetInviteTokenByHash(ctx context.Context, hash string) (domain.InviteToken, error)

	// ListInviteTokensByMember returns all tokens of a member, oldest first.
	ListInviteTokensByMember(ctx context.Context, memberID string) ([]domain.InviteToken, error)

	// InvalidateOutstanding marks every unused token of the member used
	// without setting consumed_at. It returns how many rows changed.
	InvalidateOutstanding(ctx context.Context, memberID string, now time.Time) (int64, error)

	// ConsumeInviteToken marks the token used if and only if it is still
	// unused and unexpired at now. Losing that race returns ErrNotFound.
	ConsumeInviteToken(ctx context.Context, id string, now time.Time) error
}

type ImportRuns interface {
	CreateImportRun(ctx context.Context, r domain.ImportRun) error

	// ListImportRuns returns the newest runs of an organization first.
	ListImportRuns(ctx context.Context, orgID string, limit int) ([]domain.ImportRun, error)

	// DeleteImportRunsBefore removes runs that finished before cutoff.
	DeleteImportRunsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
