package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/koki-kondo/mind-status-app/internal/roster/domain"
	"github.com/koki-kondo/mind-status-app/internal/roster/normalize"
	"github.com/koki-kondo/mind-status-app/internal/roster/store"
	"github.com/koki-kondo/mind-status-app/pkg/cryptox"
	"github.com/koki-kondo/mind-status-app/pkg/idx"
	"github.com/koki-kondo/mind-status-app/pkg/slogx"
)

var (
	// ErrDuplicateActiveMember means the email belongs to a member who has
	// already activated. Imports never touch such members.
	ErrDuplicateActiveMember = errors.New("duplicate email: member is already active")

	// ErrStoreConflict means another writer created the same email first.
	// Re-submitting the row will update the now existing member.
	ErrStoreConflict = errors.New("email was registered concurrently, retry this row")
)

// Reconciler maps one validated roster row onto the member store.
type Reconciler struct {
	Clock Clock
}

// Reconcile creates the member for row or refreshes a PENDING one. st is
// normally a transaction shared with the token issue that follows.
//
// Role, state and organization always come from here, never from the row.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	st store.Store,
	orgID string,
	row domain.ValidatedRow,
) (domain.Member, bool, error) {
	log := slogx.FromContext(ctx)
	now := r.Clock.now()

	// 1. Look up by canonical email inside the organization
	email := normalize.Email(row.Email)
	existing, err := st.Members().GetMemberByOrgAndEmail(ctx, orgID, email)
	if errors.Is(err, store.ErrNotFound) {
		m, err := r.create(ctx, st, orgID, email, row)
		return m, true, err
	}
	if err != nil {
		return domain.Member{}, false, err
	}

	// 2. Active members are never altered by an import
	if existing.State != domain.StatePending {
		log.Info("roster row matches active member",
			slog.String("member_id", existing.ID),
		)
		return domain.Member{}, false, ErrDuplicateActiveMember
	}

	// 3. Partial update of the pending member
	updated := existing
	updated.Profile.Apply(row)
	updated.Role = domain.RoleMember
	updated.State = domain.StatePending
	updated.ActivatedAt = nil
	updated.UpdatedAt = now
	if err := st.Members().UpdateMember(ctx, updated); err != nil {
		return domain.Member{}, false, err
	}

	// 4. Links sent before the correction must stop working
	n, err := st.InviteTokens().InvalidateOutstanding(ctx, existing.ID, now)
	if err != nil {
		return domain.Member{}, false, err
	}

	log.Debug("pending member updated from roster",
		slog.String("member_id", existing.ID),
		slog.Int64("invalidated_tokens", n),
	)
	return updated, false, nil
}

func (r *Reconciler) create(
	ctx context.Context,
	st store.Store,
	orgID, email string,
	row domain.ValidatedRow,
) (domain.Member, error) {
	// The member never learns this credential; consuming the invitation
	// replaces it.
	credential, err := cryptox.UnusableCredential()
	if err != nil {
		return domain.Member{}, err
	}

	now := r.Clock.now()
	m := domain.Member{
		ID:             idx.New().String(),
		OrganizationID: orgID,
		Email:          email,
		Role:           domain.RoleMember,
		State:          domain.StatePending,
		PasswordHash:   credential,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.Profile.Apply(row)

	if err := st.Members().CreateMember(ctx, m); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Member{}, ErrStoreConflict
		}
		return domain.Member{}, err
	}

	slogx.FromContext(ctx).Debug("member created from roster", slog.String("member_id", m.ID))
	return m, nil
}
