package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/koki-kondo/mind-status-app/internal/roster/domain"
)

const inviteTokenColumns = `id, member_id, token_hash, purpose, expires_at, used,
	consumed_at, invalidated_at, created_at, updated_at`

type inviteTokensRepo struct {
	db dbtx
}

func (r *inviteTokensRepo) CreateInviteToken(ctx context.Context, t domain.InviteToken) error {
	created := stamp(t.CreatedAt)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invite_tokens (`+inviteTokenColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.MemberID, t.TokenHash, string(t.Purpose), toMillis(t.ExpiresAt), t.Used,
		mapOptionalTime(t.ConsumedAt), mapOptionalTime(t.InvalidatedAt), toMillis(created), toMillis(created),
	)
	return mapConstraint(err)
}

func (r *inviteTokensRepo) GetInviteTokenByHash(ctx context.Context, hash string) (domain.InviteToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+inviteTokenColumns+` FROM invite_tokens WHERE token_hash = ?`, hash,
	)
	t, err := scanInviteToken(row)
	if err != nil {
		return domain.InviteToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *inviteTokensRepo) ListInviteTokensByMember(
	ctx context.Context,
	memberID string,
) ([]domain.InviteToken, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+inviteTokenColumns+` FROM invite_tokens WHERE member_id = ? ORDER BY created_at, id`,
		memberID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.InviteToken
	for rows.Next() {
		t, err := scanInviteToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *inviteTokensRepo) InvalidateOutstanding(
	ctx context.Context,
	memberID string,
	now time.Time,
) (int64, error) {
	now = stamp(now)
	res, err := r.db.ExecContext(ctx,
		`UPDATE invite_tokens SET used = 1, invalidated_at = ?, updated_at = ?
		WHERE member_id = ? AND used = 0`,
		toMillis(now), toMillis(now), memberID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ConsumeInviteToken is a compare-and-set: of two concurrent callers only
// one sees its UPDATE touch the row.
func (r *inviteTokensRepo) ConsumeInviteToken(ctx context.Context, id string, now time.Time) error {
	now = stamp(now)
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE invite_tokens SET used = 1, consumed_at = ?, updated_at = ?
		WHERE id = ? AND used = 0 AND expires_at > ?`,
		toMillis(now), toMillis(now), id, toMillis(now),
	))
}

func scanInviteToken(row scanner) (domain.InviteToken, error) {
	var (
		t                     domain.InviteToken
		purpose               string
		expires               int64
		consumed, invalidated sql.NullInt64
		created, updated      int64
	)
	err := row.Scan(
		&t.ID, &t.MemberID, &t.TokenHash, &purpose, &expires, &t.Used,
		&consumed, &invalidated, &created, &updated,
	)
	if err != nil {
		return domain.InviteToken{}, err
	}

	t.Purpose = domain.InvitePurpose(purpose)
	t.ExpiresAt = fromMillis(expires)
	t.ConsumedAt = mapNullTimePtr(consumed)
	t.InvalidatedAt = mapNullTimePtr(invalidated)
	t.CreatedAt = fromMillis(created)
	t.UpdatedAt = fromMillis(updated)
	return t, nil
}
