package sqlite

import (
	"context"

	"github.com/koki-kondo/mind-status-app/internal/roster/domain"
)

type organizationsRepo struct {
	db dbtx
}

func (r *organizationsRepo) CreateOrganization(ctx context.Context, o domain.Organization) error {
	created := stamp(o.CreatedAt)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO organizations (id, name, kind, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		o.ID, o.Name, string(o.Kind), toMillis(created), toMillis(created),
	)
	return mapConstraint(err)
}

func (r *organizationsRepo) GetOrganizationByID(ctx context.Context, id string) (domain.Organization, error) {
	var (
		o                domain.Organization
		kind             string
		created, updated int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, kind, created_at, updated_at FROM organizations WHERE id = ?`, id,
	).Scan(&o.ID, &o.Name, &kind, &created, &updated)
	if err != nil {
		return domain.Organization{}, mapNotFound(err)
	}

	o.Kind = domain.Kind(kind)
	o.CreatedAt = fromMillis(created)
	o.UpdatedAt = fromMillis(updated)
	return o, nil
}
