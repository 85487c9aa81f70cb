package sqlite

import (
	"context"
	"time"

	"github.com/koki-kondo/mind-status-app/internal/roster/domain"
)

type importRunsRepo struct {
	db dbtx
}

func (r *importRunsRepo) CreateImportRun(ctx context.Context, run domain.ImportRun) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO import_runs
			(id, organization_id, actor_id, filename, success_count, error_count, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.OrganizationID, run.ActorID, run.Filename,
		run.SuccessCount, run.ErrorCount, toMillis(run.StartedAt), toMillis(stamp(run.FinishedAt)),
	)
	return mapConstraint(err)
}

func (r *importRunsRepo) ListImportRuns(ctx context.Context, orgID string, limit int) ([]domain.ImportRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, organization_id, actor_id, filename, success_count, error_count, started_at, finished_at
		FROM import_runs WHERE organization_id = ?
		ORDER BY started_at DESC, id DESC LIMIT ?`,
		orgID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.ImportRun{}
	for rows.Next() {
		var (
			run               domain.ImportRun
			started, finished int64
		)
		if err := rows.Scan(
			&run.ID, &run.OrganizationID, &run.ActorID, &run.Filename,
			&run.SuccessCount, &run.ErrorCount, &started, &finished,
		); err != nil {
			return nil, err
		}
		run.StartedAt = fromMillis(started)
		run.FinishedAt = fromMillis(finished)
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *importRunsRepo) DeleteImportRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM import_runs WHERE finished_at < ?`, toMillis(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
