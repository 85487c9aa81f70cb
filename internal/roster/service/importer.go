package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/koki-kondo/mind-status-app/internal/roster/domain"
	"github.com/koki-kondo/mind-status-app/internal/roster/normalize"
	"github.com/koki-kondo/mind-status-app/internal/roster/notify"
	"github.com/koki-kondo/mind-status-app/internal/roster/schema"
	"github.com/koki-kondo/mind-status-app/internal/roster/sheet"
	"github.com/koki-kondo/mind-status-app/internal/roster/store"
	"github.com/koki-kondo/mind-status-app/pkg/idx"
	"github.com/koki-kondo/mind-status-app/pkg/slogx"
)

var (
	ErrOrganizationNotFound = errors.New("organization not found")
	// ErrImportInterrupted comes with a partial report. Rows listed in it
	// are committed; rows after them were never read.
	ErrImportInterrupted = errors.New("import interrupted")
)

// Row failure messages that are not an error's own text.
const (
	reasonDuplicateInFile = "duplicate email in file"
	reasonInternal        = "internal error, try this row again"
)

type ImportRequest struct {
	OrganizationID string
	ActorID        string
	Filename       string
	Body           io.Reader
}

// ImportService drives an uploaded roster through validation,
// reconciliation and invitation one row at a time. A failing row is
// recorded in the report and never stops the rows after it.
type ImportService struct {
	Store       store.Store
	Reconciler  *Reconciler
	Invites     *InviteService
	Notifier    notify.Notifier
	Limiter     *UploadLimiter
	Metrics     *ImportMetrics
	FrontendURL string
	Clock       Clock
}

// Import processes req. File level problems return a *sheet.FileFormatError
// before any row is touched; everything after that ends up in the report.
// A cancelled ctx stops between rows, still records the run and returns the
// partial report with ErrImportInterrupted.
func (s *ImportService) Import(ctx context.Context, req ImportRequest) (domain.BatchReport, error) {
	// 1. Admission
	if !s.Limiter.TryAcquire() {
		s.Metrics.IncRejected("busy")
		return domain.BatchReport{}, ErrTooManyImports
	}
	defer s.Limiter.Release()

	started := s.Clock.now()
	ctx = slogx.With(ctx,
		slog.String("org_id", req.OrganizationID),
		slog.String("filename", req.Filename),
	)
	log := slogx.FromContext(ctx)

	// 2. Resolve the organization kind
	org, err := s.Store.Organizations().GetOrganizationByID(ctx, req.OrganizationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.BatchReport{}, ErrOrganizationNotFound
		}
		return domain.BatchReport{}, err
	}

	// 3. Open the file
	format, err := sheet.DetectFormat(req.Filename)
	if err != nil {
		s.Metrics.IncRejected("format")
		return domain.BatchReport{}, err
	}
	rows, err := sheet.Open(req.Body, format, org.Kind)
	if err != nil {
		s.Metrics.IncRejected("format")
		return domain.BatchReport{}, err
	}
	defer rows.Close()

	// 4. Rows in file order
	report := domain.BatchReport{Errors: []domain.RowFailure{}}
	seen := make(map[string]int)
	var stopErr error
	for {
		if err := ctx.Err(); err != nil {
			report.Interrupted = true
			stopErr = fmt.Errorf("%w: %w", ErrImportInterrupted, err)
			log.Warn("roster import interrupted",
				slog.Int("success_count", report.SuccessCount),
				slog.Int("error_count", report.ErrorCount),
			)
			break
		}

		// The file is fully parsed by sheet.Open; only io.EOF ends the loop.
		row, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			stopErr = err
			break
		}

		s.processRow(ctx, org, row, seen, &report)
	}

	// 5. Audit record
	finished := s.Clock.now()
	run := domain.ImportRun{
		ID:             idx.NewAt(started).String(),
		OrganizationID: org.ID,
		ActorID:        req.ActorID,
		Filename:       req.Filename,
		SuccessCount:   report.SuccessCount,
		ErrorCount:     report.ErrorCount,
		StartedAt:      started,
		FinishedAt:     finished,
	}
	// Committed rows are audited even when the request was cancelled.
	if err := s.Store.ImportRuns().CreateImportRun(context.WithoutCancel(ctx), run); err != nil {
		log.Error("failed to record import run", slog.Any("error", err))
	}
	s.Metrics.ObserveDuration(finished.Sub(started))

	log.Info("roster import finished",
		slog.String("run_id", run.ID),
		slog.Int("success_count", report.SuccessCount),
		slog.Int("error_count", report.ErrorCount),
		slog.Duration("took", finished.Sub(started)),
	)
	return report, stopErr
}

func (s *ImportService) processRow(
	ctx context.Context,
	org domain.Organization,
	row sheet.Row,
	seen map[string]int,
	report *domain.BatchReport,
) {
	log := slogx.FromContext(ctx).With(slog.Int("row", row.Number))

	// 1. Schema
	validated, err := schema.Validate(org.Kind, row.Cells)
	if errors.Is(err, schema.ErrEmptyRow) {
		s.Metrics.IncRow(OutcomeSkipped)
		return
	}
	if err != nil {
		s.fail(report, row.Number, normalize.Email(row.Cells[string(domain.FieldEmail)]), err.Error())
		return
	}

	// 2. One row per email per file
	if first, ok := seen[validated.Email]; ok {
		log.Debug("duplicate email in file", slog.Int("first_row", first))
		s.fail(report, row.Number, validated.Email, reasonDuplicateInFile)
		return
	}
	seen[validated.Email] = row.Number

	// 3. Member and token commit together
	var (
		member  domain.Member
		created bool
		issued  IssuedToken
	)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		member, created, err = s.Reconciler.Reconcile(ctx, tx, org.ID, validated)
		if err != nil {
			return err
		}
		issued, err = s.Invites.IssueIn(ctx, tx, member.ID, domain.PurposeEnrollment)
		return err
	})
	if err != nil {
		reason := err.Error()
		if !errors.Is(err, ErrDuplicateActiveMember) && !errors.Is(err, ErrStoreConflict) {
			log.Error("roster row failed", slog.Any("error", err))
			reason = reasonInternal
		}
		s.fail(report, row.Number, validated.Email, reason)
		return
	}

	report.SuccessCount++
	s.Metrics.IncRow(OutcomeSuccess)
	log.Debug("roster row applied",
		slog.String("member_id", member.ID),
		slog.Bool("created", created),
	)

	// 4. Notify after commit; delivery failures stay out of the report
	err = s.Notifier.SendInvitation(ctx, notify.Message{
		To:           member.Email,
		Name:         member.Profile.FullName,
		Organization: org.Name,
		Link:         tokenLink(s.FrontendURL, SetPasswordPath, issued.Raw),
		ExpiresAt:    issued.Token.ExpiresAt,
	})
	s.Metrics.IncNotification("invitation", err)
	if err != nil {
		log.Warn("failed to send invitation",
			slog.String("member_id", member.ID),
			slog.Any("error", err),
		)
	}
}

func (s *ImportService) fail(report *domain.BatchReport, row int, email, reason string) {
	report.Fail(row, email, reason)
	s.Metrics.IncRow(OutcomeFailure)
}

// ListRuns returns the import history of an organization, newest first.
func (s *ImportService) ListRuns(ctx context.Context, orgID string, limit int) ([]domain.ImportRun, error) {
	return s.Store.ImportRuns().ListImportRuns(ctx, orgID, limit)
}

// Template renders the blank roster for the organization's kind.
func (s *ImportService) Template(ctx context.Context, orgID string, format sheet.Format) ([]byte, string, error) {
	org, err := s.Store.Organizations().GetOrganizationByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrOrganizationNotFound
		}
		return nil, "", err
	}

	body, err := sheet.Template(org.Kind, format)
	if err != nil {
		return nil, "", err
	}
	return body, sheet.TemplateFilename(org.Kind, format), nil
}
