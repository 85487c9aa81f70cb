package http

import (
	"github.com/koki-kondo/mind-status-app/internal/roster/domain"
	"github.com/koki-kondo/mind-status-app/pkg/rostersdk"
)

func memberInfo(m domain.Member) rostersdk.MemberInfo {
	return rostersdk.MemberInfo{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		Email:          m.Email,
		FullName:       m.Profile.FullName,
		Role:           string(m.Role),
		State:          string(m.State),
	}
}

func importReport(r domain.BatchReport) rostersdk.ImportReport {
	out := rostersdk.ImportReport{
		SuccessCount: r.SuccessCount,
		ErrorCount:   r.ErrorCount,
		Errors:       make([]rostersdk.RowError, len(r.Errors)),
		Interrupted:  r.Interrupted,
	}
	for i, e := range r.Errors {
		out.Errors[i] = rostersdk.RowError{Row: e.Row, Email: e.Email, Error: e.Error}
	}
	return out
}

func importRuns(runs []domain.ImportRun) []rostersdk.ImportRun {
	out := make([]rostersdk.ImportRun, len(runs))
	for i, r := range runs {
		out[i] = rostersdk.ImportRun{
			ID:           r.ID,
			ActorID:      r.ActorID,
			Filename:     r.Filename,
			SuccessCount: r.SuccessCount,
			ErrorCount:   r.ErrorCount,
			StartedAt:    r.StartedAt,
			FinishedAt:   r.FinishedAt,
		}
	}
	return out
}
