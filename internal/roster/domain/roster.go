package domain

import "time"

// ValidatedRow is a roster row that passed schema checks. Fields lists the
// allowed columns the row carried; Profile holds their coerced values.
type ValidatedRow struct {
	Email   string
	Fields  FieldSet
	Profile Profile
}

// RowFailure is one rejected row. Email is nil when the row had none.
type RowFailure struct {
	Row   int
	Email *string
	Error string
}

// BatchReport aggregates one import. Skipped empty rows are not counted.
// Interrupted marks a report cut short before the last row.
type BatchReport struct {
	SuccessCount int
	ErrorCount   int
	Errors       []RowFailure
	Interrupted  bool
}

// Fail records a rejected row.
func (r *BatchReport) Fail(row int, email, reason string) {
	f := RowFailure{Row: row, Error: reason}
	if email != "" {
		f.Email = &email
	}
	r.Errors = append(r.Errors, f)
	r.ErrorCount++
}

// ImportRun is the audit record of a finished import.
type ImportRun struct {
	ID             string
	OrganizationID string
	ActorID        string
	Filename       string
	SuccessCount   int
	ErrorCount     int
	StartedAt      time.Time
	FinishedAt     time.Time
}
