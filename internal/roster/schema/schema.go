// Package schema enforces the per-kind roster field rules on a single row.
package schema

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/koki-kondo/mind-status-app/internal/roster/domain"
	"github.com/koki-kondo/mind-status-app/internal/roster/normalize"
)

// Grade bounds for school rosters.
const (
	MinGrade = 1
	MaxGrade = 12
)

// ErrEmptyRow marks a row whose cells are all blank. Callers skip it.
var ErrEmptyRow = errors.New("schema: empty row")

// forbidden columns control privilege or lifecycle and are never accepted
// from a file.
var forbidden = []string{
	"id",
	"role",
	"organization",
	"organization_id",
	"is_staff",
	"is_superuser",
	"is_active",
	"is_activated",
	"activation_state",
	"password",
	"password_hash",
	"credential",
	"groups",
	"user_permissions",
	"created_at",
	"updated_at",
}

// IsForbidden reports whether key names a privileged column.
func IsForbidden(key string) bool { return slices.Contains(forbidden, key) }

// SecurityViolation is a row that tried to set privileged columns.
type SecurityViolation struct {
	Keys []string
}

func (e *SecurityViolation) Error() string {
	return "forbidden fields: " + strings.Join(e.Keys, ", ")
}

// Violation codes for SchemaViolation.
const (
	CodeUnknownField  = "unknown_field"
	CodeKindConflict  = "kind_conflict"
	CodeMissingField  = "missing_field"
	CodeInvalidFormat = "invalid_format"
)

// SchemaViolation is a row that does not fit the organization's schema.
type SchemaViolation struct {
	Code   string
	Fields []string
	Detail string
}

func (e *SchemaViolation) Error() string {
	switch e.Code {
	case CodeUnknownField:
		return "unknown fields: " + strings.Join(e.Fields, ", ")
	case CodeKindConflict:
		return "fields not allowed for this organization type: " + strings.Join(e.Fields, ", ")
	case CodeMissingField:
		return "required fields missing: " + strings.Join(e.Fields, ", ")
	default:
		return e.Detail
	}
}

// Validate checks cells, keyed by header, against kind and coerces the
// allowed values. Checks run in a fixed order and the first failure wins:
// empty row, forbidden keys, unknown keys, other-kind values, required
// fields, email shape, then per-field coercion.
func Validate(kind domain.Kind, cells map[string]string) (domain.ValidatedRow, error) {
	values := make(map[string]*string, len(cells))
	empty := true
	for k, v := range cells {
		values[k] = normalize.Text(v)
		if values[k] != nil {
			empty = false
		}
	}
	if empty {
		return domain.ValidatedRow{}, ErrEmptyRow
	}

	keys := sortedKeys(cells)

	var bad []string
	for _, k := range keys {
		if IsForbidden(k) {
			bad = append(bad, k)
		}
	}
	if len(bad) > 0 {
		return domain.ValidatedRow{}, &SecurityViolation{Keys: bad}
	}

	allowed := kind.Allowed()
	other := kind.Other().Exclusive()

	// Columns exclusive to the other kind are tolerated while blank so one
	// combined sheet can serve both kinds; a value in one is a conflict.
	var unknown, conflict []string
	for _, k := range keys {
		switch {
		case allowed.Has(domain.Field(k)):
		case other.Has(domain.Field(k)):
			if values[k] != nil {
				conflict = append(conflict, k)
			}
		default:
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		return domain.ValidatedRow{}, &SchemaViolation{Code: CodeUnknownField, Fields: unknown}
	}
	if len(conflict) > 0 {
		return domain.ValidatedRow{}, &SchemaViolation{Code: CodeKindConflict, Fields: conflict}
	}

	var missing []string
	for _, f := range []domain.Field{domain.FieldEmail, domain.FieldFullName} {
		if values[string(f)] == nil {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return domain.ValidatedRow{}, &SchemaViolation{Code: CodeMissingField, Fields: missing}
	}

	email := normalize.Email(*values[string(domain.FieldEmail)])
	if !strings.Contains(email, "@") {
		return domain.ValidatedRow{}, &SchemaViolation{
			Code:   CodeInvalidFormat,
			Fields: []string{string(domain.FieldEmail)},
			Detail: fmt.Sprintf("invalid email address %q", email),
		}
	}

	row := domain.ValidatedRow{Email: email}
	for _, f := range allowed {
		if _, ok := cells[string(f)]; ok {
			row.Fields = append(row.Fields, f)
		}
	}
	if err := coerce(&row.Profile, values); err != nil {
		return domain.ValidatedRow{}, err
	}
	return row, nil
}

func coerce(p *domain.Profile, values map[string]*string) error {
	raw := func(f domain.Field) string {
		if v := values[string(f)]; v != nil {
			return *v
		}
		return ""
	}

	var err error
	p.FullName = raw(domain.FieldFullName)
	p.FullNameKana = values[string(domain.FieldFullNameKana)]
	if p.Gender, err = normalize.Gender(raw(domain.FieldGender)); err != nil {
		return invalid(err)
	}
	if p.BirthDate, err = normalize.Date(raw(domain.FieldBirthDate)); err != nil {
		return invalid(err)
	}

	p.StudentNumber = values[string(domain.FieldStudentNumber)]
	p.ClassName = values[string(domain.FieldClassName)]
	if p.Grade, err = normalize.BoundedInt(domain.FieldGrade, raw(domain.FieldGrade), MinGrade, MaxGrade); err != nil {
		return invalid(err)
	}

	p.EmployeeNumber = values[string(domain.FieldEmployeeNumber)]
	p.Department = values[string(domain.FieldDepartment)]
	p.Position = values[string(domain.FieldPosition)]
	return nil
}

func invalid(err error) error {
	sv := &SchemaViolation{Code: CodeInvalidFormat, Detail: err.Error()}
	var fe *normalize.FieldError
	if errors.As(err, &fe) {
		sv.Fields = []string{string(fe.Field)}
	}
	return sv
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
