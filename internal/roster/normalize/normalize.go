// Package normalize cleans spreadsheet cell values. Every function is pure
// and safe on any input; nil stands for "no value".
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/koki-kondo/mind-status-app/internal/roster/domain"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// FieldError is a cell value that could not be coerced.
type FieldError struct {
	Field  domain.Field
	Value  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s (%q)", e.Field, e.Reason, e.Value)
}

// Text applies NFC, turns ideographic spaces into ASCII spaces, drops
// control and format code points (BOM, zero-width joiners) and trims.
// An empty result is nil.
func Text(raw string) *string {
	if raw == "" {
		return nil
	}

	s := strings.Map(func(r rune) rune {
		switch {
		case r == '　':
			return ' '
		case unicode.In(r, unicode.C):
			return -1
		}
		return r
	}, norm.NFC.String(raw))

	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Value is Text dereferenced, "" for nil.
func Value(raw string) string {
	if s := Text(raw); s != nil {
		return *s
	}
	return ""
}

// Email is the canonical comparable form of an address.
func Email(raw string) string {
	return strings.ToLower(Value(raw))
}

var genders = map[string]domain.Gender{
	"male":   domain.GenderMale,
	"m":      domain.GenderMale,
	"男":      domain.GenderMale,
	"男性":     domain.GenderMale,
	"female": domain.GenderFemale,
	"f":      domain.GenderFemale,
	"女":      domain.GenderFemale,
	"女性":     domain.GenderFemale,
	"other":  domain.GenderOther,
	"その他":    domain.GenderOther,
	"他":      domain.GenderOther,
}

// Gender maps English and Japanese spellings onto the canonical values.
func Gender(raw string) (*domain.Gender, error) {
	s := Text(raw)
	if s == nil {
		return nil, nil
	}
	g, ok := genders[strings.ToLower(width.Fold.String(*s))]
	if !ok {
		return nil, &FieldError{Field: domain.FieldGender, Value: *s, Reason: "unknown gender"}
	}
	return &g, nil
}

// Date parses YYYY-MM-DD. A leading apostrophe left by spreadsheet text
// escaping is ignored, as are full-width digits.
func Date(raw string) (*time.Time, error) {
	s := numeric(raw)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, &FieldError{Field: domain.FieldBirthDate, Value: s, Reason: "expected YYYY-MM-DD"}
	}
	return &t, nil
}

// BoundedInt parses a plain decimal in [lo, hi].
func BoundedInt(field domain.Field, raw string, lo, hi int) (*int, error) {
	s := numeric(raw)
	if s == "" {
		return nil, nil
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return nil, &FieldError{Field: field, Value: s, Reason: "not a whole number"}
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return nil, &FieldError{Field: field, Value: s, Reason: fmt.Sprintf("must be between %d and %d", lo, hi)}
	}
	return &n, nil
}

// numeric strips the spreadsheet apostrophe and folds full-width forms.
func numeric(raw string) string {
	s := Value(raw)
	s = strings.TrimPrefix(s, "'")
	return strings.TrimSpace(width.Fold.String(s))
}
