package domain

import (
	"fmt"
	"strings"
	"time"
)

// Kind decides which roster schema an organization uses.
type Kind string

const (
	KindSchool  Kind = "SCHOOL"
	KindCompany Kind = "COMPANY"
)

// ParseKind accepts either kind case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToUpper(strings.TrimSpace(s))) {
	case KindSchool:
		return KindSchool, nil
	case KindCompany:
		return KindCompany, nil
	default:
		return "", fmt.Errorf("unknown organization kind %q", s)
	}
}

// Other is the kind whose exclusive fields conflict with k.
func (k Kind) Other() Kind {
	if k == KindSchool {
		return KindCompany
	}
	return KindSchool
}

type Organization struct {
	ID        string
	Name      string
	Kind      Kind
	CreatedAt time.Time
	UpdatedAt time.Time
}
