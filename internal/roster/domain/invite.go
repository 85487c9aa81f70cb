package domain

import "time"

// InvitePurpose selects both the lifetime and the effect of consuming a token.
type InvitePurpose string

const (
	// PurposeEnrollment sets the first password and activates the member.
	PurposeEnrollment InvitePurpose = "ENROLLMENT"
	// PurposeReset replaces the password of an active member.
	PurposeReset InvitePurpose = "RESET"
)

const (
	DefaultEnrollmentTTL = 7 * 24 * time.Hour
	DefaultResetTTL      = time.Hour
)

// InviteToken rows are never deleted. Used covers both consumption and
// invalidation by a newer token; ConsumedAt and InvalidatedAt tell them apart.
type InviteToken struct {
	ID            string
	MemberID      string
	TokenHash     string
	Purpose       InvitePurpose
	ExpiresAt     time.Time
	Used          bool
	ConsumedAt    *time.Time
	InvalidatedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Valid reports whether the token can still be consumed at now.
func (t InviteToken) Valid(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}
