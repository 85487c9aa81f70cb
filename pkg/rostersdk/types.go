package rostersdk

import "time"

// ============================================================================
// Errors
// ============================================================================

// ErrorResponse is the body of every error answer.
type ErrorResponse struct {
	// Error is a stable machine readable code (see ErrorCode constants)
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`
}

// ValidationErrorResponse is returned when request fields fail Validate.
type ValidationErrorResponse struct {
	Error            string            `json:"error"`
	ErrorDescription string            `json:"error_description"`
	Details          map[string]string `json:"details,omitempty"`
}

// MessageResponse carries a single human-readable message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ============================================================================
// Accounts
// ============================================================================

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`

	// OrganizationID picks one organization when the email is registered in
	// several. Optional.
	OrganizationID string `json:"organization_id,omitempty"`
}

// LoginResponse holds a bearer token for the dashboard API.
type LoginResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresIn   int        `json:"expires_in"`
	Member      MemberInfo `json:"member"`
}

// MemberInfo is the public view of a member.
type MemberInfo struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
	Role           string `json:"role"`
	State          string `json:"state"`
}

// RegisterOrganizationRequest creates an organization and its first admin.
type RegisterOrganizationRequest struct {
	OrganizationName string `json:"organization_name"`
	Kind             string `json:"kind"` // SCHOOL or COMPANY
	AdminEmail       string `json:"admin_email"`
	AdminName        string `json:"admin_name"`
	AdminPassword    string `json:"admin_password"`
}

type OrganizationInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

type RegisterOrganizationResponse struct {
	Organization OrganizationInfo `json:"organization"`
	Admin        MemberInfo       `json:"admin"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ============================================================================
// Roster import
// ============================================================================

// ImportReport is the outcome of one roster upload. Errors are ordered by
// row number. Interrupted is set when the import stopped early; the counts
// then cover only the rows processed before it stopped.
type ImportReport struct {
	SuccessCount int        `json:"success_count"`
	ErrorCount   int        `json:"error_count"`
	Errors       []RowError `json:"errors"`
	Interrupted  bool       `json:"interrupted,omitempty"`
}

// RowError describes one rejected row. Row is the 1-based row number as
// shown by spreadsheet software; Email is null when the row had none.
type RowError struct {
	Row   int     `json:"row"`
	Email *string `json:"email"`
	Error string  `json:"error"`
}

type ImportRun struct {
	ID           string    `json:"id"`
	ActorID      string    `json:"actor_id"`
	Filename     string    `json:"filename"`
	SuccessCount int       `json:"success_count"`
	ErrorCount   int       `json:"error_count"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

type ListImportRunsResponse struct {
	Runs []ImportRun `json:"runs"`
}

// ============================================================================
// Invitations and password reset
// ============================================================================

// VerifyInviteResponse describes a usable link. Unusable links are answered
// with an invalid_token error instead.
type VerifyInviteResponse struct {
	Valid     bool      `json:"valid"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Purpose   string    `json:"purpose"` // ENROLLMENT or RESET
	ExpiresAt time.Time `json:"expires_at"`
}

// AcceptInviteRequest redeems an enrollment or reset token.
type AcceptInviteRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

// ============================================================================
// Health
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks lists the state of each dependency checked by /readyz.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}
