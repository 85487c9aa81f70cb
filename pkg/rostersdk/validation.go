package rostersdk

import (
	"strings"
)

const requiredReason = "required"

// Validate checks the shape of the request before it is sent. Password
// strength is enforced by the server. Returns nil if all fields are valid.
func (r RegisterOrganizationRequest) Validate() map[string]string {
	errs := make(map[string]string)

	name := strings.TrimSpace(r.OrganizationName)
	switch {
	case name == "":
		errs["organization_name"] = requiredReason
	case len([]rune(name)) > 100:
		errs["organization_name"] = "too long (max 100)"
	}

	switch strings.ToUpper(strings.TrimSpace(r.Kind)) {
	case "SCHOOL", "COMPANY":
	case "":
		errs["kind"] = requiredReason
	default:
		errs["kind"] = "must be SCHOOL or COMPANY"
	}

	email := strings.TrimSpace(r.AdminEmail)
	switch {
	case email == "":
		errs["admin_email"] = requiredReason
	case !strings.Contains(email, "@"):
		errs["admin_email"] = "must be an email address"
	}

	admin := strings.TrimSpace(r.AdminName)
	switch {
	case admin == "":
		errs["admin_name"] = requiredReason
	case len([]rune(admin)) > 64:
		errs["admin_name"] = "too long (max 64)"
	}

	switch pw := r.AdminPassword; {
	case pw == "":
		errs["admin_password"] = requiredReason
	case len(pw) > 128:
		errs["admin_password"] = "too long (max 128)"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
