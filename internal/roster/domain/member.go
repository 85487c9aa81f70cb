package domain

import "time"

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// ActivationState moves PENDING -> ACTIVE only when an enrollment
// invitation is consumed.
type ActivationState string

const (
	StatePending ActivationState = "PENDING"
	StateActive  ActivationState = "ACTIVE"
)

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

// Profile holds the attributes a roster row may supply. Nil means unset.
type Profile struct {
	FullName     string
	FullNameKana *string
	Gender       *Gender
	BirthDate    *time.Time

	StudentNumber *string
	Grade         *int
	ClassName     *string

	EmployeeNumber *string
	Department     *string
	Position       *string
}

// Apply copies the fields present in row onto p. Fields the row does not
// carry keep their current value; a present column with an empty cell
// clears the value.
func (p *Profile) Apply(row ValidatedRow) {
	src := row.Profile
	for _, f := range row.Fields {
		switch f {
		case FieldFullName:
			p.FullName = src.FullName
		case FieldFullNameKana:
			p.FullNameKana = src.FullNameKana
		case FieldGender:
			p.Gender = src.Gender
		case FieldBirthDate:
			p.BirthDate = src.BirthDate
		case FieldStudentNumber:
			p.StudentNumber = src.StudentNumber
		case FieldGrade:
			p.Grade = src.Grade
		case FieldClassName:
			p.ClassName = src.ClassName
		case FieldEmployeeNumber:
			p.EmployeeNumber = src.EmployeeNumber
		case FieldDepartment:
			p.Department = src.Department
		case FieldPosition:
			p.Position = src.Position
		}
	}
}

// Member is an identity inside one organization. Email is unique per
// organization and stored in canonical form.
type Member struct {
	ID             string
	OrganizationID string
	Email          string
	Role           Role
	State          ActivationState
	PasswordHash   string // argon2id PHC string
	Profile        Profile
	ActivatedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
