package domain

import "slices"

// Field is a machine column key as it appears in a roster header.
type Field string

const (
	FieldFullName     Field = "full_name"
	FieldFullNameKana Field = "full_name_kana"
	FieldEmail        Field = "email"
	FieldGender       Field = "gender"
	FieldBirthDate    Field = "birth_date"

	FieldStudentNumber Field = "student_number"
	FieldGrade         Field = "grade"
	FieldClassName     Field = "class_name"

	FieldEmployeeNumber Field = "employee_number"
	FieldDepartment     Field = "department"
	FieldPosition       Field = "position"
)

// FieldSet is an ordered set of fields. Order is the column layout used for
// templates and reports.
type FieldSet []Field

func (s FieldSet) Has(f Field) bool { return slices.Contains(s, f) }

var (
	sharedFields  = FieldSet{FieldFullName, FieldFullNameKana, FieldEmail, FieldGender, FieldBirthDate}
	schoolFields  = FieldSet{FieldStudentNumber, FieldGrade, FieldClassName}
	companyFields = FieldSet{FieldEmployeeNumber, FieldDepartment, FieldPosition}
)

// Exclusive lists the fields only k may carry.
func (k Kind) Exclusive() FieldSet {
	switch k {
	case KindSchool:
		return slices.Clone(schoolFields)
	case KindCompany:
		return slices.Clone(companyFields)
	default:
		return nil
	}
}

// Allowed lists every field a roster row for k may carry, in column order.
func (k Kind) Allowed() FieldSet {
	ex := k.Exclusive()
	if ex == nil {
		return nil
	}
	return append(slices.Clone(sharedFields), ex...)
}
