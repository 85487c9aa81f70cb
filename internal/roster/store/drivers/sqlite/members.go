package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/koki-kondo/mind-status-app/internal/roster/domain"
	"github.com/koki-kondo/mind-status-app/internal/roster/store"
)

const memberColumns = `id, organization_id, email, role, state, password_hash,
	full_name, full_name_kana, gender, birth_date,
	student_number, grade, class_name,
	employee_number, department, position,
	activated_at, created_at, updated_at`

type membersRepo struct {
	db dbtx
}

func (r *membersRepo) GetMemberByID(ctx context.Context, id string) (domain.Member, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id = ?`, id)
	m, err := scanMember(row)
	if err != nil {
		return domain.Member{}, mapNotFound(err)
	}
	return m, nil
}

func (r *membersRepo) GetMemberByOrgAndEmail(
	ctx context.Context,
	orgID, email string,
) (domain.Member, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE organization_id = ? AND email = ?`,
		orgID, email,
	)
	m, err := scanMember(row)
	if err != nil {
		return domain.Member{}, mapNotFound(err)
	}
	return m, nil
}

func (r *membersRepo) ListActiveMembersByEmail(ctx context.Context, email string) ([]domain.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE email = ? AND state = ? ORDER BY created_at, id`,
		email, string(domain.StateActive),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *membersRepo) CreateMember(ctx context.Context, m domain.Member) error {
	created := stamp(m.CreatedAt)
	p := m.Profile
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO members (`+memberColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.OrganizationID, m.Email, string(m.Role), string(m.State), m.PasswordHash,
		p.FullName, mapOptionalString(p.FullNameKana), mapOptionalGender(p.Gender), mapOptionalDate(p.BirthDate),
		mapOptionalString(p.StudentNumber), mapOptionalInt(p.Grade), mapOptionalString(p.ClassName),
		mapOptionalString(p.EmployeeNumber), mapOptionalString(p.Department), mapOptionalString(p.Position),
		mapOptionalTime(m.ActivatedAt), toMillis(created), toMillis(created),
	)
	return mapConstraint(err)
}

func (r *membersRepo) UpdateMember(ctx context.Context, m domain.Member) error {
	p := m.Profile
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE members SET
			role = ?, state = ?,
			full_name = ?, full_name_kana = ?, gender = ?, birth_date = ?,
			student_number = ?, grade = ?, class_name = ?,
			employee_number = ?, department = ?, position = ?,
			activated_at = ?, updated_at = ?
		WHERE id = ?`,
		string(m.Role), string(m.State),
		p.FullName, mapOptionalString(p.FullNameKana), mapOptionalGender(p.Gender), mapOptionalDate(p.BirthDate),
		mapOptionalString(p.StudentNumber), mapOptionalInt(p.Grade), mapOptionalString(p.ClassName),
		mapOptionalString(p.EmployeeNumber), mapOptionalString(p.Department), mapOptionalString(p.Position),
		mapOptionalTime(m.ActivatedAt), toMillis(stamp(m.UpdatedAt)),
		m.ID,
	))
}

func (r *membersRepo) UpdatePasswordHash(ctx context.Context, memberID, hash string, now time.Time) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE members SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, toMillis(stamp(now)), memberID,
	))
}

func (r *membersRepo) ActivateMember(ctx context.Context, memberID string, now time.Time) error {
	now = stamp(now)
	res, err := r.db.ExecContext(ctx,
		`UPDATE members SET state = ?, activated_at = ?, updated_at = ? WHERE id = ? AND state = ?`,
		string(domain.StateActive), toMillis(now), toMillis(now), memberID, string(domain.StatePending),
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n == 1 {
		return err
	}

	// Nothing changed: either already active or missing.
	var one int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM members WHERE id = ?`, memberID).Scan(&one)
	return mapNotFound(err)
}

func mapOptionalGender(g *domain.Gender) sql.NullString {
	if g == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*g), Valid: true}
}

func scanMember(row scanner) (domain.Member, error) {
	var (
		m                domain.Member
		role, state      string
		kana, gender     sql.NullString
		birth            sql.NullString
		studentNo, class sql.NullString
		employeeNo, dept sql.NullString
		position         sql.NullString
		grade, activated sql.NullInt64
		created, updated int64
	)
	err := row.Scan(
		&m.ID, &m.OrganizationID, &m.Email, &role, &state, &m.PasswordHash,
		&m.Profile.FullName, &kana, &gender, &birth,
		&studentNo, &grade, &class,
		&employeeNo, &dept, &position,
		&activated, &created, &updated,
	)
	if err != nil {
		return domain.Member{}, err
	}

	m.Role = domain.Role(role)
	m.State = domain.ActivationState(state)
	m.Profile.FullNameKana = mapNullStringPtr(kana)
	if gender.Valid {
		g := domain.Gender(gender.String)
		m.Profile.Gender = &g
	}
	if m.Profile.BirthDate, err = mapNullDatePtr(birth); err != nil {
		return domain.Member{}, err
	}
	m.Profile.StudentNumber = mapNullStringPtr(studentNo)
	m.Profile.Grade = mapNullIntPtr(grade)
	m.Profile.ClassName = mapNullStringPtr(class)
	m.Profile.EmployeeNumber = mapNullStringPtr(employeeNo)
	m.Profile.Department = mapNullStringPtr(dept)
	m.Profile.Position = mapNullStringPtr(position)
	m.ActivatedAt = mapNullTimePtr(activated)
	m.CreatedAt = fromMillis(created)
	m.UpdatedAt = fromMillis(updated)
	return m, nil
}

var _ store.Members = (*membersRepo)(nil)
