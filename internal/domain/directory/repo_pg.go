package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/muhammadnuman1305/allied-health-sub002/internal/platform/apperror"
	"github.com/muhammadnuman1305/allied-health-sub002/internal/platform/db"
	"github.com/muhammadnuman1305/allied-health-sub002/internal/platform/query"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// -- Specialty --

func (r *repoPG) CreateSpecialty(ctx context.Context, s *Specialty) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO specialty (id, name) VALUES ($1,$2)`, s.ID, s.Name)
	if isUniqueViolation(err) {
		return apperror.Conflict("specialty name already exists")
	}
	return err
}

func (r *repoPG) GetSpecialty(ctx context.Context, id uuid.UUID) (*Specialty, error) {
	var s Specialty
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, name FROM specialty WHERE id = $1`, id).Scan(&s.ID, &s.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("specialty")
	}
	return &s, err
}

func (r *repoPG) ListSpecialties(ctx context.Context) ([]*Specialty, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, name FROM specialty ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Specialty
	for rows.Next() {
		var s Specialty
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	return items, rows.Err()
}

// -- Department --

const deptCols = `d.id, d.name, d.code, d.specialty_id, d.head_user_id, d.default_priority, d.opens_at, d.closes_at, d.hidden, d.created_at, d.updated_at`

func scanDept(row pgx.Row) (*Department, error) {
	var d Department
	err := row.Scan(&d.ID, &d.Name, &d.Code, &d.SpecialtyID, &d.HeadUserID, &d.DefaultPriority, &d.OpensAt, &d.ClosesAt, &d.Hidden, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("department")
	}
	return &d, err
}

func (r *repoPG) CreateDepartment(ctx context.Context, d *Department) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO department (id, name, code, specialty_id, head_user_id, default_priority, opens_at, closes_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		d.ID, d.Name, d.Code, d.SpecialtyID, d.HeadUserID, d.DefaultPriority, d.OpensAt, d.ClosesAt)
	if isUniqueViolation(err) {
		return apperror.Conflict("department code already exists")
	}
	return err
}

func (r *repoPG) GetDepartment(ctx context.Context, id uuid.UUID) (*Department, error) {
	return scanDept(r.conn(ctx).QueryRow(ctx,
		`SELECT `+deptCols+` FROM department d WHERE d.id = $1 AND d.hidden = FALSE`, id))
}

func (r *repoPG) GetAnyDepartment(ctx context.Context, id uuid.UUID) (*Department, error) {
	return scanDept(r.conn(ctx).QueryRow(ctx,
		`SELECT `+deptCols+` FROM department d WHERE d.id = $1`, id))
}

func (r *repoPG) UpdateDepartment(ctx context.Context, d *Department) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE department SET name=$2, code=$3, specialty_id=$4, head_user_id=$5, default_priority=$6, opens_at=$7, closes_at=$8, updated_at=NOW()
		WHERE id = $1 AND hidden = FALSE`,
		d.ID, d.Name, d.Code, d.SpecialtyID, d.HeadUserID, d.DefaultPriority, d.OpensAt, d.ClosesAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("department")
	}
	return nil
}

func (r *repoPG) SetDepartmentHidden(ctx context.Context, id uuid.UUID, hidden bool) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE department SET hidden=$2, updated_at=NOW() WHERE id = $1`, id, hidden)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("department")
	}
	return nil
}

var deptParams = map[string]query.Config{
	"name":      {Type: query.Text, Column: "d.name"},
	"code":      {Type: query.Token, Column: "d.code"},
	"specialty": {Type: query.Ref, Column: "d.specialty_id"},
	"priority":  {Type: query.Number, Column: "d.default_priority"},
}

func (r *repoPG) ListDepartments(ctx context.Context, params map[string]string, sort string, limit, offset int) ([]*Department, int, error) {
	qb := query.New("department d", deptCols).ExcludeHidden("d")
	qb.ApplyParams(params, deptParams)
	qb.ApplySort(sort, "d.name ASC", deptParams)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Department
	for rows.Next() {
		d, err := scanDept(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

// -- Ward --

const wardCols = `w.id, w.name, w.bed_count, w.default_department_id, w.created_at, w.updated_at`

func scanWard(row pgx.Row) (*Ward, error) {
	var w Ward
	err := row.Scan(&w.ID, &w.Name, &w.BedCount, &w.DefaultDepartmentID, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("ward")
	}
	return &w, err
}

func (r *repoPG) CreateWard(ctx context.Context, w *Ward) error {
	w.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO ward (id, name, bed_count, default_department_id)
		VALUES ($1,$2,$3,$4)`,
		w.ID, w.Name, w.BedCount, w.DefaultDepartmentID)
	return err
}

func (r *repoPG) GetWard(ctx context.Context, id uuid.UUID) (*Ward, error) {
	return scanWard(r.conn(ctx).QueryRow(ctx,
		`SELECT `+wardCols+` FROM ward w WHERE w.id = $1`, id))
}

func (r *repoPG) UpdateWard(ctx context.Context, w *Ward) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE ward SET name=$2, bed_count=$3, default_department_id=$4, updated_at=NOW()
		WHERE id = $1`,
		w.ID, w.Name, w.BedCount, w.DefaultDepartmentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("ward")
	}
	return nil
}

var wardParams = map[string]query.Config{
	"name":       {Type: query.Text, Column: "w.name"},
	"department": {Type: query.Ref, Column: "w.default_department_id"},
	"beds":       {Type: query.Number, Column: "w.bed_count"},
}

func (r *repoPG) ListWards(ctx context.Context, params map[string]string, sort string, limit, offset int) ([]*Ward, int, error) {
	qb := query.New("ward w", wardCols)
	qb.ApplyParams(params, wardParams)
	qb.ApplySort(sort, "w.name ASC", wardParams)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Ward
	for rows.Next() {
		w, err := scanWard(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, w)
	}
	return items, total, rows.Err()
}

// -- Ward coverage --

func (r *repoPG) AddCoverage(ctx context.Context, wardID, departmentID uuid.UUID) (*WardCoverage, error) {
	var cov WardCoverage
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO ward_department (ward_id, department_id)
		VALUES ($1,$2)
		RETURNING ward_id, department_id, created_at`,
		wardID, departmentID).Scan(&cov.WardID, &cov.DepartmentID, &cov.CreatedAt)
	if isUniqueViolation(err) {
		return nil, apperror.Conflict("department already covers this ward")
	}
	if err != nil {
		return nil, err
	}
	return &cov, nil
}

func (r *repoPG) RemoveCoverage(ctx context.Context, wardID, departmentID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM ward_department WHERE ward_id = $1 AND department_id = $2`,
		wardID, departmentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("ward coverage")
	}
	return nil
}

func (r *repoPG) ListCoverage(ctx context.Context, wardID uuid.UUID) ([]*WardCoverage, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT ward_id, department_id, created_at FROM ward_department
		WHERE ward_id = $1 ORDER BY created_at`, wardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*WardCoverage
	for rows.Next() {
		var cov WardCoverage
		if err := rows.Scan(&cov.WardID, &cov.DepartmentID, &cov.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &cov)
	}
	return items, rows.Err()
}

func (r *repoPG) CoversWard(ctx context.Context, wardID, departmentID uuid.UUID) (bool, error) {
	var covered bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM ward_department WHERE ward_id = $1 AND department_id = $2)`,
		wardID, departmentID).Scan(&covered)
	return covered, err
}

// -- Staff --

const staffCols = `u.id, u.full_name, u.email, u.role, u.home_department_id, u.active, u.created_at, u.updated_at`

func scanStaff(row pgx.Row) (*StaffUser, error) {
	var u StaffUser
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.Role, &u.HomeDepartmentID, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("staff user")
	}
	return &u, err
}

func (r *repoPG) CreateStaff(ctx context.Context, u *StaffUser) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO staff_user (id, full_name, email, role, home_department_id, active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		u.ID, u.FullName, u.Email, u.Role, u.HomeDepartmentID, u.Active)
	if isUniqueViolation(err) {
		return apperror.Conflict("email already registered")
	}
	return err
}

func (r *repoPG) GetStaff(ctx context.Context, id uuid.UUID) (*StaffUser, error) {
	return scanStaff(r.conn(ctx).QueryRow(ctx,
		`SELECT `+staffCols+` FROM staff_user u WHERE u.id = $1`, id))
}

func (r *repoPG) SetStaffActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE staff_user SET active=$2, updated_at=NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("staff user")
	}
	return nil
}

var staffParams = map[string]query.Config{
	"name":       {Type: query.Text, Column: "u.full_name"},
	"email":      {Type: query.Token, Column: "u.email"},
	"role":       {Type: query.Token, Column: "u.role"},
	"department": {Type: query.Ref, Column: "u.home_department_id"},
	"active":     {Type: query.Token, Column: "u.active"},
}

func (r *repoPG) ListStaff(ctx context.Context, params map[string]string, sort string, limit, offset int) ([]*StaffUser, int, error) {
	qb := query.New("staff_user u", staffCols)
	qb.ApplyParams(params, staffParams)
	qb.ApplySort(sort, "u.full_name ASC", staffParams)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*StaffUser
	for rows.Next() {
		u, err := scanStaff(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, rows.Err()
}

// -- Intervention catalog --

func (r *repoPG) CreateIntervention(ctx context.Context, iv *Intervention) error {
	iv.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO intervention (id, specialty_id, name) VALUES ($1,$2,$3)`,
		iv.ID, iv.SpecialtyID, iv.Name)
	if isUniqueViolation(err) {
		return apperror.Conflict("intervention already in catalog")
	}
	return err
}

func (r *repoPG) GetInterventions(ctx context.Context, ids []uuid.UUID) ([]*Intervention, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, specialty_id, name FROM intervention WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Intervention
	for rows.Next() {
		var iv Intervention
		if err := rows.Scan(&iv.ID, &iv.SpecialtyID, &iv.Name); err != nil {
			return nil, err
		}
		items = append(items, &iv)
	}
	return items, rows.Err()
}

func (r *repoPG) ListInterventions(ctx context.Context, specialtyID *uuid.UUID) ([]*Intervention, error) {
	sql := `SELECT id, specialty_id, name FROM intervention`
	args := []interface{}{}
	if specialtyID != nil {
		sql += ` WHERE specialty_id = $1`
		args = append(args, *specialtyID)
	}
	sql += ` ORDER BY name`
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Intervention
	for rows.Next() {
		var iv Intervention
		if err := rows.Scan(&iv.ID, &iv.SpecialtyID, &iv.Name); err != nil {
			return nil, err
		}
		items = append(items, &iv)
	}
	return items, rows.Err()
}
