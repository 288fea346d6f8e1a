package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/muhammadnuman1305/allied-health-sub002/internal/domain/status"
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

const cols = `t.id, t.referral_id, t.patient_id, t.department_id, t.title, t.priority, t.diagnosis, t.goals, t.description, t.start_date, t.end_date, t.hidden, t.created_at, t.updated_at`

func scan(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.ReferralID, &t.PatientID, &t.DepartmentID, &t.Title, &t.Priority, &t.Diagnosis, &t.Goals, &t.Description, &t.StartDate, &t.EndDate, &t.Hidden, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("task")
	}
	return &t, err
}

// scanWithStatus reads a list row carrying the derived status as its last
// column.
func scanWithStatus(rows pgx.Rows) (*Task, error) {
	var t Task
	err := rows.Scan(&t.ID, &t.ReferralID, &t.PatientID, &t.DepartmentID, &t.Title, &t.Priority, &t.Diagnosis, &t.Goals, &t.Description, &t.StartDate, &t.EndDate, &t.Hidden, &t.CreatedAt, &t.UpdatedAt, &t.Status)
	return &t, err
}

func (r *repoPG) Create(ctx context.Context, t *Task) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO task (id, referral_id, patient_id, department_id, title, priority, diagnosis, goals, description, start_date, end_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		t.ID, t.ReferralID, t.PatientID, t.DepartmentID, t.Title, t.Priority, t.Diagnosis, t.Goals, t.Description, t.StartDate, t.EndDate)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	return scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+cols+` FROM task t WHERE t.id = $1 AND t.hidden = FALSE`, id))
}

func (r *repoPG) GetAny(ctx context.Context, id uuid.UUID) (*Task, error) {
	return scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+cols+` FROM task t WHERE t.id = $1`, id))
}

func (r *repoPG) UpdateWindow(ctx context.Context, id uuid.UUID, start, end time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE task SET start_date=$2, end_date=$3, updated_at=NOW()
		WHERE id = $1 AND hidden = FALSE`, id, start, end)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("task")
	}
	return nil
}

func (r *repoPG) SetHidden(ctx context.Context, id uuid.UUID, hidden bool) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE task SET hidden=$2, updated_at=NOW() WHERE id = $1`, id, hidden)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("task")
	}
	return nil
}

// -- Interventions --

const ivCols = `ti.id, ti.task_id, ti.intervention_id, ti.assigned_user_id, ti.ward_id, ti.start_date, ti.end_date, ti.outcome_status, ti.outcome_text, ti.outcome_date, ti.created_at, ti.updated_at`

func scanIntervention(row pgx.Row) (*TaskIntervention, error) {
	var iv TaskIntervention
	err := row.Scan(&iv.ID, &iv.TaskID, &iv.InterventionID, &iv.AssignedUserID, &iv.WardID, &iv.StartDate, &iv.EndDate, &iv.OutcomeStatus, &iv.OutcomeText, &iv.OutcomeDate, &iv.CreatedAt, &iv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("task intervention")
	}
	return &iv, err
}

func (r *repoPG) CreateIntervention(ctx context.Context, iv *TaskIntervention) error {
	iv.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO task_intervention (id, task_id, intervention_id, assigned_user_id, ward_id, start_date, end_date, outcome_status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		iv.ID, iv.TaskID, iv.InterventionID, iv.AssignedUserID, iv.WardID, iv.StartDate, iv.EndDate, iv.OutcomeStatus)
	return err
}

func (r *repoPG) GetIntervention(ctx context.Context, id uuid.UUID) (*TaskIntervention, error) {
	return scanIntervention(r.conn(ctx).QueryRow(ctx,
		`SELECT `+ivCols+` FROM task_intervention ti WHERE ti.id = $1`, id))
}

func (r *repoPG) ListInterventions(ctx context.Context, taskID uuid.UUID) ([]*TaskIntervention, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+ivCols+` FROM task_intervention ti WHERE ti.task_id = $1 ORDER BY ti.created_at`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*TaskIntervention
	for rows.Next() {
		iv, err := scanIntervention(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, iv)
	}
	return items, rows.Err()
}

func (r *repoPG) UpdateOutcome(ctx context.Context, iv *TaskIntervention) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE task_intervention SET outcome_status=$2, outcome_text=$3, outcome_date=$4, updated_at=NOW()
		WHERE id = $1`,
		iv.ID, iv.OutcomeStatus, iv.OutcomeText, iv.OutcomeDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("task intervention")
	}
	return nil
}

// -- Lists --

func listParams(today time.Time) map[string]query.Config {
	return map[string]query.Config{
		"patient":    {Type: query.Ref, Column: "t.patient_id"},
		"department": {Type: query.Ref, Column: "t.department_id"},
		"referral":   {Type: query.Ref, Column: "t.referral_id"},
		"priority":   {Type: query.Number, Column: "t.priority"},
		"title":      {Type: query.Text, Column: "t.title"},
		"start":      {Type: query.Date, Column: "t.start_date"},
		"end":        {Type: query.Date, Column: "t.end_date"},
		"created":    {Type: query.Date, Column: "t.created_at"},
		"status": {
			Type:   query.Derived,
			Column: "status",
			Expr:   func(argIdx int) string { return status.TaskStatusSQL("t", argIdx) },
			Arg:    status.DateOnly(today),
		},
	}
}

func (r *repoPG) list(ctx context.Context, qb *query.Builder, today time.Time, params map[string]string, sort string, limit, offset int) ([]*Task, int, error) {
	configs := listParams(today)
	qb.ApplyParams(params, configs)
	qb.ApplySort(sort, "t.created_at DESC", configs)
	qb.Select("status", func(firstIdx int) string {
		return status.TaskStatusSQL("t", firstIdx)
	}, status.DateOnly(today))

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Task
	for rows.Next() {
		t, err := scanWithStatus(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

func (r *repoPG) List(ctx context.Context, today time.Time, params map[string]string, sort string, limit, offset int) ([]*Task, int, error) {
	qb := query.New("task t", cols).ExcludeHidden("t")
	return r.list(ctx, qb, today, params, sort, limit, offset)
}

func (r *repoPG) ListMine(ctx context.Context, userID uuid.UUID, today time.Time, params map[string]string, sort string, limit, offset int) ([]*Task, int, error) {
	qb := query.New("task t", cols).ExcludeHidden("t")
	qb.And(fmt.Sprintf(
		"EXISTS (SELECT 1 FROM task_intervention ti WHERE ti.task_id = t.id AND ti.assigned_user_id = $%d)",
		qb.Idx()), userID)
	return r.list(ctx, qb, today, params, sort, limit, offset)
}

// -- Summary counts --

func (r *repoPG) CountByDerivedStatus(ctx context.Context, today time.Time) (map[status.TaskStatus]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+status.TaskStatusSQL("t", 1)+` AS s, COUNT(*) FROM task t
		WHERE t.hidden = FALSE GROUP BY s`, status.DateOnly(today))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[status.TaskStatus]int{}
	for rows.Next() {
		var s status.TaskStatus
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[s] = n
	}
	return out, rows.Err()
}

func (r *repoPG) CountByPriority(ctx context.Context) (map[status.Priority]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT priority, COUNT(*) FROM task WHERE hidden = FALSE GROUP BY priority`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[status.Priority]int{}
	for rows.Next() {
		var p status.Priority
		var n int
		if err := rows.Scan(&p, &n); err != nil {
			return nil, err
		}
		out[p] = n
	}
	return out, rows.Err()
}

func (r *repoPG) CountByDepartment(ctx context.Context) (map[uuid.UUID]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT department_id, COUNT(*) FROM task WHERE hidden = FALSE GROUP BY department_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[uuid.UUID]int{}
	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}
