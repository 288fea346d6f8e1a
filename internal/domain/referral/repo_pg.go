package referral

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

const cols = `r.id, r.patient_id, r.origin_department_id, r.destination_department_id, r.referring_therapist_id, r.priority, r.diagnosis, r.goals, r.description, r.status, r.triage_decision, r.triage_note, r.outcome_notes, r.completed_at, r.hidden, r.created_at, r.updated_at`

func scan(row pgx.Row) (*Referral, error) {
	var ref Referral
	err := row.Scan(&ref.ID, &ref.PatientID, &ref.OriginDepartmentID, &ref.DestinationDepartmentID, &ref.ReferringTherapistID, &ref.Priority, &ref.Diagnosis, &ref.Goals, &ref.Description, &ref.Status, &ref.TriageDecision, &ref.TriageNote, &ref.OutcomeNotes, &ref.CompletedAt, &ref.Hidden, &ref.CreatedAt, &ref.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("referral")
	}
	return &ref, err
}

func (r *repoPG) Create(ctx context.Context, ref *Referral) error {
	ref.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO referral (id, patient_id, origin_department_id, destination_department_id, referring_therapist_id, priority, diagnosis, goals, description, status, triage_decision)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		ref.ID, ref.PatientID, ref.OriginDepartmentID, ref.DestinationDepartmentID, ref.ReferringTherapistID, ref.Priority, ref.Diagnosis, ref.Goals, ref.Description, ref.Status, ref.TriageDecision)
	if err != nil {
		return err
	}
	return r.replaceInterventions(ctx, ref.ID, ref.RequestedInterventionIDs)
}

func (r *repoPG) replaceInterventions(ctx context.Context, referralID uuid.UUID, ids []uuid.UUID) error {
	if _, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM referral_intervention WHERE referral_id = $1`, referralID); err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO referral_intervention (referral_id, intervention_id) VALUES ($1,$2)`,
			referralID, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) loadInterventions(ctx context.Context, refs []*Referral) error {
	if len(refs) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*Referral, len(refs))
	ids := make([]uuid.UUID, 0, len(refs))
	for _, ref := range refs {
		byID[ref.ID] = ref
		ids = append(ids, ref.ID)
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT referral_id, intervention_id FROM referral_intervention
		WHERE referral_id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var referralID, interventionID uuid.UUID
		if err := rows.Scan(&referralID, &interventionID); err != nil {
			return err
		}
		if ref, ok := byID[referralID]; ok {
			ref.RequestedInterventionIDs = append(ref.RequestedInterventionIDs, interventionID)
		}
	}
	return rows.Err()
}

func (r *repoPG) get(ctx context.Context, sql string, id uuid.UUID) (*Referral, error) {
	ref, err := scan(r.conn(ctx).QueryRow(ctx, sql, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadInterventions(ctx, []*Referral{ref}); err != nil {
		return nil, err
	}
	return ref, nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Referral, error) {
	return r.get(ctx, `SELECT `+cols+` FROM referral r WHERE r.id = $1 AND r.hidden = FALSE`, id)
}

func (r *repoPG) GetAny(ctx context.Context, id uuid.UUID) (*Referral, error) {
	return r.get(ctx, `SELECT `+cols+` FROM referral r WHERE r.id = $1`, id)
}

func (r *repoPG) Update(ctx context.Context, ref *Referral) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE referral SET destination_department_id=$2, priority=$3, diagnosis=$4, goals=$5, description=$6, status=$7, updated_at=NOW()
		WHERE id = $1 AND hidden = FALSE`,
		ref.ID, ref.DestinationDepartmentID, ref.Priority, ref.Diagnosis, ref.Goals, ref.Description, ref.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("referral")
	}
	return r.replaceInterventions(ctx, ref.ID, ref.RequestedInterventionIDs)
}

func (r *repoPG) SetHidden(ctx context.Context, id uuid.UUID, hidden bool) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE referral SET hidden=$2, updated_at=NOW() WHERE id = $1`, id, hidden)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("referral")
	}
	return nil
}

// -- Compare-and-swap mutations --

func (r *repoPG) cas(ctx context.Context, sql string, args ...interface{}) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) CASAccept(ctx context.Context, id uuid.UUID, note *string) (bool, error) {
	return r.cas(ctx, `
		UPDATE referral SET triage_decision='accepted', triage_note=$2, updated_at=NOW()
		WHERE id = $1 AND status = 'active' AND triage_decision = 'pending' AND hidden = FALSE`,
		id, note)
}

func (r *repoPG) CASReject(ctx context.Context, id uuid.UUID, note string) (bool, error) {
	return r.cas(ctx, `
		UPDATE referral SET status='cancelled', triage_decision='rejected', triage_note=$2, updated_at=NOW()
		WHERE id = $1 AND status = 'active' AND triage_decision = 'pending' AND hidden = FALSE`,
		id, note)
}

func (r *repoPG) CASRedirect(ctx context.Context, id, newDestination uuid.UUID, note *string) (bool, error) {
	return r.cas(ctx, `
		UPDATE referral SET destination_department_id=$2, triage_note=$3, updated_at=NOW()
		WHERE id = $1 AND status = 'active' AND triage_decision = 'pending' AND hidden = FALSE`,
		id, newDestination, note)
}

func (r *repoPG) CASComplete(ctx context.Context, id uuid.UUID, outcomeNotes string, completedAt time.Time) (bool, error) {
	return r.cas(ctx, `
		UPDATE referral SET status='success', outcome_notes=$2, completed_at=$3, updated_at=NOW()
		WHERE id = $1 AND status = 'active' AND triage_decision = 'accepted' AND hidden = FALSE`,
		id, outcomeNotes, completedAt)
}

// -- List --

const presentedStatusExpr = `CASE WHEN r.triage_decision = 'pending' AND r.status NOT IN ('success','cancelled') THEN 'pending' ELSE r.status END`

var listParams = map[string]query.Config{
	"patient":     {Type: query.Ref, Column: "r.patient_id"},
	"origin":      {Type: query.Ref, Column: "r.origin_department_id"},
	"destination": {Type: query.Ref, Column: "r.destination_department_id"},
	"therapist":   {Type: query.Ref, Column: "r.referring_therapist_id"},
	"priority":    {Type: query.Number, Column: "r.priority"},
	"status":      {Type: query.Token, Column: "(" + presentedStatusExpr + ")"},
	"decision":    {Type: query.Token, Column: "r.triage_decision"},
	"created":     {Type: query.Date, Column: "r.created_at"},
}

func (r *repoPG) List(ctx context.Context, params map[string]string, sort string, limit, offset int) ([]*Referral, int, error) {
	qb := query.New("referral r", cols).ExcludeHidden("r")

	// direction=incoming|outgoing narrows to one side of a department.
	if dir, ok := params["direction"]; ok {
		deptID := params["department_id"]
		switch dir {
		case "incoming":
			qb.And(fmt.Sprintf("r.destination_department_id = $%d", qb.Idx()), deptID)
		case "outgoing":
			qb.And(fmt.Sprintf("r.origin_department_id = $%d", qb.Idx()), deptID)
		default:
			return nil, 0, apperror.Validation("direction", "must be incoming or outgoing")
		}
		delete(params, "direction")
		delete(params, "department_id")
	}

	qb.ApplyParams(params, listParams)
	qb.ApplySort(sort, "r.created_at DESC", listParams)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Referral
	for rows.Next() {
		ref, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.loadInterventions(ctx, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// -- Summary counts --

func (r *repoPG) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+presentedStatusExpr+` AS s, COUNT(*) FROM referral r
		WHERE r.hidden = FALSE GROUP BY s`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var s string
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
		SELECT priority, COUNT(*) FROM referral WHERE hidden = FALSE GROUP BY priority`)
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

func (r *repoPG) CountByDestination(ctx context.Context) (map[uuid.UUID]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT destination_department_id, COUNT(*) FROM referral WHERE hidden = FALSE GROUP BY destination_department_id`)
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

// CountPendingOutcomes counts active accepted referrals whose linked task
// derives completed: the work is done but the referral was never closed.
func (r *repoPG) CountPendingOutcomes(ctx context.Context, today time.Time) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM referral r
		WHERE r.hidden = FALSE AND r.status = 'active' AND r.triage_decision = 'accepted'
		AND EXISTS (
			SELECT 1 FROM task t
			WHERE t.referral_id = r.id AND t.hidden = FALSE
			AND (`+status.TaskStatusSQL("t", 1)+`) = 'completed'
		)`, status.DateOnly(today)).Scan(&n)
	return n, err
}
