package patient

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

const cols = `p.id, p.mrn, p.full_name, p.date_of_birth, p.gender, p.contact, p.hidden, p.created_at, p.updated_at`

func scan(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.MRN, &p.FullName, &p.DateOfBirth, &p.Gender, &p.Contact, &p.Hidden, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("patient")
	}
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (id, mrn, full_name, date_of_birth, gender, contact)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.MRN, p.FullName, p.DateOfBirth, p.Gender, p.Contact)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+cols+` FROM patient p WHERE p.id = $1 AND p.hidden = FALSE`, id))
}

func (r *repoPG) GetAny(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+cols+` FROM patient p WHERE p.id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET mrn=$2, full_name=$3, date_of_birth=$4, gender=$5, contact=$6, updated_at=NOW()
		WHERE id = $1 AND hidden = FALSE`,
		p.ID, p.MRN, p.FullName, p.DateOfBirth, p.Gender, p.Contact)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("patient")
	}
	return nil
}

func (r *repoPG) SetHidden(ctx context.Context, id uuid.UUID, hidden bool) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient SET hidden=$2, updated_at=NOW() WHERE id = $1`, id, hidden)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("patient")
	}
	return nil
}

var listParams = map[string]query.Config{
	"mrn":    {Type: query.Token, Column: "p.mrn"},
	"name":   {Type: query.Text, Column: "p.full_name"},
	"gender": {Type: query.Token, Column: "p.gender"},
	"dob":    {Type: query.Date, Column: "p.date_of_birth"},
}

func (r *repoPG) List(ctx context.Context, params map[string]string, sort string, limit, offset int) ([]*Patient, int, error) {
	qb := query.New("patient p", cols).ExcludeHidden("p")
	qb.ApplyParams(params, listParams)
	qb.ApplySort(sort, "p.created_at DESC", listParams)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
