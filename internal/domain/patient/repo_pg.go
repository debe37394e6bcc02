package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/errs"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns the postgres-backed patient repository.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const cols = `id, code, name, gender, date_of_birth, phone, email, address,
	blood_group, emergency_contact, active, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Gender, &p.DateOfBirth, &p.Phone,
		&p.Email, &p.Address, &p.BloodGroup, &p.EmergencyContact, &p.Active,
		&p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (id, code, name, gender, date_of_birth, phone, email,
			address, blood_group, emergency_contact, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.Code, p.Name, p.Gender, p.DateOfBirth, p.Phone, p.Email,
		p.Address, p.BloodGroup, p.EmergencyContact, p.Active)
	if isUniqueViolation(err) {
		return errs.Conflict("patient", "code", p.Code)
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM patient WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("patient", id.String())
	}
	return p, err
}

func (r *repoPG) GetByCode(ctx context.Context, code string) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM patient WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("patient", code)
	}
	return p, err
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET name=$2, gender=$3, date_of_birth=$4, phone=$5,
			email=$6, address=$7, blood_group=$8, emergency_contact=$9,
			updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.Gender, p.DateOfBirth, p.Phone,
		p.Email, p.Address, p.BloodGroup, p.EmergencyContact)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("patient", p.ID.String())
	}
	return nil
}

func (r *repoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient SET active=$2, updated_at=NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("patient", id.String())
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, nameQuery string, limit, offset int) ([]*Patient, int, error) {
	where := ""
	args := []interface{}{}
	if nameQuery != "" {
		where = ` WHERE name ILIKE '%' || $1 || '%' OR code = $1`
		args = append(args, nameQuery)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT `+cols+` FROM patient%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
