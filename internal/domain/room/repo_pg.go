package room

import (
	"context"
	"errors"
	"fmt"
	"time"

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

// NewRepoPG returns the postgres-backed room repository.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const cols = `id, number, type, daily_rate, is_occupied, current_patient_id,
	check_in_at, active_invoice_id, last_accrued_at, created_at, updated_at`

func scanRoom(row pgx.Row) (*Room, error) {
	var rm Room
	err := row.Scan(&rm.ID, &rm.Number, &rm.Type, &rm.DailyRate, &rm.IsOccupied,
		&rm.CurrentPatientID, &rm.CheckInAt, &rm.ActiveInvoiceID, &rm.LastAccruedAt,
		&rm.CreatedAt, &rm.UpdatedAt)
	return &rm, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *repoPG) Create(ctx context.Context, rm *Room) error {
	rm.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO room (id, number, type, daily_rate)
		VALUES ($1,$2,$3,$4)`,
		rm.ID, rm.Number, rm.Type, rm.DailyRate)
	if isUniqueViolation(err) {
		return errs.Conflict("room", "number", rm.Number)
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Room, error) {
	rm, err := scanRoom(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM room WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("room", id.String())
	}
	return rm, err
}

func (r *repoPG) GetByNumber(ctx context.Context, number string) (*Room, error) {
	rm, err := scanRoom(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM room WHERE number = $1`, number))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("room", number)
	}
	return rm, err
}

func (r *repoPG) Update(ctx context.Context, rm *Room) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE room SET number=$2, type=$3, daily_rate=$4, updated_at=NOW()
		WHERE id = $1`,
		rm.ID, rm.Number, rm.Type, rm.DailyRate)
	if isUniqueViolation(err) {
		return errs.Conflict("room", "number", rm.Number)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("room", rm.ID.String())
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM room WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("room", id.String())
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, roomType string, limit, offset int) ([]*Room, int, error) {
	where := ""
	args := []interface{}{}
	if roomType != "" {
		where = ` WHERE type = $1`
		args = append(args, roomType)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM room`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	q := fmt.Sprintf(`SELECT `+cols+` FROM room%s ORDER BY number ASC LIMIT $%d OFFSET $%d`,
		where, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rm)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListOccupied(ctx context.Context) ([]*Room, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+cols+` FROM room WHERE is_occupied ORDER BY number ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rm)
	}
	return items, rows.Err()
}

func (r *repoPG) SetOccupancy(ctx context.Context, id uuid.UUID, patientID, invoiceID *uuid.UUID, checkInAt *time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE room SET current_patient_id=$2, active_invoice_id=$3, check_in_at=$4,
			is_occupied=($2 IS NOT NULL), last_accrued_at=NULL, updated_at=NOW()
		WHERE id = $1`,
		id, patientID, invoiceID, checkInAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("room", id.String())
	}
	return nil
}

func (r *repoPG) AdvanceAccrual(ctx context.Context, id uuid.UUID, lastAccruedAt time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE room SET last_accrued_at=$2, updated_at=NOW() WHERE id = $1`, id, lastAccruedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("room", id.String())
	}
	return nil
}
