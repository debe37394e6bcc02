package medicine

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

// NewRepoPG returns the postgres-backed medicine repository.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const cols = `id, name, category, unit_price, buy_price, stock_quantity,
	low_stock_threshold, unit, created_at, updated_at`

func scanMedicine(row pgx.Row) (*Medicine, error) {
	var m Medicine
	err := row.Scan(&m.ID, &m.Name, &m.Category, &m.UnitPrice, &m.BuyPrice,
		&m.StockQuantity, &m.LowStockThreshold, &m.Unit, &m.CreatedAt, &m.UpdatedAt)
	return &m, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *repoPG) Create(ctx context.Context, m *Medicine) error {
	m.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medicine (id, name, category, unit_price, buy_price,
			stock_quantity, low_stock_threshold, unit)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		m.ID, m.Name, m.Category, m.UnitPrice, m.BuyPrice,
		m.StockQuantity, m.LowStockThreshold, m.Unit)
	if isUniqueViolation(err) {
		return errs.Conflict("medicine", "name", m.Name)
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	m, err := scanMedicine(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM medicine WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("medicine", id.String())
	}
	return m, err
}

func (r *repoPG) GetByName(ctx context.Context, name string) (*Medicine, error) {
	m, err := scanMedicine(r.conn(ctx).QueryRow(ctx,
		`SELECT `+cols+` FROM medicine WHERE lower(name) = lower($1)`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("medicine", name)
	}
	return m, err
}

func (r *repoPG) Update(ctx context.Context, m *Medicine) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE medicine SET name=$2, category=$3, unit_price=$4, buy_price=$5,
			low_stock_threshold=$6, unit=$7, updated_at=NOW()
		WHERE id = $1`,
		m.ID, m.Name, m.Category, m.UnitPrice, m.BuyPrice,
		m.LowStockThreshold, m.Unit)
	if isUniqueViolation(err) {
		return errs.Conflict("medicine", "name", m.Name)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("medicine", m.ID.String())
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM medicine WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("medicine", id.String())
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, category, query string, limit, offset int) ([]*Medicine, int, error) {
	where := ""
	args := []interface{}{}
	if category != "" {
		args = append(args, category)
		where = fmt.Sprintf(` WHERE category = $%d`, len(args))
	}
	if query != "" {
		args = append(args, query)
		clause := fmt.Sprintf(`name ILIKE '%%' || $%d || '%%'`, len(args))
		if where == "" {
			where = ` WHERE ` + clause
		} else {
			where += ` AND ` + clause
		}
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medicine`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	q := fmt.Sprintf(`SELECT `+cols+` FROM medicine%s ORDER BY name ASC LIMIT $%d OFFSET $%d`,
		where, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListLowStock(ctx context.Context) ([]*Medicine, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+cols+` FROM medicine WHERE stock_quantity <= low_stock_threshold ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *repoPG) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*Medicine, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE medicine SET stock_quantity = stock_quantity + $2, updated_at = NOW()
		WHERE id = $1 AND stock_quantity + $2 >= 0
		RETURNING `+cols, id, delta)
	m, err := scanMedicine(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the row is missing or the delta would drive stock
		// negative; disambiguate for the caller.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, errs.Invariant("stock for medicine %s cannot go below zero", id)
	}
	return m, err
}
