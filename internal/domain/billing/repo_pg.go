package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/errs"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns the postgres-backed billing repository.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const invoiceCols = `id, number, patient_id, subtotal, service_charge, total,
	paid_amount, status, due_date, description, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.PatientID, &inv.Subtotal,
		&inv.ServiceCharge, &inv.Total, &inv.PaidAmount, &inv.Status,
		&inv.DueDate, &inv.Description, &inv.CreatedAt, &inv.UpdatedAt)
	return &inv, err
}

func (r *repoPG) CreateInvoice(ctx context.Context, inv *Invoice) error {
	inv.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO invoice (id, number, patient_id, subtotal, service_charge,
			total, paid_amount, status, due_date, description)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		inv.ID, inv.Number, inv.PatientID, inv.Subtotal, inv.ServiceCharge,
		inv.Total, inv.PaidAmount, inv.Status, inv.DueDate, inv.Description)
	if isUniqueViolation(err) {
		return errs.Conflict("invoice", "number", inv.Number)
	}
	return err
}

func (r *repoPG) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := scanInvoice(r.conn(ctx).QueryRow(ctx,
		`SELECT `+invoiceCols+` FROM invoice WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("invoice", id.String())
	}
	return inv, err
}

func (r *repoPG) GetInvoiceByNumber(ctx context.Context, number string) (*Invoice, error) {
	inv, err := scanInvoice(r.conn(ctx).QueryRow(ctx,
		`SELECT `+invoiceCols+` FROM invoice WHERE number = $1`, number))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("invoice", number)
	}
	return inv, err
}

func (r *repoPG) UpdateInvoiceTotals(ctx context.Context, inv *Invoice) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE invoice SET subtotal=$2, service_charge=$3, total=$4,
			paid_amount=$5, status=$6, updated_at=NOW()
		WHERE id = $1`,
		inv.ID, inv.Subtotal, inv.ServiceCharge, inv.Total, inv.PaidAmount, inv.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("invoice", inv.ID.String())
	}
	return nil
}

func (r *repoPG) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	// invoice_item rows go with it via ON DELETE CASCADE.
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM invoice WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("invoice", id.String())
	}
	return nil
}

func (r *repoPG) ListInvoices(ctx context.Context, f InvoiceFilter) ([]*Invoice, int, error) {
	where := ""
	args := []interface{}{}
	if f.PatientID != nil {
		args = append(args, *f.PatientID)
		where = fmt.Sprintf(` WHERE patient_id = $%d`, len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		clause := fmt.Sprintf(`status = $%d`, len(args))
		if where == "" {
			where = ` WHERE ` + clause
		} else {
			where += ` AND ` + clause
		}
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM invoice`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	q := fmt.Sprintf(`SELECT `+invoiceCols+` FROM invoice%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, n+1, n+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, inv)
	}
	return items, total, rows.Err()
}

const itemCols = `id, invoice_id, kind, ref_id, name, quantity, unit_price, total_price, created_at`

func scanItem(row pgx.Row) (InvoiceItem, error) {
	var it InvoiceItem
	err := row.Scan(&it.ID, &it.InvoiceID, &it.Kind, &it.RefID, &it.Name,
		&it.Quantity, &it.UnitPrice, &it.TotalPrice, &it.CreatedAt)
	return it, err
}

func (r *repoPG) AddItems(ctx context.Context, invoiceID uuid.UUID, items []InvoiceItem) ([]InvoiceItem, error) {
	out := make([]InvoiceItem, 0, len(items))
	for _, it := range items {
		it.ID = uuid.New()
		it.InvoiceID = invoiceID
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO invoice_item (id, invoice_id, kind, ref_id, name,
				quantity, unit_price, total_price)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			it.ID, it.InvoiceID, it.Kind, it.RefID, it.Name,
			it.Quantity, it.UnitPrice, it.TotalPrice)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}

func (r *repoPG) ListItems(ctx context.Context, invoiceID uuid.UUID) ([]InvoiceItem, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+itemCols+` FROM invoice_item WHERE invoice_id = $1 ORDER BY created_at ASC`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []InvoiceItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const paymentCols = `id, number, invoice_id, amount, method, reference, notes, paid_at, created_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.Number, &p.InvoiceID, &p.Amount, &p.Method,
		&p.Reference, &p.Notes, &p.PaidAt, &p.CreatedAt)
	return &p, err
}

func (r *repoPG) CreatePayment(ctx context.Context, p *Payment) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO payment (id, number, invoice_id, amount, method, reference, notes, paid_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.Number, p.InvoiceID, p.Amount, p.Method, p.Reference, p.Notes, p.PaidAt)
	if isUniqueViolation(err) {
		return errs.Conflict("payment", "number", p.Number)
	}
	return err
}

func (r *repoPG) ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+paymentCols+` FROM payment WHERE invoice_id = $1 ORDER BY paid_at ASC`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *repoPG) ListAllPayments(ctx context.Context, limit, offset int) ([]*Payment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM payment`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+paymentCols+` FROM payment ORDER BY paid_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) SumPayments(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payment WHERE invoice_id = $1`, invoiceID).Scan(&sum)
	return sum, err
}
