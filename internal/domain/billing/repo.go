package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceFilter narrows invoice listings.
type InvoiceFilter struct {
	PatientID *uuid.UUID
	Status    string
	Limit     int
	Offset    int
}

// Repository abstracts invoice, item and payment persistence. Items are
// owned by their invoice (cascade delete); payments reference but do
// not own invoices.
type Repository interface {
	CreateInvoice(ctx context.Context, inv *Invoice) error
	GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)
	GetInvoiceByNumber(ctx context.Context, number string) (*Invoice, error)
	UpdateInvoiceTotals(ctx context.Context, inv *Invoice) error
	DeleteInvoice(ctx context.Context, id uuid.UUID) error
	ListInvoices(ctx context.Context, f InvoiceFilter) ([]*Invoice, int, error)

	AddItems(ctx context.Context, invoiceID uuid.UUID, items []InvoiceItem) ([]InvoiceItem, error)
	ListItems(ctx context.Context, invoiceID uuid.UUID) ([]InvoiceItem, error)

	CreatePayment(ctx context.Context, p *Payment) error
	ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error)
	ListAllPayments(ctx context.Context, limit, offset int) ([]*Payment, int, error)
	SumPayments(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error)
}
