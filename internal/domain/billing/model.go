package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice status values, derived from the outstanding amount and due
// date, never set directly by callers.
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusOverdue = "overdue"
)

// Invoice item kinds. Medicine and room lines carry a RefID pointing at
// the source entity; service lines do not.
const (
	ItemMedicine       = "medicine"
	ItemRoom           = "room"
	ItemMedicalService = "medical_service"
	ItemService        = "service"
)

// PaymentMethods lists the accepted values for Payment.Method.
var PaymentMethods = []string{
	"Cash", "Card", "Bank Transfer", "Mobile Banking", "Insurance", "Check",
}

// Invoice is a billing document. Monetary fields are derived: Subtotal
// from its items, ServiceCharge as 20% of the subtotal, Total as their
// sum, PaidAmount as the sum of recorded payments.
type Invoice struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	Number        string          `db:"number" json:"number"`
	PatientID     uuid.UUID       `db:"patient_id" json:"patient_id"`
	Subtotal      decimal.Decimal `db:"subtotal" json:"subtotal"`
	ServiceCharge decimal.Decimal `db:"service_charge" json:"service_charge"`
	Total         decimal.Decimal `db:"total" json:"total"`
	PaidAmount    decimal.Decimal `db:"paid_amount" json:"paid_amount"`
	Status        string          `db:"status" json:"status"`
	DueDate       *time.Time      `db:"due_date" json:"due_date,omitempty"`
	Description   string          `db:"description" json:"description"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`

	Items []InvoiceItem `db:"-" json:"items,omitempty"`
}

// Outstanding is the raw balance; negative means overpaid.
func (inv *Invoice) Outstanding() decimal.Decimal {
	return Outstanding(inv.Total, inv.PaidAmount)
}

// InvoiceItem is one billable line. Items are append-only: accrual adds
// new room lines rather than editing posted ones.
type InvoiceItem struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	InvoiceID  uuid.UUID       `db:"invoice_id" json:"invoice_id"`
	Kind       string          `db:"kind" json:"kind"`
	RefID      *uuid.UUID      `db:"ref_id" json:"ref_id,omitempty"`
	Name       string          `db:"name" json:"name"`
	Quantity   int             `db:"quantity" json:"quantity"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unit_price"`
	TotalPrice decimal.Decimal `db:"total_price" json:"total_price"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// Payment is one recorded transaction against an invoice.
type Payment struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	Number    string          `db:"number" json:"number"`
	InvoiceID uuid.UUID       `db:"invoice_id" json:"invoice_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Method    string          `db:"method" json:"method"`
	Reference string          `db:"reference" json:"reference,omitempty"`
	Notes     string          `db:"notes" json:"notes,omitempty"`
	PaidAt    time.Time       `db:"paid_at" json:"paid_at"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

func validMethod(method string) bool {
	for _, m := range PaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}
