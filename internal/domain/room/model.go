package room

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Room is a physical resource with a daily rate. Occupancy invariant:
// IsOccupied is true exactly when CurrentPatientID is set. A room holds
// at most one active invoice; LastAccruedAt is the daily-charge cursor
// advanced by the accrual batch.
type Room struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	Number           string          `db:"number" json:"number"`
	Type             string          `db:"type" json:"type"`
	DailyRate        decimal.Decimal `db:"daily_rate" json:"daily_rate"`
	IsOccupied       bool            `db:"is_occupied" json:"is_occupied"`
	CurrentPatientID *uuid.UUID      `db:"current_patient_id" json:"current_patient_id,omitempty"`
	CheckInAt        *time.Time      `db:"check_in_at" json:"check_in_at,omitempty"`
	ActiveInvoiceID  *uuid.UUID      `db:"active_invoice_id" json:"active_invoice_id,omitempty"`
	LastAccruedAt    *time.Time      `db:"last_accrued_at" json:"last_accrued_at,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// AccrualCursor is the point daily charges have been posted up to: the
// last accrual mark when one exists, otherwise the check-in time.
func (r *Room) AccrualCursor() *time.Time {
	if r.LastAccruedAt != nil {
		return r.LastAccruedAt
	}
	return r.CheckInAt
}
