package room

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository abstracts room persistence.
type Repository interface {
	Create(ctx context.Context, r *Room) error
	GetByID(ctx context.Context, id uuid.UUID) (*Room, error)
	GetByNumber(ctx context.Context, number string) (*Room, error)
	Update(ctx context.Context, r *Room) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, roomType string, limit, offset int) ([]*Room, int, error)
	ListOccupied(ctx context.Context) ([]*Room, error)
	// SetOccupancy writes the occupancy block as one unit: patient,
	// check-in time, active invoice and accrual cursor.
	SetOccupancy(ctx context.Context, id uuid.UUID, patientID, invoiceID *uuid.UUID, checkInAt *time.Time) error
	// AdvanceAccrual moves the daily-charge cursor forward.
	AdvanceAccrual(ctx context.Context, id uuid.UUID, lastAccruedAt time.Time) error
}
