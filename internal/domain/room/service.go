package room

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/errs"
)

// ActivityRecorder receives audit entries. Optional; a nil recorder
// disables audit writes.
type ActivityRecorder interface {
	Record(ctx context.Context, entryType, title, description, actor string, entityID *uuid.UUID) error
}

type Service struct {
	repo     Repository
	activity ActivityRecorder
	now      func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// SetActivityRecorder attaches an optional audit trail sink.
func (s *Service) SetActivityRecorder(a ActivityRecorder) { s.activity = a }

func validate(r *Room) *errs.ValidationError {
	ve := &errs.ValidationError{}
	if strings.TrimSpace(r.Number) == "" {
		ve.Add("number", "must not be empty")
	}
	if r.DailyRate.IsNegative() {
		ve.Add("daily_rate", "must not be negative")
	}
	return ve
}

func (s *Service) Create(ctx context.Context, r *Room) error {
	if ve := validate(r); ve.HasErrors() {
		return ve
	}
	r.Number = strings.TrimSpace(r.Number)
	r.Type = strings.TrimSpace(r.Type)
	if err := s.repo.Create(ctx, r); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Room, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*Room, error) {
	return s.repo.GetByNumber(ctx, number)
}

// Update changes the room's descriptive fields and daily rate. Occupancy
// only moves through CheckIn/CheckOut. A rate change applies to future
// accrual lines only.
func (s *Service) Update(ctx context.Context, r *Room) error {
	if ve := validate(r); ve.HasErrors() {
		return ve
	}
	r.Number = strings.TrimSpace(r.Number)
	if err := s.repo.Update(ctx, r); err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if r.IsOccupied {
		return errs.Validation("room", "room %s is occupied and cannot be deleted", r.Number)
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, roomType string, limit, offset int) ([]*Room, int, error) {
	return s.repo.List(ctx, roomType, limit, offset)
}

func (s *Service) ListOccupied(ctx context.Context) ([]*Room, error) {
	return s.repo.ListOccupied(ctx)
}

// CheckIn assigns a patient to the room, optionally linking the invoice
// that will carry its daily charges. Fails with a conflict when the room
// is already occupied.
func (s *Service) CheckIn(ctx context.Context, roomID, patientID uuid.UUID, invoiceID *uuid.UUID) (*Room, error) {
	r, err := s.repo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if r.IsOccupied {
		return nil, errs.Conflict("room", "number", r.Number)
	}
	now := s.now()
	if err := s.repo.SetOccupancy(ctx, roomID, &patientID, invoiceID, &now); err != nil {
		return nil, fmt.Errorf("check in room %s: %w", r.Number, err)
	}
	if s.activity != nil {
		_ = s.activity.Record(ctx, "room_check_in", "Room check-in",
			fmt.Sprintf("room %s", r.Number), "", &roomID)
	}
	return s.repo.GetByID(ctx, roomID)
}

// CheckOut clears occupancy, the linked invoice and the accrual cursor.
func (s *Service) CheckOut(ctx context.Context, roomID uuid.UUID) (*Room, error) {
	r, err := s.repo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !r.IsOccupied {
		return nil, errs.Validation("room", "room %s is not occupied", r.Number)
	}
	if err := s.repo.SetOccupancy(ctx, roomID, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("check out room %s: %w", r.Number, err)
	}
	if s.activity != nil {
		_ = s.activity.Record(ctx, "room_check_out", "Room check-out",
			fmt.Sprintf("room %s", r.Number), "", &roomID)
	}
	return s.repo.GetByID(ctx, roomID)
}
