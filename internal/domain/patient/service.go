package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/errs"
)

// NumberSource issues patient codes for registrations that do not supply
// their own.
type NumberSource interface {
	Patient() string
}

// ActivityRecorder receives audit entries. Optional; a nil recorder
// disables audit writes.
type ActivityRecorder interface {
	Record(ctx context.Context, entryType, title, description, actor string, entityID *uuid.UUID) error
}

type Service struct {
	repo     Repository
	numbers  NumberSource
	activity ActivityRecorder
}

func NewService(repo Repository, numbers NumberSource) *Service {
	return &Service{repo: repo, numbers: numbers}
}

// SetActivityRecorder attaches an optional audit trail sink.
func (s *Service) SetActivityRecorder(a ActivityRecorder) { s.activity = a }

var validGenders = map[string]bool{"male": true, "female": true, "other": true}

// Register creates a patient. A missing code is generated; a supplied
// code must be unique (the store enforces it).
func (s *Service) Register(ctx context.Context, p *Patient) error {
	ve := &errs.ValidationError{}
	if strings.TrimSpace(p.Name) == "" {
		ve.Add("name", "must not be empty")
	}
	if p.Gender != nil && !validGenders[strings.ToLower(*p.Gender)] {
		ve.Add("gender", "must be one of male, female, other")
	}
	if ve.HasErrors() {
		return ve
	}

	p.Name = strings.TrimSpace(p.Name)
	if p.Code == "" {
		p.Code = s.numbers.Patient()
	}
	p.Active = true

	if err := s.repo.Create(ctx, p); err != nil {
		return fmt.Errorf("register patient: %w", err)
	}
	if s.activity != nil {
		_ = s.activity.Record(ctx, "patient_registered", "Patient registered",
			fmt.Sprintf("%s (%s)", p.Name, p.Code), "", &p.ID)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByCode(ctx context.Context, code string) (*Patient, error) {
	return s.repo.GetByCode(ctx, code)
}

// Update changes contact and demographic fields. Identity fields are
// never touched: the stored code survives whatever the caller sends.
func (s *Service) Update(ctx context.Context, p *Patient) error {
	if strings.TrimSpace(p.Name) == "" {
		return errs.Validation("name", "must not be empty")
	}
	if p.Gender != nil && !validGenders[strings.ToLower(*p.Gender)] {
		return errs.Validation("gender", "must be one of male, female, other")
	}

	current, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	p.Code = current.Code

	if err := s.repo.Update(ctx, p); err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	return nil
}

// Deactivate retires a patient record. Records are never hard-deleted.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	if s.activity != nil {
		_ = s.activity.Record(ctx, "patient_deactivated", "Patient deactivated", "", "", &id)
	}
	return nil
}

func (s *Service) List(ctx context.Context, nameQuery string, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, nameQuery, limit, offset)
}
