package medicine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hms/hms/internal/platform/errs"
	"github.com/hms/hms/internal/platform/metrics"
)

// ActivityRecorder receives audit entries. Optional; a nil recorder
// disables audit writes.
type ActivityRecorder interface {
	Record(ctx context.Context, entryType, title, description, actor string, entityID *uuid.UUID) error
}

type Service struct {
	repo     Repository
	activity ActivityRecorder
	metrics  *metrics.Registry
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SetActivityRecorder attaches an optional audit trail sink.
func (s *Service) SetActivityRecorder(a ActivityRecorder) { s.activity = a }

// SetMetrics attaches an optional metrics registry.
func (s *Service) SetMetrics(m *metrics.Registry) { s.metrics = m }

func (s *Service) count(name string, labels ...string) {
	if s.metrics != nil {
		s.metrics.Inc(name, labels...)
	}
}

func validate(m *Medicine) *errs.ValidationError {
	ve := &errs.ValidationError{}
	if strings.TrimSpace(m.Name) == "" {
		ve.Add("name", "must not be empty")
	}
	if m.UnitPrice.IsNegative() {
		ve.Add("unit_price", "must not be negative")
	}
	if m.BuyPrice.IsNegative() {
		ve.Add("buy_price", "must not be negative")
	}
	if m.StockQuantity < 0 {
		ve.Add("stock_quantity", "must not be negative")
	}
	if m.LowStockThreshold < 0 {
		ve.Add("low_stock_threshold", "must not be negative")
	}
	return ve
}

func applyDefaults(m *Medicine) {
	m.Name = strings.TrimSpace(m.Name)
	m.Category = strings.TrimSpace(m.Category)
	if m.LowStockThreshold == 0 {
		m.LowStockThreshold = DefaultLowStockThreshold
	}
	if strings.TrimSpace(m.Unit) == "" {
		m.Unit = DefaultUnit
	} else {
		m.Unit = strings.TrimSpace(m.Unit)
	}
}

// Create stores a new medicine. Name uniqueness is enforced by the
// store; threshold and unit fall back to defaults when absent.
func (s *Service) Create(ctx context.Context, m *Medicine) error {
	if ve := validate(m); ve.HasErrors() {
		return ve
	}
	applyDefaults(m)
	if err := s.repo.Create(ctx, m); err != nil {
		return fmt.Errorf("create medicine: %w", err)
	}
	if s.activity != nil {
		_ = s.activity.Record(ctx, "medicine_created", "Medicine added",
			fmt.Sprintf("%s (%s)", m.Name, m.Category), "", &m.ID)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, m *Medicine) error {
	if ve := validate(m); ve.HasErrors() {
		return ve
	}
	applyDefaults(m)
	// Stock only moves through AdjustStock; keep the stored quantity.
	current, err := s.repo.GetByID(ctx, m.ID)
	if err != nil {
		return err
	}
	m.StockQuantity = current.StockQuantity
	if err := s.repo.Update(ctx, m); err != nil {
		return fmt.Errorf("update medicine: %w", err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.activity != nil {
		_ = s.activity.Record(ctx, "medicine_deleted", "Medicine removed", m.Name, "", &id)
	}
	return nil
}

func (s *Service) List(ctx context.Context, category, query string, limit, offset int) ([]*Medicine, int, error) {
	return s.repo.List(ctx, category, query, limit, offset)
}

func (s *Service) ListLowStock(ctx context.Context) ([]*Medicine, error) {
	return s.repo.ListLowStock(ctx)
}

// AdjustStock moves stock by delta, rejecting any adjustment that would
// take the quantity below zero.
func (s *Service) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*Medicine, error) {
	if delta == 0 {
		return s.repo.GetByID(ctx, id)
	}
	m, err := s.repo.AdjustStock(ctx, id, delta)
	if err != nil {
		return nil, err
	}
	if delta < 0 {
		s.count("stock_dispense_total")
	}
	if s.activity != nil {
		_ = s.activity.Record(ctx, "stock_adjusted", "Stock adjusted",
			fmt.Sprintf("%s: %+d (now %d %s)", m.Name, delta, m.StockQuantity, m.Unit), "", &m.ID)
	}
	return m, nil
}

// Dispense removes quantity units of a medicine for an invoice line and
// returns its current unit price. Used by invoicing inside its own
// transaction.
func (s *Service) Dispense(ctx context.Context, id uuid.UUID, quantity int) (decimal.Decimal, error) {
	if quantity <= 0 {
		return decimal.Zero, errs.Validation("quantity", "must be positive")
	}
	m, err := s.repo.AdjustStock(ctx, id, -quantity)
	if err != nil {
		return decimal.Zero, err
	}
	s.count("stock_dispense_total")
	return m.UnitPrice, nil
}
