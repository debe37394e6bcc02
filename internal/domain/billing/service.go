package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hms/hms/internal/platform/errs"
	"github.com/hms/hms/internal/platform/metrics"
)

// NumberSource issues invoice and payment document numbers.
type NumberSource interface {
	Invoice() string
	Payment() string
}

// Dispenser removes stock for a medicine line and returns the current
// unit price. Implemented by the medicine service; wired in cmd.
type Dispenser interface {
	Dispense(ctx context.Context, medicineID uuid.UUID, quantity int) (decimal.Decimal, error)
}

// ActivityRecorder receives audit entries. Optional; a nil recorder
// disables audit writes.
type ActivityRecorder interface {
	Record(ctx context.Context, entryType, title, description, actor string, entityID *uuid.UUID) error
}

// TxRunner executes fn within one storage transaction. The default
// runner is a passthrough; cmd wires db.WithTx over the live pool.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	repo      Repository
	numbers   NumberSource
	tx        TxRunner
	dispenser Dispenser
	rooms     RoomSource
	activity  ActivityRecorder
	metrics   *metrics.Registry
	now       func() time.Time
}

func NewService(repo Repository, numbers NumberSource) *Service {
	return &Service{
		repo:    repo,
		numbers: numbers,
		tx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return fn(ctx)
		},
		now: time.Now,
	}
}

// SetTxRunner replaces the transaction runner.
func (s *Service) SetTxRunner(tx TxRunner) { s.tx = tx }

// SetDispenser attaches the stock-decrementing collaborator for
// medicine lines.
func (s *Service) SetDispenser(d Dispenser) { s.dispenser = d }

// SetRoomSource attaches the occupied-room source used by accrual.
func (s *Service) SetRoomSource(r RoomSource) { s.rooms = r }

// SetActivityRecorder attaches an optional audit trail sink.
func (s *Service) SetActivityRecorder(a ActivityRecorder) { s.activity = a }

// SetMetrics attaches an optional metrics registry.
func (s *Service) SetMetrics(m *metrics.Registry) { s.metrics = m }

func (s *Service) count(name string, labels ...string) {
	if s.metrics != nil {
		s.metrics.Inc(name, labels...)
	}
}

// ItemInput is one draft line on an invoice request.
type ItemInput struct {
	Kind      string          `json:"kind"`
	RefID     *uuid.UUID      `json:"ref_id,omitempty"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CreateInvoiceInput is the invoice creation request.
type CreateInvoiceInput struct {
	PatientID   uuid.UUID   `json:"patient_id"`
	DueDate     *time.Time  `json:"due_date,omitempty"`
	Description string      `json:"description"`
	Items       []ItemInput `json:"items"`
}

// CreateInvoice stores an invoice and its items atomically. Medicine
// lines with a RefID are dispensed from stock in the same transaction;
// a line's price falls back to the medicine's current unit price when
// the request leaves it zero. An invoice with no items is legal and is
// immediately paid.
func (s *Service) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (*Invoice, error) {
	if in.PatientID == uuid.Nil {
		return nil, errs.Validation("patient_id", "is required")
	}

	var inv *Invoice
	err := s.tx(ctx, func(ctx context.Context) error {
		b := NewItemBuilder()
		for _, it := range in.Items {
			price := it.UnitPrice
			if it.Kind == ItemMedicine && it.RefID != nil && s.dispenser != nil {
				current, err := s.dispenser.Dispense(ctx, *it.RefID, it.Quantity)
				if err != nil {
					return err
				}
				if price.IsZero() {
					price = current
				}
			}
			b.Add(it.Kind, it.RefID, it.Name, it.Quantity, price)
		}
		items, err := b.Build()
		if err != nil {
			return err
		}

		inv = &Invoice{
			Number:      s.numbers.Invoice(),
			PatientID:   in.PatientID,
			PaidAmount:  decimal.Zero,
			DueDate:     in.DueDate,
			Description: strings.TrimSpace(in.Description),
		}
		Recompute(inv, items, s.now())
		if err := s.repo.CreateInvoice(ctx, inv); err != nil {
			return err
		}
		stored, err := s.repo.AddItems(ctx, inv.ID, items)
		if err != nil {
			return err
		}
		inv.Items = stored
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	s.count("invoices_created_total")
	if s.activity != nil {
		_ = s.activity.Record(ctx, "invoice_created", "Invoice created",
			fmt.Sprintf("%s: total %s", inv.Number, inv.Total), "", &inv.ID)
	}
	return inv, nil
}

// GetInvoice loads an invoice with its items, first posting any daily
// room charges that have come due for a room linked to it.
func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	if s.rooms != nil {
		if err := s.accrueForInvoice(ctx, id); err != nil {
			log.Warn().Err(err).Str("invoice_id", id.String()).
				Msg("opportunistic accrual failed")
		}
	}

	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if err := VerifyItem(&items[i]); err != nil {
			log.Error().Err(err).Str("invoice", inv.Number).Msg("stored item fails verification")
			return nil, err
		}
	}
	inv.Items = items
	return inv, nil
}

func (s *Service) GetInvoiceByNumber(ctx context.Context, number string) (*Invoice, error) {
	inv, err := s.repo.GetInvoiceByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, inv.ID)
}

func (s *Service) ListInvoices(ctx context.Context, f InvoiceFilter) ([]*Invoice, int, error) {
	return s.repo.ListInvoices(ctx, f)
}

func (s *Service) ListItems(ctx context.Context, invoiceID uuid.UUID) ([]InvoiceItem, error) {
	if _, err := s.repo.GetInvoice(ctx, invoiceID); err != nil {
		return nil, err
	}
	return s.repo.ListItems(ctx, invoiceID)
}

// DeleteInvoice removes an invoice and its items. Refused once any
// payment has been recorded.
func (s *Service) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return err
	}
	payments, err := s.repo.ListPayments(ctx, id)
	if err != nil {
		return err
	}
	if len(payments) > 0 {
		return errs.Conflict("invoice", "payments", inv.Number)
	}
	return s.repo.DeleteInvoice(ctx, id)
}

// PaymentInput is the payment recording request.
type PaymentInput struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Reference string          `json:"reference"`
	Notes     string          `json:"notes"`
}

// RecordPayment stores the payment and refreshes the invoice's paid
// amount and status in one transaction.
func (s *Service) RecordPayment(ctx context.Context, invoiceID uuid.UUID, in PaymentInput) (*Payment, error) {
	ve := &errs.ValidationError{}
	if !in.Amount.IsPositive() {
		ve.Add("amount", "must be positive")
	}
	if !validMethod(in.Method) {
		ve.Add("method", "must be one of %s", strings.Join(PaymentMethods, ", "))
	}
	if ve.HasErrors() {
		return nil, ve
	}

	var payment *Payment
	err := s.tx(ctx, func(ctx context.Context) error {
		inv, err := s.repo.GetInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}

		payment = &Payment{
			Number:    s.numbers.Payment(),
			InvoiceID: invoiceID,
			Amount:    in.Amount,
			Method:    in.Method,
			Reference: strings.TrimSpace(in.Reference),
			Notes:     strings.TrimSpace(in.Notes),
			PaidAt:    s.now(),
		}
		if err := s.repo.CreatePayment(ctx, payment); err != nil {
			return err
		}

		paid, err := s.repo.SumPayments(ctx, invoiceID)
		if err != nil {
			return err
		}
		inv.PaidAmount = paid
		inv.Status = ClassifyStatus(inv.Outstanding(), inv.DueDate, s.now())
		return s.repo.UpdateInvoiceTotals(ctx, inv)
	})
	if err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	s.count("payments_recorded_total")
	if s.activity != nil {
		_ = s.activity.Record(ctx, "payment_recorded", "Payment recorded",
			fmt.Sprintf("%s: %s via %s", payment.Number, payment.Amount, payment.Method),
			"", &payment.InvoiceID)
	}
	return payment, nil
}

func (s *Service) ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error) {
	if _, err := s.repo.GetInvoice(ctx, invoiceID); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, invoiceID)
}

func (s *Service) ListAllPayments(ctx context.Context, limit, offset int) ([]*Payment, int, error) {
	return s.repo.ListAllPayments(ctx, limit, offset)
}
