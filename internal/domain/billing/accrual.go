package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// AccruableRoom is the slice of a room the accrual batch needs.
type AccruableRoom struct {
	ID              uuid.UUID
	Number          string
	DailyRate       decimal.Decimal
	CheckInAt       *time.Time
	ActiveInvoiceID *uuid.UUID
	LastAccruedAt   *time.Time
}

// cursor is the point charges have been posted up to.
func (r *AccruableRoom) cursor() *time.Time {
	if r.LastAccruedAt != nil {
		return r.LastAccruedAt
	}
	return r.CheckInAt
}

// RoomSource feeds the accrual batch. Implemented over the room
// repository; wired in cmd.
type RoomSource interface {
	ListOccupied(ctx context.Context) ([]AccruableRoom, error)
	// FindByActiveInvoice returns the occupied room linked to the
	// invoice, or a not-found error when no room carries it.
	FindByActiveInvoice(ctx context.Context, invoiceID uuid.UUID) (*AccruableRoom, error)
	AdvanceAccrual(ctx context.Context, roomID uuid.UUID, mark time.Time) error
}

// AccrualResult reports one batch run.
type AccrualResult struct {
	RoomsUpdated int             `json:"rooms_updated"`
	LinesPosted  int             `json:"lines_posted"`
	AmountPosted decimal.Decimal `json:"amount_posted"`
	Skipped      int             `json:"skipped"`
}

// RunAccrual posts one room-type line per whole day elapsed since each
// occupied room's accrual cursor, then recomputes the linked invoice's
// totals. Each room runs in its own transaction; a failed or
// misconfigured room is logged and skipped without stopping the batch.
// Re-running within the same day posts nothing.
func (s *Service) RunAccrual(ctx context.Context) (*AccrualResult, error) {
	if s.rooms == nil {
		return nil, fmt.Errorf("accrual: no room source configured")
	}
	rooms, err := s.rooms.ListOccupied(ctx)
	if err != nil {
		return nil, fmt.Errorf("accrual: list occupied rooms: %w", err)
	}

	now := s.now()
	res := &AccrualResult{AmountPosted: decimal.Zero}
	for _, rm := range rooms {
		lines, amount, err := s.accrueRoom(ctx, rm, now)
		if err != nil {
			log.Warn().Err(err).Str("room", rm.Number).Msg("accrual: room skipped")
			res.Skipped++
			continue
		}
		if lines > 0 {
			res.RoomsUpdated++
			res.LinesPosted += lines
			res.AmountPosted = res.AmountPosted.Add(amount)
		}
	}

	if s.activity != nil && res.LinesPosted > 0 {
		_ = s.activity.Record(ctx, "accrual_run", "Room charges accrued",
			fmt.Sprintf("%d lines across %d rooms, %s posted",
				res.LinesPosted, res.RoomsUpdated, res.AmountPosted), "", nil)
	}
	return res, nil
}

// accrueForInvoice accrues just the room linked to the given invoice,
// if any. Used when an invoice is fetched.
func (s *Service) accrueForInvoice(ctx context.Context, invoiceID uuid.UUID) error {
	rm, err := s.rooms.FindByActiveInvoice(ctx, invoiceID)
	if err != nil || rm == nil {
		// No linked room is the common case, not a fault.
		return nil
	}
	_, _, err = s.accrueRoom(ctx, *rm, s.now())
	return err
}

func (s *Service) accrueRoom(ctx context.Context, rm AccruableRoom, now time.Time) (int, decimal.Decimal, error) {
	if rm.CheckInAt == nil {
		return 0, decimal.Zero, fmt.Errorf("room %s occupied without a check-in time", rm.Number)
	}
	if rm.ActiveInvoiceID == nil {
		return 0, decimal.Zero, fmt.Errorf("room %s occupied without an active invoice", rm.Number)
	}

	cursor := *rm.cursor()
	days := int(now.Sub(cursor).Hours() / 24)
	if days <= 0 {
		return 0, decimal.Zero, nil
	}

	var amount decimal.Decimal
	err := s.tx(ctx, func(ctx context.Context) error {
		inv, err := s.repo.GetInvoice(ctx, *rm.ActiveInvoiceID)
		if err != nil {
			return err
		}

		// One distinct line per elapsed day, at the room's current
		// rate. Earlier lines keep the rate they were posted at.
		b := NewItemBuilder()
		for i := 0; i < days; i++ {
			b.Add(ItemRoom, &rm.ID, "Room "+rm.Number, 1, rm.DailyRate)
		}
		items, err := b.Build()
		if err != nil {
			return err
		}
		if _, err := s.repo.AddItems(ctx, inv.ID, items); err != nil {
			return err
		}

		all, err := s.repo.ListItems(ctx, inv.ID)
		if err != nil {
			return err
		}
		Recompute(inv, all, now)
		if err := s.repo.UpdateInvoiceTotals(ctx, inv); err != nil {
			return err
		}

		amount = Subtotal(items)
		return s.rooms.AdvanceAccrual(ctx, rm.ID, cursor.Add(time.Duration(days)*24*time.Hour))
	})
	if err != nil {
		return 0, decimal.Zero, err
	}

	if s.metrics != nil {
		s.metrics.Add("accrual_lines_posted_total", int64(days))
	}
	return days, amount, nil
}
