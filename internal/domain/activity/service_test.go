package activity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	entries []*Entry
}

func (m *mockRepo) Append(_ context.Context, e *Entry) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockRepo) List(_ context.Context, entryType string, limit, offset int) ([]*Entry, int, error) {
	var out []*Entry
	for _, e := range m.entries {
		if entryType == "" || e.Type == entryType {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func TestRecordAndList(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	entityID := uuid.New()
	if err := svc.Record(context.Background(), "invoice_created", "Invoice created", "INV-0001", "admin", &entityID); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := svc.Record(context.Background(), "payment_recorded", "Payment recorded", "", "", nil); err != nil {
		t.Fatalf("record: %v", err)
	}

	all, total, err := svc.List(context.Background(), "", 20, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Errorf("total = %d, want 2", total)
	}

	filtered, total, err := svc.List(context.Background(), "invoice_created", 20, 0)
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if total != 1 || filtered[0].EntityID == nil || *filtered[0].EntityID != entityID {
		t.Errorf("filtered list wrong: total=%d", total)
	}
}

func TestRecordRequiresTypeAndTitle(t *testing.T) {
	svc := NewService(&mockRepo{})
	if err := svc.Record(context.Background(), "", "Title", "", "", nil); err == nil {
		t.Error("want error for empty type")
	}
	if err := svc.Record(context.Background(), "x", " ", "", "", nil); err == nil {
		t.Error("want error for empty title")
	}
}
