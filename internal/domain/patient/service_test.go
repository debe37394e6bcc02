package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/errs"
)

// -- Mock repository --

type mockRepo struct {
	items map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	for _, existing := range m.items {
		if existing.Code == p.Code {
			return errs.Conflict("patient", "code", p.Code)
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.items[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, errs.NotFound("patient", id.String())
	}
	return p, nil
}

func (m *mockRepo) GetByCode(_ context.Context, code string) (*Patient, error) {
	for _, p := range m.items {
		if p.Code == code {
			return p, nil
		}
	}
	return nil, errs.NotFound("patient", code)
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.items[p.ID]; !ok {
		return errs.NotFound("patient", p.ID.String())
	}
	m.items[p.ID] = p
	return nil
}

func (m *mockRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	p, ok := m.items[id]
	if !ok {
		return errs.NotFound("patient", id.String())
	}
	p.Active = active
	return nil
}

func (m *mockRepo) List(_ context.Context, nameQuery string, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.items {
		if nameQuery == "" || strings.Contains(strings.ToLower(p.Name), strings.ToLower(nameQuery)) {
			result = append(result, p)
		}
	}
	return result, len(result), nil
}

type fakeNumbers struct{ n int }

func (f *fakeNumbers) Patient() string {
	f.n++
	return fmt.Sprintf("PAT-%04d", f.n)
}

func newTestService() *Service {
	return NewService(newMockRepo(), &fakeNumbers{})
}

// -- Tests --

func TestRegister_GeneratesCode(t *testing.T) {
	svc := newTestService()
	p := &Patient{Name: "  Ayesha Rahman  "}
	if err := svc.Register(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	if p.Code != "PAT-0001" {
		t.Errorf("code = %q", p.Code)
	}
	if p.Name != "Ayesha Rahman" {
		t.Errorf("name not trimmed: %q", p.Name)
	}
	if !p.Active {
		t.Error("new patient should be active")
	}
}

func TestRegister_RequiresName(t *testing.T) {
	svc := newTestService()
	err := svc.Register(context.Background(), &Patient{Name: "   "})

	var ve *errs.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ve.Fields[0].Field != "name" {
		t.Errorf("field = %q", ve.Fields[0].Field)
	}
}

func TestRegister_RejectsUnknownGender(t *testing.T) {
	svc := newTestService()
	g := "unknown"
	err := svc.Register(context.Background(), &Patient{Name: "X", Gender: &g})
	var ve *errs.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRegister_DuplicateCode(t *testing.T) {
	svc := newTestService()
	if err := svc.Register(context.Background(), &Patient{Name: "A", Code: "PAT-X"}); err != nil {
		t.Fatal(err)
	}
	err := svc.Register(context.Background(), &Patient{Name: "B", Code: "PAT-X"})
	var ce *errs.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUpdate_PreservesCode(t *testing.T) {
	svc := newTestService()
	p := &Patient{Name: "Original"}
	if err := svc.Register(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	phone := "555-0100"
	upd := &Patient{ID: p.ID, Name: "Renamed", Code: "PAT-FORGED", Phone: &phone}
	if err := svc.Update(context.Background(), upd); err != nil {
		t.Fatal(err)
	}
	if upd.Code != p.Code {
		t.Errorf("update must not change code: got %q, want %q", upd.Code, p.Code)
	}

	got, err := svc.Get(context.Background(), p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Renamed" || got.Phone == nil || *got.Phone != "555-0100" {
		t.Errorf("update not applied: %+v", got)
	}
}

func TestDeactivate(t *testing.T) {
	svc := newTestService()
	p := &Patient{Name: "Leaving"}
	if err := svc.Register(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	if err := svc.Deactivate(context.Background(), p.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := svc.Get(context.Background(), p.ID)
	if got.Active {
		t.Error("patient should be inactive")
	}
}

func TestDeactivate_NotFound(t *testing.T) {
	svc := newTestService()
	err := svc.Deactivate(context.Background(), uuid.New())
	var nf *errs.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}
