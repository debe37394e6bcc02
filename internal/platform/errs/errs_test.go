package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestValidationError_CollectsAllFields(t *testing.T) {
	e := Validation("name", "must not be empty").
		Add("unit_price", "must be a non-negative number, got %q", "abc")

	if !e.HasErrors() {
		t.Fatal("expected errors")
	}
	if len(e.Fields) != 2 {
		t.Fatalf("expected 2 field errors, got %d", len(e.Fields))
	}
	msg := e.Error()
	if !strings.Contains(msg, "name") || !strings.Contains(msg, "unit_price") {
		t.Errorf("message should mention both fields, got %q", msg)
	}
}

func TestValidationError_As(t *testing.T) {
	var err error = fmt.Errorf("create medicine: %w", Validation("category", "must not be empty"))

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatal("errors.As should unwrap ValidationError")
	}
	if ve.Fields[0].Field != "category" {
		t.Errorf("unexpected field %q", ve.Fields[0].Field)
	}
}

func TestNotFound(t *testing.T) {
	err := NotFound("invoice", "INV-42")
	if got := err.Error(); got != "invoice INV-42 not found" {
		t.Errorf("unexpected message %q", got)
	}
	if got := NotFound("patient", "").Error(); got != "patient not found" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestConflict(t *testing.T) {
	err := Conflict("medicine", "name", "Paracetamol")
	if !strings.Contains(err.Error(), "Paracetamol") {
		t.Errorf("unexpected message %q", err.Error())
	}

	var ce *ConflictError
	if !errors.As(fmt.Errorf("import row 3: %w", err), &ce) {
		t.Fatal("errors.As should unwrap ConflictError")
	}
}

func TestInvariant(t *testing.T) {
	err := Invariant("item %s: cached total 5.00 != 2 x 3.00", "Gauze")
	if !strings.Contains(err.Error(), "computation invariant violated") {
		t.Errorf("unexpected message %q", err.Error())
	}
}
