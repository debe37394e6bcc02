package billing

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hms/hms/internal/platform/errs"
)

var validKinds = map[string]bool{
	ItemMedicine:       true,
	ItemRoom:           true,
	ItemMedicalService: true,
	ItemService:        true,
}

// ItemBuilder accumulates draft lines and emits an immutable item list
// on Build. All line validation happens here; nothing downstream
// mutates posted items.
type ItemBuilder struct {
	items []InvoiceItem
	ve    *errs.ValidationError
}

func NewItemBuilder() *ItemBuilder {
	return &ItemBuilder{ve: &errs.ValidationError{}}
}

// Add validates one draft line and stages it. Errors are collected per
// line and reported together by Build.
func (b *ItemBuilder) Add(kind string, refID *uuid.UUID, name string, quantity int, unitPrice decimal.Decimal) *ItemBuilder {
	name = strings.TrimSpace(name)
	ok := true
	if !validKinds[kind] {
		b.ve.Add("kind", "unknown item kind %q", kind)
		ok = false
	}
	if name == "" {
		b.ve.Add("name", "item name must not be empty")
		ok = false
	}
	if quantity <= 0 {
		b.ve.Add("quantity", "item %q: quantity must be positive", name)
		ok = false
	}
	if unitPrice.IsNegative() {
		b.ve.Add("unit_price", "item %q: unit price must not be negative", name)
		ok = false
	}
	if !ok {
		return b
	}

	b.items = append(b.items, InvoiceItem{
		Kind:       kind,
		RefID:      refID,
		Name:       name,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		TotalPrice: unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	})
	return b
}

// Build returns the staged items, or the collected validation errors.
// The returned slice is a copy; the builder can be discarded.
func (b *ItemBuilder) Build() ([]InvoiceItem, error) {
	if b.ve.HasErrors() {
		return nil, b.ve
	}
	out := make([]InvoiceItem, len(b.items))
	copy(out, b.items)
	return out, nil
}
