package medicine

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Defaults applied when an optional field is absent, both on the API and
// in bulk imports.
const (
	DefaultLowStockThreshold = 10
	DefaultUnit              = "pieces"
)

// Medicine maps to the medicine table. UnitPrice is the sale price;
// BuyPrice the acquisition cost. Stock is mutated by manual adjustments
// and by invoice-driven dispensing.
type Medicine struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	Name              string          `db:"name" json:"name"`
	Category          string          `db:"category" json:"category"`
	UnitPrice         decimal.Decimal `db:"unit_price" json:"unit_price"`
	BuyPrice          decimal.Decimal `db:"buy_price" json:"buy_price"`
	StockQuantity     int             `db:"stock_quantity" json:"stock_quantity"`
	LowStockThreshold int             `db:"low_stock_threshold" json:"low_stock_threshold"`
	Unit              string          `db:"unit" json:"unit"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// LowStock reports whether the stock is at or below the reorder
// threshold.
func (m *Medicine) LowStock() bool {
	return m.StockQuantity <= m.LowStockThreshold
}
