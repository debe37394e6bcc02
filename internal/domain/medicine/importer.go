package medicine

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hms/hms/internal/platform/spreadsheet"
)

// Header aliases accepted for each import column. Matching is
// case-insensitive (spreadsheet.FindColumn).
var (
	aliasName      = []string{"Name", "Medicine Name", "medicine_name"}
	aliasCategory  = []string{"Category", "Type"}
	aliasUnitPrice = []string{"Unit Price", "unitPrice", "Price", "Sale Price"}
	aliasBuyPrice  = []string{"Buy Price", "buyPrice", "Cost", "Cost Price"}
	aliasStock     = []string{"Stock Quantity", "Stock", "Quantity", "stock_quantity"}
	aliasThreshold = []string{"Low Stock Threshold", "Threshold", "Reorder Level"}
	aliasUnit      = []string{"Unit", "Unit Label"}
)

// ValidRow is a data row that passed validation and is ready to persist.
type ValidRow struct {
	Row      int       `json:"row"`
	Medicine *Medicine `json:"data"`
}

// RejectedRow carries every validation failure found on one data row.
type RejectedRow struct {
	Row    int               `json:"row"`
	Data   map[string]string `json:"data"`
	Errors []string          `json:"errors"`
}

// PersistFailure records a valid row that could not be stored, usually a
// duplicate name.
type PersistFailure struct {
	Row   int    `json:"row"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// ImportReport is the outcome of a bulk import. Valid and Rejected
// together account for every data row; Created and Failed together
// account for every valid row once persistence has run.
type ImportReport struct {
	TotalRows int              `json:"total_rows"`
	Valid     []ValidRow       `json:"valid_medicines"`
	Rejected  []RejectedRow    `json:"errors"`
	Created   int              `json:"created"`
	Failed    []PersistFailure `json:"persist_failures,omitempty"`
}

type importColumns struct {
	name, category, unitPrice, buyPrice, stock, threshold, unit int
}

func resolveColumns(t *spreadsheet.Table) importColumns {
	return importColumns{
		name:      t.FindColumn(aliasName...),
		category:  t.FindColumn(aliasCategory...),
		unitPrice: t.FindColumn(aliasUnitPrice...),
		buyPrice:  t.FindColumn(aliasBuyPrice...),
		stock:     t.FindColumn(aliasStock...),
		threshold: t.FindColumn(aliasThreshold...),
		unit:      t.FindColumn(aliasUnit...),
	}
}

// validateRow builds a candidate medicine from one data row, collecting
// every field error rather than stopping at the first.
func validateRow(t *spreadsheet.Table, cols importColumns, rowIdx int) (*Medicine, []string) {
	var errors []string
	m := &Medicine{LowStockThreshold: DefaultLowStockThreshold, Unit: DefaultUnit}

	m.Name = strings.TrimSpace(t.Cell(rowIdx, cols.name))
	if cols.name < 0 || m.Name == "" {
		errors = append(errors, "name is required")
	}

	m.Category = strings.TrimSpace(t.Cell(rowIdx, cols.category))
	if cols.category < 0 || m.Category == "" {
		errors = append(errors, "category is required")
	}

	if cols.unitPrice < 0 {
		errors = append(errors, "unit price column is missing")
	} else {
		raw := strings.TrimSpace(t.Cell(rowIdx, cols.unitPrice))
		price, err := decimal.NewFromString(raw)
		switch {
		case raw == "" || err != nil:
			errors = append(errors, fmt.Sprintf("unit price %q is not a valid number", raw))
		case price.IsNegative():
			errors = append(errors, "unit price must not be negative")
		default:
			m.UnitPrice = price
		}
	}

	if cols.buyPrice >= 0 {
		if raw := strings.TrimSpace(t.Cell(rowIdx, cols.buyPrice)); raw != "" {
			price, err := decimal.NewFromString(raw)
			if err != nil || price.IsNegative() {
				errors = append(errors, fmt.Sprintf("buy price %q is not a valid non-negative number", raw))
			} else {
				m.BuyPrice = price
			}
		}
	}

	if cols.stock < 0 {
		errors = append(errors, "stock quantity column is missing")
	} else {
		raw := strings.TrimSpace(t.Cell(rowIdx, cols.stock))
		qty, err := strconv.Atoi(raw)
		if err != nil || qty < 0 {
			errors = append(errors, fmt.Sprintf("stock quantity %q is not a valid non-negative integer", raw))
		} else {
			m.StockQuantity = qty
		}
	}

	if cols.threshold >= 0 {
		if raw := strings.TrimSpace(t.Cell(rowIdx, cols.threshold)); raw != "" {
			th, err := strconv.Atoi(raw)
			if err != nil || th <= 0 {
				errors = append(errors, fmt.Sprintf("low stock threshold %q is not a valid positive integer", raw))
			} else {
				m.LowStockThreshold = th
			}
		}
	}

	if cols.unit >= 0 {
		if raw := strings.TrimSpace(t.Cell(rowIdx, cols.unit)); raw != "" {
			m.Unit = raw
		}
	}

	return m, errors
}

func rowData(t *spreadsheet.Table, rowIdx int) map[string]string {
	data := make(map[string]string, len(t.Headers))
	for col, h := range t.Headers {
		data[h] = t.Cell(rowIdx, col)
	}
	return data
}

// Import parses a CSV upload, validates every data row, and persists the
// valid candidates. A row that fails validation or persistence never
// blocks the remaining rows.
func (s *Service) Import(ctx context.Context, r io.Reader) (*ImportReport, error) {
	t, err := spreadsheet.ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}

	cols := resolveColumns(t)
	report := &ImportReport{TotalRows: len(t.Rows)}

	for i := range t.Rows {
		m, rowErrs := validateRow(t, cols, i)
		if len(rowErrs) > 0 {
			report.Rejected = append(report.Rejected, RejectedRow{
				Row:    t.RowNumber(i),
				Data:   rowData(t, i),
				Errors: rowErrs,
			})
			s.count("import_rows_total", "outcome", "rejected")
			continue
		}
		report.Valid = append(report.Valid, ValidRow{Row: t.RowNumber(i), Medicine: m})
		s.count("import_rows_total", "outcome", "valid")
	}

	for _, v := range report.Valid {
		if err := s.repo.Create(ctx, v.Medicine); err != nil {
			log.Warn().Err(err).Int("row", v.Row).Str("name", v.Medicine.Name).
				Msg("import: persist failed")
			report.Failed = append(report.Failed, PersistFailure{
				Row:   v.Row,
				Name:  v.Medicine.Name,
				Error: err.Error(),
			})
			continue
		}
		report.Created++
	}

	if s.activity != nil {
		_ = s.activity.Record(ctx, "medicines_imported", "Medicines imported",
			fmt.Sprintf("%d rows: %d created, %d rejected, %d failed",
				report.TotalRows, report.Created, len(report.Rejected), len(report.Failed)),
			"", nil)
	}
	return report, nil
}
