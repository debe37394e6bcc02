package medicine

import (
	"context"
	"strings"
	"testing"
)

func runImport(t *testing.T, csv string) (*ImportReport, *mockRepo) {
	t.Helper()
	svc, repo := newTestService()
	report, err := svc.Import(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	return report, repo
}

func TestImportAcceptsAliasHeaders(t *testing.T) {
	csv := "medicine_name,Type,Price,Stock,Reorder Level,Unit Label\n" +
		"Paracetamol,Pain Relief,5.50,100,20,tablets\n" +
		"Ibuprofen,Pain Relief,3.25,50,,\n"
	report, repo := runImport(t, csv)

	if report.TotalRows != 2 {
		t.Errorf("total = %d, want 2", report.TotalRows)
	}
	if len(report.Valid) != 2 || len(report.Rejected) != 0 {
		t.Fatalf("valid=%d rejected=%d, want 2/0 (%v)", len(report.Valid), len(report.Rejected), report.Rejected)
	}
	if report.Created != 2 {
		t.Errorf("created = %d, want 2", report.Created)
	}

	para, err := repo.GetByName(context.Background(), "Paracetamol")
	if err != nil {
		t.Fatalf("persisted lookup: %v", err)
	}
	if para.LowStockThreshold != 20 || para.Unit != "tablets" {
		t.Errorf("threshold/unit = %d/%q, want 20/tablets", para.LowStockThreshold, para.Unit)
	}

	ibu, _ := repo.GetByName(context.Background(), "Ibuprofen")
	if ibu.LowStockThreshold != DefaultLowStockThreshold || ibu.Unit != DefaultUnit {
		t.Errorf("defaults not applied: %d/%q", ibu.LowStockThreshold, ibu.Unit)
	}
}

func TestImportMissingPriceColumnRejectsAllRows(t *testing.T) {
	csv := "Name,Category,Stock\n" +
		"Paracetamol,Pain Relief,100\n" +
		"Ibuprofen,Pain Relief,50\n"
	report, _ := runImport(t, csv)

	if len(report.Valid) != 0 || len(report.Rejected) != 2 {
		t.Fatalf("valid=%d rejected=%d, want 0/2", len(report.Valid), len(report.Rejected))
	}
	for _, rej := range report.Rejected {
		found := false
		for _, e := range rej.Errors {
			if strings.Contains(strings.ToLower(e), "price") {
				found = true
			}
		}
		if !found {
			t.Errorf("row %d: no error mentioning price: %v", rej.Row, rej.Errors)
		}
	}
}

func TestImportCollectsAllRowErrors(t *testing.T) {
	csv := "Name,Category,Unit Price,Stock Quantity\n" +
		",Pain Relief,5.5,10\n" +
		"Aspirin,,abc,-3\n"
	report, _ := runImport(t, csv)

	if report.TotalRows != 2 || len(report.Rejected) != 2 {
		t.Fatalf("total=%d rejected=%d, want 2/2", report.TotalRows, len(report.Rejected))
	}

	first := report.Rejected[0]
	if first.Row != 2 {
		t.Errorf("first data row number = %d, want 2", first.Row)
	}
	if len(first.Errors) != 1 || !strings.Contains(first.Errors[0], "name") {
		t.Errorf("row 2 errors = %v, want one referencing name", first.Errors)
	}

	second := report.Rejected[1]
	if len(second.Errors) != 3 {
		t.Errorf("row 3 errors = %v, want 3 (category, price, stock)", second.Errors)
	}
}

func TestImportRowAccounting(t *testing.T) {
	csv := "Name,Category,Unit Price,Stock\n" +
		"A,Cat,1.00,1\n" +
		",Cat,1.00,1\n" +
		"B,Cat,bad,1\n" +
		"C,Cat,2.00,2\n"
	report, _ := runImport(t, csv)

	if got := len(report.Valid) + len(report.Rejected); got != report.TotalRows {
		t.Errorf("valid+rejected = %d, want totalRows %d", got, report.TotalRows)
	}
	if report.TotalRows != 4 {
		t.Errorf("total = %d, want 4", report.TotalRows)
	}
}

func TestImportDuplicateNameFailsPersistOnly(t *testing.T) {
	svc, _ := newTestService()
	seed := &Medicine{Name: "Paracetamol", Category: "Pain Relief", UnitPrice: price("5.50")}
	if err := svc.Create(context.Background(), seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	csv := "Name,Category,Unit Price,Stock\n" +
		"Paracetamol,Pain Relief,5.50,10\n" +
		"Naproxen,Pain Relief,6.00,15\n"
	report, err := svc.Import(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	// Both rows are valid; only the duplicate fails, at persist time.
	if len(report.Valid) != 2 {
		t.Fatalf("valid = %d, want 2", len(report.Valid))
	}
	if report.Created != 1 {
		t.Errorf("created = %d, want 1", report.Created)
	}
	if len(report.Failed) != 1 || report.Failed[0].Name != "Paracetamol" {
		t.Errorf("failed = %v, want one entry for Paracetamol", report.Failed)
	}
}

func TestImportBOMAndWhitespaceTolerant(t *testing.T) {
	csv := "\ufeffName, Category ,Unit Price,Stock\n" +
		" Paracetamol , Pain Relief ,5.50, 10 \n"
	report, _ := runImport(t, csv)

	if len(report.Valid) != 1 {
		t.Fatalf("valid = %d, want 1 (%v)", len(report.Valid), report.Rejected)
	}
	if got := report.Valid[0].Medicine.Name; got != "Paracetamol" {
		t.Errorf("name = %q, want trimmed value", got)
	}
}
