package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"prealert/internal"
)

func TestExportPreAlertXLSX(t *testing.T) {
	header := internal.InvoiceHeader{
		PONumber:    "01100234",
		DellOrderNo: "807654321",
		InvoiceDate: "12/08/2026",
		CustomerNo:  "555123",
	}
	items := []internal.LineWithOutcome{
		{
			Line: internal.InvoiceLine{LineNo: 1, ItemCode: "210-BMFF", Description: "Monitor", Quantity: "16", UnitPrice: "118.28"},
			Outcome: internal.MatchOutcome{
				Status: internal.StatusExactSingle, Highlight: internal.HighlightNone,
				MatchedBy: internal.MatchedSupplierExact, ResolvedCode: "IT000123", ResolvedDesc: "MONITOR P2425H", ResolvedPrice: "118.28",
			},
		},
		{
			Line:    internal.InvoiceLine{LineNo: 2, ItemCode: "AB-1234", Description: "Dock", Quantity: "4", UnitPrice: "95.00"},
			Outcome: internal.MatchOutcome{Status: internal.StatusUnmatched, Highlight: internal.HighlightRed, MatchedBy: internal.MatchedNone},
		},
		{
			Line: internal.InvoiceLine{LineNo: 3, ItemCode: "CD-9", Description: "Cable", Quantity: "2", UnitPrice: "5.00"},
			Outcome: internal.MatchOutcome{
				Status: internal.StatusPriceQtySingle, Highlight: internal.HighlightYellow,
				MatchedBy: internal.MatchedSupplierPriceQty, ResolvedCode: "IT000777", ResolvedPrice: "5.00",
			},
		},
	}

	out := filepath.Join(t.TempDir(), "prealert.xlsx")
	if err := ExportPreAlertXLSX(header, items, BatchContext{ETS: "29/08/2026", UOM: "NOS"}, out); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	for _, sheet := range []string{sheetPreAlert, sheetReview, sheetComponent} {
		if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
			t.Fatalf("missing sheet %q", sheet)
		}
	}

	if v, _ := f.GetCellValue(sheetPreAlert, "A1"); v != "PO Txn Code" {
		t.Fatalf("A1=%q", v)
	}
	if v, _ := f.GetCellValue(sheetPreAlert, "A2"); v != "PO" {
		t.Fatalf("A2=%q", v)
	}
	// Item Code column holds the resolved Orion code, not the invoice code.
	if v, _ := f.GetCellValue(sheetPreAlert, "M2"); v != "IT000123" {
		t.Fatalf("M2=%q", v)
	}
	if v, _ := f.GetCellValue(sheetPreAlert, "M3"); v != "" {
		t.Fatalf("M3=%q", v)
	}
	if v, _ := f.GetCellValue(sheetPreAlert, "R3"); v != "AB-1234" {
		t.Fatalf("R3=%q", v)
	}

	// Worst rows first: the red unmatched line, then yellow, then green.
	if v, _ := f.GetCellValue(sheetReview, "A2"); v != "3" {
		t.Fatalf("review A2=%q", v)
	}
	if v, _ := f.GetCellValue(sheetReview, "B2"); v != "ADD MANUALLY" {
		t.Fatalf("review B2=%q", v)
	}
	if v, _ := f.GetCellValue(sheetReview, "B3"); v != "CHECK" {
		t.Fatalf("review B3=%q", v)
	}
	if v, _ := f.GetCellValue(sheetReview, "B4"); v != "OK" {
		t.Fatalf("review B4=%q", v)
	}

	if v, _ := f.GetCellValue(sheetComponent, "A1"); v != "PO Txn Code" {
		t.Fatalf("component A1=%q", v)
	}
	if v, _ := f.GetCellValue(sheetComponent, "A2"); v != "" {
		t.Fatalf("component should be header-only, A2=%q", v)
	}
}
