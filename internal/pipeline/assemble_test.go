package pipeline

import (
	"testing"

	"prealert/internal"
	"prealert/internal/master"
)

func TestBuildPreAlertRowContract(t *testing.T) {
	header := internal.InvoiceHeader{
		PONumber:         "PO100",
		InvoiceDate:      "15/01/2026",
		CustomerNo:       "CUST-7",
		DellOrderNo:      "DO-1234",
		ShippingMethod:   "AIR FREIGHT",
		ConsolidationFee: "25.00",
	}
	outcome := internal.MatchOutcome{
		Status:        internal.StatusExactSingle,
		Highlight:     internal.HighlightNone,
		MatchedBy:     internal.MatchedSupplierExact,
		ResolvedCode:  "ORN-1",
		ResolvedDesc:  "Dell Monitor",
		ResolvedPrice: "118.28",
		ResolvedQty:   "16",
	}
	row := BuildPreAlertRow(header, internal.InvoiceLine{ItemCode: "210-BMFF", Description: "Dell Pro 24", Quantity: "16", UnitPrice: "118.28"}, outcome, BatchContext{ETS: "16/01/2026"})

	cells := rowCells(row)
	if len(cells) != len(PreAlertColumns) {
		t.Fatalf("row has %d cells, contract has %d columns", len(cells), len(PreAlertColumns))
	}
	if row.POTxnCode != "PO" || row.UOM != "NOS" {
		t.Fatalf("unexpected defaults: %+v", row)
	}
	if row.BillOfLadingDate != "N/A" || row.ToPort != "N/A" {
		t.Fatal("shipment placeholders must carry the N/A sentinel")
	}
	if row.DellED != "CUST-7" {
		t.Fatalf("DellED=%q", row.DellED)
	}
	if row.ItemCode != "ORN-1" || row.ChosenCode != "ORN-1" || row.OrionUnitPrice != "118.28" {
		t.Fatalf("resolution columns wrong: %+v", row)
	}
	if row.PDFItemCode != "210-BMFF" || row.UnitRate != "118.28" {
		t.Fatalf("raw invoice columns wrong: %+v", row)
	}
}

func TestBuildPreAlertRowUnmatchedStillComplete(t *testing.T) {
	outcome := internal.MatchOutcome{
		Status:    internal.StatusUnmatched,
		Highlight: internal.HighlightRed,
		MatchedBy: internal.MatchedNone,
	}
	row := BuildPreAlertRow(internal.InvoiceHeader{PONumber: "PO9"}, internal.InvoiceLine{ItemCode: "X-1", Quantity: "1", UnitPrice: "5.00"}, outcome, BatchContext{})

	if row.ItemCode != "" || row.ItemDesc != "" || row.OrionUnitPrice != "" || row.ChosenCode != "" {
		t.Fatalf("unmatched rows must leave resolution columns empty: %+v", row)
	}
	if row.MatchedBy != "none" || row.Highlight != internal.HighlightRed {
		t.Fatalf("highlight semantics lost: %+v", row)
	}
	if len(rowCells(row)) != len(PreAlertColumns) {
		t.Fatal("unmatched rows must still carry every column")
	}
}

func TestBatchCompleteness(t *testing.T) {
	// N input lines always yield exactly N rows, matched or not.
	idx := master.BuildIndex([]internal.MasterRecord{
		{PONumber: "PO100", SupplierCode: "ABC123", MasterCode: "ORN-1", UnitPrice: "10.00", Quantity: "5"},
	})
	m := NewMatcher(idx)
	header := internal.InvoiceHeader{PONumber: "PO100"}
	lines := []internal.InvoiceLine{
		line("ABC123", "10.00", "5"),
		line("MISSING-1", "1.00", "1"),
		line("MISSING-2", "", ""),
	}

	rows := make([]internal.PreAlertRow, 0, len(lines))
	for i, l := range lines {
		outcome, _ := m.MatchLine(header.PONumber, l, i)
		rows = append(rows, BuildPreAlertRow(header, l, outcome, BatchContext{}))
	}
	if len(rows) != len(lines) {
		t.Fatalf("expected %d rows, got %d", len(lines), len(rows))
	}
	for i, r := range rows {
		if len(rowCells(r)) != len(PreAlertColumns) {
			t.Fatalf("row %d incomplete", i)
		}
	}
}
