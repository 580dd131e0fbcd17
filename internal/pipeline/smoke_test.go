package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"prealert/internal"
	"prealert/internal/config"
	"prealert/internal/storage"
)

func TestSmokeInvoiceToXLSX(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	records := []internal.MasterRecord{
		{PONumber: "PO01100234", SupplierCode: "210-BMFF", MasterCode: "IT000123", Description: "MONITOR P2425H", UnitPrice: "118.28", Quantity: "16"},
		{PONumber: "PO01100234", SupplierCode: "AB-1234", MasterCode: "IT000456", Description: "DOCK WD19S", UnitPrice: "95.00", Quantity: "4"},
	}
	if err := db.ReplaceMasterRecords(records, "test"); err != nil {
		t.Fatal(err)
	}

	cfg, _ := config.Load()
	proc := NewProcessingService(db, cfg)

	inv := ParseInvoiceText(sampleInvoiceText)
	if len(inv.Lines) != 2 {
		t.Fatalf("lines=%d", len(inv.Lines))
	}

	matcher, err := proc.loadMatcher()
	if err != nil {
		t.Fatal(err)
	}
	stored, lines, err := proc.storeAndMatch(nil, "file", "sample.txt", "sample.txt", inv, matcher)
	if err != nil {
		t.Fatal(err)
	}
	if lines != 2 {
		t.Fatalf("processed=%d", lines)
	}
	if stored.Header.PONumber != "01100234" {
		t.Fatalf("po=%q", stored.Header.PONumber)
	}

	items, err := db.GetInvoiceLines(stored.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("items=%d", len(items))
	}
	if items[0].Outcome.Status != internal.StatusExactSingle || items[0].Outcome.ResolvedCode != "IT000123" {
		t.Fatalf("outcome=%+v", items[0].Outcome)
	}
	if items[0].Diagnostic.ExactCount != 1 {
		t.Fatalf("diagnostic=%+v", items[0].Diagnostic)
	}

	out := filepath.Join(tmp, "prealert.xlsx")
	if err := ExportPreAlertXLSX(stored.Header, items, BatchContext{ETS: "29/08/2026", UOM: cfg.DefaultUOM}, out); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatal(err)
	}

	// Re-running the same document keeps a single set of lines.
	if _, _, err := proc.storeAndMatch(nil, "file", "sample.txt", "sample.txt", inv, matcher); err != nil {
		t.Fatal(err)
	}
	items, err = db.GetInvoiceLines(stored.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("items after rerun=%d", len(items))
	}
}
