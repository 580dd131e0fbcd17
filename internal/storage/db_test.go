package storage

import (
	"path/filepath"
	"testing"

	"prealert/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestReplaceMasterRecords(t *testing.T) {
	db := openTestDB(t)

	first := []internal.MasterRecord{
		{PONumber: "PO100", SupplierCode: "A", MasterCode: "IT1", UnitPrice: "10", Quantity: "1"},
		{PONumber: "PO100", SupplierCode: "A", MasterCode: "IT2", UnitPrice: "20", Quantity: "2"},
	}
	if err := db.ReplaceMasterRecords(first, "xlsx:test"); err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceMasterRecords(first[:1], "orion-api"); err != nil {
		t.Fatal(err)
	}

	records, err := db.ListMasterRecords()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("len=%d", len(records))
	}

	if err := db.AppendMasterRecords(first[1:], "orion-api"); err != nil {
		t.Fatal(err)
	}
	records, err = db.ListMasterRecords()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("after append len=%d", len(records))
	}
	if records[1].MasterCode != "IT2" {
		t.Fatalf("order not preserved: %+v", records)
	}
}

func TestInvoiceLifecycle(t *testing.T) {
	db := openTestDB(t)

	header := internal.InvoiceHeader{PONumber: "01100234", InvoiceNumber: "IE1", DellOrderNo: "807"}
	inv, err := db.UpsertInvoice(nil, "file", "sample.pdf", "hash1", "/tmp/sample.pdf", "extracted", header)
	if err != nil {
		t.Fatal(err)
	}
	if inv.ID == 0 || inv.MessageID != nil {
		t.Fatalf("inv=%+v", inv)
	}

	line := internal.InvoiceLine{LineNo: 1, Source: internal.SourcePDF, ItemCode: "210-BMFF", Quantity: "16", UnitPrice: "118.28", RawLine: "raw"}
	lineID, err := db.InsertInvoiceLine(inv.ID, line)
	if err != nil {
		t.Fatal(err)
	}
	outcome := internal.MatchOutcome{
		Status: internal.StatusExactSingle, Highlight: internal.HighlightNone,
		MatchedBy: internal.MatchedSupplierExact, ResolvedCode: "IT1",
	}
	diag := internal.Diagnostic{PO: "01100234", SupplierCode: "210-BMFF", Matched: true, ExactCount: 1, Trace: []string{"exact hit"}}
	if err := db.InsertOutcome(lineID, outcome, diag); err != nil {
		t.Fatal(err)
	}

	items, err := db.GetInvoiceLines(inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("items=%d", len(items))
	}
	if items[0].Outcome != outcome {
		t.Fatalf("outcome=%+v", items[0].Outcome)
	}
	if items[0].Diagnostic.ExactCount != 1 || len(items[0].Diagnostic.Trace) != 1 {
		t.Fatalf("diag=%+v", items[0].Diagnostic)
	}

	// Same provider/sourceRef/hash resolves to the same invoice.
	again, err := db.UpsertInvoice(nil, "file", "sample.pdf", "hash1", "/tmp/sample.pdf", "extracted", header)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != inv.ID {
		t.Fatalf("dedupe broken: %d vs %d", again.ID, inv.ID)
	}

	if err := db.ClearInvoiceProcessing(inv.ID); err != nil {
		t.Fatal(err)
	}
	items, err = db.GetInvoiceLines(inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Fatalf("items after clear=%d", len(items))
	}

	if err := db.UpdateInvoiceStatus(inv.ID, "exported"); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetInvoiceByID(inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Status != "exported" {
		t.Fatalf("got=%+v", got)
	}
}

func TestMessagesAndMetadata(t *testing.T) {
	db := openTestDB(t)

	msg, err := db.UpsertMessage("gmail", "<m1@example.com>", "Dell Invoice", "billing@example.com", "2026-08-27T00:00:00Z", "h1", "/tmp/m1.eml", "fetched")
	if err != nil {
		t.Fatal(err)
	}
	pending, err := db.ListMessagesByStatus("fetched", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != msg.ID {
		t.Fatalf("pending=%+v", pending)
	}
	if err := db.UpdateMessageStatus(msg.ID, "processed"); err != nil {
		t.Fatal(err)
	}
	pending, err = db.ListMessagesByStatus("fetched", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending after update=%d", len(pending))
	}

	if err := db.SetMetadata("master.last_full_sync", "2026-08-28T10:00:00Z"); err != nil {
		t.Fatal(err)
	}
	v, err := db.GetMetadata("master.last_full_sync")
	if err != nil {
		t.Fatal(err)
	}
	if v == nil || *v != "2026-08-28T10:00:00Z" {
		t.Fatalf("metadata=%v", v)
	}
	if v, _ := db.GetMetadata("missing"); v != nil {
		t.Fatalf("expected nil, got %v", v)
	}
}
