package master

import (
	"testing"

	"prealert/internal"
)

func TestBuildIndexBucketsDuplicates(t *testing.T) {
	records := []internal.MasterRecord{
		{PONumber: "PO100", SupplierCode: "ABC123", MasterCode: "ORN-1", UnitPrice: "10.00", Quantity: "5"},
		{PONumber: "PO 100", SupplierCode: "abc123", MasterCode: "ORN-2", UnitPrice: "12.00", Quantity: "3"},
		{PONumber: "PO200", SupplierCode: "", MasterCode: "ORN-3", UnitPrice: "7.50", Quantity: "1"},
		{PONumber: "", SupplierCode: "XYZ", MasterCode: "ORN-4", UnitPrice: "1.00", Quantity: "1"},
	}
	idx := BuildIndex(records)

	bucket := idx.Supplier[Key{PO: "100", Code: "ABC123"}]
	if len(bucket) != 2 {
		t.Fatalf("duplicate (po, supplier) rows must accumulate, got %d", len(bucket))
	}
	if bucket[0].MasterCode != "ORN-1" || bucket[1].MasterCode != "ORN-2" {
		t.Fatalf("insertion order not preserved: %+v", bucket)
	}

	// Row without a supplier code still lands in the orion and PO-wide indexes.
	if len(idx.Orion[Key{PO: "200", Code: "ORN-3"}]) != 1 {
		t.Fatal("missing orion entry for supplier-less row")
	}
	if len(idx.POPrice["200"]) != 1 {
		t.Fatal("missing po-wide entry for supplier-less row")
	}

	// Row without a PO contributes to no index.
	if len(idx.POPrice[""]) != 0 {
		t.Fatal("row without PO must be ignored")
	}
	for key := range idx.Supplier {
		if key.Code == "XYZ" {
			t.Fatal("row without PO must not reach the supplier index")
		}
	}
}

func TestSupplierFlex(t *testing.T) {
	idx := BuildIndex([]internal.MasterRecord{
		{PONumber: "PO0100", SupplierCode: "706-12539-ABC", MasterCode: "ORN-1"},
		{PONumber: "PO0100", SupplierCode: "999-00000", MasterCode: "ORN-2"},
	})

	// Shorter invoice PO and truncated code both match by prefix.
	got := idx.SupplierFlex("100", "706-12539")
	if len(got) != 1 || got[0].MasterCode != "ORN-1" {
		t.Fatalf("flex match failed: %+v", got)
	}

	if got := idx.SupplierFlex("", "706-12539"); got != nil {
		t.Fatal("empty PO must match nothing")
	}
	if got := idx.SupplierFlex("100", ""); got != nil {
		t.Fatal("empty code must match nothing")
	}
}
