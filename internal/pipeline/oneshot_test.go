package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestRunOneShot(t *testing.T) {
	tmp := t.TempDir()

	masterPath := filepath.Join(tmp, "master.xlsx")
	writeMasterFixture(t, masterPath, [][]any{
		{"PO Num", "Supplier Item Code", "Orion Item Code", "PI Item Desc", "Unit Rate", "Qty"},
		{"PO01100234", "210-BMFF", "IT000123", "MONITOR P2425H", "118.28", "16"},
		{"PO01100234", "AB-1234", "IT000456", "DOCK WD19S", "95.00", "4"},
	})

	invoicePath := filepath.Join(tmp, "invoice.txt")
	if err := os.WriteFile(invoicePath, []byte(sampleInvoiceText), 0o644); err != nil {
		t.Fatal(err)
	}

	outDir := filepath.Join(tmp, "out")
	written, err := RunOneShot(masterPath, 1, "text", []string{invoicePath}, BatchContext{ETS: "29/08/2026", UOM: "NOS"}, outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(written) != 1 {
		t.Fatalf("written=%d", len(written))
	}
	if filepath.Base(written[0]) != "prealert_IE100234.xlsx" {
		t.Fatalf("name=%s", filepath.Base(written[0]))
	}

	f, err := excelize.OpenFile(written[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue(sheetPreAlert, "M2"); v != "IT000123" {
		t.Fatalf("M2=%q", v)
	}
	if v, _ := f.GetCellValue(sheetPreAlert, "B2"); v != "01100234" {
		t.Fatalf("B2=%q", v)
	}
}

func writeMasterFixture(t *testing.T, path string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, value := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}
