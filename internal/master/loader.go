package master

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"prealert/internal"
)

// DefaultHeaderRow is the 1-based row where the master export carries its
// column headers; the rows above it are report banner noise.
const DefaultHeaderRow = 9

// LoadXLSX reads the master reference table from an xlsx file. headerRow is
// 1-based; values <= 0 fall back to DefaultHeaderRow.
func LoadXLSX(path string, headerRow int) ([]internal.MasterRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return loadSheet(f, headerRow)
}

// LoadXLSXBytes is LoadXLSX over an in-memory workbook.
func LoadXLSXBytes(blob []byte, headerRow int) ([]internal.MasterRecord, error) {
	f, err := excelize.OpenReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return loadSheet(f, headerRow)
}

func loadSheet(f *excelize.File, headerRow int) ([]internal.MasterRecord, error) {
	if headerRow <= 0 {
		headerRow = DefaultHeaderRow
	}

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) < headerRow {
		return nil, fmt.Errorf("master sheet %q has no header row at row %d", sheet, headerRow)
	}

	cols, err := ResolveColumns(rows[headerRow-1])
	if err != nil {
		return nil, err
	}

	out := make([]internal.MasterRecord, 0, len(rows)-headerRow)
	for _, row := range rows[headerRow:] {
		rec := internal.MasterRecord{
			PONumber:     cell(row, cols.PO),
			SupplierCode: cell(row, cols.Supplier),
			MasterCode:   cell(row, cols.MasterCode),
			Description:  cell(row, cols.Description),
			UnitPrice:    cell(row, cols.UnitPrice),
			Quantity:     cell(row, cols.Quantity),
		}
		if rec.PONumber == "" && rec.SupplierCode == "" && rec.MasterCode == "" {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
