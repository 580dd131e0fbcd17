package pipeline

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"prealert/internal"
	"prealert/internal/util"
)

const (
	sheetPreAlert  = "PRE ALERT UPLOAD"
	sheetReview    = "REVIEW"
	sheetComponent = "COMPONENT UPLOAD"
)

var componentColumns = []string{
	"PO Txn Code", "PO Number", "Parent Item Code", "Component Item Code", "UOM", "Qty", "Rate",
}

var reviewColumns = []string{
	"Row in PRE ALERT", "Status", "What to do now", "Why this happened",
	"Copy: Orion Code", "Copy: Qty", "Copy: Unit Price", "Orion Unit Price",
	"PO", "Supplier Item",
}

type reviewText struct {
	label   string
	action  string
	why     string
	sortKey int
}

var reviewTexts = map[internal.MatchStatus]reviewText{
	internal.StatusExactSingle:      {"OK", "Nothing to do.", "The PO and supplier item code matched exactly one Orion line.", 2},
	internal.StatusFlexSingle:       {"OK", "Nothing to do.", "Matched a single Orion line after trimming PO and code prefixes.", 2},
	internal.StatusPriceQtySingle:   {"CHECK", "Confirm the highlighted code is the right one.", "Several Orion lines share this supplier code; exactly one agreed on both price and quantity.", 1},
	internal.StatusPriceSingle:      {"CHECK", "Confirm the code and fix the quantity if needed.", "Several Orion lines share this supplier code; one agreed on price but its quantity differs.", 1},
	internal.StatusPriceMulti:       {"PICK MANUALLY", "Pick the correct code in Orion and paste it into the Item Code column.", "Several Orion lines share this supplier code and more than one agrees on price.", 1},
	internal.StatusPriceNone:        {"PICK MANUALLY", "Pick the correct code in Orion and paste it into the Item Code column.", "Several Orion lines share this supplier code and none agrees on price.", 1},
	internal.StatusOrionPriceSingle: {"VERIFY", "Verify the recovered code before uploading.", "The supplier code is not on this PO; exactly one Orion line matched by code and price.", 0},
	internal.StatusPOPriceSingle:    {"VERIFY", "Verify the recovered code before uploading.", "The supplier code is not on this PO; exactly one line on the PO matched by price alone.", 0},
	internal.StatusUnmatched:        {"ADD MANUALLY", "Find the item in Orion and fill the row by hand.", "Nothing on this PO or in Orion matched by code or price.", 0},
}

// ExportPreAlertXLSX writes the three-sheet upload workbook for one invoice:
// the PRE ALERT UPLOAD rows with highlight fills, the REVIEW sheet sorted
// worst-first, and the header-only COMPONENT UPLOAD sheet.
func ExportPreAlertXLSX(header internal.InvoiceHeader, items []internal.LineWithOutcome, batch BatchContext, outputPath string) error {
	f := excelize.NewFile()

	_ = f.SetSheetName(f.GetSheetName(0), sheetPreAlert)
	if _, err := f.NewSheet(sheetReview); err != nil {
		return err
	}
	if _, err := f.NewSheet(sheetComponent); err != nil {
		return err
	}

	redFill, err := patternFill(f, "FF0000")
	if err != nil {
		return err
	}
	yellowFill, err := patternFill(f, "FFFF00")
	if err != nil {
		return err
	}
	rowRed, err := patternFill(f, "FFE5E5")
	if err != nil {
		return err
	}
	rowYellow, err := patternFill(f, "FFFBE6")
	if err != nil {
		return err
	}
	rowGreen, err := patternFill(f, "E9FBE9")
	if err != nil {
		return err
	}
	priceOK, err := patternFill(f, "C6EFCE")
	if err != nil {
		return err
	}
	priceBad, err := patternFill(f, "FFC7CE")
	if err != nil {
		return err
	}

	writeHeaderRow(f, sheetPreAlert, PreAlertColumns)
	for i, item := range items {
		row := BuildPreAlertRow(header, item.Line, item.Outcome, batch)
		r := i + 2
		for col, value := range rowCells(row) {
			setCell(f, sheetPreAlert, col+1, r, value)
		}

		var fill int
		switch row.Highlight {
		case internal.HighlightRed:
			fill = redFill
		case internal.HighlightYellow:
			fill = yellowFill
		default:
			continue
		}
		// Item Code and Item Desc carry the signal, matching the manual
		// workflow the sheet replaces.
		fillCells(f, sheetPreAlert, 13, 14, r, fill)
	}

	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return reviewFor(items[order[a]].Outcome.Status).sortKey < reviewFor(items[order[b]].Outcome.Status).sortKey
	})

	writeHeaderRow(f, sheetReview, reviewColumns)
	for pos, idx := range order {
		item := items[idx]
		text := reviewFor(item.Outcome.Status)
		r := pos + 2

		setCell(f, sheetReview, 1, r, idx+2)
		setCell(f, sheetReview, 2, r, text.label)
		setCell(f, sheetReview, 3, r, text.action)
		setCell(f, sheetReview, 4, r, text.why)
		setCell(f, sheetReview, 5, r, item.Outcome.ResolvedCode)
		setCell(f, sheetReview, 6, r, item.Line.Quantity)
		setCell(f, sheetReview, 7, r, item.Line.UnitPrice)
		setCell(f, sheetReview, 8, r, item.Outcome.ResolvedPrice)
		setCell(f, sheetReview, 9, r, header.PONumber)
		setCell(f, sheetReview, 10, r, item.Line.ItemCode)

		var fill int
		switch item.Outcome.Highlight {
		case internal.HighlightRed:
			fill = rowRed
		case internal.HighlightYellow:
			fill = rowYellow
		default:
			fill = rowGreen
		}
		fillCells(f, sheetReview, 1, len(reviewColumns), r, fill)

		if item.Outcome.ResolvedPrice != "" {
			check := priceBad
			if util.NumbersEqual(item.Outcome.ResolvedPrice, item.Line.UnitPrice) {
				check = priceOK
			}
			fillCells(f, sheetReview, 8, 8, r, check)
		}
	}

	writeHeaderRow(f, sheetComponent, componentColumns)

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func reviewFor(status internal.MatchStatus) reviewText {
	if t, ok := reviewTexts[status]; ok {
		return t
	}
	return reviewText{"ADD MANUALLY", "Find the item in Orion and fill the row by hand.", "The line did not match.", 0}
}

func patternFill(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
	})
}

func writeHeaderRow(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		setCell(f, sheet, i+1, 1, h)
	}
}

func setCell(f *excelize.File, sheet string, col, row int, value any) {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	_ = f.SetCellValue(sheet, cell, value)
}

func fillCells(f *excelize.File, sheet string, fromCol, toCol, row, style int) {
	from, _ := excelize.CoordinatesToCellName(fromCol, row)
	to, _ := excelize.CoordinatesToCellName(toCol, row)
	_ = f.SetCellStyle(sheet, from, to, style)
}
