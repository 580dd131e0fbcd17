package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"prealert/internal"
	"prealert/internal/master"
)

// ExtractInvoiceFromInput reads one invoice document straight from disk.
func ExtractInvoiceFromInput(inputType, input string) (ExtractedInvoice, error) {
	switch inputType {
	case "pdf":
		blob, err := os.ReadFile(input)
		if err != nil {
			return ExtractedInvoice{}, err
		}
		inv, err := ParseInvoicePDF(blob)
		if err != nil {
			return ExtractedInvoice{}, err
		}
		inv.Attachment = filepath.Base(input)
		return inv, nil
	case "text":
		blob, err := os.ReadFile(input)
		if err != nil {
			return ExtractedInvoice{}, err
		}
		inv := ParseInvoiceText(string(blob))
		inv.Attachment = filepath.Base(input)
		return inv, nil
	default:
		return ExtractedInvoice{}, fmt.Errorf("unsupported input type: %s", inputType)
	}
}

// RunOneShot is the no-database path: load the reference table from an xlsx,
// match each input invoice against it and write one workbook per invoice.
// Returns the paths written.
func RunOneShot(masterPath string, headerRow int, inputType string, inputs []string, batch BatchContext, outputDir string) ([]string, error) {
	records, err := master.LoadXLSX(masterPath, headerRow)
	if err != nil {
		return nil, err
	}
	matcher := NewMatcher(master.BuildIndex(records))

	var written []string
	for _, input := range inputs {
		inv, err := ExtractInvoiceFromInput(inputType, input)
		if err != nil {
			return written, fmt.Errorf("extract %s: %w", input, err)
		}

		items := make([]internal.LineWithOutcome, 0, len(inv.Lines))
		for i, line := range inv.Lines {
			outcome, diag := matcher.MatchLine(inv.Header.PONumber, line, i)
			items = append(items, internal.LineWithOutcome{Line: line, Outcome: outcome, Diagnostic: diag})
		}

		outputPath := filepath.Join(outputDir, oneShotFileName(inv, input))
		if err := ExportPreAlertXLSX(inv.Header, items, batch, outputPath); err != nil {
			return written, fmt.Errorf("export %s: %w", input, err)
		}
		written = append(written, outputPath)
	}
	return written, nil
}

func oneShotFileName(inv ExtractedInvoice, input string) string {
	base := inv.Header.InvoiceNumber
	if base == "" {
		base = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	}
	return "prealert_" + base + ".xlsx"
}
