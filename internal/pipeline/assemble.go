package pipeline

import (
	"strings"

	"prealert/internal"
)

// PreAlertColumns is the fixed column contract of the PRE ALERT UPLOAD sheet.
// Every output row carries every column, empty where nothing resolved.
var PreAlertColumns = []string{
	"PO Txn Code",
	"PO Number",
	"Supplier Invoice No",
	"Supplier Ref Date",
	"Dell ED",
	"AWB",
	"Bill of leading date",
	"Shipping Agent",
	"From Port",
	"To Port",
	"ETS",
	"ETA",
	"Item Code",
	"Item Desc",
	"UOM",
	"Qty",
	"Unit Rate",
	"Item code as per Dell pdf",
	"Item desc as per Dell pdf",
	"Consolidation fees",
	"Orion Unit Price",
	"Matched By",
	"Chosen Code",
}

const placeholderNA = "N/A"

// BatchContext carries the per-batch values the caller supplies: the ETS
// shipment date (conventionally tomorrow, dd/mm/yyyy) and the UOM default.
type BatchContext struct {
	ETS string
	UOM string
}

// BuildPreAlertRow combines one invoice line, its match outcome and the
// document header into one contract row. Unmatched lines still produce a
// complete row; the resolution columns just stay empty.
func BuildPreAlertRow(header internal.InvoiceHeader, line internal.InvoiceLine, outcome internal.MatchOutcome, batch BatchContext) internal.PreAlertRow {
	uom := batch.UOM
	if uom == "" {
		uom = "NOS"
	}

	return internal.PreAlertRow{
		POTxnCode:        "PO",
		PONumber:         header.PONumber,
		SupplierInvNo:    header.DellOrderNo,
		SupplierRefDate:  header.InvoiceDate,
		DellED:           firstNonEmpty(header.CustomerNo, header.EDOrder, header.DellOrderNo),
		AWB:              header.ShippingMethod,
		BillOfLadingDate: placeholderNA,
		ShippingAgent:    placeholderNA,
		FromPort:         placeholderNA,
		ToPort:           placeholderNA,
		ETS:              batch.ETS,
		ETA:              "",
		ItemCode:         outcome.ResolvedCode,
		ItemDesc:         outcome.ResolvedDesc,
		UOM:              uom,
		Qty:              line.Quantity,
		UnitRate:         line.UnitPrice,
		PDFItemCode:      line.ItemCode,
		PDFItemDesc:      line.Description,
		ConsolidationFee: header.ConsolidationFee,
		OrionUnitPrice:   outcome.ResolvedPrice,
		MatchedBy:        string(outcome.MatchedBy),
		ChosenCode:       outcome.ResolvedCode,
		Highlight:        outcome.Highlight,
	}
}

func rowCells(r internal.PreAlertRow) []string {
	return []string{
		r.POTxnCode,
		r.PONumber,
		r.SupplierInvNo,
		r.SupplierRefDate,
		r.DellED,
		r.AWB,
		r.BillOfLadingDate,
		r.ShippingAgent,
		r.FromPort,
		r.ToPort,
		r.ETS,
		r.ETA,
		r.ItemCode,
		r.ItemDesc,
		r.UOM,
		r.Qty,
		r.UnitRate,
		r.PDFItemCode,
		r.PDFItemDesc,
		r.ConsolidationFee,
		r.OrionUnitPrice,
		r.MatchedBy,
		r.ChosenCode,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
