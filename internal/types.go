package internal

type LineSource string

const (
	SourcePDF       LineSource = "pdf"
	SourceHTMLTable LineSource = "html_table"
	SourceText      LineSource = "text"
)

// InvoiceLine is one item row as it appears on the supplier invoice.
// All values are the raw extracted text; quantity and unit price may carry
// thousands separators.
type InvoiceLine struct {
	LineNo      int
	Source      LineSource
	ItemCode    string
	Description string
	Quantity    string
	UnitPrice   string
	Amount      string
	RawLine     string
}

// InvoiceHeader holds the document-level fields extracted from a Dell invoice.
type InvoiceHeader struct {
	PONumber         string
	InvoiceNumber    string
	InvoiceDate      string
	CustomerNo       string
	DellOrderNo      string
	ShippingMethod   string
	EDOrder          string
	ConsolidationFee string
}

// MasterRecord is one reference-table row. Multiple records may share the
// same (po, supplier_code) key; duplicates are meaningful.
type MasterRecord struct {
	PONumber     string
	SupplierCode string
	MasterCode   string
	Description  string
	UnitPrice    string
	Quantity     string
}

type Highlight string

const (
	HighlightNone   Highlight = "none"
	HighlightYellow Highlight = "yellow"
	HighlightRed    Highlight = "red"
)

type MatchedBy string

const (
	MatchedSupplierExact     MatchedBy = "supplier-exact"
	MatchedSupplierFlex      MatchedBy = "supplier-flex"
	MatchedSupplierPriceQty  MatchedBy = "supplier+price+qty"
	MatchedSupplierPriceOnly MatchedBy = "supplier+price_only_qty_diff"
	MatchedOrionPrice        MatchedBy = "orion+price"
	MatchedPOPrice           MatchedBy = "po+price"
	MatchedNone              MatchedBy = "none"
)

// MatchStatus records which branch of the cascade decided the line. The
// sub-cases B_price_multi and B_price_none produce identical MatchOutcomes
// but are kept distinguishable here for the audit trail.
type MatchStatus string

const (
	StatusExactSingle      MatchStatus = "A_exact_single"
	StatusFlexSingle       MatchStatus = "A_flex_single"
	StatusPriceQtySingle   MatchStatus = "B_price_qty_single"
	StatusPriceSingle      MatchStatus = "B_price_single"
	StatusPriceMulti       MatchStatus = "B_price_multi"
	StatusPriceNone        MatchStatus = "B_price_none"
	StatusOrionPriceSingle MatchStatus = "C_orion_price_single"
	StatusPOPriceSingle    MatchStatus = "C_po_price_single"
	StatusUnmatched        MatchStatus = "C_unmatched"
)

// MatchOutcome is the matcher's verdict for one invoice line. ResolvedCode is
// non-empty only when MatchedBy != MatchedNone.
type MatchOutcome struct {
	Status        MatchStatus `json:"status"`
	Highlight     Highlight   `json:"highlight"`
	MatchedBy     MatchedBy   `json:"matchedBy"`
	ResolvedCode  string      `json:"resolvedCode"`
	ResolvedDesc  string      `json:"resolvedDesc"`
	ResolvedPrice string      `json:"resolvedPrice"`
	ResolvedQty   string      `json:"resolvedQty"`
}

// Diagnostic is the decision trail for one invoice line: what was looked up,
// how many candidates survived each step, and which branch won. It is built
// by the matcher and returned alongside the outcome; there is no ambient log.
type Diagnostic struct {
	PO            string      `json:"po"`
	SupplierCode  string      `json:"supplierItemCode"`
	IndexInBatch  int         `json:"indexInBatch"`
	Matched       bool        `json:"matched"`
	Status        MatchStatus `json:"status"`
	Highlight     Highlight   `json:"highlight"`
	ExactCount    int         `json:"exactCount"`
	FlexCount     int         `json:"flexCount"`
	PriceQtyCount int         `json:"priceQtyCount"`
	PriceCount    int         `json:"priceCount"`
	OrionCount    int         `json:"orionCount"`
	POPriceCount  int         `json:"poPriceCount"`
	Trace         []string    `json:"trace"`
}

// PreAlertRow is one output row of the PRE ALERT UPLOAD contract. Every row
// has every column; unresolved fields stay empty strings.
type PreAlertRow struct {
	POTxnCode        string
	PONumber         string
	SupplierInvNo    string
	SupplierRefDate  string
	DellED           string
	AWB              string
	BillOfLadingDate string
	ShippingAgent    string
	FromPort         string
	ToPort           string
	ETS              string
	ETA              string
	ItemCode         string
	ItemDesc         string
	UOM              string
	Qty              string
	UnitRate         string
	PDFItemCode      string
	PDFItemDesc      string
	ConsolidationFee string
	OrionUnitPrice   string
	MatchedBy        string
	ChosenCode       string

	Highlight Highlight
}

// MessageRow is one fetched mail message as stored in the database.
type MessageRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

// InvoiceRow is one ingested invoice document. Provider is "gmail"/"imap"
// when the PDF arrived as a mail attachment or "file" for direct uploads;
// MessageID links back to the source message in the former case.
type InvoiceRow struct {
	ID        int
	MessageID *int
	Provider  string
	SourceRef string
	Hash      string
	Status    string
	RawRef    string
	Header    InvoiceHeader
}

// LineWithOutcome pairs a stored invoice line with its match verdict, as
// returned by the storage layer for export.
type LineWithOutcome struct {
	Line       InvoiceLine
	Outcome    MatchOutcome
	Diagnostic Diagnostic
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}
