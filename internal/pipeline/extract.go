package pipeline

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	"github.com/ledongthuc/pdf"

	"prealert/internal"
	"prealert/internal/util"
)

// ExtractedInvoice is one invoice document pulled out of an input source:
// its header fields plus the ordered item lines.
type ExtractedInvoice struct {
	Header     internal.InvoiceHeader
	Lines      []internal.InvoiceLine
	Attachment string
}

var (
	rePONumber    = regexp.MustCompile(`(?i)your\s*ref\s*/\s*po\s*no\s*:\s*(?:PO)?\s*([A-Za-z0-9\-_/]+)`)
	reInvoiceNo   = regexp.MustCompile(`(?i)invoice\s*no\s*:\s*([A-Za-z0-9\-]+)`)
	reInvoiceDate = regexp.MustCompile(`(?i)invoice\s*date\s*:\s*([0-9]{1,2}[\-/][0-9]{1,2}[\-/][0-9]{2,4}|[0-9]{1,2}\s+[A-Za-z]{3,}\s+[0-9]{4})`)
	reCustomerNo  = regexp.MustCompile(`(?i)customer\s*no\s*:\s*([A-Za-z0-9\-]+)`)
	reDellOrderNo = regexp.MustCompile(`(?i)dell\s*order\s*no\s*:\s*([A-Za-z0-9\-]+)`)
	reShipMethod  = regexp.MustCompile(`(?i)shipping\s*method\s*:?\s*([A-Za-z0-9 \-/]+)`)
	reEDCharge    = regexp.MustCompile(`(?i)select\s+account\s+to\s+charge\s*:?\s*([A-Za-z0-9\-]+)`)
	reEDOrder     = regexp.MustCompile(`(?i)\bed\s*order\b\s*:?\s*([A-Za-z0-9\-]+)`)
	reNumber      = regexp.MustCompile(`[0-9][0-9,]*\.[0-9]{2}|[0-9][0-9,]*`)
	reSolution    = regexp.MustCompile(`(?i)solution\s*name\s*:\s*`)
	reFundedBy    = regexp.MustCompile(`(?i)^\s*funded\s+by\b`)

	// Text-layout item row: code, description, qty, unit price, amount and an
	// optional trailing country code, e.g.
	// "210-BMFF Dell Pro 24 Plus Monitor - P2425H 16 118.28 1,892.48 NL"
	reItemRow = regexp.MustCompile(`^([A-Z0-9-]+)\s+(.+?)\s+(\d{1,6})\s+([0-9,]+(?:\.[0-9]{2})?)\s+([0-9,]+(?:\.[0-9]{2})?)(?:\s+[A-Z]{2})?$`)
)

// ExtractInvoicesFromEmailRaw parses a raw RFC 822 message and extracts one
// invoice per PDF attachment. When no PDF yields lines, an HTML body table is
// tried as a fallback source.
func ExtractInvoicesFromEmailRaw(raw []byte) ([]ExtractedInvoice, string, []string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, "", nil, err
	}

	invoices := make([]ExtractedInvoice, 0)
	attachmentNames := make([]string, 0, len(env.Attachments))
	for _, att := range env.Attachments {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" {
			filename = "attachment"
		}
		attachmentNames = append(attachmentNames, filename)
		if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
			continue
		}
		inv, err := ParseInvoicePDF(att.Content)
		if err != nil {
			continue
		}
		inv.Attachment = filename
		invoices = append(invoices, inv)
	}

	if len(invoices) == 0 && env.HTML != "" {
		lines := parseHTMLInvoiceTable(env.HTML)
		if len(lines) > 0 {
			header := parseHeaderFields(env.GetHeader("Subject") + "\n" + env.Text)
			invoices = append(invoices, ExtractedInvoice{Header: header, Lines: lines})
		}
	}

	return invoices, env.GetHeader("Subject"), attachmentNames, nil
}

// ParseInvoicePDF extracts the header fields and item lines from a Dell
// invoice PDF.
func ParseInvoicePDF(content []byte) (ExtractedInvoice, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return ExtractedInvoice{}, err
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	return ParseInvoiceText(sb.String()), nil
}

// ParseInvoiceText runs the Dell invoice parser over already-extracted plain
// text: header field regexes plus the item table between the column header
// line and the VAT summary.
func ParseInvoiceText(text string) ExtractedInvoice {
	return ExtractedInvoice{
		Header: parseHeaderFields(text),
		Lines:  parseItemLines(text),
	}
}

func parseHeaderFields(text string) internal.InvoiceHeader {
	lines := splitLines(text)

	pick := func(re *regexp.Regexp) string {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
		return ""
	}

	header := internal.InvoiceHeader{
		PONumber:      pick(rePONumber),
		InvoiceNumber: pick(reInvoiceNo),
		InvoiceDate:   pick(reInvoiceDate),
		CustomerNo:    pick(reCustomerNo),
		DellOrderNo:   pick(reDellOrderNo),
	}

	if m := reShipMethod.FindStringSubmatch(text); m != nil {
		header.ShippingMethod = strings.TrimSpace(m[1])
	}
	if header.ShippingMethod == "" {
		header.ShippingMethod = solutionNameBlock(lines)
	}

	header.EDOrder = pick(reEDCharge)
	if header.EDOrder == "" {
		header.EDOrder = pick(reEDOrder)
	}

	header.ConsolidationFee = consolidationFee(lines)
	return header
}

// solutionNameBlock captures the free-text block from "Solution Name:" down
// to (but excluding) "Funded By", used as the AWB text when no shipping
// method label is present.
func solutionNameBlock(lines []string) string {
	start := -1
	for i, l := range lines {
		if reSolution.MatchString(l) {
			start = i
			break
		}
	}
	if start < 0 {
		return ""
	}

	end := start + 6
	for i := start + 1; i < len(lines); i++ {
		if reFundedBy.MatchString(lines[i]) {
			end = i
			break
		}
	}
	if end > len(lines) {
		end = len(lines)
	}

	block := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		l := lines[i]
		if i == start {
			l = reSolution.ReplaceAllString(l, "")
		}
		if s := strings.TrimSpace(l); s != "" {
			block = append(block, s)
		}
	}
	return strings.Join(block, " ")
}

// consolidationFee picks the last non-zero number after the "consolidation"
// keyword, looking ahead up to two lines for wrapped values.
func consolidationFee(lines []string) string {
	for i, l := range lines {
		low := strings.ToLower(l)
		idx := strings.Index(low, "consolidation")
		if idx < 0 {
			continue
		}

		candidates := reNumber.FindAllString(l[idx+len("consolidation"):], -1)
		if len(candidates) == 0 {
			for j := i + 1; j < len(lines) && j <= i+2; j++ {
				candidates = append(candidates, reNumber.FindAllString(lines[j], -1)...)
			}
		}
		if len(candidates) == 0 {
			return ""
		}

		chosen := candidates[len(candidates)-1]
		for k := len(candidates) - 1; k >= 0; k-- {
			if v, ok := util.ParseNumber(candidates[k]); ok && v > 0 {
				chosen = candidates[k]
				break
			}
		}
		return chosen
	}
	return ""
}

func parseItemLines(text string) []internal.InvoiceLine {
	out := []internal.InvoiceLine{}
	inItems := false
	lineNo := 0
	for _, raw := range splitLines(text) {
		low := strings.ToLower(util.NormalizeSpaces(raw))

		if !inItems {
			if strings.Contains(low, "item no") && strings.Contains(low, "description") &&
				strings.Contains(low, "quantity") && strings.Contains(low, "unit price") {
				inItems = true
			}
			continue
		}
		if strings.HasPrefix(low, "vat summary") || strings.HasPrefix(low, "vat type") {
			break
		}
		if containsAny(low, "subtotal", "total", "vat", "tax") {
			continue
		}

		m := reItemRow.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		lineNo++
		out = append(out, internal.InvoiceLine{
			LineNo:      lineNo,
			Source:      internal.SourcePDF,
			ItemCode:    m[1],
			Description: strings.TrimSpace(m[2]),
			Quantity:    m[3],
			UnitPrice:   m[4],
			Amount:      m[5],
			RawLine:     raw,
		})
	}
	return out
}

func parseHTMLInvoiceTable(html string) []internal.InvoiceLine {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	out := []internal.InvoiceLine{}
	lineNo := 0
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return
		}

		headers := []string{}
		rows.First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, strings.ToLower(strings.TrimSpace(cell.Text())))
		})

		codeIdx := findHeaderIndex(headers, []string{"item no", "item code", "item", "sku"})
		descIdx := findHeaderIndex(headers, []string{"description", "desc"})
		qtyIdx := findHeaderIndex(headers, []string{"quantity", "qty"})
		priceIdx := findHeaderIndex(headers, []string{"unit price", "price", "rate"})
		amountIdx := findHeaderIndex(headers, []string{"amount", "total"})
		if codeIdx < 0 || qtyIdx < 0 || priceIdx < 0 {
			return
		}

		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			cells := []string{}
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, util.NormalizeSpaces(cell.Text()))
			})
			code := pickCell(cells, codeIdx)
			if code == "" {
				return
			}
			low := strings.ToLower(strings.Join(cells, " "))
			if containsAny(low, "subtotal", "total", "vat", "tax") {
				return
			}
			lineNo++
			out = append(out, internal.InvoiceLine{
				LineNo:      lineNo,
				Source:      internal.SourceHTMLTable,
				ItemCode:    code,
				Description: pickCell(cells, descIdx),
				Quantity:    pickCell(cells, qtyIdx),
				UnitPrice:   pickCell(cells, priceIdx),
				Amount:      pickCell(cells, amountIdx),
				RawLine:     strings.Join(cells, " | "),
			})
		})
	})

	return out
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func findHeaderIndex(headers []string, probes []string) int {
	for _, probe := range probes {
		for i, h := range headers {
			if strings.Contains(h, probe) {
				return i
			}
		}
	}
	return -1
}

func pickCell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func containsAny(s string, probes ...string) bool {
	for _, p := range probes {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
