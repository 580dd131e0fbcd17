package pipeline

import (
	"strings"
	"testing"

	"prealert/internal"
)

func TestParseHTMLInvoiceTable(t *testing.T) {
	html := `<table>
<tr><th>Item No</th><th>Description</th><th>Qty</th><th>Unit Price</th><th>Amount</th></tr>
<tr><td>210-BMFF</td><td>Dell Pro 24 Plus Monitor</td><td>16</td><td>118.28</td><td>1,892.48</td></tr>
<tr><td>Total</td><td></td><td></td><td></td><td>1,892.48</td></tr>
</table>`
	lines := parseHTMLInvoiceTable(html)
	if len(lines) != 1 {
		t.Fatalf("len=%d", len(lines))
	}
	if lines[0].ItemCode != "210-BMFF" || lines[0].Quantity != "16" || lines[0].UnitPrice != "118.28" {
		t.Fatalf("line=%+v", lines[0])
	}
	if lines[0].Source != internal.SourceHTMLTable {
		t.Fatalf("source=%s", lines[0].Source)
	}
}

func TestParseHTMLInvoiceTableIgnoresUnrelatedTables(t *testing.T) {
	html := `<table><tr><th>Name</th><th>Phone</th></tr><tr><td>Support</td><td>123</td></tr></table>`
	if lines := parseHTMLInvoiceTable(html); len(lines) != 0 {
		t.Fatalf("len=%d", len(lines))
	}
}

func TestExtractInvoicesFromEmailRawHTMLFallback(t *testing.T) {
	raw := strings.Join([]string{
		"From: billing@example.com",
		"Subject: Dell Invoice IE100234",
		"MIME-Version: 1.0",
		`Content-Type: multipart/alternative; boundary="b1"`,
		"",
		"--b1",
		"Content-Type: text/plain",
		"",
		"Invoice No: IE100234",
		"Your Ref / PO No: PO 01100234",
		"--b1",
		"Content-Type: text/html",
		"",
		`<html><body><table><tr><th>Item No</th><th>Description</th><th>Qty</th><th>Unit Price</th></tr><tr><td>210-BMFF</td><td>Monitor</td><td>16</td><td>118.28</td></tr></table></body></html>`,
		"--b1--",
		"",
	}, "\r\n")

	invoices, subject, _, err := ExtractInvoicesFromEmailRaw([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if subject != "Dell Invoice IE100234" {
		t.Fatalf("subject=%q", subject)
	}
	if len(invoices) != 1 {
		t.Fatalf("invoices=%d", len(invoices))
	}
	if invoices[0].Header.InvoiceNumber != "IE100234" {
		t.Fatalf("invoiceNo=%q", invoices[0].Header.InvoiceNumber)
	}
	if invoices[0].Header.PONumber != "01100234" {
		t.Fatalf("po=%q", invoices[0].Header.PONumber)
	}
	if len(invoices[0].Lines) != 1 {
		t.Fatalf("lines=%d", len(invoices[0].Lines))
	}
}
