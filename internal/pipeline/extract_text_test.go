package pipeline

import "testing"

const sampleInvoiceText = `
Dell Products
Invoice No: IE100234
Invoice Date: 12/08/2026
Customer No: 555123
Your Ref / PO No: PO 01100234
Dell Order No: 807654321
Shipping Method: AIR EXPRESS
Select Account to Charge: ED12345
Consolidation Fee 0.00 25.50
Item No Description Quantity Unit Price Amount
210-BMFF Dell Pro 24 Plus Monitor - P2425H 16 118.28 1,892.48 NL
AB-1234 USB-C Dock WD19S 4 1,000 4,000 IE
VAT Summary
Standard 23.00
`

func TestParseInvoiceTextHeader(t *testing.T) {
	inv := ParseInvoiceText(sampleInvoiceText)
	h := inv.Header
	if h.PONumber != "01100234" {
		t.Fatalf("po=%q", h.PONumber)
	}
	if h.InvoiceNumber != "IE100234" {
		t.Fatalf("invoiceNo=%q", h.InvoiceNumber)
	}
	if h.InvoiceDate != "12/08/2026" {
		t.Fatalf("invoiceDate=%q", h.InvoiceDate)
	}
	if h.CustomerNo != "555123" {
		t.Fatalf("customerNo=%q", h.CustomerNo)
	}
	if h.DellOrderNo != "807654321" {
		t.Fatalf("dellOrderNo=%q", h.DellOrderNo)
	}
	if h.ShippingMethod != "AIR EXPRESS" {
		t.Fatalf("shippingMethod=%q", h.ShippingMethod)
	}
	if h.EDOrder != "ED12345" {
		t.Fatalf("edOrder=%q", h.EDOrder)
	}
	if h.ConsolidationFee != "25.50" {
		t.Fatalf("consolidationFee=%q", h.ConsolidationFee)
	}
}

func TestParseInvoiceTextLines(t *testing.T) {
	inv := ParseInvoiceText(sampleInvoiceText)
	if len(inv.Lines) != 2 {
		t.Fatalf("len=%d", len(inv.Lines))
	}

	first := inv.Lines[0]
	if first.ItemCode != "210-BMFF" {
		t.Fatalf("code=%q", first.ItemCode)
	}
	if first.Description != "Dell Pro 24 Plus Monitor - P2425H" {
		t.Fatalf("desc=%q", first.Description)
	}
	if first.Quantity != "16" || first.UnitPrice != "118.28" || first.Amount != "1,892.48" {
		t.Fatalf("qty=%q price=%q amount=%q", first.Quantity, first.UnitPrice, first.Amount)
	}

	second := inv.Lines[1]
	if second.ItemCode != "AB-1234" || second.Quantity != "4" || second.UnitPrice != "1,000" {
		t.Fatalf("second=%+v", second)
	}
	if second.LineNo != 2 {
		t.Fatalf("lineNo=%d", second.LineNo)
	}
}

func TestParseInvoiceTextNoItemsHeader(t *testing.T) {
	inv := ParseInvoiceText("Invoice No: X1\n210-BMFF Monitor 16 118.28 1,892.48\n")
	if len(inv.Lines) != 0 {
		t.Fatalf("lines before the table header should be ignored, got %d", len(inv.Lines))
	}
}

func TestParseInvoiceTextSolutionNameFallback(t *testing.T) {
	text := `
Item No Description Quantity Unit Price
Solution Name: Managed Deployment
EMEA Rollout
Funded By Dell
`
	inv := ParseInvoiceText(text)
	if inv.Header.ShippingMethod != "Managed Deployment EMEA Rollout" {
		t.Fatalf("shippingMethod=%q", inv.Header.ShippingMethod)
	}
}
