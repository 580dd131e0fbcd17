package pipeline

import "strings"

type DetectResult struct {
	IsInvoice bool
	Score     float64
	Reason    string
}

var detectKeywords = []string{"invoice", "pre-alert", "pre alert", "dell", "shipment", "your ref / po no", "consolidation"}

// DetectInvoiceEmail scores a message on subject/body keywords and attachment
// names. PDF attachments dominate because the invoices arrive as PDFs.
func DetectInvoiceEmail(subject, text, html string, attachmentNames []string) DetectResult {
	subject = strings.ToLower(subject)
	text = strings.ToLower(text)
	html = strings.ToLower(html)

	score := 0.0
	for _, kw := range detectKeywords {
		if strings.Contains(subject, kw) {
			score += 0.2
		}
		if strings.Contains(text, kw) || strings.Contains(html, kw) {
			score += 0.1
		}
	}

	for _, name := range attachmentNames {
		ln := strings.ToLower(name)
		if strings.HasSuffix(ln, ".pdf") {
			score += 0.4
			break
		}
	}
	for _, name := range attachmentNames {
		ln := strings.ToLower(name)
		if strings.Contains(ln, "invoice") || strings.Contains(ln, "alert") {
			score += 0.2
			break
		}
	}

	if strings.Contains(html, "<table") {
		score += 0.15
	}
	if score > 1 {
		score = 1
	}

	isInvoice := score >= 0.45
	reason := "rules_negative"
	if isInvoice {
		reason = "rules_positive"
	}

	return DetectResult{IsInvoice: isInvoice, Score: score, Reason: reason}
}
