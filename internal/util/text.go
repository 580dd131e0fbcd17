package util

import (
	"regexp"
	"strings"
)

var (
	rePOPrefix  = regexp.MustCompile(`(?i)^po\s*`)
	reCodeLabel = regexp.MustCompile(`(?i)^item\s*code\s*[:\-]*\s*`)
	reCodeToken = regexp.MustCompile(`[A-Z0-9][A-Z0-9\-_]*[A-Z0-9]`)
	reSpaces    = regexp.MustCompile(`\s+`)
)

// NormalizePO strips a leading "PO" label so that "PO12345", "po 12345" and
// "12345" all key the same bucket.
func NormalizePO(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	return rePOPrefix.ReplaceAllString(s, "")
}

// NormalizeItemCode canonicalizes supplier/master item codes: trim, uppercase,
// drop a leading "Item code:" style label, then keep the first code-looking
// token (A-Z/0-9 with interior dashes or underscores). If no such token
// exists the cleaned string is returned as-is.
func NormalizeItemCode(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = reCodeLabel.ReplaceAllString(s, "")
	if token := reCodeToken.FindString(s); token != "" {
		return token
	}
	return s
}

// NormalizeSpaces collapses runs of whitespace to single spaces.
func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}
