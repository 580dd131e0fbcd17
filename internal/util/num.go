package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reThousandDots   = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
	reThousandCommas = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
)

func normalizeNumericToken(token string) string {
	compact := strings.NewReplacer(" ", "", " ", "").Replace(strings.TrimSpace(token))
	switch {
	case reThousandDots.MatchString(compact):
		return strings.ReplaceAll(compact, ".", "")
	case reThousandCommas.MatchString(compact):
		return strings.ReplaceAll(compact, ",", "")
	case strings.Contains(compact, ",") && strings.Contains(compact, "."):
		return strings.ReplaceAll(compact, ",", "")
	case strings.Contains(compact, ","):
		return strings.ReplaceAll(compact, ",", ".")
	}
	return compact
}

// ParseNumber parses a numeric text field, tolerating thousands separators
// ("1,892.48", "1 000", "1.000") and decimal commas ("1,5").
func ParseNumber(raw string) (float64, bool) {
	norm := normalizeNumericToken(raw)
	if norm == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(norm, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

// NumbersEqual reports whether two numeric text fields parse to exactly the
// same value. Unparsable values never compare equal.
func NumbersEqual(a, b string) bool {
	av, ok := ParseNumber(a)
	if !ok {
		return false
	}
	bv, ok := ParseNumber(b)
	if !ok {
		return false
	}
	return av == bv
}
