package pipeline

import (
	"fmt"

	"prealert/internal"
	"prealert/internal/master"
	"prealert/internal/util"
)

// Matcher resolves invoice lines against the master indexes. The indexes are
// read-only once built, so one Matcher may serve concurrent callers.
type Matcher struct {
	index *master.Index
}

func NewMatcher(index *master.Index) *Matcher {
	return &Matcher{index: index}
}

// MatchLine runs the resolution cascade for one invoice line within its PO
// context. Tiers are tried in strict priority order: exact supplier lookup
// (with a prefix-flexible fallback scan), price/quantity disambiguation when
// the supplier bucket is ambiguous, and finally the code-less recovery
// branches which always flag the line red. Failure to match is data, not an
// error: the outcome carries an empty resolution plus the highlight.
func (m *Matcher) MatchLine(po string, line internal.InvoiceLine, indexInBatch int) (internal.MatchOutcome, internal.Diagnostic) {
	poNorm := util.NormalizePO(po)
	code := util.NormalizeItemCode(line.ItemCode)

	diag := internal.Diagnostic{
		PO:           poNorm,
		SupplierCode: code,
		IndexInBatch: indexInBatch,
	}

	candidates := m.index.Supplier[master.Key{PO: poNorm, Code: code}]
	diag.ExactCount = len(candidates)
	diag.Trace = append(diag.Trace, fmt.Sprintf("supplier exact lookup (%s, %s): %d candidate(s)", poNorm, code, len(candidates)))

	matchedBy := internal.MatchedSupplierExact
	singleStatus := internal.StatusExactSingle
	if len(candidates) == 0 {
		candidates = m.index.SupplierFlex(poNorm, code)
		diag.FlexCount = len(candidates)
		diag.Trace = append(diag.Trace, fmt.Sprintf("supplier flex scan (prefix-compatible po and code): %d candidate(s)", len(candidates)))
		matchedBy = internal.MatchedSupplierFlex
		singleStatus = internal.StatusFlexSingle
	}

	var outcome internal.MatchOutcome
	switch {
	case len(candidates) == 1:
		outcome = resolvedOutcome(singleStatus, internal.HighlightNone, matchedBy, candidates[0])
		diag.Trace = append(diag.Trace, "single supplier candidate, resolved to "+candidates[0].MasterCode)
	case len(candidates) == 0:
		outcome = m.noSupplierMatch(poNorm, code, line, &diag)
	default:
		outcome = disambiguate(candidates, line, &diag)
	}

	diag.Matched = outcome.MatchedBy != internal.MatchedNone
	diag.Status = outcome.Status
	diag.Highlight = outcome.Highlight
	return outcome, diag
}

// disambiguate is tier 2: more than one supplier candidate, so price and
// quantity decide. The line stays yellow whatever happens here.
func disambiguate(candidates []master.Candidate, line internal.InvoiceLine, diag *internal.Diagnostic) internal.MatchOutcome {
	var priceQty, price []master.Candidate
	for _, c := range candidates {
		priceOK := util.NumbersEqual(c.UnitPrice, line.UnitPrice)
		if priceOK {
			price = append(price, c)
		}
		if priceOK && util.NumbersEqual(c.Quantity, line.Quantity) {
			priceQty = append(priceQty, c)
		}
	}
	diag.PriceQtyCount = len(priceQty)
	diag.PriceCount = len(price)
	diag.Trace = append(diag.Trace, fmt.Sprintf("disambiguating %d candidates against price %q qty %q: price+qty=%d price-only=%d",
		len(candidates), line.UnitPrice, line.Quantity, len(priceQty), len(price)))

	switch {
	case len(priceQty) == 1:
		diag.Trace = append(diag.Trace, "price+qty selected exactly one candidate")
		return resolvedOutcome(internal.StatusPriceQtySingle, internal.HighlightYellow, internal.MatchedSupplierPriceQty, priceQty[0])
	case len(priceQty) == 0 && len(price) == 1:
		diag.Trace = append(diag.Trace, "price alone selected exactly one candidate (qty differs)")
		return resolvedOutcome(internal.StatusPriceSingle, internal.HighlightYellow, internal.MatchedSupplierPriceOnly, price[0])
	case len(price) > 1:
		diag.Trace = append(diag.Trace, "price matched more than one candidate, unresolved")
		return unresolvedOutcome(internal.StatusPriceMulti, internal.HighlightYellow)
	default:
		diag.Trace = append(diag.Trace, "no candidate matched the invoice price, unresolved")
		return unresolvedOutcome(internal.StatusPriceNone, internal.HighlightYellow)
	}
}

// noSupplierMatch is tier 3: nothing keyed by the supplier code, so try the
// invoice code as a master code and then the PO-wide price fallback. The red
// flag survives even when a value is recovered.
func (m *Matcher) noSupplierMatch(po, code string, line internal.InvoiceLine, diag *internal.Diagnostic) internal.MatchOutcome {
	orionBucket := m.index.Orion[master.Key{PO: po, Code: code}]
	var orion []master.Candidate
	for _, c := range orionBucket {
		if util.NumbersEqual(c.UnitPrice, line.UnitPrice) {
			orion = append(orion, c)
		}
	}
	diag.OrionCount = len(orion)
	diag.Trace = append(diag.Trace, fmt.Sprintf("orion lookup (%s, %s): %d in bucket, %d price-equal", po, code, len(orionBucket), len(orion)))
	if len(orion) == 1 {
		diag.Trace = append(diag.Trace, "single orion+price candidate, resolved (line stays red)")
		return resolvedOutcome(internal.StatusOrionPriceSingle, internal.HighlightRed, internal.MatchedOrionPrice, orion[0])
	}

	poBucket := m.index.POPrice[po]
	var byPrice []master.Candidate
	for _, c := range poBucket {
		if util.NumbersEqual(c.UnitPrice, line.UnitPrice) {
			byPrice = append(byPrice, c.Candidate)
		}
	}
	diag.POPriceCount = len(byPrice)
	diag.Trace = append(diag.Trace, fmt.Sprintf("po-wide price fallback (%s): %d rows, %d price-equal", po, len(poBucket), len(byPrice)))
	if len(byPrice) == 1 {
		diag.Trace = append(diag.Trace, "single po+price candidate, resolved (line stays red)")
		return resolvedOutcome(internal.StatusPOPriceSingle, internal.HighlightRed, internal.MatchedPOPrice, byPrice[0])
	}

	diag.Trace = append(diag.Trace, "no unique recovery candidate, line left unmatched")
	return unresolvedOutcome(internal.StatusUnmatched, internal.HighlightRed)
}

func resolvedOutcome(status internal.MatchStatus, highlight internal.Highlight, by internal.MatchedBy, c master.Candidate) internal.MatchOutcome {
	return internal.MatchOutcome{
		Status:        status,
		Highlight:     highlight,
		MatchedBy:     by,
		ResolvedCode:  c.MasterCode,
		ResolvedDesc:  c.Description,
		ResolvedPrice: c.UnitPrice,
		ResolvedQty:   c.Quantity,
	}
}

func unresolvedOutcome(status internal.MatchStatus, highlight internal.Highlight) internal.MatchOutcome {
	return internal.MatchOutcome{
		Status:    status,
		Highlight: highlight,
		MatchedBy: internal.MatchedNone,
	}
}
