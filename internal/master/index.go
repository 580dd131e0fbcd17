package master

import (
	"strings"

	"prealert/internal"
	"prealert/internal/util"
)

// Key addresses one candidate bucket: normalized PO plus normalized item code.
type Key struct {
	PO   string
	Code string
}

// Candidate is one reference-table row as seen from an index bucket.
type Candidate struct {
	MasterCode  string
	Description string
	UnitPrice   string
	Quantity    string
}

// POCandidate extends Candidate with the supplier code for the PO-wide
// fallback index, where rows are not bucketed by code at all.
type POCandidate struct {
	Candidate
	SupplierCode string
}

// Index holds the three lookup structures the matcher consults. All buckets
// are append-only slices: duplicate rows accumulate in insertion order.
type Index struct {
	Supplier map[Key][]Candidate
	Orion    map[Key][]Candidate
	POPrice  map[string][]POCandidate

	supplierKeys []Key
}

// BuildIndex builds all three indexes in a single pass. Rows without a PO
// contribute nothing; rows without a supplier or master code contribute only
// to the indexes they can key.
func BuildIndex(records []internal.MasterRecord) *Index {
	idx := &Index{
		Supplier: map[Key][]Candidate{},
		Orion:    map[Key][]Candidate{},
		POPrice:  map[string][]POCandidate{},
	}

	for _, r := range records {
		po := util.NormalizePO(r.PONumber)
		if po == "" {
			continue
		}

		cand := Candidate{
			MasterCode:  strings.TrimSpace(r.MasterCode),
			Description: strings.TrimSpace(r.Description),
			UnitPrice:   strings.TrimSpace(r.UnitPrice),
			Quantity:    strings.TrimSpace(r.Quantity),
		}

		supplierCode := util.NormalizeItemCode(r.SupplierCode)
		if supplierCode != "" {
			key := Key{PO: po, Code: supplierCode}
			if _, seen := idx.Supplier[key]; !seen {
				idx.supplierKeys = append(idx.supplierKeys, key)
			}
			idx.Supplier[key] = append(idx.Supplier[key], cand)
		}

		if cand.MasterCode != "" {
			okey := Key{PO: po, Code: util.NormalizeItemCode(cand.MasterCode)}
			idx.Orion[okey] = append(idx.Orion[okey], cand)
		}

		idx.POPrice[po] = append(idx.POPrice[po], POCandidate{Candidate: cand, SupplierCode: supplierCode})
	}

	return idx
}

// SupplierFlex scans the supplier buckets for keys whose PO and code are each
// prefix-compatible (either direction) with the given values, and unions
// their candidates in index insertion order. Empty inputs match nothing.
func (idx *Index) SupplierFlex(po, code string) []Candidate {
	if po == "" || code == "" {
		return nil
	}
	var out []Candidate
	for _, key := range idx.supplierKeys {
		if prefixCompatible(key.PO, po) && prefixCompatible(key.Code, code) {
			out = append(out, idx.Supplier[key]...)
		}
	}
	return out
}

func prefixCompatible(a, b string) bool {
	return a != "" && b != "" && (strings.HasPrefix(a, b) || strings.HasPrefix(b, a))
}
