package master

import (
	"fmt"
	"strings"
)

// Columns maps the logical master-table fields to column positions. Optional
// fields are -1 when the sheet does not carry them.
type Columns struct {
	PO          int
	Supplier    int
	MasterCode  int
	Description int
	UnitPrice   int
	Quantity    int
}

var (
	poSynonyms          = []string{"po num", "po number", "po no", "po"}
	supplierSynonyms    = []string{"supplier item code", "supplier code", "supplier item"}
	masterCodeSynonyms  = []string{"orion item code", "orion code", "master item code", "item code"}
	descriptionSynonyms = []string{"pi item desc", "item desc", "item description", "description"}
	unitPriceSynonyms   = []string{"unit rate", "unit price", "rate", "price"}
	quantitySynonyms    = []string{"qty", "quantity"}
)

// ResolveColumns locates the master-table columns by case-insensitive synonym
// lookup. A missing PO or supplier-code column fails the whole batch.
func ResolveColumns(headers []string) (Columns, error) {
	norm := make([]string, len(headers))
	for i, h := range headers {
		norm[i] = strings.ToLower(strings.TrimSpace(h))
	}

	find := func(synonyms []string) int {
		for _, syn := range synonyms {
			for i, h := range norm {
				if h == syn {
					return i
				}
			}
		}
		return -1
	}

	cols := Columns{
		PO:          find(poSynonyms),
		Supplier:    find(supplierSynonyms),
		MasterCode:  find(masterCodeSynonyms),
		Description: find(descriptionSynonyms),
		UnitPrice:   find(unitPriceSynonyms),
		Quantity:    find(quantitySynonyms),
	}

	if cols.PO < 0 {
		return Columns{}, fmt.Errorf("master file is missing a PO column (accepted: %s)", strings.Join(poSynonyms, ", "))
	}
	if cols.Supplier < 0 {
		return Columns{}, fmt.Errorf("master file is missing a supplier item code column (accepted: %s)", strings.Join(supplierSynonyms, ", "))
	}
	return cols, nil
}
