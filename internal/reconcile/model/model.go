package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

type Source string

const (
	SourceA Source = "A"
	SourceB Source = "B"
)

func (s Source) Other() Source {
	if s == SourceA {
		return SourceB
	}
	return SourceA
}

func ParseSource(s string) (Source, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return SourceA, nil
	case "B":
		return SourceB, nil
	default:
		return "", eris.Errorf("unknown source %q", s)
	}
}

// Mapping describes where the SKU and quantity live in a source table.
// Column names accept alternatives separated by "|" ("SKU|Item Code").
type Mapping struct {
	SkuColumn string `json:"skuColumn"` // имя колонки с артикулом
	QtyColumn string `json:"qtyColumn"` // имя колонки с количеством (опционально)
	HeaderRow int    `json:"headerRow"` // строка заголовков (1-based)
}

// InventoryRecord is one loaded row. SkuKey is always Normalize(SkuRaw);
// only the session mutates SkuRaw, and it recomputes SkuKey when it does.
type InventoryRecord struct {
	ID       int               `json:"id"`
	Source   Source            `json:"source"`
	Row      int               `json:"row"`
	SkuRaw   string            `json:"sku"`
	SkuKey   string            `json:"skuKey"`
	Quantity string            `json:"quantity"`
	Attrs    map[string]string `json:"attributes"`
}

// Dataset is one source's working table. Columns keeps the file's column
// order; SkuColumn and QtyColumn are the resolved header names.
type Dataset struct {
	Source    Source             `json:"source"`
	Name      string             `json:"name"`
	Columns   []string           `json:"columns"`
	SkuColumn string             `json:"skuColumn"`
	QtyColumn string             `json:"qtyColumn"`
	Records   []*InventoryRecord `json:"records"`
}

// Value returns the cell of rec under column col.
func (d *Dataset) Value(rec *InventoryRecord, col string) (string, bool) {
	switch {
	case col == d.SkuColumn:
		return rec.SkuRaw, true
	case d.QtyColumn != "" && col == d.QtyColumn:
		return rec.Quantity, true
	}
	v, ok := rec.Attrs[col]
	return v, ok
}

func (d *Dataset) HasColumn(col string) bool {
	for _, c := range d.Columns {
		if c == col {
			return true
		}
	}
	return false
}

func (d *Dataset) Find(id int) *InventoryRecord {
	for _, r := range d.Records {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// Remove drops the records with the given ids and reports how many went.
func (d *Dataset) Remove(ids ...int) int {
	if len(ids) == 0 {
		return 0
	}
	drop := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := d.Records[:0]
	n := 0
	for _, r := range d.Records {
		if _, ok := drop[r.ID]; ok {
			n++
			continue
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(d.Records); i++ {
		d.Records[i] = nil
	}
	d.Records = kept
	return n
}

// ByKey returns records whose normalized key equals key, in table order.
func (d *Dataset) ByKey(key string) []*InventoryRecord {
	var out []*InventoryRecord
	for _, r := range d.Records {
		if r.SkuKey == key {
			out = append(out, r)
		}
	}
	return out
}

// ByRaw returns records whose raw SKU equals sku, in table order.
func (d *Dataset) ByRaw(sku string) []*InventoryRecord {
	var out []*InventoryRecord
	for _, r := range d.Records {
		if r.SkuRaw == sku {
			out = append(out, r)
		}
	}
	return out
}

// Table renders the dataset as header + rows in column order.
func (d *Dataset) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(d.Records))
	for _, r := range d.Records {
		row := make([]string, len(d.Columns))
		for i, c := range d.Columns {
			row[i], _ = d.Value(r, c)
		}
		rows = append(rows, row)
	}
	return append([]string(nil), d.Columns...), rows
}

type MatchType string

const (
	MatchExact       MatchType = "Exact"
	MatchFuzzyMerged MatchType = "Fuzzy Merged"
	MatchUnmatchedA  MatchType = "Unmatched A"
	MatchUnmatchedB  MatchType = "Unmatched B"
)

func Unmatched(s Source) MatchType {
	if s == SourceA {
		return MatchUnmatchedA
	}
	return MatchUnmatchedB
}

// ReconciledRecord is one output row; Values is aligned to Consolidated.Columns.
type ReconciledRecord struct {
	SKU       string    `json:"sku"`
	Quantity  string    `json:"quantity"`
	MatchType MatchType `json:"matchType"`
	Values    []string  `json:"values"`
}

type Consolidated struct {
	Template  Source             `json:"template"`
	Columns   []string           `json:"columns"`
	QtyColumn string             `json:"qtyColumn"`
	Rows      []ReconciledRecord `json:"rows"`
	Warnings  []Warning          `json:"warnings,omitempty"`
}

// ExactMatch is a raw SKU present verbatim in both sources.
type ExactMatch struct {
	SKU string           `json:"sku"`
	A   *InventoryRecord `json:"a"`
	B   *InventoryRecord `json:"b"`
}

type CrossResult struct {
	Exact      []ExactMatch       `json:"exact"`
	ResidueA   []*InventoryRecord `json:"residueA"`
	ResidueB   []*InventoryRecord `json:"residueB"`
	Candidates []FuzzyCandidate   `json:"candidates"`
}

type DuplicateReport struct {
	Groups []DuplicateGroup `json:"groups"`
	Fuzzy  []FuzzyCandidate `json:"fuzzy"`
}

// Warning is a non-fatal problem surfaced to the operator.
type Warning struct {
	Code    string `json:"code"`
	Source  Source `json:"source,omitempty"`
	Row     int    `json:"row,omitempty"`
	SKU     string `json:"sku,omitempty"`
	Message string `json:"message"`
}

const (
	WarnInvalidRecord  = "invalid_record"
	WarnMissingColumn  = "missing_column"
	WarnSchemaMismatch = "schema_mismatch"
	WarnDuplicateSKU   = "duplicate_sku"
	WarnInvalidQty     = "invalid_quantity"
)

type Summary struct {
	State        string `json:"state"`
	Pending      int    `json:"pending"`
	Resolved     int    `json:"resolved"`
	RecordsA     int    `json:"recordsA"`
	RecordsB     int    `json:"recordsB"`
	ExactMatches int    `json:"exactMatches"`
	ResidueA     int    `json:"residueA"`
	ResidueB     int    `json:"residueB"`
	Warnings     int    `json:"warnings"`
}
