package service

import (
	"fmt"
	"strings"

	"inventory-recon/internal/reconcile/model"
	"inventory-recon/internal/utils"
)

// MatchTypeColumn is appended to the template layout to carry provenance.
const MatchTypeColumn = "Match Type"

type ConsolidateInput struct {
	A, B *model.Dataset
	Log  []model.Resolution
}

// Consolidate merges the two cleaned sources into one table shaped like the
// template source: its columns, its rows first, then every surviving row the
// template lacks. Problems degrade the output and are reported as warnings;
// they never abort it.
func Consolidate(in ConsolidateInput, opts model.Options) model.Consolidated {
	tmpl, other := in.B, in.A
	if opts.Template == model.SourceA {
		tmpl, other = in.A, in.B
	}

	out := model.Consolidated{
		Template:  tmpl.Source,
		Columns:   append(append([]string(nil), tmpl.Columns...), MatchTypeColumn),
		QtyColumn: tmpl.QtyColumn,
	}
	if tmpl.QtyColumn == "" {
		out.Warnings = append(out.Warnings, model.Warning{
			Code:    model.WarnMissingColumn,
			Source:  tmpl.Source,
			Message: "template has no quantity column; quantities left blank",
		})
	}

	merged := crossMerges(in.Log)
	exclude := make(map[string]struct{}, len(opts.ExcludeSKUs))
	for _, sku := range opts.ExcludeSKUs {
		exclude[strings.TrimSpace(sku)] = struct{}{}
	}
	keepUnmatched := func(sku string) bool {
		if opts.UnmatchedPolicy == model.UnmatchedNone {
			return false
		}
		_, drop := exclude[sku]
		return !drop
	}

	c := consolidator{
		tmpl:    tmpl,
		other:   other,
		marker:  opts.EmptyMarker,
		out:     &out,
		seen:    make(map[string]int),
		missing: make(map[string]int),
	}
	otherIdx := buildIndex(other.Records, bySkuRaw)
	tmplIdx := buildIndex(tmpl.Records, bySkuRaw)

	for _, r := range tmpl.Records {
		if c.collapse(r) {
			continue
		}
		cp := otherIdx.first(r.SkuRaw)
		res, isMerged := merged[r.SkuRaw]

		mt := model.Unmatched(tmpl.Source)
		switch {
		case isMerged:
			mt = model.MatchFuzzyMerged
		case cp != nil:
			mt = model.MatchExact
		}
		if mt == model.Unmatched(tmpl.Source) && !keepUnmatched(r.SkuRaw) {
			continue
		}

		qty := r.Quantity
		cpQty := ""
		if cp != nil {
			cpQty = cp.Quantity
		}
		if isMerged {
			qty = pickQuantity(res.ResultQuantity, qty, cpQty)
		} else if opts.QuantityPreference == model.PreferCounterpart {
			qty = pickQuantity(cpQty, qty)
		} else {
			qty = pickQuantity(qty, cpQty)
		}
		c.emit(r, cp, tmpl, qty, mt)
	}

	for _, r := range other.Records {
		if tmplIdx.has(r.SkuRaw) || c.collapse(r) {
			continue
		}
		res, isMerged := merged[r.SkuRaw]
		mt := model.Unmatched(other.Source)
		qty := r.Quantity
		if isMerged {
			mt = model.MatchFuzzyMerged
			qty = pickQuantity(res.ResultQuantity, qty)
		} else if !keepUnmatched(r.SkuRaw) {
			continue
		}
		c.emit(r, nil, other, qty, mt)
	}

	for _, col := range tmpl.Columns {
		if n := c.missing[col]; n > 0 {
			out.Warnings = append(out.Warnings, model.Warning{
				Code:    model.WarnSchemaMismatch,
				Source:  other.Source,
				Message: fmt.Sprintf("column %q absent from source %s; %d rows filled with empty marker", col, other.Source, n),
			})
		}
	}
	return out
}

type consolidator struct {
	tmpl, other *model.Dataset
	marker      string
	out         *model.Consolidated
	seen        map[string]int // sku → row index in out
	missing     map[string]int // template column → rows lacking it
}

// emit writes one output row for r, which belongs to src. cp is the
// counterpart row used to fill blank template cells.
func (c *consolidator) emit(r, cp *model.InventoryRecord, src *model.Dataset, qty string, mt model.MatchType) {
	vals := make([]string, 0, len(c.out.Columns))
	for _, col := range c.tmpl.Columns {
		var v string
		switch {
		case col == c.tmpl.SkuColumn:
			v = r.SkuRaw
		case c.tmpl.QtyColumn != "" && col == c.tmpl.QtyColumn:
			v = qty
		case src == c.tmpl:
			v, _ = src.Value(r, col)
			if strings.TrimSpace(v) == "" && cp != nil {
				if cv, ok := c.other.Value(cp, col); ok {
					v = cv
				}
			}
		default:
			var ok bool
			if v, ok = src.Value(r, col); !ok {
				c.missing[col]++
			}
		}
		if strings.TrimSpace(v) == "" {
			v = c.marker
		}
		vals = append(vals, v)
	}
	vals = append(vals, string(mt))

	if c.tmpl.QtyColumn == "" {
		qty = ""
	}
	c.seen[r.SkuRaw] = len(c.out.Rows)
	c.out.Rows = append(c.out.Rows, model.ReconciledRecord{
		SKU:       r.SkuRaw,
		Quantity:  qty,
		MatchType: mt,
		Values:    vals,
	})
}

// collapse folds a repeated SKU into the row already written for it, adding
// quantities when both are numeric.
func (c *consolidator) collapse(r *model.InventoryRecord) bool {
	i, dup := c.seen[r.SkuRaw]
	if !dup {
		return false
	}
	row := &c.out.Rows[i]
	msg := "repeated sku folded into first row"
	if c.tmpl.QtyColumn != "" {
		x, okX, errX := utils.ParseQuantity(row.Quantity)
		y, okY, errY := utils.ParseQuantity(r.Quantity)
		switch {
		case errX != nil || errY != nil:
			msg = "repeated sku folded into first row; quantity not numeric, kept first"
		case okY:
			sum := y
			if okX {
				sum = x.Add(y)
			}
			row.Quantity = utils.FormatQuantity(sum)
			for j, col := range c.tmpl.Columns {
				if col == c.tmpl.QtyColumn {
					row.Values[j] = row.Quantity
				}
			}
			msg = "repeated sku folded into first row; quantities added"
		}
	}
	c.out.Warnings = append(c.out.Warnings, model.Warning{
		Code:    model.WarnDuplicateSKU,
		Source:  r.Source,
		Row:     r.Row,
		SKU:     r.SkuRaw,
		Message: msg,
	})
	return true
}

// crossMerges indexes cross-source MERGE results by surviving SKU; a later
// merge onto the same SKU supersedes an earlier one.
func crossMerges(log []model.Resolution) map[string]model.Resolution {
	out := make(map[string]model.Resolution)
	for _, res := range log {
		fc, ok := res.Candidate.(model.FuzzyCandidate)
		if !ok || fc.Scope != model.ScopeCross || res.Action != model.ActionMerge {
			continue
		}
		out[res.ResultSKU] = res
	}
	return out
}

func pickQuantity(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
