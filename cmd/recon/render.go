package main

import (
	"fmt"
	"strconv"
	"strings"

	"inventory-recon/internal/reconcile/model"
	"inventory-recon/internal/reconcile/service"
)

func renderCandidate(s *service.Session, c model.Candidate) string {
	var b strings.Builder
	b.WriteString(c.Describe())
	if s.Stale(c) {
		b.WriteString("  [stale: one side was already removed]")
	}
	b.WriteByte('\n')

	switch cand := c.(type) {
	case model.DuplicateGroup:
		rows := make([][]string, len(cand.Members))
		for i, m := range cand.Members {
			rows[i] = []string{strconv.Itoa(i + 1), m.SkuRaw, m.Quantity, strconv.Itoa(m.Row)}
		}
		b.WriteString(renderTable([]string{"#", "SKU", "Quantity", "Row"}, rows,
			[]columnAlignment{alignRight, alignLeft, alignRight, alignRight}))
	case model.FuzzyCandidate:
		left, right := "A", "B"
		if cand.Scope == model.ScopeIntra {
			left, right = string(cand.Source), string(cand.Source)
		}
		rows := [][]string{{left, cand.Left}, {right, cand.Right}}
		b.WriteString(renderTable([]string{"Source", "SKU"}, rows, nil))
		fmt.Fprintf(&b, "\nsimilarity %.2f%%", cand.Similarity*100)
	}
	b.WriteByte('\n')
	return b.String()
}

func renderSummary(sum model.Summary) string {
	rows := [][]string{
		{"State", sum.State},
		{"Resolved", strconv.Itoa(sum.Resolved)},
		{"Pending", strconv.Itoa(sum.Pending)},
		{"Records A", strconv.Itoa(sum.RecordsA)},
		{"Records B", strconv.Itoa(sum.RecordsB)},
		{"Exact matches", strconv.Itoa(sum.ExactMatches)},
		{"Residue A", strconv.Itoa(sum.ResidueA)},
		{"Residue B", strconv.Itoa(sum.ResidueB)},
		{"Warnings", strconv.Itoa(sum.Warnings)},
	}
	return renderTable([]string{"", ""}, rows, []columnAlignment{alignLeft, alignRight})
}

func renderInspection(in service.Inspection) string {
	counts := [][]string{
		{"A", strconv.Itoa(len(in.DuplicatesA.Groups)), strconv.Itoa(len(in.DuplicatesA.Fuzzy))},
		{"B", strconv.Itoa(len(in.DuplicatesB.Groups)), strconv.Itoa(len(in.DuplicatesB.Fuzzy))},
	}
	var b strings.Builder
	b.WriteString(renderTable([]string{"Source", "Exact groups", "Fuzzy pairs"}, counts,
		[]columnAlignment{alignLeft, alignRight, alignRight}))
	fmt.Fprintf(&b, "\nexact matches %d, residue A %d, residue B %d, cross candidates %d\n",
		len(in.Cross.Exact), len(in.Cross.ResidueA), len(in.Cross.ResidueB), len(in.Cross.Candidates))

	var pairs [][]string
	for _, g := range append(append([]model.DuplicateGroup(nil), in.DuplicatesA.Groups...), in.DuplicatesB.Groups...) {
		pairs = append(pairs, []string{"exact " + string(g.Source), skuList(g.Members), ""})
	}
	for _, f := range append(append(append([]model.FuzzyCandidate(nil), in.DuplicatesA.Fuzzy...), in.DuplicatesB.Fuzzy...), in.Cross.Candidates...) {
		kind := "fuzzy " + string(f.Source)
		if f.Scope == model.ScopeCross {
			kind = "cross"
		}
		pairs = append(pairs, []string{kind, f.Left + " ~ " + f.Right, fmt.Sprintf("%.2f", f.Similarity*100)})
	}
	if len(pairs) > 0 {
		b.WriteString(renderTable([]string{"Kind", "SKUs", "Similarity %"}, pairs,
			[]columnAlignment{alignLeft, alignLeft, alignRight}))
		b.WriteByte('\n')
	}
	return b.String()
}

func renderWarnings(ws []model.Warning) string {
	if len(ws) == 0 {
		return ""
	}
	rows := make([][]string, len(ws))
	for i, w := range ws {
		row := ""
		if w.Row > 0 {
			row = strconv.Itoa(w.Row)
		}
		rows[i] = []string{w.Code, string(w.Source), row, w.SKU, w.Message}
	}
	return renderTable([]string{"Warning", "Source", "Row", "SKU", "Message"}, rows, nil) + "\n"
}

func skuList(rs []*model.InventoryRecord) string {
	s := make([]string, len(rs))
	for i, r := range rs {
		s[i] = r.SkuRaw
	}
	return strings.Join(s, ", ")
}
