package service

import (
	"sort"

	"inventory-recon/internal/reconcile/model"
)

// Window is the cross-source similarity band, in percent.
type Window struct {
	Low, High float64
	Inclusive bool
}

func (w Window) contains(pct float64) bool {
	if w.Inclusive {
		return pct >= w.Low && pct <= w.High
	}
	return pct > w.Low && pct < w.High
}

// Partition splits two cleaned sources into raw-SKU exact matches and the
// residues on each side. A raw SKU repeated inside one source counts once,
// by its first row.
func Partition(a, b *model.Dataset) (exact []model.ExactMatch, resA, resB []*model.InventoryRecord) {
	idxA := buildIndex(a.Records, bySkuRaw)
	idxB := buildIndex(b.Records, bySkuRaw)

	for _, sku := range idxA.order {
		ra := idxA.first(sku)
		if rb := idxB.first(sku); rb != nil {
			exact = append(exact, model.ExactMatch{SKU: sku, A: ra, B: rb})
			continue
		}
		resA = append(resA, ra)
	}
	for _, sku := range idxB.order {
		if !idxA.has(sku) {
			resB = append(resB, idxB.first(sku))
		}
	}
	return exact, resA, resB
}

// CrossMatch partitions the sources and pairs up residues whose similarity
// falls inside the window. Candidates are ordered best first; ties keep
// residue order.
func CrossMatch(a, b *model.Dataset, sc Scorer, w Window) model.CrossResult {
	exact, resA, resB := Partition(a, b)
	res := model.CrossResult{Exact: exact, ResidueA: resA, ResidueB: resB}

	formB := make([]string, len(resB))
	lenB := make([]int, len(resB))
	for j, rb := range resB {
		formB[j] = crossForm(rb.SkuRaw)
		lenB[j] = len([]rune(formB[j]))
	}

	for _, ra := range resA {
		fa := crossForm(ra.SkuRaw)
		la := len([]rune(fa))
		for j, rb := range resB {
			if ra.SkuRaw == rb.SkuRaw {
				continue
			}
			if top := sc.ceiling(la, lenB[j]) * 100; top < w.Low || (!w.Inclusive && top == w.Low) {
				continue
			}
			s := sc.Similarity(fa, formB[j])
			if !w.contains(s * 100) {
				continue
			}
			res.Candidates = append(res.Candidates, model.FuzzyCandidate{
				Left:       ra.SkuRaw,
				Right:      rb.SkuRaw,
				Similarity: s,
				Scope:      model.ScopeCross,
			})
		}
	}
	sort.SliceStable(res.Candidates, func(i, j int) bool {
		return res.Candidates[i].Similarity > res.Candidates[j].Similarity
	})
	return res
}
