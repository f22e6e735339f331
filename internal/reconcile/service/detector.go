package service

import (
	"sort"

	"inventory-recon/internal/reconcile/model"
)

// DetectDuplicates runs both intra-source passes over one source.
func DetectDuplicates(rows []*model.InventoryRecord, src model.Source, sc Scorer, threshold float64) model.DuplicateReport {
	return model.DuplicateReport{
		Groups: ExactGroups(rows, src),
		Fuzzy:  FuzzyDuplicates(rows, src, sc, threshold),
	}
}

// ExactGroups returns the keys shared by two or more records, in the order
// the key was first seen.
func ExactGroups(rows []*model.InventoryRecord, src model.Source) []model.DuplicateGroup {
	idx := buildIndex(rows, bySkuKey)
	var out []model.DuplicateGroup
	for _, k := range idx.order {
		members := idx.groups[k]
		if len(members) < 2 {
			continue
		}
		out = append(out, model.DuplicateGroup{
			SkuKey:  k,
			Source:  src,
			Members: append([]*model.InventoryRecord(nil), members...),
		})
	}
	return out
}

// FuzzyDuplicates compares every pair of distinct keys and keeps those scoring
// strictly above threshold, best first. Quadratic in distinct keys; fine for
// catalogs up to the low tens of thousands.
func FuzzyDuplicates(rows []*model.InventoryRecord, src model.Source, sc Scorer, threshold float64) []model.FuzzyCandidate {
	keys := buildIndex(rows, bySkuKey).order
	lens := make([]int, len(keys))
	for i, k := range keys {
		lens[i] = len([]rune(k))
	}

	var out []model.FuzzyCandidate
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			if sc.ceiling(lens[i], lens[j]) <= threshold {
				continue
			}
			if s := sc.Similarity(keys[i], keys[j]); s > threshold {
				out = append(out, model.FuzzyCandidate{
					Left:       keys[i],
					Right:      keys[j],
					Similarity: s,
					Scope:      model.ScopeIntra,
					Source:     src,
				})
			}
		}
	}
	// stable: equal scores keep first-seen order
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	return out
}
