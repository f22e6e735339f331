package service

import (
	"strings"
	"unicode/utf8"

	"inventory-recon/internal/reconcile/model"
)

// Scorer computes a symmetric similarity in [0..1]; identical strings score 1.
//
// "ratio" is the indel ratio 2*LCS/(|a|+|b|) (WDGT-01 vs WDGT-1 → 0.923).
// "damerau" is 1 - dist/max(|a|,|b|) over Damerau-Levenshtein distance.
type Scorer struct {
	metric string
}

func NewScorer(metric string) Scorer {
	if metric != model.MetricDamerau {
		metric = model.MetricRatio
	}
	return Scorer{metric: metric}
}

func (s Scorer) Metric() string { return s.metric }

func (s Scorer) Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	if s.metric == model.MetricDamerau {
		d := damerauLevenshtein(a, b)
		m := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
		return 1 - float64(d)/float64(m)
	}
	ra, rb := []rune(a), []rune(b)
	return 2 * float64(lcsLength(ra, rb)) / float64(len(ra)+len(rb))
}

// ceiling is the best score two strings of these lengths could reach; pairs
// whose ceiling is below the threshold are skipped without scoring.
func (s Scorer) ceiling(la, lb int) float64 {
	if la == 0 && lb == 0 {
		return 1
	}
	lo, hi := min(la, lb), max(la, lb)
	if s.metric == model.MetricDamerau {
		return float64(lo) / float64(hi)
	}
	return 2 * float64(lo) / float64(la+lb)
}

// crossForm is how raw SKUs are compared across sources: trimmed and
// uppercased, punctuation kept.
func crossForm(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}
