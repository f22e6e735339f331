package model

import "github.com/rotisserie/eris"

const (
	PolicyCanonical = "canonical"
	PolicyAlnum     = "alnum"
	PolicyTrimUpper = "trim-upper"

	MetricRatio   = "ratio"
	MetricDamerau = "damerau"

	PreferTemplate    = "template"
	PreferCounterpart = "counterpart"

	UnmatchedAll  = "all"
	UnmatchedNone = "none"
)

// Options configure one reconciliation run.
type Options struct {
	IntraThreshold     float64  `json:"intraThreshold"`     // 0..1, strict lower bound
	CrossLow           float64  `json:"crossLow"`           // percent
	CrossHigh          float64  `json:"crossHigh"`          // percent
	CrossInclusive     bool     `json:"crossInclusive"`     // include the bounds themselves
	Template           Source   `json:"template"`           // source whose layout shapes the output
	NormalizePolicy    string   `json:"normalizePolicy"`    // canonical | alnum | trim-upper
	SimilarityMetric   string   `json:"similarityMetric"`   // ratio | damerau
	QuantityPreference string   `json:"quantityPreference"` // template | counterpart
	EmptyMarker        string   `json:"emptyMarker"`
	UnmatchedPolicy    string   `json:"unmatchedPolicy"` // all | none
	ExcludeSKUs        []string `json:"excludeSkus,omitempty"`
}

func DefaultOptions() Options {
	return Options{
		IntraThreshold:     0.95,
		CrossLow:           90,
		CrossHigh:          100,
		Template:           SourceB,
		NormalizePolicy:    PolicyCanonical,
		SimilarityMetric:   MetricRatio,
		QuantityPreference: PreferTemplate,
		UnmatchedPolicy:    UnmatchedAll,
	}
}

func (o Options) Validate() error {
	if o.IntraThreshold < 0 || o.IntraThreshold > 1 {
		return eris.Wrapf(ErrInvalidOptions, "intra threshold %v outside [0,1]", o.IntraThreshold)
	}
	if o.CrossLow < 0 || o.CrossHigh > 100 || o.CrossLow >= o.CrossHigh {
		return eris.Wrapf(ErrInvalidOptions, "cross window (%v,%v) is not a range inside [0,100]", o.CrossLow, o.CrossHigh)
	}
	if o.Template != SourceA && o.Template != SourceB {
		return eris.Wrapf(ErrInvalidOptions, "template source %q", o.Template)
	}
	switch o.NormalizePolicy {
	case PolicyCanonical, PolicyAlnum, PolicyTrimUpper:
	default:
		return eris.Wrapf(ErrInvalidOptions, "normalize policy %q", o.NormalizePolicy)
	}
	switch o.SimilarityMetric {
	case MetricRatio, MetricDamerau:
	default:
		return eris.Wrapf(ErrInvalidOptions, "similarity metric %q", o.SimilarityMetric)
	}
	switch o.QuantityPreference {
	case PreferTemplate, PreferCounterpart:
	default:
		return eris.Wrapf(ErrInvalidOptions, "quantity preference %q", o.QuantityPreference)
	}
	switch o.UnmatchedPolicy {
	case UnmatchedAll, UnmatchedNone:
	default:
		return eris.Wrapf(ErrInvalidOptions, "unmatched policy %q", o.UnmatchedPolicy)
	}
	return nil
}
