package service

import (
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"inventory-recon/internal/reconcile/model"
)

// AutoPolicy answers every candidate of a kind with the same action, for
// unattended runs.
type AutoPolicy struct {
	Exact      model.Action // exact duplicate groups
	IntraFuzzy model.Action // near-duplicate keys within a source
	Cross      model.Action // near matches across sources
}

// DefaultAutoPolicy aggregates exact duplicates and leaves every fuzzy pair
// for a human: near matches are kept apart.
func DefaultAutoPolicy() AutoPolicy {
	return AutoPolicy{Exact: model.ActionMerge, IntraFuzzy: model.ActionKeep, Cross: model.ActionKeep}
}

// decide answers c. A merged group takes the spelling the other source
// already uses when one member has it, so the exact match survives.
func (p AutoPolicy) decide(s *Session, c model.Candidate) model.Decision {
	switch cand := c.(type) {
	case model.DuplicateGroup:
		d := model.Decision{Action: p.Exact}
		other := s.dataset(cand.Source.Other())
		for _, m := range cand.Members {
			if len(other.ByRaw(m.SkuRaw)) > 0 {
				d.Target = m.SkuRaw
				break
			}
		}
		return d
	case model.FuzzyCandidate:
		if cand.Scope == model.ScopeCross {
			return model.Decision{Action: p.Cross}
		}
	}
	return model.Decision{Action: p.IntraFuzzy}
}

// Run drains s with the policy. A decision the data rejects (a non-numeric
// quantity in a merge, a stale pair) falls back to IGNORE so the run always
// finishes; the rejection is logged by the session.
func Run(s *Session, p AutoPolicy) (model.Consolidated, error) {
	for {
		c, ok := s.Current()
		if !ok {
			break
		}
		d := p.decide(s, c)
		if _, err := s.Resolve(d); err != nil {
			if !eris.Is(err, model.ErrInvalidQuantity) && !eris.Is(err, model.ErrStaleCandidate) && !eris.Is(err, model.ErrInvalidRecord) {
				return model.Consolidated{}, err
			}
			if _, err := s.Resolve(model.Decision{Action: model.ActionIgnore}); err != nil {
				return model.Consolidated{}, err
			}
		}
	}
	return s.Consolidate()
}

// Reconcile is the one-shot form: open a session over a and b and run it.
func Reconcile(a, b *model.Dataset, opts model.Options, p AutoPolicy, logger zerolog.Logger) (*Session, model.Consolidated, error) {
	s, err := NewSession(a, b, opts, logger)
	if err != nil {
		return nil, model.Consolidated{}, err
	}
	out, err := Run(s, p)
	return s, out, err
}
