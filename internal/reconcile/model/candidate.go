package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// State is a stage of the resolution workflow. Stages are visited in
// declaration order; a stage is left only once its queue is empty.
type State int

const (
	StateIntraA State = iota
	StateIntraAFuzzy
	StateIntraB
	StateIntraBFuzzy
	StateCross
	StateDone
)

var stateNames = [...]string{"IntraA", "IntraAFuzzy", "IntraB", "IntraBFuzzy", "Cross", "Done"}

func (s State) String() string {
	if s < StateIntraA || s > StateDone {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func ParseState(v string) (State, error) {
	for i, n := range stateNames {
		if strings.EqualFold(n, strings.TrimSpace(v)) {
			return State(i), nil
		}
	}
	return 0, eris.Wrapf(ErrUnknownState, "%q", v)
}

// Source returns the source a per-source stage works on.
func (s State) Source() (Source, bool) {
	switch s {
	case StateIntraA, StateIntraAFuzzy:
		return SourceA, true
	case StateIntraB, StateIntraBFuzzy:
		return SourceB, true
	}
	return "", false
}

type Action string

const (
	ActionKeep   Action = "KEEP"
	ActionMerge  Action = "MERGE"
	ActionDelete Action = "DELETE"
	ActionIgnore Action = "IGNORE"
)

func ParseAction(v string) (Action, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "KEEP", "K":
		return ActionKeep, nil
	case "MERGE", "M":
		return ActionMerge, nil
	case "DELETE", "D":
		return ActionDelete, nil
	case "IGNORE", "I":
		return ActionIgnore, nil
	}
	return "", eris.Wrapf(ErrInvalidAction, "%q", v)
}

type Scope string

const (
	ScopeIntra Scope = "intra-source"
	ScopeCross Scope = "cross-source"
)

// Candidate is something the operator has to decide on: a DuplicateGroup
// or a FuzzyCandidate.
type Candidate interface {
	Kind() string
	Describe() string
}

// DuplicateGroup holds records of one source sharing a normalized key.
type DuplicateGroup struct {
	SkuKey  string             `json:"skuKey"`
	Source  Source             `json:"source"`
	Members []*InventoryRecord `json:"members"`
}

func (DuplicateGroup) Kind() string { return "duplicate_group" }

func (g DuplicateGroup) Describe() string {
	skus := make([]string, len(g.Members))
	for i, m := range g.Members {
		skus[i] = m.SkuRaw
	}
	return fmt.Sprintf("%s: %d rows share key %s (%s)", g.Source, len(g.Members), g.SkuKey, strings.Join(skus, ", "))
}

// FuzzyCandidate pairs two SKUs that are similar but not equal.
// Intra-source pairs carry normalized keys; cross-source pairs carry the raw
// A-side SKU in Left and the raw B-side SKU in Right.
type FuzzyCandidate struct {
	Left       string  `json:"left"`
	Right      string  `json:"right"`
	Similarity float64 `json:"similarity"`
	Scope      Scope   `json:"scope"`
	Source     Source  `json:"source,omitempty"`
}

func (FuzzyCandidate) Kind() string { return "fuzzy" }

func (c FuzzyCandidate) Describe() string {
	if c.Scope == ScopeCross {
		return fmt.Sprintf("A %s ~ B %s (%.2f%%)", c.Left, c.Right, c.Similarity*100)
	}
	return fmt.Sprintf("%s: %s ~ %s (%.2f%%)", c.Source, c.Left, c.Right, c.Similarity*100)
}

// Decision is the operator's answer for the current candidate.
//
// Target is the SKU to keep: the merge result for MERGE, the surviving side
// of a fuzzy pair for DELETE. Survivor is the member index kept by DELETE on
// a duplicate group. DeleteAll removes every member instead.
type Decision struct {
	Action    Action `json:"action"`
	Target    string `json:"target,omitempty"`
	Survivor  int    `json:"survivor,omitempty"`
	DeleteAll bool   `json:"deleteAll,omitempty"`
}

// Resolution is the log entry written once per retired candidate.
type Resolution struct {
	Seq            int       `json:"seq"`
	State          State     `json:"state"`
	Candidate      Candidate `json:"candidate"`
	Action         Action    `json:"action"`
	ResultSKU      string    `json:"resultSku,omitempty"`
	ResultQuantity string    `json:"resultQuantity,omitempty"`
	ResultSource   Source    `json:"resultSource,omitempty"`
	Removed        int       `json:"removed"`
	Skipped        bool      `json:"skipped,omitempty"`
	At             time.Time `json:"at"`
}
