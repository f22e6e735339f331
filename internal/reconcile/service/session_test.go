package service

import (
	"strconv"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-recon/internal/reconcile/model"
)

func scenario(t *testing.T) (*model.Dataset, *model.Dataset) {
	a := newDataset(t, model.SourceA, inventoryCols,
		[]string{"ab-100", "Widget", "5"},
		[]string{"AB100", "Widget", "3"},
		[]string{"WDGT-01", "Gadget", "4"},
		[]string{"X-500", "Cable", "2"},
	)
	b := newDataset(t, model.SourceB, inventoryCols,
		[]string{"AB100", "Widget large", ""},
		[]string{"WDGT-1", "Gadget", "6"},
		[]string{"Z-9", "Remote", "1"},
	)
	return a, b
}

func TestSessionEndToEnd(t *testing.T) {
	a, b := scenario(t)
	s := newSession(t, a, b)

	require.Equal(t, model.StateIntraA, s.State())
	require.Equal(t, 1, s.Pending())
	c, ok := s.Current()
	require.True(t, ok)
	g, ok := c.(model.DuplicateGroup)
	require.True(t, ok)
	assert.Len(t, g.Members, 2)

	res, err := s.Resolve(model.Decision{Action: model.ActionMerge, Target: "AB100"})
	require.NoError(t, err)
	assert.Equal(t, "AB100", res.ResultSKU)
	assert.Equal(t, "8", res.ResultQuantity)
	assert.Equal(t, 1, res.Removed)

	merged := a.ByKey("AB100")
	require.Len(t, merged, 1)
	assert.Equal(t, "AB100", merged[0].SkuRaw)
	assert.Equal(t, "8", merged[0].Quantity)

	// nothing else to clean in either source
	require.Equal(t, model.StateCross, s.State())
	require.Equal(t, 1, s.Pending())
	c, _ = s.Current()
	fc := c.(model.FuzzyCandidate)
	assert.Equal(t, "WDGT-01", fc.Left)
	assert.Equal(t, "WDGT-1", fc.Right)

	res, err = s.Resolve(model.Decision{Action: model.ActionMerge})
	require.NoError(t, err)
	assert.Equal(t, "WDGT-01", res.ResultSKU)
	assert.Equal(t, "10", res.ResultQuantity)
	assert.Equal(t, model.SourceA, res.ResultSource)
	assert.Empty(t, b.ByRaw("WDGT-1"))
	require.Equal(t, model.StateDone, s.State())

	out, err := s.Consolidate()
	require.NoError(t, err)
	assert.Equal(t, []string{"SKU", "Description", "Quantity on Hand", MatchTypeColumn}, out.Columns)
	require.Len(t, out.Rows, 4)
	assert.Equal(t, []string{"AB100", "Widget large", "8", "Exact"}, out.Rows[0].Values)
	assert.Equal(t, []string{"Z-9", "Remote", "1", "Unmatched B"}, out.Rows[1].Values)
	assert.Equal(t, []string{"WDGT-01", "Gadget", "10", "Fuzzy Merged"}, out.Rows[2].Values)
	assert.Equal(t, []string{"X-500", "Cable", "2", "Unmatched A"}, out.Rows[3].Values)

	log := s.Log()
	require.Len(t, log, 2)
	assert.Equal(t, 1, log[0].Seq)
	assert.Equal(t, model.StateIntraA, log[0].State)
	assert.Equal(t, model.StateCross, log[1].State)
	// the log keeps the group as it was presented
	assert.Equal(t, "ab-100", log[0].Candidate.(model.DuplicateGroup).Members[0].SkuRaw)
}

func TestMergeConservesQuantity(t *testing.T) {
	a := newDataset(t, model.SourceA, inventoryCols,
		[]string{"k-1", "", "1.5"},
		[]string{"K1", "", "2"},
		[]string{"k 1", "", ""},
	)
	b := newDataset(t, model.SourceB, inventoryCols, []string{"Q", "", "1"})
	s := newSession(t, a, b)

	_, err := s.Resolve(model.Decision{Action: model.ActionMerge, Target: "K1"})
	require.NoError(t, err)
	require.Len(t, a.Records, 1)
	assert.Equal(t, "K1", a.Records[0].SkuRaw)
	assert.Equal(t, "3.5", a.Records[0].Quantity)
}

func TestMergeRejectsNonNumericQuantity(t *testing.T) {
	a := newDataset(t, model.SourceA, inventoryCols,
		[]string{"ab-100", "", "five"},
		[]string{"AB100", "", "3"},
	)
	b := newDataset(t, model.SourceB, inventoryCols, []string{"Q", "", "1"})
	s := newSession(t, a, b)

	_, err := s.Resolve(model.Decision{Action: model.ActionMerge, Target: "AB100"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrInvalidQuantity))

	assert.Equal(t, model.StateIntraA, s.State())
	assert.Equal(t, 1, s.Pending())
	assert.Len(t, a.Records, 2)
	assert.Equal(t, "ab-100", a.Records[0].SkuRaw)
	assert.Empty(t, s.Log())

	res, err := s.Resolve(model.Decision{Action: model.ActionDelete, Survivor: 1})
	require.NoError(t, err)
	assert.Equal(t, "AB100", res.ResultSKU)
	require.Len(t, a.Records, 1)
	assert.Equal(t, "3", a.Records[0].Quantity)
}

func TestQueueShrinksByOnePerDecision(t *testing.T) {
	a := newDataset(t, model.SourceA, inventoryCols,
		[]string{"a-1", "", "1"}, []string{"A1", "", "1"},
		[]string{"b-2", "", "1"}, []string{"B2", "", "1"},
		[]string{"c-3", "", "1"}, []string{"C3", "", "1"},
	)
	b := newDataset(t, model.SourceB, inventoryCols, []string{"Q", "", "1"})
	s := newSession(t, a, b)

	seen := map[string]bool{}
	for _, act := range []model.Action{model.ActionKeep, model.ActionIgnore} {
		before := s.Pending()
		c, ok := s.Current()
		require.True(t, ok)
		key := c.(model.DuplicateGroup).SkuKey
		require.False(t, seen[key], "presented twice: %s", key)
		seen[key] = true

		_, err := s.Resolve(model.Decision{Action: act})
		require.NoError(t, err)
		assert.Equal(t, before-1, s.Pending())
	}
	assert.Len(t, a.Records, 6, "KEEP and IGNORE leave the data alone")

	log := s.Log()
	assert.Equal(t, model.ActionKeep, log[0].Action)
	assert.Equal(t, model.ActionIgnore, log[1].Action)
	assert.False(t, log[1].Skipped)
}

func TestDeleteAllMembers(t *testing.T) {
	a := newDataset(t, model.SourceA, inventoryCols,
		[]string{"a-1", "", "1"}, []string{"A1", "", "1"}, []string{"B7", "", "2"})
	b := newDataset(t, model.SourceB, inventoryCols, []string{"Q", "", "1"})
	s := newSession(t, a, b)

	_, err := s.Resolve(model.Decision{Action: model.ActionDelete, Survivor: 5})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrInvalidAction))

	res, err := s.Resolve(model.Decision{Action: model.ActionDelete, DeleteAll: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Removed)
	assert.Equal(t, []string{"B7"}, skus(a.Records))
}

func TestResolveRejectsUnknownAction(t *testing.T) {
	a, b := scenario(t)
	s := newSession(t, a, b)
	_, err := s.Resolve(model.Decision{Action: "SPLIT"})
	assert.True(t, eris.Is(err, model.ErrInvalidAction))
	assert.Equal(t, 1, s.Pending())
}

func TestIntraFuzzyMergeAndDelete(t *testing.T) {
	a := newDataset(t, model.SourceA, inventoryCols,
		[]string{"SPEAKER-WALL-MOUNT-2000", "Mount", "2"},
		[]string{"SPEAKER-WALL-MOUNT-20000", "Mount", "1"},
	)
	b := newDataset(t, model.SourceB, inventoryCols,
		[]string{"ABCDEFGHIJKLMNOPQRST", "", "4"},
		[]string{"ABCDEFGHIJKLMNOPQRSTU", "", "1"},
	)
	s := newSession(t, a, b)
	require.Equal(t, model.StateIntraAFuzzy, s.State())

	res, err := s.Resolve(model.Decision{Action: model.ActionMerge, Target: "SPEAKER-WALL-MOUNT-20000"})
	require.NoError(t, err)
	assert.Equal(t, "3", res.ResultQuantity)
	require.Len(t, a.Records, 1)
	assert.Equal(t, "SPEAKER-WALL-MOUNT-20000", a.Records[0].SkuRaw)
	assert.Equal(t, "SPEAKERWALLMOUNT20000", a.Records[0].SkuKey)

	require.Equal(t, model.StateIntraBFuzzy, s.State())
	_, err = s.Resolve(model.Decision{Action: model.ActionDelete, Target: "NOPE"})
	assert.True(t, eris.Is(err, model.ErrInvalidAction))

	res, err = s.Resolve(model.Decision{Action: model.ActionDelete, Target: "abcdefghijklmnopqrstu"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ABCDEFGHIJKLMNOPQRSTU"}, skus(b.Records))
	assert.Equal(t, 1, res.Removed)
}

func TestCrossStaleCandidate(t *testing.T) {
	a := newDataset(t, model.SourceA, inventoryCols, []string{"WDGT-01", "", "4"})
	b := newDataset(t, model.SourceB, inventoryCols,
		[]string{"WDGT-1", "", "6"},
		[]string{"WDGT-001", "", "1"},
	)
	s := newSession(t, a, b)
	require.Equal(t, model.StateCross, s.State())
	require.Equal(t, 2, s.Pending())

	c, _ := s.Current()
	assert.Equal(t, "WDGT-001", c.(model.FuzzyCandidate).Right)

	// keep the B side: A's row goes away
	res, err := s.Resolve(model.Decision{Action: model.ActionMerge, Target: "WDGT-001"})
	require.NoError(t, err)
	assert.Equal(t, model.SourceB, res.ResultSource)
	assert.Equal(t, "5", res.ResultQuantity)
	assert.Empty(t, a.Records)

	c, _ = s.Current()
	assert.True(t, s.Stale(c))
	_, err = s.Resolve(model.Decision{Action: model.ActionMerge})
	assert.True(t, eris.Is(err, model.ErrStaleCandidate))
	assert.Equal(t, 1, s.Pending())

	_, err = s.Resolve(model.Decision{Action: model.ActionIgnore})
	require.NoError(t, err)
	assert.Equal(t, model.StateDone, s.State())

	_, err = s.Resolve(model.Decision{Action: model.ActionKeep})
	assert.True(t, eris.Is(err, model.ErrQueueEmpty))
}

func TestCrossDeleteKeepsNamedSide(t *testing.T) {
	a := newDataset(t, model.SourceA, inventoryCols, []string{"WDGT-01", "", "4"})
	b := newDataset(t, model.SourceB, inventoryCols, []string{"WDGT-1", "", "6"})
	s := newSession(t, a, b)

	res, err := s.Resolve(model.Decision{Action: model.ActionDelete, Target: "WDGT-1"})
	require.NoError(t, err)
	assert.Equal(t, "6", res.ResultQuantity)
	assert.Empty(t, a.Records)
	assert.Len(t, b.Records, 1)
}

func TestSkipAndReset(t *testing.T) {
	a := newDataset(t, model.SourceA, inventoryCols,
		[]string{"a-1", "", "1"}, []string{"A1", "", "1"},
		[]string{"b-2", "", "1"}, []string{"B2", "", "1"},
	)
	b := newDataset(t, model.SourceB, inventoryCols,
		[]string{"q-1", "", "1"}, []string{"Q1", "", "1"},
	)
	s := newSession(t, a, b)

	assert.Equal(t, 2, s.Skip())
	require.Equal(t, model.StateIntraB, s.State())
	for _, r := range s.Log() {
		assert.Equal(t, model.ActionIgnore, r.Action)
		assert.True(t, r.Skipped)
	}

	err := s.Reset(model.StateCross)
	assert.True(t, eris.Is(err, model.ErrBadTransition))

	require.NoError(t, s.Reset(model.StateIntraA))
	assert.Equal(t, model.StateIntraA, s.State())
	assert.Equal(t, 2, s.Pending(), "skipped groups are offered again")
	assert.Len(t, s.Log(), 2, "reset keeps the log")
	assert.Len(t, a.Records, 4, "reset does not reload data")
}

func TestConsolidateBeforeDone(t *testing.T) {
	a, b := scenario(t)
	s := newSession(t, a, b)
	_, err := s.Consolidate()
	assert.True(t, eris.Is(err, model.ErrNotDone))
}

func TestRunWithDefaultPolicy(t *testing.T) {
	a, b := scenario(t)
	a.Records[0].Quantity = "lots"

	s, out, err := Reconcile(a, b, model.DefaultOptions(), DefaultAutoPolicy(), zeroLogger())
	require.NoError(t, err)
	assert.Equal(t, model.StateDone, s.State())

	log := s.Log()
	require.Len(t, log, 2)
	assert.Equal(t, model.ActionIgnore, log[0].Action, "merge rejected, falls back")
	assert.Equal(t, model.ActionKeep, log[1].Action)

	seen := map[string]bool{}
	for _, r := range out.Rows {
		assert.False(t, seen[r.SKU], "duplicate %s", r.SKU)
		seen[r.SKU] = true
	}
}

func TestCrossMergeRejectsExistingTarget(t *testing.T) {
	a := newDataset(t, model.SourceA, inventoryCols, []string{"WDGT-01", "", "4"})
	b := newDataset(t, model.SourceB, inventoryCols,
		[]string{"WDGT-1", "", "6"},
		[]string{"WDGT-100", "", "10"},
	)
	s := newSession(t, a, b)
	require.Equal(t, model.StateCross, s.State())
	c, _ := s.Current()
	require.Equal(t, "WDGT-1", c.(model.FuzzyCandidate).Right)

	_, err := s.Resolve(model.Decision{Action: model.ActionMerge, Target: "WDGT-100"})
	assert.True(t, eris.Is(err, model.ErrInvalidAction))
	assert.Equal(t, []string{"WDGT-01"}, skus(a.Records))
	assert.Equal(t, []string{"WDGT-1", "WDGT-100"}, skus(b.Records))
	assert.Equal(t, "4", a.Records[0].Quantity)

	_, err = s.Resolve(model.Decision{Action: model.ActionMerge})
	require.NoError(t, err)
	for s.State() != model.StateDone {
		_, err = s.Resolve(model.Decision{Action: model.ActionKeep})
		require.NoError(t, err)
	}
	out, err := s.Consolidate()
	require.NoError(t, err)
	total := 0
	for _, r := range out.Rows {
		n, convErr := strconv.Atoi(r.Quantity)
		require.NoError(t, convErr, r.SKU)
		total += n
	}
	assert.Equal(t, 20, total)
}

func TestGroupMergeRejectsExistingKey(t *testing.T) {
	a := newDataset(t, model.SourceA, inventoryCols,
		[]string{"ab-100", "", "5"},
		[]string{"AB100", "", "3"},
		[]string{"ZZ9", "", "1"},
	)
	b := newDataset(t, model.SourceB, inventoryCols, []string{"Q-1", "", "1"})
	s := newSession(t, a, b)
	require.Equal(t, model.StateIntraA, s.State())

	_, err := s.Resolve(model.Decision{Action: model.ActionMerge, Target: "zz-9"})
	assert.True(t, eris.Is(err, model.ErrInvalidAction))
	assert.Equal(t, model.StateIntraA, s.State())
	assert.Equal(t, []string{"ab-100", "AB100", "ZZ9"}, skus(a.Records))

	res, err := s.Resolve(model.Decision{Action: model.ActionMerge, Target: "AB-100"})
	require.NoError(t, err)
	assert.Equal(t, "AB-100", res.ResultSKU)
	assert.Equal(t, "8", res.ResultQuantity)
}

func TestIntraFuzzyMergeRejectsExistingKey(t *testing.T) {
	a := newDataset(t, model.SourceA, inventoryCols,
		[]string{"SPEAKER-WALL-MOUNT-2000", "", "2"},
		[]string{"SPEAKER-WALL-MOUNT-20000", "", "1"},
		[]string{"TV-MOUNT", "", "7"},
	)
	b := newDataset(t, model.SourceB, inventoryCols, []string{"Q-1", "", "1"})
	s := newSession(t, a, b)
	require.Equal(t, model.StateIntraAFuzzy, s.State())

	_, err := s.Resolve(model.Decision{Action: model.ActionMerge, Target: "TV-MOUNT"})
	assert.True(t, eris.Is(err, model.ErrInvalidAction))
	assert.Len(t, a.Records, 3)
	assert.Equal(t, model.StateIntraAFuzzy, s.State())
}
