package service

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-recon/internal/reconcile/model"
)

func TestInspect(t *testing.T) {
	a, b := scenario(t)
	s := newSession(t, a, b)

	in := s.Inspect()
	require.Len(t, in.DuplicatesA.Groups, 1)
	assert.Equal(t, "AB100", in.DuplicatesA.Groups[0].SkuKey)
	assert.Empty(t, in.DuplicatesB.Groups)
	assert.Len(t, in.Cross.Exact, 1)
	require.Len(t, in.Cross.Candidates, 1)
	assert.Equal(t, "WDGT-01", in.Cross.Candidates[0].Left)

	assert.Equal(t, model.StateIntraA, s.State(), "inspection leaves the queue alone")
	assert.Equal(t, 1, s.Pending())
}

func TestExports(t *testing.T) {
	a, b := scenario(t)
	s := newSession(t, a, b)

	_, _, err := s.Export(ExportConsolidated)
	assert.True(t, eris.Is(err, model.ErrNotDone))

	_, err = s.Resolve(model.Decision{Action: model.ActionMerge, Target: "AB100"})
	require.NoError(t, err)

	h, rows, err := s.Export(ExportFuzzy)
	require.NoError(t, err)
	assert.Equal(t, "Left SKU", h[0])
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"WDGT-01", "WDGT-1", "92.31", "cross-source", "", "pending", "", "", ""}, rows[0])

	h, rows, err = s.Export(ExportExact)
	require.NoError(t, err)
	assert.Equal(t, []string{"SKU", "Quantity A", "Quantity B"}, h)
	assert.Equal(t, [][]string{{"AB100", "8", ""}}, rows)

	_, rows, err = s.Export(ExportUnmatchedB)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"WDGT-1", "Gadget", "6"}, {"Z-9", "Remote", "1"}}, rows)

	h, rows, err = s.Export(ExportCleanedA)
	require.NoError(t, err)
	assert.Equal(t, inventoryCols, h)
	assert.Len(t, rows, 3)

	_, err = s.Resolve(model.Decision{Action: model.ActionIgnore})
	require.NoError(t, err)

	_, rows, err = s.Export(ExportLog)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1", "IntraA", "duplicate_group"}, rows[0][:3])
	assert.Equal(t, "IGNORE", rows[1][4])

	_, rows, err = s.Export(ExportFuzzy)
	require.NoError(t, err)
	assert.Equal(t, "resolved", rows[0][5])

	h, rows, err = s.Export(ExportConsolidated)
	require.NoError(t, err)
	assert.Equal(t, MatchTypeColumn, h[len(h)-1])
	assert.Len(t, rows, 5)

	sum := s.Summary()
	assert.Equal(t, "Done", sum.State)
	assert.Equal(t, 2, sum.Resolved)
	assert.Equal(t, 1, sum.ExactMatches)

	_, _, err = s.Export("bogus")
	assert.Error(t, err)
}
