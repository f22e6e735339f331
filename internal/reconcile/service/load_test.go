package service

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-recon/internal/fileio"
	"inventory-recon/internal/reconcile/model"
)

func TestLoadDataset(t *testing.T) {
	tbl := &fileio.Table{
		Columns: []string{"Item Code", "Desc", "Qty"},
		Rows: [][]string{
			{" ab-100 ", "Widget", "5"},
			{"", "blank sku", "1"},
			{"---", "punctuation only", "1"},
			{"WDGT-01", "Gadget", "a few"},
		},
		Lines: []int{2, 3, 4, 6},
	}
	ds, warns, err := LoadDataset(tbl, model.SourceA, "a.csv", model.Mapping{SkuColumn: "SKU|Item Code", QtyColumn: "Quantity|Qty"}, Normalize)
	require.NoError(t, err)

	assert.Equal(t, "Item Code", ds.SkuColumn)
	assert.Equal(t, "Qty", ds.QtyColumn)
	require.Len(t, ds.Records, 2)

	r := ds.Records[0]
	assert.Equal(t, "ab-100", r.SkuRaw)
	assert.Equal(t, "AB100", r.SkuKey)
	assert.Equal(t, "5", r.Quantity)
	assert.Equal(t, 2, r.Row)
	assert.Equal(t, map[string]string{"Desc": "Widget"}, r.Attrs)
	assert.Equal(t, "a few", ds.Records[1].Quantity, "bad quantities are kept verbatim")

	codes := make([]string, len(warns))
	for i, w := range warns {
		codes[i] = w.Code
	}
	assert.Equal(t, []string{model.WarnInvalidRecord, model.WarnInvalidRecord, model.WarnInvalidQty}, codes)
	assert.Equal(t, 6, warns[2].Row)
}

func TestLoadDatasetMissingColumns(t *testing.T) {
	tbl := &fileio.Table{Columns: []string{"Name", "Count"}, Rows: [][]string{{"x", "1"}}}

	_, _, err := LoadDataset(tbl, model.SourceB, "b.csv", model.Mapping{SkuColumn: "SKU"}, Normalize)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrMissingColumn))

	tbl = &fileio.Table{Columns: []string{"SKU", "Name"}, Rows: [][]string{{"x1", "thing"}}}
	ds, warns, err := LoadDataset(tbl, model.SourceB, "b.csv", model.Mapping{SkuColumn: "SKU", QtyColumn: "Quantity"}, Normalize)
	require.NoError(t, err)
	assert.Empty(t, ds.QtyColumn)
	require.Len(t, warns, 1)
	assert.Equal(t, model.WarnMissingColumn, warns[0].Code)
}

func TestOpenSession(t *testing.T) {
	m := model.Mapping{SkuColumn: "SKU", QtyColumn: "Qty"}
	a := Input{Name: "a.csv", Mapping: m, Table: &fileio.Table{
		Columns: []string{"SKU", "Qty"},
		Rows:    [][]string{{"ab-100", "5"}, {"AB100", "3"}, {"", "1"}},
	}}
	b := Input{Name: "b.csv", Mapping: m, Table: &fileio.Table{
		Columns: []string{"SKU", "Qty"},
		Rows:    [][]string{{"AB100", ""}},
	}}

	s, err := OpenSession(a, b, model.DefaultOptions(), zeroLogger())
	require.NoError(t, err)
	assert.Equal(t, model.StateIntraA, s.State())
	require.Len(t, s.Warnings(), 1)
	assert.Equal(t, model.WarnInvalidRecord, s.Warnings()[0].Code)
	assert.Equal(t, "a.csv", s.A().Name)

	b.Mapping = model.Mapping{SkuColumn: "Item"}
	_, err = OpenSession(a, b, model.DefaultOptions(), zeroLogger())
	assert.True(t, eris.Is(err, model.ErrMissingColumn))

	bad := model.DefaultOptions()
	bad.CrossLow = 100
	_, err = OpenSession(a, b, bad, zeroLogger())
	assert.True(t, eris.Is(err, model.ErrInvalidOptions))
}
