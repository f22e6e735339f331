package service

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"inventory-recon/internal/fileio"
	"inventory-recon/internal/reconcile/model"
)

var inventoryCols = []string{"SKU", "Description", "Quantity on Hand"}

func newDataset(t *testing.T, src model.Source, cols []string, rows ...[]string) *model.Dataset {
	t.Helper()
	tbl := &fileio.Table{Columns: cols, Rows: rows}
	ds, _, err := LoadDataset(tbl, src, "test", model.Mapping{SkuColumn: "SKU", QtyColumn: "Quantity on Hand|Qty"}, Normalize)
	require.NoError(t, err)
	return ds
}

func newSession(t *testing.T, a, b *model.Dataset) *Session {
	t.Helper()
	s, err := NewSession(a, b, model.DefaultOptions(), zerolog.Nop())
	require.NoError(t, err)
	return s
}

func skus(rs []*model.InventoryRecord) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.SkuRaw
	}
	return out
}

func zeroLogger() zerolog.Logger { return zerolog.Nop() }
