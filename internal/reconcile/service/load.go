package service

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"inventory-recon/internal/fileio"
	"inventory-recon/internal/reconcile/model"
	"inventory-recon/internal/utils"
)

// LoadDataset turns a read table into a source's working dataset. A missing
// SKU column is fatal. A missing quantity column, rows without a usable SKU
// and non-numeric quantities become warnings; bad rows are left out.
func LoadDataset(tbl *fileio.Table, src model.Source, name string, m model.Mapping, norm Normalizer) (*model.Dataset, []model.Warning, error) {
	if tbl == nil || len(tbl.Columns) == 0 {
		return nil, nil, eris.Errorf("source %s (%s): table is empty", src, name)
	}
	skuCol := resolveColumn(tbl.Columns, m.SkuColumn)
	if skuCol == "" {
		return nil, nil, eris.Wrapf(model.ErrMissingColumn, "source %s (%s): sku column %q not in %v", src, name, m.SkuColumn, tbl.Columns)
	}
	qtyCol := resolveColumn(tbl.Columns, m.QtyColumn)
	if qtyCol == skuCol {
		qtyCol = ""
	}

	ds := &model.Dataset{
		Source:    src,
		Name:      name,
		Columns:   append([]string(nil), tbl.Columns...),
		SkuColumn: skuCol,
		QtyColumn: qtyCol,
	}

	var warns []model.Warning
	if qtyCol == "" {
		warns = append(warns, model.Warning{
			Code:    model.WarnMissingColumn,
			Source:  src,
			Message: fmt.Sprintf("quantity column %q not found; quantities will not be reconciled", m.QtyColumn),
		})
	}

	skuIdx, qtyIdx := -1, -1
	for i, c := range tbl.Columns {
		if c == skuCol {
			skuIdx = i
		} else if qtyCol != "" && c == qtyCol {
			qtyIdx = i
		}
	}

	for n, row := range tbl.Rows {
		line := n + 1
		if n < len(tbl.Lines) {
			line = tbl.Lines[n]
		}
		raw := strings.TrimSpace(row[skuIdx])
		key, err := norm(raw)
		if err != nil {
			warns = append(warns, model.Warning{
				Code:    model.WarnInvalidRecord,
				Source:  src,
				Row:     line,
				SKU:     raw,
				Message: err.Error(),
			})
			continue
		}

		rec := &model.InventoryRecord{
			ID:     len(ds.Records) + 1,
			Source: src,
			Row:    line,
			SkuRaw: raw,
			SkuKey: key,
			Attrs:  make(map[string]string, len(tbl.Columns)),
		}
		for i, c := range tbl.Columns {
			switch i {
			case skuIdx:
			case qtyIdx:
				rec.Quantity = strings.TrimSpace(row[i])
			default:
				rec.Attrs[c] = row[i]
			}
		}
		if _, _, err := utils.ParseQuantity(rec.Quantity); err != nil {
			warns = append(warns, model.Warning{
				Code:    model.WarnInvalidQty,
				Source:  src,
				Row:     line,
				SKU:     raw,
				Message: fmt.Sprintf("quantity %q is not a number; merges involving this row will be rejected", rec.Quantity),
			})
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, warns, nil
}

// Input is one side of a reconciliation as read from disk or upload.
type Input struct {
	Name    string
	Table   *fileio.Table
	Mapping model.Mapping
}

// OpenSession loads both inputs under opts and starts a session over them.
// Load warnings are logged and kept on the session.
func OpenSession(a, b Input, opts model.Options, logger zerolog.Logger) (*Session, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	norm := NewNormalizer(opts.NormalizePolicy)
	dsA, warnA, err := LoadDataset(a.Table, model.SourceA, a.Name, a.Mapping, norm)
	if err != nil {
		return nil, err
	}
	dsB, warnB, err := LoadDataset(b.Table, model.SourceB, b.Name, b.Mapping, norm)
	if err != nil {
		return nil, err
	}

	s, err := NewSession(dsA, dsB, opts, logger)
	if err != nil {
		return nil, err
	}
	for _, w := range append(warnA, warnB...) {
		s.logger.Warn().Str("code", w.Code).Str("source", string(w.Source)).Int("row", w.Row).Str("sku", w.SKU).Msg(w.Message)
	}
	s.NoteWarnings(warnA...)
	s.NoteWarnings(warnB...)
	s.logger.Info().
		Str("a", a.Name).Int("records_a", len(dsA.Records)).
		Str("b", b.Name).Int("records_b", len(dsB.Records)).
		Msg("session opened")
	return s, nil
}
