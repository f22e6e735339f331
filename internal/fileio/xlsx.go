package fileio

import (
	"bytes"
	"io"

	"github.com/rotisserie/eris"
	excelize "github.com/xuri/excelize/v2"
)

func readXLSX(r io.Reader, headerRow int) (*Table, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: read")
	}
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, eris.Wrapf(err, "xlsx: rows of %q", sheet)
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}
	h := pickHeader(rows, headerRow)
	return rowsToTable(rows, h, headerRow), nil
}

// WriteXLSX writes header + rows into a single-sheet workbook.
func WriteXLSX(w io.Writer, sheet string, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Sheet1"
	}
	if def := f.GetSheetName(0); def != sheet {
		if err := f.SetSheetName(def, sheet); err != nil {
			return eris.Wrap(err, "xlsx: name sheet")
		}
	}

	write := func(n int, vals []string) error {
		cell, err := excelize.CoordinatesToCellName(1, n)
		if err != nil {
			return err
		}
		row := make([]any, len(vals))
		for i, v := range vals {
			row[i] = v
		}
		return f.SetSheetRow(sheet, cell, &row)
	}
	if err := write(1, header); err != nil {
		return eris.Wrap(err, "xlsx: header")
	}
	for i, r := range rows {
		if err := write(i+2, r); err != nil {
			return eris.Wrapf(err, "xlsx: row %d", i+2)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return eris.Wrap(err, "xlsx: write")
	}
	return nil
}
