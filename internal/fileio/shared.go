package fileio

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Table is a loaded sheet: header names in file order and the data rows,
// each padded to len(Columns). Lines holds the 1-based file row of each row.
type Table struct {
	Columns []string
	Rows    [][]string
	Lines   []int
}

type ReadOptions struct {
	HeaderRow int  // строка заголовков (1-based)
	Delimiter rune // CSV only; 0 = sniff
}

// ReadAnyTable выберет парсер по расширению.
func ReadAnyTable(r io.Reader, filename string, opt ReadOptions) (*Table, error) {
	if opt.HeaderRow <= 0 {
		opt.HeaderRow = 1
	}
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".xlsx":
		return readXLSX(r, opt.HeaderRow)
	case ".xls":
		return readXLS(r, opt.HeaderRow)
	case ".csv", ".txt", ".tsv":
		return readCSV(r, opt.HeaderRow, opt.Delimiter)
	default:
		return nil, eris.Errorf("unsupported file: %s", filename)
	}
}

// pickHeader берёт строку заголовков и подставляет Column N для пустых.
// Repeated names get a " (n)" suffix so every column stays addressable.
func pickHeader(rows [][]string, headerRow int) []string {
	idx := headerRow - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(rows) {
		idx = 0
	}
	h := rows[idx]
	out := make([]string, len(h))
	seen := make(map[string]int, len(h))
	for i, v := range h {
		v = strings.TrimSpace(strings.TrimPrefix(v, "\ufeff"))
		if v == "" {
			v = fmt.Sprintf("Column %d", i+1)
		}
		if n := seen[v]; n > 0 {
			seen[v] = n + 1
			v = fmt.Sprintf("%s (%d)", v, n+1)
		} else {
			seen[v] = 1
		}
		out[i] = v
	}
	return out
}

// rowsToTable пропускает полностью пустые строки.
func rowsToTable(rows [][]string, headers []string, headerRow int) *Table {
	t := &Table{Columns: headers}
	for r := headerRow; r < len(rows); r++ {
		rec := rows[r]
		row := make([]string, len(headers))
		empty := true
		for c := range headers {
			if c < len(rec) {
				row[c] = rec[c]
			}
			if strings.TrimSpace(row[c]) != "" {
				empty = false
			}
		}
		if !empty {
			t.Rows = append(t.Rows, row)
			t.Lines = append(t.Lines, r+1)
		}
	}
	return t
}

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// WriteTable пишет таблицу в нужном формате. CSV uses ';' like the exports
// operators already open in spreadsheet tools.
func WriteTable(w io.Writer, format, sheet string, header []string, rows [][]string) error {
	switch strings.ToLower(format) {
	case "", FormatCSV:
		return WriteCSV(w, header, rows, ';')
	case FormatXLSX:
		return WriteXLSX(w, sheet, header, rows)
	}
	return eris.Errorf("unsupported format: %s", format)
}

// ContentType is the MIME type for a WriteTable format.
func ContentType(format string) string {
	if strings.ToLower(format) == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}
