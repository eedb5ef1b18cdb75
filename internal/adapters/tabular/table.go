// Package tabular reads and writes the file formats the pipeline exchanges:
// JSON ledger exports, the wide comparison CSV and the watchlist.
package tabular

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/okian/glwatch/internal/domain/accountrow"
	"github.com/okian/glwatch/internal/domain/deviation"
)

// ReadTable parses a comparison CSV. Blank cells are nil, True/False cells
// are booleans, numeric cells are float64 and everything else stays text.
func ReadTable(r io.Reader) (accountrow.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return accountrow.Table{}, ErrEmptyInput
	}
	if err != nil {
		return accountrow.Table{}, fmt.Errorf("%w: read header: %v", ErrMalformed, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	table := accountrow.Table{Columns: header}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return accountrow.Table{}, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}
		row := accountrow.Row{Values: make(map[string]any, len(header))}
		for i, col := range header {
			cell := ""
			if i < len(rec) {
				cell = rec[i]
			}
			switch col {
			case accountrow.ColAccountCode:
				row.Code = strings.TrimSpace(cell)
			case accountrow.ColAccountName:
				row.Name = strings.TrimSpace(cell)
			default:
				row.Values[col] = parseCell(cell)
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func parseCell(cell string) any {
	s := strings.TrimSpace(cell)
	switch s {
	case "":
		return nil
	case "True", "true", "TRUE":
		return true
	case "False", "false", "FALSE":
		return false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// WriteTable writes t as CSV in column order.
func WriteTable(w io.Writer, t accountrow.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			rec[i] = formatCell(row.Get(col))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %s: %w", row.Code, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		if x {
			return "True"
		}
		return "False"
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	}
	return fmt.Sprint(v)
}

// Records renders t as JSON-safe objects keyed by column. NaN and infinite
// values become null.
func Records(t accountrow.Table) []map[string]any {
	out := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for _, col := range t.Columns {
			v := row.Get(col)
			if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
				v = nil
			}
			rec[col] = v
		}
		out = append(out, rec)
	}
	return out
}

// WriteWatchlistCSV writes rows under deviation.OutputColumns.
func WriteWatchlistCSV(w io.Writer, rows []deviation.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(deviation.OutputColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return fmt.Errorf("write row %s: %w", r.AccountCode, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteWatchlistJSON writes rows as an indented JSON array.
func WriteWatchlistJSON(w io.Writer, rows []deviation.Row) error {
	if rows == nil {
		rows = []deviation.Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("encode watchlist: %w", err)
	}
	return nil
}
