package sheets

import (
	"fmt"
	"strings"
	"time"

	"villaledger/internal/core"
	"villaledger/internal/source"
)

// parseRows turns a values matrix into records keyed by the header row.
// Header names are trimmed; rows with no non-blank cell are skipped and
// blank cells are left out of the record.
func parseRows(values [][]any) []source.Record {
	out := []source.Record{}
	if len(values) == 0 {
		return out
	}
	header := toStrings(values[0])
	for _, row := range values[1:] {
		rec := source.Record{}
		for i, cell := range row {
			if i >= len(header) || header[i] == "" {
				continue
			}
			if s, ok := cell.(string); ok && strings.TrimSpace(s) == "" {
				continue
			}
			if cell == nil {
				continue
			}
			rec[header[i]] = cell
		}
		if len(rec) > 0 {
			out = append(out, rec)
		}
	}
	return out
}

// rowFor lays out rec in header order. Missing fields become empty cells.
func rowFor(header []string, rec source.Record) []any {
	row := make([]any, len(header))
	for i, h := range header {
		v, ok := rec[h]
		if !ok || v == nil {
			row[i] = ""
			continue
		}
		row[i] = cellValue(v)
	}
	return row
}

func cellValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case core.Money:
		return x.String()
	case core.Month:
		return string(x)
	case fmt.Stringer:
		return x.String()
	default:
		return v
	}
}

// findRow returns the 0-based index in values of the row whose id column
// equals id, or -1. Row 0 is the header.
func findRow(values [][]any, id string) int {
	if len(values) == 0 {
		return -1
	}
	col := indexOf(toStrings(values[0]), "id")
	if col == -1 {
		return -1
	}
	for i := 1; i < len(values); i++ {
		if col < len(values[i]) && idString(values[i][col]) == strings.TrimSpace(id) {
			return i
		}
	}
	return -1
}

func idString(v any) string {
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}
