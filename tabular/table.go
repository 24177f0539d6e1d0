// Package tabular holds the decoded form shared by the spreadsheet readers:
// a header row and data rows keyed by column name.
package tabular

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// EmptyColumn is the name given to columns whose header cell is blank.
const EmptyColumn = "__EMPTY"

// Table is a decoded sheet. Rows are keyed by the names in Columns.
type Table struct {
	Columns []string            // header row, unique after NormalizeColumns
	Rows    []map[string]string // data rows in source order
}

func (t Table) String() string {
	return fmt.Sprintf("Columns: %v, Rows: %d", t.Columns, len(t.Rows))
}

// HasColumn reports whether name is one of the table's columns.
func (t Table) HasColumn(name string) bool {
	name = NormalizeName(name)
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// NormalizeName trims a header and puts it in NFC so that visually equal
// names typed on different systems compare equal.
func NormalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// NormalizeColumns normalizes raw header cells and makes them unique. The
// first occurrence of a name keeps it, later ones get _1, _2, ... appended.
// Blank cells become EmptyColumn with the same suffixing.
func NormalizeColumns(raw []string) []string {
	used := make(map[string]bool, len(raw))
	out := make([]string, len(raw))
	for i, r := range raw {
		base := NormalizeName(r)
		if base == "" {
			base = EmptyColumn
		}
		name := base
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// RowFromCells maps cells onto columns. Missing trailing cells become "" and
// extra cells are dropped.
func RowFromCells(columns, cells []string) map[string]string {
	row := make(map[string]string, len(columns))
	for i, c := range columns {
		if i < len(cells) {
			row[c] = cells[i]
		} else {
			row[c] = ""
		}
	}
	return row
}

// IsBlank reports whether every cell is empty after trimming.
func IsBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
