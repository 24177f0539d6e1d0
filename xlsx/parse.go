package xlsx

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/unidoc/unioffice/spreadsheet"
	"github.com/unidoc/unioffice/spreadsheet/reference"

	"github.com/aerissecure/stickers/tabular"
)

// ErrNoSheets is returned for a workbook without any worksheet.
var ErrNoSheets = errors.New("workbook has no sheets")

// ReadTable reads an XLSX from r/size and decodes its first worksheet. The
// first used row holds the column names, every later non-blank row is data.
// All worksheets of the workbook are listed in sheets, in order, so callers
// can tell what was not read.
func ReadTable(r io.ReaderAt, size int64) (tbl tabular.Table, sheets []SheetInfo, err error) {
	wb, err := spreadsheet.Read(r, size)
	if err != nil {
		return tabular.Table{}, nil, err
	}
	all := wb.Sheets()
	if len(all) == 0 {
		return tabular.Table{}, nil, ErrNoSheets
	}
	for _, sheet := range all {
		sheets = append(sheets, SheetInfo{Name: sheet.Name(), Rows: len(sheet.Rows())})
	}

	grid := sheetGrid(all[0])
	if len(grid.rows) == 0 {
		return tabular.Table{}, sheets, nil
	}
	tbl.Columns = tabular.NormalizeColumns(grid.cells(grid.rows[0]))
	for _, rowIdx := range grid.rows[1:] {
		cells := grid.cells(rowIdx)
		if tabular.IsBlank(cells) {
			continue
		}
		tbl.Rows = append(tbl.Rows, tabular.RowFromCells(tbl.Columns, cells))
	}
	return tbl, sheets, nil
}

// SheetInfo describes a worksheet without decoding its rows.
type SheetInfo struct {
	Name string
	Rows int
}

func (s SheetInfo) String() string {
	return fmt.Sprintf("Name: %s, Rows: %d", s.Name, s.Rows)
}

// cellGrid is a sparse view of a sheet: formatted values keyed by zero-based
// row and column.
type cellGrid struct {
	values  map[[2]int]string
	rows    []int // used row indexes, ascending
	maxCols int
}

func (g cellGrid) cells(rowIdx int) []string {
	out := make([]string, g.maxCols)
	for c := 0; c < g.maxCols; c++ {
		out[c] = g.values[[2]int{rowIdx, c}]
	}
	return out
}

func sheetGrid(sheet spreadsheet.Sheet) cellGrid {
	g := cellGrid{values: make(map[[2]int]string)}
	used := make(map[int]bool)

	for _, row := range sheet.Rows() {
		rowIdx := int(row.RowNumber()) - 1
		for _, cell := range row.Cells() {
			colName, err := cell.Column()
			if err != nil {
				continue
			}
			colIdx := int(reference.ColumnToIndex(colName))
			v := cell.GetFormattedValue()
			if v == "" {
				continue
			}
			g.values[[2]int{rowIdx, colIdx}] = v
			used[rowIdx] = true
			if colIdx+1 > g.maxCols {
				g.maxCols = colIdx + 1
			}
		}
	}

	// Merged ranges repeat the master cell's value over the covered cells.
	if sheet.X().MergeCells != nil {
		for _, mc := range sheet.X().MergeCells.MergeCell {
			from, to, err := reference.ParseRangeReference(mc.RefAttr)
			if err != nil {
				continue
			}
			fromRow := int(from.RowIdx - 1)
			fromCol := int(from.ColumnIdx)
			toRow := int(to.RowIdx - 1)
			toCol := int(to.ColumnIdx)
			master, ok := g.values[[2]int{fromRow, fromCol}]
			if !ok {
				continue
			}
			for r := fromRow; r <= toRow; r++ {
				for c := fromCol; c <= toCol; c++ {
					g.values[[2]int{r, c}] = master
				}
				used[r] = true
			}
			if toCol+1 > g.maxCols {
				g.maxCols = toCol + 1
			}
		}
	}

	for r := range used {
		g.rows = append(g.rows, r)
	}
	sort.Ints(g.rows)
	return g
}
