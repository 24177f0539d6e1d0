// Package scene is the intermediate representation of a rendered sticker
// page. It is plain text and geometry only; adapters turn it into HTML or
// pixels.
package scene

import (
	"fmt"
	"strings"
)

// Physical page formats in millimetres.
var (
	A4 = PageFormat{Name: "A4", WidthMM: 210, HeightMM: 297}
)

// PageFormat is the physical size of an output page.
type PageFormat struct {
	Name     string
	WidthMM  float64
	HeightMM float64
}

func (f PageFormat) String() string {
	return fmt.Sprintf("Name: %s, WidthMM: %.1f, HeightMM: %.1f", f.Name, f.WidthMM, f.HeightMM)
}

// Field is one "header: value" line of a sticker.
type Field struct {
	Header  string
	Value   string
	Primary bool // first field of a sticker, drawn emphasised
}

// Text is the line as displayed.
func (f Field) Text() string {
	return f.Header + ": " + f.Value
}

func (f Field) String() string {
	return fmt.Sprintf("Header: %q, Value: %q, Primary: %t", f.Header, f.Value, f.Primary)
}

// Sticker is the rendered unit for one inventory row.
type Sticker struct {
	Fields []Field // in header order
}

// Text joins the sticker's lines with newlines.
func (s Sticker) Text() string {
	lines := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		lines[i] = f.Text()
	}
	return strings.Join(lines, "\n")
}

func (s Sticker) String() string {
	return fmt.Sprintf("Fields: %d", len(s.Fields))
}

// Page is one grid page. Stickers fill cells left to right, top to bottom;
// cells past len(Stickers) are empty.
type Page struct {
	Index    int
	Columns  int
	Rows     int
	Format   PageFormat
	Stickers []Sticker
}

// Capacity is the number of cells on the page.
func (p Page) Capacity() int {
	return p.Columns * p.Rows
}

// Cell returns the sticker at row r, column c and whether the cell is filled.
func (p Page) Cell(r, c int) (Sticker, bool) {
	i := r*p.Columns + c
	if r < 0 || c < 0 || c >= p.Columns || i >= len(p.Stickers) {
		return Sticker{}, false
	}
	return p.Stickers[i], true
}

func (p Page) String() string {
	return fmt.Sprintf("Index: %d, Grid: %dx%d, Stickers: %d, Format: [%s]", p.Index, p.Columns, p.Rows, len(p.Stickers), p.Format.String())
}
