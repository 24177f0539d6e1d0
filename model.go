// Package stickers turns spreadsheets of inventory rows into printable sheets
// of adhesive labels.
//
// A Session holds the configured header list and the ingested rows. Rows are
// paginated onto a fixed grid, each page is rendered into a scene.Page, and
// the Exporter rasterizes every page into one PDF.
package stickers

import (
	"fmt"
)

// DefaultHeaders is the header list a new session starts with.
var DefaultHeaders = []string{
	"Name",
	"SKU",
	"Category",
	"Quantity",
	"Manufacturer",
	"Location",
	"Condition",
}

// DefaultGrid is 3 columns x 8 rows, 24 stickers per A4 page.
var DefaultGrid = Grid{Columns: 3, Rows: 8}

// Grid is the physical label layout of one page.
type Grid struct {
	Columns int
	Rows    int
}

// Capacity is the number of stickers that fit on one page.
func (g Grid) Capacity() int {
	return g.Columns * g.Rows
}

// Valid reports whether the grid has at least one cell.
func (g Grid) Valid() bool {
	return g.Columns > 0 && g.Rows > 0
}

func (g Grid) String() string {
	return fmt.Sprintf("%dx%d", g.Columns, g.Rows)
}

// Row is one ingested inventory row: a value for every header that was
// configured at ingestion time. Rows are not modified after ingestion.
type Row map[string]string

// Dataset is the ordered list of rows; its order is the print order.
type Dataset []Row
