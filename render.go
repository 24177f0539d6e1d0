package stickers

import (
	"github.com/aerissecure/stickers/scene"
)

// RenderPage lays rows out as page number index of grid. Each row becomes a
// sticker listing every header in order, the first one marked primary.
// Missing values render empty. Rows beyond the grid's capacity are not drawn.
func RenderPage(rows Dataset, headers []string, grid Grid, index int) scene.Page {
	if c := grid.Capacity(); len(rows) > c {
		rows = rows[:max(c, 0)]
	}
	p := scene.Page{
		Index:    index,
		Columns:  grid.Columns,
		Rows:     grid.Rows,
		Format:   scene.A4,
		Stickers: make([]scene.Sticker, 0, len(rows)),
	}
	for _, row := range rows {
		p.Stickers = append(p.Stickers, renderSticker(row, headers))
	}
	return p
}

func renderSticker(row Row, headers []string) scene.Sticker {
	s := scene.Sticker{Fields: make([]scene.Field, len(headers))}
	for i, h := range headers {
		s.Fields[i] = scene.Field{
			Header:  h,
			Value:   row[h],
			Primary: i == 0,
		}
	}
	return s
}

// RenderDatasetPage renders page index of ds.
func RenderDatasetPage(ds Dataset, headers []string, grid Grid, index int) scene.Page {
	return RenderPage(PageSlice(ds, index, grid.Capacity()), headers, grid, index)
}
