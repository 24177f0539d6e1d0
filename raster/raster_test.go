package raster

import (
	"context"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/aerissecure/stickers/scene"
)

func darkPixels(img image.Image, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			cr, _, _, _ := img.At(x, y).RGBA()
			if cr < 0x8000 {
				n++
			}
		}
	}
	return n
}

func TestRasterizeSize(t *testing.T) {
	img, err := Rasterize(context.Background(), scene.Page{Columns: 3, Rows: 8, Format: scene.A4}, Options{DPI: 50})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 413, 585), img.Bounds())
	assert.Zero(t, darkPixels(img, img.Bounds()), "an empty page only has light guides")
}

func TestRasterizeDrawsStickersInOrder(t *testing.T) {
	s := scene.Sticker{Fields: []scene.Field{
		{Header: "Name", Value: "Resistor", Primary: true},
		{Header: "SKU", Value: "R-100"},
	}}
	p := scene.Page{Columns: 2, Rows: 2, Format: scene.A4, Stickers: []scene.Sticker{s}}
	img, err := Rasterize(context.Background(), p, Options{DPI: 72})
	require.NoError(t, err)

	b := img.Bounds()
	topLeft := image.Rect(0, 0, b.Dx()/2, b.Dy()/2)
	topRight := image.Rect(b.Dx()/2, 0, b.Dx(), b.Dy()/2)
	assert.Positive(t, darkPixels(img, topLeft), "first sticker is drawn in the first cell")
	assert.Zero(t, darkPixels(img, topRight), "second cell stays empty")
}

func TestRasterizeTreatsMarkupAsText(t *testing.T) {
	withMarkup := scene.Sticker{Fields: []scene.Field{{Header: "Name", Value: "<b>x</b>", Primary: true}}}
	p := scene.Page{Columns: 1, Rows: 1, Format: scene.A4, Stickers: []scene.Sticker{withMarkup}}
	img, err := Rasterize(context.Background(), p, Options{DPI: 72})
	require.NoError(t, err)
	assert.Positive(t, darkPixels(img, img.Bounds()))
}

func TestSurfaceCaptureBeforeShow(t *testing.T) {
	s, err := NewSurface(Options{})
	require.NoError(t, err)
	_, err = s.Capture(context.Background())
	assert.ErrorIs(t, err, ErrNothingShown)
}

func TestSurfaceShowCanceled(t *testing.T) {
	s, err := NewSurface(Options{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Show(ctx, scene.Page{Columns: 1, Rows: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSurfaceInvalidGrid(t *testing.T) {
	s, err := NewSurface(Options{})
	require.NoError(t, err)
	assert.Error(t, s.Show(context.Background(), scene.Page{Columns: 0, Rows: 8}))
}

func TestFitText(t *testing.T) {
	s, err := NewSurface(Options{DPI: 72})
	require.NoError(t, err)

	short := "SKU: 1"
	assert.Equal(t, short, fitText(s.regular, short, 1000))

	long := "Description: " + strings.Repeat("very long ", 40)
	got := fitText(s.regular, long, 100)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, font.MeasureString(s.regular, got), fixed.I(100))
}

// longestFit is the reference cut: the longest rune prefix that fits with
// the ellipsis, measured from scratch.
func longestFit(face font.Face, s string, width int) string {
	if font.MeasureString(face, s) <= fixed.I(width) {
		return s
	}
	runes := []rune(s)
	for n := len(runes) - 1; n > 0; n-- {
		if t := string(runes[:n]) + "..."; font.MeasureString(face, t) <= fixed.I(width) {
			return t
		}
	}
	return ""
}

func TestFitTextMatchesFullMeasure(t *testing.T) {
	s, err := NewSurface(Options{DPI: 72})
	require.NoError(t, err)

	inputs := []string{
		"",
		"W",
		"Name: Resistor",
		"Location: Shelf AV-To, WAVE Tray",
		"Größe: ÄÖÜ äöü ß " + strings.Repeat("Wx", 30),
	}
	for _, in := range inputs {
		for _, width := range []int{0, 5, 12, 40, 90, 300} {
			for _, face := range []font.Face{s.regular, s.bold} {
				assert.Equal(t, longestFit(face, in, width), fitText(face, in, width), "%q at %dpx", in, width)
			}
		}
	}
}

func TestRasterizeLongValueIsFast(t *testing.T) {
	st := scene.Sticker{Fields: []scene.Field{
		{Header: "Name", Value: strings.Repeat("x", 100000), Primary: true},
		{Header: "SKU", Value: strings.Repeat("y", 100000)},
	}}
	stickers := make([]scene.Sticker, 24)
	for i := range stickers {
		stickers[i] = st
	}
	p := scene.Page{Columns: 3, Rows: 8, Format: scene.A4, Stickers: stickers}

	start := time.Now()
	img, err := Rasterize(context.Background(), p, Options{DPI: 72})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Positive(t, darkPixels(img, img.Bounds()))
}
