// Package raster draws sticker pages into bitmaps sized to the physical page.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/aerissecure/stickers/scene"
)

// ErrNothingShown is returned by Capture before any page was shown.
var ErrNothingShown = errors.New("raster: no page shown")

const mmPerInch = 25.4

// Options control the page geometry and text size. Zero values select the
// defaults.
type Options struct {
	DPI        float64 // pixels per inch, default 150
	FontSizePt float64 // default 8
	MarginMM   float64 // page margin, default 6
	GapMM      float64 // space between stickers, default 2
	PaddingMM  float64 // space inside a sticker, default 2
}

func (o Options) withDefaults() Options {
	if o.DPI <= 0 {
		o.DPI = 150
	}
	if o.FontSizePt <= 0 {
		o.FontSizePt = 8
	}
	if o.MarginMM <= 0 {
		o.MarginMM = 6
	}
	if o.GapMM <= 0 {
		o.GapMM = 2
	}
	if o.PaddingMM <= 0 {
		o.PaddingMM = 2
	}
	return o
}

var (
	paper  = color.White
	ink    = color.Black
	guides = color.Gray{Y: 0xbb}
)

// Surface is an offscreen drawing target. Show lays out and draws a page
// completely before it returns, so a following Capture always sees the
// finished page. A Surface is safe for use by one exporter at a time; calls
// are serialized.
type Surface struct {
	opts    Options
	regular font.Face
	bold    font.Face

	mu  sync.Mutex
	img *image.RGBA
}

// NewSurface parses the embedded Go fonts and returns a surface.
func NewSurface(opts Options) (*Surface, error) {
	opts = opts.withDefaults()
	regular, err := newFace(goregular.TTF, opts)
	if err != nil {
		return nil, fmt.Errorf("regular font: %w", err)
	}
	bold, err := newFace(gobold.TTF, opts)
	if err != nil {
		return nil, fmt.Errorf("bold font: %w", err)
	}
	return &Surface{opts: opts, regular: regular, bold: bold}, nil
}

func newFace(ttf []byte, opts Options) (font.Face, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    opts.FontSizePt,
		DPI:     opts.DPI,
		Hinting: font.HintingFull,
	})
}

// PixelSize returns the bitmap size for a page format.
func (s *Surface) PixelSize(f scene.PageFormat) (int, int) {
	return s.px(f.WidthMM), s.px(f.HeightMM)
}

func (s *Surface) px(mm float64) int {
	return int(math.Round(mm / mmPerInch * s.opts.DPI))
}

// Show draws p onto a fresh bitmap.
func (s *Surface) Show(ctx context.Context, p scene.Page) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	format := p.Format
	if format.WidthMM <= 0 || format.HeightMM <= 0 {
		format = scene.A4
	}
	cols, rows := p.Columns, p.Rows
	if cols < 1 || rows < 1 {
		return fmt.Errorf("raster: invalid grid %dx%d", cols, rows)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, h := s.PixelSize(format)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(paper), image.Point{}, draw.Src)

	margin, gap := s.px(s.opts.MarginMM), s.px(s.opts.GapMM)
	cellW := (w - 2*margin - (cols-1)*gap) / cols
	cellH := (h - 2*margin - (rows-1)*gap) / rows
	if cellW <= 0 || cellH <= 0 {
		return fmt.Errorf("raster: grid %dx%d does not fit on %s", cols, rows, format.Name)
	}

	for r := 0; r < rows; r++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for c := 0; c < cols; c++ {
			x0 := margin + c*(cellW+gap)
			y0 := margin + r*(cellH+gap)
			rect := image.Rect(x0, y0, x0+cellW, y0+cellH)
			dashedRect(img, rect, guides, s.px(1))
			if st, ok := p.Cell(r, c); ok {
				s.drawSticker(img, rect, st)
			}
		}
	}
	s.img = img
	return nil
}

// Capture returns the last shown page.
func (s *Surface) Capture(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.img == nil {
		return nil, ErrNothingShown
	}
	return s.img, nil
}

// Rasterize shows p on a new surface and returns the bitmap.
func Rasterize(ctx context.Context, p scene.Page, opts Options) (image.Image, error) {
	s, err := NewSurface(opts)
	if err != nil {
		return nil, err
	}
	if err := s.Show(ctx, p); err != nil {
		return nil, err
	}
	return s.Capture(ctx)
}

func (s *Surface) drawSticker(img *image.RGBA, rect image.Rectangle, st scene.Sticker) {
	pad := s.px(s.opts.PaddingMM)
	inner := rect.Inset(pad)
	if inner.Empty() {
		return
	}
	// Drawing into the sub-image clips glyphs to the sticker.
	dst := img.SubImage(inner).(*image.RGBA)
	y := inner.Min.Y
	for _, f := range st.Fields {
		face := s.regular
		if f.Primary {
			face = s.bold
		}
		m := face.Metrics()
		if y+m.Ascent.Ceil() > inner.Max.Y {
			break
		}
		d := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(ink),
			Face: face,
			Dot:  fixed.P(inner.Min.X, y+m.Ascent.Ceil()),
		}
		d.DrawString(fitText(face, f.Text(), inner.Dx()))
		y += m.Height.Ceil()
	}
}

// fitText shortens s with a trailing "..." until it fits in width pixels.
// The runes are measured once; the cut is the longest non-empty prefix that
// still fits together with the ellipsis.
func fitText(face font.Face, s string, width int) string {
	const ellipsis = "..."
	limit := fixed.I(width)
	dots := font.MeasureString(face, ellipsis)

	var adv fixed.Int26_6
	prev := rune(-1)
	cut := 0
	for i, r := range s {
		if prev >= 0 {
			if adv+face.Kern(prev, '.')+dots <= limit {
				cut = i
			}
			adv += face.Kern(prev, r)
		}
		a, _ := face.GlyphAdvance(r)
		adv += a
		prev = r
		if adv > limit {
			if cut == 0 {
				return ""
			}
			return s[:cut] + ellipsis
		}
	}
	return s
}

func dashedRect(img *image.RGBA, r image.Rectangle, c color.Color, dash int) {
	if dash < 1 {
		dash = 1
	}
	on := func(i int) bool { return (i/(dash*3))%2 == 0 }
	for x := r.Min.X; x < r.Max.X; x++ {
		if on(x - r.Min.X) {
			img.Set(x, r.Min.Y, c)
			img.Set(x, r.Max.Y-1, c)
		}
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		if on(y - r.Min.Y) {
			img.Set(r.Min.X, y, c)
			img.Set(r.Max.X-1, y, c)
		}
	}
}
