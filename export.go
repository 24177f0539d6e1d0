package stickers

import (
	"context"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aerissecure/stickers/internal/metrics"
	"github.com/aerissecure/stickers/pdfdoc"
	"github.com/aerissecure/stickers/scene"
)

// DefaultFileName is the suggested name for an exported document.
const DefaultFileName = pdfdoc.DefaultFileName

// Surface displays a rendered page and captures it as a bitmap. Show must
// not return before the page is fully laid out.
type Surface interface {
	Show(ctx context.Context, p scene.Page) error
	Capture(ctx context.Context) (image.Image, error)
}

// Document collects page bitmaps in order.
type Document interface {
	AddPage(img image.Image) error
	PageCount() int
	WriteTo(w io.Writer) (int64, error)
}

// Exporter drives the renderer over every page of a dataset and assembles
// the captured bitmaps into one document. Pages are processed strictly in
// order, one at a time; concurrent Export calls on the same Exporter wait
// for each other.
type Exporter struct {
	Grid    Grid
	Surface Surface

	// NewDocument starts the output document; nil means an A4 PDF.
	NewDocument func() Document
	// SettleDelay is waited between Show and Capture. Surfaces without a
	// reliable completion signal need a conservative value here; the
	// in-process rasterizer needs none.
	SettleDelay time.Duration
	// Progress, if set, is called after each page is added.
	Progress func(page, total int)

	Logger  *zap.Logger
	Metrics *metrics.Recorder

	mu sync.Mutex
}

// NewExporter returns an exporter for grid drawing on surface.
func NewExporter(grid Grid, surface Surface) *Exporter {
	return &Exporter{Grid: grid, Surface: surface}
}

// Export renders every page of ds and returns the assembled document. An
// empty dataset fails with ErrEmptyDataset. Any failure while rendering,
// capturing or assembling stops at that page and wraps ErrInternal; no
// partial document is returned.
func (e *Exporter) Export(ctx context.Context, ds Dataset, headers []string) (Document, error) {
	if len(ds) == 0 {
		return nil, ErrEmptyDataset
	}
	if !e.Grid.Valid() {
		return nil, fmt.Errorf("%w: invalid grid %s", ErrInternal, e.Grid)
	}
	if e.Surface == nil {
		return nil, fmt.Errorf("%w: no surface", ErrInternal)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	logger := e.logger()
	timer := metrics.NewTimer()
	total := PageCount(len(ds), e.Grid.Capacity())
	doc := e.newDocument()

	logger.Info("Export started", zap.Int("rows", len(ds)), zap.Int("pages", total), zap.Stringer("grid", e.Grid))
	for p := 0; p < total; p++ {
		if err := e.exportPage(ctx, doc, ds, headers, p); err != nil {
			logger.Error("Export failed", zap.Int("page", p), zap.Error(err))
			e.Metrics.RecordExport(metrics.ResultError, timer.Duration())
			return nil, fmt.Errorf("%w: page %d of %d: %v", ErrInternal, p+1, total, err)
		}
		e.Metrics.RecordPage()
		if e.Progress != nil {
			e.Progress(p+1, total)
		}
	}

	e.Metrics.RecordExport(metrics.ResultOK, timer.Duration())
	logger.Info("Export finished", zap.Int("pages", doc.PageCount()), zap.Duration("duration", timer.Duration()))
	return doc, nil
}

func (e *Exporter) exportPage(ctx context.Context, doc Document, ds Dataset, headers []string, p int) error {
	page := RenderDatasetPage(ds, headers, e.Grid, p)
	if err := e.Surface.Show(ctx, page); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := e.settle(ctx); err != nil {
		return err
	}
	img, err := e.Surface.Capture(ctx)
	if err != nil {
		return fmt.Errorf("rasterize: %w", err)
	}
	if err := doc.AddPage(img); err != nil {
		return fmt.Errorf("assemble: %w", err)
	}
	return nil
}

func (e *Exporter) settle(ctx context.Context) error {
	if e.SettleDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(e.SettleDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (e *Exporter) newDocument() Document {
	if e.NewDocument != nil {
		return e.NewDocument()
	}
	return pdfdoc.New("Inventory stickers")
}

func (e *Exporter) logger() *zap.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return zap.NewNop()
}
