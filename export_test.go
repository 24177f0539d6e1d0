package stickers

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerissecure/stickers/scene"
)

// fakeSurface records every shown page and captures a 1x1 bitmap whose only
// pixel carries the page index.
type fakeSurface struct {
	mu        sync.Mutex
	shown     []scene.Page
	current   scene.Page
	failOn    int
	captureAt []time.Time
	showAt    []time.Time
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{failOn: -1}
}

func (f *fakeSurface) Show(_ context.Context, p scene.Page) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, p)
	f.showAt = append(f.showAt, time.Now())
	f.current = p
	return nil
}

func (f *fakeSurface) Capture(ctx context.Context) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.current.Index == f.failOn {
		return nil, errors.New("canvas unavailable")
	}
	f.captureAt = append(f.captureAt, time.Now())
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	img.Pix[0] = byte(f.current.Index)
	return img, nil
}

type fakeDocument struct {
	pages []int
}

func (d *fakeDocument) AddPage(img image.Image) error {
	d.pages = append(d.pages, int(img.(*image.Gray).Pix[0]))
	return nil
}

func (d *fakeDocument) PageCount() int { return len(d.pages) }

func (d *fakeDocument) WriteTo(io.Writer) (int64, error) { return 0, nil }

func newFakeExporter(surface *fakeSurface) (*Exporter, *fakeDocument) {
	doc := &fakeDocument{}
	e := NewExporter(DefaultGrid, surface)
	e.NewDocument = func() Document { return doc }
	return e, doc
}

func TestExportEmptyDataset(t *testing.T) {
	surface := newFakeSurface()
	e, _ := newFakeExporter(surface)

	doc, err := e.Export(context.Background(), nil, DefaultHeaders)
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, ErrEmptyDataset)
	assert.Empty(t, surface.shown, "nothing is rendered")
}

func TestExportPagesInOrder(t *testing.T) {
	surface := newFakeSurface()
	e, fake := newFakeExporter(surface)

	var progress [][2]int
	e.Progress = func(page, total int) { progress = append(progress, [2]int{page, total}) }

	doc, err := e.Export(context.Background(), numberedDataset(50), []string{"Name"})
	require.NoError(t, err)
	assert.Same(t, fake, doc)
	assert.Equal(t, 3, doc.PageCount())
	assert.Equal(t, []int{0, 1, 2}, fake.pages)

	require.Len(t, surface.shown, 3)
	assert.Len(t, surface.shown[0].Stickers, 24)
	assert.Len(t, surface.shown[1].Stickers, 24)
	assert.Len(t, surface.shown[2].Stickers, 2)
	assert.Equal(t, "Name: 48", surface.shown[2].Stickers[0].Text())
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress)
}

func TestExportStopsAtFailingPage(t *testing.T) {
	surface := newFakeSurface()
	surface.failOn = 1
	e, fake := newFakeExporter(surface)

	doc, err := e.Export(context.Background(), numberedDataset(60), []string{"Name"})
	assert.Nil(t, doc, "no partial document")
	require.ErrorIs(t, err, ErrInternal)
	assert.Contains(t, err.Error(), "page 2 of 3")
	assert.Contains(t, err.Error(), "canvas unavailable")
	assert.Equal(t, []int{0}, fake.pages)
	assert.Len(t, surface.shown, 2, "no page after the failure is rendered")
}

func TestExportCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, _ := newFakeExporter(newFakeSurface())
	_, err := e.Export(ctx, numberedDataset(3), []string{"Name"})
	assert.ErrorIs(t, err, ErrInternal)
}

func TestExportSettleDelay(t *testing.T) {
	surface := newFakeSurface()
	e, _ := newFakeExporter(surface)
	e.SettleDelay = 20 * time.Millisecond

	_, err := e.Export(context.Background(), numberedDataset(30), []string{"Name"})
	require.NoError(t, err)
	require.Len(t, surface.captureAt, 2)
	for i := range surface.captureAt {
		assert.GreaterOrEqual(t, surface.captureAt[i].Sub(surface.showAt[i]), e.SettleDelay)
	}
}

func TestExportSettleDelayCancelled(t *testing.T) {
	e, _ := newFakeExporter(newFakeSurface())
	e.SettleDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := e.Export(ctx, numberedDataset(1), []string{"Name"})
	require.ErrorIs(t, err, ErrInternal)
}

func TestExportInvalidGrid(t *testing.T) {
	e, _ := newFakeExporter(newFakeSurface())
	e.Grid = Grid{}
	_, err := e.Export(context.Background(), numberedDataset(1), nil)
	assert.ErrorIs(t, err, ErrInternal)
}

func TestExportSerializesCallers(t *testing.T) {
	surface := newFakeSurface()
	e := NewExporter(Grid{Columns: 1, Rows: 1}, surface)
	e.NewDocument = func() Document { return &fakeDocument{} }

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Export(context.Background(), numberedDataset(5), []string{"Name"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Len(t, surface.shown, 10)
	for i, p := range surface.shown {
		assert.Equal(t, i%5, p.Index, "exports do not interleave")
	}
}
