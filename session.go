package stickers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/aerissecure/stickers/internal/metrics"
	"github.com/aerissecure/stickers/preview"
	"github.com/aerissecure/stickers/raster"
	"github.com/aerissecure/stickers/scene"
	"github.com/aerissecure/stickers/xlsx"
)

// Session is the state of one label-making session: the header list, the
// ingested dataset and the page shown in the preview. Its methods are the
// only writers of that state and are safe for concurrent use.
type Session struct {
	headers  *Headers
	grid     Grid
	exporter *Exporter
	confirm  Confirmer
	html     preview.Options
	logger   *zap.Logger
	metrics  *metrics.Recorder

	unsubscribe func()

	mu        sync.Mutex
	data      Dataset
	page      int
	preview   scene.Page
	listeners []func(scene.Page)
}

// Option configures a Session.
type Option func(*Session)

// WithHeaders seeds the header list instead of DefaultHeaders.
func WithHeaders(headers ...string) Option {
	return func(s *Session) { s.headers = NewHeaders(headers...) }
}

// WithGrid sets the page grid.
func WithGrid(g Grid) Option {
	return func(s *Session) { s.grid = g }
}

// WithConfirmer sets who answers the missing-header and empty-header prompts.
func WithConfirmer(c Confirmer) Option {
	return func(s *Session) { s.confirm = c }
}

// WithPreviewOptions sets the font used by PreviewHTML.
func WithPreviewOptions(opts preview.Options) Option {
	return func(s *Session) { s.html = opts }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithMetrics records session events on m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Session) { s.metrics = m }
}

// WithExporter replaces the default rasterizing exporter. The exporter may
// be shared between sessions; its grid must match the session grid.
func WithExporter(e *Exporter) Option {
	return func(s *Session) { s.exporter = e }
}

// NewSession returns a session with an empty dataset and a blank preview of
// page 0.
func NewSession(opts ...Option) (*Session, error) {
	s := &Session{
		grid:   DefaultGrid,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.headers == nil {
		s.headers = NewHeaders()
	}
	if !s.grid.Valid() {
		return nil, fmt.Errorf("invalid grid %s", s.grid)
	}
	if s.exporter == nil {
		surface, err := raster.NewSurface(raster.Options{})
		if err != nil {
			return nil, err
		}
		s.exporter = NewExporter(s.grid, surface)
		s.exporter.Logger = s.logger
		s.exporter.Metrics = s.metrics
	} else if s.exporter.Grid != s.grid {
		return nil, fmt.Errorf("exporter grid %s does not match session grid %s", s.exporter.Grid, s.grid)
	}

	s.preview = RenderPage(nil, s.headers.Get(), s.grid, 0)
	s.unsubscribe = s.headers.Subscribe(func([]string) { s.refresh() })
	return s, nil
}

// Close detaches the session from its header list.
func (s *Session) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Headers returns the header list. Edits made through it refresh the
// preview.
func (s *Session) Headers() *Headers {
	return s.headers
}

// Grid returns the page grid.
func (s *Session) Grid() Grid {
	return s.grid
}

// SaveHeaders replaces the header list, asking the session confirmer before
// accepting an empty list.
func (s *Session) SaveHeaders(list []string) bool {
	return s.headers.Replace(list, s.confirm)
}

// Dataset returns the ingested rows. The slice must not be modified.
func (s *Session) Dataset() Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// PageCount is the number of pages the current dataset fills.
func (s *Session) PageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return PageCount(len(s.data), s.grid.Capacity())
}

// PreviewPage returns the index of the previewed page.
func (s *Session) PreviewPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Preview returns the rendered preview page.
func (s *Session) Preview() scene.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview
}

// PreviewHTML renders the preview page as HTML.
func (s *Session) PreviewHTML() string {
	return preview.RenderPageHTMLWithOptions(s.Preview(), s.html)
}

// OnPreview registers fn to receive the preview whenever it is re-rendered.
func (s *Session) OnPreview(fn func(scene.Page)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// SetPreviewPage moves the preview to page, clamped to the valid range.
// An empty dataset always previews page 0.
func (s *Session) SetPreviewPage(page int) int {
	s.mu.Lock()
	last := PageCount(len(s.data), s.grid.Capacity()) - 1
	if page > last {
		page = last
	}
	if page < 0 {
		page = 0
	}
	s.page = page
	s.mu.Unlock()
	s.refresh()
	return page
}

// IngestFile replaces the dataset with the rows of an uploaded spreadsheet,
// validated against the current headers. On any error, including a declined
// missing-header prompt, the dataset and preview stay as they were.
func (s *Session) IngestFile(data []byte) error {
	headers := s.headers.Get()

	u, err := decodeUpload(data)
	if err != nil {
		s.logger.Warn("Failed to parse upload", zap.Int("bytes", len(data)), zap.Error(err))
		s.metrics.RecordIngestion(u.format, metrics.ResultError, 0)
		return err
	}
	tbl, format := u.table, u.format
	if skipped := u.skippedSheets(); len(skipped) > 0 {
		s.logger.Warn("Only the first sheet is read",
			zap.String("sheet", u.sheets[0].Name),
			zap.Strings("skipped", skipped))
	}
	if err := checkHeaders(tbl, headers, s.confirm); err != nil {
		var merr *MissingHeadersError
		if errors.As(err, &merr) {
			s.logger.Info("Upload declined", zap.Strings("missing", merr.Missing))
		}
		s.metrics.RecordIngestion(format, metrics.ResultDeclined, 0)
		return err
	}
	ds := BuildDataset(tbl, headers)

	s.mu.Lock()
	s.data = ds
	s.page = 0
	s.mu.Unlock()

	s.logger.Info("Upload ingested",
		zap.String("format", format),
		zap.Int("rows", len(ds)),
		zap.Int("headers", len(headers)),
		zap.Int("pages", PageCount(len(ds), s.grid.Capacity())))
	s.metrics.RecordIngestion(format, metrics.ResultOK, len(ds))
	s.refresh()
	return nil
}

// Export renders all pages and writes the PDF to w.
func (s *Session) Export(ctx context.Context, w io.Writer) (pages int, err error) {
	ds := s.Dataset()
	doc, err := s.exporter.Export(ctx, ds, s.headers.Get())
	if err != nil {
		return 0, err
	}
	if _, err := doc.WriteTo(w); err != nil {
		return 0, fmt.Errorf("%w: write document: %v", ErrInternal, err)
	}
	return doc.PageCount(), nil
}

// WriteTemplate writes an XLSX template with the current headers.
func (s *Session) WriteTemplate(w io.Writer) error {
	return xlsx.WriteTemplate(w, s.headers.Get())
}

// refresh re-renders the preview from the current state and notifies the
// preview listeners.
func (s *Session) refresh() {
	headers := s.headers.Get()

	s.mu.Lock()
	s.preview = RenderDatasetPage(s.data, headers, s.grid, s.page)
	p := s.preview
	listeners := append([]func(scene.Page){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(p)
	}
}
