// Package server exposes the sticker pipeline over HTTP. Every request works
// on its own session, so nothing is kept between requests.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aerissecure/stickers"
	"github.com/aerissecure/stickers/internal/metrics"
	"github.com/aerissecure/stickers/preview"
	"github.com/aerissecure/stickers/xlsx"
)

const (
	kTemplatePath = "/template"
	kPreviewPath  = "/preview"
	kStickersPath = "/stickers"
	kMetricsPath  = "/metrics"

	kFileField    = "file"
	kHeaderField  = "header"
	kProceedField = "proceed"
	kPageField    = "page"

	DefaultMaxUpload = 32 << 20
)

// Config holds what every request session starts from.
type Config struct {
	Headers   []string
	Grid      stickers.Grid
	MaxUpload int64
}

// Server serves templates, previews and sticker PDFs. All exports go
// through one Exporter and are therefore serialized.
type Server struct {
	cfg      Config
	exporter *stickers.Exporter
	logger   *zap.Logger
	metrics  *metrics.Recorder
}

// New returns a server exporting with exporter. exporter.Grid must equal
// cfg.Grid.
func New(cfg Config, exporter *stickers.Exporter, logger *zap.Logger, m *metrics.Recorder) *Server {
	if cfg.Headers == nil {
		cfg.Headers = stickers.DefaultHeaders
	}
	if cfg.Grid == (stickers.Grid{}) {
		cfg.Grid = stickers.DefaultGrid
	}
	if cfg.MaxUpload <= 0 {
		cfg.MaxUpload = DefaultMaxUpload
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{cfg: cfg, exporter: exporter, logger: logger, metrics: m}
}

// Handler routes the server endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+kTemplatePath, s.handleTemplate)
	mux.HandleFunc("POST "+kPreviewPath, s.handlePreview)
	mux.HandleFunc("POST "+kStickersPath, s.handleStickers)
	mux.Handle("GET "+kMetricsPath, promhttp.Handler())
	return mux
}

type errorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

func (s *Server) handleTemplate(out http.ResponseWriter, r *http.Request) {
	session, err := s.newSession(r.URL.Query()[kHeaderField], false)
	if err != nil {
		s.writeError(out, r, err)
		return
	}
	defer session.Close()

	var buf bytes.Buffer
	if err := session.WriteTemplate(&buf); err != nil {
		s.writeError(out, r, fmt.Errorf("%w: %v", stickers.ErrInternal, err))
		return
	}
	out.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	out.Header().Set("Content-Disposition", attachment(xlsx.TemplateFileName))
	out.Write(buf.Bytes())
}

func (s *Server) handlePreview(out http.ResponseWriter, r *http.Request) {
	session, err := s.ingest(out, r)
	if err != nil {
		s.writeError(out, r, err)
		return
	}
	defer session.Close()

	if raw := r.FormValue(kPageField); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(out, r, &requestError{status: http.StatusBadRequest, err: fmt.Errorf("invalid page %q", raw)})
			return
		}
		session.SetPreviewPage(page)
	}

	out.Header().Set("Content-Type", "text/html; charset=utf-8")
	out.Header().Set("X-Page-Count", strconv.Itoa(session.PageCount()))
	io.WriteString(out, preview.RenderPageHTML(session.Preview()))
}

func (s *Server) handleStickers(out http.ResponseWriter, r *http.Request) {
	start := time.Now()
	session, err := s.ingest(out, r)
	if err != nil {
		s.writeError(out, r, err)
		return
	}
	defer session.Close()

	var buf bytes.Buffer
	pages, err := session.Export(r.Context(), &buf)
	if err != nil {
		s.writeError(out, r, err)
		return
	}
	s.logger.Info("Served stickers",
		zap.Int("pages", pages),
		zap.Int("bytes", buf.Len()),
		zap.Duration("elapsed", time.Since(start)))

	out.Header().Set("Content-Type", "application/pdf")
	out.Header().Set("Content-Disposition", attachment(stickers.DefaultFileName))
	out.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	out.Write(buf.Bytes())
}

// ingest reads the multipart upload into a fresh session.
func (s *Server) ingest(out http.ResponseWriter, r *http.Request) (*stickers.Session, error) {
	if r.ContentLength > s.cfg.MaxUpload {
		return nil, &requestError{status: http.StatusRequestEntityTooLarge, err: fmt.Errorf("upload of %d bytes exceeds %d", r.ContentLength, s.cfg.MaxUpload)}
	}
	r.Body = http.MaxBytesReader(out, r.Body, s.cfg.MaxUpload)
	if err := r.ParseMultipartForm(s.cfg.MaxUpload); err != nil {
		return nil, uploadError(err)
	}
	file, _, err := r.FormFile(kFileField)
	if err != nil {
		return nil, uploadError(err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, uploadError(err)
	}

	proceed, _ := strconv.ParseBool(r.FormValue(kProceedField))
	session, err := s.newSession(r.MultipartForm.Value[kHeaderField], proceed)
	if err != nil {
		return nil, err
	}
	if err := session.IngestFile(data); err != nil {
		session.Close()
		return nil, err
	}
	return session, nil
}

func (s *Server) newSession(headers []string, proceed bool) (*stickers.Session, error) {
	headers = stickers.CleanHeaders(headers)
	if len(headers) == 0 {
		headers = s.cfg.Headers
	}
	confirm := stickers.NeverConfirm
	if proceed {
		confirm = stickers.AlwaysConfirm
	}
	return stickers.NewSession(
		stickers.WithHeaders(headers...),
		stickers.WithGrid(s.cfg.Grid),
		stickers.WithExporter(s.exporter),
		stickers.WithConfirmer(confirm),
		stickers.WithLogger(s.logger),
		stickers.WithMetrics(s.metrics),
	)
}

type requestError struct {
	status int
	err    error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &requestError{status: http.StatusRequestEntityTooLarge, err: err}
	}
	return &requestError{status: http.StatusBadRequest, err: fmt.Errorf("missing %q upload: %w", kFileField, err)}
}

func (s *Server) writeError(out http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	var reqErr *requestError
	var missing *stickers.MissingHeadersError
	switch {
	case errors.As(err, &reqErr):
		status = reqErr.status
	case errors.As(err, &missing):
		status = http.StatusConflict
		resp.Missing = missing.Missing
	case errors.Is(err, stickers.ErrParseFailure), errors.Is(err, stickers.ErrEmptyDataset):
		status = http.StatusBadRequest
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		s.logger.Info("Request rejected", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}

	out.Header().Set("Content-Type", "application/json")
	out.WriteHeader(status)
	body, _ := json.MarshalIndent(resp, "", "  ")
	out.Write(body)
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
