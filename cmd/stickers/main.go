// Command stickers turns an inventory spreadsheet into an A4 PDF of labels.
//
//	stickers template [-o inventory_template.xlsx]
//	stickers preview  [-page N] [-png] [-font F] [-font-size PT] [-debug-html] [-yes] [-o out] inventory.xlsx
//	stickers generate [-o inventory_stickers.pdf] [-yes] inventory.xlsx
//	stickers serve    [-addr :8080]
//
// Every subcommand also takes -headers, -columns, -rows, -dpi and
// -metrics-file. Defaults come from STICKERS_* environment variables.
package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aerissecure/stickers"
	"github.com/aerissecure/stickers/internal/config"
	"github.com/aerissecure/stickers/internal/logging"
	"github.com/aerissecure/stickers/internal/metrics"
	"github.com/aerissecure/stickers/preview"
	"github.com/aerissecure/stickers/raster"
	"github.com/aerissecure/stickers/server"
	"github.com/aerissecure/stickers/xlsx"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s template|preview|generate|serve [flags] [file]\n", os.Args[0])
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	env := config.Load()
	logger, err := logging.NewLogger(logging.Config{
		Level:      env.GetString(config.EnvLogLevel, "info"),
		Format:     env.GetString(config.EnvLogFormat, "console"),
		OutputPath: "stderr",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "template":
		err = runTemplate(env, logger, args)
	case "preview":
		err = runPreview(ctx, env, logger, args, os.Stdin, os.Stderr)
	case "generate":
		err = runGenerate(ctx, env, logger, args, os.Stdin, os.Stderr)
	case "serve":
		err = runServe(ctx, env, logger, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		var merr *stickers.MissingHeadersError
		if errors.As(err, &merr) {
			logger.Error("Upload declined", zap.Strings("missing", merr.Missing))
		} else {
			logger.Error("Command failed", zap.String("command", cmd), zap.Error(err))
		}
		os.Exit(1)
	}
}

// common holds the flags shared by all subcommands.
type common struct {
	headers     string
	columns     int
	rows        int
	dpi         float64
	metricsFile string
}

func bindCommon(fs *flag.FlagSet, env *config.Config) *common {
	c := &common{}
	fs.StringVar(&c.headers, "headers",
		strings.Join(env.GetStrings(config.EnvHeaders, stickers.DefaultHeaders), ","),
		"Comma separated header list")
	fs.IntVar(&c.columns, "columns", env.GetInt(config.EnvColumns, stickers.DefaultGrid.Columns), "Stickers per row")
	fs.IntVar(&c.rows, "rows", env.GetInt(config.EnvRows, stickers.DefaultGrid.Rows), "Sticker rows per page")
	fs.Float64Var(&c.dpi, "dpi", env.GetFloat(config.EnvDPI, 150), "Raster resolution of exported pages")
	fs.StringVar(&c.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
	return c
}

func (c *common) grid() stickers.Grid {
	return stickers.Grid{Columns: c.columns, Rows: c.rows}
}

func (c *common) headerList() []string {
	return splitHeaders(c.headers)
}

func (c *common) writeMetrics(logger *zap.Logger) {
	if c.metricsFile == "" {
		return
	}
	if err := metrics.WriteTextfile(c.metricsFile); err != nil {
		logger.Warn("Failed to write metrics", zap.String("path", c.metricsFile), zap.Error(err))
	}
}

// session builds a session whose exporter rasterizes at the configured DPI.
func (c *common) session(env *config.Config, logger *zap.Logger, confirm stickers.Confirmer, extra ...stickers.Option) (*stickers.Session, error) {
	surface, err := raster.NewSurface(raster.Options{DPI: c.dpi})
	if err != nil {
		return nil, err
	}
	exporter := stickers.NewExporter(c.grid(), surface)
	exporter.SettleDelay = env.GetDuration(config.EnvSettleDelay, 0)
	exporter.Logger = logger
	rec := metrics.NewRecorder()
	exporter.Metrics = rec
	exporter.Progress = func(page, total int) {
		logger.Debug("Page exported", zap.Int("page", page), zap.Int("total", total))
	}

	opts := []stickers.Option{
		stickers.WithHeaders(c.headerList()...),
		stickers.WithGrid(c.grid()),
		stickers.WithExporter(exporter),
		stickers.WithConfirmer(confirm),
		stickers.WithLogger(logger),
		stickers.WithMetrics(rec),
	}
	s, err := stickers.NewSession(append(opts, extra...)...)
	if err != nil {
		return nil, err
	}
	// An explicitly empty -headers still needs the user's consent.
	if len(c.headerList()) == 0 && !s.SaveHeaders(nil) {
		s.Close()
		return nil, errors.New("empty header list declined")
	}
	return s, nil
}

func runTemplate(env *config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("template", flag.ExitOnError)
	c := bindCommon(fs, env)
	out := fs.String("o", xlsx.TemplateFileName, "Output file")
	fs.Parse(args)
	defer c.writeMetrics(logger)

	var buf bytes.Buffer
	if err := xlsx.WriteTemplate(&buf, c.headerList()); err != nil {
		return err
	}
	if err := os.WriteFile(*out, buf.Bytes(), 0o644); err != nil {
		return err
	}
	logger.Info("Template written", zap.String("path", *out), zap.Strings("headers", c.headerList()))
	return nil
}

func runPreview(ctx context.Context, env *config.Config, logger *zap.Logger, args []string, stdin io.Reader, stderr io.Writer) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	c := bindCommon(fs, env)
	page := fs.Int("page", 0, "Page to preview, starting at 0")
	asPNG := fs.Bool("png", false, "Write a PNG raster instead of HTML")
	fontFamily := fs.String("font", "", "CSS font family of the HTML preview")
	fontSize := fs.Float64("font-size", 0, "Font size of the HTML preview in points, 0 for 8")
	debugHTML := fs.Bool("debug-html", false, "Annotate HTML rows with the raw field")
	yes := fs.Bool("yes", false, "Continue without asking when headers are missing")
	out := fs.String("o", "-", "Output file, - for stdout")
	fs.Parse(args)
	defer c.writeMetrics(logger)
	preview.DebugHTML = *debugHTML

	data, err := readInput(fs)
	if err != nil {
		return err
	}
	s, err := c.session(env, logger, confirmer(*yes, stdin, stderr),
		stickers.WithPreviewOptions(preview.Options{FontFamily: *fontFamily, FontSizePt: *fontSize}))
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.IngestFile(data); err != nil {
		return err
	}
	shown := s.SetPreviewPage(*page)
	if shown != *page {
		logger.Warn("Page out of range", zap.Int("requested", *page), zap.Int("shown", shown), zap.Int("pages", s.PageCount()))
	}

	var buf bytes.Buffer
	if *asPNG {
		img, err := raster.Rasterize(ctx, s.Preview(), raster.Options{DPI: c.dpi})
		if err != nil {
			return err
		}
		if err := png.Encode(&buf, img); err != nil {
			return err
		}
	} else {
		buf.WriteString(s.PreviewHTML())
	}
	return writeOutput(*out, buf.Bytes())
}

func runGenerate(ctx context.Context, env *config.Config, logger *zap.Logger, args []string, stdin io.Reader, stderr io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	c := bindCommon(fs, env)
	out := fs.String("o", stickers.DefaultFileName, "Output file, - for stdout")
	yes := fs.Bool("yes", false, "Continue without asking when headers are missing")
	fs.Parse(args)
	defer c.writeMetrics(logger)

	data, err := readInput(fs)
	if err != nil {
		return err
	}
	s, err := c.session(env, logger, confirmer(*yes, stdin, stderr))
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.IngestFile(data); err != nil {
		return err
	}

	var buf bytes.Buffer
	pages, err := s.Export(ctx, &buf)
	if err != nil {
		return err
	}
	if err := writeOutput(*out, buf.Bytes()); err != nil {
		return err
	}
	logger.Info("Stickers written", zap.String("path", *out), zap.Int("pages", pages))
	return nil
}

func runServe(ctx context.Context, env *config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	c := bindCommon(fs, env)
	addr := fs.String("addr", env.GetString(config.EnvAddr, ":8080"), "Address to listen on")
	maxUpload := fs.Int("max-upload", env.GetInt(config.EnvMaxUpload, server.DefaultMaxUpload), "Largest accepted upload in bytes")
	fs.Parse(args)
	defer c.writeMetrics(logger)

	surface, err := raster.NewSurface(raster.Options{DPI: c.dpi})
	if err != nil {
		return err
	}
	rec := metrics.NewRecorder()
	exporter := stickers.NewExporter(c.grid(), surface)
	exporter.SettleDelay = env.GetDuration(config.EnvSettleDelay, 0)
	exporter.Logger = logger
	exporter.Metrics = rec

	srv := server.New(server.Config{
		Headers:   c.headerList(),
		Grid:      c.grid(),
		MaxUpload: int64(*maxUpload),
	}, exporter, logger, rec)

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("Listening", zap.String("addr", *addr), zap.Stringer("grid", c.grid()))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// confirmer answers prompts on the terminal, or always yes with -yes.
func confirmer(yes bool, stdin io.Reader, stderr io.Writer) stickers.Confirmer {
	if yes {
		return stickers.AlwaysConfirm
	}
	return &promptConfirmer{in: bufio.NewReader(stdin), out: stderr}
}

// promptConfirmer asks on the terminal. Anything but y or yes is a no.
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *promptConfirmer) Confirm(prompt string) bool {
	fmt.Fprintf(p.out, "%s [y/N] ", prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(p.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func splitHeaders(s string) []string {
	var out []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}

func readInput(fs *flag.FlagSet) ([]byte, error) {
	if fs.NArg() != 1 {
		return nil, fmt.Errorf("%s: expected one spreadsheet file, got %d arguments", fs.Name(), fs.NArg())
	}
	if name := fs.Arg(0); name != "-" {
		return os.ReadFile(name)
	}
	return io.ReadAll(os.Stdin)
}

func writeOutput(name string, data []byte) error {
	if name == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(name, data, 0o644)
}
