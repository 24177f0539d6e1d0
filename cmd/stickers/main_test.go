package main

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aerissecure/stickers"
	"github.com/aerissecure/stickers/internal/config"
	"github.com/aerissecure/stickers/preview"
	"github.com/aerissecure/stickers/xlsx"
)

func testEnv() *config.Config {
	return config.FromLookup(func(string) (string, bool) { return "", false })
}

func writeWorkbook(t *testing.T, headers []string, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory.xlsx")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, xlsx.NewWorkbook("Sheet1", headers, rows).Save(f))
	return path
}

func TestPromptConfirmer(t *testing.T) {
	tests := map[string]bool{
		"y\n":      true,
		"YES\n":    true,
		" yes  \n": true,
		"n\n":      false,
		"\n":       false,
		"":         false,
		"maybe\n":  false,
	}
	for input, want := range tests {
		var out bytes.Buffer
		p := &promptConfirmer{in: bufio.NewReader(strings.NewReader(input)), out: &out}
		assert.Equal(t, want, p.Confirm("Continue?"), "input %q", input)
		assert.Contains(t, out.String(), "Continue? [y/N]")
	}
}

func TestSplitHeaders(t *testing.T) {
	assert.Equal(t, []string{"Name", "SKU"}, splitHeaders(" Name , ,SKU"))
	assert.Empty(t, splitHeaders(""))
}

func TestRunTemplate(t *testing.T) {
	out := filepath.Join(t.TempDir(), "template.xlsx")
	require.NoError(t, runTemplate(testEnv(), zap.NewNop(), []string{"-headers", "Name,Bin", "-o", out}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	tbl, _, err := stickers.DecodeTable(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Bin"}, tbl.Columns)
}

func TestRunGenerate(t *testing.T) {
	in := writeWorkbook(t, []string{"Name", "SKU"}, [][]string{{"Resistor", "R-100"}, {"Capacitor", "C-220"}})
	out := filepath.Join(t.TempDir(), "stickers.pdf")
	metricsFile := filepath.Join(t.TempDir(), "stickers.prom")

	err := runGenerate(context.Background(), testEnv(), zap.NewNop(),
		[]string{"-headers", "Name,SKU", "-dpi", "30", "-o", out, "-metrics-file", metricsFile, in},
		strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, err)

	pdf, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "stickers_exports_total")
}

func TestRunGenerateMissingHeaders(t *testing.T) {
	in := writeWorkbook(t, []string{"Name"}, [][]string{{"Resistor"}})
	args := func(out string) []string {
		return []string{"-headers", "Name,SKU", "-dpi", "30", "-o", out, in}
	}

	declined := filepath.Join(t.TempDir(), "declined.pdf")
	var prompt bytes.Buffer
	err := runGenerate(context.Background(), testEnv(), zap.NewNop(), args(declined), strings.NewReader("n\n"), &prompt)
	assert.ErrorIs(t, err, stickers.ErrMissingHeaders)
	assert.Contains(t, prompt.String(), "SKU")
	assert.NoFileExists(t, declined)

	accepted := filepath.Join(t.TempDir(), "accepted.pdf")
	err = runGenerate(context.Background(), testEnv(), zap.NewNop(), args(accepted), strings.NewReader("y\n"), &bytes.Buffer{})
	require.NoError(t, err)
	assert.FileExists(t, accepted)
}

func TestRunGenerateEmptyDataset(t *testing.T) {
	in := writeWorkbook(t, []string{"Name"}, nil)
	out := filepath.Join(t.TempDir(), "stickers.pdf")
	err := runGenerate(context.Background(), testEnv(), zap.NewNop(),
		[]string{"-headers", "Name", "-o", out, in}, strings.NewReader(""), &bytes.Buffer{})
	assert.ErrorIs(t, err, stickers.ErrEmptyDataset)
	assert.NoFileExists(t, out)
}

func TestRunGenerateNeedsInput(t *testing.T) {
	err := runGenerate(context.Background(), testEnv(), zap.NewNop(), nil, strings.NewReader(""), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunPreviewMissingHeaders(t *testing.T) {
	in := writeWorkbook(t, []string{"Name"}, [][]string{{"Resistor"}})
	args := func(out string, extra ...string) []string {
		return append(append([]string{"-headers", "Name,SKU", "-o", out}, extra...), in)
	}

	declined := filepath.Join(t.TempDir(), "declined.html")
	var prompt bytes.Buffer
	err := runPreview(context.Background(), testEnv(), zap.NewNop(), args(declined), strings.NewReader("n\n"), &prompt)
	assert.ErrorIs(t, err, stickers.ErrMissingHeaders)
	assert.Contains(t, prompt.String(), "SKU")
	assert.NoFileExists(t, declined)

	accepted := filepath.Join(t.TempDir(), "accepted.html")
	err = runPreview(context.Background(), testEnv(), zap.NewNop(), args(accepted, "-yes"), strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, err)
	html, err := os.ReadFile(accepted)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Name: Resistor")
}

func TestRunPreviewHTMLOptions(t *testing.T) {
	t.Cleanup(func() { preview.DebugHTML = false })

	in := writeWorkbook(t, []string{"Name"}, [][]string{{"Resistor"}})
	out := filepath.Join(t.TempDir(), "preview.html")
	err := runPreview(context.Background(), testEnv(), zap.NewNop(),
		[]string{"-headers", "Name", "-font", "Noto Sans", "-font-size", "10", "-debug-html", "-o", out, in},
		strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, err)

	html, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(html), "font-family:'Noto Sans';")
	assert.Contains(t, string(html), "font-size:10.0pt;")
	assert.Contains(t, string(html), "data-field=")
}
