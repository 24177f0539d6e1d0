// Package delimited decodes comma separated exports into the same table shape
// the xlsx reader produces.
package delimited

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/aerissecure/stickers/tabular"
)

var (
	// ErrEmpty is returned when there is not even a header row.
	ErrEmpty = errors.New("empty file: no header row found")
	// ErrBinary is returned for content that is not text in any supported encoding.
	ErrBinary = errors.New("content is not delimited text")
)

var (
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decode converts data to UTF-8. A BOM selects UTF-8 or UTF-16, valid UTF-8
// is taken as is and anything else is read as Windows-1252. The name of the
// detected encoding is returned alongside.
func Decode(data []byte) ([]byte, string, error) {
	if bytes.HasPrefix(data, bomUTF16LE) || bytes.HasPrefix(data, bomUTF16BE) {
		dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
		out, _, err := transform.Bytes(dec, data)
		if err != nil {
			return nil, "", fmt.Errorf("UTF-16 decode failed: %w", err)
		}
		return out, "utf-16", nil
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, "", ErrBinary
	}
	if utf8.Valid(data) {
		if trimmed := bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}); len(trimmed) != len(data) {
			return trimmed, "utf-8-bom", nil
		}
		return data, "utf-8", nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return nil, "", fmt.Errorf("windows-1252 decode failed: %w", err)
	}
	return out, "windows-1252", nil
}

// ReadTable decodes delimited text. Ragged rows are padded or truncated to
// the header width and fully blank rows are skipped.
func ReadTable(data []byte) (tabular.Table, error) {
	decoded, _, err := Decode(data)
	if err != nil {
		return tabular.Table{}, err
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.Comma = sniffComma(decoded)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return tabular.Table{}, ErrEmpty
		}
		return tabular.Table{}, fmt.Errorf("failed to read header row: %w", err)
	}

	tbl := tabular.Table{Columns: tabular.NormalizeColumns(header)}
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return tabular.Table{}, fmt.Errorf("failed to read row: %w", err)
		}
		if tabular.IsBlank(rec) {
			continue
		}
		tbl.Rows = append(tbl.Rows, tabular.RowFromCells(tbl.Columns, rec))
	}
	return tbl, nil
}

// sniffComma picks the separator used most on the first line among comma,
// semicolon and tab. Commas win ties.
func sniffComma(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, count := ',', bytes.Count(line, []byte{','})
	for _, c := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(c))); n > count {
			best, count = c, n
		}
	}
	return best
}
