package stickers

import (
	"bytes"
	"fmt"

	"github.com/aerissecure/stickers/delimited"
	"github.com/aerissecure/stickers/tabular"
	"github.com/aerissecure/stickers/xlsx"
)

// Upload formats as reported by DecodeTable.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

var zipMagic = []byte("PK\x03\x04")

// DecodeTable sniffs the upload and decodes it with the matching reader:
// ZIP content as an XLSX workbook, anything else as delimited text. All
// decode errors wrap ErrParseFailure.
func DecodeTable(data []byte) (tabular.Table, string, error) {
	u, err := decodeUpload(data)
	return u.table, u.format, err
}

// upload is a decoded file. sheets lists every worksheet of a workbook;
// only the first one is read.
type upload struct {
	table  tabular.Table
	format string
	sheets []xlsx.SheetInfo
}

// skippedSheets returns the names of the worksheets that were not read.
func (u upload) skippedSheets() []string {
	var names []string
	for i, sh := range u.sheets {
		if i > 0 {
			names = append(names, sh.Name)
		}
	}
	return names
}

func decodeUpload(data []byte) (upload, error) {
	if len(data) == 0 {
		return upload{}, fmt.Errorf("%w: empty file", ErrParseFailure)
	}
	if bytes.HasPrefix(data, zipMagic) {
		tbl, sheets, err := xlsx.ReadTable(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return upload{format: FormatXLSX}, fmt.Errorf("%w: %v", ErrParseFailure, err)
		}
		return upload{table: tbl, format: FormatXLSX, sheets: sheets}, nil
	}
	tbl, err := delimited.ReadTable(data)
	if err != nil {
		return upload{format: FormatCSV}, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	return upload{table: tbl, format: FormatCSV}, nil
}

// MissingHeaders returns the headers, in order, that tbl has no column for.
func MissingHeaders(tbl tabular.Table, headers []string) []string {
	var missing []string
	for _, h := range headers {
		if !tbl.HasColumn(h) {
			missing = append(missing, h)
		}
	}
	return missing
}

// BuildDataset keeps only the configured headers of every table row. Absent
// columns become empty values and extra columns are dropped.
func BuildDataset(tbl tabular.Table, headers []string) Dataset {
	ds := make(Dataset, 0, len(tbl.Rows))
	for _, src := range tbl.Rows {
		row := make(Row, len(headers))
		for _, h := range headers {
			row[h] = src[tabular.NormalizeName(h)]
		}
		ds = append(ds, row)
	}
	return ds
}

// Ingest decodes data and builds a dataset for headers. When the upload
// lacks some headers, confirm decides whether to continue; a refusal
// returns a *MissingHeadersError. A nil confirm refuses.
func Ingest(data []byte, headers []string, confirm Confirmer) (Dataset, error) {
	tbl, _, err := DecodeTable(data)
	if err != nil {
		return nil, err
	}
	if err := checkHeaders(tbl, headers, confirm); err != nil {
		return nil, err
	}
	return BuildDataset(tbl, headers), nil
}

func checkHeaders(tbl tabular.Table, headers []string, confirm Confirmer) error {
	missing := MissingHeaders(tbl, headers)
	if len(missing) == 0 {
		return nil
	}
	merr := &MissingHeadersError{Missing: missing}
	if !confirmed(confirm, merr.Prompt()) {
		return merr
	}
	return nil
}
