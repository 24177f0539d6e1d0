package xlsx

import (
	"io"

	"github.com/unidoc/unioffice/spreadsheet"
)

const (
	// TemplateFileName is the suggested name for a written template.
	TemplateFileName = "inventory_template.xlsx"
	// TemplateSheetName names the only sheet of a template workbook.
	TemplateSheetName = "Template"
)

// WriteTemplate writes a workbook whose first row holds headers and whose
// second row is blank, ready to be filled in and uploaded again.
func WriteTemplate(w io.Writer, headers []string) error {
	wb := NewWorkbook(TemplateSheetName, headers, [][]string{make([]string, len(headers))})
	return wb.Save(w)
}

// NewWorkbook builds a single-sheet workbook with a bold header row followed
// by rows. Blank strings still produce a cell so the row is kept.
func NewWorkbook(sheetName string, headers []string, rows [][]string) *spreadsheet.Workbook {
	wb := spreadsheet.New()
	sheet := wb.AddSheet()
	sheet.SetName(sheetName)

	bold := wb.StyleSheet.AddCellStyle()
	font := wb.StyleSheet.AddFont()
	font.SetBold(true)
	bold.SetFont(font)

	hdr := sheet.AddRow()
	for _, h := range headers {
		cell := hdr.AddCell()
		cell.SetString(h)
		cell.SetStyle(bold)
	}
	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	return wb
}
