// Package pdfdoc assembles page bitmaps into a PDF, one full-bleed image per
// physical page.
package pdfdoc

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/go-pdf/fpdf"
)

// DefaultFileName is the suggested name for the generated document.
const DefaultFileName = "inventory_stickers.pdf"

// Document is a PDF under construction.
type Document struct {
	pdf   *fpdf.Fpdf
	pages int
}

// New starts an empty portrait A4 document.
func New(title string) *Document {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreator("stickers", true)
	if title != "" {
		pdf.SetTitle(title, true)
	}
	return &Document{pdf: pdf}
}

// AddPage appends img stretched over a new page. Pages keep the order in
// which they are added.
func (d *Document) AddPage(img image.Image) error {
	if err := d.pdf.Error(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode page %d: %w", d.pages+1, err)
	}

	name := fmt.Sprintf("page-%d", d.pages+1)
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	d.pdf.AddPage()
	d.pdf.RegisterImageOptionsReader(name, opts, &buf)
	w, h := d.pdf.GetPageSize()
	d.pdf.ImageOptions(name, 0, 0, w, h, false, opts, 0, "")
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("add page %d: %w", d.pages+1, err)
	}
	d.pages++
	return nil
}

// PageCount returns the number of pages added so far.
func (d *Document) PageCount() int {
	return d.pages
}

// WriteTo writes the finished PDF. The document cannot be extended after.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	if err := d.pdf.Output(cw); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
