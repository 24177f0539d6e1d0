// Package preview renders a sticker page as an HTML fragment shaped like the
// printed A4 sheet.
package preview

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/aerissecure/stickers/scene"
)

// DebugHTML adds data attributes with the raw field info to the output.
var DebugHTML bool

var fontFamilySafeRe = regexp.MustCompile(`[^a-zA-Z0-9 ,_-]+`)

// Options tune the generated markup.
type Options struct {
	FontFamily string  // CSS font-family for sticker text
	FontSizePt float64 // base font size; 0 means 8pt
}

// sanitizeFontFamily strips characters that could break out of the CSS
// declaration.
func sanitizeFontFamily(s string) string {
	return fontFamilySafeRe.ReplaceAllString(s, "")
}

// RenderPageHTML converts a page into HTML using the default options.
func RenderPageHTML(p scene.Page) string {
	return RenderPageHTMLWithOptions(p, Options{})
}

// RenderPageHTMLWithOptions converts a page into HTML. Headers and values are
// always escaped, so cell contents can never add markup.
func RenderPageHTMLWithOptions(p scene.Page, opts Options) string {
	var b strings.Builder
	b.WriteString(pageCSS(p, opts))

	b.WriteString(fmt.Sprintf(`<div class="a4page" data-page="%d">
`, p.Index))
	b.WriteString(`<div class="grid">
`)
	for _, s := range p.Stickers {
		b.WriteString(`  <div class="sticker">
`)
		for _, f := range s.Fields {
			b.WriteString(renderFieldHTML(f))
		}
		b.WriteString("  </div>\n")
	}
	b.WriteString("</div>\n</div>\n")
	return b.String()
}

func renderFieldHTML(f scene.Field) string {
	text := html.EscapeString(f.Text())
	debugAttr := ""
	if DebugHTML {
		debugAttr = fmt.Sprintf(" data-field=\"%s\"", html.EscapeString(f.String()))
	}
	if f.Primary {
		return fmt.Sprintf("    <div class=\"row\"%s><div class=\"name\">%s</div></div>\n", debugAttr, text)
	}
	return fmt.Sprintf("    <div class=\"row\"%s>%s</div>\n", debugAttr, text)
}

func pageCSS(p scene.Page, opts Options) string {
	cols, rows := p.Columns, p.Rows
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	format := p.Format
	if format.WidthMM <= 0 || format.HeightMM <= 0 {
		format = scene.A4
	}
	size := opts.FontSizePt
	if size <= 0 {
		size = 8
	}

	var b strings.Builder
	b.WriteString("<style>\n")
	b.WriteString(fmt.Sprintf(".a4page { width:%.0fmm; height:%.0fmm; background:#fff; box-sizing:border-box; padding:6mm; }\n",
		format.WidthMM, format.HeightMM))
	b.WriteString(fmt.Sprintf(".grid { display:grid; grid-template-columns:repeat(%d, 1fr); grid-template-rows:repeat(%d, 1fr); gap:2mm; height:100%%; }\n",
		cols, rows))
	b.WriteString(fmt.Sprintf(".sticker { border:1px dashed #bbb; padding:2mm; overflow:hidden; font-size:%.1fpt;", size))
	if opts.FontFamily != "" {
		if ff := sanitizeFontFamily(opts.FontFamily); ff != "" {
			b.WriteString(fmt.Sprintf(" font-family:'%s';", ff))
		}
	}
	b.WriteString(" }\n")
	b.WriteString(".sticker .row { white-space:nowrap; overflow:hidden; text-overflow:ellipsis; }\n")
	b.WriteString(".sticker .name { font-weight:bold; }\n")
	b.WriteString("</style>\n")
	return b.String()
}
