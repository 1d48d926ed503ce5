package render

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	pageWidth  = 612.0
	pageHeight = 792.0
	margin     = 54.0
	// Average Helvetica glyph width as a fraction of the font size.
	glyphWidth = 0.5
)

type pdfLine struct {
	font string
	size float64
	text string
	gap  float64
}

// renderPDF writes a PDF 1.4 document using the standard Helvetica fonts.
// Text outside WinAnsi is replaced with '?'.
func renderPDF(blocks []block) ([]byte, error) {
	pages := paginate(pdfLines(blocks))

	var objects []string
	// 1: catalog, 2: pages, 3: regular font, 4: bold font, 5: italic font.
	objects = append(objects, "", "",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica-Bold /Encoding /WinAnsiEncoding >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica-Oblique /Encoding /WinAnsiEncoding >>",
	)
	var kids []string
	for _, page := range pages {
		content := pageContent(page)
		objects = append(objects, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
		contentID := len(objects)
		objects = append(objects, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %.0f %.0f] /Resources << /Font << /F1 3 0 R /F2 4 0 R /F3 5 0 R >> >> /Contents %d 0 R >>",
			pageWidth, pageHeight, contentID))
		kids = append(kids, fmt.Sprintf("%d 0 R", len(objects)))
	}
	objects[0] = "<< /Type /Catalog /Pages 2 0 R >>"
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(kids))

	var out bytes.Buffer
	out.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n", len(objects)+1)
	out.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return out.Bytes(), nil
}

func pdfLines(blocks []block) []pdfLine {
	var lines []pdfLine
	for _, blk := range blocks {
		style := styleOf(blk.kind)
		size := float64(style.Size) / 2
		font := "F1"
		switch {
		case style.Bold:
			font = "F2"
		case style.Italic:
			font = "F3"
		}
		gap := size * 0.4
		if blk.kind == kindHeading {
			gap = size
		}

		text := blk.text
		indent := ""
		if blk.kind == kindBullet {
			text = "- " + text
			indent = "  "
		}
		width := int((pageWidth - 2*margin) / (size * glyphWidth))
		for i, part := range wrap(text, width) {
			line := pdfLine{font: font, size: size, text: part}
			if i == 0 {
				line.gap = gap
			} else {
				line.text = indent + part
			}
			lines = append(lines, line)
		}
	}
	return lines
}

func paginate(lines []pdfLine) [][]pdfLine {
	var (
		pages [][]pdfLine
		page  []pdfLine
		used  float64
	)
	avail := pageHeight - 2*margin
	for _, l := range lines {
		h := l.size*1.25 + l.gap
		if used+h > avail && len(page) > 0 {
			pages = append(pages, page)
			page, used = nil, 0
		}
		page = append(page, l)
		used += h
	}
	if len(page) > 0 {
		pages = append(pages, page)
	}
	return pages
}

func pageContent(lines []pdfLine) string {
	var b strings.Builder
	y := pageHeight - margin
	for _, l := range lines {
		y -= l.size*1.25 + l.gap
		// T* ends the line for text extractors.
		fmt.Fprintf(&b, "BT /%s %.1f Tf %.1f %.1f Td (%s) Tj T* ET\n", l.font, l.size, margin, y, escapePDF(l.text))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// wrap splits text on word boundaries into lines of at most width runes.
func wrap(text string, width int) []string {
	if width < 10 {
		width = 10
	}
	var (
		lines []string
		cur   []rune
	)
	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > width {
			if len(cur) > 0 {
				lines = append(lines, string(cur))
				cur = nil
			}
			lines = append(lines, string(w[:width]))
			w = w[width:]
		}
		switch {
		case len(cur) == 0:
			cur = append(cur, w...)
		case len(cur)+1+len(w) <= width:
			cur = append(append(cur, ' '), w...)
		default:
			lines = append(lines, string(cur))
			cur = append([]rune(nil), w...)
		}
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}
	return lines
}

func escapePDF(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '(' || r == ')' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '•':
			b.WriteByte(0x95)
		case r == '–' || r == '—':
			b.WriteByte('-')
		case r == '‘' || r == '’':
			b.WriteByte('\'')
		case r == '“' || r == '”':
			b.WriteByte('"')
		case r >= 0x20 && r < 0x7f:
			b.WriteRune(r)
		case r >= 0xa0 && r <= 0xff:
			b.WriteByte(byte(r))
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}
