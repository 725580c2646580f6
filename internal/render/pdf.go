package render

import (
	"bytes"
	"context"
	"fmt"
	"sort"
)

// PDF is a minimal single-page PDF renderer. It lays the template name and
// the context pairs out as Helvetica lines, enough for a verifiable
// certificate artifact without an external rendering engine.
type PDF struct{}

func NewPDF() *PDF {
	return &PDF{}
}

func (p *PDF) Render(_ context.Context, template string, data Context) ([]byte, error) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var content bytes.Buffer
	content.WriteString("BT /F1 14 Tf 50 780 Td\n")
	content.WriteString(fmt.Sprintf("(%s) Tj\n", escapePDF(template)))
	y := 750
	for _, k := range keys {
		content.WriteString(fmt.Sprintf("1 0 0 1 50 %d Tm (%s: %s) Tj\n",
			y, escapePDF(k), escapePDF(data[k])))
		y -= 20
	}
	content.WriteString("ET\n")

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, 0, 5)
	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}
	writeObj("1 0 obj << /Type /Catalog /Pages 2 0 R >> endobj\n")
	writeObj("2 0 obj << /Type /Pages /Kids [3 0 R] /Count 1 >> endobj\n")
	writeObj("3 0 obj << /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] " +
		"/Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >> endobj\n")
	writeObj("4 0 obj << /Type /Font /Subtype /Type1 /BaseFont /Helvetica >> endobj\n")
	writeObj(fmt.Sprintf("5 0 obj << /Length %d >> stream\n%s\nendstream endobj\n",
		content.Len(), content.String()))

	xref := buf.Len()
	buf.WriteString(fmt.Sprintf("xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1))
	for _, off := range offsets {
		buf.WriteString(fmt.Sprintf("%010d 00000 n \n", off))
	}
	buf.WriteString(fmt.Sprintf(
		"trailer << /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xref))
	return buf.Bytes(), nil
}

func escapePDF(s string) string {
	var out bytes.Buffer
	for _, r := range s {
		switch r {
		case '(', ')', '\\':
			out.WriteByte('\\')
			out.WriteRune(r)
		default:
			if r < 128 {
				out.WriteRune(r)
			}
		}
	}
	return out.String()
}
