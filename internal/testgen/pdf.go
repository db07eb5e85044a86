package testgen

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

// PDF builds a minimal PDF 1.4 document with one empty Letter-sized page per
// requested page and an Info dictionary carrying the title and author.
func PDF(t *testing.T, opts PDFOptions) []byte {
	t.Helper()

	pageCount := opts.PageCount
	if pageCount <= 0 {
		pageCount = 3
	}

	// Object layout: 1 catalog, 2 page tree, 3 info, then a page and its
	// content stream for every page.
	var objects []string
	kids := make([]string, pageCount)
	for i := 0; i < pageCount; i++ {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] /Resources << >> >>", strings.Join(kids, " "), pageCount),
		fmt.Sprintf("<< /Title (%s) /Author (%s) /Producer (testgen) >>", escapePDFString(opts.Title), escapePDFString(opts.Author)),
	)
	for i := 0; i < pageCount; i++ {
		content := fmt.Sprintf("%d 0 m %d 100 l S", 10*i, 10*i+100)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 3 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefOffset)

	return buf.Bytes()
}

func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return r.Replace(s)
}
