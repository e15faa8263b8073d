package document

import (
	"bytes"
	"fmt"
	"strings"
)

// buildLeaveDocumentPDF renders the document lines as a single-page A4 PDF.
// The first line is treated as the title: larger type, underlined, and echoed
// into the document metadata. The output is deterministic for a given input
// so regenerated documents are byte-comparable.
func buildLeaveDocumentPDF(lines []string) ([]byte, error) {
	if len(lines) == 0 {
		lines = []string{"Leave Document"}
	}

	title := lines[0]
	body := lines[1:]

	var content strings.Builder
	content.WriteString("BT\n/F1 16 Tf\n50 800 Td\n")
	content.WriteString(fmt.Sprintf("(%s) Tj\n", pdfEscape(title)))
	content.WriteString("ET\n")
	content.WriteString("0.5 w\n50 794 m 545 794 l S\n")

	content.WriteString("BT\n/F1 11 Tf\n14 TL\n50 772 Td\n")
	for _, line := range body {
		content.WriteString(fmt.Sprintf("(%s) Tj\nT*\n", pdfEscape(line)))
	}
	content.WriteString("ET\n")
	content.WriteString("BT\n/F1 8 Tf\n50 40 Td\n(Generated by leaveflow) Tj\nET")

	stream := content.String()
	objects := []string{
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n",
		"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n",
		"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>\nendobj\n",
		"4 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n",
		fmt.Sprintf("5 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(stream), stream),
		fmt.Sprintf("6 0 obj\n<< /Title (%s) /Producer (leaveflow) >>\nendobj\n", pdfEscape(title)),
	}

	var out bytes.Buffer
	out.WriteString("%PDF-1.4\n")
	offsets := make([]int, 0, len(objects)+1)
	offsets = append(offsets, 0)

	for _, obj := range objects {
		offsets = append(offsets, out.Len())
		out.WriteString(obj)
	}

	xrefStart := out.Len()
	out.WriteString(fmt.Sprintf("xref\n0 %d\n", len(offsets)))
	out.WriteString("0000000000 65535 f \n")
	for i := 1; i < len(offsets); i++ {
		out.WriteString(fmt.Sprintf("%010d 00000 n \n", offsets[i]))
	}
	out.WriteString(fmt.Sprintf("trailer\n<< /Size %d /Root 1 0 R /Info 6 0 R >>\nstartxref\n%d\n%%%%EOF", len(offsets), xrefStart))

	return out.Bytes(), nil
}

func pdfEscape(v string) string {
	replacer := strings.NewReplacer("\\", "\\\\", "(", "\\(", ")", "\\)")
	return replacer.Replace(v)
}
