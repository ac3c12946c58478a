package pdf

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// buildPDF writes a minimal document with the given number of blank pages
func buildPDF(pages int) []byte {
	var buf bytes.Buffer
	offsets := []int{}

	writeObject := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	writeObject("<< /Type /Catalog /Pages 2 0 R >>")

	kids := ""
	for p := 0; p < pages; p++ {
		kids += fmt.Sprintf("%d 0 R ", p+3)
	}
	writeObject(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages))

	for p := 0; p < pages; p++ {
		writeObject("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	return buf.Bytes()
}

func TestInspector_PageCount(t *testing.T) {
	inspector := NewInspector(zap.NewNop())

	count, err := inspector.PageCount(buildPDF(3))
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestInspector_RejectsInvalidInput(t *testing.T) {
	inspector := NewInspector(zap.NewNop())

	_, err := inspector.PageCount(nil)
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = inspector.PageCount([]byte("definitely not a pdf"))
	assert.Error(t, err)
}
