package pdf

import (
	"testing"

	"github.com/mylibrary/mylibrary/internal/testgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	t.Parallel()
	data := testgen.PDF(t, testgen.PDFOptions{PageCount: 5, Title: "Manual", Author: "ACME"})

	doc, err := Open(data)
	require.NoError(t, err)
	assert.Equal(t, 5, doc.PageCount)
	assert.Equal(t, "Manual", doc.Title)
	assert.Equal(t, "ACME", doc.Author)
}

func TestOpen_Corrupt(t *testing.T) {
	t.Parallel()

	_, err := Open([]byte("PK\x03\x04 not a pdf"))
	require.Error(t, err)

	_, err = Open([]byte("%PDF-1.4\ngarbage without xref"))
	require.Error(t, err)
}

func TestParse(t *testing.T) {
	t.Parallel()
	data := testgen.PDF(t, testgen.PDFOptions{PageCount: 2, Title: "Manual", Author: "ACME"})

	metadata, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "Manual", metadata.Title)
	assert.Equal(t, []string{"ACME"}, metadata.Authors)
	require.NotNil(t, metadata.PageCount)
	assert.Equal(t, 2, *metadata.PageCount)
}
