package epub

import (
	"testing"

	"github.com/mylibrary/mylibrary/internal/testgen"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	t.Parallel()
	data := testgen.EPUB(t, testgen.EPUBOptions{
		Title:    "Test Book",
		Chapters: []string{"one", "two", "three"},
	})

	b, err := Open(data)
	require.NoError(t, err)
	require.Len(t, b.OPF.Spine, 3)
	assert.Equal(t, "OEBPS/chapter1.xhtml", b.OPF.Spine[0].Path)
	assert.True(t, b.OPF.Spine[0].IsDocument())

	doc, err := b.ReadFile(b.OPF.Spine[1].Path)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "two")
}

func TestOpen_NotAZip(t *testing.T) {
	t.Parallel()
	_, err := Open([]byte("definitely not a zip"))
	require.Error(t, err)
}

func TestOpen_MissingPackageDocument(t *testing.T) {
	t.Parallel()
	data := testgen.EPUB(t, testgen.EPUBOptions{OmitOPF: true})

	_, err := Open(data)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoPackage))
}

func TestParse(t *testing.T) {
	t.Parallel()
	data := testgen.EPUB(t, testgen.EPUBOptions{
		Title:     "Test Book",
		Authors:   []string{"Jane Doe"},
		Publisher: "Tor",
		HasCover:  true,
	})

	metadata, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "Test Book", metadata.Title)
	assert.Equal(t, []string{"Jane Doe"}, metadata.Authors)
	assert.Equal(t, "Tor", metadata.Publisher)
	assert.Equal(t, "en", metadata.Language)
	assert.Equal(t, "image/png", metadata.CoverMimeType)
	assert.NotEmpty(t, metadata.CoverData)
	assert.Nil(t, metadata.PageCount)
}
