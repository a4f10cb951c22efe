package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

var longParagraph = strings.Repeat("The reader turns another page of the book. ", 5)

func TestRegistryFormats(t *testing.T) {
	t.Parallel()

	r := NewRegistry(10)
	assert.Equal(t, []string{".docx", ".epub", ".fb2", ".markdown", ".md", ".pdf", ".txt"}, r.Formats())
	assert.True(t, r.Supports("Book.PDF"))
	assert.True(t, r.Supports("notes.md"))
	assert.False(t, r.Supports("slides.pptx"))
	assert.False(t, r.Supports("README"))
}

func TestExtractUnsupportedFormat(t *testing.T) {
	t.Parallel()

	r := NewRegistry(10)
	_, err := r.Extract(context.Background(), "/tmp/slides.pptx")

	var extErr *ExtractionError
	require.True(t, errors.As(err, &extErr))
	assert.Equal(t, ".pptx", extErr.Format)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "slides.pptx")
}

func TestExtractText(t *testing.T) {
	t.Parallel()

	content := "Title line\r\n\r\n\r\n\r\n" + longParagraph + "\r\n   \r\nLast line.  \n"
	path := writeFile(t, "book.txt", content)

	text, err := NewRegistry(10).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Title line\n\n"+strings.TrimSpace(longParagraph)+"\n\nLast line.", text)
}

func TestExtractTextTooShort(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "short.txt", "   tiny   \n\n")
	_, err := NewRegistry(100).Extract(context.Background(), path)

	assert.ErrorIs(t, err, ErrTextTooShort)
	var extErr *ExtractionError
	require.True(t, errors.As(err, &extErr))
	assert.Equal(t, ".txt", extErr.Format)
}

func TestExtractMissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry(1).Extract(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	var extErr *ExtractionError
	assert.True(t, errors.As(err, &extErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestExtractCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := writeFile(t, "book.txt", longParagraph)
	_, err := NewRegistry(1).Extract(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractMarkdown(t *testing.T) {
	t.Parallel()

	src := "# Chapter One\n\nThe *first* paragraph\nwraps here.\n\n---\n\n## Part Two\n\n- item one\n- item two\n\n> quoted line\n"
	path := writeFile(t, "notes.md", src)

	text, err := NewRegistry(1).Extract(context.Background(), path)
	require.NoError(t, err)

	want := strings.Join([]string{
		"# Chapter One",
		"The *first* paragraph\nwraps here.",
		"## Part Two",
		"item one",
		"item two",
		"quoted line",
	}, "\n\n")
	assert.Equal(t, want, text)
}

func TestExtractFB2(t *testing.T) {
	t.Parallel()

	src := `<?xml version="1.0" encoding="utf-8"?>
<FictionBook xmlns="http://www.gribuser.ru/xml/fictionbook/2.0">
  <description><title-info><book-title>Ignored Title</book-title></title-info></description>
  <body>
    <title><p>Chapter 1</p></title>
    <section>
      <p>First paragraph.</p>
      <p>Second <emphasis>paragraph</emphasis>.</p>
    </section>
  </body>
  <binary id="cover.jpg" content-type="image/jpeg">AAAA</binary>
</FictionBook>`
	path := writeFile(t, "book.fb2", src)

	text, err := NewRegistry(1).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Chapter 1\n\nFirst paragraph.\n\nSecond paragraph.", text)
	assert.NotContains(t, text, "Ignored Title")
	assert.NotContains(t, text, "AAAA")
}

func TestExtractFB2LegacyEncoding(t *testing.T) {
	t.Parallel()

	// "Привет" in windows-1251.
	body := []byte{0xcf, 0xf0, 0xe8, 0xe2, 0xe5, 0xf2}
	src := `<?xml version="1.0" encoding="windows-1251"?><FictionBook><body><p>` + string(body) + `</p></body></FictionBook>`

	text, err := fb2Text(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "Привет", text)
}

func TestHTMLText(t *testing.T) {
	t.Parallel()

	src := `<html><head><title>Skip</title><style>p{}</style></head>
<body><h1>Chapter   One</h1><p>First line<br/>second line</p><script>var x;</script><div>Closing <b>bold</b> words</div></body></html>`

	text, err := htmlText(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "Chapter One\n\nFirst line\nsecond line\n\nClosing bold words", normalize(text))
}

func TestCustomExtractor(t *testing.T) {
	t.Parallel()

	r := NewRegistry(1)
	r.Register(".CSV", ExtractorFunc(func(context.Context, string) (string, error) {
		return "a,b,c", nil
	}))

	text, err := r.Extract(context.Background(), "/data/table.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b,c", text)
}
