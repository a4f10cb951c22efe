package blob

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKey(t *testing.T) {
	t.Parallel()
	id := uuid.New()

	key := NewKey(id, "My Book.EPUB")
	assert.True(t, strings.HasPrefix(key, "uploads/"+id.String()+"/"))
	assert.True(t, strings.HasSuffix(key, ".epub"))
	assert.NotEqual(t, key, NewKey(id, "My Book.EPUB"))
}

func TestLocalStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	key := "uploads/item/doc.txt"
	require.NoError(t, s.Put(ctx, key, strings.NewReader("chapter one"), -1))

	rc, err := s.Open(ctx, key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "chapter one", string(body))

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Open(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	t.Parallel()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "..", "../etc/passwd", "/abs/path", "a/../../b"} {
		_, err := s.Path(key)
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

// streamStore is a Store without local paths.
type streamStore struct {
	data map[string]string
}

func (s *streamStore) Put(context.Context, string, io.Reader, int64) error {
	return errors.New("read only")
}

func (s *streamStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	v, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(strings.NewReader(v)), nil
}

func (s *streamStore) Delete(context.Context, string) error { return nil }

func TestLocalize(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("local store returns its own path", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		s, err := NewLocalStore(root)
		require.NoError(t, err)
		require.NoError(t, s.Put(ctx, "uploads/x/book.md", strings.NewReader("# Title"), 7))

		p, cleanup, err := Localize(ctx, s, "uploads/x/book.md")
		require.NoError(t, err)
		defer cleanup()
		assert.Equal(t, filepath.Join(root, "uploads", "x", "book.md"), p)

		_, _, err = Localize(ctx, s, "uploads/x/missing.md")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("streaming store copies to a temp file", func(t *testing.T) {
		t.Parallel()
		s := &streamStore{data: map[string]string{"uploads/y/book.fb2": "<FictionBook/>"}}

		p, cleanup, err := Localize(ctx, s, "uploads/y/book.fb2")
		require.NoError(t, err)
		assert.Equal(t, ".fb2", filepath.Ext(p))

		body, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, "<FictionBook/>", string(body))

		cleanup()
		_, err = os.Stat(p)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("missing blob", func(t *testing.T) {
		t.Parallel()
		_, _, err := Localize(ctx, &streamStore{}, "nope.txt")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestContentType(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "application/pdf", contentType("a/b.pdf"))
	assert.Equal(t, "application/octet-stream", contentType("a/b.unknownext"))
}
