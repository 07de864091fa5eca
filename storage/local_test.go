package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathForSanitizesFilename(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	path := store.PathFor(1000, "../../etc/passwd")
	assert.Equal(t, "passwd", filepath.Base(path))

	path = store.PathFor(1000, "..\\..\\windows\\report.pdf")
	assert.Equal(t, "report.pdf", filepath.Base(path))

	path = store.PathFor(1000, "")
	assert.Equal(t, "upload", filepath.Base(path))
}

func TestPrepareReplacesPreviousFile(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Prepare(1000))
	first := store.PathFor(1000, "v1.pdf")
	require.NoError(t, os.WriteFile(first, []byte("first"), 0o644))

	require.NoError(t, store.Prepare(1000))
	second := store.PathFor(1000, "v2.pdf")
	require.NoError(t, os.WriteFile(second, []byte("second version"), 0o644))

	ref, err := store.Retrieve(1000)
	require.NoError(t, err)
	assert.Equal(t, "v2.pdf", ref.Name)
	assert.Equal(t, int64(len("second version")), ref.Size)
}

func TestRetrieveMissing(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Retrieve(4242)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRemove(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Prepare(1000))
	require.NoError(t, os.WriteFile(store.PathFor(1000, "a.pdf"), []byte("x"), 0o644))

	require.NoError(t, store.Remove(1000))
	_, err = store.Retrieve(1000)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
