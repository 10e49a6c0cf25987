package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStoreSetAndGet(t *testing.T) {
	tempDir := t.TempDir()
	store := NewDiskStore(tempDir, nil)

	testData := []byte("test response data")
	require.NoError(t, store.Set("abc.data", testData))

	// Verify file exists at the correct location
	_, err := os.Stat(filepath.Join(tempDir, "abc.data"))
	require.NoError(t, err)

	data, err := store.Get("abc.data")
	require.NoError(t, err)
	assert.Equal(t, testData, data)

	// No temporary files are left behind
	matches, err := filepath.Glob(filepath.Join(tempDir, ".tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestDiskStoreOverwrite(t *testing.T) {
	store := NewDiskStore(t.TempDir(), nil)

	require.NoError(t, store.Set("key", []byte("first")))
	require.NoError(t, store.Set("key", []byte("second")))

	data, err := store.Get("key")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestDiskStoreGetMissing(t *testing.T) {
	store := NewDiskStore(t.TempDir(), nil)

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiskStoreRemove(t *testing.T) {
	store := NewDiskStore(t.TempDir(), nil)

	require.NoError(t, store.Set("gone", []byte("x")))
	require.NoError(t, store.Remove("gone"))
	require.NoError(t, store.Remove("gone"), "removing twice is fine")

	_, err := store.Get("gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiskStoreRejectsPathKeys(t *testing.T) {
	store := NewDiskStore(t.TempDir(), nil)

	for _, key := range []string{"", ".", "..", "../escape", "sub/key"} {
		assert.Error(t, store.Set(key, []byte("x")), "key %q", key)
		_, err := store.Get(key)
		assert.Error(t, err, "key %q", key)
	}
}

func TestDiskStoreInit(t *testing.T) {
	tempDir := t.TempDir()
	cacheDir := filepath.Join(tempDir, "new", "cache", "dir")

	store := NewDiskStore(cacheDir, nil)
	require.NoError(t, store.Init())

	info, err := os.Stat(cacheDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, cacheDir, store.Dir())
}
