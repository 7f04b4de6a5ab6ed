package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/soundvault/soundvault/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIndex_RejectsRelativeDir(t *testing.T) {
	_, err := NewIndex("relative/cache")
	assert.Error(t, err)

	_, err = NewIndex("")
	assert.Error(t, err)
}

func TestNewIndex_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")

	index, err := NewIndex(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, index.Dir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestIndex_ExistsFollowsFilesystem(t *testing.T) {
	index, err := NewIndex(t.TempDir())
	require.NoError(t, err)

	ref := catalog.Reference("https://cdn.example.com/audio/a.mp3")

	cached, err := index.Exists(ref)
	require.NoError(t, err)
	assert.False(t, cached)

	require.NoError(t, os.WriteFile(index.LocalPath(ref), []byte("payload"), 0o644))

	cached, err = index.Exists(ref)
	require.NoError(t, err)
	assert.True(t, cached)

	// The filesystem is the source of truth: external deletion reads as a miss.
	require.NoError(t, os.Remove(index.LocalPath(ref)))

	cached, err = index.Exists(ref)
	require.NoError(t, err)
	assert.False(t, cached)
}

func TestIndex_ExistsIgnoresDirectories(t *testing.T) {
	index, err := NewIndex(t.TempDir())
	require.NoError(t, err)

	ref := catalog.Reference("https://cdn.example.com/audio/a.mp3")
	require.NoError(t, os.Mkdir(index.LocalPath(ref), 0o755))

	cached, err := index.Exists(ref)
	require.NoError(t, err)
	assert.False(t, cached, "a directory at the cache path is not a payload")
}

func TestIndex_ClearRemovesPayloadsKeepsTempFiles(t *testing.T) {
	index, err := NewIndex(t.TempDir())
	require.NoError(t, err)

	refs := []catalog.Reference{
		"https://cdn.example.com/audio/a.mp3",
		"https://cdn.example.com/audio/b.mp3",
	}

	for _, ref := range refs {
		require.NoError(t, os.WriteFile(index.LocalPath(ref), []byte("payload"), 0o644))
	}

	tmp, err := os.CreateTemp(index.Dir(), TempPattern)
	require.NoError(t, err)
	require.NoError(t, tmp.Close())

	require.NoError(t, index.Clear(context.Background()))

	for _, ref := range refs {
		cached, err := index.Exists(ref)
		require.NoError(t, err)
		assert.False(t, cached)
	}

	_, err = os.Stat(tmp.Name())
	assert.NoError(t, err, "in-flight temp files must survive a cache wipe")
}
