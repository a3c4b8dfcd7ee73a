package rom

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := OpenCache(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

// seed writes an archive file into the cache and indexes it.
func seed(t *testing.T, c *Cache, url, name string, contents []byte, fetchedAt time.Time) Entry {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(c.Dir(), name), contents, 0o644))
	entry := Entry{FileName: name, Checksum: xxhash.Sum64(contents), FetchedAt: fetchedAt}
	require.NoError(t, c.Store(url, entry))
	return entry
}

func TestCacheStoreAndLookup(t *testing.T) {
	c := newTestCache(t)
	fetched := time.Now().Truncate(time.Microsecond)
	want := seed(t, c, "https://example.com/rom.tar.gz", "rom.tar.gz", []byte("archive"), fetched)

	got, found, err := c.Lookup("https://example.com/rom.tar.gz")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want.FileName, got.FileName)
	assert.Equal(t, want.Checksum, got.Checksum)
	assert.True(t, got.FetchedAt.Equal(fetched), "fetch time should round-trip")
}

func TestCacheLookupMiss(t *testing.T) {
	c := newTestCache(t)
	_, found, err := c.Lookup("https://example.com/unknown")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheVerify(t *testing.T) {
	c := newTestCache(t)
	entry := seed(t, c, "u", "rom.tar.gz", []byte("archive"), time.Now())

	ok, err := c.Verify(entry)
	require.NoError(t, err)
	assert.True(t, ok)

	// Corrupt the archive; verification must fail.
	require.NoError(t, os.WriteFile(c.Path(entry), []byte("tampered"), 0o644))
	ok, err = c.Verify(entry)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheVerifyMissingFile(t *testing.T) {
	c := newTestCache(t)
	ok, err := c.Verify(Entry{FileName: "gone.tar.gz", Checksum: 1})
	require.NoError(t, err)
	assert.False(t, ok, "a missing archive is simply unverified, not an error")
}

func TestCacheRemove(t *testing.T) {
	c := newTestCache(t)
	entry := seed(t, c, "u", "rom.tar.gz", []byte("archive"), time.Now())

	require.NoError(t, c.Remove("u"))

	_, found, err := c.Lookup("u")
	require.NoError(t, err)
	assert.False(t, found)
	_, statErr := os.Stat(c.Path(entry))
	assert.True(t, os.IsNotExist(statErr), "the archive file should be deleted with the entry")
}

func TestCachePrune(t *testing.T) {
	c := newTestCache(t)
	seed(t, c, "old", "old.tar.gz", []byte("old"), time.Now().Add(-48*time.Hour))
	seed(t, c, "fresh", "fresh.tar.gz", []byte("fresh"), time.Now())

	removed, err := c.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, found, err := c.Lookup("old")
	require.NoError(t, err)
	assert.False(t, found, "the stale entry should be gone")

	_, found, err = c.Lookup("fresh")
	require.NoError(t, err)
	assert.True(t, found, "the fresh entry should survive")
}
