// Package rom handles retrieval of ROM and emulator packages: download
// into a local cache, integrity verification, extraction, and execution
// of the bundled install script.
package rom

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

const (
	indexFile      = "index.db"
	bucketArchives = "archives"
)

// Entry describes one cached archive in the index.
type Entry struct {
	// FileName is the archive's name inside the cache directory.
	FileName string

	// Checksum is the xxhash64 digest of the archive contents.
	Checksum uint64

	// FetchedAt is when the archive was downloaded.
	FetchedAt time.Time
}

// Cache is a directory of downloaded archives with a bolt index keyed
// by source URL.
type Cache struct {
	db     *bolt.DB
	dir    string
	logger *zap.Logger
}

// OpenCache opens (or creates) the cache rooted at dir.
func OpenCache(dir string, logger *zap.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bolt.Open(filepath.Join(dir, indexFile), 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache index: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketArchives))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create archives bucket: %w", err)
	}

	return &Cache{db: db, dir: dir, logger: logger}, nil
}

// Close releases the cache index.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Path returns the local path of a cached archive.
func (c *Cache) Path(e Entry) string {
	return filepath.Join(c.dir, e.FileName)
}

// Lookup returns the index entry for url, if any.
func (c *Cache) Lookup(url string) (Entry, bool, error) {
	var entry Entry
	found := false

	err := c.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(bucketArchives)).Get([]byte(url))
		if raw == nil {
			return nil
		}
		e, err := decodeEntry(raw)
		if err != nil {
			return fmt.Errorf("corrupt index entry for %s: %w", url, err)
		}
		entry = e
		found = true
		return nil
	})
	if err != nil {
		return Entry{}, false, err
	}
	return entry, found, nil
}

// Store records an index entry for url.
func (c *Cache) Store(url string, e Entry) error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketArchives)).Put([]byte(url), encodeEntry(e))
	})
	if err != nil {
		return fmt.Errorf("failed to store index entry for %s: %w", url, err)
	}
	return nil
}

// Remove drops the index entry for url and deletes the archive file.
func (c *Cache) Remove(url string) error {
	entry, found, err := c.Lookup(url)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	err = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketArchives)).Delete([]byte(url))
	})
	if err != nil {
		return fmt.Errorf("failed to delete index entry for %s: %w", url, err)
	}

	if err := os.Remove(c.Path(entry)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cached archive: %w", err)
	}
	return nil
}

// Verify reports whether the cached archive for the entry exists and
// matches its recorded checksum.
func (c *Cache) Verify(e Entry) (bool, error) {
	path := c.Path(e)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}
	sum, err := hashFile(path)
	if err != nil {
		return false, err
	}
	return sum == e.Checksum, nil
}

// Prune removes every entry fetched longer than ttl ago, along with
// its archive file. Returns the number of entries removed.
func (c *Cache) Prune(ttl time.Duration) (int, error) {
	cutoff := time.Now().Add(-ttl)

	var stale []string
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketArchives)).ForEach(func(k, v []byte) error {
			e, err := decodeEntry(v)
			if err != nil {
				c.logger.Warn("Skipping corrupt index entry",
					zap.String("url", string(k)),
					zap.Error(err))
				return nil
			}
			if e.FetchedAt.Before(cutoff) {
				stale = append(stale, string(k))
			}
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("failed to scan cache index: %w", err)
	}

	for _, url := range stale {
		if err := c.Remove(url); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}

// hashFile computes the xxhash64 digest of a file.
func hashFile(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return h.Sum64(), nil
}

// Index entry binary format:
// - Checksum (8 bytes, big endian)
// - FetchedAt Unix nanoseconds (8 bytes, big endian)
// - FileName (remaining bytes)

func encodeEntry(e Entry) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 16+len(e.FileName)))
	binary.Write(buf, binary.BigEndian, e.Checksum)
	binary.Write(buf, binary.BigEndian, e.FetchedAt.UnixNano())
	buf.WriteString(e.FileName)
	return buf.Bytes()
}

func decodeEntry(raw []byte) (Entry, error) {
	if len(raw) < 16 {
		return Entry{}, fmt.Errorf("entry too short: %d bytes", len(raw))
	}
	checksum := binary.BigEndian.Uint64(raw[:8])
	fetched := int64(binary.BigEndian.Uint64(raw[8:16]))
	return Entry{
		FileName:  string(raw[16:]),
		Checksum:  checksum,
		FetchedAt: time.Unix(0, fetched),
	}, nil
}
