package rom

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

// installScript is the entry point expected inside every package
// archive.
const installScript = "install.sh"

// Installer retrieves a package archive, verifies it against the cache,
// extracts it, and runs its install script.
type Installer struct {
	cache  *Cache
	client *http.Client
	logger *zap.Logger
}

// NewInstaller creates an installer over the given cache. A nil client
// falls back to http.DefaultClient.
func NewInstaller(cache *Cache, client *http.Client, logger *zap.Logger) *Installer {
	if client == nil {
		client = http.DefaultClient
	}
	return &Installer{cache: cache, client: client, logger: logger}
}

// Install downloads the archive at url unless a verified copy is
// already cached, extracts it into a scratch directory, executes the
// bundled install script there, and returns the script's exit status.
func (i *Installer) Install(ctx context.Context, url string) (int, error) {
	archive, err := i.Fetch(ctx, url)
	if err != nil {
		return -1, err
	}

	dest, err := i.extract(archive)
	if err != nil {
		return -1, err
	}
	defer os.RemoveAll(dest)

	return i.runScript(ctx, dest)
}

// Fetch returns a local path to a verified copy of the archive at url,
// downloading it only on a cache miss or checksum mismatch.
func (i *Installer) Fetch(ctx context.Context, url string) (string, error) {
	entry, found, err := i.cache.Lookup(url)
	if err != nil {
		return "", err
	}
	if found {
		ok, err := i.cache.Verify(entry)
		if err != nil {
			return "", err
		}
		if ok {
			i.logger.Info("Using cached archive",
				zap.String("url", url),
				zap.String("file", entry.FileName))
			return i.cache.Path(entry), nil
		}
		i.logger.Warn("Cached archive failed verification, redownloading",
			zap.String("url", url))
		if err := i.cache.Remove(url); err != nil {
			return "", err
		}
	}
	return i.download(ctx, url)
}

// download streams the archive to the cache directory, hashing as it
// writes, and records the index entry.
func (i *Installer) download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download %s: status %s", url, resp.Status)
	}

	name, err := archiveName(url)
	if err != nil {
		return "", err
	}
	path := filepath.Join(i.cache.Dir(), name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create archive file: %w", err)
	}

	h := xxhash.New()
	if _, err := io.Copy(io.MultiWriter(f, h), resp.Body); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close archive: %w", err)
	}

	entry := Entry{FileName: name, Checksum: h.Sum64(), FetchedAt: time.Now()}
	if err := i.cache.Store(url, entry); err != nil {
		return "", err
	}

	i.logger.Info("Downloaded archive",
		zap.String("url", url),
		zap.String("file", name),
		zap.Uint64("checksum", entry.Checksum))
	return path, nil
}

// extract unpacks a tar.gz archive into a fresh scratch directory.
func (i *Installer) extract(archive string) (string, error) {
	f, err := os.Open(archive)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to read archive %s: %w", archive, err)
	}
	defer gz.Close()

	dest, err := os.MkdirTemp("", "nanoscope-rom-")
	if err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			os.RemoveAll(dest)
			return "", fmt.Errorf("failed to read archive %s: %w", archive, err)
		}

		if strings.Contains(hdr.Name, "..") {
			os.RemoveAll(dest)
			return "", fmt.Errorf("archive entry %q escapes the extraction root", hdr.Name)
		}
		target := filepath.Join(dest, hdr.Name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				os.RemoveAll(dest)
				return "", fmt.Errorf("failed to create directory %s: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				os.RemoveAll(dest)
				return "", fmt.Errorf("failed to create directory for %s: %w", hdr.Name, err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				os.RemoveAll(dest)
				return "", fmt.Errorf("failed to create %s: %w", hdr.Name, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				os.RemoveAll(dest)
				return "", fmt.Errorf("failed to extract %s: %w", hdr.Name, err)
			}
			if err := out.Close(); err != nil {
				os.RemoveAll(dest)
				return "", fmt.Errorf("failed to close %s: %w", hdr.Name, err)
			}
		}
	}

	return dest, nil
}

// runScript executes the install script inside dir and returns its
// exit status.
func (i *Installer) runScript(ctx context.Context, dir string) (int, error) {
	script := filepath.Join(dir, installScript)
	if _, err := os.Stat(script); err != nil {
		return -1, fmt.Errorf("archive has no %s: %w", installScript, err)
	}

	cmd := exec.CommandContext(ctx, "/bin/sh", script)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	i.logger.Info("Running install script", zap.String("script", script))
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("failed to run install script: %w", err)
}

// archiveName derives a cache file name from the final URL path
// segment, suffixed with a random tag to avoid collisions between
// distinct URLs sharing a base name.
func archiveName(url string) (string, error) {
	base := url
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	if base == "" {
		return "", fmt.Errorf("cannot derive archive name from %q", url)
	}

	tag := make([]byte, 4)
	if _, err := rand.Read(tag); err != nil {
		return "", fmt.Errorf("failed to generate archive tag: %w", err)
	}
	return hex.EncodeToString(tag) + "-" + base, nil
}
