package fm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/logandonley/typecore/internal/logger"
)

const cachedFileSuffix = "-Regular.ttf"

// Cache materializes remote fonts onto local disk so the bridge can
// activate them. Entries are keyed by family name only and never
// revalidated.
type Cache struct {
	dir    string
	client *http.Client
	log    logger.Logger
}

func NewCache(dir string, client *http.Client, log logger.Logger) (*Cache, error) {
	if log == nil {
		log = logger.Nop()
	}
	c := &Cache{
		dir:    dir,
		client: clientOrDefault(client),
		log:    log.Named("cache"),
	}
	if err := c.ensureDir(); err != nil {
		return nil, err
	}
	return c, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// PathFor returns the cache location for family.
func (c *Cache) PathFor(family string) string {
	return filepath.Join(c.dir, sanitizeFontName(family)+cachedFileSuffix)
}

// Materialize returns the local path of the cached file for family,
// downloading remoteURL first if the file is not cached yet. A failed
// transfer leaves nothing behind in the cache.
func (c *Cache) Materialize(ctx context.Context, remoteURL, family string) (string, error) {
	localPath := c.PathFor(family)

	if _, err := os.Stat(localPath); err == nil {
		c.log.Debug("font already cached", logger.Path(localPath))
		return localPath, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("checking cache: %w", err)
	}

	c.log.Info("downloading font", logger.Family(family), logger.String("url", remoteURL))
	if err := c.ensureDir(); err != nil {
		return "", err
	}
	if err := c.download(ctx, remoteURL, localPath); err != nil {
		c.log.Error("download failed", logger.String("url", remoteURL), logger.Error(err))
		return "", err
	}

	c.log.Info("font cached", logger.Path(localPath))
	return localPath, nil
}

func (c *Cache) download(ctx context.Context, remoteURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, "GET", remoteURL, nil)
	if err != nil {
		return &DownloadError{URL: remoteURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return &DownloadError{URL: remoteURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &DownloadError{
			URL:    remoteURL,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status: %s", resp.Status),
		}
	}

	tmp, err := os.CreateTemp(c.dir, ".download-*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return &DownloadError{URL: remoteURL, Err: fmt.Errorf("reading body: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("moving cache file into place: %w", err)
	}
	return nil
}

// Clear removes every cached file.
func (c *Cache) Clear() error {
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("removing cache directory: %w", err)
	}
	if err := c.ensureDir(); err != nil {
		return err
	}
	c.log.Info("cache cleared")
	return nil
}

func (c *Cache) ensureDir() error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	return nil
}

// sanitizeFontName replaces every character outside [A-Za-z0-9] with '_'.
func sanitizeFontName(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, name)
}
