package fm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// VariantFile is one downloadable style of a family.
type VariantFile struct {
	Key string // weight/style key as the directory names it, e.g. "regular", "700italic"
	URL string
}

// DirectoryEntry is one family in a remote directory listing.
type DirectoryEntry struct {
	Family   string
	Category string
	Files    []VariantFile // directory order is preserved
}

// Directory is a remote font directory such as Google Fonts.
type Directory interface {
	// Name is the identity namespace of the directory, e.g. "google"
	Name() string

	// List returns up to limit entries in the directory's own order
	List(ctx context.Context, limit int) ([]DirectoryEntry, error)
}

// SelectFileURL picks the variant to catalog for an entry: "regular", then
// "400", then the first variant with a URL.
func SelectFileURL(files []VariantFile) (string, bool) {
	for _, preferred := range []string{"regular", "400"} {
		for _, f := range files {
			if f.Key == preferred && f.URL != "" {
				return f.URL, true
			}
		}
	}
	for _, f := range files {
		if f.URL != "" {
			return f.URL, true
		}
	}
	return "", false
}

// orderedFiles decodes a JSON object of key -> URL keeping key order.
type orderedFiles []VariantFile

func (o *orderedFiles) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("files: expected object, got %v", tok)
	}

	var files orderedFiles
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var url string
		if err := dec.Decode(&url); err != nil {
			return fmt.Errorf("files[%s]: %w", key, err)
		}
		files = append(files, VariantFile{Key: key, URL: url})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*o = files
	return nil
}

// Common HTTP client with reasonable defaults
var defaultClient = &http.Client{
	Timeout: 30 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	},
}

func clientOrDefault(c *http.Client) *http.Client {
	if c == nil {
		return defaultClient
	}
	return c
}
