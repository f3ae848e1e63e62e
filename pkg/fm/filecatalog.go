package fm

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const catalogFileVersion = 1

type catalogFile struct {
	Version int          `yaml:"version"`
	Fonts   []FontRecord `yaml:"fonts"`
}

// OpenFileCatalog loads (or creates) a catalog stored as a YAML document.
// The file is rewritten atomically after every mutation.
func OpenFileCatalog(path string) (*MemoryCatalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	c := NewMemoryCatalog()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading catalog file: %w", err)
	default:
		var doc catalogFile
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing catalog file: %w", err)
		}
		if doc.Version > catalogFileVersion {
			return nil, fmt.Errorf("catalog file version %d is newer than supported version %d", doc.Version, catalogFileVersion)
		}
		for _, rec := range doc.Fonts {
			if err := rec.Validate(); err != nil {
				return nil, fmt.Errorf("catalog file %s: %w", path, err)
			}
			c.records[rec.Identity] = rec
		}
	}

	c.persist = func(records []FontRecord) error {
		return writeCatalogFile(path, records)
	}
	return c, nil
}

func writeCatalogFile(path string, records []FontRecord) error {
	data, err := yaml.Marshal(catalogFile{Version: catalogFileVersion, Fonts: records})
	if err != nil {
		return fmt.Errorf("marshaling catalog: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".catalog-*")
	if err != nil {
		return fmt.Errorf("creating temporary catalog file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing catalog: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
