package fm

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Source tells which component owns the lifecycle of a record.
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

const (
	defaultFamily    = "Unknown"
	defaultSubfamily = "Regular"

	// identitySeparator splits a remote identity into directory and family.
	// Absolute filesystem paths never contain it.
	identitySeparator = "://"
)

// FontRecord is one catalog row.
type FontRecord struct {
	Identity       string `json:"identity" yaml:"identity"`
	Family         string `json:"family" yaml:"family"`
	Subfamily      string `json:"subfamily" yaml:"subfamily"`
	FullName       string `json:"fullName" yaml:"full_name"`
	PostscriptName string `json:"postscriptName" yaml:"postscript_name"`
	Activated      bool   `json:"activated" yaml:"activated"`
	Source         Source `json:"source" yaml:"source"`
	RemoteURL      string `json:"remoteUrl,omitempty" yaml:"remote_url,omitempty"`
}

// IsRemote reports whether the record must be materialized before activation.
func (r FontRecord) IsRemote() bool {
	return r.Source == SourceRemote
}

// Validate checks the invariants every stored record must hold.
func (r FontRecord) Validate() error {
	if r.Identity == "" {
		return errors.New("identity is required")
	}
	switch r.Source {
	case SourceLocal:
		if r.RemoteURL != "" {
			return fmt.Errorf("local font %q must not carry a remote URL", r.Identity)
		}
		if _, _, ok := ParseRemoteIdentity(r.Identity); ok {
			return fmt.Errorf("local font %q uses a remote identity", r.Identity)
		}
	case SourceRemote:
		if r.RemoteURL == "" {
			return fmt.Errorf("remote font %q has no remote URL", r.Identity)
		}
		if _, _, ok := ParseRemoteIdentity(r.Identity); !ok {
			return fmt.Errorf("remote font %q does not use a remote identity", r.Identity)
		}
	default:
		return fmt.Errorf("unknown source %q", r.Source)
	}
	return nil
}

// withDefaults fills in the fallback naming fields.
func (r FontRecord) withDefaults() FontRecord {
	if r.Family == "" {
		r.Family = defaultFamily
	}
	if r.Subfamily == "" {
		r.Subfamily = defaultSubfamily
	}
	return r
}

// LocalIdentity returns the identity of a local font file: its absolute path.
func LocalIdentity(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}
	return abs, nil
}

// RemoteIdentity returns the virtual identity of a family served by a
// remote directory, e.g. "google://Roboto".
func RemoteIdentity(directory, family string) string {
	return directory + identitySeparator + family
}

// ParseRemoteIdentity splits a virtual identity. ok is false for local paths.
func ParseRemoteIdentity(identity string) (directory, family string, ok bool) {
	directory, family, ok = strings.Cut(identity, identitySeparator)
	if !ok || directory == "" || family == "" {
		return "", "", false
	}
	return directory, family, true
}

// SortRecords orders records by family, then subfamily. Identity breaks ties
// so listings are stable.
func SortRecords(records []FontRecord) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Family != b.Family {
			return a.Family < b.Family
		}
		if a.Subfamily != b.Subfamily {
			return a.Subfamily < b.Subfamily
		}
		return a.Identity < b.Identity
	})
}
