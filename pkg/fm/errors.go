package fm

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an identity is not in the catalog.
var ErrNotFound = errors.New("font not found in catalog")

// ErrUnknownDirectory is returned when a sync names a directory that was
// never registered.
var ErrUnknownDirectory = errors.New("remote directory not registered")

// ErrRemoteNotMaterialized is returned when a remote record must be
// activated but no cache is available to download it into.
var ErrRemoteNotMaterialized = errors.New("remote font has no local copy")

// ParseError reports a font binary that could not be read or understood.
// Batch operations skip the file and continue.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing font %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DirectoryError reports a failed remote directory listing.
type DirectoryError struct {
	Directory string
	Status    int // HTTP status, 0 when no response was received
	Err       error
}

func (e *DirectoryError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s directory: status %d: %v", e.Directory, e.Status, e.Err)
	}
	return fmt.Sprintf("%s directory: %v", e.Directory, e.Err)
}

func (e *DirectoryError) Unwrap() error { return e.Err }

// DownloadError reports a failed materialization transfer.
type DownloadError struct {
	URL    string
	Status int
	Err    error
}

func (e *DownloadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("downloading %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("downloading %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ActivationError wraps a bridge rejection for a catalog record. The
// record's activated flag was left untouched.
type ActivationError struct {
	Identity string
	Activate bool
	Err      error
}

func (e *ActivationError) Error() string {
	verb := "deactivating"
	if e.Activate {
		verb = "activating"
	}
	return fmt.Sprintf("%s %s: %v", verb, e.Identity, e.Err)
}

func (e *ActivationError) Unwrap() error { return e.Err }
