package platform

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/logandonley/typecore/internal/logger"
)

// activationDirName is the folder inside the user font directory that holds
// the entries this program manages.
const activationDirName = "typecore"

var errNotRegistered = errors.New("font is not registered")

// userDirBridge activates fonts by placing them into a per-user font
// directory that the OS font service watches, then asking it to refresh.
type userDirBridge struct {
	name    string
	dir     string
	place   func(src, dst string) error
	refresh func() error
	log     logger.Logger
}

func (b *userDirBridge) Name() string { return b.name }

// entryPath maps a source file to its entry inside the managed directory.
// The digest keeps two files with the same base name apart.
func (b *userDirBridge) entryPath(path string) string {
	base := filepath.Base(path)
	return filepath.Join(b.dir, fmt.Sprintf("%016x-%s", xxhash.Sum64String(path), base))
}

func (b *userDirBridge) Register(path string) error {
	b.log.Info("activating font", logger.Path(path))

	if !filepath.IsAbs(path) {
		return &BridgeError{Op: opRegister, Path: path, Err: errors.New("path must be absolute")}
	}
	info, err := os.Stat(path)
	if err != nil {
		return &BridgeError{Op: opRegister, Path: path, Err: err}
	}
	if info.IsDir() {
		return &BridgeError{Op: opRegister, Path: path, Err: errors.New("path is a directory")}
	}

	entry := b.entryPath(path)
	if _, err := os.Lstat(entry); err == nil {
		b.log.Debug("font already present in activation directory", logger.String("entry", entry))
		return nil
	}

	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return &BridgeError{Op: opRegister, Path: path, Err: fmt.Errorf("creating activation directory: %w", err)}
	}
	if err := b.place(path, entry); err != nil {
		return &BridgeError{Op: opRegister, Path: path, Err: err}
	}
	if err := b.refresh(); err != nil {
		_ = os.Remove(entry)
		b.log.Error("failed to activate font", logger.Path(path), logger.Error(err))
		return &BridgeError{Op: opRegister, Path: path, Err: err}
	}

	b.log.Info("font activated", logger.Path(path))
	return nil
}

func (b *userDirBridge) Unregister(path string) error {
	b.log.Info("deactivating font", logger.Path(path))

	entry := b.entryPath(path)
	if _, err := os.Lstat(entry); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = errNotRegistered
		}
		return &BridgeError{Op: opUnregister, Path: path, Err: err}
	}
	if err := os.Remove(entry); err != nil {
		return &BridgeError{Op: opUnregister, Path: path, Err: err}
	}
	if err := b.refresh(); err != nil {
		// put the entry back so the OS and the directory stay in step
		if restoreErr := b.place(path, entry); restoreErr != nil {
			b.log.Warn("failed to restore activation entry", logger.String("entry", entry), logger.Error(restoreErr))
		}
		b.log.Error("failed to deactivate font", logger.Path(path), logger.Error(err))
		return &BridgeError{Op: opUnregister, Path: path, Err: err}
	}

	b.log.Info("font deactivated", logger.Path(path))
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening font file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating activation entry: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copying file contents: %w", err)
	}
	return out.Close()
}
