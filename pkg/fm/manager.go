package fm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/flopp/go-findfont"
	"github.com/logandonley/typecore/internal/logger"
	"github.com/logandonley/typecore/internal/platform"
)

// Manager handles catalog and activation operations
type Manager interface {
	// ScanDirectory catalogs the font files below root
	ScanDirectory(ctx context.Context, root string) (ScanResult, error)

	// ScanSystem catalogs the fonts in the OS font directories
	ScanSystem(ctx context.Context) ScanResult

	// Sync merges a registered remote directory into the catalog
	Sync(ctx context.Context, directory string, limit int) (SyncResult, error)

	// SyncGoogleFonts merges the Google Fonts listing using apiKey
	SyncGoogleFonts(ctx context.Context, apiKey string, limit int) (SyncResult, error)

	// List returns all cataloged fonts
	List(ctx context.Context) ([]FontRecord, error)

	// Get returns one cataloged font
	Get(ctx context.Context, identity string) (FontRecord, error)

	// Toggle flips a font between active and inactive
	Toggle(ctx context.Context, identity string) (FontRecord, error)

	// Activate makes a font available to other applications
	Activate(ctx context.Context, identity string) (FontRecord, error)

	// Deactivate withdraws a font from other applications
	Deactivate(ctx context.Context, identity string) (FontRecord, error)

	// ActivateFromList activates every font named in a list file
	ActivateFromList(ctx context.Context, reader io.Reader) error

	// ClearCatalog deletes every catalog record
	ClearCatalog(ctx context.Context) error

	// ClearCache removes every materialized remote font
	ClearCache() error

	// RegisterDirectory adds a remote directory that Sync can use
	RegisterDirectory(dir Directory) error
}

// Options wires a DefaultManager.
type Options struct {
	Catalog    Catalog
	Bridge     platform.Bridge
	CacheDir   string
	HTTPClient *http.Client
	Logger     logger.Logger

	// GoogleOptions apply to directories built by SyncGoogleFonts
	GoogleOptions []GoogleFontsOption

	// SystemFonts lists OS font files; defaults to go-findfont
	SystemFonts func() []string
}

// DefaultManager provides the standard implementation
type DefaultManager struct {
	catalog   Catalog
	scanner   *Scanner
	syncer    *Syncer
	activator *Activator
	cache     *Cache
	client    *http.Client
	log       logger.Logger

	googleOpts  []GoogleFontsOption
	systemFonts func() []string

	mu          sync.RWMutex
	directories []Directory
}

var _ Manager = (*DefaultManager)(nil)

// NewManager creates a manager from opts. Catalog, Bridge and CacheDir are
// required.
func NewManager(opts Options) (*DefaultManager, error) {
	if opts.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if opts.Bridge == nil {
		return nil, errors.New("activation bridge is required")
	}
	if opts.CacheDir == "" {
		return nil, errors.New("cache directory is required")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	client := clientOrDefault(opts.HTTPClient)

	cache, err := NewCache(opts.CacheDir, client, log)
	if err != nil {
		return nil, fmt.Errorf("initializing cache: %w", err)
	}

	systemFonts := opts.SystemFonts
	if systemFonts == nil {
		systemFonts = findfont.List
	}

	return &DefaultManager{
		catalog:     opts.Catalog,
		scanner:     NewScanner(opts.Catalog, log),
		syncer:      NewSyncer(opts.Catalog, log),
		activator:   NewActivator(opts.Catalog, opts.Bridge, cache, log),
		cache:       cache,
		client:      client,
		log:         log,
		googleOpts:  append([]GoogleFontsOption{WithGoogleClient(client)}, opts.GoogleOptions...),
		systemFonts: systemFonts,
	}, nil
}

func (m *DefaultManager) ScanDirectory(ctx context.Context, root string) (ScanResult, error) {
	return m.scanner.ScanDirectory(ctx, root)
}

func (m *DefaultManager) ScanSystem(ctx context.Context) ScanResult {
	return m.scanner.ScanFiles(ctx, m.systemFonts())
}

func (m *DefaultManager) Sync(ctx context.Context, directory string, limit int) (SyncResult, error) {
	dir, err := m.directory(directory)
	if err != nil {
		return SyncResult{Directory: directory}, err
	}
	return m.syncer.Sync(ctx, dir, limit)
}

func (m *DefaultManager) SyncGoogleFonts(ctx context.Context, apiKey string, limit int) (SyncResult, error) {
	return m.syncer.Sync(ctx, NewGoogleFonts(apiKey, m.googleOpts...), limit)
}

func (m *DefaultManager) List(ctx context.Context) ([]FontRecord, error) {
	return m.catalog.ListAll(ctx)
}

func (m *DefaultManager) Get(ctx context.Context, identity string) (FontRecord, error) {
	return m.catalog.Get(ctx, identity)
}

func (m *DefaultManager) Toggle(ctx context.Context, identity string) (FontRecord, error) {
	return m.activator.Toggle(ctx, identity)
}

func (m *DefaultManager) Activate(ctx context.Context, identity string) (FontRecord, error) {
	return m.activator.Activate(ctx, identity)
}

func (m *DefaultManager) Deactivate(ctx context.Context, identity string) (FontRecord, error) {
	return m.activator.Deactivate(ctx, identity)
}

func (m *DefaultManager) ClearCatalog(ctx context.Context) error {
	if err := m.catalog.ClearAll(ctx); err != nil {
		return fmt.Errorf("clearing catalog: %w", err)
	}
	m.log.Info("catalog cleared")
	return nil
}

func (m *DefaultManager) ClearCache() error {
	return m.cache.Clear()
}

// CacheDir returns where remote fonts are materialized.
func (m *DefaultManager) CacheDir() string {
	return m.cache.Dir()
}

// RegisterDirectory adds a new remote directory
func (m *DefaultManager) RegisterDirectory(dir Directory) error {
	if dir == nil {
		return fmt.Errorf("cannot register nil directory")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.directories {
		if existing.Name() == dir.Name() {
			return fmt.Errorf("directory %q is already registered", dir.Name())
		}
	}
	m.directories = append(m.directories, dir)
	return nil
}

// Directories returns the names of the registered remote directories.
func (m *DefaultManager) Directories() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.directories))
	for _, d := range m.directories {
		names = append(names, d.Name())
	}
	return names
}

func (m *DefaultManager) directory(name string) (Directory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, d := range m.directories {
		if d.Name() == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDirectory, name)
}

// ParseFontSpec turns one line of an activation list into a catalog
// identity. Lines are either an identity (a path or "google://Roboto") or
// "Family@directory". Empty lines and comments yield "".
func ParseFontSpec(line string) (string, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", nil
	}

	if _, _, ok := ParseRemoteIdentity(line); ok {
		return line, nil
	}

	if family, directory, ok := strings.Cut(line, "@"); ok {
		family = strings.TrimSpace(family)
		directory = strings.TrimSpace(directory)
		if family == "" || directory == "" {
			return "", fmt.Errorf("invalid font spec %q", line)
		}
		return RemoteIdentity(directory, family), nil
	}

	return LocalIdentity(line)
}

// ActivateFromList activates every font named in reader, one per line
func (m *DefaultManager) ActivateFromList(ctx context.Context, reader io.Reader) error {
	scanner := bufio.NewScanner(reader)
	var errs []error

	for scanner.Scan() {
		identity, err := ParseFontSpec(scanner.Text())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if identity == "" {
			continue
		}

		if _, err := m.Activate(ctx, identity); err != nil {
			errs = append(errs, fmt.Errorf("failed to activate %s: %w", identity, err))
		}
	}

	if err := scanner.Err(); err != nil {
		errs = append(errs, fmt.Errorf("error reading list: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("encountered errors during activation: %w", errors.Join(errs...))
	}
	return nil
}
