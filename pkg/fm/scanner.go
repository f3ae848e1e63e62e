package fm

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/logandonley/typecore/internal/logger"
)

// FileResult is the outcome of cataloging one discovered file.
type FileResult struct {
	Path   string
	Record FontRecord
	Err    error
}

// ScanResult tallies a scan. Per-item failures never abort the scan; they
// are collected here.
type ScanResult struct {
	Root      string
	Found     int          // candidate font files discovered
	Cataloged int          // files extracted and stored (new or already present)
	Inserted  int          // records that did not exist before
	Failures  []FileResult // extraction or catalog failures
	DirErrors []error      // unreadable directories that were skipped
}

// Failed is the number of files that could not be cataloged.
func (r ScanResult) Failed() int { return len(r.Failures) }

// Scanner discovers font files and feeds them into a catalog.
type Scanner struct {
	catalog Catalog
	extract func(path string) (Metadata, error)
	log     logger.Logger
}

func NewScanner(catalog Catalog, log logger.Logger) *Scanner {
	if log == nil {
		log = logger.Nop()
	}
	return &Scanner{
		catalog: catalog,
		extract: ExtractMetadata,
		log:     log.Named("scanner"),
	}
}

// ScanDirectory catalogs every .ttf/.otf file below root. The returned error
// is only set when root itself cannot be read; the result is always usable.
func (s *Scanner) ScanDirectory(ctx context.Context, root string) (ScanResult, error) {
	result := ScanResult{Root: root}

	abs, err := filepath.Abs(root)
	if err != nil {
		return result, fmt.Errorf("resolving scan root: %w", err)
	}
	result.Root = abs

	info, err := os.Stat(abs)
	if err != nil {
		s.log.Error("cannot open scan root", logger.String("root", abs), logger.Error(err))
		return result, fmt.Errorf("opening scan root: %w", err)
	}
	if !info.IsDir() {
		return result, fmt.Errorf("scan root %s is not a directory", abs)
	}

	s.log.Info("scanning directory", logger.String("root", abs))
	files, dirErrs := s.FindFontFiles(abs)
	result.DirErrors = dirErrs
	s.log.Info("found font files", logger.Int("count", len(files)))

	s.fold(ctx, files, &result)
	return result, nil
}

// ScanFiles catalogs an explicit list of files, e.g. the system font list.
func (s *Scanner) ScanFiles(ctx context.Context, files []string) ScanResult {
	var result ScanResult
	candidates := make([]string, 0, len(files))
	for _, f := range files {
		if isFontFile(f) {
			candidates = append(candidates, f)
		}
	}
	s.fold(ctx, candidates, &result)
	return result
}

// FindFontFiles walks root recursively and returns the font files in it.
// Directories that cannot be read are logged and skipped.
func (s *Scanner) FindFontFiles(root string) ([]string, []error) {
	var (
		files []string
		errs  []error
	)

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.log.Warn("error reading directory", logger.Path(path), logger.Error(err))
			errs = append(errs, fmt.Errorf("reading %s: %w", path, err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !isFontFile(d.Name()) {
			return nil
		}
		files = append(files, path)
		return nil
	})

	return files, errs
}

// scanBatchSize bounds how many extracted records are committed per catalog
// write.
const scanBatchSize = 500

func (s *Scanner) fold(ctx context.Context, files []string, result *ScanResult) {
	result.Found += len(files)

	batch := make([]FileResult, 0, scanBatchSize)
	for _, path := range files {
		fr := s.extractFile(path)
		if fr.Err != nil {
			s.log.Warn("skipping font", logger.Path(path), logger.Error(fr.Err))
			result.Failures = append(result.Failures, fr)
			continue
		}
		batch = append(batch, fr)
		if len(batch) == scanBatchSize {
			s.store(ctx, batch, result)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		s.store(ctx, batch, result)
	}

	s.log.Info("scan finished",
		logger.Int("found", result.Found),
		logger.Int("cataloged", result.Cataloged),
		logger.Int("inserted", result.Inserted),
		logger.Int("failed", len(result.Failures)))
}

// store commits one batch. A failed write fails every file in the batch.
func (s *Scanner) store(ctx context.Context, batch []FileResult, result *ScanResult) {
	recs := make([]FontRecord, len(batch))
	for i, fr := range batch {
		recs[i] = fr.Record
	}

	inserted, err := s.catalog.InsertMany(ctx, recs)
	if err != nil {
		s.log.Error("storing fonts failed", logger.Int("count", len(batch)), logger.Error(err))
		for _, fr := range batch {
			fr.Err = fmt.Errorf("storing font: %w", err)
			result.Failures = append(result.Failures, fr)
		}
		return
	}
	for i := range batch {
		result.Cataloged++
		if inserted[i] {
			result.Inserted++
		}
	}
}

// extractFile builds the catalog record for path, validated for insertion.
func (s *Scanner) extractFile(path string) FileResult {
	fr := FileResult{Path: path}

	identity, err := LocalIdentity(path)
	if err != nil {
		fr.Err = err
		return fr
	}
	meta, err := s.extract(identity)
	if err != nil {
		fr.Err = err
		return fr
	}

	fr.Record = FontRecord{
		Identity:       identity,
		Family:         meta.Family,
		Subfamily:      meta.Subfamily,
		FullName:       meta.FullName,
		PostscriptName: meta.PostscriptName,
		Source:         SourceLocal,
	}
	if _, err := PrepareInsert(fr.Record); err != nil {
		fr.Err = err
		return fr
	}
	s.log.Debug("extracted font", logger.Family(meta.Family), logger.String("subfamily", meta.Subfamily))
	return fr
}

func isFontFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".ttf" || ext == ".otf"
}
