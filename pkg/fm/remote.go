package fm

import (
	"context"
	"fmt"
	"strings"

	"github.com/logandonley/typecore/internal/logger"
)

// DefaultSyncLimit is used when a sync is requested without a limit.
const DefaultSyncLimit = 100

// SyncResult tallies a directory sync.
type SyncResult struct {
	Directory string
	Listed    int // entries considered after truncation
	Inserted  int // new catalog records
	Existing  int // entries whose identity was already cataloged
	Skipped   int // entries without a downloadable variant
}

// Syncer merges a remote directory listing into the catalog.
type Syncer struct {
	catalog Catalog
	log     logger.Logger
}

func NewSyncer(catalog Catalog, log logger.Logger) *Syncer {
	if log == nil {
		log = logger.Nop()
	}
	return &Syncer{catalog: catalog, log: log.Named("sync")}
}

// Sync inserts up to limit entries of dir as remote records in one catalog
// batch. A listing failure or a catalog failure aborts the sync.
func (s *Syncer) Sync(ctx context.Context, dir Directory, limit int) (SyncResult, error) {
	if limit <= 0 {
		limit = DefaultSyncLimit
	}
	result := SyncResult{Directory: dir.Name()}

	s.log.Info("starting sync", logger.Directory(dir.Name()), logger.Int("limit", limit))
	entries, err := dir.List(ctx, limit)
	if err != nil {
		s.log.Error("sync failed", logger.Directory(dir.Name()), logger.Error(err))
		return result, err
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	result.Listed = len(entries)

	recs := make([]FontRecord, 0, len(entries))
	for _, entry := range entries {
		remoteURL, ok := SelectFileURL(entry.Files)
		if !ok || entry.Family == "" {
			s.log.Warn("no file URL for font", logger.Family(entry.Family))
			result.Skipped++
			continue
		}

		recs = append(recs, FontRecord{
			Identity:       RemoteIdentity(dir.Name(), entry.Family),
			Family:         entry.Family,
			Subfamily:      defaultSubfamily,
			FullName:       entry.Family,
			PostscriptName: strings.Join(strings.Fields(entry.Family), ""),
			Source:         SourceRemote,
			RemoteURL:      remoteURL,
		})
	}

	inserted, err := s.catalog.InsertMany(ctx, recs)
	if err != nil {
		s.log.Error("sync aborted", logger.Directory(dir.Name()), logger.Error(err))
		return result, fmt.Errorf("storing %s fonts: %w", dir.Name(), err)
	}
	for _, ok := range inserted {
		if ok {
			result.Inserted++
		} else {
			result.Existing++
		}
	}

	s.log.Info("sync finished",
		logger.Directory(dir.Name()),
		logger.Int("inserted", result.Inserted),
		logger.Int("existing", result.Existing),
		logger.Int("skipped", result.Skipped))
	return result, nil
}
