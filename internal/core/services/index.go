package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driven"
	"github.com/custodia-labs/distill/internal/core/ports/driving"
	"github.com/custodia-labs/distill/internal/logger"
	"github.com/custodia-labs/distill/internal/resilience"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// Rebuild bounds.
const (
	rebuildPageSize = 100
	rebuildScanCap  = 500

	// maxIndexWriteAttempts bounds reload-and-reapply cycles when another
	// writer changed the index between our read and our write.
	maxIndexWriteAttempts = 3
)

// IndexService keeps the per-space artifact index in the backing store.
type IndexService struct {
	store    driven.ObjectStore
	now      func() time.Time
	scanCap  int
	pageSize int
}

// NewIndexService creates a new index service over store.
func NewIndexService(store driven.ObjectStore) *IndexService {
	return &IndexService{
		store:    store,
		now:      time.Now,
		scanCap:  rebuildScanCap,
		pageSize: rebuildPageSize,
	}
}

// Find locates the index document of the space.
func (s *IndexService) Find(ctx context.Context, spaceID string) (string, bool, error) {
	meta, found, err := findByName(ctx, s.store, spaceID, domain.IndexDocumentName)
	if err != nil || !found {
		return "", false, err
	}
	return meta.ID, true, nil
}

// Read fetches and decodes an index document. A missing or unparseable
// document is reported as absent rather than as an error.
func (s *IndexService) Read(ctx context.Context, spaceID, documentID string) (*domain.ArtifactIndex, bool, error) {
	idx, _, ok, err := s.read(ctx, spaceID, documentID)
	return idx, ok, err
}

func (s *IndexService) read(
	ctx context.Context, spaceID, documentID string,
) (*domain.ArtifactIndex, *driven.ObjectMetadata, bool, error) {
	body, meta, err := readInSpace(ctx, s.store, spaceID, documentID)
	if err != nil {
		if resilience.IsNotFound(err) {
			logger.Debug("Index document %s vanished", documentID)
			return nil, nil, false, nil
		}
		return nil, nil, false, err
	}

	idx, err := domain.DecodeIndex(body)
	if err != nil {
		logger.Warn("Ignoring unreadable index %s: %v", documentID, err)
		return nil, meta, false, nil
	}
	idx.IndexDocumentID = documentID
	return idx, meta, true, nil
}

// Write creates the index document, or overwrites it when existingID is set.
func (s *IndexService) Write(
	ctx context.Context, spaceID, existingID string, index *domain.ArtifactIndex,
) (string, error) {
	index.IndexDocumentID = existingID
	if index.OwnerID == "" {
		index.OwnerID = spaceID
	}
	body, err := domain.EncodeIndex(index)
	if err != nil {
		return "", fmt.Errorf("encode index: %w", err)
	}

	if existingID != "" {
		id, err := s.store.Update(ctx, existingID, body)
		if err != nil {
			return "", fmt.Errorf("update index: %w", err)
		}
		return id, nil
	}

	id, err := s.store.Create(ctx, domain.IndexDocumentName, spaceID, driven.MimeJSON, body)
	if err != nil {
		return "", fmt.Errorf("create index: %w", err)
	}
	index.IndexDocumentID = id
	logger.Debug("Created index document %s in space %s", id, spaceID)
	return id, nil
}

// Rebuild builds an index from a bounded listing of the space. Each listed
// artifact document is read and decoded so its entry carries entities and
// item counts; a document that cannot be read falls back to what its name
// and metadata reveal.
func (s *IndexService) Rebuild(ctx context.Context, spaceID string) (*driving.RebuildResult, error) {
	logger.Section("Index Rebuild")

	idx := domain.NewArtifactIndex(spaceID, s.now())
	res := &driving.RebuildResult{Index: idx}
	token := ""

scan:
	for {
		page, err := s.store.List(ctx, driven.ListQuery{ParentID: spaceID}, token, s.pageSize)
		if err != nil {
			return nil, fmt.Errorf("list space %s: %w", spaceID, err)
		}
		for i := range page.Items {
			if res.Scanned >= s.scanCap {
				res.Partial = true
				break scan
			}
			res.Scanned++
			entry, ok := entryFromListing(&page.Items[i])
			if !ok {
				continue
			}
			entry, err = s.hydrate(ctx, &page.Items[i], entry)
			if err != nil {
				return nil, err
			}
			idx.Upsert(entry, s.now())
		}
		if page.NextPageToken == "" {
			break
		}
		if res.Scanned >= s.scanCap {
			res.Partial = true
			break
		}
		token = page.NextPageToken
	}

	domain.SortByUpdated(idx.Artifacts)
	logger.Debug("Rebuilt index: %s", logger.KV("space", spaceID, "scanned", res.Scanned,
		"entries", len(idx.Artifacts), "partial", res.Partial))
	if res.Partial {
		logger.Warn("Index rebuild for %s stopped at the scan cap of %d documents", spaceID, s.scanCap)
	}
	return res, nil
}

func entryFromListing(item *driven.ObjectMetadata) (domain.ArtifactIndexEntry, bool) {
	if item.Trashed {
		return domain.ArtifactIndexEntry{}, false
	}
	c, ok := classifyDocumentName(item.Name)
	if !ok {
		return domain.ArtifactIndexEntry{}, false
	}
	id := c.id
	if id == "" {
		id = item.ID
	}
	return domain.ArtifactIndexEntry{
		ID:           id,
		DocumentID:   item.ID,
		Kind:         c.kind,
		Title:        c.title,
		UpdatedAtISO: domain.FormatTime(item.ModifiedTime),
		Tags:         []string{},
		Topics:       []string{},
		Participants: []string{},
		Entities:     []domain.Entity{},
	}, true
}

// hydrate replaces a listing-derived entry with one built from the decoded
// document. Per-document failures keep the listing entry.
func (s *IndexService) hydrate(
	ctx context.Context, item *driven.ObjectMetadata, entry domain.ArtifactIndexEntry,
) (domain.ArtifactIndexEntry, error) {
	if item.Size > maxDocumentBytes {
		logger.Warn("Indexing %s from its name only: %d bytes", item.Name, item.Size)
		return entry, nil
	}
	body, err := s.store.GetContent(ctx, item.ID)
	if err != nil {
		if ctx.Err() != nil {
			return entry, ctx.Err()
		}
		if isSkippable(err) {
			logger.Warn("Indexing %s from its name only: %v", item.Name, err)
			return entry, nil
		}
		return entry, fmt.Errorf("read %s: %w", item.Name, err)
	}
	art, err := domain.DecodeArtifact(body)
	if err != nil {
		logger.Debug("Indexing %s from its name only: %v", item.Name, err)
		return entry, nil
	}

	full := art.IndexEntry(item.ID)
	if full.ID == "" {
		full.ID = entry.ID
	}
	if full.Title == "" {
		full.Title = entry.Title
	}
	if full.UpdatedAtISO == "" {
		full.UpdatedAtISO = entry.UpdatedAtISO
	}
	return full, nil
}

// Load returns the space's index, rebuilding and persisting it when no
// readable index document exists.
func (s *IndexService) Load(ctx context.Context, spaceID string) (*driving.LoadResult, error) {
	docID, found, err := s.Find(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	if found {
		idx, ok, err := s.Read(ctx, spaceID, docID)
		if err != nil {
			return nil, err
		}
		if ok {
			return &driving.LoadResult{Index: idx, DocumentID: docID}, nil
		}
	}

	rebuilt, err := s.Rebuild(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	newID, err := s.Write(ctx, spaceID, docID, rebuilt.Index)
	if err != nil {
		return nil, err
	}
	return &driving.LoadResult{
		Index:      rebuilt.Index,
		DocumentID: newID,
		Rebuilt:    true,
		Partial:    rebuilt.Partial,
	}, nil
}

// Record upserts entry into the space's index and writes it back. Before
// overwriting, the document's modification time is compared with the one
// seen at read; on mismatch the index is reloaded and the upsert reapplied.
func (s *IndexService) Record(ctx context.Context, spaceID string, entry domain.ArtifactIndexEntry) error {
	for attempt := 1; attempt <= maxIndexWriteAttempts; attempt++ {
		idx, docID, seen, err := s.loadForWrite(ctx, spaceID)
		if err != nil {
			return err
		}
		idx.Upsert(entry, s.now())

		if docID != "" {
			meta, err := s.store.GetMetadata(ctx, docID)
			if err != nil && !resilience.IsNotFound(err) {
				return err
			}
			if err == nil && !meta.ModifiedTime.Equal(seen) {
				logger.Debug("Index %s changed under us, retrying: %s", docID, logger.KV("attempt", attempt))
				continue
			}
		}

		if _, err := s.Write(ctx, spaceID, docID, idx); err != nil {
			return err
		}
		logger.Debug("Recorded %s in index of %s", entry.ID, spaceID)
		return nil
	}

	e := domain.NewError(domain.KindUpstreamError, "index.record",
		fmt.Sprintf("index of space %s kept changing during write", spaceID))
	e.Err = domain.ErrConflict
	return e.WithDetail("artifactId", entry.ID)
}

// loadForWrite returns the current index with the modification time it
// was read at. When no readable index exists it rebuilds one in memory;
// the caller's write persists it.
func (s *IndexService) loadForWrite(
	ctx context.Context, spaceID string,
) (*domain.ArtifactIndex, string, time.Time, error) {
	docID, found, err := s.Find(ctx, spaceID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if found {
		idx, meta, ok, err := s.read(ctx, spaceID, docID)
		if err != nil {
			return nil, "", time.Time{}, err
		}
		if ok {
			return idx, docID, meta.ModifiedTime, nil
		}
		if meta != nil {
			// Unparseable document: overwrite it in place.
			rebuilt, err := s.Rebuild(ctx, spaceID)
			if err != nil {
				return nil, "", time.Time{}, err
			}
			return rebuilt.Index, docID, meta.ModifiedTime, nil
		}
		docID = ""
	}

	rebuilt, err := s.Rebuild(ctx, spaceID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return rebuilt.Index, docID, time.Time{}, nil
}

// RebuildAndWrite rebuilds the index from a listing and persists it over
// any existing index document. Entries the old index already knew keep
// their denormalized fields; entries whose documents are gone are dropped.
func (s *IndexService) RebuildAndWrite(ctx context.Context, spaceID string) (*driving.RebuildResult, error) {
	docID, found, err := s.Find(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	res, err := s.Rebuild(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	if found {
		old, ok, err := s.Read(ctx, spaceID, docID)
		if err != nil {
			return nil, err
		}
		if ok {
			mergeKnownEntries(res.Index, old)
		}
	}
	if _, err := s.Write(ctx, spaceID, docID, res.Index); err != nil {
		return nil, err
	}
	return res, nil
}

func mergeKnownEntries(rebuilt, old *domain.ArtifactIndex) {
	for i, e := range rebuilt.Artifacts {
		known, ok := old.Lookup(e.ID)
		if !ok {
			continue
		}
		known.DocumentID = e.DocumentID
		if known.UpdatedAtISO == "" {
			known.UpdatedAtISO = e.UpdatedAtISO
		}
		rebuilt.Artifacts[i] = known
	}
}
