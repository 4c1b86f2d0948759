package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/distill/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driven"
)

func createDocs(t *testing.T, store driven.ObjectStore, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("doc-%03d--id%03d.summary.json", i, i)
		_, err := store.Create(context.Background(), name, testSpace, driven.MimeJSON, []byte(`{}`))
		require.NoError(t, err)
	}
}

func TestIndexService_FindAndRead(t *testing.T) {
	store := memory.NewObjectStore()
	svc := NewIndexService(store)
	ctx := context.Background()

	_, found, err := svc.Find(ctx, testSpace)
	require.NoError(t, err)
	assert.False(t, found)

	docID := seedIndex(t, store, []domain.ArtifactIndexEntry{{ID: "a", Kind: domain.KindSummary, Title: "A"}})

	got, found, err := svc.Find(ctx, testSpace)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, docID, got)

	idx, ok, err := svc.Read(ctx, testSpace, docID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, docID, idx.IndexDocumentID)
	assert.Len(t, idx.Artifacts, 1)
}

func TestIndexService_ReadUnparseableIsAbsent(t *testing.T) {
	store := memory.NewObjectStore()
	svc := NewIndexService(store)
	id, err := store.Create(context.Background(), domain.IndexDocumentName, testSpace, driven.MimeJSON, []byte("not json"))
	require.NoError(t, err)

	idx, ok, err := svc.Read(context.Background(), testSpace, id)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, idx)
}

func TestIndexService_ReadOutsideSpace(t *testing.T) {
	store := memory.NewObjectStore()
	svc := NewIndexService(store)
	id, err := store.Create(context.Background(), domain.IndexDocumentName, "someone-else", driven.MimeJSON, []byte(`{"artifacts":[]}`))
	require.NoError(t, err)

	_, _, err = svc.Read(context.Background(), testSpace, id)

	assert.True(t, domain.IsKind(err, domain.KindInvalidRequest))
	assert.ErrorIs(t, err, domain.ErrOutsideSpace)
}

func TestIndexService_WriteCreatesThenUpdates(t *testing.T) {
	store := memory.NewObjectStore()
	svc := NewIndexService(store)
	ctx := context.Background()
	idx := domain.NewArtifactIndex(testSpace, svc.now())

	id, err := svc.Write(ctx, testSpace, "", idx)
	require.NoError(t, err)

	idx.Upsert(domain.ArtifactIndexEntry{ID: "a", Kind: domain.KindSummary}, svc.now())
	again, err := svc.Write(ctx, testSpace, id, idx)
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, 1, store.Len())

	read, ok, err := svc.Read(ctx, testSpace, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, read.Artifacts, 1)
}

func TestIndexService_Rebuild(t *testing.T) {
	store := memory.NewObjectStore()
	svc := NewIndexService(store)
	ctx := context.Background()

	_, _ = store.Create(ctx, "weekly--w1.summary.json", testSpace, driven.MimeJSON, nil)
	_, _ = store.Create(ctx, "review--r1.synthesis.json", testSpace, driven.MimeJSON, nil)
	legacy, _ := store.Create(ctx, "pick.selection.json", testSpace, driven.MimeJSON, nil)
	_, _ = store.Create(ctx, "notes.txt", testSpace, driven.MimeJSON, nil)
	_, _ = store.Create(ctx, "elsewhere--e1.summary.json", "other-space", driven.MimeJSON, nil)
	trashed, _ := store.Create(ctx, "gone--g1.summary.json", testSpace, driven.MimeJSON, nil)
	require.NoError(t, store.Trash(trashed))

	res, err := svc.Rebuild(ctx, testSpace)
	require.NoError(t, err)

	assert.False(t, res.Partial)
	assert.Equal(t, 4, res.Scanned)
	require.Len(t, res.Index.Artifacts, 3)

	byID := map[string]domain.ArtifactIndexEntry{}
	for _, e := range res.Index.Artifacts {
		byID[e.ID] = e
	}
	assert.Equal(t, domain.KindSummary, byID["w1"].Kind)
	assert.Equal(t, "weekly", byID["w1"].Title)
	assert.NotEmpty(t, byID["w1"].UpdatedAtISO)
	assert.Equal(t, domain.KindSynthesis, byID["r1"].Kind)
	assert.Equal(t, "review", byID["r1"].Title)
	// Legacy names carry no id; the document id stands in.
	assert.Equal(t, domain.KindSynthesis, byID[legacy].Kind)
	assert.Equal(t, legacy, byID[legacy].DocumentID)
}

func TestIndexService_RebuildPartialFlag(t *testing.T) {
	tests := []struct {
		name    string
		docs    int
		partial bool
		scanned int
	}{
		{"fewer than cap", 120, false, 120},
		{"exactly cap, no more pages", 500, false, 500},
		{"cap reached with more pages", 501, true, 500},
		{"well over cap", 650, true, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewObjectStore()
			createDocs(t, store, tt.docs)
			svc := NewIndexService(store)

			res, err := svc.Rebuild(context.Background(), testSpace)

			require.NoError(t, err)
			assert.Equal(t, tt.partial, res.Partial)
			assert.Equal(t, tt.scanned, res.Scanned)
			assert.Len(t, res.Index.Artifacts, tt.scanned)
		})
	}
}

func TestIndexService_RebuildPartialMidPage(t *testing.T) {
	store := memory.NewObjectStore()
	createDocs(t, store, 7)
	svc := NewIndexService(store)
	svc.scanCap = 5
	svc.pageSize = 3

	res, err := svc.Rebuild(context.Background(), testSpace)

	require.NoError(t, err)
	assert.True(t, res.Partial)
	assert.Equal(t, 5, res.Scanned)
}

func TestIndexService_LoadRebuildsAndPersists(t *testing.T) {
	store := memory.NewObjectStore()
	createDocs(t, store, 3)
	svc := NewIndexService(store)
	ctx := context.Background()

	first, err := svc.Load(ctx, testSpace)
	require.NoError(t, err)
	assert.True(t, first.Rebuilt)
	assert.NotEmpty(t, first.DocumentID)
	assert.Len(t, first.Index.Artifacts, 3)

	second, err := svc.Load(ctx, testSpace)
	require.NoError(t, err)
	assert.False(t, second.Rebuilt)
	assert.Equal(t, first.DocumentID, second.DocumentID)
	assert.Len(t, second.Index.Artifacts, 3)
}

func TestIndexService_LoadOverwritesUnparseableIndex(t *testing.T) {
	store := memory.NewObjectStore()
	createDocs(t, store, 2)
	bad, err := store.Create(context.Background(), domain.IndexDocumentName, testSpace, driven.MimeJSON, []byte("{"))
	require.NoError(t, err)
	svc := NewIndexService(store)

	res, err := svc.Load(context.Background(), testSpace)

	require.NoError(t, err)
	assert.True(t, res.Rebuilt)
	assert.Equal(t, bad, res.DocumentID)
	assert.Len(t, res.Index.Artifacts, 2)
}

func TestIndexService_RecordUpserts(t *testing.T) {
	store := memory.NewObjectStore()
	svc := NewIndexService(store)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, testSpace, domain.ArtifactIndexEntry{ID: "a", Kind: domain.KindSummary, Title: "v1"}))
	require.NoError(t, svc.Record(ctx, testSpace, domain.ArtifactIndexEntry{ID: "b", Kind: domain.KindSummary, Title: "b"}))
	require.NoError(t, svc.Record(ctx, testSpace, domain.ArtifactIndexEntry{ID: "a", Kind: domain.KindSummary, Title: "v2"}))

	res, err := svc.Load(ctx, testSpace)
	require.NoError(t, err)
	require.Len(t, res.Index.Artifacts, 2)
	a, ok := res.Index.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "v2", a.Title)
}

// racingStore lets another writer touch the index right after each of our reads.
type racingStore struct {
	*memory.ObjectStore
	races int
	other func()
}

func (r *racingStore) GetContent(ctx context.Context, id string) ([]byte, error) {
	body, err := r.ObjectStore.GetContent(ctx, id)
	if err == nil && r.races > 0 {
		r.races--
		r.other()
	}
	return body, err
}

func TestIndexService_RecordReappliesAfterConcurrentWrite(t *testing.T) {
	inner := memory.NewObjectStore()
	store := &racingStore{ObjectStore: inner}
	svc := NewIndexService(store)
	rival := NewIndexService(inner)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, testSpace, domain.ArtifactIndexEntry{ID: "first", Kind: domain.KindSummary}))

	store.races = 1
	store.other = func() {
		require.NoError(t, rival.Record(ctx, testSpace, domain.ArtifactIndexEntry{ID: "rival", Kind: domain.KindSummary}))
	}
	require.NoError(t, svc.Record(ctx, testSpace, domain.ArtifactIndexEntry{ID: "mine", Kind: domain.KindSummary}))

	res, err := svc.Load(ctx, testSpace)
	require.NoError(t, err)
	for _, id := range []string{"first", "rival", "mine"} {
		_, ok := res.Index.Lookup(id)
		assert.True(t, ok, "entry %s lost", id)
	}
}

func TestIndexService_RecordGivesUpOnPersistentConflict(t *testing.T) {
	inner := memory.NewObjectStore()
	store := &racingStore{ObjectStore: inner}
	svc := NewIndexService(store)
	rival := NewIndexService(inner)
	ctx := context.Background()
	require.NoError(t, svc.Record(ctx, testSpace, domain.ArtifactIndexEntry{ID: "seed", Kind: domain.KindSummary}))

	n := 0
	store.races = 100
	store.other = func() {
		n++
		_ = rival.Record(ctx, testSpace, domain.ArtifactIndexEntry{ID: fmt.Sprintf("r%d", n), Kind: domain.KindSummary})
	}
	err := svc.Record(ctx, testSpace, domain.ArtifactIndexEntry{ID: "mine", Kind: domain.KindSummary})

	assert.True(t, domain.IsKind(err, domain.KindUpstreamError))
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestIndexService_RebuildAndWriteKeepsKnownEntries(t *testing.T) {
	store := memory.NewObjectStore()
	svc := NewIndexService(store)
	ctx := context.Background()

	rich := seedArtifact(t, store, &domain.Artifact{
		ID: "rich", Kind: domain.KindSummary, Title: "Rich",
		Entities: []domain.Entity{{Name: "acme"}},
		Risks:    []domain.Risk{{Text: "r", Severity: domain.SeverityHigh}},
	})
	require.NoError(t, svc.Record(ctx, testSpace, rich))
	_ = seedArtifact(t, store, &domain.Artifact{ID: "plain", Kind: domain.KindSummary, Title: "Plain"})

	res, err := svc.RebuildAndWrite(ctx, testSpace)
	require.NoError(t, err)

	got, ok := res.Index.Lookup("rich")
	require.True(t, ok)
	assert.Equal(t, 1, got.RisksCount)
	assert.Equal(t, []domain.Entity{{Name: "acme"}}, got.Entities)
	_, ok = res.Index.Lookup("plain")
	assert.True(t, ok)

	loaded, err := svc.Load(ctx, testSpace)
	require.NoError(t, err)
	assert.Len(t, loaded.Index.Artifacts, 2)
}

func TestIndexService_RebuildHydratesFromDocuments(t *testing.T) {
	store := memory.NewObjectStore()
	svc := NewIndexService(store)
	ctx := context.Background()

	want := seedArtifact(t, store, &domain.Artifact{
		ID: "a1", Kind: domain.KindSummary, Title: "Acme renewal", ContentDateISO: "2024-05-01",
		Tags:      []string{"renewal"},
		Entities:  []domain.Entity{{Name: "acme", Type: "org"}},
		OpenLoops: []domain.OpenLoop{{Text: "send quote", Status: domain.LoopOpen}},
		Risks:     []domain.Risk{{Text: "budget", Severity: domain.SeverityHigh}},
		Decisions: []domain.Decision{{Text: "keep tier"}},
	})
	_, err := store.Create(ctx, "broken--b1.summary.json", testSpace, driven.MimeJSON, []byte("{"))
	require.NoError(t, err)

	res, err := svc.Rebuild(ctx, testSpace)
	require.NoError(t, err)
	require.Len(t, res.Index.Artifacts, 2)

	got, ok := res.Index.Lookup("a1")
	require.True(t, ok)
	assert.Equal(t, want.DocumentID, got.DocumentID)
	assert.Equal(t, "2024-05-01", got.ContentDateISO)
	assert.Equal(t, []domain.Entity{{Name: "acme", Type: "org"}}, got.Entities)
	assert.Equal(t, []string{"renewal"}, got.Tags)
	assert.Equal(t, 1, got.OpenLoopsCount)
	assert.Equal(t, 1, got.RisksCount)
	assert.Equal(t, 1, got.DecisionsCount)

	// Unreadable documents are still listed from their names.
	broken, ok := res.Index.Lookup("b1")
	require.True(t, ok)
	assert.Equal(t, "broken", broken.Title)
	assert.Zero(t, broken.RisksCount)
}
