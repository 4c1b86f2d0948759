package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/distill/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driven"
	"github.com/custodia-labs/distill/internal/resilience"
)

const testSpace = "space-1"

// countingStore records every GetContent call.
type countingStore struct {
	*memory.ObjectStore

	mu    sync.Mutex
	reads []string
}

func newCountingStore() *countingStore {
	return &countingStore{ObjectStore: memory.NewObjectStore()}
}

func (c *countingStore) GetContent(ctx context.Context, id string) ([]byte, error) {
	c.mu.Lock()
	c.reads = append(c.reads, id)
	c.mu.Unlock()
	return c.ObjectStore.GetContent(ctx, id)
}

// readsOf counts reads of ids in docs.
func (c *countingStore) readsOf(docs map[string]bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, id := range c.reads {
		if docs[id] {
			n++
		}
	}
	return n
}

func (c *countingStore) resetReads() {
	c.mu.Lock()
	c.reads = nil
	c.mu.Unlock()
}

func boolPtr(b bool) *bool { return &b }

// seedArtifact writes an artifact document and returns its index entry.
func seedArtifact(t *testing.T, store driven.ObjectStore, a *domain.Artifact) domain.ArtifactIndexEntry {
	t.Helper()
	if a.Kind == domain.KindSummary && a.Summary == nil {
		a.Summary = &domain.SummaryBody{Summary: "summary of " + a.Title}
	}
	if a.Kind == domain.KindSynthesis && a.Synthesis == nil {
		a.Synthesis = &domain.SynthesisBody{Synthesis: "synthesis of " + a.Title}
	}
	body, err := domain.EncodeArtifact(a)
	require.NoError(t, err)
	docID, err := store.Create(context.Background(), artifactDocumentName(a), testSpace, driven.MimeJSON, body)
	require.NoError(t, err)
	return a.IndexEntry(docID)
}

// seedIndex writes an index document holding entries.
func seedIndex(t *testing.T, store driven.ObjectStore, entries []domain.ArtifactIndexEntry) string {
	t.Helper()
	idx := domain.NewArtifactIndex(testSpace, time.Now())
	idx.Artifacts = entries
	body, err := domain.EncodeIndex(idx)
	require.NoError(t, err)
	id, err := store.Create(context.Background(), domain.IndexDocumentName, testSpace, driven.MimeJSON, body)
	require.NoError(t, err)
	return id
}

// mockProvider implements driven.GenerationProvider for testing.
type mockProvider struct {
	summarizeOut *driven.SummarizeOutput
	synthOut     *driven.SynthesizeOutput
	chatOut      *driven.ChatOutput
	err          error

	calls     int
	lastSynth driven.SynthesizeInput
	lastChat  driven.ChatInput
}

func (m *mockProvider) Summarize(_ context.Context, _ driven.SummarizeInput) (*driven.SummarizeOutput, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.summarizeOut, nil
}

func (m *mockProvider) Synthesize(_ context.Context, in driven.SynthesizeInput) (*driven.SynthesizeOutput, error) {
	m.calls++
	m.lastSynth = in
	if m.err != nil {
		return nil, m.err
	}
	return m.synthOut, nil
}

func (m *mockProvider) Chat(_ context.Context, in driven.ChatInput) (*driven.ChatOutput, error) {
	m.calls++
	m.lastChat = in
	if m.err != nil {
		return nil, m.err
	}
	return m.chatOut, nil
}

func (m *mockProvider) ModelName() string {
	return "mock-model"
}

func testPolicy() resilience.Policy {
	return resilience.Policy{Timeout: time.Second, MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

// testServices wires the core services over one store.
type testServices struct {
	store   *countingStore
	index   *IndexService
	aliases *AliasService
	query   *QueryService
	gen     *GenerationService
}

func newTestServices(provider driven.GenerationProvider) *testServices {
	store := newCountingStore()
	index := NewIndexService(store)
	aliases := NewAliasService(store)
	query := NewQueryService(store, index, aliases)
	gen := NewGenerationService(store, index, aliases, query, provider)
	gen.SetProviderPolicy(testPolicy())
	return &testServices{store: store, index: index, aliases: aliases, query: query, gen: gen}
}
