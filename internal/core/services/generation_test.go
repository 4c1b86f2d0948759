package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driven"
	"github.com/custodia-labs/distill/internal/core/ports/driving"
)

func TestGenerationService_NotConfigured(t *testing.T) {
	ts := newTestServices(nil)
	ctx := context.Background()

	_, err := ts.gen.Summarize(ctx, testSpace, driving.SummarizeRequest{Text: "x"})
	assert.True(t, domain.IsKind(err, domain.KindNotConfigured))
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)

	_, err = ts.gen.Synthesize(ctx, testSpace, driving.SynthesizeRequest{ArtifactIDs: []string{"a"}, Instruction: "x"})
	assert.True(t, domain.IsKind(err, domain.KindNotConfigured))

	_, err = ts.gen.Chat(ctx, testSpace, driving.ChatRequest{Question: "x"})
	assert.True(t, domain.IsKind(err, domain.KindNotConfigured))
}

func TestGenerationService_SummarizeWritesAndRecords(t *testing.T) {
	provider := &mockProvider{summarizeOut: &driven.SummarizeOutput{
		Summary:    "Acme agreed to renew.",
		Highlights: []string{"renewal"},
		Entities:   []domain.Entity{{Name: "ACME LTD UK", Type: "org"}, {Name: "Acme Ltd UK", Type: "org"}},
		OpenLoops:  []domain.OpenLoop{{Text: "send contract", Status: "OPEN", DueDateISO: "2024-06-01T09:00:00Z"}},
		Risks:      []domain.Risk{{Text: "price", Severity: "HIGH"}, {Text: "vague", Severity: "extreme"}},
	}}
	ts := newTestServices(provider)
	ctx := context.Background()
	_, err := ts.aliases.Add(ctx, testSpace, []domain.AliasRow{{Alias: "acme ltd uk", Canonical: "acme", DisplayName: "Acme"}})
	require.NoError(t, err)

	created, err := ts.gen.Summarize(ctx, testSpace, driving.SummarizeRequest{
		Title:          "Renewal call",
		Text:           "transcript...",
		ContentDateISO: "2024-05-20",
		Tags:           []string{"sales"},
	})
	require.NoError(t, err)

	a := created.Artifact
	assert.Equal(t, domain.KindSummary, a.Kind)
	assert.Equal(t, "Renewal call", a.Title)
	assert.Equal(t, "2024-05-20", a.ContentDateISO)
	assert.Equal(t, []domain.Entity{{Name: "Acme", Type: "org"}}, a.Entities)
	assert.Equal(t, domain.LoopOpen, a.OpenLoops[0].Status)
	assert.Equal(t, "2024-06-01", a.OpenLoops[0].DueDateISO)
	assert.Equal(t, domain.SeverityHigh, a.Risks[0].Severity)
	assert.Equal(t, domain.SeverityMedium, a.Risks[1].Severity)

	meta, err := ts.store.GetMetadata(ctx, created.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "renewal-call--"+a.ID+".summary.json", meta.Name)

	// Queryable immediately through the index, without a rebuild.
	resp, err := ts.query.Query(ctx, testSpace, domain.QueryRequest{Entity: "acme ltd uk", RiskSeverity: domain.SeverityHigh})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, a.ID, resp.Results[0].ArtifactID)
}

func TestGenerationService_SummarizeValidation(t *testing.T) {
	ts := newTestServices(&mockProvider{})
	ctx := context.Background()

	_, err := ts.gen.Summarize(ctx, testSpace, driving.SummarizeRequest{Text: "  "})
	assert.True(t, domain.IsKind(err, domain.KindInvalidRequest))

	_, err = ts.gen.Summarize(ctx, testSpace, driving.SummarizeRequest{Text: "x", ContentDateISO: "yesterday"})
	assert.True(t, domain.IsKind(err, domain.KindInvalidRequest))
}

func TestGenerationService_BadOutputNotRetried(t *testing.T) {
	provider := &mockProvider{err: domain.NewError(domain.KindBadOutput, "provider.summarize", "not JSON")}
	ts := newTestServices(provider)

	_, err := ts.gen.Summarize(context.Background(), testSpace, driving.SummarizeRequest{Text: "x"})

	assert.True(t, domain.IsKind(err, domain.KindBadOutput))
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, 0, ts.store.Len())
}

func TestGenerationService_ProviderOutageRetried(t *testing.T) {
	provider := &mockProvider{err: &driven.StatusError{Code: 503, Op: "anthropic.generate"}}
	ts := newTestServices(provider)

	_, err := ts.gen.Summarize(context.Background(), testSpace, driving.SummarizeRequest{Text: "x"})

	assert.True(t, domain.IsKind(err, domain.KindUpstreamError))
	assert.Equal(t, testPolicy().MaxAttempts, provider.calls)
}

func seedTwo(t *testing.T, ts *testServices) {
	t.Helper()
	a := seedArtifact(t, ts.store, &domain.Artifact{
		ID: "a", Kind: domain.KindSummary, Title: "Alpha", ContentDateISO: "2024-01-10",
		Participants: []string{"Ana"}, Entities: []domain.Entity{{Name: "acme"}},
	})
	b := seedArtifact(t, ts.store, &domain.Artifact{
		ID: "b", Kind: domain.KindSummary, Title: "Beta", ContentDateISO: "2024-02-10",
		Participants: []string{"ana", "Bo"},
		Risks:        []domain.Risk{{Text: "r", Severity: domain.SeverityHigh}},
	})
	seedIndex(t, ts.store, []domain.ArtifactIndexEntry{a, b})
}

func TestGenerationService_SynthesizeUnknownIDs(t *testing.T) {
	provider := &mockProvider{}
	ts := newTestServices(provider)
	seedTwo(t, ts)

	_, err := ts.gen.Synthesize(context.Background(), testSpace, driving.SynthesizeRequest{
		ArtifactIDs: []string{"a", "nope", "ghost"},
		Instruction: "compare",
	})

	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.KindInvalidRequest, de.Kind)
	assert.Equal(t, []string{"nope", "ghost"}, de.Details["unknownIds"])
	assert.Equal(t, 0, provider.calls)
}

func TestGenerationService_SynthesizeFiltersCitations(t *testing.T) {
	provider := &mockProvider{synthOut: &driven.SynthesizeOutput{
		Synthesis: "Both mention Acme.",
		Citations: []domain.Citation{
			{ArtifactID: "a", Excerpt: "alpha text"},
			{ArtifactID: "zzz", Excerpt: "invented"},
			{ArtifactID: "b", Excerpt: "ALPHA   text"},
			{ArtifactID: "b", Excerpt: "beta text"},
		},
	}}
	ts := newTestServices(provider)
	seedTwo(t, ts)
	ctx := context.Background()

	created, err := ts.gen.Synthesize(ctx, testSpace, driving.SynthesizeRequest{
		ArtifactIDs: []string{"a", "b", "a"},
		Instruction: "compare the two",
	})
	require.NoError(t, err)

	a := created.Artifact
	require.NotNil(t, a.Synthesis)
	assert.Equal(t, []string{"a", "b"}, a.Synthesis.SourceArtifactIDs)
	assert.Equal(t, []domain.Citation{
		{ArtifactID: "a", Excerpt: "alpha text"},
		{ArtifactID: "b", Excerpt: "beta text"},
	}, a.Synthesis.Citations)
	assert.Equal(t, "2024-02-10", a.ContentDateISO)
	assert.Equal(t, []string{"Ana", "Bo"}, a.Participants)
	assert.Equal(t, []domain.Entity{{Name: "acme"}}, a.Entities)
	assert.Equal(t, "Synthesis: compare the two", a.Title)
	assert.Len(t, provider.lastSynth.Context, 2)

	loaded, err := ts.index.Load(ctx, testSpace)
	require.NoError(t, err)
	entry, ok := loaded.Index.Lookup(a.ID)
	require.True(t, ok)
	assert.Equal(t, domain.KindSynthesis, entry.Kind)
}

func TestGenerationService_ChatWithExplicitIDs(t *testing.T) {
	provider := &mockProvider{chatOut: &driven.ChatOutput{
		Answer: "Alpha says so.",
		Citations: []domain.Citation{
			{ArtifactID: "a", Excerpt: "quote"},
			{ArtifactID: "b", Excerpt: "not supplied"},
		},
		UsedArtifactIDs: []string{"a", "b"},
	}}
	ts := newTestServices(provider)
	seedTwo(t, ts)
	docsBefore := ts.store.Len()

	ans, err := ts.gen.Chat(context.Background(), testSpace, driving.ChatRequest{
		Question:    "what did alpha say?",
		ArtifactIDs: []string{"a"},
		History:     []driven.ChatTurn{{Role: "user", Content: "hi"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "Alpha says so.", ans.Answer)
	assert.Equal(t, []domain.Citation{{ArtifactID: "a", Excerpt: "quote"}}, ans.Citations)
	assert.Equal(t, []string{"a"}, ans.UsedArtifactIDs)
	assert.Len(t, provider.lastChat.History, 1)
	assert.Equal(t, docsBefore, ts.store.Len())
}

func TestGenerationService_ChatWithFilter(t *testing.T) {
	provider := &mockProvider{chatOut: &driven.ChatOutput{
		Answer:    "Beta has a high risk.",
		Citations: []domain.Citation{{ArtifactID: "b", Excerpt: "r"}},
	}}
	ts := newTestServices(provider)
	seedTwo(t, ts)

	ans, err := ts.gen.Chat(context.Background(), testSpace, driving.ChatRequest{
		Question: "any risks?",
		Filter:   &domain.QueryRequest{RiskSeverity: domain.SeverityHigh},
	})

	require.NoError(t, err)
	require.Len(t, provider.lastChat.Context, 1)
	assert.Equal(t, "b", provider.lastChat.Context[0].ID)
	assert.Contains(t, provider.lastChat.Context[0].Text, "Risk [high]")
	assert.Equal(t, []string{"b"}, ans.UsedArtifactIDs)
}

func TestGenerationService_BackfillContentDate(t *testing.T) {
	ts := newTestServices(nil)
	seedTwo(t, ts)
	ctx := context.Background()
	ts.gen.now = func() time.Time { return time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC) }

	res, err := ts.gen.BackfillContentDate(ctx, testSpace, "a", "2023-11-05T15:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, "2023-11-05", res.Artifact.ContentDateISO)

	body, err := ts.store.GetContent(ctx, res.DocumentID)
	require.NoError(t, err)
	stored, err := domain.DecodeArtifact(body)
	require.NoError(t, err)
	assert.Equal(t, "2023-11-05", stored.ContentDateISO)
	assert.Equal(t, "2024-07-01T00:00:00Z", stored.UpdatedAtISO)

	loaded, err := ts.index.Load(ctx, testSpace)
	require.NoError(t, err)
	entry, _ := loaded.Index.Lookup("a")
	assert.Equal(t, "2023-11-05", entry.ContentDateISO)

	_, err = ts.gen.BackfillContentDate(ctx, testSpace, "missing", "2024-01-01")
	assert.True(t, domain.IsKind(err, domain.KindInvalidRequest))
	_, err = ts.gen.BackfillContentDate(ctx, testSpace, "a", "soon")
	assert.True(t, domain.IsKind(err, domain.KindInvalidRequest))
}
