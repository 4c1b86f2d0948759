package mcp

import (
	"context"

	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driving"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	resp     *domain.QueryResponse
	err      error
	gotReq   domain.QueryRequest
	gotSpace string
	calls    int
}

func (m *mockQueryService) Query(_ context.Context, spaceID string, req domain.QueryRequest) (*domain.QueryResponse, error) {
	m.calls++
	m.gotSpace = spaceID
	m.gotReq = req
	if m.err != nil {
		return nil, m.err
	}
	if m.resp == nil {
		return &domain.QueryResponse{Query: req}, nil
	}
	return m.resp, nil
}

// mockGenerationService is a mock implementation of driving.GenerationService.
type mockGenerationService struct {
	answer *driving.ChatAnswer
	err    error
	gotReq driving.ChatRequest
}

func (m *mockGenerationService) Summarize(context.Context, string, driving.SummarizeRequest) (*driving.CreatedArtifact, error) {
	return nil, m.err
}

func (m *mockGenerationService) Synthesize(context.Context, string, driving.SynthesizeRequest) (*driving.CreatedArtifact, error) {
	return nil, m.err
}

func (m *mockGenerationService) Chat(_ context.Context, _ string, req driving.ChatRequest) (*driving.ChatAnswer, error) {
	m.gotReq = req
	return m.answer, m.err
}

func (m *mockGenerationService) BackfillContentDate(context.Context, string, string, string) (*driving.CreatedArtifact, error) {
	return nil, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	index *domain.ArtifactIndex
	err   error
}

func (m *mockIndexService) Find(context.Context, string) (string, bool, error) { return "", false, m.err }

func (m *mockIndexService) Read(context.Context, string, string) (*domain.ArtifactIndex, bool, error) {
	return m.index, m.index != nil, m.err
}

func (m *mockIndexService) Write(context.Context, string, string, *domain.ArtifactIndex) (string, error) {
	return "", m.err
}

func (m *mockIndexService) Rebuild(context.Context, string) (*driving.RebuildResult, error) {
	return &driving.RebuildResult{Index: m.index}, m.err
}

func (m *mockIndexService) Load(context.Context, string) (*driving.LoadResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &driving.LoadResult{Index: m.index, DocumentID: "idx"}, nil
}

func (m *mockIndexService) Record(context.Context, string, domain.ArtifactIndexEntry) error { return m.err }

func (m *mockIndexService) RebuildAndWrite(context.Context, string) (*driving.RebuildResult, error) {
	return &driving.RebuildResult{Index: m.index}, m.err
}

// mockAliasService is a mock implementation of driving.AliasService.
type mockAliasService struct {
	table *domain.EntityAliases
	err   error
}

func (m *mockAliasService) Load(context.Context, string) (*domain.EntityAliases, error) {
	return m.table, m.err
}

func (m *mockAliasService) Add(context.Context, string, []domain.AliasRow) (*driving.AddAliasesResult, error) {
	return nil, m.err
}

func (m *mockAliasService) Resolve(_ context.Context, _ string, e domain.Entity) (domain.Entity, error) {
	return e, m.err
}
