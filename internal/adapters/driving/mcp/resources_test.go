package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/distill/internal/core/domain"
)

func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleIndexResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns index JSON", func(t *testing.T) {
		index := domain.NewArtifactIndex("space-1", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
		index.Artifacts = append(index.Artifacts, domain.ArtifactIndexEntry{ID: "a1", Kind: domain.KindSummary, Title: "Call"})
		server, err := NewServer(&Ports{Query: &mockQueryService{}, Index: &mockIndexService{index: index}}, Config{SpaceID: "space-1"})
		require.NoError(t, err)

		result, err := server.handleIndexResource(ctx, makeReadResourceRequest("distill://index"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, `"id": "a1"`)
		assert.Contains(t, result.Contents[0].Text, `"ownerId": "space-1"`)
	})

	t.Run("returns error on load failure", func(t *testing.T) {
		server, err := NewServer(&Ports{Query: &mockQueryService{}, Index: &mockIndexService{err: errors.New("store down")}}, Config{})
		require.NoError(t, err)

		_, err = server.handleIndexResource(ctx, makeReadResourceRequest("distill://index"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "loading index")
	})
}

func TestServer_handleAliasesResource(t *testing.T) {
	table := &domain.EntityAliases{Version: 1, Aliases: []domain.AliasRow{{Alias: "ibm", Canonical: "acme", DisplayName: "Acme"}}}
	server, err := NewServer(&Ports{Query: &mockQueryService{}, Aliases: &mockAliasService{table: table}}, Config{})
	require.NoError(t, err)

	result, err := server.handleAliasesResource(context.Background(), makeReadResourceRequest("distill://aliases"))

	require.NoError(t, err)
	assert.Contains(t, result.Contents[0].Text, `"alias": "ibm"`)
}
