package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for Distill resources.
	uriScheme = "distill://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Index != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "index",
			Name:        "artifact-index",
			Description: "Catalog of every artifact in the active space",
			MIMEType:    "application/json",
		}, s.handleIndexResource)
	}

	if s.ports.Aliases != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "aliases",
			Name:        "entity-aliases",
			Description: "Alias table used to canonicalise entity names",
			MIMEType:    "application/json",
		}, s.handleAliasesResource)
	}
}

// handleIndexResource returns the space's artifact index, rebuilding it if absent.
func (s *Server) handleIndexResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	loaded, err := s.ports.Index.Load(ctx, s.config().SpaceID)
	if err != nil {
		return nil, fmt.Errorf("loading index: %w", err)
	}
	return jsonResource(req.Params.URI, loaded.Index)
}

// handleAliasesResource returns the space's alias table.
func (s *Server) handleAliasesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	table, err := s.ports.Aliases.Load(ctx, s.config().SpaceID)
	if err != nil {
		return nil, fmt.Errorf("loading aliases: %w", err)
	}
	return jsonResource(req.Params.URI, table)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
