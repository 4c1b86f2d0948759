package mcp

import (
	"github.com/custodia-labs/distill/internal/core/ports/driving"
	"github.com/custodia-labs/distill/internal/resilience"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Query runs structured queries. Required.
	Query driving.QueryService

	// Generation answers questions; chat_artifacts is only offered when set.
	Generation driving.GenerationService

	// Index and Aliases back the read-only resources.
	Index   driving.IndexService
	Aliases driving.AliasService

	// Limiter gates every tool call. Nil disables limiting.
	Limiter *resilience.RateLimiter
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}
