package driving

import (
	"context"

	"github.com/custodia-labs/distill/internal/core/domain"
)

// QueryService runs structured queries over a space's artifacts.
type QueryService interface {
	// Query filters and ranks artifacts under a bound on full-document reads.
	Query(ctx context.Context, spaceID string, req domain.QueryRequest) (*domain.QueryResponse, error)
}
