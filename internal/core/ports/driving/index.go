package driving

import (
	"context"

	"github.com/custodia-labs/distill/internal/core/domain"
)

// RebuildResult is the outcome of rebuilding an index from a store listing.
type RebuildResult struct {
	// Index is the rebuilt index.
	Index *domain.ArtifactIndex

	// Scanned is the number of listed documents examined.
	Scanned int

	// Partial is true when the scan cap was hit while more documents remained.
	Partial bool
}

// LoadResult is the outcome of loading (or lazily rebuilding) an index.
type LoadResult struct {
	Index      *domain.ArtifactIndex
	DocumentID string

	// Rebuilt is true when no readable index existed and one was built from a listing.
	Rebuilt bool

	// Partial mirrors RebuildResult.Partial when Rebuilt is true.
	Partial bool
}

// IndexService maintains the per-space artifact index.
type IndexService interface {
	// Find locates the index document of the space.
	Find(ctx context.Context, spaceID string) (string, bool, error)

	// Read fetches and decodes an index document. Unparseable payloads are
	// reported as absent.
	Read(ctx context.Context, spaceID, documentID string) (*domain.ArtifactIndex, bool, error)

	// Write creates or overwrites the index document and returns its id.
	Write(ctx context.Context, spaceID, existingID string, index *domain.ArtifactIndex) (string, error)

	// Rebuild builds an index from a bounded listing of the space.
	Rebuild(ctx context.Context, spaceID string) (*RebuildResult, error)

	// Load returns the space's index, rebuilding and writing it if absent.
	Load(ctx context.Context, spaceID string) (*LoadResult, error)

	// Record upserts an entry into the space's index and persists it.
	Record(ctx context.Context, spaceID string, entry domain.ArtifactIndexEntry) error

	// RebuildAndWrite rebuilds the index from a listing and persists it.
	RebuildAndWrite(ctx context.Context, spaceID string) (*RebuildResult, error)
}
