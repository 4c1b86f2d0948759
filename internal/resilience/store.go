package resilience

import (
	"context"

	"github.com/custodia-labs/distill/internal/core/ports/driven"
)

// Store decorates an ObjectStore so that every call is bounded by the
// policy's timeout and retry budget and fails with a *domain.Error.
type Store struct {
	inner  driven.ObjectStore
	policy Policy
}

// Verify interface compliance at compile time.
var _ driven.ObjectStore = (*Store)(nil)

// NewStore wraps inner with the given policy.
func NewStore(inner driven.ObjectStore, policy Policy) *Store {
	return &Store{inner: inner, policy: policy}
}

// Create stores a new object in a single attempt. Create is not
// idempotent; a retry after a lost response would duplicate the document.
func (s *Store) Create(ctx context.Context, name, parentID, mimeType string, body []byte) (string, error) {
	once := s.policy
	once.MaxAttempts = 1
	return Call(ctx, once, "store.create", func(ctx context.Context) (string, error) {
		return s.inner.Create(ctx, name, parentID, mimeType, body)
	})
}

// GetMetadata returns an object's metadata.
func (s *Store) GetMetadata(ctx context.Context, id string) (*driven.ObjectMetadata, error) {
	return Call(ctx, s.policy, "store.getMetadata", func(ctx context.Context) (*driven.ObjectMetadata, error) {
		return s.inner.GetMetadata(ctx, id)
	})
}

// GetContent returns an object's bytes.
func (s *Store) GetContent(ctx context.Context, id string) ([]byte, error) {
	return Call(ctx, s.policy, "store.getContent", func(ctx context.Context) ([]byte, error) {
		return s.inner.GetContent(ctx, id)
	})
}

// Update replaces an object's content.
func (s *Store) Update(ctx context.Context, id string, body []byte) (string, error) {
	return Call(ctx, s.policy, "store.update", func(ctx context.Context) (string, error) {
		return s.inner.Update(ctx, id, body)
	})
}

// List returns one page of a listing.
func (s *Store) List(ctx context.Context, query driven.ListQuery, pageToken string, pageSize int) (*driven.ListPage, error) {
	return Call(ctx, s.policy, "store.list", func(ctx context.Context) (*driven.ListPage, error) {
		return s.inner.List(ctx, query, pageToken, pageSize)
	})
}
