package resilience

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/distill/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driven"
)

// flakyStore fails GetContent with the scripted errors before delegating.
type flakyStore struct {
	*memory.ObjectStore
	errs  []error
	calls int
}

func (f *flakyStore) GetContent(ctx context.Context, id string) ([]byte, error) {
	f.calls++
	if f.calls <= len(f.errs) {
		return nil, f.errs[f.calls-1]
	}
	return f.ObjectStore.GetContent(ctx, id)
}

func TestStore_RetriesTransientReads(t *testing.T) {
	inner := &flakyStore{ObjectStore: memory.NewObjectStore(), errs: []error{status(503), status(503)}}
	ctx := context.Background()
	id, err := inner.Create(ctx, "doc", "p", driven.MimeJSON, []byte("body"))
	require.NoError(t, err)

	store := NewStore(inner, fastPolicy())
	body, err := store.GetContent(ctx, id)

	require.NoError(t, err)
	assert.Equal(t, "body", string(body))
	assert.Equal(t, 3, inner.calls)
}

func TestStore_MapsTerminalFailure(t *testing.T) {
	inner := &flakyStore{ObjectStore: memory.NewObjectStore(), errs: []error{status(403)}}
	store := NewStore(inner, fastPolicy())

	_, err := store.GetContent(context.Background(), "x")

	assert.True(t, domain.IsKind(err, domain.KindInvalidRequest))
	assert.Equal(t, 1, inner.calls)
}

// flakyCreateStore fails Create with the scripted errors before delegating.
type flakyCreateStore struct {
	*memory.ObjectStore
	errs  []error
	calls int
}

func (f *flakyCreateStore) Create(ctx context.Context, name, parentID, mimeType string, body []byte) (string, error) {
	f.calls++
	if f.calls <= len(f.errs) {
		return "", f.errs[f.calls-1]
	}
	return f.ObjectStore.Create(ctx, name, parentID, mimeType, body)
}

func TestStore_CreateIsNotRetried(t *testing.T) {
	inner := &flakyCreateStore{ObjectStore: memory.NewObjectStore(), errs: []error{status(503)}}
	store := NewStore(inner, fastPolicy())

	_, err := store.Create(context.Background(), "a.json", "p", driven.MimeJSON, []byte("1"))

	assert.True(t, domain.IsKind(err, domain.KindUpstreamError))
	assert.Equal(t, 1, inner.calls)
	assert.Zero(t, inner.Len())
}

func TestStore_PassesThroughOperations(t *testing.T) {
	store := NewStore(memory.NewObjectStore(), fastPolicy())
	ctx := context.Background()

	id, err := store.Create(ctx, "a.json", "p", driven.MimeJSON, []byte("1"))
	require.NoError(t, err)
	_, err = store.Update(ctx, id, []byte("2"))
	require.NoError(t, err)

	meta, err := store.GetMetadata(ctx, id)
	require.NoError(t, err)
	assert.True(t, meta.InParent("p"))

	page, err := store.List(ctx, driven.ListQuery{ParentID: "p"}, "", 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	_, err = store.GetContent(ctx, "missing")
	assert.True(t, IsNotFound(err))
}
