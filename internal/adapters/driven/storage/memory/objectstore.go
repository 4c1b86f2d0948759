package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driven"
)

// Ensure ObjectStore implements the interface.
var _ driven.ObjectStore = (*ObjectStore)(nil)

type object struct {
	meta driven.ObjectMetadata
	body []byte
}

// ObjectStore is an in-memory implementation of driven.ObjectStore.
// Listings return objects in creation order; page tokens are offsets.
type ObjectStore struct {
	mu      sync.RWMutex
	objects map[string]*object
	order   []string
	last    time.Time
}

// NewObjectStore creates a new in-memory object store.
func NewObjectStore() *ObjectStore {
	return &ObjectStore{
		objects: make(map[string]*object),
	}
}

// tick returns a strictly increasing modification time. Callers hold mu.
func (s *ObjectStore) tick() time.Time {
	now := time.Now().UTC()
	if !now.After(s.last) {
		now = s.last.Add(time.Nanosecond)
	}
	s.last = now
	return now
}

// Create stores a new object.
func (s *ObjectStore) Create(_ context.Context, name, parentID, mimeType string, body []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	var parents []string
	if parentID != "" {
		parents = []string{parentID}
	}
	s.objects[id] = &object{
		meta: driven.ObjectMetadata{
			ID:           id,
			Name:         name,
			MimeType:     mimeType,
			Parents:      parents,
			ModifiedTime: s.tick(),
			Size:         int64(len(body)),
		},
		body: append([]byte(nil), body...),
	}
	s.order = append(s.order, id)
	return id, nil
}

// GetMetadata returns an object's metadata.
func (s *ObjectStore) GetMetadata(_ context.Context, id string) (*driven.ObjectMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	meta := obj.meta
	meta.Parents = append([]string(nil), obj.meta.Parents...)
	return &meta, nil
}

// GetContent returns an object's bytes.
func (s *ObjectStore) GetContent(_ context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), obj.body...), nil
}

// Update replaces an object's content.
func (s *ObjectStore) Update(_ context.Context, id string, body []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	obj.body = append([]byte(nil), body...)
	obj.meta.Size = int64(len(body))
	obj.meta.ModifiedTime = s.tick()
	return id, nil
}

// List returns one page of objects matching the query.
func (s *ObjectStore) List(_ context.Context, query driven.ListQuery, pageToken string, pageSize int) (*driven.ListPage, error) {
	offset := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil || n < 0 {
			return nil, &driven.StatusError{Code: 400, Op: "memory.list", Err: fmt.Errorf("invalid page token %q", pageToken)}
		}
		offset = n
	}
	if pageSize <= 0 {
		pageSize = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []driven.ObjectMetadata
	for _, id := range s.order {
		obj := s.objects[id]
		if !matches(&obj.meta, query) {
			continue
		}
		matched = append(matched, obj.meta)
	}

	page := &driven.ListPage{}
	if offset >= len(matched) {
		return page, nil
	}
	end := offset + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	page.Items = append(page.Items, matched[offset:end]...)
	if end < len(matched) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

// Trash marks an object as trashed so listings skip it.
func (s *ObjectStore) Trash(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[id]
	if !ok {
		return domain.ErrNotFound
	}
	obj.meta.Trashed = true
	obj.meta.ModifiedTime = s.tick()
	return nil
}

// Len returns the number of stored objects, trashed included.
func (s *ObjectStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func matches(meta *driven.ObjectMetadata, q driven.ListQuery) bool {
	if meta.Trashed && !q.IncludeTrashed {
		return false
	}
	if q.ParentID != "" && !meta.InParent(q.ParentID) {
		return false
	}
	if q.NameContains != "" && !strings.Contains(meta.Name, q.NameContains) {
		return false
	}
	return true
}
