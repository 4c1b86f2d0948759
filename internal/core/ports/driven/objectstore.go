package driven

import (
	"context"
	"fmt"
	"time"
)

// MIME types written by the core.
const (
	MimeJSON = "application/json"
)

// ObjectMetadata describes one object in the backing store.
type ObjectMetadata struct {
	ID           string
	Name         string
	MimeType     string
	Parents      []string
	ModifiedTime time.Time
	Trashed      bool
	Size         int64
}

// InParent reports whether the object is directly contained in parentID.
func (m *ObjectMetadata) InParent(parentID string) bool {
	for _, p := range m.Parents {
		if p == parentID {
			return true
		}
	}
	return false
}

// ListQuery filters a listing. Trashed objects are excluded unless
// IncludeTrashed is set.
type ListQuery struct {
	// ParentID restricts results to direct children of this object.
	ParentID string

	// NameContains restricts results to names containing this substring.
	NameContains string

	// IncludeTrashed includes trashed objects.
	IncludeTrashed bool
}

// ListPage is one page of a listing.
type ListPage struct {
	Items         []ObjectMetadata
	NextPageToken string
}

// ObjectStore is the capability contract of the external, eventually
// consistent backing object store holding artifacts, the index and alias
// tables. Callers must check parent containment after any read by id.
type ObjectStore interface {
	// Create stores a new object and returns its id.
	Create(ctx context.Context, name, parentID, mimeType string, body []byte) (string, error)

	// GetMetadata returns the object's metadata.
	GetMetadata(ctx context.Context, id string) (*ObjectMetadata, error)

	// GetContent returns the object's bytes.
	GetContent(ctx context.Context, id string) ([]byte, error)

	// Update replaces the object's content and returns its id.
	Update(ctx context.Context, id string, body []byte) (string, error)

	// List returns one page of objects matching the query.
	List(ctx context.Context, query ListQuery, pageToken string, pageSize int) (*ListPage, error)
}

// StatusError carries a transport status reported by a store or provider
// adapter so the resilience layer can classify it.
type StatusError struct {
	// Code is the HTTP-style status code.
	Code int

	// Op names the adapter operation.
	Op string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.Code)
}

// Unwrap returns the underlying error.
func (e *StatusError) Unwrap() error {
	return e.Err
}
