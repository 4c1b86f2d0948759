package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/distill/internal/connectors/google"
	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driven"
)

// MaxContentSize bounds a single download (8MB).
const MaxContentSize = 8 << 20

// DefaultPageSize applies when List is called without a page size.
const DefaultPageSize = 100

// fileFields are the metadata fields requested for every file.
const fileFields = "id,name,mimeType,parents,modifiedTime,trashed,size"

// Store implements driven.ObjectStore on the Drive v3 API.
type Store struct {
	svc     *drive.Service
	limiter *google.RateLimiter
}

var _ driven.ObjectStore = (*Store)(nil)

// NewStore creates a Drive-backed object store. Every request waits on limiter.
func NewStore(svc *drive.Service, limiter *google.RateLimiter) *Store {
	if limiter == nil {
		limiter = google.NewRateLimiter(google.ServiceDrive)
	}
	return &Store{svc: svc, limiter: limiter}
}

// Create uploads a new file into parentID.
func (s *Store) Create(ctx context.Context, name, parentID, mimeType string, body []byte) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	file := &drive.File{Name: name, MimeType: mimeType}
	if parentID != "" {
		file.Parents = []string{parentID}
	}
	created, err := s.svc.Files.Create(file).
		Media(bytes.NewReader(body), googleapi.ContentType(mimeType)).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", s.wrap("drive.create", err)
	}
	return created.Id, nil
}

// GetMetadata returns a file's metadata.
func (s *Store) GetMetadata(ctx context.Context, id string) (*driven.ObjectMetadata, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	file, err := s.svc.Files.Get(id).
		Fields(fileFields).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, s.wrap("drive.getMetadata", err)
	}
	return toMetadata(file), nil
}

// GetContent downloads a file's bytes.
func (s *Store) GetContent(ctx context.Context, id string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := s.svc.Files.Get(id).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, s.wrap("drive.getContent", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxContentSize+1))
	if err != nil {
		return nil, fmt.Errorf("drive.getContent: read body: %w", err)
	}
	if len(data) > MaxContentSize {
		return nil, fmt.Errorf("drive.getContent %s: %w", id, domain.ErrPayloadTooLarge)
	}
	return data, nil
}

// Update replaces a file's content.
func (s *Store) Update(ctx context.Context, id string, body []byte) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	updated, err := s.svc.Files.Update(id, &drive.File{}).
		Media(bytes.NewReader(body)).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", s.wrap("drive.update", err)
	}
	return updated.Id, nil
}

// List returns one page of files matching the query, oldest first.
func (s *Store) List(
	ctx context.Context, query driven.ListQuery, pageToken string, pageSize int,
) (*driven.ListPage, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	call := s.svc.Files.List().
		Q(buildQuery(query)).
		Fields(googleapi.Field("nextPageToken, files(" + fileFields + ")")).
		OrderBy("createdTime").
		PageSize(int64(pageSize)).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, s.wrap("drive.list", err)
	}

	page := &driven.ListPage{
		Items:         make([]driven.ObjectMetadata, 0, len(resp.Files)),
		NextPageToken: resp.NextPageToken,
	}
	for _, f := range resp.Files {
		page.Items = append(page.Items, *toMetadata(f))
	}
	return page, nil
}

// wrap maps an API error and arms the limiter's backoff on rate limiting.
func (s *Store) wrap(op string, err error) error {
	if google.IsRateLimited(err) {
		s.limiter.RecordRateLimitError(google.RetryAfter(err))
	}
	return google.WrapError(op, err)
}

func toMetadata(f *drive.File) *driven.ObjectMetadata {
	meta := &driven.ObjectMetadata{
		ID:       f.Id,
		Name:     f.Name,
		MimeType: f.MimeType,
		Parents:  f.Parents,
		Trashed:  f.Trashed,
		Size:     f.Size,
	}
	if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
		meta.ModifiedTime = t.UTC()
	}
	return meta
}
