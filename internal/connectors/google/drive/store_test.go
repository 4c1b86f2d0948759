package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/custodia-labs/distill/internal/connectors/google"
	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driven"
)

// fakeFile is one file held by fakeDrive.
type fakeFile struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	MimeType     string   `json:"mimeType"`
	Parents      []string `json:"parents,omitempty"`
	ModifiedTime string   `json:"modifiedTime"`
	Trashed      bool     `json:"trashed"`
	Size         string   `json:"size"`
	body         []byte
}

// fakeDrive serves the subset of the Drive v3 API the store uses.
type fakeDrive struct {
	mu       sync.Mutex
	files    map[string]*fakeFile
	next     int
	lastQ    string
	failWith int
	retryHdr string
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{files: make(map[string]*fakeFile)}
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failWith != 0 {
		if f.retryHdr != "" {
			w.Header().Set("Retry-After", f.retryHdr)
		}
		writeError(w, f.failWith, "backendError")
		return
	}

	path := r.URL.Path
	i := strings.Index(path, "/files")
	if i < 0 {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(strings.TrimPrefix(path[i:], "/files"), "/")

	switch {
	case r.Method == http.MethodPost && id == "":
		meta, body := readUpload(r)
		f.next++
		file := &fakeFile{
			ID:       fmt.Sprintf("file-%d", f.next),
			Name:     meta.Name,
			MimeType: meta.MimeType,
			Parents:  meta.Parents,
		}
		f.store(file, body)
		writeJSON(w, map[string]string{"id": file.ID})
	case r.Method == http.MethodPatch && id != "":
		file, ok := f.files[id]
		if !ok {
			writeError(w, http.StatusNotFound, "notFound")
			return
		}
		_, body := readUpload(r)
		f.store(file, body)
		writeJSON(w, map[string]string{"id": id})
	case r.Method == http.MethodGet && id == "":
		f.lastQ = r.URL.Query().Get("q")
		var out []*fakeFile
		for n := 1; n <= f.next; n++ {
			if file, ok := f.files[fmt.Sprintf("file-%d", n)]; ok {
				out = append(out, file)
			}
		}
		writeJSON(w, map[string]any{"files": out})
	case r.Method == http.MethodGet:
		file, ok := f.files[id]
		if !ok {
			writeError(w, http.StatusNotFound, "notFound")
			return
		}
		if r.URL.Query().Get("alt") == "media" {
			_, _ = w.Write(file.body)
			return
		}
		writeJSON(w, file)
	default:
		http.Error(w, "unsupported", http.StatusMethodNotAllowed)
	}
}

func (f *fakeDrive) store(file *fakeFile, body []byte) {
	file.body = body
	file.Size = fmt.Sprint(len(body))
	file.ModifiedTime = time.Date(2024, 5, 1, 0, 0, f.next, 0, time.UTC).Format(time.RFC3339)
	f.files[file.ID] = file
}

// readUpload splits a multipart/related upload into metadata and media.
func readUpload(r *http.Request) (fakeFile, []byte) {
	var meta fakeFile
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		body, _ := io.ReadAll(r.Body)
		return meta, body
	}
	mr := multipart.NewReader(r.Body, params["boundary"])
	part, err := mr.NextPart()
	if err != nil {
		return meta, nil
	}
	_ = json.NewDecoder(part).Decode(&meta)
	part, err = mr.NextPart()
	if err != nil {
		return meta, nil
	}
	body, _ := io.ReadAll(part)
	return meta, body
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": reason,
			"errors":  []map[string]string{{"reason": reason, "message": reason}},
		},
	})
}

func newTestStore(t *testing.T) (*Store, *fakeDrive) {
	t.Helper()
	fake := newFakeDrive()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	ts := google.NewTokenSource(context.Background(), google.NewStaticTokenProvider("token"))
	svc, err := google.NewDriveService(context.Background(), ts,
		option.WithEndpoint(srv.URL+"/drive/v3/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	limiter := google.NewRateLimiterWithConfig(google.RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 1000})
	return NewStore(svc, limiter), fake
}

func TestStore_CreateGetUpdate(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "note--a1.summary.json", "space-1", driven.MimeJSON, []byte(`{"kind":"summary"}`))
	require.NoError(t, err)
	assert.Equal(t, "file-1", id)

	meta, err := store.GetMetadata(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "note--a1.summary.json", meta.Name)
	assert.Equal(t, []string{"space-1"}, meta.Parents)
	assert.Equal(t, int64(18), meta.Size)
	assert.False(t, meta.ModifiedTime.IsZero())

	body, err := store.GetContent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, `{"kind":"summary"}`, string(body))

	_, err = store.Update(ctx, id, []byte(`{}`))
	require.NoError(t, err)
	body, err = store.GetContent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(body))
}

func TestStore_ListSendsEscapedQuery(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()
	_, err := store.Create(ctx, "a.json", "space-1", driven.MimeJSON, []byte("{}"))
	require.NoError(t, err)

	page, err := store.List(ctx, driven.ListQuery{ParentID: "space-1", NameContains: "it's"}, "", 0)

	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "a.json", page.Items[0].Name)
	assert.Equal(t, `'space-1' in parents and name contains 'it\'s' and trashed = false`, fake.lastQ)
}

func TestStore_NotFoundMapsToStatus(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.GetMetadata(context.Background(), "missing")

	var se *driven.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, "drive.getMetadata", se.Op)
	assert.True(t, google.IsNotFound(err))
}

func TestStore_RateLimitArmsBackoff(t *testing.T) {
	store, fake := newTestStore(t)
	fake.failWith = http.StatusTooManyRequests
	fake.retryHdr = "120"

	_, err := store.GetContent(context.Background(), "x")

	var se *driven.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, store.limiter.Wait(ctx), context.DeadlineExceeded)
}

func TestStore_ContentTooLarge(t *testing.T) {
	store, fake := newTestStore(t)
	fake.files["big"] = &fakeFile{ID: "big", body: make([]byte, MaxContentSize+1)}

	_, err := store.GetContent(context.Background(), "big")

	assert.ErrorIs(t, err, domain.ErrPayloadTooLarge)
}
