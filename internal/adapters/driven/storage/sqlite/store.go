package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/distill/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driven"
)

// defaultPageSize applies when List is called without a page size.
const defaultPageSize = 100

// Store is a unified SQLite-based storage that provides access to
// the object and counter stores through wrapper types.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.distill/data/distill.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".distill", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "distill.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		now:  time.Now,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ObjectStore returns an ObjectStore interface backed by this store.
func (s *Store) ObjectStore() driven.ObjectStore {
	return &objectStore{store: s}
}

// CounterStore returns a CounterStore interface backed by this store.
func (s *Store) CounterStore() driven.CounterStore {
	return &counterStore{store: s}
}

// migrate runs all pending migrations and records each applied version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_objects.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Object Store ====================

// objectStore implements driven.ObjectStore.
type objectStore struct {
	store *Store
}

var _ driven.ObjectStore = (*objectStore)(nil)

// Create stores a new object.
func (s *objectStore) Create(ctx context.Context, name, parentID, mimeType string, body []byte) (string, error) {
	id := uuid.NewString()
	now := s.store.now().UnixNano()
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO objects (id, name, mime_type, parent_id, body, size, trashed, created_ns, modified_ns)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
	`, id, name, mimeType, parentID, body, len(body), now, now)
	if err != nil {
		return "", fmt.Errorf("inserting object: %w", err)
	}
	return id, nil
}

// GetMetadata returns an object's metadata.
func (s *objectStore) GetMetadata(ctx context.Context, id string) (*driven.ObjectMetadata, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, mime_type, parent_id, size, trashed, modified_ns
		FROM objects WHERE id = ?
	`, id)
	return scanMetadata(row)
}

// GetContent returns an object's bytes.
func (s *objectStore) GetContent(ctx context.Context, id string) ([]byte, error) {
	var body []byte
	err := s.store.db.QueryRowContext(ctx, "SELECT body FROM objects WHERE id = ?", id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading object: %w", err)
	}
	return body, nil
}

// Update replaces an object's content. The modification time always
// advances, even when two writes land within one clock tick.
func (s *objectStore) Update(ctx context.Context, id string, body []byte) (string, error) {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE objects SET body = ?, size = ?, modified_ns = MAX(?, modified_ns + 1)
		WHERE id = ?
	`, body, len(body), s.store.now().UnixNano(), id)
	if err != nil {
		return "", fmt.Errorf("updating object: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("updating object: %w", err)
	}
	if n == 0 {
		return "", domain.ErrNotFound
	}
	return id, nil
}

// List returns one page of objects in creation order. Page tokens are offsets.
func (s *objectStore) List(
	ctx context.Context, query driven.ListQuery, pageToken string, pageSize int,
) (*driven.ListPage, error) {
	offset := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil || n < 0 {
			return nil, &driven.StatusError{Code: 400, Op: "sqlite.list", Err: fmt.Errorf("invalid page token %q", pageToken)}
		}
		offset = n
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	var where []string
	var args []any
	if !query.IncludeTrashed {
		where = append(where, "trashed = 0")
	}
	if query.ParentID != "" {
		where = append(where, "parent_id = ?")
		args = append(args, query.ParentID)
	}
	if query.NameContains != "" {
		where = append(where, "instr(name, ?) > 0")
		args = append(args, query.NameContains)
	}

	stmt := "SELECT id, name, mime_type, parent_id, size, trashed, modified_ns FROM objects"
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	// Fetch one extra row to learn whether another page exists.
	stmt += " ORDER BY created_ns, rowid LIMIT ? OFFSET ?"
	args = append(args, pageSize+1, offset)

	rows, err := s.store.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}
	defer rows.Close()

	page := &driven.ListPage{}
	for rows.Next() {
		meta, err := scanMetadata(rows)
		if err != nil {
			return nil, err
		}
		page.Items = append(page.Items, *meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating objects: %w", err)
	}

	if len(page.Items) > pageSize {
		page.Items = page.Items[:pageSize]
		page.NextPageToken = strconv.Itoa(offset + pageSize)
	}
	return page, nil
}

// Trash marks an object as trashed so listings skip it.
func (s *objectStore) Trash(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "UPDATE objects SET trashed = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("trashing object: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanMetadata(row scanner) (*driven.ObjectMetadata, error) {
	var meta driven.ObjectMetadata
	var parentID string
	var trashed int
	var modifiedNS int64
	err := row.Scan(&meta.ID, &meta.Name, &meta.MimeType, &parentID, &meta.Size, &trashed, &modifiedNS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning object: %w", err)
	}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}
	meta.Trashed = trashed != 0
	meta.ModifiedTime = time.Unix(0, modifiedNS).UTC()
	return &meta, nil
}

// ==================== Counter Store ====================

// counterStore implements driven.CounterStore.
type counterStore struct {
	store *Store
}

var _ driven.CounterStore = (*counterStore)(nil)

// Get returns the timestamps recorded for key, oldest first.
func (s *counterStore) Get(ctx context.Context, key string) ([]time.Time, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT at_ns FROM rate_events WHERE key = ? ORDER BY at_ns", key)
	if err != nil {
		return nil, fmt.Errorf("reading rate events: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var ns int64
		if err := rows.Scan(&ns); err != nil {
			return nil, fmt.Errorf("scanning rate event: %w", err)
		}
		out = append(out, time.Unix(0, ns).UTC())
	}
	return out, rows.Err()
}

// Increment records one event for key at t.
func (s *counterStore) Increment(ctx context.Context, key string, t time.Time) error {
	_, err := s.store.db.ExecContext(ctx,
		"INSERT INTO rate_events (key, at_ns) VALUES (?, ?)", key, t.UnixNano())
	if err != nil {
		return fmt.Errorf("recording rate event: %w", err)
	}
	return nil
}

// Prune drops every timestamp for key strictly before cutoff.
func (s *counterStore) Prune(ctx context.Context, key string, cutoff time.Time) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM rate_events WHERE key = ? AND at_ns < ?", key, cutoff.UnixNano())
	if err != nil {
		return fmt.Errorf("pruning rate events: %w", err)
	}
	return nil
}
