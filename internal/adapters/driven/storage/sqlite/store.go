package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/custodia-labs/revstore/internal/adapters/driven/storage"
	"github.com/custodia-labs/revstore/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/revstore/internal/core/domain"
	"github.com/custodia-labs/revstore/internal/core/ports/driven"
)

// encodingZstd marks a zstd-compressed payload.
const encodingZstd = "zstd"

// Ensure Store implements the interface.
var _ driven.ResourceStore = (*Store)(nil)

// Store is a SQLite-backed resource store.
type Store struct {
	db   *sql.DB
	path string
	keys driven.KeyDeriver

	// writeMu serialises upserts from this process. SQLite allows a single
	// writer, and a deferred transaction that reads before it writes cannot
	// wait for the lock once another writer holds it.
	writeMu sync.Mutex

	compress bool
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
}

// Option configures a Store.
type Option func(*Store)

// WithCompression enables zstd compression of payloads written from now on.
func WithCompression(enabled bool) Option {
	return func(s *Store) {
		s.compress = enabled
	}
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.revstore/data/resources.db.
func NewStore(dataDir string, keys driven.KeyDeriver, opts ...Option) (*Store, error) {
	if keys == nil {
		return nil, fmt.Errorf("%w: key deriver is nil", domain.ErrInvalidArgument)
	}

	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".revstore", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "resources.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	s := &Store{
		db:      db,
		path:    dbPath,
		keys:    keys,
		encoder: encoder,
		decoder: decoder,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		s.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.decoder.Close()
	_ = s.encoder.Close()
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
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
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
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
	}

	return nil
}

// ==================== Resource Store ====================

const selectColumns = `resource_id, resource_type, version, etag, raw_data, raw_format, raw_encoding,
	request_method, request_uri, last_modified, is_deleted, is_history,
	search_indices, compartment_indices, last_modified_claims, search_parameter_hash`

// Upsert conditionally writes doc as the current revision.
func (s *Store) Upsert(
	ctx context.Context,
	doc *domain.VersionedDocument,
	etag *domain.WeakETag,
	allowCreate, keepHistory bool,
) (*domain.UpsertOutcome, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", domain.ErrInvalidArgument)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	pk := s.keys.PartitionKey(doc.ResourceType, doc.ResourceID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	existing, err := s.scanOne(tx.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM resources
		WHERE partition_key = ? AND id = ? AND resource_id = ? AND resource_type = ? AND is_history = 0`,
		pk, doc.ResourceID, doc.ResourceID, doc.ResourceType))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	plan, err := storage.PlanUpsert(existing, doc, etag, allowCreate, keepHistory)
	if err != nil {
		return nil, err
	}

	if plan.Archive != nil {
		if err := s.insert(ctx, tx, pk, plan.Archive); err != nil {
			return nil, fmt.Errorf("archiving %s: %w", plan.Archive.ID(), err)
		}
	}

	if plan.PreviousETag == "" {
		if err := s.insert(ctx, tx, pk, plan.Current); err != nil {
			return nil, err
		}
	} else if err := s.replace(ctx, tx, pk, plan.Current, plan.PreviousETag); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing upsert: %w", err)
	}

	return &domain.UpsertOutcome{Document: plan.Current, Kind: plan.Kind}, nil
}

// Get returns the current revision, or the revision at key.Version.
func (s *Store) Get(ctx context.Context, key domain.ResourceKey) (*domain.VersionedDocument, error) {
	pk := s.keys.PartitionKey(key.Type, key.ID)

	current, err := s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM resources
		WHERE partition_key = ? AND id = ? AND resource_id = ? AND resource_type = ? AND is_history = 0`,
		pk, key.ID, key.ID, key.Type))
	switch {
	case err == nil:
		if key.Version == "" || current.EffectiveVersion() == key.Version {
			return current, nil
		}
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	case key.Version == "":
		return nil, fmt.Errorf("%s: %w", key, domain.ErrNotFound)
	}

	doc, err := s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM resources
		WHERE partition_key = ? AND id = ? AND resource_id = ? AND resource_type = ? AND is_history = 1`,
		pk, key.ID+"_"+key.Version, key.ID, key.Type))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", key, domain.ErrNotFound)
	}
	return doc, err
}

// History returns every stored revision of a resource, newest first.
func (s *Store) History(ctx context.Context, key domain.ResourceKey) ([]*domain.VersionedDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM resources
		WHERE partition_key = ? AND resource_type = ? AND resource_id = ?`,
		s.keys.PartitionKey(key.Type, key.ID), key.Type, key.ID)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var docs []*domain.VersionedDocument
	for rows.Next() {
		doc, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s: %w", key, domain.ErrNotFound)
	}

	storage.SortNewestFirst(docs)
	return docs, nil
}

// Count returns the number of stored rows, current and history.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM resources").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting resources: %w", err)
	}
	return n, nil
}

func (s *Store) insert(ctx context.Context, tx *sql.Tx, pk string, doc *domain.VersionedDocument) error {
	r, err := s.toRow(doc)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO resources (partition_key, id, resource_id, resource_type, version, etag,
			raw_data, raw_format, raw_encoding, request_method, request_uri, last_modified,
			is_deleted, is_history, search_indices, sort_index, compartment_indices,
			last_modified_claims, search_parameter_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pk, doc.ID(), doc.ResourceID, doc.ResourceType, doc.Version, doc.ETag,
		r.data, doc.Raw.Format, r.encoding, doc.Request.Method, doc.Request.URI, doc.LastModified.UnixNano(),
		doc.IsDeleted, doc.IsHistory, r.searchIndices, r.sortIndex, r.compartments,
		r.claims, doc.SearchParameterHash,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: %s was written concurrently", domain.ErrPreconditionFailed, doc.ID())
		}
		return fmt.Errorf("inserting %s: %w", doc.ID(), err)
	}
	return nil
}

// replace overwrites the current row only if it still carries previousETag.
func (s *Store) replace(ctx context.Context, tx *sql.Tx, pk string, doc *domain.VersionedDocument, previousETag string) error {
	r, err := s.toRow(doc)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE resources SET version = ?, etag = ?, raw_data = ?, raw_format = ?, raw_encoding = ?,
			request_method = ?, request_uri = ?, last_modified = ?, is_deleted = ?, is_history = 0,
			search_indices = ?, sort_index = ?, compartment_indices = ?, last_modified_claims = ?,
			search_parameter_hash = ?
		WHERE partition_key = ? AND id = ? AND etag = ?`,
		doc.Version, doc.ETag, r.data, doc.Raw.Format, r.encoding,
		doc.Request.Method, doc.Request.URI, doc.LastModified.UnixNano(), doc.IsDeleted,
		r.searchIndices, r.sortIndex, r.compartments, r.claims,
		doc.SearchParameterHash,
		pk, doc.ID(), previousETag,
	)
	if err != nil {
		return fmt.Errorf("updating %s: %w", doc.ID(), err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s changed since it was read", domain.ErrPreconditionFailed, doc.ID())
	}
	return nil
}

// row holds the encoded column values of a document.
type row struct {
	data          []byte
	encoding      string
	searchIndices string
	sortIndex     string
	compartments  string
	claims        string
}

func (s *Store) toRow(doc *domain.VersionedDocument) (*row, error) {
	r := &row{data: []byte(doc.Raw.Data)}
	if s.compress {
		r.data = s.encoder.EncodeAll(r.data, nil)
		r.encoding = encodingZstd
	}

	var err error
	if r.searchIndices, err = marshalJSON(doc.SearchIndices(), "[]"); err != nil {
		return nil, fmt.Errorf("marshalling search indices: %w", err)
	}
	if r.sortIndex, err = marshalJSON(doc.SortIndex(), "{}"); err != nil {
		return nil, fmt.Errorf("marshalling sort index: %w", err)
	}
	if r.compartments, err = marshalJSON(doc.CompartmentIndices, "{}"); err != nil {
		return nil, fmt.Errorf("marshalling compartment indices: %w", err)
	}
	if r.claims, err = marshalJSON(doc.LastModifiedClaims, "[]"); err != nil {
		return nil, fmt.Errorf("marshalling claims: %w", err)
	}
	return r, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanOne(row *sql.Row) (*domain.VersionedDocument, error) {
	doc, err := s.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

func (s *Store) scan(sc scanner) (*domain.VersionedDocument, error) {
	var (
		p                                        domain.DocumentParams
		data                                     []byte
		encoding                                 string
		lastModified                             int64
		searchJSON, compartmentJSON, claimsJSON string
	)

	err := sc.Scan(&p.ResourceID, &p.ResourceType, &p.Version, &p.ETag, &data, &p.Raw.Format, &encoding,
		&p.Request.Method, &p.Request.URI, &lastModified, &p.IsDeleted, &p.IsHistory,
		&searchJSON, &compartmentJSON, &claimsJSON, &p.SearchParameterHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning resource: %w", err)
	}

	if encoding == encodingZstd {
		data, err = s.decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing %s: %w", p.ResourceID, err)
		}
	}
	p.Raw.Data = string(data)
	p.LastModified = time.Unix(0, lastModified).UTC()

	if err := json.Unmarshal([]byte(searchJSON), &p.SearchIndices); err != nil {
		return nil, fmt.Errorf("unmarshalling search indices: %w", err)
	}
	if err := json.Unmarshal([]byte(compartmentJSON), &p.CompartmentIndices); err != nil {
		return nil, fmt.Errorf("unmarshalling compartment indices: %w", err)
	}
	if err := json.Unmarshal([]byte(claimsJSON), &p.LastModifiedClaims); err != nil {
		return nil, fmt.Errorf("unmarshalling claims: %w", err)
	}

	// The sort index column is kept for queries; the document derives its
	// own from the search indices.
	return domain.NewVersionedDocument(p), nil
}

// ==================== Helper Functions ====================

// marshalJSON encodes v, substituting empty for nil slices and maps.
func marshalJSON(v any, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

// isConstraintViolation reports a duplicate (partition_key, id). Other
// constraint failures are schema bugs, not lost races.
func isConstraintViolation(err error) bool {
	var se *sqlitedriver.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
