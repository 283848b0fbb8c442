package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/embedx-labs/embedx-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/embedx-labs/embedx-cli/internal/core/domain"
	"github.com/embedx-labs/embedx-cli/internal/core/ports/driven"
)

// Store is the SQLite-backed metadata store. It exposes the document and
// conversation store interfaces through wrapper types sharing one
// connection pool.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a SQLite store at the given database file path.
// If path is empty, defaults to ~/.embedx/data/metadata.db.
func NewStore(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".embedx", "data", "metadata.db")
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: path,
	}

	// Run migrations
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

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// ConversationStore returns a ConversationStore interface backed by this store.
func (s *Store) ConversationStore() driven.ConversationStore {
	return &conversationStore{store: s}
}

func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
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
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
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

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// IsProcessed reports whether a document record exists for the id.
func (s *documentStore) IsProcessed(ctx context.Context, documentID string) (bool, error) {
	var status string
	row := s.store.db.QueryRowContext(ctx,
		"SELECT status FROM documents WHERE id = ?", documentID)
	err := row.Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("checking document status", err)
	}
	return status == string(domain.StatusProcessed), nil
}

// MarkProcessed inserts the document record iff not already present.
// ON CONFLICT DO NOTHING keeps the call idempotent without a read-first
// race.
func (s *documentStore) MarkProcessed(ctx context.Context, documentID, title, sourcePath string) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, source_path, status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, documentID, title, sourcePath, string(domain.StatusProcessed))
	if err != nil {
		return storageErr("marking document processed", err)
	}
	return nil
}

// ListDocuments returns one row per logical document, ordered by id.
// Rows with a null source path are reserved for embedding-only records
// and excluded.
func (s *documentStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, title, source_path, status
		FROM documents
		WHERE source_path IS NOT NULL
		ORDER BY id
	`)
	if err != nil {
		return nil, storageErr("querying documents", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// Delete removes the metadata row only.
func (s *documentStore) Delete(ctx context.Context, documentID string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM documents WHERE id = ?", documentID)
	if err != nil {
		return storageErr("deleting document", err)
	}
	return nil
}

// LookupMetadata returns metadata for a batch of ids; missing ids are
// silently omitted.
func (s *documentStore) LookupMetadata(ctx context.Context, documentIDs []string) ([]domain.Document, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(documentIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(documentIDs))
	for i, id := range documentIDs {
		args[i] = id
	}

	rows, err := s.store.db.QueryContext(ctx,
		"SELECT id, title, source_path, status FROM documents WHERE id IN ("+placeholders+")",
		args...)
	if err != nil {
		return nil, storageErr("looking up metadata", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// Count returns the number of document records.
func (s *documentStore) Count(ctx context.Context) (int, error) {
	var count int
	row := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents")
	if err := row.Scan(&count); err != nil {
		return 0, storageErr("counting documents", err)
	}
	return count, nil
}

// Clear removes all document records.
func (s *documentStore) Clear(ctx context.Context) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return storageErr("clearing documents", err)
	}
	return nil
}

// ==================== Conversation Store ====================

// conversationStore implements driven.ConversationStore.
type conversationStore struct {
	store *Store
}

var _ driven.ConversationStore = (*conversationStore)(nil)

// Append records one prompt/response exchange.
func (s *conversationStore) Append(ctx context.Context, sessionID, prompt, response string) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO conversations (session_id, user_prompt, chatbot_response)
		VALUES (?, ?, ?)
	`, sessionID, prompt, response)
	if err != nil {
		return storageErr("appending conversation entry", err)
	}
	return nil
}

// Recent returns up to limit entries for the session, oldest first within
// the returned window. The inner query selects the newest entries, the
// outer one restores chronological order.
func (s *conversationStore) Recent(ctx context.Context, sessionID string, limit int) ([]domain.ConversationEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT session_id, user_prompt, chatbot_response, timestamp FROM (
			SELECT id, session_id, user_prompt, chatbot_response, timestamp
			FROM conversations
			WHERE session_id = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC
	`, sessionID, limit)
	if err != nil {
		return nil, storageErr("querying conversation entries", err)
	}
	defer rows.Close()

	var entries []domain.ConversationEntry
	for rows.Next() {
		var e domain.ConversationEntry
		if err := rows.Scan(&e.SessionID, &e.Prompt, &e.Response, &e.Timestamp); err != nil {
			return nil, storageErr("scanning conversation entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating conversation entries", err)
	}

	return entries, nil
}

// Clear removes all entries for the session.
func (s *conversationStore) Clear(ctx context.Context, sessionID string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM conversations WHERE session_id = ?", sessionID)
	if err != nil {
		return storageErr("clearing conversation", err)
	}
	return nil
}

// ==================== Helpers ====================

// storageErr wraps an engine-level failure in the domain storage error.
// The store never retries internally; retry policy belongs to callers.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}

func scanDocuments(rows *sql.Rows) ([]domain.Document, error) {
	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		var sourcePath sql.NullString
		var status string
		if err := rows.Scan(&doc.ID, &doc.Title, &sourcePath, &status); err != nil {
			return nil, storageErr("scanning document", err)
		}
		doc.SourcePath = sourcePath.String
		doc.Status = domain.DocumentStatus(status)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating documents", err)
	}
	return docs, nil
}
