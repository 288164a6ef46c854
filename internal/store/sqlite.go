// Package store persists indexed documents in SQLite so a built index
// survives process restarts. The BM25 engine itself is memory-only; on
// startup the store replays its rows to rebuild it.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/Aman-CERP/rankfuse/internal/bm25"
	"github.com/Aman-CERP/rankfuse/internal/errors"
)

// Store persists documents and their token streams in SQLite.
// A file lock beside the database enforces a single writer process.
type Store struct {
	mu       sync.Mutex
	db       *sql.DB
	path     string
	lock     *flock.Flock
	readonly bool
	closed   bool
}

// Open opens (or creates) the store at path for writing. If path is empty
// an in-memory database is used for testing and no file lock is taken.
// Returns ErrCodeIndexLocked when another process holds the index.
func Open(path string) (*Store, error) {
	return open(path, false)
}

// OpenReadOnly opens the store with a shared lock: concurrent readers
// coexist, but an exclusive writer blocks them and vice versa.
func OpenReadOnly(path string) (*Store, error) {
	return open(path, true)
}

func open(path string, readonly bool) (*Store, error) {
	var dsn string
	var fileLock *flock.Flock

	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreFailed, err)
		}

		// Advisory lock: mutations are single-writer across processes,
		// reads share.
		fileLock = flock.New(path + ".lock")
		var locked bool
		var err error
		if readonly {
			locked, err = fileLock.TryRLock()
		} else {
			locked, err = fileLock.TryLock()
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreFailed, err)
		}
		if !locked {
			return nil, errors.Newf(errors.ErrCodeIndexLocked,
				"index at %s is locked by another process", path)
		}

		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		if fileLock != nil {
			_ = fileLock.Unlock()
		}
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, err)
	}

	// Single writer to prevent lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL mode must be set via PRAGMA for modernc.org/sqlite; DSN params
	// may be ignored.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			if fileLock != nil {
				_ = fileLock.Unlock()
			}
			return nil, errors.Wrap(errors.ErrCodeStoreFailed, err)
		}
	}

	s := &Store{db: db, path: path, lock: fileLock, readonly: readonly}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		if fileLock != nil {
			_ = fileLock.Unlock()
		}
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, err)
	}

	return s, nil
}

// initSchema creates the documents and tokens tables.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS documents (
		id          TEXT PRIMARY KEY,
		file_path   TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		start_line  INTEGER NOT NULL,
		end_line    INTEGER NOT NULL,
		language    TEXT NOT NULL DEFAULT '',
		content     TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tokens (
		doc_id   TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		text     TEXT NOT NULL,
		weight   REAL NOT NULL DEFAULT 1.0
	);
	CREATE INDEX IF NOT EXISTS idx_tokens_doc ON tokens(doc_id);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveDocuments upserts documents with their token streams in one
// transaction. contents maps document ID to raw chunk content.
func (s *Store) SaveDocuments(ctx context.Context, docs []bm25.Document, contents map[string]string) error {
	if len(docs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New(errors.ErrCodeStoreFailed, "store is closed", nil)
	}
	if s.readonly {
		return errors.New(errors.ErrCodeStoreFailed, "store is opened read-only", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	docStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO documents
			(id, file_path, chunk_index, start_line, end_line, language, content)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err)
	}
	defer docStmt.Close()

	delTokStmt, err := tx.PrepareContext(ctx, `DELETE FROM tokens WHERE doc_id = ?`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err)
	}
	defer delTokStmt.Close()

	tokStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tokens (doc_id, position, text, weight) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err)
	}
	defer tokStmt.Close()

	for _, doc := range docs {
		if _, err := docStmt.ExecContext(ctx,
			doc.ID, doc.FilePath, doc.ChunkIndex, doc.StartLine, doc.EndLine,
			doc.Language, contents[doc.ID]); err != nil {
			return errors.Wrap(errors.ErrCodeStoreFailed, err)
		}
		if _, err := delTokStmt.ExecContext(ctx, doc.ID); err != nil {
			return errors.Wrap(errors.ErrCodeStoreFailed, err)
		}
		for _, tok := range doc.Tokens {
			if _, err := tokStmt.ExecContext(ctx,
				doc.ID, tok.Position, tok.Text, tok.ImportanceWeight); err != nil {
				return errors.Wrap(errors.ErrCodeStoreFailed, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err)
	}
	return nil
}

// DeleteDocuments removes documents and their tokens by ID.
func (s *Store) DeleteDocuments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New(errors.ErrCodeStoreFailed, "store is closed", nil)
	}
	if s.readonly {
		return errors.New(errors.ErrCodeStoreFailed, "store is opened read-only", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	inClause := strings.Join(placeholders, ",")

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM tokens WHERE doc_id IN (%s)", inClause), args...); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err)
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM documents WHERE id IN (%s)", inClause), args...); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err)
	}
	return nil
}

// LoadAll returns every stored document with its tokens, plus a map of
// document ID to raw content. Used to rebuild search backends at startup.
func (s *Store) LoadAll(ctx context.Context) ([]bm25.Document, map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, nil, errors.New(errors.ErrCodeStoreFailed, "store is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_path, chunk_index, start_line, end_line, language, content
		FROM documents ORDER BY file_path, chunk_index`)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeStoreFailed, err)
	}
	defer rows.Close()

	var docs []bm25.Document
	contents := make(map[string]string)
	for rows.Next() {
		var doc bm25.Document
		var content string
		if err := rows.Scan(&doc.ID, &doc.FilePath, &doc.ChunkIndex,
			&doc.StartLine, &doc.EndLine, &doc.Language, &content); err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeStoreFailed, err)
		}
		docs = append(docs, doc)
		contents[doc.ID] = content
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeStoreFailed, err)
	}

	tokRows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, position, text, weight FROM tokens ORDER BY doc_id, position`)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeStoreFailed, err)
	}
	defer tokRows.Close()

	byID := make(map[string]int, len(docs))
	for i, doc := range docs {
		byID[doc.ID] = i
	}

	for tokRows.Next() {
		var docID string
		var tok bm25.Token
		if err := tokRows.Scan(&docID, &tok.Position, &tok.Text, &tok.ImportanceWeight); err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeStoreFailed, err)
		}
		if i, ok := byID[docID]; ok {
			docs[i].Tokens = append(docs[i].Tokens, tok)
		}
	}
	if err := tokRows.Err(); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeStoreFailed, err)
	}

	return docs, contents, nil
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, errors.New(errors.ErrCodeStoreFailed, "store is closed", nil)
	}

	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeStoreFailed, err)
	}
	return count, nil
}

// Close checkpoints, closes the database, and releases the file lock.
// Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.db != nil {
		if !s.readonly {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		}
		err = s.db.Close()
	}
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
	return err
}
