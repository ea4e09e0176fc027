// Package store persists sessions: a sqlite metadata database plus one index
// file per session. Metadata is only inserted after the index file is durably
// in place, and removed only after the index file is gone, so readers never
// observe a session without a retrievable index.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"docqa/internal/domain"
	"docqa/internal/index"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	created_at TEXT NOT NULL,
	chunk_count INTEGER NOT NULL,
	index_path TEXT NOT NULL,
	preview TEXT NOT NULL DEFAULT ''
)`

// Store owns the session metadata table and the per-session index files.
type Store struct {
	db       *sql.DB
	dir      string
	embedder domain.Embedder
	mu       sync.Mutex
	log      *zap.SugaredLogger
}

// Open creates the store directory layout and opens the metadata database.
func Open(dir string, embedder domain.Embedder, log *zap.SugaredLogger) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, "indexes"), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	db, err := sql.Open("sqlite3", filepath.Join(dir, "sessions.db"))
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating session table: %w", err)
	}
	return &Store{db: db, dir: dir, embedder: embedder, log: log}, nil
}

// Close releases the metadata database.
func (s *Store) Close() error { return s.db.Close() }

// Create builds and persists the index for one ingested document, then
// registers its metadata. The index is written to a temporary file and
// renamed into place so a cancelled ingestion leaves nothing visible.
func (s *Store) Create(ctx context.Context, filename, preview string, passages []domain.Passage) (domain.Session, error) {
	if len(passages) == 0 {
		return domain.Session{}, fmt.Errorf("%w: document produced no passages", domain.ErrInvalidInput)
	}
	ix, err := index.Build(ctx, passages, s.embedder)
	if err != nil {
		return domain.Session{}, err
	}

	id := uuid.NewString()
	path := filepath.Join(s.dir, "indexes", id+".json")
	if err := writeIndex(ix, path); err != nil {
		return domain.Session{}, err
	}

	sess := domain.Session{
		ID:         id,
		Filename:   filename,
		CreatedAt:  time.Now().UTC(),
		ChunkCount: ix.Len(),
		IndexPath:  path,
		Preview:    preview,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, filename, created_at, chunk_count, index_path, preview) VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Filename, sess.CreatedAt.Format(time.RFC3339Nano), sess.ChunkCount, sess.IndexPath, sess.Preview)
	if err != nil {
		_ = os.Remove(path)
		return domain.Session{}, fmt.Errorf("registering session: %w", err)
	}
	s.log.Infow("session created", "session_id", sess.ID, "filename", filename, "chunks", sess.ChunkCount)
	return sess, nil
}

func writeIndex(ix *index.Index, path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	if err := ix.Save(f); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("writing index: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("writing index: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publishing index: %w", err)
	}
	return nil
}

// Get returns the metadata for one session.
func (s *Store) Get(ctx context.Context, id string) (domain.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, filename, created_at, chunk_count, index_path, preview FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// List returns every session, oldest first.
func (s *Store) List(ctx context.Context) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, created_at, chunk_count, index_path, preview FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	sessions := []domain.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// ResolveIndex loads the session's index from disk. It reloads on every call;
// a session whose index file is gone, unreadable, or built with a different
// embedding dimension is corrupt, not merely missing.
func (s *Store) ResolveIndex(ctx context.Context, id string) (*index.Index, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(sess.IndexPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: session %s has no index at %s", domain.ErrCorruptState, id, sess.IndexPath)
		}
		return nil, fmt.Errorf("opening index for session %s: %w", id, err)
	}
	defer f.Close()

	ix, err := index.Load(f)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	if dim := s.embedder.Dimension(); dim > 0 && ix.Dimension() != dim {
		return nil, fmt.Errorf("%w: session %s indexed at dimension %d, embedder now produces %d",
			domain.ErrCorruptState, id, ix.Dimension(), dim)
	}
	return ix, nil
}

// Delete removes the persisted index before the metadata row, so a crash
// mid-delete can orphan a file but never leave live metadata pointing at
// nothing. Deleting an unknown or already-deleted session returns NotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := os.Remove(sess.IndexPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing index for session %s: %w", id, err)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("removing session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	s.log.Infow("session deleted", "session_id", id)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (domain.Session, error) {
	var sess domain.Session
	var createdAt string
	err := row.Scan(&sess.ID, &sess.Filename, &createdAt, &sess.ChunkCount, &sess.IndexPath, &sess.Preview)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, fmt.Errorf("%w: session", domain.ErrNotFound)
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("reading session: %w", err)
	}
	sess.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: bad created_at for session %s", domain.ErrCorruptState, sess.ID)
	}
	return sess, nil
}
