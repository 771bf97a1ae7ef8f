package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
)

// SessionRepo implements session.Store with the token persisted to SQLite so
// a sign-in survives restarts. Reads serve from memory; writes go through.
type SessionRepo struct {
	db *DB

	mu    sync.RWMutex
	token string
}

// NewSessionRepo loads any persisted token and returns the repo.
func NewSessionRepo(ctx context.Context, db *DB) (*SessionRepo, error) {
	r := &SessionRepo{db: db}

	var token string
	err := db.GetContext(ctx, &token, `SELECT token FROM session WHERE id = 1`)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	r.token = token
	return r, nil
}

func (r *SessionRepo) Credential() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.token, r.token != ""
}

// Set stores the token and persists it under the same lock, so concurrent
// Set/Clear reach disk in the same order the memory copy saw them.
func (r *SessionRepo) Set(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.token = token

	_, err := r.db.Exec(
		`INSERT INTO session (id, token) VALUES (1, ?)
		 ON CONFLICT (id) DO UPDATE SET token = excluded.token`,
		token,
	)
	if err != nil {
		slog.Error("Failed to persist session token", "error", err)
	}
}

func (r *SessionRepo) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.token = ""

	if _, err := r.db.Exec(`DELETE FROM session WHERE id = 1`); err != nil {
		slog.Error("Failed to clear persisted session token", "error", err)
	}
}
