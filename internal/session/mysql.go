package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MySQLStore persists sessions in the sessions table so logins survive
// process restarts.
type MySQLStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func NewMySQLStore(db *sql.DB, ttl time.Duration) *MySQLStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MySQLStore{db: db, ttl: ttl, now: time.Now}
}

func (s *MySQLStore) Create(ctx context.Context, data Data) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}

	id := uuid.NewString()
	const query = `INSERT INTO sessions (session_id, expires, data) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, id, s.now().Add(s.ttl).Unix(), string(raw)); err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return id, nil
}

func (s *MySQLStore) Get(ctx context.Context, id string) (*Data, error) {
	const query = `SELECT data, expires FROM sessions WHERE session_id = ?`
	var raw string
	var expires int64
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&raw, &expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select session: %w", err)
	}

	if expires < s.now().Unix() {
		_ = s.deleteByID(ctx, id)
		return nil, ErrNotFound
	}

	var data Data
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	// Slide the expiry window. Losing this write only shortens the window.
	const touch = `UPDATE sessions SET expires = ? WHERE session_id = ?`
	_, _ = s.db.ExecContext(ctx, touch, s.now().Add(s.ttl).Unix(), id)

	return &data, nil
}

func (s *MySQLStore) Update(ctx context.Context, id string, data Data) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	const query = `UPDATE sessions SET data = ?, expires = ? WHERE session_id = ?`
	res, err := s.db.ExecContext(ctx, query, string(raw), s.now().Add(s.ttl).Unix(), id)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("session rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MySQLStore) Delete(ctx context.Context, id string) error {
	return s.deleteByID(ctx, id)
}

func (s *MySQLStore) deleteByID(ctx context.Context, id string) error {
	const query = `DELETE FROM sessions WHERE session_id = ?`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpired removes sessions past their expiry. Called periodically by
// the reset job so the table does not grow without bound.
func (s *MySQLStore) PurgeExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires < ?`
	res, err := s.db.ExecContext(ctx, query, s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge rows affected: %w", err)
	}
	return affected, nil
}
