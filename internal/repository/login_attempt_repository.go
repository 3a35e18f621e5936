package repository

import (
	"context"
	"database/sql"
	"fmt"
)

type LoginAttemptRepository struct {
	db *sql.DB
}

func NewLoginAttemptRepository(db *sql.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

// Log records one login attempt, successful or not. Append-only.
func (r *LoginAttemptRepository) Log(ctx context.Context, username, ipAddress string, success bool) error {
	const query = `INSERT INTO login_attempts (username, ip_address, success) VALUES (?, NULLIF(?, ''), ?)`
	if _, err := r.db.ExecContext(ctx, query, username, ipAddress, success); err != nil {
		return fmt.Errorf("insert login attempt: %w", err)
	}
	return nil
}
