package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sixcontrol/moviebot/internal/models"
)

type RequestLogRepository struct {
	db *sql.DB
}

func NewRequestLogRepository(db *sql.DB) *RequestLogRepository {
	return &RequestLogRepository{db: db}
}

// Log appends one audit row per media-request attempt. Rows are never
// updated or deleted afterwards.
func (r *RequestLogRepository) Log(ctx context.Context, entry *models.RequestLog) error {
	status := entry.RequestStatus
	if status == "" {
		status = models.RequestStatusPending
	}

	const query = `
INSERT INTO request_logs
  (user_id, username, media_type, tmdb_id, media_title, request_status,
   error_message, ip_address, user_agent)
VALUES (?, ?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''))`

	if _, err := r.db.ExecContext(ctx, query,
		entry.UserID, entry.Username, entry.MediaType, entry.TMDBID, entry.MediaTitle,
		status, entry.ErrorMessage, entry.IPAddress, entry.UserAgent); err != nil {
		return fmt.Errorf("insert request log: %w", err)
	}
	return nil
}

// ListByUser returns the most recent request logs for a user, newest first.
func (r *RequestLogRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]models.RequestLog, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
SELECT id, user_id, username, media_type, tmdb_id, COALESCE(media_title, ''),
       request_status, COALESCE(error_message, ''), COALESCE(ip_address, ''),
       COALESCE(user_agent, ''), created_at
FROM request_logs
WHERE user_id = ?
ORDER BY created_at DESC
LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list request logs: %w", err)
	}
	defer rows.Close()

	var logs []models.RequestLog
	for rows.Next() {
		var l models.RequestLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Username, &l.MediaType, &l.TMDBID, &l.MediaTitle,
			&l.RequestStatus, &l.ErrorMessage, &l.IPAddress, &l.UserAgent, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan request log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
