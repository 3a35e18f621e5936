package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sixcontrol/moviebot/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) DB() *sql.DB {
	return r.db
}

const userColumns = `id, username, password, COALESCE(email, ''), role, COALESCE(telegram_name, ''), COALESCE(telegram_user_id, ''), request_credits, credits_reset_date, COALESCE(exp_date, 0), COALESCE(status, ''), created_at, updated_at`

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	return r.scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var resetDate sql.NullTime
	if err := row.Scan(&u.ID, &u.Username, &u.Password, &u.Email, &u.Role, &u.TelegramName, &u.TelegramUserID, &u.RequestCredits, &resetDate, &u.ExpDate, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if resetDate.Valid {
		u.CreditsResetDate = resetDate.Time
	}
	return &u, nil
}

// UpsertParams carries the externally-owned fields mirrored on every login.
// Credits and the reset date are computed here only when the row is first
// inserted; updates leave them untouched.
type UpsertParams struct {
	Username       string
	Password       string
	Email          string
	Role           models.Role
	TelegramName   string
	TelegramUserID string
	ExpDate        int64
	Status         string
}

func (r *UserRepository) Upsert(ctx context.Context, p UpsertParams) error {
	role := p.Role
	if role == "" {
		role = models.RoleUser
	}
	status := p.Status
	if status == "" {
		status = models.StatusActive
	}

	credits := models.RoleCredits(role)
	resetDate := NextResetDate(time.Now())

	const query = `
INSERT INTO users
  (username, password, email, role, telegram_name, telegram_user_id,
   request_credits, credits_reset_date, exp_date, status)
VALUES (?, ?, NULLIF(?, ''), ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  password = VALUES(password),
  email = VALUES(email),
  role = VALUES(role),
  telegram_name = VALUES(telegram_name),
  telegram_user_id = VALUES(telegram_user_id),
  exp_date = VALUES(exp_date),
  status = VALUES(status),
  updated_at = CURRENT_TIMESTAMP`

	if _, err := r.db.ExecContext(ctx, query,
		p.Username, p.Password, p.Email, role, p.TelegramName, p.TelegramUserID,
		credits, resetDate.Format("2006-01-02"), p.ExpDate, status); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// DecreaseCredits atomically consumes one request credit. The conditional
// WHERE clause is the enforcement point for the credits-never-negative
// invariant; the returned bool reports whether a credit was actually taken.
func (r *UserRepository) DecreaseCredits(ctx context.Context, userID int64) (bool, error) {
	const query = `
UPDATE users SET request_credits = request_credits - 1
WHERE id = ? AND request_credits > 0`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return false, fmt.Errorf("decrease credits: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("credits rows affected: %w", err)
	}
	return affected > 0, nil
}

// ResetMonthlyCredits restores the role ceiling for every user whose reset
// date has arrived and advances that date by one calendar month from its
// previous value, keeping the cycle anchored even when the job runs late.
// Running it twice on the same day is a no-op for already-reset rows.
func (r *UserRepository) ResetMonthlyCredits(ctx context.Context) (int64, error) {
	const query = `
UPDATE users
SET
  request_credits = CASE
    WHEN role = 'admin' THEN 999999
    WHEN role = 'reseller' THEN 25
    ELSE 5
  END,
  credits_reset_date = DATE_ADD(credits_reset_date, INTERVAL 1 MONTH)
WHERE credits_reset_date <= CURDATE()`
	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("reset monthly credits: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset rows affected: %w", err)
	}
	return affected, nil
}

// NextResetDate returns the first day of the month after now, in server
// local time.
func NextResetDate(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
}
