// Package session holds the server-side login state for one browser/device.
// The stored snapshot of the user's authorization fields is a best-effort
// mirror of the users table; the store row is re-read only on true credit
// decrement, so a session can lag behind out-of-band changes for at most its
// own lifetime.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/sixcontrol/moviebot/internal/models"
)

var ErrNotFound = errors.New("session not found")

// DefaultTTL is the sliding session window.
const DefaultTTL = 7 * 24 * time.Hour

// Data is the per-session state established at login.
type Data struct {
	UserID           int64       `json:"userId"`
	Username         string      `json:"username"`
	Role             models.Role `json:"role"`
	RequestCredits   int         `json:"requestCredits"`
	CreditsResetDate string      `json:"creditsResetDate"`
	ExpDate          int64       `json:"expDate"`
}

// FromUser builds the session snapshot from a canonical user row.
func FromUser(u *models.User) Data {
	resetDate := ""
	if !u.CreditsResetDate.IsZero() {
		resetDate = u.CreditsResetDate.Format("2006-01-02")
	}
	return Data{
		UserID:           u.ID,
		Username:         u.Username,
		Role:             u.Role,
		RequestCredits:   u.RequestCredits,
		CreditsResetDate: resetDate,
		ExpDate:          u.ExpDate,
	}
}

// Store persists sessions keyed by an opaque ID. Get slides the expiry
// window on every hit.
type Store interface {
	Create(ctx context.Context, data Data) (string, error)
	Get(ctx context.Context, id string) (*Data, error)
	Update(ctx context.Context, id string, data Data) error
	Delete(ctx context.Context, id string) error
}
