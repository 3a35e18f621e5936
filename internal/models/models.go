package models

import "time"

type Role string

const (
	RoleUser     Role = "user"
	RoleReseller Role = "reseller"
	RoleAdmin    Role = "admin"
)

// RoleCredits returns the monthly request credit ceiling for a role.
// Admins get an effectively unlimited allowance.
func RoleCredits(role Role) int {
	switch role {
	case RoleAdmin:
		return 999999
	case RoleReseller:
		return 25
	default:
		return 5
	}
}

type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

func (m MediaType) Valid() bool {
	return m == MediaTypeMovie || m == MediaTypeTV
}

type RequestStatus string

const (
	RequestStatusPending RequestStatus = "pending"
	RequestStatusSuccess RequestStatus = "success"
	RequestStatusFailed  RequestStatus = "failed"
)

// StatusActive is the only panel account status allowed to log in.
const StatusActive = "Active"

type User struct {
	ID               int64
	Username         string
	Password         string
	Email            string
	Role             Role
	TelegramName     string
	TelegramUserID   string
	RequestCredits   int
	CreditsResetDate time.Time
	ExpDate          int64
	Status           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Expired reports whether the account expiry has passed at the given instant.
func (u *User) Expired(now time.Time) bool {
	return u.ExpDate < now.Unix()
}

type RequestLog struct {
	ID            int64
	UserID        int64
	Username      string
	MediaType     MediaType
	TMDBID        int
	MediaTitle    string
	RequestStatus RequestStatus
	ErrorMessage  string
	IPAddress     string
	UserAgent     string
	CreatedAt     time.Time
}

type LoginAttempt struct {
	ID        int64
	Username  string
	IPAddress string
	Success   bool
	CreatedAt time.Time
}
