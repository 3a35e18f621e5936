package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/sixcontrol/moviebot/internal/models"
	"github.com/sixcontrol/moviebot/internal/service"
	"github.com/sixcontrol/moviebot/internal/session"
)

// apiError is the envelope every failure path returns. The structured hints
// let the frontend react without parsing the message text.
type apiError struct {
	Success          bool   `json:"success"`
	Error            string `json:"error"`
	RequiresLogin    bool   `json:"requiresLogin,omitempty"`
	Expired          bool   `json:"expired,omitempty"`
	CreditsRemaining *int   `json:"creditsRemaining,omitempty"`
	ResetDate        string `json:"resetDate,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Error("encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiError{Error: message})
}

// userView is the public shape of a user row. The password never leaves the
// server.
type userView struct {
	ID               int64  `json:"id"`
	Username         string `json:"username"`
	Email            string `json:"email,omitempty"`
	Role             string `json:"role"`
	TelegramName     string `json:"telegram_name,omitempty"`
	RequestCredits   int    `json:"request_credits"`
	CreditsResetDate string `json:"credits_reset_date"`
	ExpDate          int64  `json:"exp_date"`
	ExpDateFormatted string `json:"exp_date_formatted"`
	Status           string `json:"status"`
}

func viewFromUser(u *models.User) userView {
	resetDate := ""
	if !u.CreditsResetDate.IsZero() {
		resetDate = u.CreditsResetDate.Format("2006-01-02")
	}
	return userView{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		Role:             string(u.Role),
		TelegramName:     u.TelegramName,
		RequestCredits:   u.RequestCredits,
		CreditsResetDate: resetDate,
		ExpDate:          u.ExpDate,
		ExpDateFormatted: service.FormatExpDate(u.ExpDate),
		Status:           u.Status,
	}
}

func viewFromSession(data *session.Data) userView {
	return userView{
		ID:               data.UserID,
		Username:         data.Username,
		Role:             string(data.Role),
		RequestCredits:   data.RequestCredits,
		CreditsResetDate: data.CreditsResetDate,
		ExpDate:          data.ExpDate,
		ExpDateFormatted: service.FormatExpDate(data.ExpDate),
	}
}

// requestLogView flattens a RequestLog row for the audit endpoint.
type requestLogView struct {
	ID            int64  `json:"id"`
	MediaType     string `json:"media_type"`
	TMDBID        int    `json:"tmdb_id"`
	MediaTitle    string `json:"media_title"`
	RequestStatus string `json:"request_status"`
	ErrorMessage  string `json:"error_message,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func viewFromRequestLog(l models.RequestLog) requestLogView {
	return requestLogView{
		ID:            l.ID,
		MediaType:     string(l.MediaType),
		TMDBID:        l.TMDBID,
		MediaTitle:    l.MediaTitle,
		RequestStatus: string(l.RequestStatus),
		ErrorMessage:  l.ErrorMessage,
		CreatedAt:     l.CreatedAt.Format(time.RFC3339),
	}
}
