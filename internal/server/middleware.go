package server

import (
	"context"
	"net/http"

	"github.com/sixcontrol/moviebot/internal/models"
	"github.com/sixcontrol/moviebot/internal/session"
)

type contextKey int

const sessionContextKey contextKey = iota

// sessionInfo carries the resolved session through the request context so
// handlers can update the cached snapshot in place.
type sessionInfo struct {
	ID   string
	Data *session.Data
}

func sessionFromContext(ctx context.Context) *sessionInfo {
	info, _ := ctx.Value(sessionContextKey).(*sessionInfo)
	return info
}

// withSession resolves the session cookie if present. It never rejects; the
// gates below decide.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.codec.Read(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		data, err := s.sessions.Get(r.Context(), id)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey, &sessionInfo{ID: id, Data: data})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth short-circuits unauthenticated requests with a hint telling
// the client to show the login screen. It never touches the store.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := sessionFromContext(r.Context())
		if info == nil || info.Data.UserID == 0 {
			writeJSON(w, http.StatusUnauthorized, apiError{
				Error:         "Authentication required",
				RequiresLogin: true,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireCredits is a fast pre-filter over the session's cached credit
// count. Admins bypass it unconditionally. The real enforcement is the
// ledger's conditional decrement; this gate only spares a doomed downstream
// call.
func (s *Server) requireCredits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := sessionFromContext(r.Context())
		if info == nil {
			writeJSON(w, http.StatusUnauthorized, apiError{
				Error:         "Authentication required",
				RequiresLogin: true,
			})
			return
		}

		if info.Data.Role == models.RoleAdmin {
			next.ServeHTTP(w, r)
			return
		}

		if info.Data.RequestCredits <= 0 {
			zero := 0
			writeJSON(w, http.StatusForbidden, apiError{
				Error:            "No request credits available",
				CreditsRemaining: &zero,
				ResetDate:        info.Data.CreditsResetDate,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
