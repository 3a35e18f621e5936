package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sixcontrol/moviebot/internal/jellyseerr"
	"github.com/sixcontrol/moviebot/internal/models"
	"github.com/sixcontrol/moviebot/internal/panel"
	"github.com/sixcontrol/moviebot/internal/service"
	"github.com/sixcontrol/moviebot/internal/session"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.auth.Login(r.Context(), req.Username, req.Password, clientIP(r))
	if err != nil {
		s.writeLoginError(w, err)
		return
	}

	id, err := s.sessions.Create(r.Context(), session.FromUser(user))
	if err != nil {
		s.log.Error("create session failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Service temporarily unavailable")
		return
	}
	if err := s.codec.Write(w, id); err != nil {
		s.log.Error("write session cookie failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Service temporarily unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    viewFromUser(user),
	})
}

func (s *Server) writeLoginError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrMissingCredentials):
		writeError(w, http.StatusBadRequest, "Username and password are required")
	case errors.Is(err, panel.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, panel.ErrAccountInactive):
		writeError(w, http.StatusForbidden, "Account is not active")
	case errors.Is(err, panel.ErrAccountExpired):
		writeJSON(w, http.StatusForbidden, apiError{Error: "Account has expired", Expired: true})
	case errors.Is(err, panel.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "Authentication timeout - please try again")
	case errors.Is(err, panel.ErrUnreachable), errors.Is(err, panel.ErrBadResponse):
		writeError(w, http.StatusBadGateway, "Authentication service unavailable")
	default:
		s.log.Error("login failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Service temporarily unavailable")
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if info := sessionFromContext(r.Context()); info != nil {
		if err := s.sessions.Delete(r.Context(), info.ID); err != nil {
			s.log.Error("delete session failed", "err", err)
		}
	}
	s.codec.Clear(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	info := sessionFromContext(r.Context())

	if info.Data.ExpDate < s.now().Unix() {
		writeJSON(w, http.StatusForbidden, apiError{Error: "Account has expired", Expired: true})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    viewFromSession(info.Data),
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	info := sessionFromContext(r.Context())

	logs, err := s.logs.ListByUser(r.Context(), info.Data.UserID, 50)
	if err != nil {
		s.log.Error("list request logs failed", "user_id", info.Data.UserID, "err", err)
		writeError(w, http.StatusInternalServerError, "Service temporarily unavailable")
		return
	}

	views := make([]requestLogView, 0, len(logs))
	for _, l := range logs {
		views = append(views, viewFromRequestLog(l))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"logs":    views,
	})
}

type mediaRequestBody struct {
	MediaType string `json:"mediaType"`
	TMDBID    int    `json:"tmdbId"`
	Title     string `json:"title"`
}

func (s *Server) handleRequestMedia(w http.ResponseWriter, r *http.Request) {
	info := sessionFromContext(r.Context())

	var body mediaRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	outcome, err := s.requests.Request(r.Context(), service.Requester{
		UserID:         info.Data.UserID,
		Username:       info.Data.Username,
		Role:           info.Data.Role,
		RequestCredits: info.Data.RequestCredits,
	}, service.MediaRequest{
		MediaType: models.MediaType(body.MediaType),
		TMDBID:    body.TMDBID,
		Title:     body.Title,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		var reqErr *jellyseerr.RequestError
		switch {
		case errors.As(err, &reqErr):
			writeError(w, reqErr.StatusCode, reqErr.Body)
		case errors.Is(err, service.ErrInvalidMediaRequest):
			writeError(w, http.StatusBadRequest, "Invalid media request")
		default:
			s.log.Error("media request failed", "err", err)
			writeError(w, http.StatusBadGateway, "Request service unavailable")
		}
		return
	}

	// Mirror the decrement into the session cache so the credits gate sees
	// the new value without a store read.
	if outcome.Charged {
		info.Data.RequestCredits = outcome.CreditsRemaining
		if err := s.sessions.Update(r.Context(), info.ID, *info.Data); err != nil {
			s.log.Error("update session credits failed", "err", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"creditsRemaining": outcome.CreditsRemaining,
	})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	mediaType := models.MediaType(chi.URLParam(r, "mediaType"))
	tmdbID, err := strconv.Atoi(chi.URLParam(r, "tmdbId"))
	if !mediaType.Valid() || err != nil || tmdbID <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid media reference")
		return
	}

	avail, err := s.checker.MediaStatus(r.Context(), mediaType, tmdbID)
	if err != nil {
		s.log.Error("availability check failed", "err", err)
		writeJSON(w, http.StatusOK, &jellyseerr.Availability{})
		return
	}
	writeJSON(w, http.StatusOK, avail)
}

func (s *Server) handleTMDBSearch(w http.ResponseWriter, r *http.Request) {
	mediaType := models.MediaType(r.URL.Query().Get("type"))
	if mediaType == "" {
		mediaType = models.MediaTypeMovie
	}
	query := r.URL.Query().Get("query")
	if !mediaType.Valid() || query == "" {
		writeError(w, http.StatusBadRequest, "Invalid search")
		return
	}

	results, err := s.metadata.Search(r.Context(), mediaType, query)
	if err != nil {
		s.log.Error("tmdb search failed", "err", err)
		writeError(w, http.StatusBadGateway, "Metadata service unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"results": results,
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tmdbApiKey":    s.cfg.TMDBAPIKey,
		"jellyseerrUrl": s.cfg.JellyseerrURL,
	})
}
