package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sixcontrol/moviebot/internal/config"
	"github.com/sixcontrol/moviebot/internal/jellyseerr"
	"github.com/sixcontrol/moviebot/internal/models"
	"github.com/sixcontrol/moviebot/internal/service"
	"github.com/sixcontrol/moviebot/internal/session"
	"github.com/sixcontrol/moviebot/internal/tmdb"
)

// RequestLogLister reads the per-user audit trail for the logs endpoint.
type RequestLogLister interface {
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.RequestLog, error)
}

// AvailabilityChecker answers whether media is already present downstream.
type AvailabilityChecker interface {
	MediaStatus(ctx context.Context, mediaType models.MediaType, tmdbID int) (*jellyseerr.Availability, error)
}

// MetadataSearcher proxies TMDB search for the frontend.
type MetadataSearcher interface {
	Search(ctx context.Context, mediaType models.MediaType, query string) ([]tmdb.Result, error)
}

type Server struct {
	cfg      config.Config
	log      *slog.Logger
	auth     *service.AuthService
	requests *service.RequestService
	logs     RequestLogLister
	checker  AvailabilityChecker
	metadata MetadataSearcher
	sessions session.Store
	codec    *session.CookieCodec
	router   *chi.Mux
	now      func() time.Time
}

func New(cfg config.Config, log *slog.Logger, auth *service.AuthService, requests *service.RequestService, logs RequestLogLister, checker AvailabilityChecker, metadata MetadataSearcher, sessions session.Store, codec *session.CookieCodec) *Server {
	s := &Server{
		cfg:      cfg,
		log:      log,
		auth:     auth,
		requests: requests,
		logs:     logs,
		checker:  checker,
		metadata: metadata,
		sessions: sessions,
		codec:    codec,
		now:      time.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.withSession)

	r.Route("/api", func(api chi.Router) {
		api.Get("/config", s.handleConfig)

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", s.handleLogin)
			auth.Post("/logout", s.handleLogout)
			auth.Group(func(protected chi.Router) {
				protected.Use(s.requireAuth)
				protected.Get("/me", s.handleMe)
				protected.Get("/logs", s.handleLogs)
			})
		})

		api.Route("/jellyseerr", func(jelly chi.Router) {
			jelly.Get("/check/{mediaType}/{tmdbId}", s.handleCheck)
			jelly.Group(func(gated chi.Router) {
				gated.Use(s.requireAuth, s.requireCredits)
				gated.Post("/request", s.handleRequestMedia)
			})
		})

		api.Get("/tmdb/search", s.handleTMDBSearch)
	})

	if cfg.StaticDir != "" {
		s.mountStatic(r, cfg.StaticDir)
	}

	s.router = r
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("server shutdown error", "err", err)
		}
	}()

	s.log.Info("api server listening", "addr", s.cfg.ListenAddr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api listen: %w", err)
	}
	return nil
}

// mountStatic serves the Mini App assets with an index.html fallback so the
// SPA router owns every non-API path.
func (s *Server) mountStatic(r *chi.Mux, dir string) {
	fs := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")

	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		path := filepath.Join(dir, filepath.Clean("/"+req.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			fs.ServeHTTP(w, req)
			return
		}
		http.ServeFile(w, req, index)
	})
}

func clientIP(r *http.Request) string {
	// middleware.RealIP already rewrote RemoteAddr from the forwarding
	// headers where present.
	ip := r.RemoteAddr
	if i := strings.LastIndex(ip, ":"); i > 0 {
		ip = ip[:i]
	}
	return strings.Trim(ip, "[]")
}
