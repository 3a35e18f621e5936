package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sixcontrol/moviebot/internal/models"
	"github.com/sixcontrol/moviebot/internal/panel"
	"github.com/sixcontrol/moviebot/internal/repository"
)

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrStoreUnavailable   = errors.New("store unavailable")
)

// PanelAuthenticator verifies credentials against the upstream IPTV panel.
type PanelAuthenticator interface {
	Authenticate(ctx context.Context, username, password string) (*panel.UserInfo, error)
}

// UserStore is the slice of the credential store the login flow needs.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Upsert(ctx context.Context, p repository.UpsertParams) error
}

// LoginAttemptLogger records the security audit trail. Its failures must
// never block a login.
type LoginAttemptLogger interface {
	Log(ctx context.Context, username, ipAddress string, success bool) error
}

type AuthService struct {
	log      *slog.Logger
	panel    PanelAuthenticator
	users    UserStore
	attempts LoginAttemptLogger
}

func NewAuthService(log *slog.Logger, authenticator PanelAuthenticator, users UserStore, attempts LoginAttemptLogger) *AuthService {
	return &AuthService{
		log:      log,
		panel:    authenticator,
		users:    users,
		attempts: attempts,
	}
}

// Login runs the full flow: panel verification, audit logging, the
// role-preserving upsert and the canonical re-read. All real authentication
// is delegated to the panel; the stored password is a mirror, never checked
// locally.
func (s *AuthService) Login(ctx context.Context, username, password, ipAddress string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	info, err := s.panel.Authenticate(ctx, username, password)
	if err != nil {
		s.logAttempt(ctx, username, ipAddress, false)
		return nil, err
	}

	existing, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		s.log.Error("lookup user failed", "username", username, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Local role and telegram identity survive logins; everything the
	// panel owns is mirrored verbatim. A concurrent role change can race
	// this read, which is accepted.
	role := models.RoleUser
	telegramName := ""
	telegramUserID := ""
	email := ""
	if existing != nil {
		role = existing.Role
		telegramName = existing.TelegramName
		telegramUserID = existing.TelegramUserID
		email = existing.Email
	}

	err = s.users.Upsert(ctx, repository.UpsertParams{
		Username:       info.Username,
		Password:       info.Password,
		Email:          email,
		Role:           role,
		TelegramName:   telegramName,
		TelegramUserID: telegramUserID,
		ExpDate:        info.ExpDate,
		Status:         info.Status,
	})
	if err != nil {
		s.log.Error("upsert user failed", "username", username, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil || user == nil {
		s.log.Error("reload user failed", "username", username, "err", err)
		return nil, fmt.Errorf("%w: reload after upsert", ErrStoreUnavailable)
	}

	s.logAttempt(ctx, username, ipAddress, true)
	return user, nil
}

func (s *AuthService) logAttempt(ctx context.Context, username, ipAddress string, success bool) {
	if err := s.attempts.Log(ctx, username, ipAddress, success); err != nil {
		s.log.Error("log login attempt failed", "username", username, "err", err)
	}
}
