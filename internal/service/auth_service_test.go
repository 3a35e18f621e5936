package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sixcontrol/moviebot/internal/models"
	"github.com/sixcontrol/moviebot/internal/panel"
	"github.com/sixcontrol/moviebot/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockAuthenticator struct {
	authenticateFunc func(ctx context.Context, username, password string) (*panel.UserInfo, error)
	calls            int
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, username, password string) (*panel.UserInfo, error) {
	m.calls++
	if m.authenticateFunc != nil {
		return m.authenticateFunc(ctx, username, password)
	}
	return nil, errors.New("not implemented")
}

type mockUserStore struct {
	findFunc   func(ctx context.Context, username string) (*models.User, error)
	upsertFunc func(ctx context.Context, p repository.UpsertParams) error
	upserts    []repository.UpsertParams
}

func (m *mockUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, username)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserStore) Upsert(ctx context.Context, p repository.UpsertParams) error {
	m.upserts = append(m.upserts, p)
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, p)
	}
	return nil
}

type mockAttemptLogger struct {
	logFunc  func(ctx context.Context, username, ip string, success bool) error
	attempts []bool
}

func (m *mockAttemptLogger) Log(ctx context.Context, username, ip string, success bool) error {
	m.attempts = append(m.attempts, success)
	if m.logFunc != nil {
		return m.logFunc(ctx, username, ip, success)
	}
	return nil
}

func activePanelInfo() *panel.UserInfo {
	return &panel.UserInfo{
		Username: "alice",
		Password: "pw",
		Status:   models.StatusActive,
		ExpDate:  time.Now().Unix() + 86400,
	}
}

func TestLoginMissingCredentials(t *testing.T) {
	auth := &mockAuthenticator{}
	svc := NewAuthService(discardLogger(), auth, &mockUserStore{}, &mockAttemptLogger{})

	for _, creds := range [][2]string{{"", "pw"}, {"alice", ""}, {"  ", "pw"}} {
		if _, err := svc.Login(context.Background(), creds[0], creds[1], "1.2.3.4"); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("Login(%q, %q) = %v, want ErrMissingCredentials", creds[0], creds[1], err)
		}
	}
	if auth.calls != 0 {
		t.Errorf("panel called %d times for empty credentials, want 0", auth.calls)
	}
}

func TestLoginFirstTimeCreatesDefaultRoleUser(t *testing.T) {
	users := &mockUserStore{}
	var stored *models.User
	users.findFunc = func(ctx context.Context, username string) (*models.User, error) {
		return stored, nil
	}
	users.upsertFunc = func(ctx context.Context, p repository.UpsertParams) error {
		stored = &models.User{
			ID:               1,
			Username:         p.Username,
			Role:             p.Role,
			RequestCredits:   models.RoleCredits(p.Role),
			CreditsResetDate: repository.NextResetDate(time.Now()),
			ExpDate:          p.ExpDate,
			Status:           p.Status,
		}
		return nil
	}

	attempts := &mockAttemptLogger{}
	auth := &mockAuthenticator{authenticateFunc: func(ctx context.Context, u, p string) (*panel.UserInfo, error) {
		return activePanelInfo(), nil
	}}

	svc := NewAuthService(discardLogger(), auth, users, attempts)
	user, err := svc.Login(context.Background(), "alice", "pw", "1.2.3.4")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if user.Role != models.RoleUser {
		t.Errorf("Role = %q, want user", user.Role)
	}
	if user.RequestCredits != 5 {
		t.Errorf("RequestCredits = %d, want 5", user.RequestCredits)
	}
	wantReset := repository.NextResetDate(time.Now()).Format("2006-01-02")
	if got := user.CreditsResetDate.Format("2006-01-02"); got != wantReset {
		t.Errorf("CreditsResetDate = %s, want %s", got, wantReset)
	}
	if len(attempts.attempts) != 1 || !attempts.attempts[0] {
		t.Errorf("attempts = %v, want one successful", attempts.attempts)
	}
}

func TestLoginPreservesExistingRole(t *testing.T) {
	existing := &models.User{
		ID:             1,
		Username:       "alice",
		Role:           models.RoleReseller,
		RequestCredits: 17,
		TelegramName:   "Alice",
		TelegramUserID: "999",
	}

	users := &mockUserStore{
		findFunc: func(ctx context.Context, username string) (*models.User, error) {
			return existing, nil
		},
	}
	auth := &mockAuthenticator{authenticateFunc: func(ctx context.Context, u, p string) (*panel.UserInfo, error) {
		return activePanelInfo(), nil
	}}

	svc := NewAuthService(discardLogger(), auth, users, &mockAttemptLogger{})
	if _, err := svc.Login(context.Background(), "alice", "pw", ""); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if len(users.upserts) != 1 {
		t.Fatalf("upserts = %d, want 1", len(users.upserts))
	}
	p := users.upserts[0]
	if p.Role != models.RoleReseller {
		t.Errorf("upsert role = %q, want reseller (existing role must survive login)", p.Role)
	}
	if p.TelegramName != "Alice" || p.TelegramUserID != "999" {
		t.Errorf("telegram identity not preserved: %+v", p)
	}
}

func TestLoginPanelFailureLogsFailedAttempt(t *testing.T) {
	users := &mockUserStore{}
	attempts := &mockAttemptLogger{}
	auth := &mockAuthenticator{authenticateFunc: func(ctx context.Context, u, p string) (*panel.UserInfo, error) {
		return nil, panel.ErrInvalidCredentials
	}}

	svc := NewAuthService(discardLogger(), auth, users, attempts)
	_, err := svc.Login(context.Background(), "alice", "wrong", "1.2.3.4")
	if !errors.Is(err, panel.ErrInvalidCredentials) {
		t.Fatalf("Login() error = %v, want ErrInvalidCredentials", err)
	}

	if len(attempts.attempts) != 1 || attempts.attempts[0] {
		t.Errorf("attempts = %v, want one failed", attempts.attempts)
	}
	if len(users.upserts) != 0 {
		t.Error("failed login must not touch the user row")
	}
}

func TestLoginInactiveAccountNotUpserted(t *testing.T) {
	users := &mockUserStore{}
	auth := &mockAuthenticator{authenticateFunc: func(ctx context.Context, u, p string) (*panel.UserInfo, error) {
		return nil, panel.ErrAccountInactive
	}}

	svc := NewAuthService(discardLogger(), auth, users, &mockAttemptLogger{})
	if _, err := svc.Login(context.Background(), "alice", "pw", ""); !errors.Is(err, panel.ErrAccountInactive) {
		t.Fatalf("Login() error = %v, want ErrAccountInactive", err)
	}
	if len(users.upserts) != 0 {
		t.Error("inactive account must not create or update a user record")
	}
}

func TestLoginAuditFailureDoesNotBlockLogin(t *testing.T) {
	stored := &models.User{ID: 1, Username: "alice", Role: models.RoleUser, RequestCredits: 5}
	users := &mockUserStore{
		findFunc: func(ctx context.Context, username string) (*models.User, error) {
			return stored, nil
		},
	}
	attempts := &mockAttemptLogger{logFunc: func(ctx context.Context, u, ip string, s bool) error {
		return errors.New("audit table gone")
	}}
	auth := &mockAuthenticator{authenticateFunc: func(ctx context.Context, u, p string) (*panel.UserInfo, error) {
		return activePanelInfo(), nil
	}}

	svc := NewAuthService(discardLogger(), auth, users, attempts)
	if _, err := svc.Login(context.Background(), "alice", "pw", ""); err != nil {
		t.Fatalf("Login() error = %v, audit failures must be swallowed", err)
	}
}

func TestLoginStoreFailurePropagates(t *testing.T) {
	users := &mockUserStore{
		findFunc: func(ctx context.Context, username string) (*models.User, error) {
			return nil, errors.New("connection refused")
		},
	}
	auth := &mockAuthenticator{authenticateFunc: func(ctx context.Context, u, p string) (*panel.UserInfo, error) {
		return activePanelInfo(), nil
	}}

	svc := NewAuthService(discardLogger(), auth, users, &mockAttemptLogger{})
	if _, err := svc.Login(context.Background(), "alice", "pw", ""); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Login() error = %v, want ErrStoreUnavailable", err)
	}
}

func TestFormatExpDate(t *testing.T) {
	// 2025-03-15 12:00 UTC
	ts := time.Date(2025, 3, 15, 12, 0, 0, 0, time.Local).Unix()
	if got := FormatExpDate(ts); got != "15. März 2025" {
		t.Errorf("FormatExpDate() = %q, want %q", got, "15. März 2025")
	}
}
