package panel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sixcontrol/moviebot/internal/config"
)

var testNow = time.Unix(1_700_000_000, 0)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c := NewClient(config.Config{
		PanelBaseURL:  srv.URL,
		PanelAuthPath: "/panel_api.php",
		PanelTimeout:  2 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.now = func() time.Time { return testNow }
	return c
}

func userInfoBody(status string, expDate int64) string {
	return fmt.Sprintf(`{"user_info":{"username":"alice","password":"pw","status":%q,"exp_date":"%d","is_trial":"0","created_at":"1600000000","max_connections":"1"}}`, status, expDate)
}

func TestAuthenticateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("username"); got != "alice" {
			t.Errorf("username query = %q, want alice", got)
		}
		if got := r.URL.Query().Get("password"); got != "pw" {
			t.Errorf("password query = %q, want pw", got)
		}
		fmt.Fprint(w, userInfoBody("Active", testNow.Unix()+3600))
	}))
	defer srv.Close()

	info, err := newTestClient(t, srv).Authenticate(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if info.Username != "alice" || info.ExpDate != testNow.Unix()+3600 {
		t.Errorf("unexpected user info: %+v", info)
	}
}

func TestAuthenticateExpiryBoundary(t *testing.T) {
	// exp_date = now-1 fails, exp_date = now+1 passes.
	for _, tt := range []struct {
		offset  int64
		wantErr error
	}{
		{-1, ErrAccountExpired},
		{+1, nil},
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, userInfoBody("Active", testNow.Unix()+tt.offset))
		}))
		_, err := newTestClient(t, srv).Authenticate(context.Background(), "alice", "pw")
		srv.Close()
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("offset %+d: err = %v, want %v", tt.offset, err, tt.wantErr)
		}
	}
}

func TestAuthenticateFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantErr: ErrUnreachable,
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "<html>not json</html>")
			},
			wantErr: ErrBadResponse,
		},
		{
			name: "missing user_info means wrong password",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"server_info":{}}`)
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name: "inactive account",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, userInfoBody("Banned", testNow.Unix()+3600))
			},
			wantErr: ErrAccountInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := newTestClient(t, srv).Authenticate(context.Background(), "alice", "pw")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthenticateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	c.httpClient.Timeout = 50 * time.Millisecond

	_, err := c.Authenticate(context.Background(), "alice", "pw")
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}

func TestAuthenticateNumericExpDate(t *testing.T) {
	// Some panel builds return exp_date as a bare number.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"user_info":{"username":"alice","password":"pw","status":"Active","exp_date":%d}}`, testNow.Unix()+3600)
	}))
	defer srv.Close()

	info, err := newTestClient(t, srv).Authenticate(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if info.ExpDate != testNow.Unix()+3600 {
		t.Errorf("ExpDate = %d, want %d", info.ExpDate, testNow.Unix()+3600)
	}
}
