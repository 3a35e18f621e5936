// Package panel talks to the upstream IPTV panel API that owns the real
// username/password/expiry truth. The panel signals a wrong password by
// omitting user_info from an otherwise valid response; there is no dedicated
// error field.
package panel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sixcontrol/moviebot/internal/config"
)

var (
	ErrTimeout            = errors.New("panel: authentication timed out")
	ErrUnreachable        = errors.New("panel: api unreachable")
	ErrBadResponse        = errors.New("panel: invalid response format")
	ErrInvalidCredentials = errors.New("panel: invalid credentials")
	ErrAccountInactive    = errors.New("panel: account is not active")
	ErrAccountExpired     = errors.New("panel: account has expired")
)

// UserInfo is the normalized result of a successful panel authentication.
type UserInfo struct {
	Username       string
	Password       string
	Status         string
	ExpDate        int64
	IsTrial        string
	CreatedAt      string
	MaxConnections string
}

type Client struct {
	baseURL    string
	authPath   string
	httpClient *http.Client
	log        *slog.Logger
	now        func() time.Time
}

func NewClient(cfg config.Config, log *slog.Logger) *Client {
	timeout := cfg.PanelTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.PanelBaseURL, "/"),
		authPath: cfg.PanelAuthPath,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
		now: time.Now,
	}
}

// flexString tolerates the panel returning either quoted or bare values.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	*f = flexString(strings.Trim(string(b), `"`))
	return nil
}

type userInfoPayload struct {
	Username       flexString `json:"username"`
	Password       flexString `json:"password"`
	Status         flexString `json:"status"`
	ExpDate        flexString `json:"exp_date"`
	IsTrial        flexString `json:"is_trial"`
	CreatedAt      flexString `json:"created_at"`
	MaxConnections flexString `json:"max_connections"`
}

// Authenticate checks the credentials against the panel API and validates
// account status and expiry. The credentials travel as query parameters;
// that is the panel's own protocol, not ours to fix.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*UserInfo, error) {
	endpoint, err := url.Parse(c.baseURL + c.authPath)
	if err != nil {
		return nil, fmt.Errorf("parse panel url: %w", err)
	}
	params := url.Values{}
	params.Set("username", username)
	params.Set("password", password)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.log.Warn("panel authentication timed out", "username", username)
			return nil, ErrTimeout
		}
		c.log.Error("panel request failed", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Error("panel request failed", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status=%d", ErrUnreachable, resp.StatusCode)
	}

	var payload struct {
		UserInfo *userInfoPayload `json:"user_info"`
	}
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	if payload.UserInfo == nil {
		return nil, ErrInvalidCredentials
	}
	info := payload.UserInfo

	if string(info.Status) != "Active" {
		return nil, ErrAccountInactive
	}

	expDate, err := strconv.ParseInt(string(info.ExpDate), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad exp_date %q", ErrBadResponse, info.ExpDate)
	}
	if expDate < c.now().Unix() {
		return nil, ErrAccountExpired
	}

	return &UserInfo{
		Username:       string(info.Username),
		Password:       string(info.Password),
		Status:         string(info.Status),
		ExpDate:        expDate,
		IsTrial:        string(info.IsTrial),
		CreatedAt:      string(info.CreatedAt),
		MaxConnections: string(info.MaxConnections),
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
