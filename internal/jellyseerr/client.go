// Package jellyseerr calls the downstream media-request service that actually
// fulfills movie/TV acquisition requests.
package jellyseerr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sixcontrol/moviebot/internal/config"
	"github.com/sixcontrol/moviebot/internal/models"
)

// Media status codes reported by Jellyseerr/Overseerr.
const (
	statusPending            = 2
	statusProcessing         = 3
	statusPartiallyAvailable = 4
	statusAvailable          = 5
)

// RequestError carries the downstream HTTP status and body so the caller can
// surface both to the client.
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("jellyseerr request failed: status=%d body=%s", e.StatusCode, e.Body)
}

// Availability is the normalized result of a media status lookup.
type Availability struct {
	Available bool `json:"available"`
	Requested bool `json:"requested"`
	Status    int  `json:"status"`
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg config.Config, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.JellyseerrURL, "/"),
		apiKey:  cfg.JellyseerrAPIKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// RequestMedia submits an acquisition request. TV requests always ask for all
// seasons.
func (c *Client) RequestMedia(ctx context.Context, mediaType models.MediaType, tmdbID int) error {
	payload := map[string]any{
		"mediaType": string(mediaType),
		"mediaId":   tmdbID,
	}
	if mediaType == models.MediaTypeTV {
		payload["seasons"] = "all"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/request", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post jellyseerr: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Error("jellyseerr request failed", "status", resp.StatusCode, "body", truncateBody(rawBody))
		return &RequestError{StatusCode: resp.StatusCode, Body: truncateBody(rawBody)}
	}

	return nil
}

// MediaStatus looks up whether the media is already available or requested.
// A non-2xx response means Jellyseerr does not know the title yet; that is
// reported as plain unavailability, not an error.
func (c *Client) MediaStatus(ctx context.Context, mediaType models.MediaType, tmdbID int) (*Availability, error) {
	url := fmt.Sprintf("%s/api/v1/%s/%d", c.baseURL, mediaType, tmdbID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get jellyseerr: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return &Availability{}, nil
	}

	var payload struct {
		MediaInfo *struct {
			Status int `json:"status"`
		} `json:"mediaInfo"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode media info: %w", err)
	}
	if payload.MediaInfo == nil {
		return &Availability{}, nil
	}

	status := payload.MediaInfo.Status
	return &Availability{
		Available: status == statusAvailable || status == statusPartiallyAvailable,
		Requested: status == statusProcessing || status == statusPending,
		Status:    status,
	}, nil
}

func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
