package jellyseerr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sixcontrol/moviebot/internal/config"
	"github.com/sixcontrol/moviebot/internal/models"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(config.Config{
		JellyseerrURL:    srv.URL,
		JellyseerrAPIKey: "test-key",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRequestMediaMovie(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/request" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			t.Error("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":1}`)
	}))
	defer srv.Close()

	if err := newTestClient(srv).RequestMedia(context.Background(), models.MediaTypeMovie, 550); err != nil {
		t.Fatalf("RequestMedia() error = %v", err)
	}
	if got["mediaType"] != "movie" || got["mediaId"] != float64(550) {
		t.Errorf("payload = %v", got)
	}
	if _, ok := got["seasons"]; ok {
		t.Error("movie request must not carry seasons")
	}
}

func TestRequestMediaTVAsksAllSeasons(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	if err := newTestClient(srv).RequestMedia(context.Background(), models.MediaTypeTV, 1399); err != nil {
		t.Fatalf("RequestMedia() error = %v", err)
	}
	if got["seasons"] != "all" {
		t.Errorf("seasons = %v, want all", got["seasons"])
	}
}

func TestRequestMediaFailureCarriesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"message":"boom"}`)
	}))
	defer srv.Close()

	err := newTestClient(srv).RequestMedia(context.Background(), models.MediaTypeMovie, 550)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("err = %v, want *RequestError", err)
	}
	if reqErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", reqErr.StatusCode)
	}
	if reqErr.Body != `{"message":"boom"}` {
		t.Errorf("Body = %q", reqErr.Body)
	}
}

func TestMediaStatusMapping(t *testing.T) {
	tests := []struct {
		status        int
		wantAvailable bool
		wantRequested bool
	}{
		{2, false, true},
		{3, false, true},
		{4, true, false},
		{5, true, false},
		{1, false, false},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `{"mediaInfo":{"status":%d}}`, tt.status)
		}))
		avail, err := newTestClient(srv).MediaStatus(context.Background(), models.MediaTypeMovie, 550)
		srv.Close()
		if err != nil {
			t.Fatalf("status %d: MediaStatus() error = %v", tt.status, err)
		}
		if avail.Available != tt.wantAvailable || avail.Requested != tt.wantRequested {
			t.Errorf("status %d: got %+v", tt.status, avail)
		}
	}
}

func TestMediaStatusUnknownTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	avail, err := newTestClient(srv).MediaStatus(context.Background(), models.MediaTypeMovie, 550)
	if err != nil {
		t.Fatalf("MediaStatus() error = %v", err)
	}
	if avail.Available || avail.Requested {
		t.Errorf("unknown title should be unavailable, got %+v", avail)
	}
}
