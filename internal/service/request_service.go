package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sixcontrol/moviebot/internal/models"
)

var ErrInvalidMediaRequest = errors.New("invalid media request")

// MediaRequester submits the acquisition request downstream.
type MediaRequester interface {
	RequestMedia(ctx context.Context, mediaType models.MediaType, tmdbID int) error
}

// CreditLedger is the only mutator of request_credits. DecreaseCredits must
// be atomic: it reports false instead of ever driving the counter negative.
type CreditLedger interface {
	DecreaseCredits(ctx context.Context, userID int64) (bool, error)
}

// RequestLogStore appends the per-attempt audit row.
type RequestLogStore interface {
	Log(ctx context.Context, entry *models.RequestLog) error
}

type RequestService struct {
	log       *slog.Logger
	requester MediaRequester
	ledger    CreditLedger
	logs      RequestLogStore
}

func NewRequestService(log *slog.Logger, requester MediaRequester, ledger CreditLedger, logs RequestLogStore) *RequestService {
	return &RequestService{
		log:       log,
		requester: requester,
		ledger:    ledger,
		logs:      logs,
	}
}

// Requester identifies the session user on whose behalf the request runs.
type Requester struct {
	UserID         int64
	Username       string
	Role           models.Role
	RequestCredits int
}

type MediaRequest struct {
	MediaType models.MediaType
	TMDBID    int
	Title     string
	IPAddress string
	UserAgent string
}

type RequestOutcome struct {
	CreditsRemaining int
	Charged          bool
}

// Request submits the media request downstream and, on success, consumes one
// credit unless the requester is an admin. Every attempt — either outcome —
// produces exactly one request log row.
func (s *RequestService) Request(ctx context.Context, who Requester, req MediaRequest) (*RequestOutcome, error) {
	if !req.MediaType.Valid() || req.TMDBID <= 0 {
		return nil, fmt.Errorf("%w: mediaType=%q tmdbId=%d", ErrInvalidMediaRequest, req.MediaType, req.TMDBID)
	}

	entry := &models.RequestLog{
		UserID:     who.UserID,
		Username:   who.Username,
		MediaType:  req.MediaType,
		TMDBID:     req.TMDBID,
		MediaTitle: req.Title,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
	}

	if err := s.requester.RequestMedia(ctx, req.MediaType, req.TMDBID); err != nil {
		entry.RequestStatus = models.RequestStatusFailed
		entry.ErrorMessage = err.Error()
		s.appendLog(ctx, entry)
		return nil, err
	}

	outcome := &RequestOutcome{CreditsRemaining: who.RequestCredits}
	if who.Role != models.RoleAdmin {
		ok, err := s.ledger.DecreaseCredits(ctx, who.UserID)
		switch {
		case err != nil:
			// The downstream request already succeeded; an under-charge
			// beats double-submitting it. No compensating transaction.
			s.log.Error("credit decrement failed after successful request", "user_id", who.UserID, "err", err)
		case ok:
			outcome.Charged = true
			if outcome.CreditsRemaining > 0 {
				outcome.CreditsRemaining--
			}
		default:
			// Lost a race against a concurrent request from another
			// device; the ledger held the floor at zero.
			outcome.CreditsRemaining = 0
		}
	}

	entry.RequestStatus = models.RequestStatusSuccess
	s.appendLog(ctx, entry)
	return outcome, nil
}

func (s *RequestService) appendLog(ctx context.Context, entry *models.RequestLog) {
	if err := s.logs.Log(ctx, entry); err != nil {
		s.log.Error("log media request failed", "user_id", entry.UserID, "err", err)
	}
}
