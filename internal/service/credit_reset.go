package service

import (
	"context"
	"log/slog"
	"time"
)

// MonthlyResetter restores role-ceiling credits for rows whose reset date
// has arrived.
type MonthlyResetter interface {
	ResetMonthlyCredits(ctx context.Context) (int64, error)
}

// SessionPurger drops expired persisted sessions; optional.
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// CreditResetJob runs the monthly credit reset on a fixed interval. The
// reset itself is idempotent per calendar day, so the schedule only needs to
// fire at least once a day, not exactly once.
type CreditResetJob struct {
	log      *slog.Logger
	ledger   MonthlyResetter
	sessions SessionPurger
	interval time.Duration
}

func NewCreditResetJob(log *slog.Logger, ledger MonthlyResetter, sessions SessionPurger, interval time.Duration) *CreditResetJob {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &CreditResetJob{
		log:      log,
		ledger:   ledger,
		sessions: sessions,
		interval: interval,
	}
}

// Run executes one pass immediately, then on every tick until the context is
// cancelled.
func (j *CreditResetJob) Run(ctx context.Context) error {
	j.RunOnce(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.RunOnce(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce performs a single reset pass. Exposed so tests and operators can
// trigger it without waiting on the timer.
func (j *CreditResetJob) RunOnce(ctx context.Context) {
	affected, err := j.ledger.ResetMonthlyCredits(ctx)
	if err != nil {
		j.log.Error("monthly credit reset failed", "err", err)
	} else if affected > 0 {
		j.log.Info("monthly credits reset", "users", affected)
	}

	if j.sessions == nil {
		return
	}
	purged, err := j.sessions.PurgeExpired(ctx)
	if err != nil {
		j.log.Error("session purge failed", "err", err)
	} else if purged > 0 {
		j.log.Info("expired sessions purged", "sessions", purged)
	}
}
