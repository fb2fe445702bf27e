// Package quota caps AI usage per user over a rolling 24-hour window.
package quota

import (
	"context"
	"time"

	"github.com/applypilot/applypilot-api/internal/apperr"
)

// UsageCounter is the slice of the AI request repository the tracker needs.
type UsageCounter interface {
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
}

type Tracker struct {
	counter    UsageCounter
	dailyLimit int
	now        func() time.Time
}

func NewTracker(counter UsageCounter, dailyLimit int) *Tracker {
	return &Tracker{
		counter:    counter,
		dailyLimit: dailyLimit,
		now:        time.Now,
	}
}

func (t *Tracker) Limit() int {
	return t.dailyLimit
}

// Remaining returns how many AI calls the user has left in the trailing 24
// hours. Never negative.
func (t *Tracker) Remaining(ctx context.Context, userID string) (int, error) {
	used, err := t.Used(ctx, userID)
	if err != nil {
		return 0, err
	}
	remaining := t.dailyLimit - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (t *Tracker) Used(ctx context.Context, userID string) (int, error) {
	since := t.now().Add(-24 * time.Hour)
	return t.counter.CountSince(ctx, userID, since)
}

// Enforce fails with apperr.ErrQuotaExceeded when the quota is spent,
// otherwise returns the remaining count. There is no locking: concurrent
// requests can both pass the check, overselling the quota by the number of
// requests in flight.
func (t *Tracker) Enforce(ctx context.Context, userID string) (int, error) {
	remaining, err := t.Remaining(ctx, userID)
	if err != nil {
		return 0, err
	}
	if remaining <= 0 {
		return 0, apperr.ErrQuotaExceeded
	}
	return remaining, nil
}
