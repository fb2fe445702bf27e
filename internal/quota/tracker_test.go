package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/applypilot/applypilot-api/internal/apperr"
)

type fakeCounter struct {
	count     int
	err       error
	lastSince time.Time
}

func (f *fakeCounter) CountSince(_ context.Context, _ string, since time.Time) (int, error) {
	f.lastSince = since
	return f.count, f.err
}

func TestRemaining(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		used  int
		want  int
	}{
		{name: "unused", limit: 50, used: 0, want: 50},
		{name: "partially used", limit: 50, used: 20, want: 30},
		{name: "exactly spent", limit: 50, used: 50, want: 0},
		{name: "overspent never negative", limit: 50, used: 60, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewTracker(&fakeCounter{count: tt.used}, tt.limit)
			got, err := tracker.Remaining(context.Background(), "user-1")
			if err != nil {
				t.Fatalf("Remaining() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("Remaining() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRemainingMonotone(t *testing.T) {
	counter := &fakeCounter{}
	tracker := NewTracker(counter, 10)

	prev := 11
	for used := 0; used <= 15; used++ {
		counter.count = used
		got, err := tracker.Remaining(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("Remaining() error = %v", err)
		}
		if got < 0 {
			t.Fatalf("Remaining() = %d, must never be negative", got)
		}
		if got > prev {
			t.Fatalf("Remaining() increased from %d to %d as usage grew", prev, got)
		}
		prev = got
	}
}

func TestEnforce(t *testing.T) {
	counter := &fakeCounter{count: 0}
	tracker := NewTracker(counter, 1)

	remaining, err := tracker.Enforce(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Enforce() error = %v", err)
	}
	if remaining != 1 {
		t.Fatalf("Enforce() remaining = %d, want 1", remaining)
	}

	// First call consumed the quota; the second must fail.
	counter.count = 1
	_, err = tracker.Enforce(context.Background(), "user-1")
	if !errors.Is(err, apperr.ErrQuotaExceeded) {
		t.Fatalf("Enforce() error = %v, want ErrQuotaExceeded", err)
	}
}

func TestSlidingWindow(t *testing.T) {
	counter := &fakeCounter{}
	tracker := NewTracker(counter, 5)

	fixed := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	tracker.now = func() time.Time { return fixed }

	if _, err := tracker.Remaining(context.Background(), "user-1"); err != nil {
		t.Fatalf("Remaining() error = %v", err)
	}

	want := fixed.Add(-24 * time.Hour)
	if !counter.lastSince.Equal(want) {
		t.Fatalf("window start = %v, want %v (trailing 24h, not calendar day)", counter.lastSince, want)
	}
}

func TestEnforcePropagatesStorageError(t *testing.T) {
	boom := errors.New("db down")
	tracker := NewTracker(&fakeCounter{err: boom}, 5)

	_, err := tracker.Enforce(context.Background(), "user-1")
	if !errors.Is(err, boom) {
		t.Fatalf("Enforce() error = %v, want wrapped storage error", err)
	}
}
