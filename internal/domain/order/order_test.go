package order

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestIsOverdue(t *testing.T) {
	today := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

	yesterday := today.AddDate(0, 0, -1)
	tomorrow := today.AddDate(0, 0, 1)
	sameDay := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	longPast := today.AddDate(-1, 0, 0)

	cases := []struct {
		name     string
		promised *time.Time
		want     bool
	}{
		{"nil date is never overdue", nil, false},
		{"yesterday is overdue", &yesterday, true},
		{"long past is overdue", &longPast, true},
		{"same day is on schedule", &sameDay, false},
		{"tomorrow is on schedule", &tomorrow, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsOverdue(tc.promised, today); got != tc.want {
				t.Fatalf("IsOverdue(%v, %v) = %v, want %v", tc.promised, today, got, tc.want)
			}
		})
	}
}

func TestIsOverdue_IgnoresTimeOfDay(t *testing.T) {
	// Promised late in the evening of the current date, checked early in
	// the morning: still the same calendar day, still on schedule.
	promised := time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC)
	today := time.Date(2026, 3, 15, 0, 1, 0, 0, time.UTC)

	if IsOverdue(&promised, today) {
		t.Fatalf("same calendar day must not be overdue regardless of time of day")
	}
}

func TestMarkOverdue(t *testing.T) {
	o := New(uuid.New(), "12345678", StatusFound, "")
	o.MarkOverdue()
	if o.Status != StatusOverdue {
		t.Fatalf("expected status %q, got %q", StatusOverdue, o.Status)
	}
}
