package entity

import (
	"testing"
	"time"
)

func TestBackoffRemaining(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		attempts int32
		elapsed  time.Duration
		noLast   bool
		want     time.Duration
	}{
		{name: "zero attempts", attempts: 0, want: 0},
		{name: "first failure free", attempts: 1, want: 0},
		{name: "second failure", attempts: 2, want: 5 * time.Second},
		{name: "third failure", attempts: 3, want: 10 * time.Second},
		{name: "fourth failure", attempts: 4, want: 20 * time.Second},
		{name: "capped at thirty seconds", attempts: 6, want: 30 * time.Second},
		{name: "deep failure still capped", attempts: 40, want: 30 * time.Second},
		{name: "window already elapsed", attempts: 3, elapsed: 100 * time.Second, want: 0},
		{name: "partially elapsed", attempts: 2, elapsed: 2 * time.Second, want: 3 * time.Second},
		{name: "missing last attempt means full wait", attempts: 2, noLast: true, want: 5 * time.Second},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var last *time.Time
			if !tc.noLast {
				at := now.Add(-tc.elapsed)
				last = &at
			}

			got := BackoffRemaining(tc.attempts, last, now)
			if got != tc.want {
				t.Fatalf("BackoffRemaining(%d, elapsed=%s) = %s, want %s", tc.attempts, tc.elapsed, got, tc.want)
			}
		})
	}
}
