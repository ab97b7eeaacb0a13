package entity

import "time"

const (
	backoffBase = 5 * time.Second
	backoffCap  = 30 * time.Second
)

// BackoffRemaining computes how long a caller must still wait before the next
// verification attempt is accepted.
//
// The first failure carries no penalty. From the second failure on, the
// mandatory wait doubles per failure starting at 5s and capped at 30s, and
// whatever already elapsed since the last failed attempt is subtracted.
func BackoffRemaining(attempts int32, lastAttemptAt *time.Time, now time.Time) time.Duration {
	if attempts <= 1 {
		return 0
	}

	base := backoffBase
	for i := int32(2); i < attempts && base < backoffCap; i++ {
		base *= 2
	}
	if base > backoffCap {
		base = backoffCap
	}

	var elapsed time.Duration
	if lastAttemptAt != nil {
		elapsed = now.Sub(*lastAttemptAt)
	}

	if remaining := base - elapsed; remaining > 0 {
		return remaining
	}
	return 0
}
