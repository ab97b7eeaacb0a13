package entity

import "time"

// DefaultMaxAttempts is the failed-attempt ceiling after which a record is
// blocked for good.
const DefaultMaxAttempts = 5

// VerifyPolicy carries the tunables of the verification state machine.
type VerifyPolicy struct {
	MaxAttempts int32
}

// AttemptMutation asks the store to record one more failed attempt against a
// record, optionally blocking it.
type AttemptMutation struct {
	RecordID      int64
	Attempts      int32
	LastAttemptAt time.Time
	Blocked       bool
}

// Decision is the outcome of Evaluate plus the state changes the store must
// persist in the same transaction that loaded the records.
type Decision struct {
	Result        VerificationResult
	ConsumeID     int64            // record to mark consumed, 0 if none
	FailedAttempt *AttemptMutation // attempt counter update, nil if none
}

// Evaluate runs the verification state machine over an identifier's records,
// ordered newest first. It is pure: callers load the rows under a lock, apply
// the returned mutations and commit.
//
// The submitted code is matched against the newest record first; a miss falls
// back to an exact match anywhere in the history, so a still-valid older code
// re-entered during a multi-screen signup flow keeps working. Backoff is
// checked before anything mutates, and an already-consumed match succeeds
// again without state change so clients can retry a verify call after a
// network timeout.
func Evaluate(records []OTPRecord, code string, now time.Time, pol VerifyPolicy) Decision {
	if pol.MaxAttempts <= 0 {
		pol.MaxAttempts = DefaultMaxAttempts
	}

	if len(records) == 0 {
		return Decision{Result: VerificationResult{Reason: ReasonNoActiveCode}}
	}

	latest := records[0]

	if latest.Blocked {
		return Decision{Result: VerificationResult{Reason: ReasonBlocked}}
	}

	if remaining := BackoffRemaining(latest.Attempts, latest.LastAttemptAt, now); remaining > 0 {
		return Decision{Result: VerificationResult{
			Reason:     ReasonRateLimited,
			RetryAfter: remaining,
		}}
	}

	matched := latest
	if latest.Code != code {
		found := false
		for _, rec := range records[1:] {
			if rec.Code == code {
				matched = rec
				found = true
				break
			}
		}

		if !found {
			attempts := latest.Attempts + 1
			return Decision{
				Result: VerificationResult{Reason: ReasonInvalidCode},
				FailedAttempt: &AttemptMutation{
					RecordID:      latest.ID,
					Attempts:      attempts,
					LastAttemptAt: now,
					Blocked:       attempts >= pol.MaxAttempts,
				},
			}
		}
	}

	if matched.Blocked {
		return Decision{Result: VerificationResult{Reason: ReasonBlocked}}
	}

	if matched.Expired(now) {
		return Decision{Result: VerificationResult{Reason: ReasonCodeExpired}}
	}

	result := VerificationResult{
		Success:             true,
		LinkedAccountID:     matched.LinkedAccountID,
		PendingRegistration: matched.PendingRegistration,
	}

	if matched.Consumed {
		// Idempotent re-verification: same answer, no state change.
		return Decision{Result: result}
	}

	return Decision{Result: result, ConsumeID: matched.ID}
}

// EvaluateReactivation locates the exact record an operator wants to revive,
// newest first and consumed records included. Expiry and blocking still apply:
// reactivation undoes a double submission, not a block or a timeout. Returns
// the record id and ReasonNone, or 0 and the rejection reason.
func EvaluateReactivation(records []OTPRecord, code string, now time.Time) (int64, Reason) {
	for _, rec := range records {
		if rec.Code != code {
			continue
		}
		if rec.Blocked {
			return 0, ReasonBlocked
		}
		if rec.Expired(now) {
			return 0, ReasonCodeExpired
		}
		return rec.ID, ReasonNone
	}

	return 0, ReasonNoActiveCode
}
