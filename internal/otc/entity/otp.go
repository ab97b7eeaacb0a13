package entity

import "time"

// PendingRegistrationSchemaVersion is the current wire version of the
// PendingRegistration payload stored alongside a code record.
const PendingRegistrationSchemaVersion = 1

// PendingRegistration holds the form data of a not-yet-created account while
// its identifier is being verified. It is written once at issuance and handed
// back to the account-creation flow after a successful verification.
type PendingRegistration struct {
	SchemaVersion int    `json:"schema_version"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Role          string `json:"role,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
	BirthDate     string `json:"birth_date,omitempty"` // YYYY-MM-DD
}

// OTPRecord is one issued one-time code. Records are never deleted by the
// service; history per identifier is kept and ordered by ID, which is a
// time-ordered snowflake and therefore also the issuance sequence.
type OTPRecord struct {
	ID                  int64
	Identifier          string
	Channel             Channel
	Purpose             Purpose
	Code                string
	LinkedAccountID     *int64
	PendingRegistration *PendingRegistration
	CreatedAt           time.Time
	ExpiresAt           time.Time
	Consumed            bool
	Superseded          bool
	Blocked             bool
	Attempts            int32
	LastAttemptAt       *time.Time
}

// Active reports whether the record can still be matched as the primary code
// for its identifier.
func (r OTPRecord) Active(now time.Time) bool {
	return !r.Consumed && !r.Superseded && !r.Blocked && now.Before(r.ExpiresAt)
}

// Expired reports whether the record is past its own TTL.
func (r OTPRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// NewIssuance carries everything the store needs to persist a fresh record
// while superseding the identifier's previous active ones in the same
// transaction.
type NewIssuance struct {
	ID                  int64
	Identifier          string
	Channel             Channel
	Purpose             Purpose
	Code                string
	LinkedAccountID     *int64
	PendingRegistration *PendingRegistration
	CreatedAt           time.Time
	ExpiresAt           time.Time
}

// VerificationResult is the outcome handed back to callers of Verify.
type VerificationResult struct {
	Success             bool
	Reason              Reason
	RetryAfter          time.Duration
	LinkedAccountID     *int64
	PendingRegistration *PendingRegistration
}
