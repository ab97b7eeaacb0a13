package inbound

import "time"

type RegistrationRequest struct {
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Role        string `json:"role,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	BirthDate   string `json:"birth_date,omitempty"`
}

type IssueRequest struct {
	Identifier   string               `json:"identifier"`
	Purpose      string               `json:"purpose"`
	AccountID    *int64               `json:"account_id,omitempty"`
	Registration *RegistrationRequest `json:"registration,omitempty"`
}

type IssueResponse struct {
	Channel          string `json:"channel"`
	ExpiresInSeconds int64  `json:"expires_in_seconds"`
	// Code is only present when code exposure is enabled for the environment.
	Code string `json:"code,omitempty"`
}

func (IssueResponse) Message() string {
	return "A verification code has been sent if the identifier is reachable."
}

type VerifyRequest struct {
	Identifier string `json:"identifier"`
	Code       string `json:"code"`
}

type VerifyResponse struct {
	Verified          bool                 `json:"verified"`
	Reason            string               `json:"reason,omitempty"`
	RetryAfterSeconds int64                `json:"retry_after_seconds,omitempty"`
	AccountID         *int64               `json:"account_id,omitempty"`
	Registration      *RegistrationRequest `json:"registration,omitempty"`
}

type ReactivateRequest struct {
	Identifier string `json:"identifier"`
	Code       string `json:"code"`
}

type ReactivateResponse struct {
	RecordID  int64     `json:"record_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (ReactivateResponse) Message() string {
	return "The code record has been reactivated."
}

type DebugCodeResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	Consumed  bool      `json:"consumed"`
	Blocked   bool      `json:"blocked"`
	Attempts  int32     `json:"attempts"`
}
