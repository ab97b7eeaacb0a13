package entity

import (
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func activeRecord(id int64, code string) OTPRecord {
	return OTPRecord{
		ID:         id,
		Identifier: "a@b.com",
		Channel:    ChannelEmail,
		Code:       code,
		CreatedAt:  testNow.Add(-10 * time.Second),
		ExpiresAt:  testNow.Add(170 * time.Second),
	}
}

func TestEvaluateNoRecords(t *testing.T) {
	dec := Evaluate(nil, "1234", testNow, VerifyPolicy{})

	if dec.Result.Success || dec.Result.Reason != ReasonNoActiveCode {
		t.Fatalf("got %+v, want NoActiveCode failure", dec.Result)
	}
}

func TestEvaluateMatchConsumesLatest(t *testing.T) {
	accountID := int64(77)
	rec := activeRecord(1, "4821")
	rec.LinkedAccountID = &accountID

	dec := Evaluate([]OTPRecord{rec}, "4821", testNow, VerifyPolicy{})

	if !dec.Result.Success {
		t.Fatalf("got %+v, want success", dec.Result)
	}
	if dec.ConsumeID != 1 {
		t.Fatalf("ConsumeID = %d, want 1", dec.ConsumeID)
	}
	if dec.Result.LinkedAccountID == nil || *dec.Result.LinkedAccountID != accountID {
		t.Fatalf("LinkedAccountID = %v, want %d", dec.Result.LinkedAccountID, accountID)
	}
}

func TestEvaluateConsumedIsIdempotent(t *testing.T) {
	rec := activeRecord(1, "4821")
	rec.Consumed = true
	rec.PendingRegistration = &PendingRegistration{
		SchemaVersion: PendingRegistrationSchemaVersion,
		Email:         "a@b.com",
		Role:          "Client",
	}

	dec := Evaluate([]OTPRecord{rec}, "4821", testNow, VerifyPolicy{})

	if !dec.Result.Success {
		t.Fatalf("got %+v, want idempotent success", dec.Result)
	}
	if dec.ConsumeID != 0 || dec.FailedAttempt != nil {
		t.Fatalf("re-verification must not mutate state, got %+v", dec)
	}
	if dec.Result.PendingRegistration == nil || dec.Result.PendingRegistration.Role != "Client" {
		t.Fatalf("PendingRegistration = %+v, want original payload", dec.Result.PendingRegistration)
	}
}

func TestEvaluateExpired(t *testing.T) {
	rec := activeRecord(1, "4821")
	rec.ExpiresAt = testNow.Add(-time.Second)

	dec := Evaluate([]OTPRecord{rec}, "4821", testNow, VerifyPolicy{})

	if dec.Result.Success || dec.Result.Reason != ReasonCodeExpired {
		t.Fatalf("got %+v, want CodeExpired", dec.Result)
	}
	if dec.ConsumeID != 0 || dec.FailedAttempt != nil {
		t.Fatalf("expired match must not mutate state, got %+v", dec)
	}
}

func TestEvaluateHistoricalMatch(t *testing.T) {
	older := activeRecord(1, "1111")
	older.Superseded = true
	newest := activeRecord(2, "2222")

	dec := Evaluate([]OTPRecord{newest, older}, "1111", testNow, VerifyPolicy{})

	if !dec.Result.Success {
		t.Fatalf("got %+v, want success via historical match", dec.Result)
	}
	if dec.ConsumeID != 1 {
		t.Fatalf("ConsumeID = %d, want the historical record 1", dec.ConsumeID)
	}
}

func TestEvaluateWrongCodeCountsAttempt(t *testing.T) {
	rec := activeRecord(9, "4821")

	dec := Evaluate([]OTPRecord{rec}, "0000", testNow, VerifyPolicy{})

	if dec.Result.Success || dec.Result.Reason != ReasonInvalidCode {
		t.Fatalf("got %+v, want InvalidCode", dec.Result)
	}
	if dec.FailedAttempt == nil {
		t.Fatal("expected an attempt mutation")
	}
	if dec.FailedAttempt.RecordID != 9 || dec.FailedAttempt.Attempts != 1 || dec.FailedAttempt.Blocked {
		t.Fatalf("unexpected mutation %+v", dec.FailedAttempt)
	}
	if !dec.FailedAttempt.LastAttemptAt.Equal(testNow) {
		t.Fatalf("LastAttemptAt = %s, want %s", dec.FailedAttempt.LastAttemptAt, testNow)
	}
}

func TestEvaluateBlocksOnFifthFailure(t *testing.T) {
	rec := activeRecord(9, "4821")
	rec.Attempts = 4
	at := testNow.Add(-time.Hour) // backoff window long gone
	rec.LastAttemptAt = &at

	dec := Evaluate([]OTPRecord{rec}, "0000", testNow, VerifyPolicy{MaxAttempts: 5})

	if dec.Result.Reason != ReasonInvalidCode {
		t.Fatalf("got %+v, want InvalidCode", dec.Result)
	}
	if dec.FailedAttempt == nil || !dec.FailedAttempt.Blocked || dec.FailedAttempt.Attempts != 5 {
		t.Fatalf("fifth failure should block, got %+v", dec.FailedAttempt)
	}
}

func TestEvaluateBlockedBeatsCorrectCode(t *testing.T) {
	rec := activeRecord(9, "4821")
	rec.Blocked = true
	rec.Attempts = 5

	dec := Evaluate([]OTPRecord{rec}, "4821", testNow, VerifyPolicy{})

	if dec.Result.Success || dec.Result.Reason != ReasonBlocked {
		t.Fatalf("got %+v, want Blocked", dec.Result)
	}
}

func TestEvaluateBackoffBeforeMutation(t *testing.T) {
	rec := activeRecord(9, "4821")
	rec.Attempts = 2
	at := testNow.Add(-time.Second)
	rec.LastAttemptAt = &at

	dec := Evaluate([]OTPRecord{rec}, "0000", testNow, VerifyPolicy{})

	if dec.Result.Reason != ReasonRateLimited {
		t.Fatalf("got %+v, want RateLimited", dec.Result)
	}
	if dec.Result.RetryAfter != 4*time.Second {
		t.Fatalf("RetryAfter = %s, want 4s", dec.Result.RetryAfter)
	}
	if dec.FailedAttempt != nil {
		t.Fatalf("rate limited attempt must not mutate state, got %+v", dec.FailedAttempt)
	}
}

func TestEvaluateRateLimitedEvenWithCorrectCode(t *testing.T) {
	rec := activeRecord(9, "4821")
	rec.Attempts = 3
	at := testNow.Add(-2 * time.Second)
	rec.LastAttemptAt = &at

	dec := Evaluate([]OTPRecord{rec}, "4821", testNow, VerifyPolicy{})

	if dec.Result.Reason != ReasonRateLimited {
		t.Fatalf("got %+v, want RateLimited before any match", dec.Result)
	}
}

func TestEvaluateReactivationMatchesExactRecord(t *testing.T) {
	consumed := activeRecord(1, "1111")
	consumed.Consumed = true
	consumed.Superseded = true
	newest := activeRecord(2, "2222")

	id, reason := EvaluateReactivation([]OTPRecord{newest, consumed}, "1111", testNow)

	if reason != ReasonNone {
		t.Fatalf("reason = %s, want None", reason)
	}
	if id != 1 {
		t.Fatalf("record id = %d, want the consumed record 1", id)
	}
}

func TestEvaluateReactivationPrefersNewestOnDuplicateCode(t *testing.T) {
	older := activeRecord(1, "4821")
	newest := activeRecord(2, "4821")

	id, reason := EvaluateReactivation([]OTPRecord{newest, older}, "4821", testNow)

	if reason != ReasonNone || id != 2 {
		t.Fatalf("got id=%d reason=%s, want newest record 2", id, reason)
	}
}

func TestEvaluateReactivationRejections(t *testing.T) {
	blocked := activeRecord(1, "1111")
	blocked.Blocked = true
	expired := activeRecord(2, "2222")
	expired.ExpiresAt = testNow.Add(-time.Second)
	records := []OTPRecord{expired, blocked}

	tests := []struct {
		name string
		code string
		want Reason
	}{
		{"blocked record", "1111", ReasonBlocked},
		{"expired record", "2222", ReasonCodeExpired},
		{"no match", "0000", ReasonNoActiveCode},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, reason := EvaluateReactivation(records, tc.code, testNow)
			if reason != tc.want || id != 0 {
				t.Fatalf("got id=%d reason=%s, want reason %s", id, reason, tc.want)
			}
		})
	}
}

func TestEvaluateHistoricalBlockedRecord(t *testing.T) {
	older := activeRecord(1, "1111")
	older.Blocked = true
	older.Superseded = true
	newest := activeRecord(2, "2222")

	dec := Evaluate([]OTPRecord{newest, older}, "1111", testNow, VerifyPolicy{})

	if dec.Result.Success || dec.Result.Reason != ReasonBlocked {
		t.Fatalf("got %+v, want Blocked for a blocked historical record", dec.Result)
	}
}
