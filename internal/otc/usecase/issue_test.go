package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kourier/otc/internal/otc/entity"
	"github.com/kourier/otc/internal/pkg/goerror"
	"github.com/kourier/otc/internal/pkg/idempotency"
)

func TestIssue_EmailSuccess(t *testing.T) {
	uc, deps := newTestUsecase(t, true)

	out, err := uc.Issue(context.Background(), IssueInput{
		Identifier: "  User@Example.COM ",
		Purpose:    "login",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Channel != entity.ChannelEmail {
		t.Errorf("expected email channel, got %s", out.Channel)
	}
	if out.ExpiresIn != 3*time.Minute {
		t.Errorf("expected 3m expiry, got %s", out.ExpiresIn)
	}
	if len(out.Code) != 4 {
		t.Errorf("expected exposed 4-digit code, got %q", out.Code)
	}

	if len(deps.db.saved) != 1 {
		t.Fatalf("expected one saved issuance, got %d", len(deps.db.saved))
	}
	saved := deps.db.saved[0]
	if saved.Identifier != "user@example.com" {
		t.Errorf("expected normalized identifier, got %q", saved.Identifier)
	}
	if saved.Purpose != entity.PurposeLogin {
		t.Errorf("expected login purpose, got %s", saved.Purpose)
	}
	if !saved.ExpiresAt.Equal(testNow.Add(3 * time.Minute)) {
		t.Errorf("expected expiry at %s, got %s", testNow.Add(3*time.Minute), saved.ExpiresAt)
	}

	if len(deps.messaging.issued) != 1 {
		t.Fatalf("expected one code issued event, got %d", len(deps.messaging.issued))
	}
	if deps.messaging.issued[0].Code != saved.Code {
		t.Errorf("event code %q does not match saved code %q", deps.messaging.issued[0].Code, saved.Code)
	}
}

func TestIssue_CodeHiddenByDefault(t *testing.T) {
	uc, _ := newTestUsecase(t, false)

	out, err := uc.Issue(context.Background(), IssueInput{
		Identifier: "user@example.com",
		Purpose:    "login",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Code != "" {
		t.Errorf("expected code to stay hidden, got %q", out.Code)
	}
}

func TestIssue_PhoneSuccess(t *testing.T) {
	uc, deps := newTestUsecase(t, true)

	out, err := uc.Issue(context.Background(), IssueInput{
		Identifier: "+15551234567",
		Purpose:    "reset",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Channel != entity.ChannelSMS {
		t.Errorf("expected sms channel, got %s", out.Channel)
	}
	if deps.db.saved[0].Purpose != entity.PurposeReset {
		t.Errorf("expected reset purpose, got %s", deps.db.saved[0].Purpose)
	}
}

func TestIssue_BadIdentifier(t *testing.T) {
	uc, _ := newTestUsecase(t, true)

	_, err := uc.Issue(context.Background(), IssueInput{
		Identifier: "not-a-phone",
		Purpose:    "login",
	})
	assertErrCode(t, err, goerror.CodeInvalidInput)
}

func TestIssue_RegisterNeedsRegistration(t *testing.T) {
	uc, _ := newTestUsecase(t, true)

	_, err := uc.Issue(context.Background(), IssueInput{
		Identifier: "user@example.com",
		Purpose:    "register",
	})
	assertErrCode(t, err, goerror.CodeInvalidInput)
}

func TestIssue_RegisterCarriesRegistration(t *testing.T) {
	uc, deps := newTestUsecase(t, true)

	_, err := uc.Issue(context.Background(), IssueInput{
		Identifier: "user@example.com",
		Purpose:    "register",
		Registration: &IssueRegistrationInput{
			Email:       " User@Example.com ",
			DisplayName: "User One",
			BirthDate:   "1990-05-01",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reg := deps.db.saved[0].PendingRegistration
	if reg == nil {
		t.Fatal("expected pending registration to be stored")
	}
	if reg.SchemaVersion != entity.PendingRegistrationSchemaVersion {
		t.Errorf("expected schema version %d, got %d", entity.PendingRegistrationSchemaVersion, reg.SchemaVersion)
	}
	if reg.Email != "user@example.com" {
		t.Errorf("expected normalized email, got %q", reg.Email)
	}
}

func TestIssue_CooldownRejected(t *testing.T) {
	uc, deps := newTestUsecase(t, true)
	deps.cache.allow = false

	_, err := uc.Issue(context.Background(), IssueInput{
		Identifier: "user@example.com",
		Purpose:    "login",
	})
	assertErrCode(t, err, goerror.CodeTooManyRequest)

	if deps.cache.ttl != time.Minute {
		t.Errorf("expected 60s cooldown ttl, got %s", deps.cache.ttl)
	}
	if len(deps.db.saved) != 0 {
		t.Errorf("expected no issuance saved, got %d", len(deps.db.saved))
	}
}

func TestIssue_DuplicateIdempotencyKey(t *testing.T) {
	uc, deps := newTestUsecase(t, true)
	deps.idemp.state = idempotency.StateCompleted

	_, err := uc.Issue(context.Background(), IssueInput{
		Identifier:     "user@example.com",
		Purpose:        "login",
		IdempotencyKey: "req-1",
	})
	assertErrCode(t, err, goerror.CodeConflict)
}

func TestIssue_IdempotencyKeyMarkedCompleted(t *testing.T) {
	uc, deps := newTestUsecase(t, true)

	_, err := uc.Issue(context.Background(), IssueInput{
		Identifier:     "user@example.com",
		Purpose:        "login",
		IdempotencyKey: "req-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deps.idemp.completed) != 1 || deps.idemp.completed[0] != "otc:issue:req-1" {
		t.Errorf("expected idempotency key marked completed, got %v", deps.idemp.completed)
	}
}

func TestIssue_SaveFailure(t *testing.T) {
	uc, deps := newTestUsecase(t, true)
	deps.db.saveErr = errors.New("connection reset")

	_, err := uc.Issue(context.Background(), IssueInput{
		Identifier: "user@example.com",
		Purpose:    "login",
	})
	assertErrCode(t, err, goerror.CodeInternal)
}

func TestIssue_SaveFailureDoesNotPoisonRetry(t *testing.T) {
	uc, deps := newTestUsecase(t, true)
	deps.db.saveErr = errors.New("connection reset")

	in := IssueInput{
		Identifier:     "user@example.com",
		Purpose:        "login",
		IdempotencyKey: "req-1",
	}

	_, err := uc.Issue(context.Background(), in)
	assertErrCode(t, err, goerror.CodeInternal)

	if len(deps.idemp.released) != 1 || deps.idemp.released[0] != "otc:issue:req-1" {
		t.Errorf("expected idempotency key released after save failure, got %v", deps.idemp.released)
	}
	if len(deps.cache.released) != 1 || deps.cache.released[0] != "user@example.com" {
		t.Errorf("expected cooldown released after save failure, got %v", deps.cache.released)
	}

	// The store recovers; a retry with the same key must go through instead
	// of being rejected as a duplicate.
	deps.db.saveErr = nil
	if _, err := uc.Issue(context.Background(), in); err != nil {
		t.Fatalf("retry after failed issuance rejected: %v", err)
	}
	if len(deps.db.saved) != 1 {
		t.Errorf("expected one saved issuance after retry, got %d", len(deps.db.saved))
	}
}

func TestIssue_CooldownRejectionReleasesIdempotencyKey(t *testing.T) {
	uc, deps := newTestUsecase(t, true)
	deps.cache.allow = false

	_, err := uc.Issue(context.Background(), IssueInput{
		Identifier:     "user@example.com",
		Purpose:        "login",
		IdempotencyKey: "req-1",
	})
	assertErrCode(t, err, goerror.CodeTooManyRequest)

	if len(deps.idemp.released) != 1 || deps.idemp.released[0] != "otc:issue:req-1" {
		t.Errorf("expected idempotency key released after cooldown rejection, got %v", deps.idemp.released)
	}
	if len(deps.cache.released) != 0 {
		t.Errorf("cooldown was never acquired and must not be released, got %v", deps.cache.released)
	}
}

func TestIssue_PublishFailureIsNotFatal(t *testing.T) {
	uc, deps := newTestUsecase(t, true)
	deps.messaging.issuedErr = errors.New("broker down")

	out, err := uc.Issue(context.Background(), IssueInput{
		Identifier: "user@example.com",
		Purpose:    "login",
	})
	if err != nil {
		t.Fatalf("expected issuance to survive publish failure, got %v", err)
	}
	if out.Channel != entity.ChannelEmail {
		t.Errorf("expected email channel, got %s", out.Channel)
	}
}
