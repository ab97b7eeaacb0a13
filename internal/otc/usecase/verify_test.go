package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kourier/otc/internal/otc/entity"
	"github.com/kourier/otc/internal/pkg/goerror"
)

func TestVerify_Success(t *testing.T) {
	uc, deps := newTestUsecase(t, true)
	accountID := int64(42)
	deps.db.verifyOut = &entity.VerificationResult{
		Success:         true,
		LinkedAccountID: &accountID,
	}

	out, err := uc.Verify(context.Background(), VerifyInput{
		Identifier: " User@Example.com ",
		Code:       "1234",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !out.Success {
		t.Error("expected success")
	}
	if out.AccountID == nil || *out.AccountID != accountID {
		t.Errorf("expected account id %d, got %v", accountID, out.AccountID)
	}
	if deps.db.verifyIdentifier != "user@example.com" {
		t.Errorf("expected normalized identifier, got %q", deps.db.verifyIdentifier)
	}
	if deps.db.verifyPolicy.MaxAttempts != 5 {
		t.Errorf("expected max attempts 5, got %d", deps.db.verifyPolicy.MaxAttempts)
	}
}

func TestVerify_RegistrationPublishedOnSuccess(t *testing.T) {
	uc, deps := newTestUsecase(t, true)
	deps.db.verifyOut = &entity.VerificationResult{
		Success: true,
		PendingRegistration: &entity.PendingRegistration{
			SchemaVersion: entity.PendingRegistrationSchemaVersion,
			Email:         "user@example.com",
			DisplayName:   "User One",
		},
	}

	out, err := uc.Verify(context.Background(), VerifyInput{
		Identifier: "user@example.com",
		Code:       "1234",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Registration == nil {
		t.Fatal("expected registration payload in output")
	}

	if err := deps.goroutine.Wait(); err != nil {
		t.Fatalf("goroutine wait: %v", err)
	}

	if len(deps.messaging.verified) != 1 {
		t.Fatalf("expected one registration verified event, got %d", len(deps.messaging.verified))
	}
	if deps.messaging.verified[0].Identifier != "user@example.com" {
		t.Errorf("unexpected event identifier %q", deps.messaging.verified[0].Identifier)
	}
}

func TestVerify_RejectionsPassThrough(t *testing.T) {
	tests := []struct {
		name       string
		result     entity.VerificationResult
		wantReason entity.Reason
		wantRetry  time.Duration
	}{
		{
			name:       "no active code",
			result:     entity.VerificationResult{Reason: entity.ReasonNoActiveCode},
			wantReason: entity.ReasonNoActiveCode,
		},
		{
			name:       "invalid code",
			result:     entity.VerificationResult{Reason: entity.ReasonInvalidCode},
			wantReason: entity.ReasonInvalidCode,
		},
		{
			name:       "blocked",
			result:     entity.VerificationResult{Reason: entity.ReasonBlocked},
			wantReason: entity.ReasonBlocked,
		},
		{
			name:       "rate limited",
			result:     entity.VerificationResult{Reason: entity.ReasonRateLimited, RetryAfter: 10 * time.Second},
			wantReason: entity.ReasonRateLimited,
			wantRetry:  10 * time.Second,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			uc, deps := newTestUsecase(t, true)
			result := tc.result
			deps.db.verifyOut = &result

			out, err := uc.Verify(context.Background(), VerifyInput{
				Identifier: "user@example.com",
				Code:       "1234",
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if out.Success {
				t.Error("expected rejection")
			}
			if out.Reason != tc.wantReason {
				t.Errorf("expected reason %s, got %s", tc.wantReason, out.Reason)
			}
			if out.RetryAfter != tc.wantRetry {
				t.Errorf("expected retry after %s, got %s", tc.wantRetry, out.RetryAfter)
			}
		})
	}
}

func TestVerify_BadCodeFormat(t *testing.T) {
	uc, _ := newTestUsecase(t, true)

	for _, code := range []string{"", "123", "12345", "12a4"} {
		_, err := uc.Verify(context.Background(), VerifyInput{
			Identifier: "user@example.com",
			Code:       code,
		})
		assertErrCode(t, err, goerror.CodeInvalidInput)
	}
}

func TestVerify_RepoFailure(t *testing.T) {
	uc, deps := newTestUsecase(t, true)
	deps.db.verifyErr = errors.New("connection reset")

	_, err := uc.Verify(context.Background(), VerifyInput{
		Identifier: "user@example.com",
		Code:       "1234",
	})
	assertErrCode(t, err, goerror.CodeInternal)
}
