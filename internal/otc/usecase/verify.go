package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kourier/otc/internal/otc/entity"
	"github.com/kourier/otc/internal/pkg/goerror"
)

type VerifyInput struct {
	Identifier string `validate:"required,max=255"`
	Code       string `validate:"required,len=4,number"`
}

type VerifyOutput struct {
	Success      bool
	Reason       entity.Reason
	RetryAfter   time.Duration
	AccountID    *int64
	Registration *entity.PendingRegistration
}

// Verify runs the verification state machine against the identifier's code
// history. A failed check is a domain outcome, not an error: the output
// carries the reason and, for rate limiting, how long the caller must wait.
func (s *Usecase) Verify(ctx context.Context, in VerifyInput) (*VerifyOutput, error) {
	ctx, span := s.startSpan(ctx, "Verify")
	defer span.End()

	in.Identifier = strings.TrimSpace(in.Identifier)
	if entity.ChannelOf(in.Identifier) == entity.ChannelEmail {
		in.Identifier = strings.ToLower(in.Identifier)
	}
	in.Code = strings.TrimSpace(in.Code)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	result, err := s.repoDB.VerifyCode(ctx, in.Identifier, in.Code, s.clock.Now(), s.verifyPolicy())
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo verify code", "identifier", in.Identifier, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !result.Success {
		slog.InfoContext(ctx, "verification rejected",
			"identifier", in.Identifier,
			"reason", result.Reason.String(),
			"retry_after", result.RetryAfter,
		)

		return &VerifyOutput{
			Reason:     result.Reason,
			RetryAfter: result.RetryAfter,
		}, nil
	}

	if result.PendingRegistration != nil {
		reg := *result.PendingRegistration
		identifier := in.Identifier
		s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
			if err := s.repoMessaging.PublishRegistrationVerified(ctx, RegistrationVerifiedEvent{
				Identifier:   identifier,
				Registration: reg,
			}); err != nil {
				slog.ErrorContext(ctx, "failed to publish registration verified", "identifier", identifier, "error", err)
			}
			return nil
		})
	}

	return &VerifyOutput{
		Success:      true,
		AccountID:    result.LinkedAccountID,
		Registration: result.PendingRegistration,
	}, nil
}
