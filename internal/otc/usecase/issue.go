package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kourier/otc/internal/otc/entity"
	"github.com/kourier/otc/internal/pkg/goerror"
	"github.com/kourier/otc/internal/pkg/idempotency"
)

type IssueRegistrationInput struct {
	Email       string `validate:"omitempty,email"`
	Phone       string `validate:"omitempty,e164"`
	Role        string `validate:"omitempty,max=50"`
	DisplayName string `validate:"omitempty,max=100"`
	BirthDate   string `validate:"omitempty,datetime=2006-01-02"`
}

type IssueInput struct {
	Identifier     string `validate:"required,max=255"`
	Purpose        string `validate:"required,oneof=login reset register"`
	AccountID      *int64
	Registration   *IssueRegistrationInput
	IdempotencyKey string
}

type IssueOutput struct {
	Channel   entity.Channel
	ExpiresIn time.Duration
	// Code is only set when code exposure is enabled for the environment.
	Code string
}

func (s *Usecase) Issue(ctx context.Context, in IssueInput) (*IssueOutput, error) {
	ctx, span := s.startSpan(ctx, "Issue")
	defer span.End()

	in.Identifier = strings.TrimSpace(in.Identifier)
	in.Purpose = strings.ToLower(strings.TrimSpace(in.Purpose))

	channel := entity.ChannelOf(in.Identifier)
	if channel == entity.ChannelEmail {
		in.Identifier = strings.ToLower(in.Identifier)
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}
	if err := s.validateIdentifier(in.Identifier, channel); err != nil {
		return nil, err
	}

	purpose := entity.PurposeFromString(in.Purpose)
	if purpose == entity.PurposeRegister && in.Registration == nil {
		return nil, goerror.NewInvalidInput(nil, "registration", "registration payload is required for register purpose")
	}
	if in.Registration != nil {
		if err := s.validator.Validate(*in.Registration); err != nil {
			return nil, goerror.NewInvalidInput(err)
		}
	}

	if in.IdempotencyKey != "" {
		state, err := s.idemp.Acquire(ctx, "otc:issue:"+in.IdempotencyKey, time.Minute)
		if err != nil {
			slog.ErrorContext(ctx, "failed to acquire idempotency state", "error", err)
			return nil, goerror.NewServer(err)
		}
		if state != idempotency.StateNone {
			return nil, goerror.NewBusiness("Duplicate issue request", goerror.CodeConflict)
		}
	}

	cooldown := s.cfg.GetSecond("modules.otc.resend_cooldown_seconds")
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	ok, err := s.repoCache.AcquireIssueCooldown(ctx, in.Identifier, cooldown)
	if err != nil {
		slog.ErrorContext(ctx, "failed to acquire issue cooldown", "identifier", in.Identifier, "error", err)
		s.releaseIssueKey(ctx, in.IdempotencyKey)
		return nil, goerror.NewServer(err)
	}
	if !ok {
		s.releaseIssueKey(ctx, in.IdempotencyKey)
		return nil, goerror.NewBusiness("Please wait before requesting another code", goerror.CodeTooManyRequest)
	}

	code, err := entity.GenerateCode()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate code", "error", err)
		s.releaseIssueClaims(ctx, in.IdempotencyKey, in.Identifier)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	issuance := entity.NewIssuance{
		ID:              s.uid.Generate(),
		Identifier:      in.Identifier,
		Channel:         channel,
		Purpose:         purpose,
		Code:            code,
		LinkedAccountID: in.AccountID,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.codeTTL()),
	}
	if in.Registration != nil {
		issuance.PendingRegistration = &entity.PendingRegistration{
			SchemaVersion: entity.PendingRegistrationSchemaVersion,
			Email:         strings.ToLower(strings.TrimSpace(in.Registration.Email)),
			Phone:         strings.TrimSpace(in.Registration.Phone),
			Role:          strings.TrimSpace(in.Registration.Role),
			DisplayName:   strings.TrimSpace(in.Registration.DisplayName),
			BirthDate:     in.Registration.BirthDate,
		}
	}

	if err := s.repoDB.SaveIssuance(ctx, issuance); err != nil {
		slog.ErrorContext(ctx, "failed to repo save issuance", "identifier", in.Identifier, "error", err)
		s.releaseIssueClaims(ctx, in.IdempotencyKey, in.Identifier)
		return nil, goerror.NewServer(err)
	}

	if in.IdempotencyKey != "" {
		if err := s.idemp.MarkCompleted(ctx, "otc:issue:"+in.IdempotencyKey, time.Minute); err != nil {
			slog.WarnContext(ctx, "failed to mark idempotency completed", "error", err)
		}
	}

	// Delivery rides on messaging and must never fail the issuance.
	if err := s.repoMessaging.PublishCodeIssued(ctx, CodeIssuedEvent{
		RecordID:   issuance.ID,
		Identifier: issuance.Identifier,
		Channel:    issuance.Channel,
		Purpose:    issuance.Purpose,
		Code:       issuance.Code,
		ExpiresAt:  issuance.ExpiresAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish code issued", "record_id", issuance.ID, "error", err)
	}

	out := &IssueOutput{
		Channel:   channel,
		ExpiresIn: issuance.ExpiresAt.Sub(now),
	}
	if s.cfg.GetBool("modules.otc.expose_code") {
		out.Code = code
	}

	return out, nil
}

// releaseIssueKey drops the idempotency claim after a rejected or failed
// issuance; nothing was stored, so the client's retry with the same key must
// not be treated as a duplicate.
func (s *Usecase) releaseIssueKey(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.idemp.Release(ctx, "otc:issue:"+key); err != nil {
		slog.WarnContext(ctx, "failed to release idempotency key", "error", err)
	}
}

// releaseIssueClaims undoes both the idempotency claim and the resend
// cooldown after an issuance failed past the cooldown acquire.
func (s *Usecase) releaseIssueClaims(ctx context.Context, key, identifier string) {
	s.releaseIssueKey(ctx, key)
	if err := s.repoCache.ReleaseIssueCooldown(ctx, identifier); err != nil {
		slog.WarnContext(ctx, "failed to release issue cooldown", "identifier", identifier, "error", err)
	}
}

// validateIdentifier applies the channel-specific format rule the combined
// identifier field cannot carry in a single struct tag.
func (s *Usecase) validateIdentifier(identifier string, channel entity.Channel) error {
	switch channel {
	case entity.ChannelEmail:
		if err := s.validator.Validate(struct {
			Identifier string `validate:"required,email"`
		}{identifier}); err != nil {
			return goerror.NewInvalidInput(err)
		}

	case entity.ChannelSMS:
		if err := s.validator.Validate(struct {
			Identifier string `validate:"required,e164"`
		}{identifier}); err != nil {
			return goerror.NewInvalidInput(err)
		}

	default:
		return goerror.NewInvalidInput(nil, "identifier", "identifier must be an email address or phone number")
	}

	return nil
}
