package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/sethvargo/go-retry"

	"github.com/kourier/otc/internal/pkg/mail"
	"github.com/kourier/otc/internal/pkg/valueobject"
)

type SendCodeInput struct {
	RecordID   int64  `validate:"required,gt=0"`
	Identifier string `validate:"required,max=255"`
	Channel    string `validate:"required,oneof=EMAIL SMS"`
	Purpose    string `validate:"required"`
	Code       string `validate:"required,len=4,number"`
	ExpiresAt  time.Time
}

// SendCode renders and dispatches one issued code over its channel. A code
// past its expiry by the time the message is picked up is dropped silently;
// re-sending it would only confuse the user.
func (s *Usecase) SendCode(ctx context.Context, in SendCodeInput) error {
	ctx, span := s.startSpan(ctx, "SendCode")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "record_id", in.RecordID, "error", err)
		return nil
	}

	now := s.clock.Now()
	if now.After(in.ExpiresAt) {
		slog.WarnContext(ctx, "code expired before delivery, dropped",
			"record_id", in.RecordID, "expires_at", in.ExpiresAt)
		return nil
	}

	ttlMinutes := int64(in.ExpiresAt.Sub(now).Round(time.Minute) / time.Minute)
	data := valueobject.JSONMap{
		"code":          in.Code,
		"purpose_label": purposeLabel(in.Purpose),
		"ttl_minutes":   max(ttlMinutes, 1),
	}

	if in.Channel == "EMAIL" {
		return s.sendEmail(ctx, in, data)
	}
	return s.sendSMS(ctx, in, data)
}

func (s *Usecase) sendEmail(ctx context.Context, in SendCodeInput, data valueobject.JSONMap) error {
	body, err := s.render(s.emailBodyTpl, data)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render email body", "record_id", in.RecordID, "error", err)
		return nil
	}

	subject := lo.Ternary(in.Purpose == "Register",
		"Confirm your registration",
		"Your verification code")

	// Transient SMTP failures get a short retry budget; a code is useless to
	// the user minutes later.
	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if sendErr := s.repoEmail.Send(ctx, mail.Message{
			From:     s.cfg.GetString("modules.delivery.email_from"),
			To:       []string{in.Identifier},
			Subject:  subject,
			HTMLBody: body,
		}); sendErr != nil {
			return retry.RetryableError(sendErr)
		}
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to send code email", "record_id", in.RecordID, "error", err)
		return nil
	}

	slog.InfoContext(ctx, "code email sent", "record_id", in.RecordID)
	return nil
}

func (s *Usecase) sendSMS(ctx context.Context, in SendCodeInput, data valueobject.JSONMap) error {
	text, err := s.render(s.smsTextTpl, data)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render sms text", "record_id", in.RecordID, "error", err)
		return nil
	}

	if err := s.repoMessaging.PublishSMS(ctx, in.Identifier, text); err != nil {
		slog.ErrorContext(ctx, "failed to publish sms send", "record_id", in.RecordID, "error", err)
		return err
	}

	slog.InfoContext(ctx, "code sms queued", "record_id", in.RecordID)
	return nil
}

func purposeLabel(purpose string) string {
	switch purpose {
	case "Login":
		return "sign-in"
	case "Reset":
		return "password reset"
	case "Register":
		return "registration"
	default:
		return "verification"
	}
}
