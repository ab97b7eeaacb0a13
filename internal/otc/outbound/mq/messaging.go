package mq

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kourier/otc/internal/otc/usecase"
	"github.com/kourier/otc/internal/pkg/instrument"
	"github.com/kourier/otc/internal/pkg/messaging"
	"github.com/kourier/otc/internal/shared/event"
)

// Messaging publishes the otc module's domain events.
type Messaging struct {
	pub messaging.Publisher
	ins instrument.Instrumentation
}

func NewMessaging(pub messaging.Publisher, ins instrument.Instrumentation) *Messaging {
	return &Messaging{
		pub: pub,
		ins: ins,
	}
}

func (m *Messaging) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return m.ins.Tracer("otc.outbound.mq").Start(ctx, name)
}

func (m *Messaging) endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (m *Messaging) publish(ctx context.Context, destination string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msg := messaging.OutgoingMessage{Body: body}
	if cID := instrument.GetCorrelationID(ctx); cID != "" {
		msg.Headers = append(msg.Headers, messaging.Header{Key: "cID", Value: []byte(cID)})
	}

	return m.pub.Publish(ctx, destination, msg)
}

// PublishCodeIssued hands a committed issuance to the delivery workers.
func (m *Messaging) PublishCodeIssued(ctx context.Context, in usecase.CodeIssuedEvent) (err error) {
	ctx, span := m.startSpan(ctx, "PublishCodeIssued")
	defer func() { m.endSpan(span, err) }()

	return m.publish(ctx, event.CodeIssuedDestination, event.CodeIssuedMessage{
		RecordID:   in.RecordID,
		Identifier: in.Identifier,
		Channel:    in.Channel.String(),
		Purpose:    in.Purpose.String(),
		Code:       in.Code,
		ExpiresAt:  in.ExpiresAt.Unix(),
	})
}

// PublishRegistrationVerified forwards a verified pending registration to the
// account-creation flow.
func (m *Messaging) PublishRegistrationVerified(ctx context.Context, in usecase.RegistrationVerifiedEvent) (err error) {
	ctx, span := m.startSpan(ctx, "PublishRegistrationVerified")
	defer func() { m.endSpan(span, err) }()

	return m.publish(ctx, event.RegistrationVerifiedDestination, event.RegistrationVerifiedMessage{
		Identifier: in.Identifier,
		Registration: event.RegistrationPayload{
			SchemaVersion: in.Registration.SchemaVersion,
			Email:         in.Registration.Email,
			Phone:         in.Registration.Phone,
			Role:          in.Registration.Role,
			DisplayName:   in.Registration.DisplayName,
			BirthDate:     in.Registration.BirthDate,
		},
	})
}
