package mq

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kourier/otc/internal/pkg/instrument"
	"github.com/kourier/otc/internal/pkg/messaging"
	"github.com/kourier/otc/internal/shared/event"
)

// Messaging forwards SMS sends to the external provider bridge topic.
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
	return m.ins.Tracer("delivery.outbound.mq").Start(ctx, name)
}

func (m *Messaging) endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (m *Messaging) PublishSMS(ctx context.Context, phone, text string) (err error) {
	ctx, span := m.startSpan(ctx, "PublishSMS")
	defer func() { m.endSpan(span, err) }()

	body, err := json.Marshal(event.SMSSendMessage{Phone: phone, Text: text})
	if err != nil {
		return err
	}

	msg := messaging.OutgoingMessage{Body: body}
	if cID := instrument.GetCorrelationID(ctx); cID != "" {
		msg.Headers = append(msg.Headers, messaging.Header{Key: "cID", Value: []byte(cID)})
	}

	return m.pub.Publish(ctx, event.SMSSendDestination, msg)
}
