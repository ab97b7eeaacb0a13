package inbound

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/kourier/otc/internal/delivery/usecase"
	"github.com/kourier/otc/internal/pkg/instrument"
	"github.com/kourier/otc/internal/pkg/messaging"
	"github.com/kourier/otc/internal/pkg/uid"
	"github.com/kourier/otc/internal/shared/event"
)

const keyOfCorrelationID string = "cID"

type MQHandler struct {
	uc   uc
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, msg messaging.Message) context.Context {
	if cID := msg.Header(keyOfCorrelationID); cID != "" {
		return instrument.SetCorrelationID(ctx, cID)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

func (h *MQHandler) CodeIssuedDelivery(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("delivery.inbound.mq").Start(ctx, "CodeIssuedDelivery")
	defer span.End()

	// The payload carries the code itself, so the raw body stays out of logs.
	body := msg.Body()
	slog.InfoContext(ctx, "consume: code issued delivery", "topic", msg.Topic())

	var payload event.CodeIssuedMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of code issued delivery", "error", err)
		return nil
	}

	if err := h.uc.SendCode(ctx, usecase.SendCodeInput{
		RecordID:   payload.RecordID,
		Identifier: payload.Identifier,
		Channel:    payload.Channel,
		Purpose:    payload.Purpose,
		Code:       payload.Code,
		ExpiresAt:  time.Unix(payload.ExpiresAt, 0),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume code issued delivery", "record_id", payload.RecordID, "error", err)
		return err
	}

	return nil
}
