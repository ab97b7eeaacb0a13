package inbound

import (
	"context"
	"log/slog"
	"slices"

	"github.com/samber/lo"

	"github.com/kourier/otc/internal/pkg/config"
	"github.com/kourier/otc/internal/pkg/goroutine"
	"github.com/kourier/otc/internal/pkg/instrument"
	"github.com/kourier/otc/internal/pkg/messaging"
	"github.com/kourier/otc/internal/pkg/uid"
	"github.com/kourier/otc/internal/shared/event"
)

type consumer struct {
	name    string
	topic   string
	handler messaging.Handler
}

func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	messenger messaging.Messaging,
	uuid uid.StringID,
	uc uc,
	ins instrument.Instrumentation,
) {
	mqHandler := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	enabledNames := cfg.GetArray("modules.delivery.consumer_names")

	consumers := []consumer{
		{
			name:    event.CodeIssuedConsumerDelivery,
			topic:   event.CodeIssuedDestination,
			handler: mqHandler.CodeIssuedDelivery,
		},
	}

	enabled := lo.Filter(consumers, func(c consumer, _ int) bool {
		return slices.Contains(enabledNames, c.name)
	})

	for _, c := range enabled {
		routine.Go(ctx, func(pCtx context.Context) error {
			slog.InfoContext(ctx, "Running job for handling consumer", "consumer", c.name)
			return messenger.Consume(pCtx,
				c.topic,
				c.handler,
				messaging.WithChannel(c.name),
				messaging.WithQueueGroup(c.name),
				messaging.WithGroup(c.name),
				messaging.WithAutoAck(true),
				messaging.WithConcurrency(10),
				messaging.WithMaxInFlight(10),
			)
		})
	}
}
