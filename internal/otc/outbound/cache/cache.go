package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kourier/otc/internal/pkg/instrument"
)

const cooldownKeyPrefix = "otc:cooldown:"

// Cache holds the otc module's Redis-backed short-lived state.
type Cache struct {
	client redis.UniversalClient
	ins    instrument.Instrumentation
}

func NewCache(client redis.UniversalClient, ins instrument.Instrumentation) *Cache {
	return &Cache{
		client: client,
		ins:    ins,
	}
}

func (c *Cache) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return c.ins.Tracer("otc.outbound.cache").Start(ctx, name)
}

func (c *Cache) endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// AcquireIssueCooldown claims the resend window for an identifier. SET NX
// makes concurrent issue requests race to exactly one winner; the loser is
// told to wait out the ttl.
func (c *Cache) AcquireIssueCooldown(ctx context.Context, identifier string, ttl time.Duration) (ok bool, err error) {
	ctx, span := c.startSpan(ctx, "AcquireIssueCooldown")
	defer func() { c.endSpan(span, err) }()

	ok, err = c.client.SetNX(ctx, cooldownKeyPrefix+identifier, 1, ttl).Result()
	return ok, err
}

// ReleaseIssueCooldown frees the resend window after a failed issuance, so the
// user is not locked out of retrying by a request that stored nothing.
func (c *Cache) ReleaseIssueCooldown(ctx context.Context, identifier string) (err error) {
	ctx, span := c.startSpan(ctx, "ReleaseIssueCooldown")
	defer func() { c.endSpan(span, err) }()

	return c.client.Del(ctx, cooldownKeyPrefix+identifier).Err()
}
