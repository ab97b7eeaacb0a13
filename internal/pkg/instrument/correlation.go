package instrument

import "context"

type correlationKey struct{}

// SetCorrelationID stores the request correlation ID on the context. Inbound
// middleware calls this once per request.
func SetCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// GetCorrelationID returns the correlation ID set on the context, or "".
func GetCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
