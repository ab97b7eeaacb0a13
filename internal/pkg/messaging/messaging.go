// Package messaging provides a broker-agnostic publish/consume client with
// NATS, NSQ and Kafka backends.
package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrUnsupported is returned when the selected broker cannot perform the
// requested operation, for example delayed delivery on NATS.
var ErrUnsupported = errors.New("messaging: unsupported operation")

// Messaging can publish to and consume from a broker.
type Messaging interface {
	io.Closer

	Publisher
	Consumer
}

// Publisher publishes messages to a destination (topic or subject).
type Publisher interface {
	Publish(ctx context.Context, destination string, msg OutgoingMessage) error
}

// Consumer consumes messages from a source. Consume blocks until ctx is
// canceled or the subscription fails.
type Consumer interface {
	Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes one received message. With auto-ack enabled the wrapper
// acks on nil and nacks on error; otherwise the handler acks itself.
type Handler func(ctx context.Context, msg Message) error

// Header is one message header pair.
type Header struct {
	Key   string
	Value []byte
}

// OutgoingMessage is a broker-agnostic message to publish.
type OutgoingMessage struct {
	// Body is the payload.
	Body []byte

	// Key partitions the message on Kafka; other brokers ignore it.
	Key []byte

	// Headers are attached where the broker supports them.
	Headers []Header

	// Delay defers delivery on brokers that support it (NSQ).
	Delay time.Duration
}

// Message is a received message.
type Message interface {
	// Body returns the payload.
	Body() []byte
	// Headers returns the message headers, or nil.
	Headers() []Header
	// Header returns the first value of the named header, or "".
	Header(key string) string
	// Topic returns the topic or subject the message arrived on.
	Topic() string
	// Timestamp returns the broker or receive timestamp.
	Timestamp() time.Time

	// Ack marks the message processed.
	Ack(ctx context.Context) error
	// Nack requests redelivery where the broker supports it.
	Nack(ctx context.Context) error
}

type consumeOptions struct {
	concurrency int
	autoAck     bool
	group       string
	channel     string
	queueGroup  string
	maxInFlight int
}

// ConsumeOption configures consumer behavior.
type ConsumeOption func(*consumeOptions)

func newConsumeOptions(opts ...ConsumeOption) consumeOptions {
	var co consumeOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&co)
		}
	}
	if co.concurrency <= 0 {
		co.concurrency = 1
	}
	return co
}

// WithConcurrency sets how many handler goroutines run in parallel.
func WithConcurrency(n int) ConsumeOption {
	return func(o *consumeOptions) { o.concurrency = n }
}

// WithAutoAck makes the wrapper ack/nack based on the handler result.
func WithAutoAck(autoAck bool) ConsumeOption {
	return func(o *consumeOptions) { o.autoAck = autoAck }
}

// WithGroup sets the Kafka consumer group.
func WithGroup(group string) ConsumeOption {
	return func(o *consumeOptions) { o.group = group }
}

// WithChannel sets the NSQ channel.
func WithChannel(channel string) ConsumeOption {
	return func(o *consumeOptions) { o.channel = channel }
}

// WithQueueGroup sets the NATS queue group.
func WithQueueGroup(queueGroup string) ConsumeOption {
	return func(o *consumeOptions) { o.queueGroup = queueGroup }
}

// WithMaxInFlight caps unacknowledged messages for brokers that track it.
func WithMaxInFlight(n int) ConsumeOption {
	return func(o *consumeOptions) { o.maxInFlight = n }
}

func headerValue(headers []Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
