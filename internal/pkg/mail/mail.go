// Package mail abstracts outbound email behind a provider-agnostic interface.
package mail

import (
	"context"
	"io"
)

// Message is an email payload. Only To and one body variant are required.
type Message struct {
	// From overrides the sender; empty falls back to the provider default.
	From string
	// To lists the recipients.
	To []string
	// Subject is the subject line.
	Subject string
	// TextBody is the plain-text body.
	TextBody string
	// HTMLBody is the optional HTML alternative.
	HTMLBody string
}

// Mail sends email through some provider (SMTP, vendor API).
type Mail interface {
	io.Closer

	// Send dispatches msg. Implementations honor ctx cancellation where the
	// underlying transport allows it.
	Send(ctx context.Context, msg Message) error
}
