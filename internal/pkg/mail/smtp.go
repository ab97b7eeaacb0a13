package mail

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

var (
	// ErrSMTPAddrRequired is returned when host or port is missing.
	ErrSMTPAddrRequired = errors.New("mail: smtp host and port are required")
	// ErrNoRecipients is returned when the message has no recipients.
	ErrNoRecipients = errors.New("mail: no recipients provided")
	// ErrNoSender is returned when no sender is set and no default exists.
	ErrNoSender = errors.New("mail: no sender provided")
)

// SMTPConfig configures the net/smtp-backed sender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the fallback sender when Message.From is empty.
	From string
}

// SMTP implements Mail over plain SMTP with optional PLAIN auth.
type SMTP struct {
	addr        string
	defaultFrom string
	auth        smtp.Auth
}

// NewSMTP builds an SMTP sender.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, ErrSMTPAddrRequired
	}

	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &SMTP{
		addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		defaultFrom: cfg.From,
		auth:        auth,
	}, nil
}

// Send implements Mail. net/smtp has no context support, so cancellation is
// only checked before dialing.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(msg.To) == 0 {
		return ErrNoRecipients
	}

	from := msg.From
	if from == "" {
		from = s.defaultFrom
	}
	if from == "" {
		return ErrNoSender
	}

	body, contentType := renderBody(msg)

	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&sb, "Subject: %s\r\n", msg.Subject)
	sb.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&sb, "Content-Type: %s\r\n\r\n", contentType)
	sb.WriteString(body)

	return smtp.SendMail(s.addr, s.auth, from, msg.To, []byte(sb.String()))
}

// Close implements io.Closer; SendMail opens a fresh connection per message.
func (s *SMTP) Close() error {
	return nil
}

func renderBody(msg Message) (body, contentType string) {
	switch {
	case msg.HTMLBody != "" && msg.TextBody != "":
		boundary := newBoundary()
		var sb strings.Builder
		sb.WriteString("This is a multipart message in MIME format.\r\n")
		fmt.Fprintf(&sb, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n", boundary, msg.TextBody)
		fmt.Fprintf(&sb, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n", boundary, msg.HTMLBody)
		fmt.Fprintf(&sb, "--%s--", boundary)
		return sb.String(), "multipart/alternative; boundary=" + boundary

	case msg.HTMLBody != "":
		return msg.HTMLBody, "text/html; charset=UTF-8"

	default:
		return msg.TextBody, "text/plain; charset=UTF-8"
	}
}

func newBoundary() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "otc-boundary-fallback"
	}
	return "otc-boundary-" + hex.EncodeToString(b[:])
}
