package usecase

import (
	"context"
	"strings"
	"text/template"

	"go.opentelemetry.io/otel/trace"

	"github.com/kourier/otc/internal/pkg/clock"
	"github.com/kourier/otc/internal/pkg/config"
	"github.com/kourier/otc/internal/pkg/instrument"
	"github.com/kourier/otc/internal/pkg/mail"
	"github.com/kourier/otc/internal/pkg/validator"
)

// repoEmail sends rendered messages through the configured mail provider.
type repoEmail interface {
	Send(ctx context.Context, msg mail.Message) error
}

// repoMessaging bridges SMS delivery to the external provider topic.
type repoMessaging interface {
	PublishSMS(ctx context.Context, phone, text string) error
}

type Usecase struct {
	repoEmail     repoEmail
	repoMessaging repoMessaging
	validator     validator.Validator
	cfg           config.Config
	clock         clock.Clocker
	ins           instrument.Instrumentation

	emailBodyTpl *template.Template
	smsTextTpl   *template.Template
}

type Dependency struct {
	RepoEmail     repoEmail
	RepoMessaging repoMessaging
	Validator     validator.Validator
	Config        config.Config
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoEmail:     dep.RepoEmail,
		repoMessaging: dep.RepoMessaging,
		validator:     dep.Validator,
		cfg:           dep.Config,
		clock:         dep.Clock,
		ins:           dep.Instrument,

		emailBodyTpl: template.Must(template.New("email_body").Parse(emailBodyTemplate)),
		smsTextTpl:   template.Must(template.New("sms_text").Parse(smsTextTemplate)),
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("delivery.usecase").Start(ctx, name)
}

func (s *Usecase) render(tpl *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := tpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

const emailBodyTemplate = `<html>
<body style="font-family: sans-serif;">
  <p>Your {{.GetString "purpose_label"}} code is:</p>
  <p style="font-size: 28px; font-weight: bold; letter-spacing: 6px;">{{.GetString "code"}}</p>
  <p>This code expires in {{.GetInt64 "ttl_minutes"}} minute(s). If you did not request it, you can ignore this email.</p>
</body>
</html>`

const smsTextTemplate = `{{.GetString "code"}} is your {{.GetString "purpose_label"}} code. It expires in {{.GetInt64 "ttl_minutes"}} minute(s).`
