// Package delivery consumes issued-code events and fans them out to the
// email provider or the SMS bridge topic.
package delivery

import (
	"context"

	"github.com/kourier/otc/internal/delivery/inbound"
	"github.com/kourier/otc/internal/delivery/outbound/email"
	"github.com/kourier/otc/internal/delivery/outbound/mq"
	"github.com/kourier/otc/internal/delivery/usecase"
	"github.com/kourier/otc/internal/pkg/clock"
	"github.com/kourier/otc/internal/pkg/config"
	"github.com/kourier/otc/internal/pkg/goroutine"
	"github.com/kourier/otc/internal/pkg/instrument"
	"github.com/kourier/otc/internal/pkg/mail"
	"github.com/kourier/otc/internal/pkg/messaging"
	"github.com/kourier/otc/internal/pkg/uid"
	"github.com/kourier/otc/internal/pkg/validator"
)

type Dependency struct {
	Ctx        context.Context            `validate:"required"`
	Mail       mail.Mail                  `validate:"required"`
	Messaging  messaging.Messaging        `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	repoMail := email.New(dep.Mail, dep.Instrument)
	repoMsg := mq.NewMessaging(dep.Messaging, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoEmail:     repoMail,
		RepoMessaging: repoMsg,
		Validator:     dep.Validator,
		Config:        dep.Config,
		Clock:         dep.Clock,
		Instrument:    dep.Instrument,
	})

	inbound.RegisterMQConsumer(dep.Ctx, dep.Config, dep.Goroutine, dep.Messaging, dep.UUID, uc, dep.Instrument)

	return nil
}
