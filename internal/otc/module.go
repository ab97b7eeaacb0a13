// Package otc wires the one-time-code module: issuance, verification and the
// operator overrides on top of PostgreSQL, Redis and the message broker.
package otc

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kourier/otc/internal/otc/inbound"
	"github.com/kourier/otc/internal/otc/outbound/cache"
	"github.com/kourier/otc/internal/otc/outbound/db"
	"github.com/kourier/otc/internal/otc/outbound/mq"
	"github.com/kourier/otc/internal/otc/usecase"
	"github.com/kourier/otc/internal/pkg/clock"
	"github.com/kourier/otc/internal/pkg/config"
	"github.com/kourier/otc/internal/pkg/goroutine"
	"github.com/kourier/otc/internal/pkg/idempotency"
	"github.com/kourier/otc/internal/pkg/instrument"
	"github.com/kourier/otc/internal/pkg/messaging"
	"github.com/kourier/otc/internal/pkg/router"
	"github.com/kourier/otc/internal/pkg/uid"
	"github.com/kourier/otc/internal/pkg/validator"
)

type Dependency struct {
	DBConn      *pgxpool.Pool              `validate:"required"`
	CacheConn   *redis.Client              `validate:"required"`
	Goroutine   *goroutine.Manager         `validate:"required"`
	Router      *router.Router             `validate:"required"`
	Idempotency idempotency.Idempotency    `validate:"required"`
	Messaging   messaging.Messaging        `validate:"required"`
	Config      config.Config              `validate:"required"`
	Instrument  instrument.Instrumentation `validate:"required"`
	UID         uid.NumberID               `validate:"required"`
	Clock       clock.Clocker              `validate:"required"`
	Validator   validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	repoDB := db.NewDB(dep.DBConn, dep.Instrument)
	repoCache := cache.NewCache(dep.CacheConn, dep.Instrument)
	repoMsg := mq.NewMessaging(dep.Messaging, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoDB:        repoDB,
		RepoMessaging: repoMsg,
		RepoCache:     repoCache,
		Idempotency:   dep.Idempotency,
		Validator:     dep.Validator,
		Config:        dep.Config,
		UID:           dep.UID,
		Clock:         dep.Clock,
		Instrument:    dep.Instrument,
		Goroutine:     dep.Goroutine,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
