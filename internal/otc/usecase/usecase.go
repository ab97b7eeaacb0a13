package usecase

import (
	"context"
	"time"

	"github.com/kourier/otc/internal/otc/entity"
	"github.com/kourier/otc/internal/pkg/clock"
	"github.com/kourier/otc/internal/pkg/config"
	"github.com/kourier/otc/internal/pkg/goerror"
	"github.com/kourier/otc/internal/pkg/goroutine"
	"github.com/kourier/otc/internal/pkg/idempotency"
	"github.com/kourier/otc/internal/pkg/instrument"
	"github.com/kourier/otc/internal/pkg/jwt"
	"github.com/kourier/otc/internal/pkg/uid"
	"github.com/kourier/otc/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

// CodeIssuedEvent is published after a code record is committed so the
// delivery workers can send it out of band.
type CodeIssuedEvent struct {
	RecordID   int64
	Identifier string
	Channel    entity.Channel
	Purpose    entity.Purpose
	Code       string
	ExpiresAt  time.Time
}

// RegistrationVerifiedEvent hands a verified pending-registration payload to
// the account-creation flow.
type RegistrationVerifiedEvent struct {
	Identifier   string
	Registration entity.PendingRegistration
}

type repoMessaging interface {
	PublishCodeIssued(ctx context.Context, msg CodeIssuedEvent) error
	PublishRegistrationVerified(ctx context.Context, msg RegistrationVerifiedEvent) error
}

type repoDB interface {
	SaveIssuance(ctx context.Context, in entity.NewIssuance) error
	VerifyCode(ctx context.Context, identifier, code string, now time.Time, pol entity.VerifyPolicy) (*entity.VerificationResult, error)
	ReactivateCode(ctx context.Context, identifier, code string, now time.Time) (*entity.OTPRecord, entity.Reason, error)
	GetLatestRecord(ctx context.Context, identifier string) (*entity.OTPRecord, error)
}

type repoCache interface {
	AcquireIssueCooldown(ctx context.Context, identifier string, ttl time.Duration) (bool, error)
	ReleaseIssueCooldown(ctx context.Context, identifier string) error
}

type Usecase struct {
	repoDB        repoDB
	repoMessaging repoMessaging
	repoCache     repoCache
	idemp         idempotency.Idempotency
	validator     validator.Validator
	cfg           config.Config
	uid           uid.NumberID
	clock         clock.Clocker
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager
}

type Dependency struct {
	RepoDB        repoDB
	RepoMessaging repoMessaging
	RepoCache     repoCache
	Idempotency   idempotency.Idempotency
	Validator     validator.Validator
	Config        config.Config
	UID           uid.NumberID
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
	Goroutine     *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:        dep.RepoDB,
		repoMessaging: dep.RepoMessaging,
		repoCache:     dep.RepoCache,
		idemp:         dep.Idempotency,
		validator:     dep.Validator,
		cfg:           dep.Config,
		uid:           dep.UID,
		clock:         dep.Clock,
		ins:           dep.Instrument,
		goroutine:     dep.Goroutine,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("otc.usecase").Start(ctx, name)
}

func (s *Usecase) codeTTL() time.Duration {
	if ttl := s.cfg.GetMinute("modules.otc.code_ttl_minutes"); ttl > 0 {
		return ttl
	}
	return 3 * time.Minute
}

func (s *Usecase) verifyPolicy() entity.VerifyPolicy {
	return entity.VerifyPolicy{MaxAttempts: s.cfg.GetInt32("modules.otc.max_attempts")}
}

func (s *Usecase) authenticatedAdmin(ctx context.Context) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	if !clm.HasScope(jwt.ScopeAdmin) {
		return nil, goerror.NewBusiness("Account not allowed", goerror.CodeForbidden)
	}

	return clm, nil
}
