package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kourier/otc/internal/otc/entity"
	"github.com/kourier/otc/internal/pkg/config"
	"github.com/kourier/otc/internal/pkg/goerror"
	"github.com/kourier/otc/internal/pkg/goroutine"
	"github.com/kourier/otc/internal/pkg/idempotency"
	"github.com/kourier/otc/internal/pkg/instrument"
	"github.com/kourier/otc/internal/pkg/validator"
)

var testNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

type fakeUID struct{ next int64 }

func (u *fakeUID) Generate() int64 {
	u.next++
	return u.next
}

type fakeDB struct {
	saved   []entity.NewIssuance
	saveErr error

	verifyOut        *entity.VerificationResult
	verifyErr        error
	verifyIdentifier string
	verifyCode       string
	verifyPolicy     entity.VerifyPolicy

	reactivated          *entity.OTPRecord
	reactivateReason     entity.Reason
	reactivateErr        error
	reactivateIdentifier string
	reactivateCode       string
	reactivateNow        time.Time

	latest    *entity.OTPRecord
	latestErr error
}

func (f *fakeDB) SaveIssuance(_ context.Context, in entity.NewIssuance) error {
	f.saved = append(f.saved, in)
	return f.saveErr
}

func (f *fakeDB) VerifyCode(_ context.Context, identifier, code string, _ time.Time, pol entity.VerifyPolicy) (*entity.VerificationResult, error) {
	f.verifyIdentifier = identifier
	f.verifyCode = code
	f.verifyPolicy = pol
	return f.verifyOut, f.verifyErr
}

func (f *fakeDB) ReactivateCode(_ context.Context, identifier, code string, now time.Time) (*entity.OTPRecord, entity.Reason, error) {
	f.reactivateIdentifier = identifier
	f.reactivateCode = code
	f.reactivateNow = now
	return f.reactivated, f.reactivateReason, f.reactivateErr
}

func (f *fakeDB) GetLatestRecord(_ context.Context, _ string) (*entity.OTPRecord, error) {
	return f.latest, f.latestErr
}

type fakeCache struct {
	allow    bool
	err      error
	ttl      time.Duration
	released []string
}

func (f *fakeCache) AcquireIssueCooldown(_ context.Context, _ string, ttl time.Duration) (bool, error) {
	f.ttl = ttl
	return f.allow, f.err
}

func (f *fakeCache) ReleaseIssueCooldown(_ context.Context, identifier string) error {
	f.released = append(f.released, identifier)
	return nil
}

type fakeMessaging struct {
	mu sync.Mutex

	issued    []CodeIssuedEvent
	issuedErr error

	verified    []RegistrationVerifiedEvent
	verifiedErr error
}

func (f *fakeMessaging) PublishCodeIssued(_ context.Context, msg CodeIssuedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued = append(f.issued, msg)
	return f.issuedErr
}

func (f *fakeMessaging) PublishRegistrationVerified(_ context.Context, msg RegistrationVerifiedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified = append(f.verified, msg)
	return f.verifiedErr
}

type fakeIdemp struct {
	state      idempotency.State // forced outcome; zero value falls back to key tracking
	acquireErr error
	keys       map[string]idempotency.State
	completed  []string
	released   []string
}

func (f *fakeIdemp) Acquire(_ context.Context, key string, _ time.Duration) (idempotency.State, error) {
	if f.acquireErr != nil {
		return idempotency.StateNone, f.acquireErr
	}
	if f.state != idempotency.StateNone {
		return f.state, nil
	}
	if st, ok := f.keys[key]; ok {
		return st, nil
	}
	if f.keys == nil {
		f.keys = map[string]idempotency.State{}
	}
	f.keys[key] = idempotency.StateInProgress
	return idempotency.StateNone, nil
}

func (f *fakeIdemp) MarkCompleted(_ context.Context, key string, _ time.Duration) error {
	if f.keys == nil {
		f.keys = map[string]idempotency.State{}
	}
	f.keys[key] = idempotency.StateCompleted
	f.completed = append(f.completed, key)
	return nil
}

func (f *fakeIdemp) Release(_ context.Context, key string) error {
	delete(f.keys, key)
	f.released = append(f.released, key)
	return nil
}

func testConfig(t *testing.T, exposeCode bool) config.Config {
	t.Helper()

	yaml := fmt.Sprintf(`
modules:
  otc:
    code_ttl_minutes: 3
    max_attempts: 5
    resend_cooldown_seconds: 60
    expose_code: %t
`, exposeCode)

	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	if err != nil {
		t.Fatalf("build config: %v", err)
	}
	t.Cleanup(func() { _ = cfg.Close() })

	return cfg
}

type testDeps struct {
	db        *fakeDB
	cache     *fakeCache
	messaging *fakeMessaging
	idemp     *fakeIdemp
	goroutine *goroutine.Manager
}

func newTestUsecase(t *testing.T, exposeCode bool) (*Usecase, *testDeps) {
	t.Helper()

	deps := &testDeps{
		db:        &fakeDB{},
		cache:     &fakeCache{allow: true},
		messaging: &fakeMessaging{},
		idemp:     &fakeIdemp{},
		goroutine: goroutine.NewManager(5),
	}

	uc := New(Dependency{
		RepoDB:        deps.db,
		RepoMessaging: deps.messaging,
		RepoCache:     deps.cache,
		Idempotency:   deps.idemp,
		Validator:     validator.NewV10(),
		Config:        testConfig(t, exposeCode),
		UID:           &fakeUID{},
		Clock:         fakeClock{now: testNow},
		Instrument:    instrument.NewNoop(),
		Goroutine:     deps.goroutine,
	})

	return uc, deps
}

func assertErrCode(t *testing.T, err error, code goerror.Code) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}

	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *goerror.Error, got %T: %v", err, err)
	}
	if gerr.Code() != code {
		t.Fatalf("expected code %s, got %s (%v)", code, gerr.Code(), err)
	}
}
