package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/kourier/otc/internal/otc/entity"
	"github.com/kourier/otc/internal/pkg/goerror"
	"github.com/kourier/otc/internal/pkg/instrument"
)

const schema = `
CREATE TABLE otc_codes (
	id                   BIGINT PRIMARY KEY,
	identifier           VARCHAR(255) NOT NULL,
	channel              SMALLINT NOT NULL,
	purpose              SMALLINT NOT NULL,
	code                 VARCHAR(8) NOT NULL,
	linked_account_id    BIGINT,
	pending_registration JSONB,
	created_at           TIMESTAMPTZ NOT NULL,
	expires_at           TIMESTAMPTZ NOT NULL,
	consumed             BOOLEAN NOT NULL DEFAULT FALSE,
	superseded           BOOLEAN NOT NULL DEFAULT FALSE,
	blocked              BOOLEAN NOT NULL DEFAULT FALSE,
	attempts             INTEGER NOT NULL DEFAULT 0,
	last_attempt_at      TIMESTAMPTZ
);
CREATE INDEX otc_codes_identifier_idx ON otc_codes (identifier, id DESC);
`

var (
	poolOnce sync.Once
	pool     *pgxpool.Pool
	poolErr  error
)

func testRepo(t *testing.T) *DB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed tests in short mode")
	}

	poolOnce.Do(func() {
		ctx := context.Background()

		container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
			tcpostgres.WithDatabase("otc"),
			tcpostgres.WithUsername("otc"),
			tcpostgres.WithPassword("otc"),
			tcpostgres.BasicWaitStrategies(),
		)
		if err != nil {
			poolErr = fmt.Errorf("start postgres container: %w", err)
			return
		}

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			poolErr = fmt.Errorf("connection string: %w", err)
			return
		}

		p, err := pgxpool.New(ctx, dsn)
		if err != nil {
			poolErr = fmt.Errorf("connect: %w", err)
			return
		}

		if _, err := p.Exec(ctx, schema); err != nil {
			poolErr = fmt.Errorf("create schema: %w", err)
			return
		}

		pool = p
	})
	if poolErr != nil {
		t.Fatalf("setup postgres: %v", poolErr)
	}

	return NewDB(pool, instrument.NewNoop())
}

var recordSeq int64

func newIssuance(identifier, code string, now time.Time) entity.NewIssuance {
	recordSeq++
	return entity.NewIssuance{
		ID:         recordSeq,
		Identifier: identifier,
		Channel:    entity.ChannelEmail,
		Purpose:    entity.PurposeLogin,
		Code:       code,
		CreatedAt:  now,
		ExpiresAt:  now.Add(3 * time.Minute),
	}
}

func TestSaveIssuance_SupersedesPrevious(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()
	identifier := "supersede@example.com"

	first := newIssuance(identifier, "1111", now)
	if err := repo.SaveIssuance(ctx, first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	second := newIssuance(identifier, "2222", now)
	if err := repo.SaveIssuance(ctx, second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	latest, err := repo.GetLatestRecord(ctx, identifier)
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if latest.ID != second.ID {
		t.Errorf("expected latest record %d, got %d", second.ID, latest.ID)
	}
	if latest.Superseded {
		t.Error("latest record must not be superseded")
	}

	var superseded bool
	if err := pool.QueryRow(ctx,
		`SELECT superseded FROM otc_codes WHERE id = $1`, first.ID,
	).Scan(&superseded); err != nil {
		t.Fatalf("read first record: %v", err)
	}
	if !superseded {
		t.Error("previous record should be superseded")
	}
}

func TestSaveIssuance_DuplicateID(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	in := newIssuance("dup-id@example.com", "1111", now)
	if err := repo.SaveIssuance(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.SaveIssuance(ctx, in); !errors.Is(err, goerror.ErrConflict) {
		t.Fatalf("expected conflict on duplicate id, got %v", err)
	}
}

func TestVerifyCode_SuccessAndIdempotentRetry(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()
	identifier := "verify-ok@example.com"
	accountID := int64(42)

	in := newIssuance(identifier, "1234", now)
	in.LinkedAccountID = &accountID
	in.PendingRegistration = &entity.PendingRegistration{
		SchemaVersion: entity.PendingRegistrationSchemaVersion,
		Email:         identifier,
		DisplayName:   "User One",
	}
	if err := repo.SaveIssuance(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	pol := entity.VerifyPolicy{MaxAttempts: 5}

	res, err := repo.VerifyCode(ctx, identifier, "1234", now, pol)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got reason %s", res.Reason)
	}
	if res.LinkedAccountID == nil || *res.LinkedAccountID != accountID {
		t.Errorf("expected linked account %d, got %v", accountID, res.LinkedAccountID)
	}
	if res.PendingRegistration == nil || res.PendingRegistration.DisplayName != "User One" {
		t.Errorf("expected registration payload to round-trip, got %+v", res.PendingRegistration)
	}

	var consumed bool
	if err := pool.QueryRow(ctx,
		`SELECT consumed FROM otc_codes WHERE id = $1`, in.ID,
	).Scan(&consumed); err != nil {
		t.Fatalf("read record: %v", err)
	}
	if !consumed {
		t.Error("record should be consumed after successful verification")
	}

	// A retried verify call keeps succeeding without further state change.
	res, err = repo.VerifyCode(ctx, identifier, "1234", now, pol)
	if err != nil {
		t.Fatalf("verify retry: %v", err)
	}
	if !res.Success {
		t.Errorf("expected idempotent success, got reason %s", res.Reason)
	}
}

func TestVerifyCode_InvalidThenRateLimited(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()
	identifier := "verify-bad@example.com"

	in := newIssuance(identifier, "1234", now)
	if err := repo.SaveIssuance(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	pol := entity.VerifyPolicy{MaxAttempts: 5}

	// First two misses only count attempts; backoff starts at the second
	// recorded failure.
	for i := 0; i < 2; i++ {
		res, err := repo.VerifyCode(ctx, identifier, "0000", now, pol)
		if err != nil {
			t.Fatalf("verify miss %d: %v", i+1, err)
		}
		if res.Reason != entity.ReasonInvalidCode {
			t.Fatalf("expected invalid code on miss %d, got %s", i+1, res.Reason)
		}
	}

	res, err := repo.VerifyCode(ctx, identifier, "0000", now, pol)
	if err != nil {
		t.Fatalf("verify during backoff: %v", err)
	}
	if res.Reason != entity.ReasonRateLimited {
		t.Fatalf("expected rate limited, got %s", res.Reason)
	}
	if res.RetryAfter <= 0 || res.RetryAfter > 5*time.Second {
		t.Errorf("expected retry window within 5s, got %s", res.RetryAfter)
	}

	var attempts int32
	if err := pool.QueryRow(ctx,
		`SELECT attempts FROM otc_codes WHERE id = $1`, in.ID,
	).Scan(&attempts); err != nil {
		t.Fatalf("read record: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 recorded attempts, got %d", attempts)
	}
}

func TestVerifyCode_BlockedAfterMaxAttempts(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()
	identifier := "verify-block@example.com"

	in := newIssuance(identifier, "1234", now)
	in.ExpiresAt = now.Add(time.Hour)
	if err := repo.SaveIssuance(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	pol := entity.VerifyPolicy{MaxAttempts: 5}

	// Space the misses out so backoff never interferes.
	at := now
	for i := 0; i < 5; i++ {
		res, err := repo.VerifyCode(ctx, identifier, "0000", at, pol)
		if err != nil {
			t.Fatalf("verify miss %d: %v", i+1, err)
		}
		if res.Reason != entity.ReasonInvalidCode {
			t.Fatalf("expected invalid code on miss %d, got %s", i+1, res.Reason)
		}
		at = at.Add(time.Minute)
	}

	res, err := repo.VerifyCode(ctx, identifier, "1234", at, pol)
	if err != nil {
		t.Fatalf("verify after block: %v", err)
	}
	if res.Reason != entity.ReasonBlocked {
		t.Fatalf("expected blocked, got %s", res.Reason)
	}
}

func TestVerifyCode_Expired(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()
	identifier := "verify-expired@example.com"

	in := newIssuance(identifier, "1234", now)
	if err := repo.SaveIssuance(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	res, err := repo.VerifyCode(ctx, identifier, "1234", now.Add(10*time.Minute), entity.VerifyPolicy{})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Reason != entity.ReasonCodeExpired {
		t.Fatalf("expected expired, got %s", res.Reason)
	}
}

func TestVerifyCode_NoRecords(t *testing.T) {
	repo := testRepo(t)

	res, err := repo.VerifyCode(context.Background(), "nobody@example.com", "1234", time.Now().UTC(), entity.VerifyPolicy{})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Reason != entity.ReasonNoActiveCode {
		t.Fatalf("expected no active code, got %s", res.Reason)
	}
}

func TestReactivateCode_RevivesConsumedRecord(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()
	identifier := "reactivate@example.com"

	in := newIssuance(identifier, "1234", now)
	if err := repo.SaveIssuance(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	if res, err := repo.VerifyCode(ctx, identifier, "1234", now, entity.VerifyPolicy{}); err != nil || !res.Success {
		t.Fatalf("consume record: err=%v res=%+v", err, res)
	}

	rec, reason, err := repo.ReactivateCode(ctx, identifier, "1234", now)
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if reason != entity.ReasonNone {
		t.Fatalf("expected reactivation to be accepted, got %s", reason)
	}
	if rec.ID != in.ID {
		t.Errorf("expected record %d, got %d", in.ID, rec.ID)
	}
	if rec.Consumed {
		t.Error("reactivated record must not be consumed")
	}

	var consumed bool
	if err := pool.QueryRow(ctx,
		`SELECT consumed FROM otc_codes WHERE id = $1`, in.ID,
	).Scan(&consumed); err != nil {
		t.Fatalf("read record: %v", err)
	}
	if consumed {
		t.Error("consumed flag should be cleared in the database")
	}

	res, err := repo.VerifyCode(ctx, identifier, "1234", now, entity.VerifyPolicy{})
	if err != nil {
		t.Fatalf("verify after reactivation: %v", err)
	}
	if !res.Success {
		t.Errorf("expected success after reactivation, got reason %s", res.Reason)
	}
}

func TestReactivateCode_Rejections(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	blocked := newIssuance("reactivate-blocked@example.com", "1234", now)
	if err := repo.SaveIssuance(ctx, blocked); err != nil {
		t.Fatalf("save blocked: %v", err)
	}
	if _, err := pool.Exec(ctx,
		`UPDATE otc_codes SET blocked = TRUE WHERE id = $1`, blocked.ID,
	); err != nil {
		t.Fatalf("block record: %v", err)
	}

	expired := newIssuance("reactivate-expired@example.com", "5678", now)
	if err := repo.SaveIssuance(ctx, expired); err != nil {
		t.Fatalf("save expired: %v", err)
	}

	tests := []struct {
		name       string
		identifier string
		code       string
		now        time.Time
		want       entity.Reason
	}{
		{"blocked record", blocked.Identifier, "1234", now, entity.ReasonBlocked},
		{"expired record", expired.Identifier, "5678", now.Add(10 * time.Minute), entity.ReasonCodeExpired},
		{"wrong code", expired.Identifier, "0000", now, entity.ReasonNoActiveCode},
		{"unknown identifier", "missing@example.com", "1234", now, entity.ReasonNoActiveCode},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, reason, err := repo.ReactivateCode(ctx, tc.identifier, tc.code, tc.now)
			if err != nil {
				t.Fatalf("reactivate: %v", err)
			}
			if reason != tc.want {
				t.Errorf("expected reason %s, got %s", tc.want, reason)
			}
			if rec != nil {
				t.Errorf("expected no record on rejection, got %+v", rec)
			}
		})
	}
}

func TestGetLatestRecord_NotFound(t *testing.T) {
	repo := testRepo(t)

	_, err := repo.GetLatestRecord(context.Background(), "missing@example.com")
	if !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
