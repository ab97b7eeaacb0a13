package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kourier/otc/internal/otc/entity"
	"github.com/kourier/otc/internal/pkg/goerror"
	"github.com/kourier/otc/internal/pkg/instrument"
)

// DB persists code records in PostgreSQL. Every public method is one whole
// transaction; per-identifier serialization comes from FOR UPDATE row locks
// on the identifier's records.
type DB struct {
	conn *pgxpool.Pool
	ins  instrument.Instrumentation
}

func NewDB(conn *pgxpool.Pool, ins instrument.Instrumentation) *DB {
	return &DB{
		conn: conn,
		ins:  ins,
	}
}

func (s *DB) mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return goerror.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return goerror.ErrConflict
	}

	return err
}

func (s *DB) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("otc.outbound.db").Start(ctx, name)
}

func (s *DB) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) && !errors.Is(err, goerror.ErrConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

const recordColumns = `id, identifier, channel, purpose, code, linked_account_id,
	pending_registration, created_at, expires_at, consumed, superseded, blocked,
	attempts, last_attempt_at`

func scanRecord(row pgx.CollectableRow) (entity.OTPRecord, error) {
	var (
		rec     entity.OTPRecord
		regRaw  []byte
		lastAtt *time.Time
		acctID  *int64
		channel int16
		purpose int16
	)

	err := row.Scan(&rec.ID, &rec.Identifier, &channel, &purpose, &rec.Code, &acctID,
		&regRaw, &rec.CreatedAt, &rec.ExpiresAt, &rec.Consumed, &rec.Superseded,
		&rec.Blocked, &rec.Attempts, &lastAtt)
	if err != nil {
		return entity.OTPRecord{}, err
	}

	rec.Channel = entity.Channel(channel)
	rec.Purpose = entity.Purpose(purpose)
	rec.LinkedAccountID = acctID
	rec.LastAttemptAt = lastAtt

	if len(regRaw) > 0 {
		var reg entity.PendingRegistration
		if err := json.Unmarshal(regRaw, &reg); err != nil {
			return entity.OTPRecord{}, err
		}
		rec.PendingRegistration = &reg
	}

	return rec, nil
}

func marshalRegistration(reg *entity.PendingRegistration) ([]byte, error) {
	if reg == nil {
		return nil, nil
	}
	return json.Marshal(reg)
}
