package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kourier/otc/internal/otc/entity"
)

// ReactivateCode locates the exact record for the identifier/code pair under
// row locks and resets its consumed flag. A rejection comes back as a reason,
// not an error; the transaction commits either way.
func (s *DB) ReactivateCode(ctx context.Context, identifier, code string, now time.Time) (rec *entity.OTPRecord, reason entity.Reason, err error) {
	ctx, span := s.startSpan(ctx, "ReactivateCode")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, entity.ReasonNone, err
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "failed to rollback", "error", rErr)
		}
	}()

	rows, err := tx.Query(ctx, `
		SELECT `+recordColumns+`
		FROM otc_codes
		WHERE identifier = $1
		ORDER BY id DESC
		FOR UPDATE`,
		identifier,
	)
	if err != nil {
		return nil, entity.ReasonNone, s.mapError(err)
	}

	records, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, entity.ReasonNone, s.mapError(err)
	}

	recordID, reason := entity.EvaluateReactivation(records, code, now)
	if reason != entity.ReasonNone {
		return nil, reason, nil
	}

	if _, err = tx.Exec(ctx,
		`UPDATE otc_codes SET consumed = FALSE WHERE id = $1`,
		recordID,
	); err != nil {
		return nil, entity.ReasonNone, s.mapError(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, entity.ReasonNone, s.mapError(err)
	}

	for i := range records {
		if records[i].ID == recordID {
			records[i].Consumed = false
			return &records[i], entity.ReasonNone, nil
		}
	}

	return nil, entity.ReasonNoActiveCode, nil
}

// GetLatestRecord reads the identifier's newest record without locking.
func (s *DB) GetLatestRecord(ctx context.Context, identifier string) (rec *entity.OTPRecord, err error) {
	ctx, span := s.startSpan(ctx, "GetLatestRecord")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `
		SELECT `+recordColumns+`
		FROM otc_codes
		WHERE identifier = $1
		ORDER BY id DESC
		LIMIT 1`,
		identifier,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	latest, err := pgx.CollectOneRow(rows, scanRecord)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &latest, nil
}
