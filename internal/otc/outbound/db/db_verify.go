package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kourier/otc/internal/otc/entity"
)

// VerifyCode loads the identifier's records under row locks, runs the
// verification state machine and persists its mutations before committing.
// Expiry is evaluated against now here; no background sweeper exists.
func (s *DB) VerifyCode(ctx context.Context, identifier, code string, now time.Time, pol entity.VerifyPolicy) (res *entity.VerificationResult, err error) {
	ctx, span := s.startSpan(ctx, "VerifyCode")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
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
		return nil, s.mapError(err)
	}

	records, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, s.mapError(err)
	}

	decision := entity.Evaluate(records, code, now, pol)

	if decision.ConsumeID != 0 {
		if _, err = tx.Exec(ctx,
			`UPDATE otc_codes SET consumed = TRUE WHERE id = $1`,
			decision.ConsumeID,
		); err != nil {
			return nil, s.mapError(err)
		}
	}

	if m := decision.FailedAttempt; m != nil {
		if _, err = tx.Exec(ctx, `
			UPDATE otc_codes
			SET attempts = $2, last_attempt_at = $3, blocked = $4
			WHERE id = $1`,
			m.RecordID, m.Attempts, m.LastAttemptAt, m.Blocked,
		); err != nil {
			return nil, s.mapError(err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, s.mapError(err)
	}

	return &decision.Result, nil
}
