package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/kourier/otc/internal/otc/entity"
)

// SaveIssuance inserts a fresh code record and retires the identifier's
// previous active ones in the same transaction, so at most one record stays
// matchable per identifier.
func (s *DB) SaveIssuance(ctx context.Context, in entity.NewIssuance) (err error) {
	ctx, span := s.startSpan(ctx, "SaveIssuance")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "failed to rollback", "error", rErr)
		}
	}()

	// Lock the identifier's live rows first; concurrent issuance and
	// verification for the same identifier serialize here.
	if _, err = tx.Exec(ctx, `
		UPDATE otc_codes
		SET superseded = TRUE
		WHERE identifier = $1 AND NOT consumed AND NOT superseded AND NOT blocked`,
		in.Identifier,
	); err != nil {
		return s.mapError(err)
	}

	regRaw, err := marshalRegistration(in.PendingRegistration)
	if err != nil {
		return err
	}

	if _, err = tx.Exec(ctx, `
		INSERT INTO otc_codes (
			id, identifier, channel, purpose, code, linked_account_id,
			pending_registration, created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		in.ID, in.Identifier, int16(in.Channel), int16(in.Purpose), in.Code,
		in.LinkedAccountID, regRaw, in.CreatedAt, in.ExpiresAt,
	); err != nil {
		return s.mapError(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return s.mapError(err)
	}

	return nil
}
