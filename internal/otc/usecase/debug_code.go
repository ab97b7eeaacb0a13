package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kourier/otc/internal/otc/entity"
	"github.com/kourier/otc/internal/pkg/goerror"
)

type DebugCodeInput struct {
	Identifier string `validate:"required,max=255"`
}

type DebugCodeOutput struct {
	Code      string
	ExpiresAt time.Time
	Consumed  bool
	Blocked   bool
	Attempts  int32
}

// DebugCode reads back the latest code for an identifier. It only works when
// code exposure is enabled, which is meant for development and staging
// environments where no delivery provider is wired up.
func (s *Usecase) DebugCode(ctx context.Context, in DebugCodeInput) (*DebugCodeOutput, error) {
	ctx, span := s.startSpan(ctx, "DebugCode")
	defer span.End()

	if _, err := s.authenticatedAdmin(ctx); err != nil {
		return nil, err
	}

	if !s.cfg.GetBool("modules.otc.expose_code") {
		return nil, goerror.NewBusiness("Code exposure is disabled", goerror.CodeForbidden)
	}

	in.Identifier = strings.TrimSpace(in.Identifier)
	if entity.ChannelOf(in.Identifier) == entity.ChannelEmail {
		in.Identifier = strings.ToLower(in.Identifier)
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	rec, err := s.repoDB.GetLatestRecord(ctx, in.Identifier)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("No code record for this identifier", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get latest record", "identifier", in.Identifier, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &DebugCodeOutput{
		Code:      rec.Code,
		ExpiresAt: rec.ExpiresAt,
		Consumed:  rec.Consumed,
		Blocked:   rec.Blocked,
		Attempts:  rec.Attempts,
	}, nil
}
