package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kourier/otc/internal/otc/entity"
	"github.com/kourier/otc/internal/pkg/goerror"
)

type ReactivateInput struct {
	Identifier string `validate:"required,max=255"`
	Code       string `validate:"required,len=4,number"`
}

type ReactivateOutput struct {
	RecordID  int64
	ExpiresAt time.Time
}

// Reactivate is the support-desk override for a code that was consumed by
// accident: the exact record matching the identifier/code pair has its
// consumed flag cleared so the user can verify it again. Expired and blocked
// records stay rejected.
func (s *Usecase) Reactivate(ctx context.Context, in ReactivateInput) (*ReactivateOutput, error) {
	ctx, span := s.startSpan(ctx, "Reactivate")
	defer span.End()

	clm, err := s.authenticatedAdmin(ctx)
	if err != nil {
		return nil, err
	}

	in.Identifier = strings.TrimSpace(in.Identifier)
	if entity.ChannelOf(in.Identifier) == entity.ChannelEmail {
		in.Identifier = strings.ToLower(in.Identifier)
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	rec, reason, err := s.repoDB.ReactivateCode(ctx, in.Identifier, in.Code, s.clock.Now())
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo reactivate code", "identifier", in.Identifier, "error", err)
		return nil, goerror.NewServer(err)
	}

	switch reason {
	case entity.ReasonNone:
	case entity.ReasonNoActiveCode:
		return nil, goerror.NewBusiness("No matching code record for this identifier", goerror.CodeNotFound)
	case entity.ReasonCodeExpired:
		return nil, goerror.NewBusiness("Code record has expired", goerror.CodeConflict)
	case entity.ReasonBlocked:
		return nil, goerror.NewBusiness("Code record is blocked", goerror.CodeConflict)
	default:
		return nil, goerror.NewBusiness("Code record cannot be reactivated", goerror.CodeConflict)
	}

	slog.InfoContext(ctx, "code record reactivated",
		"identifier", in.Identifier,
		"record_id", rec.ID,
		"admin_id", clm.UserID,
	)

	return &ReactivateOutput{
		RecordID:  rec.ID,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}
