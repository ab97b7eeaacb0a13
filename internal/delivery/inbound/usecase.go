package inbound

import (
	"context"

	"github.com/kourier/otc/internal/delivery/usecase"
)

type uc interface {
	SendCode(ctx context.Context, in usecase.SendCodeInput) error
}
