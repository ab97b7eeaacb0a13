package inbound

import (
	"context"

	"github.com/kourier/otc/internal/otc/usecase"
	"github.com/kourier/otc/internal/pkg/router"
)

type uc interface {
	Issue(ctx context.Context, in usecase.IssueInput) (*usecase.IssueOutput, error)
	Verify(ctx context.Context, in usecase.VerifyInput) (*usecase.VerifyOutput, error)

	Reactivate(ctx context.Context, in usecase.ReactivateInput) (*usecase.ReactivateOutput, error)
	DebugCode(ctx context.Context, in usecase.DebugCodeInput) (*usecase.DebugCodeOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// Code lifecycle
	r.POST("/api/v1/otc/issue", end.Issue)
	r.POST("/api/v1/otc/verify", end.Verify)

	// Operator tooling (need authenticated admin)
	r.POST("/api/v1/otc/reactivate", end.Reactivate)
	r.GET("/api/v1/otc/debug/code", end.DebugCode)
}
