package inbound

import (
	"time"

	"github.com/kourier/otc/internal/otc/usecase"
	"github.com/kourier/otc/internal/pkg/goerror"
	"github.com/kourier/otc/internal/pkg/router"
	"github.com/kourier/otc/internal/pkg/strcase"
)

// HTTPEndpoint exposes HTTP handlers for the one-time-code lifecycle.
type HTTPEndpoint struct {
	uc uc
}

// Issue generates and dispatches a one-time code for an identifier.
// @Summary Issue a one-time code
// @Description Generates a short-lived code for an email address or phone number and hands it to the delivery pipeline. A repeated call supersedes the previous code.
// @Tags OTC
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Client key to de-duplicate retried requests"
// @Param request body IssueRequest true "Issue payload"
// @Success 200 {object} router.successResponse{data=IssueResponse} "Issuance result"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 409 {object} router.errorResponse "Duplicate issue request"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 429 {object} router.errorResponse "Resend cooldown still open"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/otc/issue [post]
func (h *HTTPEndpoint) Issue(r *router.Request) (any, error) {
	var req IssueRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	in := usecase.IssueInput{
		Identifier:     req.Identifier,
		Purpose:        req.Purpose,
		AccountID:      req.AccountID,
		IdempotencyKey: r.IdempotencyKey(),
	}
	if req.Registration != nil {
		in.Registration = &usecase.IssueRegistrationInput{
			Email:       req.Registration.Email,
			Phone:       req.Registration.Phone,
			Role:        req.Registration.Role,
			DisplayName: req.Registration.DisplayName,
			BirthDate:   req.Registration.BirthDate,
		}
	}

	resp, err := h.uc.Issue(r.Context(), in)
	if err != nil {
		return nil, err
	}

	return IssueResponse{
		Channel:          resp.Channel.String(),
		ExpiresInSeconds: int64(resp.ExpiresIn.Seconds()),
		Code:             resp.Code,
	}, nil
}

// Verify checks a submitted code against the identifier's code history.
// @Summary Verify a one-time code
// @Description Validates the submitted code. Rejections are part of the response body, not HTTP errors; rate-limited attempts carry a retry delay.
// @Tags OTC
// @Accept json
// @Produce json
// @Param request body VerifyRequest true "Verify payload"
// @Success 200 {object} router.successResponse{data=VerifyResponse} "Verification outcome"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/otc/verify [post]
func (h *HTTPEndpoint) Verify(r *router.Request) (any, error) {
	var req VerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Verify(r.Context(), usecase.VerifyInput{
		Identifier: req.Identifier,
		Code:       req.Code,
	})
	if err != nil {
		return nil, err
	}

	out := VerifyResponse{
		Verified:          resp.Success,
		RetryAfterSeconds: retryAfterSeconds(resp.RetryAfter),
		AccountID:         resp.AccountID,
	}
	if !resp.Success {
		out.Reason = strcase.ToLowerSnake(resp.Reason.String())
	}
	if resp.Registration != nil {
		out.Registration = &RegistrationRequest{
			Email:       resp.Registration.Email,
			Phone:       resp.Registration.Phone,
			Role:        resp.Registration.Role,
			DisplayName: resp.Registration.DisplayName,
			BirthDate:   resp.Registration.BirthDate,
		}
	}

	return out, nil
}

// Reactivate revives a consumed code record for an identifier.
// @Summary Reactivate a consumed code record
// @Description Support-desk override: locates the exact record for the identifier/code pair, consumed records included, and clears its consumed flag. Expired and blocked records are rejected. Requires an admin-scoped token.
// @Tags OTC, Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ReactivateRequest true "Reactivate payload"
// @Success 200 {object} router.successResponse{data=ReactivateResponse} "Reactivation result"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 403 {object} router.errorResponse "Admin scope required"
// @Failure 404 {object} router.errorResponse "No matching code record for this identifier"
// @Failure 409 {object} router.errorResponse "Record is expired or blocked"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/otc/reactivate [post]
func (h *HTTPEndpoint) Reactivate(r *router.Request) (any, error) {
	var req ReactivateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Reactivate(r.Context(), usecase.ReactivateInput{
		Identifier: req.Identifier,
		Code:       req.Code,
	})
	if err != nil {
		return nil, err
	}

	return ReactivateResponse{
		RecordID:  resp.RecordID,
		ExpiresAt: resp.ExpiresAt,
	}, nil
}

// retryAfterSeconds rounds the remaining backoff window up to whole seconds.
// Truncating would tell the client to retry while the window is still open.
func retryAfterSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}

// DebugCode reads back the latest code for an identifier.
// @Summary Inspect the latest code
// @Description Returns the newest code record for development environments with code exposure enabled. Requires an admin-scoped token.
// @Tags OTC, Admin
// @Produce json
// @Security BearerAuth
// @Param identifier query string true "Email address or phone number"
// @Success 200 {object} router.successResponse{data=DebugCodeResponse} "Latest code record"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 403 {object} router.errorResponse "Code exposure is disabled"
// @Failure 404 {object} router.errorResponse "No code record for this identifier"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/otc/debug/code [get]
func (h *HTTPEndpoint) DebugCode(r *router.Request) (any, error) {
	identifier := r.GetQuery("identifier")
	if identifier == "" {
		return nil, goerror.NewInvalidInput(nil, "identifier", "identifier query parameter is required")
	}

	resp, err := h.uc.DebugCode(r.Context(), usecase.DebugCodeInput{Identifier: identifier})
	if err != nil {
		return nil, err
	}

	return DebugCodeResponse{
		Code:      resp.Code,
		ExpiresAt: resp.ExpiresAt,
		Consumed:  resp.Consumed,
		Blocked:   resp.Blocked,
		Attempts:  resp.Attempts,
	}, nil
}
