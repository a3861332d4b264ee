package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"invoice-approval-engine/internal/domain/approval"
	"invoice-approval-engine/internal/domain/chain"
	"invoice-approval-engine/internal/domain/delegation"
	"invoice-approval-engine/internal/domain/invoice"
	"invoice-approval-engine/internal/usecase/chainresolver"
	"invoice-approval-engine/internal/usecase/router"
	"invoice-approval-engine/internal/usecase/workflow"
)

// HeaderActorID carries the acting user. Authentication happens upstream.
const HeaderActorID = "X-Actor-Id"

// statusFor maps domain errors to HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, approval.ErrNotFound),
		errors.Is(err, invoice.ErrNotFound),
		errors.Is(err, chain.ErrNotFound),
		errors.Is(err, delegation.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, approval.ErrInvalidTransition),
		errors.Is(err, invoice.ErrWorkflowStarted),
		errors.Is(err, invoice.ErrWorkflowClosed):
		return http.StatusConflict
	case errors.Is(err, approval.ErrNotAssignedApprover):
		return http.StatusForbidden
	case errors.Is(err, approval.ErrInvalidDecision),
		errors.Is(err, approval.ErrCommentsRequired),
		errors.Is(err, invoice.ErrNegativeAmount),
		errors.Is(err, chain.ErrInvalidChain),
		errors.Is(err, chain.ErrNoApplicableChain),
		errors.Is(err, chainresolver.ErrNoEligibleApprover),
		errors.Is(err, delegation.ErrInvalidDelegation),
		errors.Is(err, router.ErrMalformedThresholds),
		errors.Is(err, router.ErrNegativeAmount),
		errors.Is(err, router.ErrUnknownRole),
		errors.Is(err, workflow.ErrDelegationNotAllowed),
		errors.Is(err, workflow.ErrInvalidDelegatee),
		errors.Is(err, workflow.ErrNoEscalationTarget):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, err error) error {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		c.Logger().Error(err)
		msg = "internal error"
	}
	return c.JSON(code, ErrorResponse{Error: msg})
}

// bindAndValidate writes the 400/422 response itself and reports whether the
// handler may continue.
func bindAndValidate(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	return true, nil
}

func actorID(c echo.Context) string {
	return strings.TrimSpace(c.Request().Header.Get(HeaderActorID))
}

// requireActor writes a 400 when the actor header is missing.
func requireActor(c echo.Context) (string, bool, error) {
	id := actorID(c)
	if id == "" {
		return "", false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing " + HeaderActorID + " header"})
	}
	return id, true, nil
}

// pathID reads a 32-hex path param.
func pathID(c echo.Context, name string) (string, bool, error) {
	v := c.Param(name)
	if v == "" {
		return "", false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing " + name + " path param"})
	}
	if !reHex32.MatchString(v) {
		return "", false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name + " path param"})
	}
	return v, true, nil
}
