package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"invoice-approval-engine/internal/domain/delegation"
	ucDelegation "invoice-approval-engine/internal/usecase/delegation"
)

type Delegations interface {
	Create(ctx context.Context, in ucDelegation.CreateInput) (*delegation.DelegatedApproval, error)
	Revoke(ctx context.Context, delegationID, actorID string) (*delegation.DelegatedApproval, error)
	ListActive(ctx context.Context, delegatorID string) ([]*delegation.DelegatedApproval, error)
}

var _ Delegations = (*ucDelegation.Usecase)(nil)

type DelegationHandler struct {
	uc Delegations
}

func NewDelegationHandler(uc Delegations) *DelegationHandler { return &DelegationHandler{uc: uc} }

type delegationReq struct {
	OrganizationID     string           `json:"organization_id"     validate:"required,max=32"`
	DelegatorID        string           `json:"delegator_id"        validate:"required,max=64"`
	DelegateeID        string           `json:"delegatee_id"        validate:"required,max=64,nefield=DelegatorID"`
	StartDate          time.Time        `json:"start_date"          validate:"required"`
	EndDate            time.Time        `json:"end_date"            validate:"required,gtfield=StartDate"`
	Scope              string           `json:"scope"               validate:"omitempty,oneof=ALL CATEGORY AMOUNT_CAPPED"`
	SpecificCategories []string         `json:"specific_categories" validate:"omitempty,dive,required,max=64"`
	MaxAmount          *decimal.Decimal `json:"max_amount"          validate:"omitempty,gte=0,dec2"`
	Reason             *string          `json:"reason"              validate:"omitempty,max=500"`
}

// CreateDelegation: POST /v1/delegations
func (h *DelegationHandler) CreateDelegation(c echo.Context) error {
	var req delegationReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	d, err := h.uc.Create(c.Request().Context(), ucDelegation.CreateInput{
		OrganizationID:     req.OrganizationID,
		DelegatorID:        req.DelegatorID,
		DelegateeID:        req.DelegateeID,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		Scope:              delegation.Scope(req.Scope),
		SpecificCategories: req.SpecificCategories,
		MaxAmount:          req.MaxAmount,
		Reason:             req.Reason,
		ActorID:            actorID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, d)
}

// RevokeDelegation: DELETE /v1/delegations/:delegation_id
func (h *DelegationHandler) RevokeDelegation(c echo.Context) error {
	id, ok, err := pathID(c, "delegation_id")
	if !ok {
		return err
	}
	d, err := h.uc.Revoke(c.Request().Context(), id, actorID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// ListActive: GET /v1/delegators/:user_id/delegations
func (h *DelegationHandler) ListActive(c echo.Context) error {
	userID := c.Param("user_id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing user_id path param"})
	}
	list, err := h.uc.ListActive(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": list})
}
