package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"invoice-approval-engine/internal/domain/routing"
	"invoice-approval-engine/internal/usecase/router"
)

type Routing interface {
	SavePolicy(ctx context.Context, in router.PolicyInput) (*router.Router, error)
	Preview(ctx context.Context, organizationID string, amount decimal.Decimal) (*router.Preview, error)
}

var _ Routing = (*router.Usecase)(nil)

type RoutingHandler struct {
	uc Routing
}

func NewRoutingHandler(uc Routing) *RoutingHandler { return &RoutingHandler{uc: uc} }

type thresholdReq struct {
	UpTo *decimal.Decimal `json:"up_to" validate:"omitempty,gte=0,dec2"`
	Role string           `json:"role"  validate:"required,max=64"`
}

type policyReq struct {
	Thresholds          []thresholdReq  `json:"thresholds"           validate:"required,min=1,dive"`
	EscalationThreshold decimal.Decimal `json:"escalation_threshold" validate:"gte=0,dec2"`
}

type policyResp struct {
	OrganizationID      string              `json:"organization_id"`
	Thresholds          []routing.Threshold `json:"thresholds"`
	EscalationThreshold decimal.Decimal     `json:"escalation_threshold"`
	Roles               []router.Role       `json:"roles"`
}

// SavePolicy: PUT /v1/routing-policies/:organization_id
func (h *RoutingHandler) SavePolicy(c echo.Context) error {
	orgID := c.Param("organization_id")
	if orgID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing organization_id path param"})
	}
	var req policyReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	table := make([]routing.Threshold, 0, len(req.Thresholds))
	for _, t := range req.Thresholds {
		table = append(table, routing.Threshold{UpTo: t.UpTo, Role: t.Role})
	}
	rt, err := h.uc.SavePolicy(c.Request().Context(), router.PolicyInput{
		OrganizationID:      orgID,
		Thresholds:          table,
		EscalationThreshold: req.EscalationThreshold,
		ActorID:             actorID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, policyResp{
		OrganizationID:      orgID,
		Thresholds:          rt.Thresholds(),
		EscalationThreshold: rt.EscalationThreshold(),
		Roles:               rt.Roles(),
	})
}

type previewReq struct {
	OrganizationID string          `json:"organization_id" validate:"required,max=32"`
	Amount         decimal.Decimal `json:"amount"          validate:"gte=0,dec2"`
}

// Preview: POST /v1/routing/preview
func (h *RoutingHandler) Preview(c echo.Context) error {
	var req previewReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	p, err := h.uc.Preview(c.Request().Context(), req.OrganizationID, req.Amount)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
