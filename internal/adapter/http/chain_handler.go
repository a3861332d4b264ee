package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"invoice-approval-engine/internal/domain/chain"
	"invoice-approval-engine/internal/usecase/chainresolver"
)

type Chains interface {
	Create(ctx context.Context, in chainresolver.CreateInput) (*chain.ApprovalChain, error)
}

var _ Chains = (*chainresolver.Usecase)(nil)

type ChainHandler struct {
	uc Chains
}

func NewChainHandler(uc Chains) *ChainHandler { return &ChainHandler{uc: uc} }

type levelReq struct {
	LevelNumber          int      `json:"level_number"           validate:"gte=1"`
	RequiredRole         string   `json:"required_role"          validate:"omitempty,max=64"`
	SpecificApproverIDs  []string `json:"specific_approver_ids"  validate:"omitempty,dive,required,max=64"`
	AlternateApproverIDs []string `json:"alternate_approver_ids" validate:"omitempty,dive,required,max=64"`
	RequireAll           bool     `json:"require_all"`
}

type chainReq struct {
	OrganizationID      string           `json:"organization_id"       validate:"required,max=32"`
	Name                string           `json:"name"                  validate:"required,max=128"`
	Type                string           `json:"type"                  validate:"omitempty,oneof=STANDARD EXPRESS CAPITAL_EXPENDITURE"`
	Department          *string          `json:"department"            validate:"omitempty,max=64"`
	Category            *string          `json:"category"              validate:"omitempty,max=64"`
	MinAmount           *decimal.Decimal `json:"min_amount"            validate:"omitempty,gte=0,dec2"`
	MaxAmount           *decimal.Decimal `json:"max_amount"            validate:"omitempty,gte=0,dec2"`
	Currency            string           `json:"currency"              validate:"omitempty,alpha,len=3"`
	Levels              []levelReq       `json:"levels"                validate:"required,min=1,dive"`
	AutoEscalationHours int              `json:"auto_escalation_hours" validate:"gte=0"`
	ReminderHours       int              `json:"reminder_hours"        validate:"gte=0"`
	AllowDelegation     bool             `json:"allow_delegation"`
	RequireAllApprovers bool             `json:"require_all_approvers"`
	Priority            int              `json:"priority"`
}

// CreateChain: POST /v1/chains
func (h *ChainHandler) CreateChain(c echo.Context) error {
	var req chainReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	levels := make([]chain.Level, 0, len(req.Levels))
	for _, l := range req.Levels {
		levels = append(levels, chain.Level{
			LevelNumber:          l.LevelNumber,
			RequiredRole:         strings.TrimSpace(l.RequiredRole),
			SpecificApproverIDs:  l.SpecificApproverIDs,
			AlternateApproverIDs: l.AlternateApproverIDs,
			RequireAll:           l.RequireAll,
		})
	}
	out, err := h.uc.Create(c.Request().Context(), chainresolver.CreateInput{
		OrganizationID:      req.OrganizationID,
		Name:                req.Name,
		Type:                chain.Type(req.Type),
		Department:          req.Department,
		Category:            req.Category,
		MinAmount:           req.MinAmount,
		MaxAmount:           req.MaxAmount,
		Currency:            req.Currency,
		Levels:              levels,
		AutoEscalationHours: req.AutoEscalationHours,
		ReminderHours:       req.ReminderHours,
		AllowDelegation:     req.AllowDelegation,
		RequireAllApprovers: req.RequireAllApprovers,
		Priority:            req.Priority,
		ActorID:             actorID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}
