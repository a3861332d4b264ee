package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"invoice-approval-engine/internal/domain/approval"
	"invoice-approval-engine/internal/domain/invoice"
	"invoice-approval-engine/internal/usecase/workflow"
)

// Workflow is the engine surface the handler drives.
type Workflow interface {
	Start(ctx context.Context, invoiceID, submittedBy string) (*workflow.StartResult, error)
	View(ctx context.Context, approvalID, actorID string) (*approval.Approval, error)
	Decide(ctx context.Context, in workflow.DecideInput) (*workflow.DecideResult, error)
	Delegate(ctx context.Context, in workflow.DelegateInput) (*approval.Approval, error)
	ListForInvoice(ctx context.Context, invoiceID string) ([]*approval.Approval, error)
	PendingFor(ctx context.Context, actorID string) ([]*approval.Approval, error)
}

var _ Workflow = (*workflow.Usecase)(nil)

type WorkflowHandler struct {
	uc Workflow
}

func NewWorkflowHandler(uc Workflow) *WorkflowHandler { return &WorkflowHandler{uc: uc} }

type startResp struct {
	InvoiceID      string               `json:"invoice_id"`
	ApprovalStatus string               `json:"approval_status"`
	ChainID        string               `json:"approval_chain_id"`
	TotalStages    int                  `json:"total_stages"`
	AutoApproved   bool                 `json:"auto_approved"`
	Approvals      []*approval.Approval `json:"approvals"`
}

// StartWorkflow: POST /v1/invoices/:invoice_id/approval-workflow
func (h *WorkflowHandler) StartWorkflow(c echo.Context) error {
	invoiceID := c.Param("invoice_id")
	if invoiceID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing invoice_id path param"})
	}
	actor, ok, err := requireActor(c)
	if !ok {
		return err
	}
	res, err := h.uc.Start(c.Request().Context(), invoiceID, actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, startResp{
		InvoiceID:      res.Invoice.InvoiceID,
		ApprovalStatus: string(res.Invoice.ApprovalStatus),
		ChainID:        res.Chain.ChainID,
		TotalStages:    res.Invoice.TotalStages,
		AutoApproved:   res.AutoApproved,
		Approvals:      res.Approvals,
	})
}

// ListInvoiceApprovals: GET /v1/invoices/:invoice_id/approvals
func (h *WorkflowHandler) ListInvoiceApprovals(c echo.Context) error {
	invoiceID := c.Param("invoice_id")
	if invoiceID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing invoice_id path param"})
	}
	list, err := h.uc.ListForInvoice(c.Request().Context(), invoiceID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": list})
}

// ViewApproval: GET /v1/approvals/:approval_id
func (h *WorkflowHandler) ViewApproval(c echo.Context) error {
	id, ok, err := pathID(c, "approval_id")
	if !ok {
		return err
	}
	a, err := h.uc.View(c.Request().Context(), id, actorID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

type decideReq struct {
	Decision string  `json:"decision" validate:"required,oneof=APPROVE REJECT"`
	Comments *string `json:"comments" validate:"omitempty,max=2000"`
}

type decideResp struct {
	Approval  *approval.Approval   `json:"approval"`
	Activated []*approval.Approval `json:"activated,omitempty"`
	Invoice   *invoice.Invoice     `json:"invoice,omitempty"`
	Replayed  bool                 `json:"replayed"`
}

// Decide: POST /v1/approvals/:approval_id/decision
func (h *WorkflowHandler) Decide(c echo.Context) error {
	id, ok, err := pathID(c, "approval_id")
	if !ok {
		return err
	}
	actor, ok, err := requireActor(c)
	if !ok {
		return err
	}
	var req decideReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	res, err := h.uc.Decide(c.Request().Context(), workflow.DecideInput{
		ApprovalID: id,
		ActorID:    actor,
		Decision:   approval.Decision(req.Decision),
		Comments:   req.Comments,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, decideResp{
		Approval:  res.Approval,
		Activated: res.Activated,
		Invoice:   res.Invoice,
		Replayed:  res.Replayed,
	})
}

type delegateReq struct {
	DelegateeID string  `json:"delegatee_id" validate:"required,max=64"`
	Reason      *string `json:"reason" validate:"omitempty,max=500"`
}

// Delegate: POST /v1/approvals/:approval_id/delegate
func (h *WorkflowHandler) Delegate(c echo.Context) error {
	id, ok, err := pathID(c, "approval_id")
	if !ok {
		return err
	}
	actor, ok, err := requireActor(c)
	if !ok {
		return err
	}
	var req delegateReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	a, err := h.uc.Delegate(c.Request().Context(), workflow.DelegateInput{
		ApprovalID:  id,
		ActorID:     actor,
		DelegateeID: req.DelegateeID,
		Reason:      req.Reason,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// PendingFor: GET /v1/approvers/:user_id/pending
func (h *WorkflowHandler) PendingFor(c echo.Context) error {
	userID := c.Param("user_id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing user_id path param"})
	}
	list, err := h.uc.PendingFor(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": list})
}
