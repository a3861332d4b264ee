package http

import "github.com/labstack/echo/v4"

// Handlers groups everything Register mounts.
type Handlers struct {
	Health      *Handler
	Workflow    *WorkflowHandler
	Chains      *ChainHandler
	Delegations *DelegationHandler
	Routing     *RoutingHandler
}

// Register mounts the routes. idem guards the decision and hand-off endpoints
// and may be nil.
func Register(e *echo.Echo, h Handlers, idem echo.MiddlewareFunc) {
	e.GET("/health", h.Health.Health)

	var guarded []echo.MiddlewareFunc
	if idem != nil {
		guarded = append(guarded, idem)
	}

	v1 := e.Group("/v1")
	v1.POST("/invoices/:invoice_id/approval-workflow", h.Workflow.StartWorkflow)
	v1.GET("/invoices/:invoice_id/approvals", h.Workflow.ListInvoiceApprovals)
	v1.GET("/approvals/:approval_id", h.Workflow.ViewApproval)
	v1.POST("/approvals/:approval_id/decision", h.Workflow.Decide, guarded...)
	v1.POST("/approvals/:approval_id/delegate", h.Workflow.Delegate, guarded...)
	v1.GET("/approvers/:user_id/pending", h.Workflow.PendingFor)

	v1.POST("/chains", h.Chains.CreateChain)

	v1.POST("/delegations", h.Delegations.CreateDelegation)
	v1.DELETE("/delegations/:delegation_id", h.Delegations.RevokeDelegation)
	v1.GET("/delegators/:user_id/delegations", h.Delegations.ListActive)

	v1.PUT("/routing-policies/:organization_id", h.Routing.SavePolicy)
	v1.POST("/routing/preview", h.Routing.Preview)
}
