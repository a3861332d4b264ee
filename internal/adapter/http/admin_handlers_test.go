package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"invoice-approval-engine/internal/domain/chain"
	"invoice-approval-engine/internal/domain/delegation"
	"invoice-approval-engine/internal/domain/routing"
	"invoice-approval-engine/internal/usecase/chainresolver"
	ucDelegation "invoice-approval-engine/internal/usecase/delegation"
	"invoice-approval-engine/internal/usecase/router"
)

type fakeChains struct {
	got chainresolver.CreateInput
	err error
}

func (f *fakeChains) Create(ctx context.Context, in chainresolver.CreateInput) (*chain.ApprovalChain, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return &chain.ApprovalChain{ChainID: "c1", OrganizationID: in.OrganizationID, Name: in.Name}, nil
}

type fakeDelegations struct {
	created ucDelegation.CreateInput
	revoked string
}

func (f *fakeDelegations) Create(ctx context.Context, in ucDelegation.CreateInput) (*delegation.DelegatedApproval, error) {
	f.created = in
	return &delegation.DelegatedApproval{DelegationID: "d1", DelegatorID: in.DelegatorID, DelegateeID: in.DelegateeID, IsActive: true}, nil
}

func (f *fakeDelegations) Revoke(ctx context.Context, id, actorID string) (*delegation.DelegatedApproval, error) {
	if id != approvalID {
		return nil, delegation.ErrNotFound
	}
	f.revoked = actorID
	return &delegation.DelegatedApproval{DelegationID: id}, nil
}

func (f *fakeDelegations) ListActive(ctx context.Context, delegatorID string) ([]*delegation.DelegatedApproval, error) {
	return []*delegation.DelegatedApproval{{DelegationID: "d1", DelegatorID: delegatorID}}, nil
}

func TestCreateChain(t *testing.T) {
	e := newEchoWithValidator()
	uc := &fakeChains{}
	h := NewChainHandler(uc)

	body := map[string]any{
		"organization_id": "org1",
		"name":            "Capex",
		"type":            "CAPITAL_EXPENDITURE",
		"min_amount":      "10000",
		"currency":        "usd",
		"levels": []map[string]any{
			{"level_number": 1, "required_role": "BRANCH_MANAGER"},
			{"level_number": 2, "specific_approver_ids": []string{"cfo"}, "require_all": true},
		},
		"auto_escalation_hours": 24,
		"allow_delegation":      true,
	}
	rec := call(t, e, h.CreateChain, stdhttp.MethodPost, "/", mustJSON(body), "admin")
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("status = %d, want 201; body=%s", rec.Code, rec.Body.String())
	}
	if uc.got.Type != chain.TypeCapitalExpenditure || len(uc.got.Levels) != 2 || !uc.got.Levels[1].RequireAll ||
		uc.got.MinAmount == nil || !uc.got.MinAmount.Equal(decimal.NewFromInt(10000)) || uc.got.ActorID != "admin" {
		t.Fatalf("unexpected input: %+v", uc.got)
	}

	body["levels"] = []map[string]any{}
	rec = call(t, e, h.CreateChain, stdhttp.MethodPost, "/", mustJSON(body), "admin")
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("no levels: status = %d, want 422", rec.Code)
	}
	if er := decodeError(t, rec); !containsFieldMsg(er.Details, "levels", "at least 1") {
		t.Fatalf("unexpected details: %+v", er.Details)
	}

	uc.err = chain.ErrInvalidChain
	body["levels"] = []map[string]any{{"level_number": 2}}
	if rec := call(t, e, h.CreateChain, stdhttp.MethodPost, "/", mustJSON(body), "admin"); rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("invalid chain: status = %d, want 422", rec.Code)
	}
}

func TestDelegationHandlers(t *testing.T) {
	e := newEchoWithValidator()
	uc := &fakeDelegations{}
	h := NewDelegationHandler(uc)

	body := map[string]any{
		"organization_id": "org1",
		"delegator_id":    "alice",
		"delegatee_id":    "bob",
		"start_date":      "2025-05-01T00:00:00Z",
		"end_date":        "2025-05-08T00:00:00Z",
		"scope":           "AMOUNT_CAPPED",
		"max_amount":      25000,
	}
	rec := call(t, e, h.CreateDelegation, stdhttp.MethodPost, "/", mustJSON(body), "alice")
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("create: status = %d body=%s", rec.Code, rec.Body.String())
	}
	if uc.created.Scope != delegation.ScopeAmountCapped || uc.created.MaxAmount == nil || uc.created.MaxAmount.IntPart() != 25000 {
		t.Fatalf("unexpected input: %+v", uc.created)
	}

	if rec := call(t, e, h.RevokeDelegation, stdhttp.MethodDelete, "/", nil, "admin", "delegation_id", approvalID); rec.Code != stdhttp.StatusOK || uc.revoked != "admin" {
		t.Fatalf("revoke: status = %d revoked by %q", rec.Code, uc.revoked)
	}
	if rec := call(t, e, h.RevokeDelegation, stdhttp.MethodDelete, "/", nil, "admin", "delegation_id", strings.Repeat("b", 32)); rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("revoke unknown: status = %d, want 404", rec.Code)
	}
	if rec := call(t, e, h.ListActive, stdhttp.MethodGet, "/", nil, "", "user_id", "alice"); rec.Code != stdhttp.StatusOK || !strings.Contains(rec.Body.String(), `"delegation_id":"d1"`) {
		t.Fatalf("list: status = %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestRoutingHandlers(t *testing.T) {
	e := newEchoWithValidator()
	uc := router.NewUsecase(&memPolicies{}, router.MustDefault(), nil, zerolog.Nop())
	h := NewRoutingHandler(uc)

	rec := call(t, e, h.Preview, stdhttp.MethodPost, "/", mustJSON(map[string]any{"organization_id": "org1", "amount": "250000"}), "")
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("preview: status = %d body=%s", rec.Code, rec.Body.String())
	}
	var p router.Preview
	_ = json.Unmarshal(rec.Body.Bytes(), &p)
	if p.Role.Name != "EXECUTIVE" || !p.NeedsEscalation {
		t.Fatalf("unexpected preview: %+v", p)
	}

	policy := map[string]any{
		"thresholds": []map[string]any{
			{"up_to": "1000", "role": "CLERK"},
			{"role": "MANAGER"},
		},
		"escalation_threshold": "5000",
	}
	rec = call(t, e, h.SavePolicy, stdhttp.MethodPut, "/", mustJSON(policy), "admin", "organization_id", "org1")
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("save: status = %d body=%s", rec.Code, rec.Body.String())
	}
	rec = call(t, e, h.Preview, stdhttp.MethodPost, "/", mustJSON(map[string]any{"organization_id": "org1", "amount": 6000}), "")
	_ = json.Unmarshal(rec.Body.Bytes(), &p)
	if p.Role.Name != "MANAGER" || !p.NeedsEscalation {
		t.Fatalf("saved policy not applied: %+v", p)
	}

	// unbounded tier not last
	policy["thresholds"] = []map[string]any{{"role": "MANAGER"}, {"up_to": "1000", "role": "CLERK"}}
	rec = call(t, e, h.SavePolicy, stdhttp.MethodPut, "/", mustJSON(policy), "admin", "organization_id", "org1")
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("malformed table: status = %d, want 422", rec.Code)
	}
}

func TestRegister_MountsRoutes(t *testing.T) {
	e := echo.New()
	called := 0
	idem := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error { called++; return next(c) }
	}
	Register(e, Handlers{
		Health:      NewHandler(nil),
		Workflow:    NewWorkflowHandler(&fakeWorkflow{}),
		Chains:      NewChainHandler(&fakeChains{}),
		Delegations: NewDelegationHandler(&fakeDelegations{}),
		Routing:     NewRoutingHandler(router.NewUsecase(&memPolicies{}, router.MustDefault(), nil, zerolog.Nop())),
	}, idem)

	want := map[string]bool{
		"GET /health": false,
		"POST /v1/invoices/:invoice_id/approval-workflow": false,
		"GET /v1/invoices/:invoice_id/approvals":          false,
		"GET /v1/approvals/:approval_id":                  false,
		"POST /v1/approvals/:approval_id/decision":        false,
		"POST /v1/approvals/:approval_id/delegate":        false,
		"GET /v1/approvers/:user_id/pending":              false,
		"POST /v1/chains":                                 false,
		"POST /v1/delegations":                            false,
		"DELETE /v1/delegations/:delegation_id":           false,
		"GET /v1/delegators/:user_id/delegations":         false,
		"PUT /v1/routing-policies/:organization_id":       false,
		"POST /v1/routing/preview":                        false,
	}
	for _, r := range e.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for k, seen := range want {
		if !seen {
			t.Fatalf("route %s not registered", k)
		}
	}

	// only guarded routes pass through the idempotency middleware
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/health", nil))
	if called != 0 {
		t.Fatalf("health must not be guarded")
	}
	req := httptest.NewRequest(stdhttp.MethodPost, "/v1/approvals/nothex/decision", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	e.ServeHTTP(httptest.NewRecorder(), req)
	if called != 1 {
		t.Fatalf("decision route must be guarded, called=%d", called)
	}
}

// memPolicies is an in-memory routing.Repository.
type memPolicies struct {
	byOrg map[string]*routing.Policy
}

func (m *memPolicies) GetByOrganization(ctx context.Context, organizationID string) (*routing.Policy, error) {
	if p, ok := m.byOrg[organizationID]; ok {
		return p, nil
	}
	return nil, routing.ErrNotFound
}

func (m *memPolicies) Upsert(ctx context.Context, p *routing.Policy) error {
	if m.byOrg == nil {
		m.byOrg = map[string]*routing.Policy{}
	}
	m.byOrg[p.OrganizationID] = p
	return nil
}
