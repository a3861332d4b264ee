package delegation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	domain "invoice-approval-engine/internal/domain/delegation"
	"invoice-approval-engine/internal/testutil/auditmock"
	"invoice-approval-engine/internal/testutil/delegationmock"
	"invoice-approval-engine/pkg/clock"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func deleg(id, from, to string, scope domain.Scope, created time.Time) *domain.DelegatedApproval {
	return &domain.DelegatedApproval{
		DelegationID: id,
		DelegatorID:  from,
		DelegateeID:  to,
		StartDate:    t0.Add(-24 * time.Hour),
		EndDate:      t0.Add(24 * time.Hour),
		IsActive:     true,
		Scope:        scope,
		CreatedAt:    created,
	}
}

func capped(d *domain.DelegatedApproval, max int64) *domain.DelegatedApproval {
	m := decimal.NewFromInt(max)
	d.MaxAmount = &m
	return d
}

func cats(d *domain.DelegatedApproval, c ...string) *domain.DelegatedApproval {
	d.SpecificCategories = datatypes.NewJSONType(c)
	return d
}

func TestUsecase_Resolve(t *testing.T) {
	tests := []struct {
		name     string
		list     []*domain.DelegatedApproval
		q        Query
		want     string
		wantDele bool
	}{
		{
			name: "no delegation keeps nominal",
			q:    Query{NominalApproverID: "alice", At: t0, Amount: decimal.NewFromInt(100)},
			want: "alice",
		},
		{
			name:     "ALL scope hands over",
			list:     []*domain.DelegatedApproval{deleg("d1", "alice", "bob", domain.ScopeAll, t0)},
			q:        Query{NominalApproverID: "alice", At: t0, Amount: decimal.NewFromInt(100)},
			want:     "bob",
			wantDele: true,
		},
		{
			name: "outside window is ignored",
			list: []*domain.DelegatedApproval{deleg("d1", "alice", "bob", domain.ScopeAll, t0)},
			q:    Query{NominalApproverID: "alice", At: t0.Add(48 * time.Hour), Amount: decimal.NewFromInt(100)},
			want: "alice",
		},
		{
			name: "amount cap exceeded",
			list: []*domain.DelegatedApproval{capped(deleg("d1", "alice", "bob", domain.ScopeAmountCapped, t0), 1000)},
			q:    Query{NominalApproverID: "alice", At: t0, Amount: decimal.NewFromInt(1001)},
			want: "alice",
		},
		{
			name:     "amount cap inclusive",
			list:     []*domain.DelegatedApproval{capped(deleg("d1", "alice", "bob", domain.ScopeAmountCapped, t0), 1000)},
			q:        Query{NominalApproverID: "alice", At: t0, Amount: decimal.NewFromInt(1000)},
			want:     "bob",
			wantDele: true,
		},
		{
			name: "category not listed",
			list: []*domain.DelegatedApproval{cats(deleg("d1", "alice", "bob", domain.ScopeCategory, t0), "TRAVEL")},
			q:    Query{NominalApproverID: "alice", At: t0, Category: "IT"},
			want: "alice",
		},
		{
			name: "most specific scope wins over newer broad one",
			list: []*domain.DelegatedApproval{
				cats(deleg("d1", "alice", "carol", domain.ScopeCategory, t0.Add(-time.Hour)), "it"),
				deleg("d2", "alice", "bob", domain.ScopeAll, t0),
			},
			q:        Query{NominalApproverID: "alice", At: t0, Category: "IT"},
			want:     "carol",
			wantDele: true,
		},
		{
			name: "same scope overlap picks most recent",
			list: []*domain.DelegatedApproval{
				deleg("d1", "alice", "bob", domain.ScopeAll, t0.Add(-2*time.Hour)),
				deleg("d2", "alice", "dave", domain.ScopeAll, t0.Add(-time.Hour)),
			},
			q:        Query{NominalApproverID: "alice", At: t0},
			want:     "dave",
			wantDele: true,
		},
		{
			name: "single hop only",
			list: []*domain.DelegatedApproval{
				deleg("d1", "alice", "bob", domain.ScopeAll, t0),
				deleg("d2", "bob", "carol", domain.ScopeAll, t0),
			},
			q:        Query{NominalApproverID: "alice", At: t0},
			want:     "bob",
			wantDele: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewUsecase(delegationmock.Static(tt.list...), nil, clock.NewFake(t0), zerolog.Nop())
			got, err := u.Resolve(context.Background(), tt.q)
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if got.ApproverID != tt.want || got.WasDelegated != tt.wantDele {
				t.Fatalf("want (%s,%v), got (%s,%v)", tt.want, tt.wantDele, got.ApproverID, got.WasDelegated)
			}
			if got.WasDelegated && got.Delegation == nil {
				t.Fatal("delegation record missing")
			}
		})
	}
}

func TestUsecase_Resolve_StorageError(t *testing.T) {
	u := NewUsecase(&delegationmock.Repo{}, nil, nil, zerolog.Nop())
	_, err := u.Resolve(context.Background(), Query{NominalApproverID: "alice", At: t0})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestUsecase_Create(t *testing.T) {
	var stored *domain.DelegatedApproval
	repo := delegationmock.Static(deleg("old", "alice", "bob", domain.ScopeAll, t0.Add(-time.Hour)))
	repo.CreateFn = func(ctx context.Context, d *domain.DelegatedApproval) error {
		stored = d
		return nil
	}
	rec := &auditmock.Recorder{}
	u := NewUsecase(repo, rec, clock.NewFake(t0), zerolog.Nop())

	_, err := u.Create(context.Background(), CreateInput{
		OrganizationID: "org1", DelegatorID: "alice", DelegateeID: "alice",
		StartDate: t0, EndDate: t0.Add(time.Hour),
	})
	if !errors.Is(err, domain.ErrInvalidDelegation) {
		t.Fatalf("self delegation: want ErrInvalidDelegation, got %v", err)
	}

	_, err = u.Create(context.Background(), CreateInput{
		OrganizationID: "org1", DelegatorID: "alice", DelegateeID: "carol",
		StartDate: t0, EndDate: t0.Add(time.Hour), Scope: domain.ScopeAmountCapped,
	})
	if !errors.Is(err, domain.ErrInvalidDelegation) {
		t.Fatalf("missing cap: want ErrInvalidDelegation, got %v", err)
	}

	d, err := u.Create(context.Background(), CreateInput{
		OrganizationID: "org1", DelegatorID: "alice", DelegateeID: "carol",
		StartDate: t0, EndDate: t0.Add(72 * time.Hour), ActorID: "alice",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if stored != d || d.Scope != domain.ScopeAll || !d.IsActive || len(d.DelegationID) != 32 {
		t.Fatalf("unexpected delegation: %+v", d)
	}
	if got := rec.Actions(); len(got) != 1 || got[0] != "DELEGATION_CREATED" {
		t.Fatalf("unexpected audit: %v", got)
	}
}

func TestUsecase_Revoke(t *testing.T) {
	d := deleg("d1", "alice", "bob", domain.ScopeAll, t0)
	calls := 0
	repo := &delegationmock.Repo{
		GetByDelegationIDFn: func(ctx context.Context, id string) (*domain.DelegatedApproval, error) {
			if id != "d1" {
				return nil, domain.ErrNotFound
			}
			return d, nil
		},
		DeactivateFn: func(ctx context.Context, id string) (bool, error) {
			calls++
			return calls == 1, nil
		},
	}
	rec := &auditmock.Recorder{}
	u := NewUsecase(repo, rec, clock.NewFake(t0), zerolog.Nop())

	if _, err := u.Revoke(context.Background(), "nope", "admin"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	for i := 0; i < 2; i++ {
		got, err := u.Revoke(context.Background(), "d1", "admin")
		if err != nil || got.IsActive {
			t.Fatalf("revoke %d: (%+v, %v)", i, got, err)
		}
	}
	if len(rec.Entries()) != 1 {
		t.Fatalf("repeat revoke must not audit twice, got %d", len(rec.Entries()))
	}
}

func TestUsecase_ListActive(t *testing.T) {
	expired := deleg("old", "alice", "bob", domain.ScopeAll, t0)
	expired.EndDate = t0.Add(-time.Hour)
	repo := delegationmock.Static(
		deleg("d1", "alice", "bob", domain.ScopeAll, t0),
		expired,
		deleg("d2", "dave", "bob", domain.ScopeAll, t0),
	)
	u := NewUsecase(repo, nil, clock.NewFake(t0), zerolog.Nop())

	got, err := u.ListActive(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 || got[0].DelegationID != "d1" {
		t.Fatalf("want [d1], got %v", got)
	}
}
