package router

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"invoice-approval-engine/internal/domain/routing"
)

var (
	ErrMalformedThresholds = errors.New("malformed routing thresholds")
	ErrNegativeAmount      = errors.New("amount must not be negative")
	ErrUnknownRole         = errors.New("role is not part of the routing table")
)

// Role is a routing tier. Seniority grows with the amount the role may approve.
type Role struct {
	Name      string `json:"name"`
	Seniority int    `json:"seniority"`
}

type tier struct {
	upTo *decimal.Decimal
	role Role
}

// Router maps an amount to the minimum role allowed to approve it. It is
// immutable once built.
type Router struct {
	tiers      []tier
	escalation decimal.Decimal
}

// DefaultEscalationThreshold is the amount above which mandatory senior
// sign-off is required.
var DefaultEscalationThreshold = decimal.NewFromInt(200000)

// DefaultThresholds is the table used for organizations without a policy.
func DefaultThresholds() []routing.Threshold {
	up := func(v int64) *decimal.Decimal { d := decimal.NewFromInt(v); return &d }
	return []routing.Threshold{
		{UpTo: up(10000), Role: "CREDIT_CLERK"},
		{UpTo: up(50000), Role: "BRANCH_MANAGER"},
		{UpTo: up(200000), Role: "FINANCIAL_MANAGER"},
		{UpTo: up(1000000), Role: "EXECUTIVE"},
		{Role: "GROUP_FINANCIAL_MANAGER"},
	}
}

// New validates the table: bounds strictly increasing, the last tier
// unbounded, role names unique. Seniority follows table order.
func New(thresholds []routing.Threshold, escalation decimal.Decimal) (*Router, error) {
	if len(thresholds) == 0 {
		return nil, fmt.Errorf("%w: empty table", ErrMalformedThresholds)
	}
	if escalation.IsNegative() {
		return nil, fmt.Errorf("%w: negative escalation threshold", ErrMalformedThresholds)
	}

	tiers := make([]tier, 0, len(thresholds))
	seen := make(map[string]struct{}, len(thresholds))
	var prev *decimal.Decimal
	for i, t := range thresholds {
		name := strings.TrimSpace(t.Role)
		if name == "" {
			return nil, fmt.Errorf("%w: tier %d has no role", ErrMalformedThresholds, i+1)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: role %s appears twice", ErrMalformedThresholds, name)
		}
		seen[name] = struct{}{}

		last := i == len(thresholds)-1
		switch {
		case last && t.UpTo != nil:
			return nil, fmt.Errorf("%w: last tier must be unbounded", ErrMalformedThresholds)
		case !last && t.UpTo == nil:
			return nil, fmt.Errorf("%w: tier %d is unbounded but not last", ErrMalformedThresholds, i+1)
		case t.UpTo != nil && t.UpTo.IsNegative():
			return nil, fmt.Errorf("%w: tier %d has a negative bound", ErrMalformedThresholds, i+1)
		case t.UpTo != nil && prev != nil && !t.UpTo.GreaterThan(*prev):
			return nil, fmt.Errorf("%w: tier %d bound %s is not above %s", ErrMalformedThresholds, i+1, t.UpTo, prev)
		}
		var upTo *decimal.Decimal
		if t.UpTo != nil {
			v := *t.UpTo
			upTo = &v
			prev = upTo
		}
		tiers = append(tiers, tier{upTo: upTo, role: Role{Name: name, Seniority: i + 1}})
	}
	return &Router{tiers: tiers, escalation: escalation}, nil
}

// MustDefault panics only if the built-in table is broken.
func MustDefault() *Router {
	r, err := New(DefaultThresholds(), DefaultEscalationThreshold)
	if err != nil {
		panic(err)
	}
	return r
}

// Route returns the minimum role for amount. Bounds are inclusive.
func (r *Router) Route(amount decimal.Decimal) (Role, error) {
	if amount.IsNegative() {
		return Role{}, ErrNegativeAmount
	}
	for _, t := range r.tiers {
		if t.upTo == nil || amount.LessThanOrEqual(*t.upTo) {
			return t.role, nil
		}
	}
	// unreachable: last tier is unbounded
	return r.tiers[len(r.tiers)-1].role, nil
}

// NeedsEscalation is true strictly above the escalation threshold.
func (r *Router) NeedsEscalation(amount decimal.Decimal) bool {
	return amount.GreaterThan(r.escalation)
}

func (r *Router) EscalationThreshold() decimal.Decimal { return r.escalation }

// Seniority returns the rank of a role, or 0 when it is not in the table.
func (r *Router) Seniority(role string) int {
	for _, t := range r.tiers {
		if t.role.Name == role {
			return t.role.Seniority
		}
	}
	return 0
}

// Next returns the role one tier above role.
func (r *Router) Next(role string) (Role, error) {
	for i, t := range r.tiers {
		if t.role.Name != role {
			continue
		}
		if i == len(r.tiers)-1 {
			return Role{}, fmt.Errorf("%w: %s is the most senior role", ErrUnknownRole, role)
		}
		return r.tiers[i+1].role, nil
	}
	return Role{}, fmt.Errorf("%w: %s", ErrUnknownRole, role)
}

// Roles lists the tiers in ascending seniority.
func (r *Router) Roles() []Role {
	out := make([]Role, len(r.tiers))
	for i, t := range r.tiers {
		out[i] = t.role
	}
	return out
}

// Thresholds returns the table in its persisted form.
func (r *Router) Thresholds() []routing.Threshold {
	out := make([]routing.Threshold, len(r.tiers))
	for i, t := range r.tiers {
		out[i] = routing.Threshold{UpTo: t.upTo, Role: t.role.Name}
	}
	return out
}
