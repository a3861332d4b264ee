package chainresolver

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"invoice-approval-engine/internal/domain/audit"
	"invoice-approval-engine/internal/domain/chain"
	"invoice-approval-engine/internal/domain/directory"
	"invoice-approval-engine/pkg/clock"
	"invoice-approval-engine/pkg/id"
)

// Converter turns an amount into another currency. Optional.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// Input is what chain selection looks at. Tags are carried for logging only.
type Input struct {
	OrganizationID string
	Amount         decimal.Decimal
	Currency       string
	BaseAmount     decimal.Decimal
	BaseCurrency   string
	Category       string
	Department     string
	Tags           []string
}

// NoApplicableChainError means the organization has no chain for the invoice.
// It is a configuration problem, never silently defaulted.
type NoApplicableChainError struct {
	OrganizationID string
	Amount         decimal.Decimal
	Currency       string
	Category       string
	Department     string
}

func (e *NoApplicableChainError) Error() string {
	return fmt.Sprintf("no applicable approval chain for organization %s (amount %s %s, category %q, department %q)",
		e.OrganizationID, e.Amount, e.Currency, e.Category, e.Department)
}

func (e *NoApplicableChainError) Is(target error) bool { return target == chain.ErrNoApplicableChain }

type Usecase struct {
	chains    chain.Repository
	directory directory.Directory
	converter Converter
	audit     audit.Recorder
	clock     clock.Clock
	log       zerolog.Logger
}

// NewUsecase: conv may be nil, in which case chains priced in a foreign
// currency only match through the invoice's base amount.
func NewUsecase(chains chain.Repository, dir directory.Directory, conv Converter, rec audit.Recorder, clk clock.Clock, log zerolog.Logger) *Usecase {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Usecase{chains: chains, directory: dir, converter: conv, audit: rec, clock: clk, log: log.With().Str("component", "chain_resolver").Logger()}
}

// Resolve picks exactly one active chain. Candidates are ordered by priority,
// then scoping specificity, then chain id, so the choice is deterministic.
func (u *Usecase) Resolve(ctx context.Context, in Input) (*chain.ApprovalChain, error) {
	all, err := u.chains.ListActive(ctx, in.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("list chains: %w", err)
	}

	var matches []*chain.ApprovalChain
	for _, c := range all {
		ok, err := u.matches(ctx, c, in)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, c)
		}
	}

	if len(matches) == 0 {
		u.log.Error().
			Str("organization_id", in.OrganizationID).
			Str("amount", in.Amount.String()).
			Str("currency", in.Currency).
			Str("category", in.Category).
			Str("department", in.Department).
			Strs("tags", in.Tags).
			Msg("no applicable approval chain")
		return nil, &NoApplicableChainError{
			OrganizationID: in.OrganizationID,
			Amount:         in.Amount,
			Currency:       in.Currency,
			Category:       in.Category,
			Department:     in.Department,
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Specificity() != b.Specificity() {
			return a.Specificity() > b.Specificity()
		}
		return a.ChainID < b.ChainID
	})

	chosen := matches[0]
	if len(matches) > 1 && matches[1].Priority == chosen.Priority && matches[1].Specificity() == chosen.Specificity() {
		u.log.Warn().
			Str("organization_id", in.OrganizationID).
			Str("chosen", chosen.ChainID).
			Str("tied_with", matches[1].ChainID).
			Msg("approval chains tie on priority and specificity, lowest id wins")
	}
	u.log.Debug().Str("chain_id", chosen.ChainID).Strs("tags", in.Tags).Int("candidates", len(matches)).Msg("chain resolved")
	return chosen, nil
}

func (u *Usecase) matches(ctx context.Context, c *chain.ApprovalChain, in Input) (bool, error) {
	if !c.IsActive || c.OrganizationID != in.OrganizationID {
		return false, nil
	}
	if c.Department != nil && *c.Department != "" && !strings.EqualFold(*c.Department, in.Department) {
		return false, nil
	}
	if c.Category != nil && *c.Category != "" && !strings.EqualFold(*c.Category, in.Category) {
		return false, nil
	}
	amount, ok, err := u.amountIn(ctx, c.Currency, in)
	if err != nil || !ok {
		return false, err
	}
	if c.MinAmount != nil && amount.LessThan(*c.MinAmount) {
		return false, nil
	}
	if c.MaxAmount != nil && amount.GreaterThan(*c.MaxAmount) {
		return false, nil
	}
	return true, nil
}

// amountIn expresses the invoice amount in the chain's currency. ok is false
// when the currencies differ and no conversion is available.
func (u *Usecase) amountIn(ctx context.Context, currency string, in Input) (decimal.Decimal, bool, error) {
	switch {
	case currency == "" || strings.EqualFold(currency, in.Currency):
		return in.Amount, true, nil
	case in.BaseCurrency != "" && strings.EqualFold(currency, in.BaseCurrency):
		return in.BaseAmount, true, nil
	case u.converter != nil:
		v, err := u.converter.Convert(ctx, in.Amount, in.Currency, currency)
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("convert %s to %s: %w", in.Currency, currency, err)
		}
		return v, true, nil
	default:
		return decimal.Zero, false, nil
	}
}

// CreateInput defines a new chain.
type CreateInput struct {
	OrganizationID      string
	Name                string
	Type                chain.Type
	Department          *string
	Category            *string
	MinAmount           *decimal.Decimal
	MaxAmount           *decimal.Decimal
	Currency            string
	Levels              []chain.Level
	AutoEscalationHours int
	ReminderHours       int
	AllowDelegation     bool
	RequireAllApprovers bool
	Priority            int
	ActorID             string
}

func (u *Usecase) Create(ctx context.Context, in CreateInput) (*chain.ApprovalChain, error) {
	c := &chain.ApprovalChain{
		ChainID:             id.NewID32(),
		OrganizationID:      in.OrganizationID,
		Name:                strings.TrimSpace(in.Name),
		Type:                in.Type,
		Department:          in.Department,
		Category:            in.Category,
		MinAmount:           in.MinAmount,
		MaxAmount:           in.MaxAmount,
		Currency:            strings.ToUpper(in.Currency),
		Levels:              datatypes.NewJSONType(in.Levels),
		AutoEscalationHours: in.AutoEscalationHours,
		ReminderHours:       in.ReminderHours,
		AllowDelegation:     in.AllowDelegation,
		RequireAllApprovers: in.RequireAllApprovers,
		IsActive:            true,
		Priority:            in.Priority,
	}
	if c.Type == "" {
		c.Type = chain.TypeStandard
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := u.chains.Create(ctx, c); err != nil {
		return nil, err
	}
	u.log.Info().Str("chain_id", c.ChainID).Str("organization_id", c.OrganizationID).Int("levels", len(in.Levels)).Msg("approval chain created")

	if u.audit != nil {
		e := &audit.Entry{
			EntryID:        id.NewID32(),
			OrganizationID: c.OrganizationID,
			Action:         audit.ActionChainCreated,
			EntityType:     audit.EntityChain,
			EntityID:       c.ChainID,
			ActorID:        in.ActorID,
			CreatedAt:      u.clock.Now(),
		}
		if err := u.audit.Record(ctx, e); err != nil {
			u.log.Warn().Err(err).Str("action", e.Action).Msg("audit write failed")
		}
	}
	return c, nil
}

// SLA returns the chain's escalation window, falling back to def.
func SLA(c *chain.ApprovalChain, def time.Duration) time.Duration {
	if c != nil && c.AutoEscalationHours > 0 {
		return time.Duration(c.AutoEscalationHours) * time.Hour
	}
	return def
}

// LongestReminderWindow is the widest reminder window set on any chain, zero
// when every chain uses the default.
func (u *Usecase) LongestReminderWindow(ctx context.Context) (time.Duration, error) {
	hours, err := u.chains.MaxReminderHours(ctx)
	if err != nil {
		return 0, err
	}
	return time.Duration(hours) * time.Hour, nil
}

// ReminderWindow returns how long before the SLA a reminder fires.
func ReminderWindow(c *chain.ApprovalChain, def time.Duration) time.Duration {
	if c != nil && c.ReminderHours > 0 {
		return time.Duration(c.ReminderHours) * time.Hour
	}
	return def
}
