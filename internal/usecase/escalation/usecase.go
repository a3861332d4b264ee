package escalation

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"invoice-approval-engine/internal/domain/approval"
	"invoice-approval-engine/pkg/clock"
)

// Engine is the part of the workflow the scheduler drives.
type Engine interface {
	Escalate(ctx context.Context, approvalID string) (*approval.Approval, bool, error)
	Remind(ctx context.Context, approvalID string) (bool, error)
}

// Locker grants a short exclusive lease so that only one replica sweeps at a
// time. ok is false when another holder has it.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// Windows reports the widest per-chain reminder window.
type Windows interface {
	LongestReminderWindow(ctx context.Context) (time.Duration, error)
}

type Config struct {
	EscalationInterval time.Duration
	ReminderInterval   time.Duration
	BatchSize          int
	// ReminderLookahead bounds the reminder candidate query; each candidate's
	// own chain window is checked by the engine. Windows, when set, widens it
	// to the longest chain window.
	ReminderLookahead time.Duration
	Windows           Windows
	LockTTL           time.Duration
}

// Usecase runs periodic sweeps over live approvals.
type Usecase struct {
	approvals approval.Repository
	engine    Engine
	locker    Locker
	clock     clock.Clock
	cfg       Config
	log       zerolog.Logger
}

// NewUsecase: locker may be nil for a single replica.
func NewUsecase(approvals approval.Repository, engine Engine, locker Locker, clk clock.Clock, cfg Config, log zerolog.Logger) *Usecase {
	if clk == nil {
		clk = clock.Real{}
	}
	if cfg.EscalationInterval <= 0 {
		cfg.EscalationInterval = 5 * time.Minute
	}
	if cfg.ReminderInterval <= 0 {
		cfg.ReminderInterval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.ReminderLookahead <= 0 {
		cfg.ReminderLookahead = 72 * time.Hour
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = cfg.EscalationInterval
	}
	return &Usecase{approvals: approvals, engine: engine, locker: locker, clock: clk, cfg: cfg,
		log: log.With().Str("component", "escalation_scheduler").Logger()}
}

// Run sweeps on both intervals until ctx is done.
func (u *Usecase) Run(ctx context.Context) error {
	esc := time.NewTicker(u.cfg.EscalationInterval)
	defer esc.Stop()
	rem := time.NewTicker(u.cfg.ReminderInterval)
	defer rem.Stop()

	u.log.Info().Dur("escalation_interval", u.cfg.EscalationInterval).Dur("reminder_interval", u.cfg.ReminderInterval).
		Msg("escalation scheduler started")
	for {
		select {
		case <-ctx.Done():
			u.log.Info().Msg("escalation scheduler stopped")
			return nil
		case <-esc.C:
			if _, err := u.SweepEscalations(ctx); err != nil && ctx.Err() == nil {
				u.log.Error().Err(err).Msg("escalation sweep failed")
			}
		case <-rem.C:
			if _, err := u.SweepReminders(ctx); err != nil && ctx.Err() == nil {
				u.log.Error().Err(err).Msg("reminder sweep failed")
			}
		}
	}
}

// SweepEscalations escalates every overdue approval it finds and returns how
// many were escalated. A failure on one approval does not stop the sweep.
func (u *Usecase) SweepEscalations(ctx context.Context) (int, error) {
	release, ok, err := u.lock(ctx, "approval-sweep:escalation")
	if err != nil || !ok {
		return 0, err
	}
	defer release()

	started := u.clock.Now()
	due, err := u.approvals.ListDueForEscalation(ctx, started, u.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, cand := range due {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		a, escalated, err := u.engine.Escalate(ctx, cand.ApprovalID)
		switch {
		case err == nil:
			if escalated {
				n++
			}
		case errors.Is(err, approval.ErrInvalidTransition):
			// decided after the candidate query ran: expected race
			if a != nil && a.ActionedAt != nil && !a.ActionedAt.Before(started) {
				u.log.Info().Str("approval_id", cand.ApprovalID).Msg("approval decided before escalation")
				continue
			}
			u.log.Error().Err(err).Str("approval_id", cand.ApprovalID).Msg("escalation requested for a decided approval")
		default:
			u.log.Error().Err(err).Str("approval_id", cand.ApprovalID).Msg("escalation failed")
		}
	}
	if len(due) > 0 {
		u.log.Info().Int("candidates", len(due)).Int("escalated", n).Msg("escalation sweep done")
	}
	return n, nil
}

// SweepReminders sends the one-time reminder to approvals inside their window.
func (u *Usecase) SweepReminders(ctx context.Context) (int, error) {
	release, ok, err := u.lock(ctx, "approval-sweep:reminder")
	if err != nil || !ok {
		return 0, err
	}
	defer release()

	now := u.clock.Now()
	due, err := u.approvals.ListDueForReminder(ctx, now, now.Add(u.lookahead(ctx)), u.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, cand := range due {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		sent, err := u.engine.Remind(ctx, cand.ApprovalID)
		if err != nil {
			u.log.Error().Err(err).Str("approval_id", cand.ApprovalID).Msg("reminder failed")
			continue
		}
		if sent {
			n++
		}
	}
	if n > 0 {
		u.log.Info().Int("candidates", len(due)).Int("reminded", n).Msg("reminder sweep done")
	}
	return n, nil
}

func (u *Usecase) lookahead(ctx context.Context) time.Duration {
	d := u.cfg.ReminderLookahead
	if u.cfg.Windows == nil {
		return d
	}
	w, err := u.cfg.Windows.LongestReminderWindow(ctx)
	if err != nil {
		u.log.Warn().Err(err).Dur("lookahead", d).Msg("reminder window lookup failed, using configured lookahead")
		return d
	}
	if w > d {
		return w
	}
	return d
}

func (u *Usecase) lock(ctx context.Context, key string) (func(), bool, error) {
	if u.locker == nil {
		return func() {}, true, nil
	}
	release, ok, err := u.locker.Acquire(ctx, key, u.cfg.LockTTL)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		u.log.Debug().Str("key", key).Msg("sweep held by another replica")
		return nil, false, nil
	}
	return release, true, nil
}
