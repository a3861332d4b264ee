package notify

import (
	"context"

	"github.com/rs/zerolog"

	domain "invoice-approval-engine/internal/domain/notify"
)

var _ domain.Dispatcher = (*LogDispatcher)(nil)

// LogDispatcher writes notifications to the log. Used when NATS is not configured.
type LogDispatcher struct {
	log zerolog.Logger
}

func NewLogDispatcher(log zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{log: log.With().Str("component", "notify.log").Logger()}
}

func (d *LogDispatcher) Notify(ctx context.Context, n domain.Notification) error {
	d.log.Info().
		Str("organization_id", n.OrganizationID).
		Str("user_id", n.UserID).
		Str("type", string(n.Type)).
		Str("priority", string(n.Priority)).
		Str("entity_type", n.Entity.Type).
		Str("entity_id", n.Entity.ID).
		Str("title", n.Title).
		Msg(n.Message)
	return nil
}
