package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	domain "invoice-approval-engine/internal/domain/notify"
)

var _ domain.Dispatcher = (*NATSDispatcher)(nil)

// Publisher is the part of *nats.Conn the dispatcher needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Event is the JSON body published for every notification.
type Event struct {
	domain.Notification
	SentAt time.Time `json:"sent_at"`
}

// NATSDispatcher publishes notifications as JSON on <prefix>.<type>,
// e.g. approvals.notifications.approval_assigned.
type NATSDispatcher struct {
	pub    Publisher
	prefix string
	now    func() time.Time
	log    zerolog.Logger
}

func NewNATSDispatcher(pub Publisher, prefix string, log zerolog.Logger) *NATSDispatcher {
	if prefix == "" {
		prefix = "approvals.notifications"
	}
	return &NATSDispatcher{
		pub:    pub,
		prefix: strings.TrimSuffix(prefix, "."),
		now:    func() time.Time { return time.Now().UTC() },
		log:    log.With().Str("component", "notify.nats").Logger(),
	}
}

// Connect dials NATS with reconnects enabled and logs connection state changes.
func Connect(url string, log zerolog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("invoice-approval-engine"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return nc, nil
}

// Subject returns the subject a notification of type t is published on.
func (d *NATSDispatcher) Subject(t domain.Type) string {
	return d.prefix + "." + strings.ToLower(string(t))
}

func (d *NATSDispatcher) Notify(ctx context.Context, n domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.UserID == "" {
		return nil
	}
	data, err := json.Marshal(Event{Notification: n, SentAt: d.now()})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	subject := d.Subject(n.Type)
	if err := d.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	d.log.Debug().
		Str("subject", subject).
		Str("user_id", n.UserID).
		Str("entity_id", n.Entity.ID).
		Msg("notification published")
	return nil
}
