package notifymock

import (
	"context"
	"sync"

	domain "invoice-approval-engine/internal/domain/notify"
)

var _ domain.Dispatcher = (*Recorder)(nil)

// Recorder keeps every notification it is given. Err, when set, is returned
// after recording.
type Recorder struct {
	mu   sync.Mutex
	sent []domain.Notification
	Err  error
}

func (r *Recorder) Notify(ctx context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.Err
}

func (r *Recorder) Sent() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification(nil), r.sent...)
}

// To returns notifications of type t addressed to user.
func (r *Recorder) To(user string, t domain.Type) []domain.Notification {
	var out []domain.Notification
	for _, n := range r.Sent() {
		if n.UserID == user && n.Type == t {
			out = append(out, n)
		}
	}
	return out
}
