package auditmock

import (
	"context"
	"sync"

	domain "invoice-approval-engine/internal/domain/audit"
)

var _ domain.Recorder = (*Recorder)(nil)

// Recorder keeps entries in memory. Err, when set, fails every Record call.
type Recorder struct {
	mu      sync.Mutex
	entries []*domain.Entry
	Err     error
}

func (r *Recorder) Record(ctx context.Context, e *domain.Entry) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *Recorder) ListByEntity(ctx context.Context, entityType, entityID string) ([]*domain.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Entry
	for _, e := range r.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *Recorder) Entries() []*domain.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.Entry(nil), r.entries...)
}

// Actions lists recorded actions in order.
func (r *Recorder) Actions() []string {
	var out []string
	for _, e := range r.Entries() {
		out = append(out, e.Action)
	}
	return out
}
