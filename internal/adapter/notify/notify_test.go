package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	domain "invoice-approval-engine/internal/domain/notify"
)

type fakePublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func sample() domain.Notification {
	return domain.Notification{
		OrganizationID: "org1",
		UserID:         "bm1",
		Type:           domain.TypeApprovalAssigned,
		Title:          "Approval required",
		Message:        "Invoice INV-1 awaits your approval",
		Priority:       domain.PriorityNormal,
		Entity:         domain.EntityRef{Type: "approval", ID: "A1"},
	}
}

func TestNATSDispatcher_Notify(t *testing.T) {
	pub := &fakePublisher{}
	d := NewNATSDispatcher(pub, "acme.approvals.", zerolog.Nop())
	at := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return at }

	if err := d.Notify(context.Background(), sample()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(pub.subjects) != 1 || pub.subjects[0] != "acme.approvals.approval_assigned" {
		t.Fatalf("unexpected subjects: %v", pub.subjects)
	}

	var ev Event
	if err := json.Unmarshal(pub.payloads[0], &ev); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if ev.UserID != "bm1" || ev.Entity.ID != "A1" || !ev.SentAt.Equal(at) {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestNATSDispatcher_Edges(t *testing.T) {
	pub := &fakePublisher{}
	d := NewNATSDispatcher(pub, "", zerolog.Nop())
	if got := d.Subject(domain.TypeWorkflowBlocked); got != "approvals.notifications.workflow_blocked" {
		t.Fatalf("default subject = %q", got)
	}

	n := sample()
	n.UserID = ""
	if err := d.Notify(context.Background(), n); err != nil || len(pub.subjects) != 0 {
		t.Fatalf("recipient-less notification must be dropped: %v %v", err, pub.subjects)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Notify(ctx, sample()); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}

	pub.err = errors.New("no responders")
	if err := d.Notify(context.Background(), sample()); err == nil || !strings.Contains(err.Error(), "approval_assigned") {
		t.Fatalf("publish failure must surface with subject, got %v", err)
	}
}

func TestLogDispatcher_Notify(t *testing.T) {
	var buf bytes.Buffer
	d := NewLogDispatcher(zerolog.New(&buf))

	if err := d.Notify(context.Background(), sample()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if line["user_id"] != "bm1" || line["type"] != "APPROVAL_ASSIGNED" || line["component"] != "notify.log" {
		t.Fatalf("unexpected log line: %v", line)
	}
}
