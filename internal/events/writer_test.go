package events

import (
	"context"
	"testing"
	"time"

	"dagda/internal/domain"
)

type memLog struct {
	timeline []domain.TimelineEvent
	outbox   []domain.OutboxEvent
}

func (m *memLog) AppendEvent(_ context.Context, e domain.TimelineEvent) error {
	m.timeline = append(m.timeline, e)
	return nil
}

func (m *memLog) AppendOutbox(_ context.Context, e domain.OutboxEvent) error {
	m.outbox = append(m.outbox, e)
	return nil
}

func TestAppendFansOutByType(t *testing.T) {
	store := &memLog{}
	w := Writer{
		Timeline: store,
		Outbox:   store,
		Now:      func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) },
	}
	ctx := context.Background()

	if _, err := w.Append(ctx, Event{PartyID: "p1", Type: domain.EventNoteAdded, Label: "note"}); err != nil {
		t.Fatalf("append note: %v", err)
	}
	te, err := w.Append(ctx, Event{
		PartyID:       "p1",
		Type:          domain.EventSaveCreated,
		Label:         "Saved to slot 1",
		Payload:       EventPayload{"slot": 1, "slotId": "s1"},
		OutboxPayload: EventPayload{"slot": 1},
	})
	if err != nil {
		t.Fatalf("append save: %v", err)
	}
	if len(store.timeline) != 2 {
		t.Fatalf("expected 2 timeline entries, got %d", len(store.timeline))
	}
	if len(store.outbox) != 1 {
		t.Fatalf("expected 1 outbox entry, got %d", len(store.outbox))
	}
	ob := store.outbox[0]
	if ob.Type != domain.EventSaveCreated || ob.Status != domain.OutboxPending {
		t.Fatalf("unexpected outbox entry %+v", ob)
	}
	if ob.Payload["partyId"] != "p1" || ob.Payload["slot"] != 1 {
		t.Fatalf("unexpected outbox payload %v", ob.Payload)
	}
	if _, leaked := ob.Payload["slotId"]; leaked {
		t.Fatalf("outbox payload should not carry timeline-only fields: %v", ob.Payload)
	}
	if te.CreatedAt != "2024-03-01T10:00:00.000Z" || ob.CreatedAt != te.CreatedAt {
		t.Fatalf("unexpected timestamps %s / %s", te.CreatedAt, ob.CreatedAt)
	}
	if te.ID == "" || te.ID == ob.ID {
		t.Fatalf("expected distinct ids, got %q and %q", te.ID, ob.ID)
	}
}

func TestAppendRequiresParty(t *testing.T) {
	w := Writer{Timeline: &memLog{}}
	if _, err := w.Append(context.Background(), Event{Type: domain.EventNoteAdded}); err == nil {
		t.Fatalf("expected error for event without party")
	}
}
