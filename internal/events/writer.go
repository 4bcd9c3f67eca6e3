// Package events fans domain events out to the timeline and the outbox.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dagda/internal/clock"
	"dagda/internal/domain"
)

type TimelineAppender interface {
	AppendEvent(ctx context.Context, e domain.TimelineEvent) error
}

type OutboxAppender interface {
	AppendOutbox(ctx context.Context, e domain.OutboxEvent) error
}

// Writer appends one timeline entry per event, plus an outbox entry when
// the event type is outbound.
type Writer struct {
	Timeline TimelineAppender
	Outbox   OutboxAppender
	Now      func() time.Time
	NewID    func() string
}

type EventPayload map[string]any

type Event struct {
	PartyID string
	Type    domain.EventType
	Label   string
	Payload EventPayload
	// OutboxPayload replaces Payload on the outbox entry when set.
	OutboxPayload EventPayload
}

func (w Writer) now() string {
	if w.Now == nil {
		return clock.Format(time.Now())
	}
	return clock.Format(w.Now())
}

func (w Writer) newID() string {
	if w.NewID == nil {
		return uuid.NewString()
	}
	return w.NewID()
}

// Append records evt and returns the stored timeline entry.
func (w Writer) Append(ctx context.Context, evt Event) (domain.TimelineEvent, error) {
	if evt.PartyID == "" {
		return domain.TimelineEvent{}, fmt.Errorf("event %s has no party", evt.Type)
	}
	ts := w.now()
	te := domain.TimelineEvent{
		ID:        w.newID(),
		PartyID:   evt.PartyID,
		Type:      evt.Type,
		Label:     evt.Label,
		Payload:   map[string]any(evt.Payload),
		CreatedAt: ts,
	}
	if err := w.Timeline.AppendEvent(ctx, te); err != nil {
		return domain.TimelineEvent{}, fmt.Errorf("append %s to timeline: %w", evt.Type, err)
	}
	if !evt.Type.Outbound() || w.Outbox == nil {
		return te, nil
	}
	payload := evt.OutboxPayload
	if payload == nil {
		payload = EventPayload{}
		for k, v := range evt.Payload {
			payload[k] = v
		}
	}
	if _, ok := payload["partyId"]; !ok {
		payload["partyId"] = evt.PartyID
	}
	ob := domain.OutboxEvent{
		ID:        w.newID(),
		PartyID:   evt.PartyID,
		Type:      evt.Type,
		Payload:   map[string]any(payload),
		Status:    domain.OutboxPending,
		CreatedAt: ts,
	}
	if err := w.Outbox.AppendOutbox(ctx, ob); err != nil {
		return domain.TimelineEvent{}, fmt.Errorf("append %s to outbox: %w", evt.Type, err)
	}
	return te, nil
}
