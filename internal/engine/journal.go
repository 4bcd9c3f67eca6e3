package engine

import (
	"context"
	"fmt"

	"dagda/internal/domain"
	"dagda/internal/events"
)

const notePreviewRunes = 40

func notePreview(content string) string {
	r := []rune(content)
	if len(r) <= notePreviewRunes {
		return content
	}
	return string(r[:notePreviewRunes]) + "…"
}

// AddNote stores a note in full and logs a short preview of it.
func (e Engine) AddNote(ctx context.Context, id, content string) (domain.Note, error) {
	content, err := required("note content", content)
	if err != nil {
		return domain.Note{}, err
	}
	p, err := e.Parties.GetParty(ctx, id)
	if err != nil {
		return domain.Note{}, err
	}
	n := domain.Note{ID: e.newID(), PartyID: p.ID, Content: content, CreatedAt: e.timestamp()}
	if err := e.Notebook.SaveNote(ctx, n); err != nil {
		return domain.Note{}, fmt.Errorf("save note: %w", err)
	}
	if _, err := e.emit(ctx, events.Event{
		PartyID: p.ID,
		Type:    domain.EventNoteAdded,
		Label:   fmt.Sprintf("Note added: %q", notePreview(content)),
		Payload: events.EventPayload{"noteId": n.ID},
	}); err != nil {
		return domain.Note{}, err
	}
	return n, nil
}

// AddCustomAction logs a free-form action on the timeline.
func (e Engine) AddCustomAction(ctx context.Context, id, label string) (domain.TimelineEvent, error) {
	label, err := required("label", label)
	if err != nil {
		return domain.TimelineEvent{}, err
	}
	p, err := e.Parties.GetParty(ctx, id)
	if err != nil {
		return domain.TimelineEvent{}, err
	}
	return e.emit(ctx, events.Event{PartyID: p.ID, Type: domain.EventCustomAction, Label: label})
}

// RecordCombatEvent logs one step of a fight. Only combat types are
// accepted. The party must be active, except for combat_defeat which may
// follow the death that ended the fight.
func (e Engine) RecordCombatEvent(ctx context.Context, id string, evtType domain.EventType, label string, payload map[string]any) (domain.TimelineEvent, error) {
	if !evtType.Combat() {
		return domain.TimelineEvent{}, fmt.Errorf("%w: %s is not a combat event", ErrInvalidInput, evtType)
	}
	label, err := required("label", label)
	if err != nil {
		return domain.TimelineEvent{}, err
	}
	var p domain.Party
	if evtType == domain.EventCombatDefeat {
		p, err = e.Parties.GetParty(ctx, id)
	} else {
		p, err = e.loadActive(ctx, id)
	}
	if err != nil {
		return domain.TimelineEvent{}, err
	}
	return e.emit(ctx, events.Event{PartyID: p.ID, Type: evtType, Label: label, Payload: payload})
}

// Timeline returns the party's events, most recent first.
func (e Engine) Timeline(ctx context.Context, id string) ([]domain.TimelineEvent, error) {
	if _, err := e.Parties.GetParty(ctx, id); err != nil {
		return nil, err
	}
	return e.Log.ListEvents(ctx, id)
}

// RecentEvents returns at most limit events (0 = all), newest first,
// optionally restricted to one type.
func (e Engine) RecentEvents(ctx context.Context, id string, limit int, evtType domain.EventType) ([]domain.TimelineEvent, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrInvalidInput)
	}
	if _, err := e.Parties.GetParty(ctx, id); err != nil {
		return nil, err
	}
	return e.Log.LatestEvents(ctx, id, limit, string(evtType))
}

// Notes returns the party's notes, most recent first.
func (e Engine) Notes(ctx context.Context, id string) ([]domain.Note, error) {
	if _, err := e.Parties.GetParty(ctx, id); err != nil {
		return nil, err
	}
	return e.Notebook.ListNotes(ctx, id)
}

// PendingOutbox lists outbox entries no consumer has picked up yet.
func (e Engine) PendingOutbox(ctx context.Context) ([]domain.OutboxEvent, error) {
	return e.Outbox.ListPendingOutbox(ctx)
}

// MarkOutboxSent flags one entry as delivered.
func (e Engine) MarkOutboxSent(ctx context.Context, id string) error {
	return e.Outbox.UpdateOutboxStatus(ctx, id, domain.OutboxSent, e.timestamp())
}
