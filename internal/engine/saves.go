package engine

import (
	"context"
	"fmt"

	"dagda/internal/domain"
	"dagda/internal/events"
	"dagda/internal/repo"
	"dagda/internal/rules"
)

type SaveResult struct {
	Slot     domain.SaveSlot `json:"slot"`
	Replaced bool            `json:"replaced"`
}

// CreateSave snapshots the party into slot. An occupied slot is replaced in
// place and keeps its id.
func (e Engine) CreateSave(ctx context.Context, id string, slot int) (SaveResult, error) {
	p, err := e.loadActive(ctx, id)
	if err != nil {
		return SaveResult{}, err
	}
	slots, err := e.Slots.ListSaveSlots(ctx, p.ID)
	if err != nil {
		return SaveResult{}, fmt.Errorf("list save slots: %w", err)
	}
	var existing *domain.SaveSlot
	for i := range slots {
		if slots[i].Slot == slot {
			existing = &slots[i]
			break
		}
	}
	if existing == nil && len(slots) >= rules.MaxSaveSlots {
		return SaveResult{}, ErrSaveSlotsFull
	}
	if slot < 1 || slot > rules.MaxSaveSlots {
		return SaveResult{}, fmt.Errorf("%w: slot must be between 1 and %d", ErrInvalidInput, rules.MaxSaveSlots)
	}
	notes, err := e.Notebook.ListNotes(ctx, p.ID)
	if err != nil {
		return SaveResult{}, fmt.Errorf("list notes: %w", err)
	}
	snap := snapshotOf(p, notes, slots)
	s := domain.SaveSlot{
		ID:        e.newID(),
		PartyID:   p.ID,
		Slot:      slot,
		Snapshot:  &snap,
		CreatedAt: e.timestamp(),
	}
	evtType := domain.EventSaveCreated
	label := fmt.Sprintf("Saved to slot %d", slot)
	if existing != nil {
		s.ID = existing.ID
		evtType = domain.EventSaveReplaced
		label = fmt.Sprintf("Slot %d overwritten", slot)
	}
	if err := e.Slots.SaveSaveSlot(ctx, s); err != nil {
		return SaveResult{}, fmt.Errorf("save slot: %w", err)
	}
	if _, err := e.emit(ctx, events.Event{
		PartyID:       p.ID,
		Type:          evtType,
		Label:         label,
		Payload:       events.EventPayload{"slotId": s.ID, "slot": slot},
		OutboxPayload: events.EventPayload{"slot": slot},
	}); err != nil {
		return SaveResult{}, err
	}
	return SaveResult{Slot: s, Replaced: existing != nil}, nil
}

// RestoreSave puts the party back to the state held by slotID. Notes from
// the snapshot are saved again; newer notes stay.
func (e Engine) RestoreSave(ctx context.Context, id, slotID string) (domain.Party, error) {
	p, err := e.loadActive(ctx, id)
	if err != nil {
		return domain.Party{}, err
	}
	slots, err := e.Slots.ListSaveSlots(ctx, p.ID)
	if err != nil {
		return domain.Party{}, fmt.Errorf("list save slots: %w", err)
	}
	var target *domain.SaveSlot
	for i := range slots {
		if slots[i].ID == slotID {
			target = &slots[i]
			break
		}
	}
	if target == nil {
		return domain.Party{}, fmt.Errorf("save slot %s: %w", slotID, repo.ErrNotFound)
	}
	if target.Snapshot == nil {
		return domain.Party{}, fmt.Errorf("%w: save slot %s has no snapshot", ErrPrecondition, slotID)
	}
	if !rules.CanRestoreAnySlot(p.Mode) {
		if latest := latestSlot(slots); latest.ID != target.ID {
			return domain.Party{}, fmt.Errorf("%w: slot %d is older than slot %d", ErrRestoreNotAllowed, target.Slot, latest.Slot)
		}
	}

	restored := target.Snapshot.Party
	restored.ID = p.ID
	restored.Mode = p.Mode
	restored.Status = p.Status
	restored.CreatedAt = p.CreatedAt
	restored.UpdatedAt = e.timestamp()
	if err := e.Parties.SaveParty(ctx, restored); err != nil {
		return domain.Party{}, fmt.Errorf("save party: %w", err)
	}
	for _, n := range target.Snapshot.Notes {
		n.PartyID = p.ID
		if err := e.Notebook.SaveNote(ctx, n); err != nil {
			return domain.Party{}, fmt.Errorf("restore note %s: %w", n.ID, err)
		}
	}
	if _, err := e.emit(ctx, events.Event{
		PartyID: p.ID,
		Type:    domain.EventSaveRestored,
		Label:   fmt.Sprintf("Slot %d restored", target.Slot),
		Payload: events.EventPayload{"slotId": target.ID, "slot": target.Slot},
	}); err != nil {
		return domain.Party{}, err
	}
	return restored, nil
}

// SaveSlots returns the party's slots ordered by slot number.
func (e Engine) SaveSlots(ctx context.Context, id string) ([]domain.SaveSlot, error) {
	if _, err := e.Parties.GetParty(ctx, id); err != nil {
		return nil, err
	}
	return e.Slots.ListSaveSlots(ctx, id)
}

// snapshotOf embeds slot headers only, so saves never nest earlier saves.
func snapshotOf(p domain.Party, notes []domain.Note, slots []domain.SaveSlot) domain.PartySnapshot {
	snap := domain.PartySnapshot{
		Party:     p,
		Notes:     append([]domain.Note{}, notes...),
		SaveSlots: make([]domain.SaveSlot, 0, len(slots)),
	}
	for _, s := range slots {
		snap.SaveSlots = append(snap.SaveSlots, s.Header())
	}
	return snap
}

// latestSlot picks the most recent save; equal timestamps go to the higher
// slot number. slots must not be empty.
func latestSlot(slots []domain.SaveSlot) domain.SaveSlot {
	latest := slots[0]
	for _, s := range slots[1:] {
		if s.CreatedAt > latest.CreatedAt || (s.CreatedAt == latest.CreatedAt && s.Slot > latest.Slot) {
			latest = s
		}
	}
	return latest
}
