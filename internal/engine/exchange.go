package engine

import (
	"context"
	"fmt"

	"dagda/internal/domain"
	"dagda/internal/events"
	"dagda/internal/rules"
	"dagda/internal/transfer"
)

type ExportResult struct {
	JSON     []byte               `json:"-"`
	Summary  string               `json:"summary"`
	Snapshot domain.PartySnapshot `json:"snapshot"`
}

// ExportParty encodes the party, its notes and its saves. Any status may be
// exported.
func (e Engine) ExportParty(ctx context.Context, id string) (ExportResult, error) {
	p, err := e.Parties.GetParty(ctx, id)
	if err != nil {
		return ExportResult{}, err
	}
	notes, err := e.Notebook.ListNotes(ctx, p.ID)
	if err != nil {
		return ExportResult{}, fmt.Errorf("list notes: %w", err)
	}
	slots, err := e.Slots.ListSaveSlots(ctx, p.ID)
	if err != nil {
		return ExportResult{}, fmt.Errorf("list save slots: %w", err)
	}
	snap := domain.PartySnapshot{Party: p, Notes: notes, SaveSlots: slots}
	exportedAt := e.timestamp()
	data, err := transfer.Encode(snap, exportedAt)
	if err != nil {
		return ExportResult{}, err
	}
	if _, err := e.emit(ctx, events.Event{
		PartyID: p.ID,
		Type:    domain.EventPartyExported,
		Label:   "Party exported (JSON)",
		Payload: events.EventPayload{"version": transfer.Version, "exportedAt": exportedAt},
	}); err != nil {
		return ExportResult{}, err
	}
	return ExportResult{JSON: data, Summary: transfer.Summary(snap, exportedAt), Snapshot: snap}, nil
}

// ImportParty creates a new party from an export. Every id is replaced so
// the copy never shares rows with its source.
func (e Engine) ImportParty(ctx context.Context, data []byte) (domain.Party, error) {
	env, err := transfer.Decode(data)
	if err != nil {
		return domain.Party{}, err
	}
	src := env.Snapshot
	ids := newIDMap(e.newID)
	partyID := e.newID()
	now := e.timestamp()

	p := src.Party
	p.ID = partyID
	p.Status = domain.StatusActive
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := validateImport(src); err != nil {
		return domain.Party{}, err
	}
	if err := e.Parties.SaveParty(ctx, p); err != nil {
		return domain.Party{}, fmt.Errorf("save party: %w", err)
	}
	for _, n := range src.Notes {
		if err := e.Notebook.SaveNote(ctx, ids.note(n, partyID)); err != nil {
			return domain.Party{}, fmt.Errorf("import note: %w", err)
		}
	}
	for _, s := range src.SaveSlots {
		copied := ids.slot(s, partyID)
		if s.Snapshot != nil {
			snap := ids.snapshot(*s.Snapshot, partyID)
			copied.Snapshot = &snap
		} else {
			copied.Snapshot = &domain.PartySnapshot{Party: p, Notes: []domain.Note{}, SaveSlots: []domain.SaveSlot{}}
		}
		if err := e.Slots.SaveSaveSlot(ctx, copied); err != nil {
			return domain.Party{}, fmt.Errorf("import save slot %d: %w", s.Slot, err)
		}
	}
	if _, err := e.emit(ctx, events.Event{
		PartyID: p.ID,
		Type:    domain.EventPartyCreated,
		Label:   fmt.Sprintf("Party imported: %q", p.Name),
		Payload: events.EventPayload{"imported": true, "sourcePartyId": src.Party.ID},
		OutboxPayload: events.EventPayload{
			"name":          p.Name,
			"mode":          p.Mode,
			"imported":      true,
			"sourcePartyId": src.Party.ID,
		},
	}); err != nil {
		return domain.Party{}, err
	}
	e.logf("party imported party=%s source=%s", p.ID, src.Party.ID)
	return p, nil
}

// validateImport rejects a snapshot that would break a party invariant.
// It runs before any write so a rejected import leaves nothing behind.
func validateImport(src domain.PartySnapshot) error {
	if err := validateImportedParty(src.Party); err != nil {
		return err
	}
	if len(src.SaveSlots) > rules.MaxSaveSlots {
		return fmt.Errorf("%w: %d save slots, at most %d allowed", transfer.ErrFormat, len(src.SaveSlots), rules.MaxSaveSlots)
	}
	used := map[int]bool{}
	for _, s := range src.SaveSlots {
		if s.Slot < 1 || s.Slot > rules.MaxSaveSlots {
			return fmt.Errorf("%w: save slot %d out of range 1..%d", transfer.ErrFormat, s.Slot, rules.MaxSaveSlots)
		}
		if used[s.Slot] {
			return fmt.Errorf("%w: save slot %d appears twice", transfer.ErrFormat, s.Slot)
		}
		used[s.Slot] = true
		if s.Snapshot != nil {
			if err := validateImportedParty(s.Snapshot.Party); err != nil {
				return fmt.Errorf("save slot %d: %w", s.Slot, err)
			}
		}
	}
	return nil
}

func validateImportedParty(p domain.Party) error {
	c := p.Character
	switch {
	case !p.Mode.Valid():
		return fmt.Errorf("%w: unknown mode %q", transfer.ErrFormat, p.Mode)
	case !c.Talent.Valid():
		return fmt.Errorf("%w: unknown talent %q", transfer.ErrFormat, c.Talent)
	case c.HPMax <= 0:
		return fmt.Errorf("%w: hpMax must be positive", transfer.ErrFormat)
	case c.HPCurrent < 0 || c.HPCurrent > c.HPMax:
		return fmt.Errorf("%w: hpCurrent %d outside 0..%d", transfer.ErrFormat, c.HPCurrent, c.HPMax)
	case c.Luck < 0:
		return fmt.Errorf("%w: luck must not be negative", transfer.ErrFormat)
	case p.CurrentChapter < 1:
		return fmt.Errorf("%w: chapter must be at least 1", transfer.ErrFormat)
	}
	if err := rules.ValidateInventory(c.Inventory); err != nil {
		return fmt.Errorf("%w: %w", transfer.ErrFormat, err)
	}
	return nil
}

// idMap hands out one fresh id per source id, so references inside
// snapshots stay consistent with the rows written next to them.
type idMap struct {
	gen   func() string
	notes map[string]string
	slots map[string]string
}

func newIDMap(gen func() string) *idMap {
	return &idMap{gen: gen, notes: map[string]string{}, slots: map[string]string{}}
}

func (m *idMap) lookup(table map[string]string, old string) string {
	if id, ok := table[old]; ok {
		return id
	}
	id := m.gen()
	table[old] = id
	return id
}

func (m *idMap) note(n domain.Note, partyID string) domain.Note {
	n.ID = m.lookup(m.notes, n.ID)
	n.PartyID = partyID
	return n
}

func (m *idMap) slot(s domain.SaveSlot, partyID string) domain.SaveSlot {
	s.ID = m.lookup(m.slots, s.ID)
	s.PartyID = partyID
	s.Snapshot = nil
	return s
}

func (m *idMap) snapshot(snap domain.PartySnapshot, partyID string) domain.PartySnapshot {
	out := domain.PartySnapshot{
		Party:     snap.Party,
		Notes:     make([]domain.Note, 0, len(snap.Notes)),
		SaveSlots: make([]domain.SaveSlot, 0, len(snap.SaveSlots)),
	}
	out.Party.ID = partyID
	for _, n := range snap.Notes {
		out.Notes = append(out.Notes, m.note(n, partyID))
	}
	for _, s := range snap.SaveSlots {
		out.SaveSlots = append(out.SaveSlots, m.slot(s, partyID))
	}
	return out
}
