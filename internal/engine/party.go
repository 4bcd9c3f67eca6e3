package engine

import (
	"context"
	"errors"
	"fmt"

	"dagda/internal/config"
	"dagda/internal/domain"
	"dagda/internal/events"
	"dagda/internal/rules"
)

type CreatePartyInput struct {
	Name          string          `json:"name"`
	Mode          domain.GameMode `json:"mode"`
	CharacterName string          `json:"characterName"`
	Talent        domain.Talent   `json:"talent"`
}

// CreateParty rolls a new character and starts the party at chapter 1.
func (e Engine) CreateParty(ctx context.Context, in CreatePartyInput) (domain.Party, error) {
	name, err := required("party name", in.Name)
	if err != nil {
		return domain.Party{}, err
	}
	charName, err := required("character name", in.CharacterName)
	if err != nil {
		return domain.Party{}, err
	}
	if !in.Mode.Valid() {
		return domain.Party{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, in.Mode)
	}
	if !in.Talent.Valid() {
		return domain.Party{}, fmt.Errorf("%w: unknown talent %q", ErrInvalidInput, in.Talent)
	}
	hp := e.Dice.Roll2D6()
	hpRoll := hp[0] + hp[1]
	luckRoll := e.Dice.RollD6()

	now := e.timestamp()
	p := domain.Party{
		ID:             e.newID(),
		Name:           name,
		Mode:           in.Mode,
		Status:         domain.StatusActive,
		CurrentChapter: 1,
		Character:      rules.CreateCharacter(charName, in.Talent, hpRoll, luckRoll),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.Parties.SaveParty(ctx, p); err != nil {
		return domain.Party{}, fmt.Errorf("save party: %w", err)
	}
	if _, err := e.emit(ctx, events.Event{
		PartyID: p.ID,
		Type:    domain.EventPartyCreated,
		Label:   fmt.Sprintf("Party %q created (mode %s)", p.Name, p.Mode),
		Payload: events.EventPayload{
			"mode":     p.Mode,
			"talent":   p.Character.Talent,
			"hpRoll":   hpRoll,
			"luckRoll": luckRoll,
		},
		OutboxPayload: events.EventPayload{"name": p.Name, "mode": p.Mode},
	}); err != nil {
		return domain.Party{}, err
	}
	return p, nil
}

func (e Engine) ListParties(ctx context.Context) ([]domain.Party, error) {
	return e.Parties.ListParties(ctx)
}

func (e Engine) GetParty(ctx context.Context, id string) (domain.Party, error) {
	return e.Parties.GetParty(ctx, id)
}

// UpdateChapter moves the party to chapter. Asking for the current chapter
// changes nothing and reports changed=false.
func (e Engine) UpdateChapter(ctx context.Context, id string, chapter int) (domain.Party, bool, error) {
	if chapter < 1 {
		return domain.Party{}, false, fmt.Errorf("%w: chapter must be at least 1", ErrInvalidInput)
	}
	p, err := e.loadActive(ctx, id)
	if err != nil {
		return domain.Party{}, false, err
	}
	if p.CurrentChapter == chapter {
		return p, false, nil
	}
	previous := p.CurrentChapter
	p.CurrentChapter = chapter
	p.UpdatedAt = e.timestamp()
	if err := e.Parties.SaveParty(ctx, p); err != nil {
		return domain.Party{}, false, fmt.Errorf("save party: %w", err)
	}
	if _, err := e.emit(ctx, events.Event{
		PartyID: p.ID,
		Type:    domain.EventChapterSet,
		Label:   fmt.Sprintf("Chapter %d -> %d", previous, chapter),
		Payload: events.EventPayload{"chapter": chapter, "previous": previous},
	}); err != nil {
		return domain.Party{}, false, err
	}
	return p, true, nil
}

// HPResult reports what an HP change did. Dead is set when HP reached zero;
// MortalDeath when the party is now DEAD for good; DeathReset when a MORTAL
// death sent it back to chapter 1 instead.
type HPResult struct {
	Party       domain.Party `json:"party"`
	Dead        bool         `json:"dead"`
	MortalDeath bool         `json:"mortalDeath"`
	DeathReset  bool         `json:"deathReset"`
}

// UpdateHP applies a damage (negative) or healing (positive) delta and runs
// the configured death policy when a MORTAL character drops to zero.
func (e Engine) UpdateHP(ctx context.Context, id string, delta int) (HPResult, error) {
	p, err := e.loadActive(ctx, id)
	if err != nil {
		return HPResult{}, err
	}
	before := p.Character.HPCurrent
	p.Character = rules.ApplyHPChange(p.Character, delta)
	after := p.Character.HPCurrent
	res := HPResult{Dead: rules.IsDead(p.Character)}

	var death *events.Event
	if res.Dead && p.Mode == domain.ModeMortal {
		switch e.deathPolicy() {
		case config.DeathReset:
			p.CurrentChapter = 1
			p.Character = rules.ApplyDeathReset(p.Character)
			res.DeathReset = true
			death = &events.Event{
				PartyID: p.ID,
				Type:    domain.EventDeathReset,
				Label:   "Death: back to chapter 1 with full HP and an empty pack",
				Payload: events.EventPayload{"policy": config.DeathReset},
			}
		default:
			p.Status = domain.StatusDead
			res.MortalDeath = true
			death = &events.Event{
				PartyID: p.ID,
				Type:    domain.EventDeathReset,
				Label:   "Permanent death, the adventure ends",
				Payload: events.EventPayload{"policy": config.DeathDead},
			}
		}
	}
	p.UpdatedAt = e.timestamp()
	if err := e.Parties.SaveParty(ctx, p); err != nil {
		return HPResult{}, fmt.Errorf("save party: %w", err)
	}
	if _, err := e.emit(ctx, events.Event{
		PartyID: p.ID,
		Type:    domain.EventHPChanged,
		Label:   fmt.Sprintf("HP %+d (%d/%d)", delta, after, p.Character.HPMax),
		Payload: events.EventPayload{"delta": delta, "before": before, "after": after},
	}); err != nil {
		return HPResult{}, err
	}
	if death != nil {
		if _, err := e.emit(ctx, *death); err != nil {
			return HPResult{}, err
		}
		e.logf("party death party=%s policy=%s", p.ID, death.Payload["policy"])
	}
	res.Party = p
	return res, nil
}

// ApplyLuck spends exactly cost luck. Unlike the bare rule it never clamps.
func (e Engine) ApplyLuck(ctx context.Context, id string, cost int) (domain.Party, error) {
	if cost <= 0 {
		return domain.Party{}, fmt.Errorf("%w: luck cost must be positive", ErrInvalidInput)
	}
	p, err := e.loadActive(ctx, id)
	if err != nil {
		return domain.Party{}, err
	}
	if cost > p.Character.Luck {
		return domain.Party{}, fmt.Errorf("%w: need %d, have %d", ErrInsufficientLuck, cost, p.Character.Luck)
	}
	p.Character = rules.ApplyLuckCost(p.Character, cost)
	p.UpdatedAt = e.timestamp()
	if err := e.Parties.SaveParty(ctx, p); err != nil {
		return domain.Party{}, fmt.Errorf("save party: %w", err)
	}
	if _, err := e.emit(ctx, events.Event{
		PartyID: p.ID,
		Type:    domain.EventLuckSpent,
		Label:   fmt.Sprintf("Luck spent: -%d (%d left)", cost, p.Character.Luck),
		Payload: events.EventPayload{"cost": cost, "remaining": p.Character.Luck},
	}); err != nil {
		return domain.Party{}, err
	}
	return p, nil
}

// UpdateInventory merges patch onto the current inventory. The label
// describes the change on the timeline.
func (e Engine) UpdateInventory(ctx context.Context, id string, patch rules.InventoryPatch, label string) (domain.Party, error) {
	label, err := required("label", label)
	if err != nil {
		return domain.Party{}, err
	}
	p, err := e.loadActive(ctx, id)
	if err != nil {
		return domain.Party{}, err
	}
	inv, err := rules.ApplyInventoryPatch(p.Character.Inventory, patch)
	if err != nil {
		if errors.Is(err, rules.ErrInvalidInventory) {
			return domain.Party{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return domain.Party{}, err
	}
	p.Character.Inventory = inv
	p.UpdatedAt = e.timestamp()
	if err := e.Parties.SaveParty(ctx, p); err != nil {
		return domain.Party{}, fmt.Errorf("save party: %w", err)
	}
	if _, err := e.emit(ctx, events.Event{
		PartyID: p.ID,
		Type:    domain.EventInventoryChanged,
		Label:   label,
		Payload: events.EventPayload{
			"weapons":          len(inv.Weapons),
			"items":            len(inv.Items),
			"currency":         inv.Currency.Bolts,
			"equippedWeaponId": inv.EquippedWeaponID,
		},
	}); err != nil {
		return domain.Party{}, err
	}
	return p, nil
}

// FinishParty closes an active party for good.
func (e Engine) FinishParty(ctx context.Context, id string) (domain.Party, error) {
	p, err := e.loadActive(ctx, id)
	if err != nil {
		return domain.Party{}, err
	}
	p.Status = domain.StatusFinished
	p.UpdatedAt = e.timestamp()
	if err := e.Parties.SaveParty(ctx, p); err != nil {
		return domain.Party{}, fmt.Errorf("save party: %w", err)
	}
	if _, err := e.emit(ctx, events.Event{
		PartyID:       p.ID,
		Type:          domain.EventPartyFinished,
		Label:         "Party finished",
		Payload:       events.EventPayload{"chapter": p.CurrentChapter},
		OutboxPayload: events.EventPayload{},
	}); err != nil {
		return domain.Party{}, err
	}
	e.logf("party finished party=%s chapter=%d", p.ID, p.CurrentChapter)
	return p, nil
}

// DeleteParty removes the party and everything recorded for it.
func (e Engine) DeleteParty(ctx context.Context, id string) error {
	if err := e.Parties.DeletePartyCascade(ctx, id); err != nil {
		return err
	}
	e.logf("party deleted party=%s", id)
	return nil
}
