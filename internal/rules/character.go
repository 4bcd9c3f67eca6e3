// Package rules holds the pure character, inventory and combat rules.
// Nothing here performs I/O or reads hidden state.
package rules

import "dagda/internal/domain"

const (
	InitialDexterity = 7
	MaxSaveSlots     = 3
	HPMultiplier     = 4
)

// EmptyInventory returns an inventory with no weapons, no items and no currency.
func EmptyInventory() domain.Inventory {
	return domain.Inventory{
		Weapons: []domain.Weapon{},
		Items:   []domain.Item{},
	}
}

// CreateCharacter builds a fresh character. hpRoll is expected to be a 2d6
// sum and luckRoll a single d6; ranges are the caller's concern.
func CreateCharacter(name string, talent domain.Talent, hpRoll, luckRoll int) domain.Character {
	hpMax := hpRoll * HPMultiplier
	return domain.Character{
		Name:      name,
		Talent:    talent,
		HPMax:     hpMax,
		HPCurrent: hpMax,
		Luck:      luckRoll,
		Dexterity: InitialDexterity,
		Inventory: EmptyInventory(),
	}
}

// ApplyHPChange moves hpCurrent by delta, clamped to [0, hpMax].
func ApplyHPChange(c domain.Character, delta int) domain.Character {
	switch {
	case delta > 0 && delta >= c.HPMax-c.HPCurrent:
		c.HPCurrent = c.HPMax
	case delta < 0 && delta <= -c.HPCurrent:
		c.HPCurrent = 0
	default:
		c.HPCurrent += delta
	}
	if c.HPCurrent > c.HPMax {
		c.HPCurrent = c.HPMax
	}
	if c.HPCurrent < 0 {
		c.HPCurrent = 0
	}
	return c
}

// ApplyLuckCost lowers luck by cost, never below zero. It does not reject
// a cost larger than the available luck.
func ApplyLuckCost(c domain.Character, cost int) domain.Character {
	if cost >= c.Luck {
		c.Luck = 0
		return c
	}
	c.Luck -= cost
	return c
}

func IsDead(c domain.Character) bool {
	return c.HPCurrent <= 0
}

// ApplyDeathReset restores full HP and wipes the inventory. Luck is kept.
func ApplyDeathReset(c domain.Character) domain.Character {
	c.HPCurrent = c.HPMax
	c.Inventory = EmptyInventory()
	return c
}

// CanRestoreAnySlot is false for modes that only allow the latest save.
func CanRestoreAnySlot(mode domain.GameMode) bool {
	return mode != domain.ModeSimplified
}
