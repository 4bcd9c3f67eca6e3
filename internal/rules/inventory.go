package rules

import (
	"errors"
	"fmt"
	"strings"

	"dagda/internal/domain"
)

var ErrInvalidInventory = errors.New("invalid inventory")

// InventoryPatch replaces the non-nil parts of an inventory. An empty
// EquippedWeaponID unequips.
type InventoryPatch struct {
	Weapons          *[]domain.Weapon `json:"weapons,omitempty"`
	Items            *[]domain.Item   `json:"items,omitempty"`
	Currency         *int             `json:"currency,omitempty"`
	EquippedWeaponID *string          `json:"equippedWeaponId,omitempty"`
}

// ApplyInventoryPatch merges patch onto inv and validates the result.
func ApplyInventoryPatch(inv domain.Inventory, patch InventoryPatch) (domain.Inventory, error) {
	out := domain.Inventory{
		Weapons:          append([]domain.Weapon{}, inv.Weapons...),
		Items:            append([]domain.Item{}, inv.Items...),
		Currency:         inv.Currency,
		EquippedWeaponID: inv.EquippedWeaponID,
	}
	if patch.Weapons != nil {
		out.Weapons = append([]domain.Weapon{}, (*patch.Weapons)...)
		// dropping the equipped weapon unequips it
		if patch.EquippedWeaponID == nil && !hasWeapon(out.Weapons, out.EquippedWeaponID) {
			out.EquippedWeaponID = ""
		}
	}
	if patch.Items != nil {
		out.Items = append([]domain.Item{}, (*patch.Items)...)
	}
	if patch.Currency != nil {
		out.Currency.Bolts = *patch.Currency
	}
	if patch.EquippedWeaponID != nil {
		out.EquippedWeaponID = strings.TrimSpace(*patch.EquippedWeaponID)
	}
	if err := ValidateInventory(out); err != nil {
		return inv, err
	}
	return out, nil
}

func ValidateInventory(inv domain.Inventory) error {
	if inv.Currency.Bolts < 0 {
		return fmt.Errorf("%w: currency must not be negative", ErrInvalidInventory)
	}
	seen := map[string]bool{}
	for _, w := range inv.Weapons {
		if strings.TrimSpace(w.ID) == "" || strings.TrimSpace(w.Name) == "" {
			return fmt.Errorf("%w: weapon id and name are required", ErrInvalidInventory)
		}
		if seen[w.ID] {
			return fmt.Errorf("%w: duplicate weapon id %s", ErrInvalidInventory, w.ID)
		}
		seen[w.ID] = true
	}
	seen = map[string]bool{}
	for _, it := range inv.Items {
		if strings.TrimSpace(it.ID) == "" || strings.TrimSpace(it.Name) == "" {
			return fmt.Errorf("%w: item id and name are required", ErrInvalidInventory)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: item %s quantity must be positive", ErrInvalidInventory, it.ID)
		}
		if seen[it.ID] {
			return fmt.Errorf("%w: duplicate item id %s", ErrInvalidInventory, it.ID)
		}
		seen[it.ID] = true
	}
	if inv.EquippedWeaponID != "" && !hasWeapon(inv.Weapons, inv.EquippedWeaponID) {
		return fmt.Errorf("%w: equipped weapon %s not in inventory", ErrInvalidInventory, inv.EquippedWeaponID)
	}
	return nil
}

// EquippedWeapon returns the equipped weapon, falling back to the first one.
func EquippedWeapon(inv domain.Inventory) (domain.Weapon, bool) {
	for _, w := range inv.Weapons {
		if w.ID == inv.EquippedWeaponID {
			return w, true
		}
	}
	if len(inv.Weapons) > 0 {
		return inv.Weapons[0], true
	}
	return domain.Weapon{}, false
}

func hasWeapon(weapons []domain.Weapon, id string) bool {
	if id == "" {
		return false
	}
	for _, w := range weapons {
		if w.ID == id {
			return true
		}
	}
	return false
}
