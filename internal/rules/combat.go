package rules

import "dagda/internal/domain"

const (
	DiceToHit  = 2
	DiceDamage = 1
	DamageBase = 1
)

type HitResult struct {
	Rolls   [2]int `json:"rolls"`
	Total   int    `json:"total"`
	Success bool   `json:"success"`
}

type DamageResult struct {
	Roll        int `json:"roll"`
	Total       int `json:"total"`
	WeaponBonus int `json:"weaponBonus"`
}

type LuckAdjustment struct {
	NewRoll  int `json:"newRoll"`
	LuckCost int `json:"luckCost"`
}

// ResolveHit is a roll-under check: the attack lands when the 2d6 total is
// lower than or equal to dexterity.
func ResolveHit(rolls [2]int, dexterity int) HitResult {
	total := rolls[0] + rolls[1]
	return HitResult{
		Rolls:   rolls,
		Total:   total,
		Success: total <= dexterity,
	}
}

// ResolveDamage computes 1 + d6 + weapon bonus.
func ResolveDamage(roll, weaponBonus int) DamageResult {
	return DamageResult{
		Roll:        roll,
		Total:       DamageBase + roll + weaponBonus,
		WeaponBonus: weaponBonus,
	}
}

// ApplyLuckToDie moves a die to target at a cost of |target-original| luck.
// It reports false for a no-op or when the available luck does not cover it.
func ApplyLuckToDie(original, target, availableLuck int) (LuckAdjustment, bool) {
	if target == original {
		return LuckAdjustment{}, false
	}
	cost := target - original
	if cost < 0 {
		cost = -cost
	}
	if cost > availableLuck {
		return LuckAdjustment{}, false
	}
	return LuckAdjustment{NewRoll: target, LuckCost: cost}, true
}

func IsVictory(enemies []domain.Enemy) bool {
	for _, e := range enemies {
		if e.HPCurrent > 0 {
			return false
		}
	}
	return true
}

func IsDefeat(c domain.Character) bool {
	return IsDead(c)
}
