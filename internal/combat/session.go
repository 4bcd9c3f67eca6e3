// Package combat drives a fight between the party's character and up to
// five enemies. Damage to the character goes through the HP use case so
// death handling stays in one place.
package combat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dagda/internal/dice"
	"dagda/internal/domain"
	"dagda/internal/engine"
	"dagda/internal/rules"
)

const MaxEnemies = 5

var (
	ErrCombatOver     = errors.New("combat is over")
	ErrInvalidEnemies = errors.New("invalid enemies")
	ErrUnknownEnemy   = errors.New("unknown enemy")
	ErrEnemyDown      = errors.New("enemy is already down")
	ErrNoRoll         = errors.New("no missed attack roll to adjust")
	ErrNotStarted     = errors.New("combat has not started")
)

type Outcome string

const (
	OutcomeNone        Outcome = ""
	OutcomeVictory     Outcome = "VICTORY"
	OutcomeDefeat      Outcome = "DEFEAT"
	OutcomeMortalDeath Outcome = "MORTAL_DEATH"
)

// Engine is the part of the use cases a fight needs.
type Engine interface {
	GetParty(ctx context.Context, id string) (domain.Party, error)
	UpdateHP(ctx context.Context, id string, delta int) (engine.HPResult, error)
	ApplyLuck(ctx context.Context, id string, cost int) (domain.Party, error)
	RecordCombatEvent(ctx context.Context, id string, evtType domain.EventType, label string, payload map[string]any) (domain.TimelineEvent, error)
}

type EnemySpec struct {
	Name        string `json:"name"`
	HP          int    `json:"hp"`
	Dexterity   int    `json:"dexterity"`
	AttackBonus int    `json:"attackBonus"`
}

type AttackResult struct {
	EnemyID string              `json:"enemyId"`
	Hit     rules.HitResult     `json:"hit"`
	Damage  *rules.DamageResult `json:"damage,omitempty"`
	Outcome Outcome             `json:"outcome,omitempty"`
}

type lastAttack struct {
	enemyID string
	rolls   [2]int
	hit     bool
}

// Session holds one fight. It is not safe for concurrent use.
type Session struct {
	engine  Engine
	dice    dice.Source
	party   domain.Party
	enemies []domain.Enemy
	outcome Outcome
	last    *lastAttack
	rounds  int
}

func NewSession(eng Engine, src dice.Source) *Session {
	return &Session{engine: eng, dice: src}
}

func (s *Session) Party() domain.Party { return s.party }

func (s *Session) Outcome() Outcome { return s.outcome }

func (s *Session) Enemies() []domain.Enemy {
	return append([]domain.Enemy{}, s.enemies...)
}

// Start sets up the enemies and logs the start of the fight.
func (s *Session) Start(ctx context.Context, partyID string, specs []EnemySpec) error {
	if len(specs) == 0 || len(specs) > MaxEnemies {
		return fmt.Errorf("%w: need 1 to %d enemies, got %d", ErrInvalidEnemies, MaxEnemies, len(specs))
	}
	enemies := make([]domain.Enemy, 0, len(specs))
	names := make([]string, 0, len(specs))
	for i, spec := range specs {
		if spec.HP <= 0 || spec.Dexterity <= 0 {
			return fmt.Errorf("%w: enemy %d needs positive hp and dexterity", ErrInvalidEnemies, i+1)
		}
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			name = fmt.Sprintf("Enemy %d", i+1)
		}
		enemies = append(enemies, domain.Enemy{
			ID:          fmt.Sprintf("enemy-%d", i+1),
			Name:        name,
			HPMax:       spec.HP,
			HPCurrent:   spec.HP,
			Dexterity:   spec.Dexterity,
			AttackBonus: spec.AttackBonus,
		})
		names = append(names, name)
	}
	p, err := s.engine.GetParty(ctx, partyID)
	if err != nil {
		return err
	}
	if p.Status != domain.StatusActive {
		return fmt.Errorf("%w: party %s is %s", engine.ErrPartyNotActive, p.ID, p.Status)
	}
	s.party = p
	s.enemies = enemies
	s.outcome = OutcomeNone
	s.last = nil
	s.rounds = 0
	_, err = s.engine.RecordCombatEvent(ctx, p.ID, domain.EventCombatStarted,
		fmt.Sprintf("Combat started against %s", strings.Join(names, ", ")),
		map[string]any{"enemies": names})
	return err
}

func (s *Session) ready() error {
	if s.party.ID == "" {
		return ErrNotStarted
	}
	if s.outcome != OutcomeNone {
		return fmt.Errorf("%w: %s", ErrCombatOver, s.outcome)
	}
	return nil
}

func (s *Session) enemy(id string) (*domain.Enemy, error) {
	for i := range s.enemies {
		if s.enemies[i].ID == id {
			if s.enemies[i].HPCurrent <= 0 {
				return nil, fmt.Errorf("%w: %s", ErrEnemyDown, s.enemies[i].Name)
			}
			return &s.enemies[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownEnemy, id)
}

// PlayerAttack rolls 2d6 under the character's dexterity against enemyID.
func (s *Session) PlayerAttack(ctx context.Context, enemyID string) (AttackResult, error) {
	if err := s.ready(); err != nil {
		return AttackResult{}, err
	}
	target, err := s.enemy(enemyID)
	if err != nil {
		return AttackResult{}, err
	}
	rolls := s.dice.Roll2D6()
	hit := rules.ResolveHit(rolls, s.party.Character.Dexterity)
	s.last = &lastAttack{enemyID: target.ID, rolls: rolls, hit: hit.Success}
	res := AttackResult{EnemyID: target.ID, Hit: hit}
	if hit.Success {
		dmg, err := s.strike(ctx, target, hit)
		if err != nil {
			return AttackResult{}, err
		}
		res.Damage = &dmg
	} else {
		if _, err := s.engine.RecordCombatEvent(ctx, s.party.ID, domain.EventCombatMiss,
			fmt.Sprintf("Missed %s (%d > %d)", target.Name, hit.Total, s.party.Character.Dexterity),
			map[string]any{"enemyId": target.ID, "rolls": hit.Rolls, "total": hit.Total}); err != nil {
			return AttackResult{}, err
		}
	}
	if err := s.settle(ctx, false, false); err != nil {
		return AttackResult{}, err
	}
	res.Outcome = s.outcome
	return res, nil
}

// strike rolls damage for a successful player hit.
func (s *Session) strike(ctx context.Context, target *domain.Enemy, hit rules.HitResult) (rules.DamageResult, error) {
	bonus := 0
	if w, ok := rules.EquippedWeapon(s.party.Character.Inventory); ok {
		bonus = w.Bonus
	}
	dmg := rules.ResolveDamage(s.dice.RollD6(), bonus)
	target.HPCurrent -= dmg.Total
	if target.HPCurrent < 0 {
		target.HPCurrent = 0
	}
	_, err := s.engine.RecordCombatEvent(ctx, s.party.ID, domain.EventCombatHit,
		fmt.Sprintf("Hit %s for %d (%d/%d)", target.Name, dmg.Total, target.HPCurrent, target.HPMax),
		map[string]any{
			"enemyId": target.ID,
			"rolls":   hit.Rolls,
			"total":   hit.Total,
			"damage":  dmg.Total,
			"enemyHp": target.HPCurrent,
		})
	return dmg, err
}

// SpendLuck moves one die of the last missed attack to target, paying the
// difference in luck, and resolves the attack again.
func (s *Session) SpendLuck(ctx context.Context, dieIndex, target int) (AttackResult, error) {
	if err := s.ready(); err != nil {
		return AttackResult{}, err
	}
	if s.last == nil || s.last.hit {
		return AttackResult{}, ErrNoRoll
	}
	if dieIndex < 0 || dieIndex > 1 || target < 1 || target > dice.Sides {
		return AttackResult{}, fmt.Errorf("%w: die %d to %d", engine.ErrInvalidInput, dieIndex, target)
	}
	original := s.last.rolls[dieIndex]
	if original == target {
		return AttackResult{}, fmt.Errorf("%w: die already shows %d", engine.ErrInvalidInput, target)
	}
	adj, ok := rules.ApplyLuckToDie(original, target, s.party.Character.Luck)
	if !ok {
		return AttackResult{}, fmt.Errorf("%w: moving %d to %d needs more than %d luck", engine.ErrInsufficientLuck, original, target, s.party.Character.Luck)
	}
	foe, err := s.enemy(s.last.enemyID)
	if err != nil {
		return AttackResult{}, err
	}
	p, err := s.engine.ApplyLuck(ctx, s.party.ID, adj.LuckCost)
	if err != nil {
		return AttackResult{}, err
	}
	s.party = p
	s.last.rolls[dieIndex] = adj.NewRoll
	if _, err := s.engine.RecordCombatEvent(ctx, s.party.ID, domain.EventDiceRerolled,
		fmt.Sprintf("Luck moved a die from %d to %d", original, adj.NewRoll),
		map[string]any{"die": dieIndex, "from": original, "to": adj.NewRoll, "cost": adj.LuckCost}); err != nil {
		return AttackResult{}, err
	}
	hit := rules.ResolveHit(s.last.rolls, s.party.Character.Dexterity)
	s.last.hit = hit.Success
	res := AttackResult{EnemyID: foe.ID, Hit: hit}
	if hit.Success {
		dmg, err := s.strike(ctx, foe, hit)
		if err != nil {
			return AttackResult{}, err
		}
		res.Damage = &dmg
		if err := s.settle(ctx, false, false); err != nil {
			return AttackResult{}, err
		}
	}
	res.Outcome = s.outcome
	return res, nil
}

// EnemyAttack rolls 2d6 under the enemy's dexterity. Damage is applied
// through the HP use case.
func (s *Session) EnemyAttack(ctx context.Context, enemyID string) (AttackResult, error) {
	if err := s.ready(); err != nil {
		return AttackResult{}, err
	}
	foe, err := s.enemy(enemyID)
	if err != nil {
		return AttackResult{}, err
	}
	hit := rules.ResolveHit(s.dice.Roll2D6(), foe.Dexterity)
	res := AttackResult{EnemyID: foe.ID, Hit: hit}
	if !hit.Success {
		if _, err := s.engine.RecordCombatEvent(ctx, s.party.ID, domain.EventCombatEnemyMiss,
			fmt.Sprintf("%s missed", foe.Name),
			map[string]any{"enemyId": foe.ID, "rolls": hit.Rolls, "total": hit.Total}); err != nil {
			return AttackResult{}, err
		}
		return res, nil
	}
	dmg := rules.ResolveDamage(s.dice.RollD6(), foe.AttackBonus)
	res.Damage = &dmg
	if _, err := s.engine.RecordCombatEvent(ctx, s.party.ID, domain.EventCombatEnemyHit,
		fmt.Sprintf("%s hit for %d", foe.Name, dmg.Total),
		map[string]any{"enemyId": foe.ID, "rolls": hit.Rolls, "total": hit.Total, "damage": dmg.Total}); err != nil {
		return AttackResult{}, err
	}
	hp, err := s.engine.UpdateHP(ctx, s.party.ID, -dmg.Total)
	if err != nil {
		return AttackResult{}, err
	}
	s.party = hp.Party
	if err := s.settle(ctx, hp.MortalDeath, hp.DeathReset); err != nil {
		return AttackResult{}, err
	}
	res.Outcome = s.outcome
	return res, nil
}

// settle records the outcome the first time the fight is decided.
func (s *Session) settle(ctx context.Context, mortal, reset bool) error {
	if s.outcome != OutcomeNone {
		return nil
	}
	var (
		evtType domain.EventType
		label   string
		payload map[string]any
	)
	switch {
	case mortal:
		s.outcome = OutcomeMortalDeath
		evtType, label, payload = domain.EventCombatDefeat, "Fell in battle, never to rise", map[string]any{"mortal": true}
	case reset || rules.IsDefeat(s.party.Character):
		s.outcome = OutcomeDefeat
		evtType, label, payload = domain.EventCombatDefeat, "Defeated", map[string]any{"mortal": false, "deathReset": reset}
	case rules.IsVictory(s.enemies):
		s.outcome = OutcomeVictory
		evtType, label, payload = domain.EventCombatVictory, "Victory", map[string]any{"enemies": len(s.enemies)}
	default:
		return nil
	}
	_, err := s.engine.RecordCombatEvent(ctx, s.party.ID, evtType, label, payload)
	return err
}

// AutoResolve plays full rounds until the fight is decided or maxRounds is
// reached. The player hits the first standing enemy, then every standing
// enemy strikes back.
func (s *Session) AutoResolve(ctx context.Context, maxRounds int) (Outcome, error) {
	if err := s.ready(); err != nil {
		return s.outcome, err
	}
	for s.outcome == OutcomeNone && s.rounds < maxRounds {
		s.rounds++
		standing := s.standing()
		if _, err := s.PlayerAttack(ctx, standing[0].ID); err != nil {
			return s.outcome, err
		}
		for _, foe := range s.standing() {
			if s.outcome != OutcomeNone {
				break
			}
			if _, err := s.EnemyAttack(ctx, foe.ID); err != nil {
				return s.outcome, err
			}
		}
	}
	return s.outcome, nil
}

// Rounds returns how many rounds AutoResolve has played.
func (s *Session) Rounds() int { return s.rounds }

func (s *Session) standing() []domain.Enemy {
	var out []domain.Enemy
	for _, e := range s.enemies {
		if e.HPCurrent > 0 {
			out = append(out, e)
		}
	}
	return out
}
