package domain

type GameMode string

const (
	ModeNarrative  GameMode = "NARRATIVE"
	ModeSimplified GameMode = "SIMPLIFIED"
	ModeMortal     GameMode = "MORTAL"
)

func (m GameMode) Valid() bool {
	switch m {
	case ModeNarrative, ModeSimplified, ModeMortal:
		return true
	}
	return false
}

type Talent string

const (
	TalentInstinct        Talent = "INSTINCT"
	TalentHerbology       Talent = "HERBOLOGY"
	TalentDiscretion      Talent = "DISCRETION"
	TalentPersuasion      Talent = "PERSUASION"
	TalentObservation     Talent = "OBSERVATION"
	TalentSleightOfHand   Talent = "SLEIGHT_OF_HAND"
	TalentEmpathyPractice Talent = "EMPATHY_PRACTICE"
)

// Talents lists every selectable talent in display order.
var Talents = []Talent{
	TalentInstinct,
	TalentHerbology,
	TalentDiscretion,
	TalentPersuasion,
	TalentObservation,
	TalentSleightOfHand,
	TalentEmpathyPractice,
}

func (t Talent) Valid() bool {
	for _, known := range Talents {
		if t == known {
			return true
		}
	}
	return false
}

type PartyStatus string

const (
	StatusActive   PartyStatus = "ACTIVE"
	StatusFinished PartyStatus = "FINISHED"
	StatusDead     PartyStatus = "DEAD"
)

type EventType string

const (
	EventPartyCreated     EventType = "party_created"
	EventChapterSet       EventType = "chapter_set"
	EventHPChanged        EventType = "hp_changed"
	EventLuckSpent        EventType = "luck_spent"
	EventLuckChanged      EventType = "luck_changed"
	EventNoteAdded        EventType = "note_added"
	EventSaveCreated      EventType = "save_created"
	EventSaveReplaced     EventType = "save_replaced"
	EventSaveRestored     EventType = "save_restored"
	EventCombatStarted    EventType = "combat_started"
	EventCombatHit        EventType = "combat_hit"
	EventCombatMiss       EventType = "combat_miss"
	EventCombatEnemyHit   EventType = "combat_enemy_hit"
	EventCombatEnemyMiss  EventType = "combat_enemy_miss"
	EventCombatVictory    EventType = "combat_victory"
	EventCombatDefeat     EventType = "combat_defeat"
	EventDeathReset       EventType = "death_reset"
	EventDiceRerolled     EventType = "dice_rerolled"
	EventPartyExported    EventType = "party_exported"
	EventPartyFinished    EventType = "party_finished"
	EventCustomAction     EventType = "custom_action"
	EventInventoryChanged EventType = "inventory_changed"
)

// Outbound reports whether events of this type are staged in the outbox.
func (t EventType) Outbound() bool {
	switch t {
	case EventPartyCreated, EventSaveCreated, EventSaveReplaced, EventPartyFinished, EventDeathReset:
		return true
	}
	return false
}

// Combat reports whether the type belongs to a combat session.
func (t EventType) Combat() bool {
	switch t {
	case EventCombatStarted, EventCombatHit, EventCombatMiss, EventCombatEnemyHit,
		EventCombatEnemyMiss, EventCombatVictory, EventCombatDefeat, EventDiceRerolled:
		return true
	}
	return false
}

type OutboxStatus string

const (
	OutboxPending OutboxStatus = "PENDING"
	OutboxSent    OutboxStatus = "SENT"
)

type Weapon struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Bonus       int    `json:"bonus"`
	Description string `json:"description,omitempty"`
}

type Item struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
	Description string `json:"description,omitempty"`
}

type Currency struct {
	Bolts int `json:"bolts"`
}

type Inventory struct {
	Weapons  []Weapon `json:"weapons"`
	Items    []Item   `json:"items"`
	Currency Currency `json:"currency"`
	// EquippedWeaponID falls back to the first weapon when empty.
	EquippedWeaponID string `json:"equippedWeaponId,omitempty"`
}

type Character struct {
	Name      string    `json:"name"`
	Talent    Talent    `json:"talent"`
	HPMax     int       `json:"hpMax"`
	HPCurrent int       `json:"hpCurrent"`
	Luck      int       `json:"luck"`
	Dexterity int       `json:"dexterity"`
	Inventory Inventory `json:"inventory"`
}

type Party struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Mode           GameMode    `json:"mode"`
	Status         PartyStatus `json:"status"`
	CurrentChapter int         `json:"currentChapter"`
	Character      Character   `json:"character"`
	CreatedAt      string      `json:"createdAt" format:"date-time"`
	UpdatedAt      string      `json:"updatedAt" format:"date-time"`
}

type Note struct {
	ID        string `json:"id"`
	PartyID   string `json:"partyId"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt" format:"date-time"`
}

type SaveSlot struct {
	ID      string `json:"id"`
	PartyID string `json:"partyId"`
	Slot    int    `json:"slot" minimum:"1" maximum:"3"`
	// Snapshot is nil for slot headers embedded inside another snapshot.
	Snapshot  *PartySnapshot `json:"snapshot,omitempty"`
	CreatedAt string         `json:"createdAt" format:"date-time"`
}

// Header returns the slot without its snapshot.
func (s SaveSlot) Header() SaveSlot {
	s.Snapshot = nil
	return s
}

type PartySnapshot struct {
	Party     Party      `json:"party"`
	Notes     []Note     `json:"notes"`
	SaveSlots []SaveSlot `json:"saveSlots"`
}

type TimelineEvent struct {
	ID        string         `json:"id"`
	PartyID   string         `json:"partyId"`
	Type      EventType      `json:"type"`
	Label     string         `json:"label"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt string         `json:"createdAt" format:"date-time"`
}

type OutboxEvent struct {
	ID        string         `json:"id"`
	PartyID   string         `json:"partyId"`
	Type      EventType      `json:"type"`
	Payload   map[string]any `json:"payload"`
	Status    OutboxStatus   `json:"status"`
	CreatedAt string         `json:"createdAt" format:"date-time"`
	SentAt    string         `json:"sentAt,omitempty" format:"date-time"`
}

type Enemy struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	HPMax       int    `json:"hpMax"`
	HPCurrent   int    `json:"hpCurrent"`
	Dexterity   int    `json:"dexterity"`
	AttackBonus int    `json:"attackBonus"`
}
