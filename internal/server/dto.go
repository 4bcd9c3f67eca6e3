package server

import (
	"dagda/internal/combat"
	"dagda/internal/domain"
	"dagda/internal/engine"
	"dagda/internal/transfer"
)

// Request payloads

type CreatePartyRequest struct {
	Name          string          `json:"name" minLength:"1"`
	Mode          domain.GameMode `json:"mode" enum:"NARRATIVE,SIMPLIFIED,MORTAL"`
	CharacterName string          `json:"characterName" minLength:"1"`
	Talent        domain.Talent   `json:"talent" enum:"INSTINCT,HERBOLOGY,DISCRETION,PERSUASION,OBSERVATION,SLEIGHT_OF_HAND,EMPATHY_PRACTICE"`
}

type ChapterRequest struct {
	Chapter int `json:"chapter" minimum:"1"`
}

type HPRequest struct {
	Delta int `json:"delta"`
}

type LuckRequest struct {
	Cost int `json:"cost" minimum:"1"`
}

type NoteRequest struct {
	Content string `json:"content" minLength:"1"`
}

type ActionRequest struct {
	Label string `json:"label" minLength:"1"`
}

type InventoryRequest struct {
	Label            string           `json:"label" minLength:"1"`
	Weapons          *[]domain.Weapon `json:"weapons,omitempty"`
	Items            *[]domain.Item   `json:"items,omitempty"`
	Currency         *int             `json:"currency,omitempty"`
	EquippedWeaponID *string          `json:"equippedWeaponId,omitempty"`
}

type SaveRequest struct {
	Slot int `json:"slot"`
}

// Response payloads

type PartyList struct {
	Items []domain.Party `json:"items"`
}

type NoteList struct {
	Items []domain.Note `json:"items"`
}

type SaveSlotList struct {
	Items []domain.SaveSlot `json:"items"`
}

type TimelineList struct {
	Items []domain.TimelineEvent `json:"items"`
}

type OutboxList struct {
	Items []domain.OutboxEvent `json:"items"`
}

type ChapterResponse struct {
	Party   domain.Party `json:"party"`
	Changed bool         `json:"changed"`
}

type ExportResponse struct {
	Envelope transfer.Envelope `json:"envelope"`
	Summary  string            `json:"summary"`
}

type MeResponse struct {
	Subject string `json:"subject"`
	Source  string `json:"source"`
}

type partyOutput struct {
	Body domain.Party `json:"body"`
}

type hpOutput struct {
	Body engine.HPResult `json:"body"`
}

type saveOutput struct {
	Body engine.SaveResult `json:"body"`
}

type CombatRequest struct {
	Enemies   []combat.EnemySpec `json:"enemies" minItems:"1" maxItems:"5"`
	MaxRounds int                `json:"maxRounds,omitempty" minimum:"0"`
}

type CombatResponse struct {
	Outcome combat.Outcome `json:"outcome"`
	Rounds  int            `json:"rounds"`
	Enemies []domain.Enemy `json:"enemies"`
	Party   domain.Party   `json:"party"`
}
