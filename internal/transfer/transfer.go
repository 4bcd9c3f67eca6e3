// Package transfer encodes party snapshots into the portable export
// envelope and reads them back.
package transfer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"dagda/internal/domain"
	"dagda/internal/rules"
)

// Version is written into every envelope. Decode does not check it yet.
const Version = 1

var ErrFormat = errors.New("invalid export format")

type Envelope struct {
	Version    int                  `json:"version"`
	ExportedAt string               `json:"exportedAt"`
	Snapshot   domain.PartySnapshot `json:"snapshot"`
}

// Encode renders the envelope as indented JSON.
func Encode(snapshot domain.PartySnapshot, exportedAt string) ([]byte, error) {
	env := Envelope{Version: Version, ExportedAt: exportedAt, Snapshot: normalize(snapshot)}
	b, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return b, nil
}

// Decode parses an envelope. Anything that is not JSON or lacks a party
// yields ErrFormat.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if strings.TrimSpace(env.Snapshot.Party.ID) == "" {
		return Envelope{}, fmt.Errorf("%w: snapshot.party is missing", ErrFormat)
	}
	env.Snapshot = normalize(env.Snapshot)
	return env, nil
}

func normalize(s domain.PartySnapshot) domain.PartySnapshot {
	if s.Notes == nil {
		s.Notes = []domain.Note{}
	}
	if s.SaveSlots == nil {
		s.SaveSlots = []domain.SaveSlot{}
	}
	if s.Party.Character.Inventory.Weapons == nil {
		s.Party.Character.Inventory.Weapons = []domain.Weapon{}
	}
	if s.Party.Character.Inventory.Items == nil {
		s.Party.Character.Inventory.Items = []domain.Item{}
	}
	return s
}

// Summary renders a human-readable overview of an export.
func Summary(snapshot domain.PartySnapshot, exportedAt string) string {
	p := snapshot.Party
	c := p.Character
	tw := table.NewWriter()
	tw.SetTitle("Dagda export")
	tw.AppendRows([]table.Row{
		{"Party", p.Name},
		{"Mode", p.Mode},
		{"Status", p.Status},
		{"Chapter", p.CurrentChapter},
		{"Character", fmt.Sprintf("%s (%s)", c.Name, c.Talent)},
		{"HP", fmt.Sprintf("%d / %d", c.HPCurrent, c.HPMax)},
		{"Luck", c.Luck},
		{"Dexterity", c.Dexterity},
		{"Saves", fmt.Sprintf("%d / %d", len(snapshot.SaveSlots), rules.MaxSaveSlots)},
		{"Notes", len(snapshot.Notes)},
		{"Exported", exportedAt},
	})
	return tw.Render()
}
