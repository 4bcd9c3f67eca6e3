package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"dagda/internal/config"
	"dagda/internal/dice"
	"dagda/internal/domain"
	"dagda/internal/engine"
)

func TestOpenAppliesDefaultsAndSeed(t *testing.T) {
	dir := t.TempDir()
	ws, err := Open(dir, Options{Seed: 99})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ws.Close()
	if ws.Config.Rules.MortalDeath != config.DeathDead || ws.Config.Dice.Source != config.DiceSeeded {
		t.Fatalf("unexpected config %+v", ws.Config)
	}
	if _, ok := ws.Engine.Dice.(*dice.Seeded); !ok {
		t.Fatalf("expected seeded dice, got %T", ws.Engine.Dice)
	}
	if _, err := os.Stat(filepath.Join(dir, ".dagda", "dagda.db")); err != nil {
		t.Fatalf("database not created: %v", err)
	}
	p, err := ws.Engine.CreateParty(context.Background(), engine.CreatePartyInput{
		Name: "Seeded", Mode: domain.ModeNarrative, CharacterName: "Ada", Talent: domain.TalentPersuasion,
	})
	if err != nil {
		t.Fatalf("create party: %v", err)
	}
	if p.Character.HPMax < 8 || p.Character.HPMax > 48 {
		t.Fatalf("hp out of range: %d", p.Character.HPMax)
	}
}

func TestOpenReadsConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(config.Path(dir), []byte("rules:\n  mortal_death: reset\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ws, err := Open(dir, Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ws.Close()
	if ws.Config.Rules.MortalDeath != config.DeathReset {
		t.Fatalf("config not loaded: %+v", ws.Config.Rules)
	}
	if _, ok := ws.Engine.Dice.(dice.Crypto); !ok {
		t.Fatalf("expected crypto dice, got %T", ws.Engine.Dice)
	}

	if err := os.WriteFile(config.Path(dir), []byte("rules:\n  mortal_death: sometimes\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(dir, Options{}); err == nil {
		t.Fatalf("expected invalid config error")
	}
}
