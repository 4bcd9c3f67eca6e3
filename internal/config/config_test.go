package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Rules.MortalDeath != DeathDead {
		t.Fatalf("expected dead policy by default, got %q", cfg.Rules.MortalDeath)
	}
	if cfg.Server.Addr != "127.0.0.1:8787" || cfg.Server.BasePath != "/v1" {
		t.Fatalf("unexpected server defaults %+v", cfg.Server)
	}
}

func TestFromYAMLKeepsDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte("rules:\n  mortal_death: reset\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Rules.MortalDeath != DeathReset {
		t.Fatalf("expected reset, got %q", cfg.Rules.MortalDeath)
	}
	if cfg.Dice.Source != DiceCrypto {
		t.Fatalf("expected default dice source, got %q", cfg.Dice.Source)
	}
}

func TestFromYAMLRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"death policy": "rules:\n  mortal_death: maybe\n",
		"dice source":  "dice:\n  source: loaded\n",
		"base path":    "server:\n  base_path: v1\n",
		"empty addr":   "server:\n  addr: \"\"\n",
		"bad yaml":     "rules: [",
	}
	for name, raw := range cases {
		if _, err := FromYAML([]byte(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if cfg.Rules.MortalDeath != DeathDead {
		t.Fatalf("expected defaults for missing file")
	}
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found from Load, got %v", err)
	}

	raw := "dice:\n  source: seeded\n  seed: 42\n"
	if err := os.WriteFile(filepath.Join(dir, "dagda.yml"), []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadOptional(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Dice.Source != DiceSeeded || cfg.Dice.Seed != 42 {
		t.Fatalf("unexpected dice config %+v", cfg.Dice)
	}
}
