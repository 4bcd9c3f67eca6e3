package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Death policies applied when a MORTAL character reaches zero HP.
const (
	DeathDead  = "dead"
	DeathReset = "reset"
)

// Dice sources.
const (
	DiceCrypto = "crypto"
	DiceSeeded = "seeded"
)

// Config models dagda.yml.
type Config struct {
	Rules struct {
		MortalDeath string `yaml:"mortal_death"`
	} `yaml:"rules"`
	Dice struct {
		Source string `yaml:"source"`
		Seed   int64  `yaml:"seed"`
	} `yaml:"dice"`
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with dagda config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.Rules.MortalDeath {
	case DeathDead, DeathReset:
	default:
		return fmt.Errorf("config.rules.mortal_death must be %q or %q, got %q", DeathDead, DeathReset, c.Rules.MortalDeath)
	}
	switch c.Dice.Source {
	case DiceCrypto, DiceSeeded:
	default:
		return fmt.Errorf("config.dice.source must be %q or %q, got %q", DiceCrypto, DiceSeeded, c.Dice.Source)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "dagda.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys left out
// keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `rules:
  # dead: the character stays dead; reset: back to chapter 1 with full HP
  mortal_death: dead

dice:
  # crypto or seeded; seed is only read for seeded
  source: crypto
  seed: 0

server:
  addr: 127.0.0.1:8787
  base_path: /v1
`
