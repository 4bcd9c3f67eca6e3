// Package app opens a campaign workspace: config, database, schema and
// the use-case engine wired together.
package app

import (
	"database/sql"
	"fmt"
	"log"

	"dagda/internal/config"
	"dagda/internal/db"
	"dagda/internal/engine"
	"dagda/internal/migrate"
)

type Options struct {
	// Seed switches to seeded dice when non-zero.
	Seed   int64
	Logger *log.Logger
}

// Workspace is an opened workspace. Close releases the database.
type Workspace struct {
	Path   string
	DB     *sql.DB
	Config *config.Config
	Engine engine.Engine
}

// Open loads dagda.yml (defaults when absent), opens the SQLite database
// and applies pending migrations.
func Open(workspace string, opts Options) (*Workspace, error) {
	if workspace == "" {
		workspace = "."
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.Seed != 0 {
		cfg.Dice.Source = config.DiceSeeded
		cfg.Dice.Seed = opts.Seed
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate %s: %w", db.Path(workspace), err)
	}
	e := engine.New(conn, cfg)
	if opts.Logger != nil {
		e.Logger = opts.Logger
	}
	return &Workspace{Path: workspace, DB: conn, Config: cfg, Engine: e}, nil
}

func (w *Workspace) Close() error {
	if w == nil || w.DB == nil {
		return nil
	}
	return w.DB.Close()
}
