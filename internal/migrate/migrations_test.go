package migrate_test

import (
	"testing"

	"dagda/internal/db"
	"dagda/internal/migrate"
)

func TestMigrateIsIdempotent(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	if v, err := migrate.Version(conn); err != nil || v != 0 {
		t.Fatalf("fresh db version: %d %v", v, err)
	}
	for i := 0; i < 2; i++ {
		if err := migrate.Migrate(conn); err != nil {
			t.Fatalf("migrate pass %d: %v", i, err)
		}
	}
	latest, err := migrate.Latest()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	v, err := migrate.Version(conn)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v != latest || v == 0 {
		t.Fatalf("expected version %d, got %d", latest, v)
	}
	for _, table := range []string{"parties", "notes", "save_slots", "timeline", "outbox"} {
		var name string
		if err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name); err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}
