package dagdasdk_test

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"testing"

	"dagda/internal/config"
	"dagda/internal/db"
	"dagda/internal/dice"
	"dagda/internal/engine"
	"dagda/internal/migrate"
	"dagda/internal/server"
	dagdasdk "dagda/sdk/go"
)

func newClient(t *testing.T) *dagdasdk.Client {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default())
	e.Dice = dice.NewScripted(5, 5, 2)
	e.Logger = log.New(io.Discard, "", 0)
	handler, err := server.New(server.Config{Engine: e, BasePath: "/v1"})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		conn.Close()
	})
	return dagdasdk.New("http://" + ln.Addr().String())
}

func TestClientCampaignFlow(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	p, err := c.CreateParty(ctx, "Salt Marsh", "SIMPLIFIED", "Ysolde", "HERBOLOGY")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Character.HPMax != 40 || p.Character.Luck != 2 {
		t.Fatalf("unexpected character: %+v", p.Character)
	}
	if _, changed, err := c.SetChapter(ctx, p.ID, 2); err != nil || !changed {
		t.Fatalf("set chapter: changed=%v err=%v", changed, err)
	}
	if _, err := c.AddNote(ctx, p.ID, "reeds hide a boat"); err != nil {
		t.Fatalf("add note: %v", err)
	}
	first, err := c.CreateSave(ctx, p.ID, 1)
	if err != nil {
		t.Fatalf("save 1: %v", err)
	}
	if _, err := c.CreateSave(ctx, p.ID, 2); err != nil {
		t.Fatalf("save 2: %v", err)
	}

	// Only the newest save may be restored in simplified mode.
	_, err = c.RestoreSave(ctx, p.ID, first.Slot.ID)
	var apiErr *dagdasdk.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusConflict || apiErr.Code() != "restore_not_allowed" {
		t.Fatalf("expected restore_not_allowed, got %v", err)
	}

	events, err := c.Timeline(ctx, p.ID, 2, "")
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(events) != 2 || events[0].Type != "save_created" {
		t.Fatalf("unexpected timeline: %+v", events)
	}

	exp, err := c.Export(ctx, p.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	imported, err := c.Import(ctx, exp.Envelope)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if imported.ID == p.ID || imported.CurrentChapter != 2 {
		t.Fatalf("unexpected import: %+v", imported)
	}
	slots, err := c.SaveSlots(ctx, imported.ID)
	if err != nil || len(slots) != 2 {
		t.Fatalf("imported saves: %v %+v", err, slots)
	}

	if err := c.DeleteParty(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.GetParty(ctx, p.ID); !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %v", err)
	}

	pending, err := c.PendingOutbox(ctx)
	if err != nil {
		t.Fatalf("outbox: %v", err)
	}
	for _, entry := range pending {
		if entry.PartyID == p.ID {
			t.Fatalf("outbox entries of a deleted party must be gone")
		}
	}
}
