package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"dagda/internal/clock"
	"dagda/internal/config"
	"dagda/internal/db"
	"dagda/internal/dice"
	"dagda/internal/domain"
	"dagda/internal/engine"
	"dagda/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, auth AuthConfig) (*testServer, func()) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default())
	// hpMax 28, luck 4 for every new party
	e.Dice = dice.NewScripted(3, 4, 4)
	e.Clock = clock.NewStepping(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), time.Second)
	e.Logger = log.New(io.Discard, "", 0)
	if auth.Logger == nil {
		auth.Logger = log.New(io.Discard, "", 0)
	}
	handler, err := New(Config{Engine: e, BasePath: "/v1", Auth: auth})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal %T: %v (%s)", out, err, string(data))
	}
	return out
}

func expectError(t *testing.T, res *http.Response, data []byte, status int, code string) {
	t.Helper()
	if res.StatusCode != status {
		t.Fatalf("expected status %d, got %d: %s", status, res.StatusCode, string(data))
	}
	var env struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal error envelope: %v (%s)", err, string(data))
	}
	if env.Error.Code != code {
		t.Fatalf("expected code %q, got %q (%s)", code, env.Error.Code, env.Error.Message)
	}
}

func createParty(t *testing.T, srv *testServer, mode domain.GameMode, headers map[string]string) domain.Party {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/parties", map[string]any{
		"name":          "The Moor Road",
		"mode":          mode,
		"characterName": "Brann",
		"talent":        domain.TalentObservation,
	}, headers)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create party status %d: %s", res.StatusCode, string(data))
	}
	return decode[domain.Party](t, data)
}

func TestHealth(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/health", nil, nil)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(data), `"ok"`) {
		t.Fatalf("health: %d %s", res.StatusCode, string(data))
	}
}

func TestPartyLifecycle(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	p := createParty(t, srv, domain.ModeNarrative, nil)
	if p.Status != domain.StatusActive || p.CurrentChapter != 1 || p.Character.HPMax != 28 {
		t.Fatalf("unexpected party: %+v", p)
	}
	base := srv.URL + "/v1/parties/" + p.ID

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/parties", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", res.StatusCode, string(data))
	}
	if list := decode[PartyList](t, data); len(list.Items) != 1 || list.Items[0].ID != p.ID {
		t.Fatalf("unexpected list: %+v", list)
	}

	res, data = doJSON(t, client, http.MethodPut, base+"/chapter", map[string]any{"chapter": 4}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("chapter status %d: %s", res.StatusCode, string(data))
	}
	if ch := decode[ChapterResponse](t, data); !ch.Changed || ch.Party.CurrentChapter != 4 {
		t.Fatalf("unexpected chapter response: %+v", ch)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/hp", map[string]any{"delta": -10}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("hp status %d: %s", res.StatusCode, string(data))
	}
	if hp := decode[engine.HPResult](t, data); hp.Party.Character.HPCurrent != 18 || hp.Dead {
		t.Fatalf("unexpected hp result: %+v", hp)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/luck", map[string]any{"cost": 5}, nil)
	expectError(t, res, data, http.StatusConflict, "insufficient_luck")

	res, data = doJSON(t, client, http.MethodPost, base+"/luck", map[string]any{"cost": 3}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("luck status %d: %s", res.StatusCode, string(data))
	}
	if got := decode[domain.Party](t, data); got.Character.Luck != 1 {
		t.Fatalf("expected luck 1, got %d", got.Character.Luck)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/finish", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("finish status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, base+"/hp", map[string]any{"delta": 2}, nil)
	expectError(t, res, data, http.StatusConflict, "party_not_active")

	res, _ = doJSON(t, client, http.MethodDelete, base, nil, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d", res.StatusCode)
	}
	res, data = doJSON(t, client, http.MethodGet, base, nil, nil)
	expectError(t, res, data, http.StatusNotFound, "not_found")
}

func TestCreatePartyValidation(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/parties", map[string]any{
		"name":          "x",
		"mode":          "HARDCORE",
		"characterName": "Brann",
		"talent":        domain.TalentInstinct,
	}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, srv.Client(), http.MethodPut, srv.URL+"/v1/parties/missing/chapter", map[string]any{"chapter": 2}, nil)
	expectError(t, res, data, http.StatusNotFound, "not_found")
}

func TestNotesActionsAndTimeline(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()
	p := createParty(t, srv, domain.ModeNarrative, nil)
	base := srv.URL + "/v1/parties/" + p.ID

	res, data := doJSON(t, client, http.MethodPost, base+"/notes", map[string]any{"content": "The ferryman lied."}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("note status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, base+"/actions", map[string]any{"label": "Searched the mill"}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("action status %d: %s", res.StatusCode, string(data))
	}
	if evt := decode[domain.TimelineEvent](t, data); evt.Type != domain.EventCustomAction || evt.Label != "Searched the mill" {
		t.Fatalf("unexpected action event: %+v", evt)
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/notes", nil, nil)
	if notes := decode[NoteList](t, data); res.StatusCode != http.StatusOK || len(notes.Items) != 1 {
		t.Fatalf("unexpected notes %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/timeline", nil, nil)
	all := decode[TimelineList](t, data)
	if res.StatusCode != http.StatusOK || len(all.Items) != 3 {
		t.Fatalf("unexpected timeline %d: %s", res.StatusCode, string(data))
	}
	if all.Items[0].Type != domain.EventCustomAction || all.Items[2].Type != domain.EventPartyCreated {
		t.Fatalf("timeline not newest first: %+v", all.Items)
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/timeline?limit=1&type=note_added", nil, nil)
	filtered := decode[TimelineList](t, data)
	if res.StatusCode != http.StatusOK || len(filtered.Items) != 1 || filtered.Items[0].Type != domain.EventNoteAdded {
		t.Fatalf("unexpected filtered timeline %d: %s", res.StatusCode, string(data))
	}
}

func TestInventoryPatch(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	p := createParty(t, srv, domain.ModeSimplified, nil)
	url := srv.URL + "/v1/parties/" + p.ID + "/inventory"

	res, data := doJSON(t, srv.Client(), http.MethodPatch, url, map[string]any{
		"label":            "Bought a spear",
		"weapons":          []map[string]any{{"id": "w1", "name": "Spear", "bonus": 1}},
		"currency":         12,
		"equippedWeaponId": "w1",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("inventory status %d: %s", res.StatusCode, string(data))
	}
	inv := decode[domain.Party](t, data).Character.Inventory
	if len(inv.Weapons) != 1 || inv.Currency.Bolts != 12 || inv.EquippedWeaponID != "w1" {
		t.Fatalf("unexpected inventory: %+v", inv)
	}

	res, data = doJSON(t, srv.Client(), http.MethodPatch, url, map[string]any{
		"label":    "Overspent",
		"currency": -1,
	}, nil)
	expectError(t, res, data, http.StatusBadRequest, "bad_request")
}

func TestSavesAndRestore(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()
	p := createParty(t, srv, domain.ModeNarrative, nil)
	base := srv.URL + "/v1/parties/" + p.ID

	res, data := doJSON(t, client, http.MethodPost, base+"/saves", map[string]any{"slot": 1}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("save status %d: %s", res.StatusCode, string(data))
	}
	saved := decode[engine.SaveResult](t, data)
	if saved.Replaced || saved.Slot.Slot != 1 {
		t.Fatalf("unexpected save result: %+v", saved)
	}

	doJSON(t, client, http.MethodPut, base+"/chapter", map[string]any{"chapter": 7}, nil)

	res, data = doJSON(t, client, http.MethodGet, base+"/saves", nil, nil)
	if slots := decode[SaveSlotList](t, data); res.StatusCode != http.StatusOK || len(slots.Items) != 1 {
		t.Fatalf("unexpected saves %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/saves/"+saved.Slot.ID+"/restore", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("restore status %d: %s", res.StatusCode, string(data))
	}
	if got := decode[domain.Party](t, data); got.CurrentChapter != 1 || got.ID != p.ID {
		t.Fatalf("unexpected restored party: %+v", got)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/saves", map[string]any{"slot": 4}, nil)
	expectError(t, res, data, http.StatusBadRequest, "bad_request")
}

func TestExportImportRoundTrip(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()
	p := createParty(t, srv, domain.ModeMortal, nil)
	doJSON(t, client, http.MethodPost, srv.URL+"/v1/parties/"+p.ID+"/notes", map[string]any{"content": "cold trail"}, nil)

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/parties/"+p.ID+"/export", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("export status %d: %s", res.StatusCode, string(data))
	}
	exp := decode[ExportResponse](t, data)
	if exp.Envelope.Snapshot.Party.ID != p.ID || len(exp.Envelope.Snapshot.Notes) != 1 {
		t.Fatalf("unexpected export: %+v", exp.Envelope)
	}
	if !strings.Contains(exp.Summary, "Brann") {
		t.Fatalf("summary missing character: %s", exp.Summary)
	}

	raw, err := json.Marshal(exp.Envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/imports", raw, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("import status %d: %s", res.StatusCode, string(data))
	}
	imported := decode[domain.Party](t, data)
	if imported.ID == p.ID || imported.Name != p.Name || imported.Mode != domain.ModeMortal {
		t.Fatalf("unexpected imported party: %+v", imported)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/imports", []byte(`{"version":1}`), nil)
	expectError(t, res, data, http.StatusBadRequest, "invalid_format")

	broken := exp.Envelope
	broken.Snapshot.Party.Character.HPCurrent = 999
	broken.Snapshot.Party.Character.Luck = -5
	raw, err = json.Marshal(broken)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/imports", raw, nil)
	expectError(t, res, data, http.StatusBadRequest, "invalid_format")
}

func TestCombatAndOutbox(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()
	p := createParty(t, srv, domain.ModeNarrative, nil)
	base := srv.URL + "/v1/parties/" + p.ID

	tooMany := make([]map[string]any, 6)
	for i := range tooMany {
		tooMany[i] = map[string]any{"name": "Rat", "hp": 2, "dexterity": 5}
	}
	res, data := doJSON(t, client, http.MethodPost, base+"/combat", map[string]any{"enemies": tooMany}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for six enemies, got %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/combat", map[string]any{
		"enemies":   []map[string]any{{"name": "Wolf", "hp": 6, "dexterity": 7, "attackBonus": 1}},
		"maxRounds": 3,
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("combat status %d: %s", res.StatusCode, string(data))
	}
	fight := decode[CombatResponse](t, data)
	if fight.Rounds < 1 || fight.Rounds > 3 || len(fight.Enemies) != 1 {
		t.Fatalf("unexpected combat response: %+v", fight)
	}
	res, data = doJSON(t, client, http.MethodGet, base+"/timeline?type=combat_started", nil, nil)
	if started := decode[TimelineList](t, data); len(started.Items) != 1 {
		t.Fatalf("expected one combat_started event: %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/outbox", nil, nil)
	pending := decode[OutboxList](t, data)
	if res.StatusCode != http.StatusOK || len(pending.Items) == 0 || pending.Items[0].Type != domain.EventPartyCreated {
		t.Fatalf("unexpected outbox %d: %s", res.StatusCode, string(data))
	}
	first := pending.Items[0].ID
	res, _ = doJSON(t, client, http.MethodPost, srv.URL+"/v1/outbox/"+first+"/sent", nil, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("mark sent status %d", res.StatusCode)
	}
	_, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/outbox", nil, nil)
	for _, item := range decode[OutboxList](t, data).Items {
		if item.ID == first {
			t.Fatalf("sent entry still pending")
		}
	}
}

func TestBearerAuth(t *testing.T) {
	const secret = "test-secret"
	srv, cleanup := newTestServer(t, AuthConfig{JWTSecret: secret})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health should stay open: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/parties", nil, nil)
	expectError(t, res, data, http.StatusUnauthorized, "unauthorized")

	wrong, err := SignToken("other-secret", "solo", time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/parties", nil, map[string]string{"Authorization": "Bearer " + wrong})
	expectError(t, res, data, http.StatusUnauthorized, "invalid_credentials")

	token, err := SignToken(secret, "solo", time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	headers := map[string]string{"Authorization": "Bearer " + token}
	createParty(t, srv, domain.ModeNarrative, headers)
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/me", nil, headers)
	if me := decode[MeResponse](t, data); res.StatusCode != http.StatusOK || me.Subject != "solo" || me.Source != "jwt" {
		t.Fatalf("unexpected principal %d: %s", res.StatusCode, string(data))
	}
}

func TestSignTokenRequiresSecret(t *testing.T) {
	if _, err := SignToken("", "solo", 0); err == nil {
		t.Fatalf("expected error without secret")
	}
	if _, err := SignToken("s", " ", 0); err == nil {
		t.Fatalf("expected error without subject")
	}
}

func TestOpenAPIDocument(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/openapi.json", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("openapi status %d", res.StatusCode)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal openapi: %v", err)
	}
	paths, _ := doc["paths"].(map[string]any)
	for _, p := range []string{"/v1/parties", "/v1/parties/{id}/saves/{slot_id}/restore", "/v1/imports"} {
		if _, ok := paths[p]; !ok {
			t.Fatalf("openapi missing path %s", p)
		}
	}

	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/docs", nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("docs page status %d, want 404", res.StatusCode)
	}
}
