package transfer

import (
	"errors"
	"strings"
	"testing"

	"dagda/internal/domain"
	"dagda/internal/rules"
)

func sampleSnapshot() domain.PartySnapshot {
	c := rules.CreateCharacter("Brann", domain.TalentHerbology, 5, 3)
	p := domain.Party{
		ID: "p1", Name: "Moor", Mode: domain.ModeNarrative, Status: domain.StatusActive,
		CurrentChapter: 42, Character: c,
		CreatedAt: "2024-01-01T00:00:00.000Z", UpdatedAt: "2024-01-02T00:00:00.000Z",
	}
	head := domain.PartySnapshot{Party: p, Notes: []domain.Note{}, SaveSlots: []domain.SaveSlot{}}
	return domain.PartySnapshot{
		Party: p,
		Notes: []domain.Note{{ID: "n1", PartyID: "p1", Content: "found a key", CreatedAt: "2024-01-01T00:01:00.000Z"}},
		SaveSlots: []domain.SaveSlot{
			{ID: "s1", PartyID: "p1", Slot: 1, Snapshot: &head, CreatedAt: "2024-01-01T00:02:00.000Z"},
		},
	}
}

func TestEncodeDecode(t *testing.T) {
	data, err := Encode(sampleSnapshot(), "2024-02-01T00:00:00.000Z")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for _, key := range []string{`"version": 1`, `"exportedAt"`, `"saveSlots"`, `"hpMax": 20`, `"currentChapter": 42`} {
		if !strings.Contains(string(data), key) {
			t.Fatalf("expected %s in envelope:\n%s", key, data)
		}
	}
	env, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Version != Version || env.ExportedAt != "2024-02-01T00:00:00.000Z" {
		t.Fatalf("unexpected envelope header %+v", env)
	}
	if env.Snapshot.Party.Character.HPMax != 20 || env.Snapshot.Party.CurrentChapter != 42 {
		t.Fatalf("party lost in transit: %+v", env.Snapshot.Party)
	}
	if len(env.Snapshot.SaveSlots) != 1 || env.Snapshot.SaveSlots[0].Snapshot == nil {
		t.Fatalf("save slot snapshot lost: %+v", env.Snapshot.SaveSlots)
	}
}

func TestDecodeRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"not json":     "not json",
		"no snapshot":  `{"version":1}`,
		"no party":     `{"version":1,"snapshot":{"notes":[]}}`,
		"wrong shape":  `{"snapshot":"nope"}`,
		"empty object": `{}`,
	}
	for name, raw := range cases {
		if _, err := Decode([]byte(raw)); !errors.Is(err, ErrFormat) {
			t.Fatalf("%s: expected ErrFormat, got %v", name, err)
		}
	}
}

func TestDecodeFillsEmptyLists(t *testing.T) {
	env, err := Decode([]byte(`{"version":7,"snapshot":{"party":{"id":"p9","name":"x","mode":"MORTAL"}}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Version != 7 {
		t.Fatalf("version should pass through, got %d", env.Version)
	}
	if env.Snapshot.Notes == nil || env.Snapshot.SaveSlots == nil {
		t.Fatalf("expected empty lists, got %+v", env.Snapshot)
	}
}

func TestSummary(t *testing.T) {
	out := Summary(sampleSnapshot(), "2024-02-01T00:00:00.000Z")
	for _, want := range []string{"Moor", "NARRATIVE", "Brann (HERBOLOGY)", "20 / 20", "1 / 3", "2024-02-01T00:00:00.000Z"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
}
