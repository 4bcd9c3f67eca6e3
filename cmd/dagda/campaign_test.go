package main

import "testing"

func TestParseEnemy(t *testing.T) {
	cases := []struct {
		in      string
		name    string
		hp      int
		dex     int
		bonus   int
		wantErr bool
	}{
		{in: "Wolf:6:7", name: "Wolf", hp: 6, dex: 7},
		{in: "Bog Troll:12:5:2", name: "Bog Troll", hp: 12, dex: 5, bonus: 2},
		{in: "Wolf:6", wantErr: true},
		{in: "Wolf:six:7", wantErr: true},
		{in: "Wolf:6:7:1:9", wantErr: true},
	}
	for _, tc := range cases {
		got, err := parseEnemy(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tc.in, err)
		}
		if got.Name != tc.name || got.HP != tc.hp || got.Dexterity != tc.dex || got.AttackBonus != tc.bonus {
			t.Fatalf("%q: unexpected spec %+v", tc.in, got)
		}
	}
}
