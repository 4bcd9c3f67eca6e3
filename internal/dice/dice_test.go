package dice

import "testing"

func TestSeededDeterministic(t *testing.T) {
	a := NewSeeded(42)
	b := NewSeeded(42)
	for i := 0; i < 20; i++ {
		if x, y := a.RollD6(), b.RollD6(); x != y {
			t.Fatalf("roll %d: got %d and %d from same seed", i, x, y)
		}
	}
	if a.Position() != 20 {
		t.Fatalf("expected position 20, got %d", a.Position())
	}
}

func TestRollRange(t *testing.T) {
	sources := map[string]Source{"seeded": NewSeeded(99), "crypto": NewCrypto()}
	for name, src := range sources {
		for i := 0; i < 1000; i++ {
			if r := src.RollD6(); r < 1 || r > 6 {
				t.Fatalf("%s: roll out of range: %d", name, r)
			}
		}
		pair := src.Roll2D6()
		for _, r := range pair {
			if r < 1 || r > 6 {
				t.Fatalf("%s: pair roll out of range: %v", name, pair)
			}
		}
	}
}

func TestRollNd6(t *testing.T) {
	src := NewSeeded(7)
	rolls := src.RollNd6(5)
	if len(rolls) != 5 {
		t.Fatalf("expected 5 dice, got %d", len(rolls))
	}
	if s := Sum(rolls); s < 5 || s > 30 {
		t.Fatalf("sum out of range: %d", s)
	}
	if got := src.RollNd6(0); len(got) != 0 {
		t.Fatalf("expected no dice, got %v", got)
	}
}

func TestSeededDistribution(t *testing.T) {
	src := NewSeeded(12345)
	var counts [7]int
	const trials = 6000
	for i := 0; i < trials; i++ {
		counts[src.RollD6()]++
	}
	for face := 1; face <= 6; face++ {
		if counts[face] < 800 || counts[face] > 1200 {
			t.Fatalf("face %d drawn %d times out of %d", face, counts[face], trials)
		}
	}
}

func TestScriptedReplaysInOrder(t *testing.T) {
	src := NewScripted(3, 4)
	src.Push(6)
	got := src.RollNd6(4)
	want := []int{3, 4, 6, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("roll %d: want %d, got %d", i, want[i], got[i])
		}
	}
	if pair := src.Roll2D6(); pair != [2]int{4, 6} {
		t.Fatalf("unexpected pair %v", pair)
	}
}
