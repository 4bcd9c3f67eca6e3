// Package dice provides six-sided die sources.
package dice

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"
)

const Sides = 6

// Source rolls six-sided dice. Every die is uniform over 1..6.
type Source interface {
	RollD6() int
	Roll2D6() [2]int
	RollNd6(n int) []int
}

// Crypto reads from crypto/rand.
type Crypto struct{}

func NewCrypto() Crypto { return Crypto{} }

func (Crypto) RollD6() int {
	// reject 252..255 so every face keeps the same weight
	var b [1]byte
	for {
		if _, err := crand.Read(b[:]); err != nil {
			panic(fmt.Sprintf("read random byte: %v", err))
		}
		if b[0] < 252 {
			return int(b[0]%Sides) + 1
		}
	}
}

func (c Crypto) Roll2D6() [2]int {
	return [2]int{c.RollD6(), c.RollD6()}
}

func (c Crypto) RollNd6(n int) []int {
	return rollN(c, n)
}

// Seeded is a deterministic source for replays and tests.
type Seeded struct {
	mu  sync.Mutex
	src *rand.Rand
	pos int64
}

func NewSeeded(seed int64) *Seeded {
	return &Seeded{src: rand.New(rand.NewSource(seed))}
}

// NewSeed draws a seed from crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

func (s *Seeded) RollD6() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos++
	return s.src.Intn(Sides) + 1
}

func (s *Seeded) Roll2D6() [2]int {
	return [2]int{s.RollD6(), s.RollD6()}
}

func (s *Seeded) RollNd6(n int) []int {
	return rollN(s, n)
}

// Position returns how many dice were rolled so far.
func (s *Seeded) Position() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func rollN(s interface{ RollD6() int }, n int) []int {
	if n <= 0 {
		return []int{}
	}
	out := make([]int, n)
	for i := range out {
		out[i] = s.RollD6()
	}
	return out
}

// Sum adds up dice values.
func Sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}

// Scripted replays a fixed sequence of rolls, then wraps around.
type Scripted struct {
	mu    sync.Mutex
	rolls []int
	pos   int
}

func NewScripted(rolls ...int) *Scripted {
	return &Scripted{rolls: rolls}
}

// Push appends rolls to the script.
func (s *Scripted) Push(rolls ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rolls = append(s.rolls, rolls...)
}

func (s *Scripted) RollD6() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rolls) == 0 {
		panic("dice: scripted source has no rolls")
	}
	r := s.rolls[s.pos%len(s.rolls)]
	s.pos++
	return r
}

func (s *Scripted) Roll2D6() [2]int {
	return [2]int{s.RollD6(), s.RollD6()}
}

func (s *Scripted) RollNd6(n int) []int {
	return rollN(s, n)
}
