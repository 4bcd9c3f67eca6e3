// Package clock supplies timestamps for events and aggregates.
package clock

import (
	"sync"
	"time"
)

// Layout is fixed-width so that string order matches time order.
const Layout = "2006-01-02T15:04:05.000Z"

type Clock interface {
	Now() time.Time
}

type System struct{}

func (System) Now() time.Time { return time.Now() }

// Format renders t in UTC using Layout.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

func Parse(s string) (time.Time, error) {
	return time.Parse(Layout, s)
}

// Stepping returns Start, then advances by Step on every call.
type Stepping struct {
	mu   sync.Mutex
	next time.Time
	Step time.Duration
}

func NewStepping(start time.Time, step time.Duration) *Stepping {
	return &Stepping{next: start, Step: step}
}

func (s *Stepping) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.next
	s.next = s.next.Add(s.Step)
	return now
}

// Func adapts a plain function.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }
