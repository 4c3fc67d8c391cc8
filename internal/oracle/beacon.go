// Package oracle reads unpredictable 32-byte values from an external
// randomness beacon. The game core only consumes readings and checks
// freshness; it never generates entropy itself.
package oracle

import (
	"context"
	"sync"
)

// Reading is one published beacon value. Round is a monotonic point-in-time
// marker bound to the value.
type Reading struct {
	Value [32]byte
	Round uint64
}

// Beacon is a source of published randomness.
type Beacon interface {
	Read(ctx context.Context) (Reading, error)
}

// Fixed is a hand-driven beacon for tests and offline development. Advance
// publishes the next reading.
type Fixed struct {
	mu      sync.Mutex
	current Reading
}

func NewFixed(value [32]byte, round uint64) *Fixed {
	return &Fixed{current: Reading{Value: value, Round: round}}
}

func (f *Fixed) Read(ctx context.Context) (Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, nil
}

func (f *Fixed) Advance(value [32]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = Reading{Value: value, Round: f.current.Round + 1}
}
