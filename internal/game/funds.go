package game

import (
	"context"
	"sync"
)

// Funds is the external custody service: it moves value between named
// accounts and reports balances. The machine never holds value itself.
type Funds interface {
	Transfer(ctx context.Context, from, to string, amount uint64) error
	Balance(ctx context.Context, account string) (uint64, error)
}

// MemoryFunds is an in-process Funds implementation for tests and
// single-node deployments.
type MemoryFunds struct {
	mu       sync.Mutex
	balances map[string]uint64
}

func NewMemoryFunds() *MemoryFunds {
	return &MemoryFunds{balances: make(map[string]uint64)}
}

func (f *MemoryFunds) Deposit(account string, amount uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[account] += amount
}

func (f *MemoryFunds) Transfer(ctx context.Context, from, to string, amount uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balances[from] < amount {
		return ErrInsufficientFunds
	}
	f.balances[from] -= amount
	f.balances[to] += amount
	return nil
}

func (f *MemoryFunds) Balance(ctx context.Context, account string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[account], nil
}
