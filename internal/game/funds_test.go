package game

import (
	"context"
	"testing"
)

func TestMemoryFunds_Transfer(t *testing.T) {
	ctx := context.Background()
	funds := NewMemoryFunds()
	funds.Deposit("alice", 1_000)

	if err := funds.Transfer(ctx, "alice", "bob", 400); err != nil {
		t.Fatalf("Transfer() error: %v", err)
	}

	aliceBalance, _ := funds.Balance(ctx, "alice")
	bobBalance, _ := funds.Balance(ctx, "bob")
	if aliceBalance != 600 || bobBalance != 400 {
		t.Errorf("balances = %d/%d, want 600/400", aliceBalance, bobBalance)
	}

	if err := funds.Transfer(ctx, "alice", "bob", 601); err != ErrInsufficientFunds {
		t.Errorf("overdrawn Transfer() error = %v, want %v", err, ErrInsufficientFunds)
	}

	// A failed transfer moves nothing.
	aliceBalance, _ = funds.Balance(ctx, "alice")
	if aliceBalance != 600 {
		t.Errorf("alice balance after failed transfer = %d, want 600", aliceBalance)
	}
}

func TestMemoryFunds_UnknownAccount(t *testing.T) {
	ctx := context.Background()
	funds := NewMemoryFunds()

	balance, err := funds.Balance(ctx, "ghost")
	if err != nil || balance != 0 {
		t.Errorf("Balance() = %d, %v; want 0, nil", balance, err)
	}
	if err := funds.Transfer(ctx, "ghost", "bob", 1); err != ErrInsufficientFunds {
		t.Errorf("Transfer() from unknown error = %v, want %v", err, ErrInsufficientFunds)
	}
}
