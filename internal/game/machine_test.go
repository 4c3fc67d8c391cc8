package game

import (
	"context"
	"testing"
	"time"

	"reelhouse/internal/oracle"
)

func newTestMachine(t *testing.T) (*Machine, *MemoryFunds, *oracle.Fixed) {
	t.Helper()
	funds := NewMemoryFunds()
	var v [32]byte
	v[0] = 0x01
	beacon := oracle.NewFixed(v, 1)
	m, err := NewMachine(DefaultConfig(), funds, beacon)
	if err != nil {
		t.Fatalf("NewMachine() error: %v", err)
	}
	funds.Deposit(POOL_ACCOUNT, 100_000_000)
	if _, err := m.SyncPool(context.Background()); err != nil {
		t.Fatalf("SyncPool() error: %v", err)
	}
	return m, funds, beacon
}

func TestMachine_Play(t *testing.T) {
	ctx := context.Background()
	m, funds, _ := newTestMachine(t)
	funds.Deposit("alice", 10_000)

	bets := Bets{100, 100, 100, 100, 100, 0}
	res, err := m.Play(ctx, "alice", bets, nil)
	if err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if res.Nonce != 0 {
		t.Errorf("first play nonce = %d, want 0", res.Nonce)
	}
	if res.TotalBet != 500 {
		t.Errorf("TotalBet = %d, want 500", res.TotalBet)
	}

	balance, _ := funds.Balance(ctx, "alice")
	if balance != 10_000-500+res.Payout {
		t.Errorf("alice balance = %d, want %d", balance, 10_000-500+res.Payout)
	}

	poolBalance, _ := funds.Balance(ctx, POOL_ACCOUNT)
	if m.PoolTotal() != poolBalance {
		t.Errorf("tracked pool %d diverged from ledger %d", m.PoolTotal(), poolBalance)
	}

	res2, err := m.Play(ctx, "alice", bets, nil)
	if err != nil {
		t.Fatalf("second Play() error: %v", err)
	}
	if res2.Nonce != 1 {
		t.Errorf("second play nonce = %d, want 1", res2.Nonce)
	}
}

func TestMachine_PlayValidation(t *testing.T) {
	ctx := context.Background()
	m, funds, _ := newTestMachine(t)
	funds.Deposit("alice", 10_000)
	bogusCard := uint64(9999)

	tests := []struct {
		name     string
		player   string
		bets     Bets
		roomCard *uint64
		wantErr  error
	}{
		{"Bet on trigger symbol", "alice", Bets{0, 0, 0, 0, 0, 500}, nil, ErrInvalidBetTable},
		{"Empty bets", "alice", Bets{}, nil, ErrInvalidAmount},
		{"Below minimum", "alice", Bets{50, 0, 0, 0, 0, 0}, nil, ErrBetBelowMinimum},
		{"Unknown room card", "alice", Bets{500, 0, 0, 0, 0, 0}, &bogusCard, ErrInvalidRoomCard},
		{"Broke player", "nobody", Bets{500, 0, 0, 0, 0, 0}, nil, ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Play(ctx, tt.player, tt.bets, tt.roomCard); err != tt.wantErr {
				t.Errorf("Play() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if m.Nonce() != 0 {
		t.Errorf("nonce moved on rejected plays: %d", m.Nonce())
	}
}

func TestMachine_RequestSettleFlow(t *testing.T) {
	ctx := context.Background()
	m, funds, beacon := newTestMachine(t)
	funds.Deposit("alice", 10_000)
	bets := Bets{500, 0, 0, 0, 0, 0}

	handle, err := m.RequestPlay(ctx, "alice", "", bets, nil)
	if err != nil {
		t.Fatalf("RequestPlay() error: %v", err)
	}
	if handle == "" {
		t.Fatal("RequestPlay() returned an empty handle")
	}
	if m.PendingCount() != 1 {
		t.Errorf("PendingCount() = %d, want 1", m.PendingCount())
	}

	// The stake is escrowed at request time.
	balance, _ := funds.Balance(ctx, "alice")
	if balance != 9_500 {
		t.Errorf("alice balance after request = %d, want 9500", balance)
	}

	// Settling against the unchanged oracle value must fail and leave the
	// pending record intact.
	if _, err := m.SettlePlay(ctx, handle, "alice", ""); err != ErrOracleStale {
		t.Fatalf("SettlePlay() on stale oracle error = %v, want %v", err, ErrOracleStale)
	}
	if _, err := m.Pending(handle); err != nil {
		t.Fatal("stale settlement consumed the pending record")
	}

	var next [32]byte
	next[0] = 0x02
	beacon.Advance(next)

	if _, err := m.SettlePlay(ctx, handle, "bob", ""); err != ErrPlayerMismatch {
		t.Fatalf("SettlePlay() as wrong player error = %v, want %v", err, ErrPlayerMismatch)
	}

	res, err := m.SettlePlay(ctx, handle, "alice", "")
	if err != nil {
		t.Fatalf("SettlePlay() error: %v", err)
	}
	if res.TotalBet != 500 {
		t.Errorf("TotalBet = %d, want 500", res.TotalBet)
	}
	if m.PendingCount() != 0 {
		t.Errorf("PendingCount() after settle = %d, want 0", m.PendingCount())
	}

	balance, _ = funds.Balance(ctx, "alice")
	if balance != 9_500+res.Payout {
		t.Errorf("alice balance after settle = %d, want %d", balance, 9_500+res.Payout)
	}
	poolBalance, _ := funds.Balance(ctx, POOL_ACCOUNT)
	if m.PoolTotal() != poolBalance {
		t.Errorf("tracked pool %d diverged from ledger %d", m.PoolTotal(), poolBalance)
	}

	// Replay protection: the handle is gone.
	if _, err := m.SettlePlay(ctx, handle, "alice", ""); err != ErrPendingNotFound {
		t.Errorf("replayed SettlePlay() error = %v, want %v", err, ErrPendingNotFound)
	}
}

func TestMachine_SettleSeedIsBoundToRequest(t *testing.T) {
	ctx := context.Background()
	m, funds, beacon := newTestMachine(t)
	funds.Deposit("alice", 10_000)
	bets := Bets{500, 0, 0, 0, 0, 0}

	handle, err := m.RequestPlay(ctx, "alice", "", bets, nil)
	if err != nil {
		t.Fatalf("RequestPlay() error: %v", err)
	}
	p, err := m.Pending(handle)
	if err != nil {
		t.Fatalf("Pending() error: %v", err)
	}

	var next [32]byte
	next[0] = 0x02
	beacon.Advance(next)

	res, err := m.SettlePlay(ctx, handle, "alice", "")
	if err != nil {
		t.Fatalf("SettlePlay() error: %v", err)
	}

	// Anyone holding the two published readings can reproduce the payout.
	cfg := m.Config()
	if !VerifySettledPlay(p.EntropyBefore, next, "alice", p.RequestNonce, p.RequestMarker, bets, &cfg, res.Payout) {
		t.Error("settled payout does not verify against the published readings")
	}
}

func TestMachine_SettleEscrowAccount(t *testing.T) {
	ctx := context.Background()
	m, funds, beacon := newTestMachine(t)
	funds.Deposit("alice:spending", 10_000)
	bets := Bets{500, 0, 0, 0, 0, 0}

	// The stake comes out of a dedicated spending account.
	handle, err := m.RequestPlay(ctx, "alice", "alice:spending", bets, nil)
	if err != nil {
		t.Fatalf("RequestPlay() error: %v", err)
	}
	balance, _ := funds.Balance(ctx, "alice:spending")
	if balance != 9_500 {
		t.Errorf("spending balance after request = %d, want 9500", balance)
	}

	var next [32]byte
	next[0] = 0x02
	beacon.Advance(next)

	// Settling against a different account is rejected and leaves the
	// pending record intact.
	if _, err := m.SettlePlay(ctx, handle, "alice", "alice:other"); err != ErrEscrowMismatch {
		t.Fatalf("SettlePlay() wrong account error = %v, want %v", err, ErrEscrowMismatch)
	}
	if _, err := m.Pending(handle); err != nil {
		t.Fatal("escrow mismatch consumed the pending record")
	}

	res, err := m.SettlePlay(ctx, handle, "alice", "alice:spending")
	if err != nil {
		t.Fatalf("SettlePlay() error: %v", err)
	}

	// The payout lands on the escrowed account, not the player identity.
	balance, _ = funds.Balance(ctx, "alice:spending")
	if balance != 9_500+res.Payout {
		t.Errorf("spending balance after settle = %d, want %d", balance, 9_500+res.Payout)
	}
	identityBalance, _ := funds.Balance(ctx, "alice")
	if identityBalance != 0 {
		t.Errorf("player identity balance = %d, want 0", identityBalance)
	}
}

func TestMachine_AgentLifecycle(t *testing.T) {
	ctx := context.Background()
	m, funds, _ := newTestMachine(t)
	funds.Deposit("agent_1", 3_000_000)
	funds.Deposit("alice", 10_000)

	if _, err := m.RegisterAgent(ctx, "agent_1", 500_000); err != ErrStakeBelowThreshold {
		t.Fatalf("RegisterAgent() below threshold error = %v, want %v", err, ErrStakeBelowThreshold)
	}

	card, err := m.RegisterAgent(ctx, "agent_1", 1_000_000)
	if err != nil {
		t.Fatalf("RegisterAgent() error: %v", err)
	}
	if card != FIRST_ROOM_CARD {
		t.Errorf("room card = %d, want %d", card, FIRST_ROOM_CARD)
	}
	vault, _ := funds.Balance(ctx, STAKE_ACCOUNT)
	if vault != 1_000_000 {
		t.Errorf("stake vault = %d, want 1000000", vault)
	}

	// A routed play settles commission against the agent.
	res, err := m.Play(ctx, "alice", Bets{500, 0, 0, 0, 0, 0}, &card)
	if err != nil {
		t.Fatalf("Play() with room card error: %v", err)
	}
	a, err := m.Agent("agent_1")
	if err != nil {
		t.Fatalf("Agent() error: %v", err)
	}
	want, err := stageCommission(0, m.Config().CommissionRate, res.TotalBet, res.Payout)
	if err != nil {
		t.Fatalf("stageCommission() error: %v", err)
	}
	if a.Commission != want {
		t.Errorf("commission = %d, want %d", a.Commission, want)
	}

	amount, err := m.DeregisterAgent(ctx, "agent_1")
	if err != nil {
		t.Fatalf("DeregisterAgent() error: %v", err)
	}
	if amount != 1_000_000 {
		t.Errorf("redeemed stake = %d, want 1000000", amount)
	}
	balance, _ := funds.Balance(ctx, "agent_1")
	if balance != 3_000_000 {
		t.Errorf("agent balance after redeem = %d, want 3000000", balance)
	}

	if _, err := m.DeregisterAgent(ctx, "agent_1"); err != ErrNoStakeToRedeem {
		t.Errorf("second DeregisterAgent() error = %v, want %v", err, ErrNoStakeToRedeem)
	}
	if _, err := m.Play(ctx, "alice", Bets{500, 0, 0, 0, 0, 0}, &card); err != ErrInvalidRoomCard {
		t.Errorf("Play() with retired card error = %v, want %v", err, ErrInvalidRoomCard)
	}
}

func TestMachine_WithdrawCommission(t *testing.T) {
	ctx := context.Background()
	m, funds, _ := newTestMachine(t)
	funds.Deposit("agent_1", 1_000_000)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }

	if _, err := m.RegisterAgent(ctx, "agent_1", 1_000_000); err != nil {
		t.Fatalf("RegisterAgent() error: %v", err)
	}

	m.mu.Lock()
	a, _ := m.agents.get("agent_1")
	a.Commission = 5_000
	m.mu.Unlock()

	if _, err := m.WithdrawCommission(ctx, "agent_1"); err != ErrSettlementNotReady {
		t.Fatalf("early WithdrawCommission() error = %v, want %v", err, ErrSettlementNotReady)
	}

	m.now = func() time.Time { return base.Add(24 * time.Hour) }
	poolBefore := m.PoolTotal()

	amount, err := m.WithdrawCommission(ctx, "agent_1")
	if err != nil {
		t.Fatalf("WithdrawCommission() error: %v", err)
	}
	if amount != 5_000 {
		t.Errorf("withdrawn = %d, want 5000", amount)
	}
	if m.PoolTotal() != poolBefore-5_000 {
		t.Errorf("pool total = %d, want %d", m.PoolTotal(), poolBefore-5_000)
	}
	balance, _ := funds.Balance(ctx, "agent_1")
	if balance != 5_000 {
		t.Errorf("agent balance = %d, want 5000", balance)
	}

	m.now = func() time.Time { return base.Add(48 * time.Hour) }
	if _, err := m.WithdrawCommission(ctx, "agent_1"); err != ErrNoCommission {
		t.Errorf("drained WithdrawCommission() error = %v, want %v", err, ErrNoCommission)
	}

	if _, err := m.WithdrawCommission(ctx, "nobody"); err != ErrAgentNotFound {
		t.Errorf("WithdrawCommission() unknown error = %v, want %v", err, ErrAgentNotFound)
	}
}

func TestMachine_WithdrawPool(t *testing.T) {
	ctx := context.Background()
	m, funds, _ := newTestMachine(t)

	if err := m.WithdrawPool(ctx, "treasury", 0); err != ErrInvalidAmount {
		t.Errorf("WithdrawPool(0) error = %v, want %v", err, ErrInvalidAmount)
	}
	if err := m.WithdrawPool(ctx, "treasury", m.PoolTotal()+1); err != ErrInsufficientPool {
		t.Errorf("overdrawn WithdrawPool() error = %v, want %v", err, ErrInsufficientPool)
	}

	if err := m.WithdrawPool(ctx, "treasury", 1_000); err != nil {
		t.Fatalf("WithdrawPool() error: %v", err)
	}
	balance, _ := funds.Balance(ctx, "treasury")
	if balance != 1_000 {
		t.Errorf("treasury balance = %d, want 1000", balance)
	}
}

func TestMachine_Configure(t *testing.T) {
	m, _, _ := newTestMachine(t)

	bad := DefaultConfig()
	bad.CommissionRate = 150
	if err := m.Configure(bad); err != ErrInvalidCommissionRate {
		t.Fatalf("Configure() invalid error = %v, want %v", err, ErrInvalidCommissionRate)
	}

	good := DefaultConfig()
	good.MinBet = 50
	if err := m.Configure(good); err != nil {
		t.Fatalf("Configure() error: %v", err)
	}
	if m.Config().MinBet != 50 {
		t.Errorf("MinBet = %d, want 50", m.Config().MinBet)
	}
}

func TestMachine_Restore(t *testing.T) {
	ctx := context.Background()
	funds := NewMemoryFunds()
	var v [32]byte
	v[0] = 0x01
	beacon := oracle.NewFixed(v, 5)
	m, err := NewMachine(DefaultConfig(), funds, beacon)
	if err != nil {
		t.Fatalf("NewMachine() error: %v", err)
	}

	agents := []Agent{
		{Identity: "agent_1", Stake: 1_000_000, RoomCard: 10003, IsActive: true},
	}
	pendings := []PendingPlay{
		{
			Handle:        "handle-1",
			Player:        "alice",
			PlayerAccount: "alice",
			PoolAccount:   POOL_ACCOUNT,
			RequestNonce:  6,
			RequestMarker: 4,
			TotalBet:      500,
			Bets:          Bets{500, 0, 0, 0, 0, 0},
			EntropyBefore: [32]byte{0xAA},
		},
	}
	m.Restore(7, 2_000_000, agents, pendings)

	if m.Nonce() != 7 {
		t.Errorf("Nonce() = %d, want 7", m.Nonce())
	}
	if m.PoolTotal() != 2_000_000 {
		t.Errorf("PoolTotal() = %d, want 2000000", m.PoolTotal())
	}
	if _, err := m.Agent("agent_1"); err != nil {
		t.Errorf("restored agent not found: %v", err)
	}
	if _, err := m.Pending("handle-1"); err != nil {
		t.Errorf("restored pending not found: %v", err)
	}

	// The restored request settles once the ledger can cover it.
	funds.Deposit(POOL_ACCOUNT, 2_000_000)
	res, err := m.SettlePlay(ctx, "handle-1", "alice", "")
	if err != nil {
		t.Fatalf("SettlePlay() after restore error: %v", err)
	}
	if res.Nonce != 6 {
		t.Errorf("settled nonce = %d, want 6", res.Nonce)
	}
}
