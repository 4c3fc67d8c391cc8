package game

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"reelhouse/internal/oracle"
)

// Account names on the funds ledger. Bets and payouts move through the pool
// account; agent stakes sit in a separate vault, mirroring their separate
// lifecycle.
const (
	POOL_ACCOUNT  = "reelhouse:pool"
	STAKE_ACCOUNT = "reelhouse:stake_vault"
)

// Machine is one game instance: configuration, the agent book, the pool
// total, the play nonce and the outstanding two-phase requests.
//
// Every operation validates and stages first, then commits; an error on any
// path leaves all machine state exactly as before the call. The mutex
// serializes operations, so no operation ever observes another's
// intermediate state.
type Machine struct {
	mu sync.Mutex

	cfg     Config
	agents  *agentBook
	pending map[string]*PendingPlay

	totalPool uint64
	nonce     uint64

	funds  Funds
	beacon oracle.Beacon
	now    func() time.Time
}

// PlayResult is what an operation reports back to its caller.
type PlayResult struct {
	Outcome
	Nonce    uint64 `json:"nonce"`
	TotalBet uint64 `json:"total_bet"`
}

func NewMachine(cfg Config, funds Funds, beacon oracle.Beacon) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Machine{
		cfg:     cfg,
		agents:  newAgentBook(),
		pending: make(map[string]*PendingPlay),
		funds:   funds,
		beacon:  beacon,
		now:     time.Now,
	}, nil
}

// Configure replaces the rule set. All invariants are re-validated; the play
// nonce and pool total are not part of the configuration and survive.
func (m *Machine) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
	log.Printf("[SLOT] Reconfigured: rate=%d%% maxAutoSpins=%d minBet=%d", cfg.CommissionRate, cfg.MaxAutoSpins, cfg.MinBet)
	return nil
}

func (m *Machine) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Play resolves a bet immediately against the oracle's current value.
func (m *Machine) Play(ctx context.Context, player string, bets Bets, roomCard *uint64) (PlayResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := validateBets(bets, m.cfg.MinBet); err != nil {
		return PlayResult{}, err
	}
	var agent *Agent
	if roomCard != nil {
		a, ok := m.agents.activeByRoomCard(*roomCard)
		if !ok {
			return PlayResult{}, ErrInvalidRoomCard
		}
		agent = a
	}
	totalBet, err := betsTotal(bets)
	if err != nil {
		return PlayResult{}, err
	}

	reading, err := m.beacon.Read(ctx)
	if err != nil {
		return PlayResult{}, err
	}
	seed := DerivePlaySeed(reading.Value, player, m.nonce, reading.Round)
	out, err := ComputeOutcome(seed, bets, &m.cfg)
	if err != nil {
		return PlayResult{}, err
	}

	poolAfterBet, err := checkedAdd(m.totalPool, totalBet)
	if err != nil {
		return PlayResult{}, err
	}
	poolAfter := poolAfterBet
	if out.Payout > 0 {
		poolAfter, err = checkedSub(poolAfterBet, out.Payout)
		if err != nil {
			return PlayResult{}, ErrInsufficientPool
		}
	}
	var newCommission int64
	if agent != nil {
		newCommission, err = stageCommission(agent.Commission, m.cfg.CommissionRate, totalBet, out.Payout)
		if err != nil {
			return PlayResult{}, err
		}
	}

	if err := m.settleFunds(ctx, player, totalBet, out.Payout); err != nil {
		return PlayResult{}, err
	}
	usedNonce := m.nonce
	m.nonce++
	m.totalPool = poolAfter
	if agent != nil {
		agent.Commission = newCommission
	}
	log.Printf("[SLOT] Play by %s: bet=%d payout=%d reels=%v chain=%d", player, totalBet, out.Payout, out.Symbols, out.ChainCount)
	return PlayResult{Outcome: out, Nonce: usedNonce, TotalBet: totalBet}, nil
}

// RequestPlay escrows the stake and records the oracle's current value.
// Settlement is only possible once the oracle publishes a fresh value. The
// stake is drawn from account, which may be a dedicated spending account
// distinct from the player identity; an empty account defaults to the player.
func (m *Machine) RequestPlay(ctx context.Context, player, account string, bets Bets, roomCard *uint64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if account == "" {
		account = player
	}
	if err := validateBets(bets, m.cfg.MinBet); err != nil {
		return "", err
	}
	if roomCard != nil {
		if _, ok := m.agents.activeByRoomCard(*roomCard); !ok {
			return "", ErrInvalidRoomCard
		}
	}
	totalBet, err := betsTotal(bets)
	if err != nil {
		return "", err
	}
	poolAfter, err := checkedAdd(m.totalPool, totalBet)
	if err != nil {
		return "", err
	}
	reading, err := m.beacon.Read(ctx)
	if err != nil {
		return "", err
	}
	if err := m.funds.Transfer(ctx, account, POOL_ACCOUNT, totalBet); err != nil {
		return "", err
	}

	p := &PendingPlay{
		Handle:        uuid.NewString(),
		Player:        player,
		PlayerAccount: account,
		PoolAccount:   POOL_ACCOUNT,
		RequestNonce:  m.nonce,
		RequestMarker: reading.Round,
		TotalBet:      totalBet,
		Bets:          bets,
		EntropyBefore: reading.Value,
		CreatedAt:     m.now(),
	}
	if roomCard != nil {
		p.HasRoomCard = true
		p.RoomCard = *roomCard
	}
	m.nonce++
	m.totalPool = poolAfter
	m.pending[p.Handle] = p
	log.Printf("[SLOT] Play requested by %s: handle=%s bet=%d marker=%d", player, p.Handle, totalBet, p.RequestMarker)
	return p.Handle, nil
}

// SettlePlay consumes a pending request. It fails without touching the
// record while the oracle value is unchanged, so callers retry later. The
// payout goes to the account escrowed at request time; a settle naming a
// different account is rejected.
func (m *Machine) SettlePlay(ctx context.Context, handle, player, account string) (PlayResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if account == "" {
		account = player
	}
	p, ok := m.pending[handle]
	if !ok {
		return PlayResult{}, ErrPendingNotFound
	}
	if p.Player != player {
		return PlayResult{}, ErrPlayerMismatch
	}
	if p.PlayerAccount != account {
		return PlayResult{}, ErrEscrowMismatch
	}

	reading, err := m.beacon.Read(ctx)
	if err != nil {
		return PlayResult{}, err
	}
	if reading.Value == p.EntropyBefore {
		return PlayResult{}, ErrOracleStale
	}

	seed := DeriveSettleSeed(p.EntropyBefore, reading.Value, p.Player, p.RequestNonce, p.RequestMarker)
	out, err := ComputeOutcome(seed, p.Bets, &m.cfg)
	if err != nil {
		return PlayResult{}, err
	}

	poolAfter := m.totalPool
	if out.Payout > 0 {
		poolAfter, err = checkedSub(m.totalPool, out.Payout)
		if err != nil {
			return PlayResult{}, ErrInsufficientPool
		}
	}
	var agent *Agent
	var newCommission int64
	if p.HasRoomCard {
		a, ok := m.agents.activeByRoomCard(p.RoomCard)
		if !ok {
			return PlayResult{}, ErrInvalidRoomCard
		}
		agent = a
		newCommission, err = stageCommission(agent.Commission, m.cfg.CommissionRate, p.TotalBet, out.Payout)
		if err != nil {
			return PlayResult{}, err
		}
	}

	if out.Payout > 0 {
		if err := m.funds.Transfer(ctx, p.PoolAccount, p.PlayerAccount, out.Payout); err != nil {
			return PlayResult{}, err
		}
	}
	delete(m.pending, handle)
	m.totalPool = poolAfter
	if agent != nil {
		agent.Commission = newCommission
	}
	log.Printf("[SLOT] Play settled: handle=%s payout=%d reels=%v chain=%d", handle, out.Payout, out.Symbols, out.ChainCount)
	return PlayResult{Outcome: out, Nonce: p.RequestNonce, TotalBet: p.TotalBet}, nil
}

// RegisterAgent stakes value into the vault and assigns a room card.
func (m *Machine) RegisterAgent(ctx context.Context, identity string, stake uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stake < m.cfg.StakeThreshold {
		return 0, ErrStakeBelowThreshold
	}
	if err := m.funds.Transfer(ctx, identity, STAKE_ACCOUNT, stake); err != nil {
		return 0, err
	}
	card, err := m.agents.register(identity, stake, m.cfg.StakeThreshold, m.now())
	if err != nil {
		// Return the stake; registration changed nothing.
		if rerr := m.funds.Transfer(ctx, STAKE_ACCOUNT, identity, stake); rerr != nil {
			log.Printf("[AGENT] Stake refund for %s failed: %v", identity, rerr)
		}
		return 0, err
	}
	log.Printf("[AGENT] %s registered with stake=%d card=%d", identity, stake, card)
	return card, nil
}

// DeregisterAgent returns the full stake and clears room card and commission.
func (m *Machine) DeregisterAgent(ctx context.Context, identity string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.agents.get(identity)
	if !ok {
		return 0, ErrAgentNotFound
	}
	if a.Stake == 0 {
		return 0, ErrNoStakeToRedeem
	}
	if err := m.funds.Transfer(ctx, STAKE_ACCOUNT, identity, a.Stake); err != nil {
		return 0, err
	}
	amount, err := m.agents.redeem(identity)
	if err != nil {
		return 0, err
	}
	log.Printf("[AGENT] %s redeemed stake=%d", identity, amount)
	return amount, nil
}

// WithdrawCommission pays accrued commission out of the pool once per
// settlement period.
func (m *Machine) WithdrawCommission(ctx context.Context, identity string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.agents.get(identity)
	if !ok {
		return 0, ErrAgentNotFound
	}
	if a.RoomCard == 0 {
		return 0, ErrAgentInactive
	}
	now := m.now()
	if now.Sub(a.LastSettlement) < m.cfg.SettlementPeriod {
		return 0, ErrSettlementNotReady
	}
	if a.Commission <= 0 {
		return 0, ErrNoCommission
	}
	amount := uint64(a.Commission)
	poolAfter, err := checkedSub(m.totalPool, amount)
	if err != nil {
		return 0, ErrInsufficientPool
	}
	if err := m.funds.Transfer(ctx, POOL_ACCOUNT, identity, amount); err != nil {
		return 0, err
	}
	m.totalPool = poolAfter
	a.Commission = 0
	a.LastSettlement = now
	log.Printf("[AGENT] %s withdrew commission=%d", identity, amount)
	return amount, nil
}

// Agent returns a value copy of one agent.
func (m *Machine) Agent(identity string) (Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents.get(identity)
	if !ok {
		return Agent{}, ErrAgentNotFound
	}
	return *a, nil
}

// WithdrawPool moves pool funds to the given account. Administrative.
func (m *Machine) WithdrawPool(ctx context.Context, to string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if amount == 0 {
		return ErrInvalidAmount
	}
	poolAfter, err := checkedSub(m.totalPool, amount)
	if err != nil {
		return ErrInsufficientPool
	}
	if err := m.funds.Transfer(ctx, POOL_ACCOUNT, to, amount); err != nil {
		return err
	}
	m.totalPool = poolAfter
	log.Printf("[SLOT] Pool withdrawal: %d to %s", amount, to)
	return nil
}

// SyncPool realigns the tracked total with the funds ledger. Administrative.
func (m *Machine) SyncPool(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	balance, err := m.funds.Balance(ctx, POOL_ACCOUNT)
	if err != nil {
		return 0, err
	}
	m.totalPool = balance
	return balance, nil
}

func (m *Machine) PoolTotal() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalPool
}

func (m *Machine) Nonce() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nonce
}

func (m *Machine) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Snapshot accessors for the persistence layer.

func (m *Machine) Agents() []Agent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.agents.snapshot()
}

// Pending returns a value copy of one outstanding request.
func (m *Machine) Pending(handle string) (PendingPlay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[handle]
	if !ok {
		return PendingPlay{}, ErrPendingNotFound
	}
	return *p, nil
}

func (m *Machine) Pendings() []PendingPlay {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PendingPlay, 0, len(m.pending))
	for _, p := range m.pending {
		out = append(out, *p)
	}
	return out
}

// Restore rehydrates machine state from persisted records at startup.
func (m *Machine) Restore(nonce, totalPool uint64, agents []Agent, pendings []PendingPlay) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nonce = nonce
	m.totalPool = totalPool
	m.agents.restore(agents)
	for i := range pendings {
		p := pendings[i]
		m.pending[p.Handle] = &p
	}
}

// settleFunds moves the stake in and, on a win, the payout out. A failed
// payout refunds the stake so the caller observes an atomic no-op.
func (m *Machine) settleFunds(ctx context.Context, player string, totalBet, payout uint64) error {
	if err := m.funds.Transfer(ctx, player, POOL_ACCOUNT, totalBet); err != nil {
		return err
	}
	if payout > 0 {
		if err := m.funds.Transfer(ctx, POOL_ACCOUNT, player, payout); err != nil {
			if rerr := m.funds.Transfer(ctx, POOL_ACCOUNT, player, totalBet); rerr != nil {
				log.Printf("[SLOT] Stake refund for %s failed: %v", player, rerr)
			}
			return err
		}
	}
	return nil
}
