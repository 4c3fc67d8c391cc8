package game

import "time"

const (
	MAX_AGENT_COUNT = 48
	FIRST_ROOM_CARD = 10000
)

// Agent is one registered promoter. Commission is a signed accrual but never
// goes below zero; a room card of 0 means "not currently assigned".
type Agent struct {
	Identity       string    `json:"identity"`
	Stake          uint64    `json:"stake"`
	RoomCard       uint64    `json:"room_card"`
	Commission     int64     `json:"commission"`
	StakeTime      time.Time `json:"stake_time"`
	LastSettlement time.Time `json:"last_settlement"`
	IsActive       bool      `json:"is_active"`
}

// agentBook indexes agents by identity and by room card for O(1) lookups.
type agentBook struct {
	byIdentity map[string]*Agent
	byRoomCard map[uint64]*Agent
	nextCard   uint64
}

func newAgentBook() *agentBook {
	return &agentBook{
		byIdentity: make(map[string]*Agent),
		byRoomCard: make(map[uint64]*Agent),
		nextCard:   FIRST_ROOM_CARD,
	}
}

// register creates or tops up an agent and returns its room card. The cap is
// enforced before the lookup, so a full book rejects top-ups too.
func (b *agentBook) register(identity string, stake, threshold uint64, now time.Time) (uint64, error) {
	if stake < threshold {
		return 0, ErrStakeBelowThreshold
	}
	if len(b.byIdentity) >= MAX_AGENT_COUNT {
		if _, ok := b.byIdentity[identity]; !ok {
			return 0, ErrTooManyAgents
		}
	}
	if a, ok := b.byIdentity[identity]; ok {
		newStake, err := checkedAdd(a.Stake, stake)
		if err != nil {
			return 0, err
		}
		if a.RoomCard == 0 {
			a.RoomCard = b.nextCard
			b.nextCard++
			b.byRoomCard[a.RoomCard] = a
		}
		a.Stake = newStake
		a.IsActive = true
		a.StakeTime = now
		if a.LastSettlement.IsZero() {
			a.LastSettlement = now
		}
		return a.RoomCard, nil
	}
	card := b.nextCard
	b.nextCard++
	a := &Agent{
		Identity:       identity,
		Stake:          stake,
		RoomCard:       card,
		StakeTime:      now,
		LastSettlement: now,
		IsActive:       true,
	}
	b.byIdentity[identity] = a
	b.byRoomCard[card] = a
	return card, nil
}

// redeem clears the agent's stake, room card and commission, and returns the
// stake amount owed back.
func (b *agentBook) redeem(identity string) (uint64, error) {
	a, ok := b.byIdentity[identity]
	if !ok {
		return 0, ErrAgentNotFound
	}
	if a.Stake == 0 {
		return 0, ErrNoStakeToRedeem
	}
	amount := a.Stake
	if a.RoomCard != 0 {
		delete(b.byRoomCard, a.RoomCard)
	}
	a.Stake = 0
	a.RoomCard = 0
	a.Commission = 0
	return amount, nil
}

func (b *agentBook) get(identity string) (*Agent, bool) {
	a, ok := b.byIdentity[identity]
	return a, ok
}

// activeByRoomCard resolves a player-supplied routing code.
func (b *agentBook) activeByRoomCard(card uint64) (*Agent, bool) {
	if card == 0 {
		return nil, false
	}
	a, ok := b.byRoomCard[card]
	if !ok || !a.IsActive {
		return nil, false
	}
	return a, true
}

func (b *agentBook) count() int { return len(b.byIdentity) }

// snapshot returns value copies of every agent, for persistence.
func (b *agentBook) snapshot() []Agent {
	out := make([]Agent, 0, len(b.byIdentity))
	for _, a := range b.byIdentity {
		out = append(out, *a)
	}
	return out
}

// restore rebuilds the book from persisted agents.
func (b *agentBook) restore(agents []Agent) {
	for i := range agents {
		a := agents[i]
		cp := a
		b.byIdentity[a.Identity] = &cp
		if a.RoomCard != 0 {
			b.byRoomCard[a.RoomCard] = &cp
			if a.RoomCard >= b.nextCard {
				b.nextCard = a.RoomCard + 1
			}
		}
	}
}
