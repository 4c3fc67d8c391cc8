package game

// Outcome is one fully resolved play. ChainCount and Multiplier are reported
// for observability; the payout is the only contractual value.
type Outcome struct {
	Payout     uint64   `json:"payout"`
	ChainCount uint8    `json:"chain_count"`
	Multiplier uint32   `json:"multiplier"` // basis-100, final value
	Symbols    [3]uint8 `json:"symbols"`    // last drawn reels
}

// spinState is the accumulator threaded through the chain loop.
type spinState struct {
	seed       [32]byte
	counter    uint64
	multiplier uint32
	chainCount uint8
	total      uint64
}

// ComputeOutcome resolves a bet vector against a settlement seed. It is pure:
// identical seed, bets and config always produce the identical outcome, which
// is what lets anyone replay a published seed to audit a payout.
func ComputeOutcome(seed [32]byte, bets Bets, cfg *Config) (Outcome, error) {
	st := spinState{seed: seed, multiplier: BASE_MULTIPLIER}
	var last [3]uint8
	for {
		var reels [3]uint8
		for i := 0; i < 3; i++ {
			st.seed = NextSeed(st.seed, st.counter)
			st.counter++
			sym, err := pickSymbol(st.seed, cfg.SymbolWeights)
			if err != nil {
				return Outcome{}, err
			}
			reels[i] = sym
		}
		last = reels

		base, err := spinPayout(bets, reels, cfg)
		if err != nil {
			return Outcome{}, err
		}
		scaled, err := mulDivFloor(base, uint64(st.multiplier), BASE_MULTIPLIER)
		if err != nil {
			return Outcome{}, err
		}
		st.total, err = checkedAdd(st.total, scaled)
		if err != nil {
			return Outcome{}, err
		}

		// The trigger symbol anywhere in the draw is chain-continuation
		// evidence, independent of whether any wagered symbol matched.
		if !containsTrigger(reels) {
			break
		}
		if st.chainCount >= cfg.MaxAutoSpins || st.multiplier >= MAX_CHAIN_MULTIPLIER {
			break
		}
		st.multiplier *= 2
		if st.multiplier > MAX_CHAIN_MULTIPLIER {
			st.multiplier = MAX_CHAIN_MULTIPLIER
		}
		st.chainCount++
	}
	return Outcome{
		Payout:     st.total,
		ChainCount: st.chainCount,
		Multiplier: st.multiplier,
		Symbols:    last,
	}, nil
}

// spinPayout is one draw's base payout: triple matches pay the triple rate,
// double matches the double rate, contribution = floor(bet*rate/100).
func spinPayout(bets Bets, reels [3]uint8, cfg *Config) (uint64, error) {
	var total uint64
	for sym := 0; sym < SYMBOL_COUNT; sym++ {
		bet := bets[sym]
		if bet == 0 {
			continue
		}
		matches := 0
		for _, r := range reels {
			if r == uint8(sym) {
				matches++
			}
		}
		var rate uint16
		switch matches {
		case 3:
			rate = cfg.PayoutTriple[sym]
		case 2:
			rate = cfg.PayoutDouble[sym]
		}
		if rate == 0 {
			continue
		}
		win, err := mulDivFloor(bet, uint64(rate), 100)
		if err != nil {
			return 0, err
		}
		total, err = checkedAdd(total, win)
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}

func containsTrigger(reels [3]uint8) bool {
	for _, r := range reels {
		if r == TRIGGER_SYMBOL {
			return true
		}
	}
	return false
}

// VerifySettledPlay lets a player replay a settled two-phase play from the
// published oracle readings and check the claimed payout.
func VerifySettledPlay(before, after [32]byte, player string, nonce, marker uint64, bets Bets, cfg *Config, claimedPayout uint64) bool {
	seed := DeriveSettleSeed(before, after, player, nonce, marker)
	out, err := ComputeOutcome(seed, bets, cfg)
	if err != nil {
		return false
	}
	return out.Payout == claimedPayout
}
