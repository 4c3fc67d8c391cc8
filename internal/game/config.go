package game

import "time"

const (
	SYMBOL_COUNT   = 6
	TRIGGER_SYMBOL = 5 // the "double" symbol: triggers a chained spin, takes no bets
	WEIGHT_SUM     = 10000

	BASE_MULTIPLIER      = 100  // basis-100 fixed point, 100 = 1.00x
	MAX_CHAIN_MULTIPLIER = 1600 // 16x hard cap for chained spins
)

// Bets is one stake amount per symbol. The trigger symbol slot must stay zero.
type Bets [SYMBOL_COUNT]uint64

// Config is the per-machine rule set. It is validated on every write and
// passed explicitly into each resolution, never read from globals.
type Config struct {
	SymbolWeights [SYMBOL_COUNT]uint16 `json:"symbol_weights"`
	PayoutTriple  [SYMBOL_COUNT]uint16 `json:"payout_triple"`
	PayoutDouble  [SYMBOL_COUNT]uint16 `json:"payout_double"`

	CommissionRate uint8  `json:"commission_rate"` // percent, 0-100
	MaxAutoSpins   uint8  `json:"max_auto_spins"`
	MinBet         uint64 `json:"min_bet"` // 0 disables the per-slot check

	StakeThreshold   uint64        `json:"stake_threshold"`
	SettlementPeriod time.Duration `json:"settlement_period"`
}

// DefaultConfig returns the launch parameters of the production machine.
func DefaultConfig() Config {
	return Config{
		SymbolWeights:    [SYMBOL_COUNT]uint16{2500, 2500, 250, 1600, 2150, 1000},
		PayoutTriple:     [SYMBOL_COUNT]uint16{220, 180, 2000, 360, 450, 0},
		PayoutDouble:     [SYMBOL_COUNT]uint16{65, 50, 100, 75, 85, 0},
		CommissionRate:   10,
		MaxAutoSpins:     5,
		MinBet:           100,
		StakeThreshold:   1_000_000,
		SettlementPeriod: 24 * time.Hour,
	}
}

// Validate checks every invariant the machine relies on.
func (c Config) Validate() error {
	var sum uint32
	for _, w := range c.SymbolWeights {
		if w == 0 {
			return ErrInvalidSymbolWeights
		}
		sum += uint32(w)
	}
	if sum != WEIGHT_SUM {
		return ErrInvalidSymbolWeights
	}
	if c.CommissionRate > 100 {
		return ErrInvalidCommissionRate
	}
	if c.MaxAutoSpins == 0 {
		return ErrInvalidMaxAutoSpins
	}
	if c.MinBet == 0 {
		return ErrInvalidAmount
	}
	return nil
}

// validateBets enforces the bet vector contract: no stake on the trigger
// symbol, a positive total, and every non-zero slot at or above minBet.
func validateBets(bets Bets, minBet uint64) error {
	if bets[TRIGGER_SYMBOL] != 0 {
		return ErrInvalidBetTable
	}
	total, err := betsTotal(bets)
	if err != nil {
		return err
	}
	if total == 0 {
		return ErrInvalidAmount
	}
	if minBet > 0 {
		for i := 0; i < TRIGGER_SYMBOL; i++ {
			if bets[i] > 0 && bets[i] < minBet {
				return ErrBetBelowMinimum
			}
		}
	}
	return nil
}

func betsTotal(bets Bets) (uint64, error) {
	var total uint64
	var err error
	for _, b := range bets {
		total, err = checkedAdd(total, b)
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
