package game

import (
	"math"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig() does not validate: %v", err)
	}

	var sum uint32
	for _, w := range cfg.SymbolWeights {
		sum += uint32(w)
	}
	if sum != WEIGHT_SUM {
		t.Errorf("default weights sum to %d, want %d", sum, WEIGHT_SUM)
	}

	if cfg.PayoutTriple[TRIGGER_SYMBOL] != 0 || cfg.PayoutDouble[TRIGGER_SYMBOL] != 0 {
		t.Error("trigger symbol must not carry payout rates")
	}
}

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"Valid default", func(c *Config) {}, nil},
		{"Zero weight", func(c *Config) {
			c.SymbolWeights[2] = 0
			c.SymbolWeights[0] += 250
		}, ErrInvalidSymbolWeights},
		{"Weights sum too low", func(c *Config) { c.SymbolWeights[0] = 2499 }, ErrInvalidSymbolWeights},
		{"Weights sum too high", func(c *Config) { c.SymbolWeights[0] = 2501 }, ErrInvalidSymbolWeights},
		{"Commission rate over 100", func(c *Config) { c.CommissionRate = 101 }, ErrInvalidCommissionRate},
		{"Commission rate at 100", func(c *Config) { c.CommissionRate = 100 }, nil},
		{"Zero max auto spins", func(c *Config) { c.MaxAutoSpins = 0 }, ErrInvalidMaxAutoSpins},
		{"Zero min bet", func(c *Config) { c.MinBet = 0 }, ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if err := cfg.Validate(); err != tt.wantErr {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateBets(t *testing.T) {
	tests := []struct {
		name    string
		bets    Bets
		minBet  uint64
		wantErr error
	}{
		{"Valid single bet", Bets{1000, 0, 0, 0, 0, 0}, 100, nil},
		{"Valid spread", Bets{100, 100, 100, 100, 100, 0}, 100, nil},
		{"Bet on trigger symbol", Bets{0, 0, 0, 0, 0, 500}, 100, ErrInvalidBetTable},
		{"Empty bet table", Bets{}, 100, ErrInvalidAmount},
		{"Below minimum", Bets{99, 0, 0, 0, 0, 0}, 100, ErrBetBelowMinimum},
		{"One slot below minimum", Bets{1000, 99, 0, 0, 0, 0}, 100, ErrBetBelowMinimum},
		{"Minimum disabled", Bets{1, 0, 0, 0, 0, 0}, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validateBets(tt.bets, tt.minBet); err != tt.wantErr {
				t.Errorf("validateBets() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBetsTotal_Overflow(t *testing.T) {
	bets := Bets{math.MaxUint64, 1, 0, 0, 0, 0}
	if _, err := betsTotal(bets); err != ErrMathOverflow {
		t.Errorf("betsTotal() error = %v, want %v", err, ErrMathOverflow)
	}
}
