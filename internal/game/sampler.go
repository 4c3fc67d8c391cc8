package game

import "encoding/binary"

// pickSymbol maps the first 16 bits of a chained seed onto the weight table.
// Linear weighted walk: deterministic and auditable from the seed alone.
func pickSymbol(seed [32]byte, weights [SYMBOL_COUNT]uint16) (uint8, error) {
	var sum uint32
	for _, w := range weights {
		sum += uint32(w)
	}
	if sum == 0 {
		return 0, ErrInvalidSymbolWeights
	}
	r := uint32(binary.LittleEndian.Uint16(seed[:2])) % sum
	for i, w := range weights {
		if r < uint32(w) {
			return uint8(i), nil
		}
		r -= uint32(w)
	}
	// Unreachable once r < sum, kept as a guard against reduction edge cases.
	return SYMBOL_COUNT - 1, nil
}
