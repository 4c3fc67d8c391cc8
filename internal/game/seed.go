package game

import (
	"crypto/sha256"
	"encoding/binary"
)

// Domain separation tags. Request-time and settlement-time seeds are unrelated
// except through the shared entropy and nonce; the chain tag keeps in-play
// draws from colliding with either.
const (
	seedTagPlay   = "SLOT_PLAY"
	seedTagSettle = "SLOT_SETTLE"
	seedTagChain  = "SLOT_RNG"
)

// DerivePlaySeed folds one oracle reading with the caller identity, the play
// nonce and a point-in-time marker into a 32-byte seed for immediate plays.
func DerivePlaySeed(entropy [32]byte, player string, nonce, marker uint64) [32]byte {
	h := sha256.New()
	h.Write([]byte(seedTagPlay))
	h.Write(entropy[:])
	h.Write([]byte(player))
	h.Write(le64(nonce))
	h.Write(le64(marker))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// DeriveSettleSeed additionally folds in the second oracle reading observed at
// settlement time, so the seed is unpredictable at request time.
func DeriveSettleSeed(before, after [32]byte, player string, nonce, marker uint64) [32]byte {
	h := sha256.New()
	h.Write([]byte(seedTagSettle))
	h.Write(before[:])
	h.Write(after[:])
	h.Write([]byte(player))
	h.Write(le64(nonce))
	h.Write(le64(marker))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// NextSeed advances the draw chain. Successive pseudo-random values within one
// resolved play come from this, never from fresh oracle entropy.
func NextSeed(seed [32]byte, counter uint64) [32]byte {
	h := sha256.New()
	h.Write([]byte(seedTagChain))
	h.Write(seed[:])
	h.Write(le64(counter))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func le64(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}
