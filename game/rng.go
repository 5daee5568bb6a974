package game

import (
	"encoding/binary"

	"lukechampine.com/blake3"
)

// realmRand is the deterministic generator behind initial fragment layouts.
// Seeding from a hash of the realm name means the same realm always boots
// with the same layout across restarts. This is a reproducibility guarantee,
// not a security property — interval spawns use the world's ordinary rng.
type realmRand struct {
	state uint32
}

func newRealmRand(realm string) *realmRand {
	sum := blake3.Sum256([]byte(realm))
	return &realmRand{state: binary.LittleEndian.Uint32(sum[:4])}
}

// next is a 32-bit mix-hash step over a Weyl sequence.
func (r *realmRand) next() uint32 {
	r.state += 0x9E3779B9
	z := r.state
	z ^= z >> 16
	z *= 0x21F0AAAD
	z ^= z >> 15
	z *= 0x735A2D97
	z ^= z >> 15
	return z
}

// Float64 returns a value in [0,1).
func (r *realmRand) Float64() float64 {
	return float64(r.next()) / float64(1<<32)
}

// Range returns a value in [-spread, +spread).
func (r *realmRand) Range(spread float64) float64 {
	return (r.Float64()*2 - 1) * spread
}
