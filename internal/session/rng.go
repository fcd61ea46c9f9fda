package session

import "hash/fnv"

// SeedFromKey derives a 32-bit seed from a sequencing key. FNV-1a is pure,
// sensitive to every character and to string length, and stable across
// platforms, which is all the reproducibility guarantee requires of it.
func SeedFromKey(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32()
}

// mulberry32 is a deterministic 32-bit stream generator with a full 2^32
// period. Two sessions created with the same key must replay the identical
// draw sequence, so the state transition below is fixed and must not change.
type mulberry32 struct {
	state uint32
}

func newMulberry32(seed uint32) *mulberry32 {
	return &mulberry32{state: seed}
}

// Float64 returns the next draw, uniform in [0, 1).
func (m *mulberry32) Float64() float64 {
	m.state += 0x6D2B79F5
	z := m.state
	z = (z ^ (z >> 15)) * (z | 1)
	z ^= z + (z^(z>>7))*(z|61)
	z ^= z >> 14
	return float64(z) / (1 << 32)
}
