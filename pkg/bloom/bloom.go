// Package bloom implements a fixed-size Bloom filter used by the disk index
// to skip blocks that provably do not contain a key.
package bloom

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
)

// Filter is a standard k-hash-function Bloom filter over a bit array, built
// once and then queried read-only - matching how the disk index uses it
// (built during a disk-tier Build, consulted during Get).
type Filter struct {
	bits []uint64
	k    uint32
	m    uint64 // number of bits
}

// New sizes a filter for n expected items at the given false-positive rate.
func New(n int, falsePositiveRate float64) *Filter {
	if n <= 0 {
		n = 1
	}

	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}

	m := optimalBits(n, falsePositiveRate)
	k := optimalHashes(m, n)

	return &Filter{bits: make([]uint64, (m+63)/64), k: k, m: m}
}

func optimalBits(n int, p float64) uint64 {
	m := -float64(n) * math.Log(p) / (math.Ln2 * math.Ln2)
	if m < 64 {
		m = 64
	}

	return uint64(math.Ceil(m))
}

func optimalHashes(m uint64, n int) uint32 {
	k := math.Round(float64(m) / float64(n) * math.Ln2)
	if k < 1 {
		k = 1
	}

	return uint32(k)
}

// Add registers key as present.
func (f *Filter) Add(key []byte) {
	h1, h2 := hashPair(key)

	for i := uint32(0); i < f.k; i++ {
		bit := (h1 + uint64(i)*h2) % f.m
		f.bits[bit/64] |= 1 << (bit % 64)
	}
}

// MayContain reports whether key could be present. A false return is a
// definite no; a true return may be a false positive.
func (f *Filter) MayContain(key []byte) bool {
	h1, h2 := hashPair(key)

	for i := uint32(0); i < f.k; i++ {
		bit := (h1 + uint64(i)*h2) % f.m
		if f.bits[bit/64]&(1<<(bit%64)) == 0 {
			return false
		}
	}

	return true
}

// hashPair derives two 64-bit hashes from two FNV-1a passes (the second
// also hashes one extra byte after the key) for Kirsch-Mitzenmacher double
// hashing, avoiding k separate hash computations per key.
func hashPair(key []byte) (h1, h2 uint64) {
	h := fnv.New64a()
	_, _ = h.Write(key)
	h1 = h.Sum64()

	h = fnv.New64a()
	_, _ = h.Write(key)
	_, _ = h.Write([]byte{0xff})
	h2 = h.Sum64()

	if h2 == 0 {
		h2 = 1
	}

	return h1, h2
}

// Marshal serializes the filter for storage alongside a Z-block run.
func (f *Filter) Marshal() []byte {
	out := make([]byte, 4+8+8*len(f.bits))
	binary.LittleEndian.PutUint32(out[0:4], f.k)
	binary.LittleEndian.PutUint64(out[4:12], f.m)

	for i, w := range f.bits {
		binary.LittleEndian.PutUint64(out[12+8*i:20+8*i], w)
	}

	return out
}

// Unmarshal restores a filter produced by Marshal.
func Unmarshal(data []byte) (*Filter, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("bloom: short filter payload (%d bytes)", len(data))
	}

	k := binary.LittleEndian.Uint32(data[0:4])
	m := binary.LittleEndian.Uint64(data[4:12])

	words := (len(data) - 12) / 8
	if words != int((m+63)/64) {
		return nil, fmt.Errorf("bloom: filter payload size does not match bit count")
	}

	bits := make([]uint64, words)
	for i := range bits {
		bits[i] = binary.LittleEndian.Uint64(data[12+8*i : 20+8*i])
	}

	return &Filter{bits: bits, k: k, m: m}, nil
}
