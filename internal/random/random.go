// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package random provides the injectable randomness used by ScribeScript.
//
// Two independent streams exist per evaluation: the Resolution Roll,
// drawn once per player action and shared by every challenge and
// percentage check, and a Source for independent draws (random ranges,
// weighted picks). Both are injectable so tests are reproducible.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
)

// Source produces independent uniform integers.
type Source interface {
	// IntN returns a uniform integer in [0, n). n must be positive.
	IntN(n int) int
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// NewSource returns a deterministic Source for the given seed.
func NewSource(seed int64) Source {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// NewDefaultSource returns a Source seeded from crypto/rand, falling back
// to the runtime's global generator if the system entropy pool fails.
func NewDefaultSource() Source {
	seed, err := NewSeed()
	if err != nil {
		return globalSource{}
	}
	return NewSource(seed)
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Between returns a uniform integer in the inclusive range [lo, hi].
// Reversed bounds are swapped. A range holding more than math.MaxInt
// values is narrowed to the first math.MaxInt values from lo; Fits
// reports when that happens.
func Between(src Source, lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	if !Fits(lo, hi) {
		return lo + src.IntN(math.MaxInt)
	}
	return lo + src.IntN(hi-lo+1)
}

// Fits reports whether Between can draw from all of [lo, hi].
func Fits(lo, hi int) bool {
	if hi < lo {
		lo, hi = hi, lo
	}
	return uint64(hi)-uint64(lo) < math.MaxInt
}

// Roll draws a Resolution Roll in [1, 100].
func Roll(src Source) int {
	return Between(src, 1, 100)
}

// Sequence is a Source that replays fixed values, cycling when exhausted.
// Each value is reduced modulo n. Intended for tests.
type Sequence struct {
	Values []int
	next   int
}

// IntN returns the next value in the sequence modulo n.
func (s *Sequence) IntN(n int) int {
	if len(s.Values) == 0 {
		return 0
	}
	v := s.Values[s.next%len(s.Values)]
	s.next++
	if v < 0 {
		v = -v
	}
	return v % n
}
