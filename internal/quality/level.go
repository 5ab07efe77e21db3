// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package quality

import "math"

// MaxLevel is the highest Pyramidal level whose Change Point threshold
// fits in an int. MaxCP is that threshold; CP saturate there.
var (
	MaxLevel = maxTriangularRoot()
	MaxCP    = MaxLevel * (MaxLevel + 1) / 2
)

func maxTriangularRoot() int {
	l := int(math.Sqrt(float64(math.MaxInt)))
	for l > 0 && l > (math.MaxInt-l)/l {
		l--
	}
	return l
}

// LevelForCP returns the Pyramidal level reached with cp Change Points:
// floor((sqrt(8*cp+1)-1)/2). Level L requires the triangular number
// L*(L+1)/2 of CP.
func LevelForCP(cp int) int {
	if cp <= 0 {
		return 0
	}
	if cp >= MaxCP {
		return MaxLevel
	}
	l := int((math.Sqrt(8*float64(cp)+1) - 1) / 2)
	// Correct float rounding at large values.
	for CPForLevel(l+1) <= cp {
		l++
	}
	for l > 0 && CPForLevel(l) > cp {
		l--
	}
	return l
}

// CPForLevel returns the Change Points required to reach level.
func CPForLevel(level int) int {
	if level <= 0 {
		return 0
	}
	if level >= MaxLevel {
		return MaxCP
	}
	return level * (level + 1) / 2
}

// AddCP adds delta Change Points to a Pyramidal quality and recomputes its level.
func (q *Quality) AddCP(delta int) {
	switch {
	case delta > 0 && q.ChangePoints > MaxCP-delta:
		q.ChangePoints = MaxCP
	case q.ChangePoints+delta < 0:
		q.ChangePoints = 0
	default:
		q.ChangePoints += delta
	}
	q.Level = LevelForCP(q.ChangePoints)
}

// SetLevel sets the level directly. Pyramidal qualities re-baseline their
// Change Points to the minimum required for the new level.
func (q *Quality) SetLevel(level int) {
	if q.Type.Unsigned() && level < 0 {
		level = 0
	}
	if q.Type == Pyramidal && level > MaxLevel {
		level = MaxLevel
	}
	q.Level = level
	if q.Type == Pyramidal {
		q.ChangePoints = CPForLevel(level)
	}
}

// CPToNext returns the Change Points still needed for the next Pyramidal level.
func (q *Quality) CPToNext() int {
	return CPForLevel(q.Level+1) - q.ChangePoints
}
