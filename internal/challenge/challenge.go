// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package challenge implements the probability curves behind ScribeScript
// skill checks.
//
// # Curve
//
// For the "higher is better" operator (>>), with lo = target - margin and
// hi = target + margin:
//
//	stat <= lo       → min
//	stat >= hi       → max
//	stat == target   → pivot
//	stat <  target   → lerp(min, pivot, (stat-lo)/(target-lo))
//	otherwise        → lerp(pivot, max, (stat-target)/(hi-target))
//
// The "lower is better" operator (<<) mirrors the stat axis around the
// target. Precision (><) and avoidance (<>) use a symmetric-distance
// curve. Results are clamped to [0, 100].
//
// # Resolution
//
// Chances are tested against the shared Resolution Roll: a check
// succeeds iff roll <= chance.
package challenge

import "math"

// Op is a challenge operator.
type Op int

const (
	Higher    Op = iota // >> higher stat is better
	Lower               // << lower stat is better
	Precision           // >< closer to target is better
	Avoidance           // <> farther from target is better
)

// String returns the operator's source form.
func (o Op) String() string {
	switch o {
	case Higher:
		return ">>"
	case Lower:
		return "<<"
	case Precision:
		return "><"
	case Avoidance:
		return "<>"
	}
	return "?"
}

// ParseOp parses a challenge operator. In challenge fields the ordinary
// comparisons read as their directional equivalents: >= and > as >>,
// <= and < as <<.
func ParseOp(s string) (Op, bool) {
	switch s {
	case ">>", ">=", ">":
		return Higher, true
	case "<<", "<=", "<":
		return Lower, true
	case "><":
		return Precision, true
	case "<>":
		return Avoidance, true
	}
	return Higher, false
}

// Default curve parameters.
const (
	DefaultMin   = 0
	DefaultMax   = 100
	DefaultPivot = 60
)

// Params shapes the piecewise-linear curve.
type Params struct {
	Margin float64
	Min    float64
	Max    float64
	Pivot  float64
}

// DefaultParams returns the defaults for target: margin equals the
// target, so the chance runs from 0% at stat 0 to 100% at twice the target.
func DefaultParams(target float64) Params {
	return Params{Margin: target, Min: DefaultMin, Max: DefaultMax, Pivot: DefaultPivot}
}

// Modifier slots in positional order.
const (
	SlotMargin = iota
	SlotMin
	SlotMax
	SlotPivot
	numSlots
)

var slotNames = [numSlots]string{"margin", "min", "max", "pivot"}

// SlotByName returns the slot for a named modifier key.
func SlotByName(name string) (int, bool) {
	for i, n := range slotNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// Modifiers holds explicitly supplied parameters; unset slots take defaults.
type Modifiers struct {
	set    [numSlots]bool
	values [numSlots]float64
}

// Set assigns a slot value.
func (m *Modifiers) Set(slot int, v float64) {
	if slot < 0 || slot >= numSlots {
		return
	}
	m.set[slot] = true
	m.values[slot] = v
}

// SetNamed assigns a slot by key name, reporting whether the key is known.
func (m *Modifiers) SetNamed(name string, v float64) bool {
	slot, ok := SlotByName(name)
	if ok {
		m.Set(slot, v)
	}
	return ok
}

// Resolve fills unset slots with the defaults for target.
func (m Modifiers) Resolve(target float64) Params {
	p := DefaultParams(target)
	dst := [numSlots]*float64{&p.Margin, &p.Min, &p.Max, &p.Pivot}
	for i := range dst {
		if m.set[i] {
			*dst[i] = m.values[i]
		}
	}
	return p
}

// Chance computes the success chance (0–100) for stat against target.
func Chance(op Op, stat, target float64, p Params) float64 {
	var c float64
	switch op {
	case Lower:
		c = higher(2*target-stat, target, p)
	case Precision:
		c = distance(math.Abs(stat-target), p.Margin, p.Max, p.Min)
	case Avoidance:
		c = distance(math.Abs(stat-target), p.Margin, p.Min, p.Max)
	default:
		c = higher(stat, target, p)
	}
	return clamp(c)
}

func higher(stat, target float64, p Params) float64 {
	lo := target - p.Margin
	hi := target + p.Margin
	switch {
	case stat <= lo:
		return p.Min
	case stat >= hi:
		return p.Max
	case stat == target:
		return p.Pivot
	case stat < target:
		return lerp(p.Min, p.Pivot, (stat-lo)/(target-lo))
	default:
		return lerp(p.Pivot, p.Max, (stat-target)/(hi-target))
	}
}

// distance interpolates from atZero (d == 0) to atMargin (d >= margin).
func distance(d, margin, atZero, atMargin float64) float64 {
	if d <= 0 {
		return atZero
	}
	if margin <= 0 || d >= margin {
		return atMargin
	}
	return lerp(atZero, atMargin, d/margin)
}

// Luck returns the flat chance for a $luck check. Modifiers are ignored:
// lower-is-better against N is an N% chance, higher-is-better is (101-N)%.
func Luck(op Op, target float64) float64 {
	if op == Lower {
		return clamp(target)
	}
	return clamp(101 - target)
}

// Succeeds reports whether roll passes a check with the given chance.
func Succeeds(roll int, chance float64) bool {
	return float64(roll) <= chance
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	return math.Max(0, math.Min(100, c))
}
