// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the dynamic type of a Value.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
)

// Value is the result of evaluating an expression: a string, a number or
// a boolean.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

// Str returns a string value.
func Str(s string) Value { return Value{kind: KindString, str: s} }

// Num returns a numeric value.
func Num(n float64) Value { return Value{kind: KindNumber, num: n} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the value's dynamic type.
func (v Value) Kind() Kind { return v.kind }

// String renders the value as text. Whole numbers print without a
// fractional part.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return formatNumber(v.num)
	case KindBool:
		return strconv.FormatBool(v.b)
	}
	return v.str
}

// Number coerces the value to a number. Strings are parsed after
// trimming; the empty string is zero. ok is false when a non-empty
// string does not parse.
func (v Value) Number() (n float64, ok bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	}
	s := strings.TrimSpace(v.str)
	if s == "" {
		return 0, true
	}
	switch s {
	case "true":
		return 1, true
	case "false":
		return 0, true
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) {
		return 0, false
	}
	return n, true
}

// Truthy reports the value's truthiness: numbers are true when non-zero,
// strings when non-empty and not "false" or "0".
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num != 0
	}
	switch strings.TrimSpace(v.str) {
	case "", "false", "0":
		return false
	}
	return true
}

// Equal compares two values numerically when both are numeric and as
// text otherwise.
func (v Value) Equal(o Value) bool {
	if v.kind == KindBool || o.kind == KindBool {
		return v.Truthy() == o.Truthy()
	}
	a, aok := v.Number()
	b, bok := o.Number()
	if aok && bok && (v.kind == KindNumber || o.kind == KindNumber || strings.TrimSpace(v.str) != "" && strings.TrimSpace(o.str) != "") {
		return a == b
	}
	return v.String() == o.String()
}

func formatNumber(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}
