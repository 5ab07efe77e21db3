// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package mutation defines the records produced by effect application and
// the per-type semantics of the mutation operators.
package mutation

import (
	"fmt"
	"math"
	"strconv"

	"nickandperla.net/scribescript/internal/diag"
	"nickandperla.net/scribescript/internal/quality"
	"nickandperla.net/scribescript/internal/token"
)

// Op is a mutation operator.
type Op int

const (
	Set Op = iota // =
	Add           // +=
	Sub           // -=
	Mul           // *=
	Inc           // ++
	Dec           // --

	// Consume records a .source read in effect context: the latest source
	// entry was removed and the level kept.
	Consume
)

var opText = [...]string{Set: "=", Add: "+=", Sub: "-=", Mul: "*=", Inc: "++", Dec: "--", Consume: ".source"}

// String returns the operator's source form.
func (o Op) String() string {
	if int(o) < len(opText) {
		return opText[o]
	}
	return "?"
}

// ParseOp parses an operator's source form.
func ParseOp(s string) (Op, bool) {
	for i, t := range opText {
		if t == s {
			return Op(i), true
		}
	}
	return Set, false
}

// FromToken maps an assignment token to its operator.
func FromToken(t token.Token) (Op, bool) {
	switch t {
	case token.ASSIGN:
		return Set, true
	case token.ADD_ASSIGN:
		return Add, true
	case token.SUB_ASSIGN:
		return Sub, true
	case token.MUL_ASSIGN:
		return Mul, true
	case token.INC:
		return Inc, true
	case token.DEC:
		return Dec, true
	}
	return Set, false
}

// MarshalText implements encoding.TextMarshaler.
func (o Op) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Op) UnmarshalText(b []byte) error {
	op, ok := ParseOp(string(b))
	if !ok {
		return fmt.Errorf("unknown mutation operator %q", b)
	}
	*o = op
	return nil
}

// Operand is the evaluated right-hand side of a mutation.
type Operand struct {
	Number float64
	Text   string
}

// NumberOperand returns an operand for a numeric value.
func NumberOperand(n float64) Operand {
	return Operand{Number: n, Text: strconv.FormatFloat(n, 'f', -1, 64)}
}

// StateMutation records one applied change, in application order.
type StateMutation struct {
	QualityID string           `json:"qualityId"`
	Op        Op               `json:"op"`
	Value     string           `json:"value,omitempty"`
	Tag       string           `json:"tag,omitempty"`
	Before    quality.Snapshot `json:"before"`
	After     quality.Snapshot `json:"after"`
	Sources   []quality.Source `json:"sources,omitempty"` // Source list after the change
}

// ConsumeSource removes q's most recent source entry and returns the
// record. ok is false when q has no sources.
func ConsumeSource(q *quality.Quality) (m StateMutation, tag string, ok bool) {
	before := q.Snapshot()
	tag, ok = q.ConsumeLatestSource()
	if !ok {
		return StateMutation{}, "", false
	}
	m = StateMutation{QualityID: q.ID, Op: Consume, Value: tag, Tag: tag, Before: before, After: q.Snapshot()}
	if len(q.Sources) > 0 {
		m.Sources = append([]quality.Source(nil), q.Sources...)
	}
	return m, tag, true
}

// Apply applies op to q and returns the mutation record. A mutation that
// does not apply to the quality's type is skipped with a TypeMismatch
// diagnostic and no record.
func Apply(q *quality.Quality, op Op, v Operand, tag string) (StateMutation, *diag.Error) {
	m := StateMutation{QualityID: q.ID, Op: op, Tag: tag, Before: q.Snapshot()}
	switch {
	case q.Type == quality.String:
		if op != Set {
			return StateMutation{}, diag.Newf(diag.TypeMismatch, q.ID, "operator %s does not apply to string quality %q", op, q.ID)
		}
		q.StringValue = v.Text
		m.Value = v.Text
	case q.Type == quality.Pyramidal:
		applyPyramidal(q, op, v.Number)
		m.Value = v.Text
	default:
		applyLevel(q, op, v.Number, tag)
		m.Value = v.Text
	}
	if op == Inc || op == Dec {
		m.Value = ""
	}
	m.After = q.Snapshot()
	if len(q.Sources) > 0 {
		m.Sources = append([]quality.Source(nil), q.Sources...)
	}
	return m, nil
}

func applyPyramidal(q *quality.Quality, op Op, n float64) {
	switch op {
	case Set:
		q.SetLevel(toInt(n))
	case Add:
		q.AddCP(toInt(n))
	case Sub:
		q.AddCP(-toInt(n))
	case Inc:
		q.AddCP(1)
	case Dec:
		q.AddCP(-1)
	case Mul:
		q.SetLevel(ClampInt(math.Floor(float64(q.Level) * n)))
	}
}

func applyLevel(q *quality.Quality, op Op, n float64, tag string) {
	switch op {
	case Set:
		setLevel(q, toInt(n), tag)
	case Add:
		addLevel(q, toInt(n), tag)
	case Sub:
		addLevel(q, -toInt(n), tag)
	case Inc:
		addLevel(q, 1, tag)
	case Dec:
		addLevel(q, -1, tag)
	case Mul:
		setLevel(q, ClampInt(math.Floor(float64(q.Level)*n)), tag)
	}
}

func addLevel(q *quality.Quality, n int, tag string) {
	switch {
	case n > 0:
		q.AddSourced(tag, n)
	case n < 0:
		q.Spend(-n, tag)
	}
}

// setLevel moves the level to n, spending through the sources when it
// decreases so their totals stay consistent.
func setLevel(q *quality.Quality, n int, tag string) {
	if n < q.Level {
		q.Spend(q.Level-n, tag)
	}
	q.SetLevel(n)
}

func toInt(f float64) int {
	return ClampInt(math.Round(f))
}

// ClampInt converts f to an int, saturating at ±math.MaxInt. NaN is 0.
func ClampInt(f float64) int {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt:
		return math.MaxInt
	case f <= -math.MaxInt:
		return -math.MaxInt
	}
	return int(f)
}
