// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"strings"

	"nickandperla.net/scribescript/internal/diag"
	"nickandperla.net/scribescript/internal/expr"
	"nickandperla.net/scribescript/internal/mutation"
	"nickandperla.net/scribescript/internal/parser"
	"nickandperla.net/scribescript/internal/quality"
	"nickandperla.net/scribescript/internal/token"
)

// EffectResult collects what an effect field did, in order.
type EffectResult struct {
	Mutations []mutation.StateMutation
	Scheduled []mutation.PendingEvent
	Cancelled []mutation.Cancellation
}

// Effect applies an effect field to the context's state, statement by
// statement, left to right. A malformed field applies nothing.
func (e *Evaluator) Effect(c *Context, src string) EffectResult {
	start := len(c.out.Mutations)
	startSched, startCancel := len(c.out.Scheduled), len(c.out.Cancelled)

	p := parser.New()
	eff, err := p.Effect(src)
	c.warnAll(p.Warnings)
	if err != nil {
		c.Warn(asDiag(diag.ParseError, src, err))
		return EffectResult{}
	}
	e.applyEffect(c, eff)

	return EffectResult{
		Mutations: c.out.Mutations[start:],
		Scheduled: c.out.Scheduled[startSched:],
		Cancelled: c.out.Cancelled[startCancel:],
	}
}

func (e *Evaluator) applyEffect(c *Context, eff expr.Effect) {
	prev := c.effect
	c.effect = true
	defer func() { c.effect = prev }()
	for _, stmt := range eff.Stmts {
		e.applyStatement(c, stmt)
	}
}

func (e *Evaluator) applyStatement(c *Context, stmt expr.Expr) {
	switch n := stmt.(type) {
	case expr.Mutate:
		e.applyMutate(c, n)
	case expr.Block:
		cl, ok := e.selectClause(c, n.Chain)
		if ok {
			e.applyNested(c, cl.BodyRaw)
		}
	case expr.Reparse:
		e.applyNested(c, e.evalChain(c, n.Inner.Chain).String())
	default:
		e.Eval(c, stmt)
	}
}

// applyNested applies a branch's text as an effect one level deeper.
func (e *Evaluator) applyNested(c *Context, src string) {
	if strings.TrimSpace(src) == "" {
		return
	}
	if c.Depth >= e.recursionLimit {
		c.Warn(diag.New(diag.RecursionLimitExceeded, src, "nested effect too deep"))
		return
	}
	c.Depth++
	defer func() { c.Depth-- }()
	e.Effect(c, src)
}

func (e *Evaluator) applyMutate(c *Context, m expr.Mutate) {
	op, ok := mutation.FromToken(m.Op)
	if !ok {
		c.Warn(diag.Newf(diag.ParseError, m.String(), "unknown operator %s", m.Op))
		return
	}
	if m.Target.Sigil == token.WORLD {
		c.Warn(diag.Newf(diag.TypeMismatch, m.String(), "world quality #%s is read-only", m.Target.Name))
		return
	}

	var operand mutation.Operand
	if m.Value != nil {
		operand = toOperand(e.Eval(c, m.Value))
	}

	if m.Target.Name == token.All && m.Target.HasArg {
		e.applyBatch(c, strings.TrimSpace(e.Text(c, m.Target.Arg)), op, operand, m.String())
		return
	}

	id := m.Target.Name
	if id == token.Self {
		if c.Self == nil {
			c.Warn(diag.New(diag.UnknownIdentifier, m.String(), "$self has no quality in this context"))
			return
		}
		id = c.Self.ID
	}

	tag := ""
	if m.Target.HasArg {
		arg := strings.TrimSpace(e.Text(c, m.Target.Arg))
		t, ok := strings.CutPrefix(arg, sourceArg)
		if !ok {
			c.Warn(diag.Newf(diag.ParseError, m.String(), "unsupported argument %q", arg))
			return
		}
		tag = strings.TrimSpace(t)
	}

	q := c.State.Ensure(id, e.typeFor(id, op, operand))
	if q.Type.IsNumeric() {
		if !isNumeric(operand) {
			c.Warn(diag.Newf(diag.TypeMismatch, m.String(), "%q is not a number", operand.Text))
		}
	}
	e.record(c, q, op, operand, tag)
}

// applyBatch applies op to every held quality whose definition lists
// category.
func (e *Evaluator) applyBatch(c *Context, category string, op mutation.Op, v mutation.Operand, field string) {
	if category == "" {
		c.Warn(diag.New(diag.ParseError, field, "$all needs a category"))
		return
	}
	for _, id := range c.State.IDs() {
		def, ok := e.registry.Lookup(id)
		if !ok || !def.InCategory(category) {
			continue
		}
		q, _ := c.State.Get(id)
		e.record(c, q, op, v, "")
	}
}

func (e *Evaluator) record(c *Context, q *quality.Quality, op mutation.Op, v mutation.Operand, tag string) {
	m, warn := mutation.Apply(q, op, v, tag)
	if warn != nil {
		c.Warn(warn)
		return
	}
	c.out.Mutations = append(c.out.Mutations, m)
}

// typeFor picks the type of a quality created by a mutation: its
// definition's type, String for a text assignment, Counter otherwise.
func (e *Evaluator) typeFor(id string, op mutation.Op, v mutation.Operand) quality.Type {
	if def, ok := e.registry.Lookup(id); ok {
		return def.Type
	}
	if !isNumeric(v) && op == mutation.Set {
		return quality.String
	}
	return quality.Counter
}

func toOperand(v Value) mutation.Operand {
	n, _ := v.Number()
	return mutation.Operand{Number: n, Text: v.String()}
}

func isNumeric(v mutation.Operand) bool {
	_, ok := Str(v.Text).Number()
	return ok
}
