// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"math"
	"strings"

	"nickandperla.net/scribescript/internal/challenge"
	"nickandperla.net/scribescript/internal/diag"
	"nickandperla.net/scribescript/internal/expr"
	"nickandperla.net/scribescript/internal/mutation"
	"nickandperla.net/scribescript/internal/parser"
	"nickandperla.net/scribescript/internal/random"
	"nickandperla.net/scribescript/internal/token"
)

// Text renders a prose field. A malformed field renders as its literal
// source.
func (e *Evaluator) Text(c *Context, src string) string {
	p := parser.New()
	t, err := p.Template(src)
	c.warnAll(p.Warnings)
	if err != nil {
		c.Warn(asDiag(diag.ParseError, src, err))
		return src
	}
	return e.Eval(c, t).String()
}

// Condition evaluates a visibility/unlock condition. An empty condition
// is true; a malformed one is false.
func (e *Evaluator) Condition(c *Context, src string) bool {
	if strings.TrimSpace(src) == "" {
		return true
	}
	p := parser.New()
	n, err := p.Condition(src)
	c.warnAll(p.Warnings)
	if err != nil {
		c.Warn(asDiag(diag.ParseError, src, err))
		return false
	}
	return e.Eval(c, n).Truthy()
}

// Logic evaluates a logic field. ok is false when it does not parse.
func (e *Evaluator) Logic(c *Context, src string) (Value, bool) {
	p := parser.New()
	n, err := p.Logic(src)
	c.warnAll(p.Warnings)
	if err != nil {
		c.Warn(asDiag(diag.ParseError, src, err))
		return Str(""), false
	}
	return e.Eval(c, n), true
}

// ChallengeResult is the outcome of a challenge field.
type ChallengeResult struct {
	Success bool
	Chance  float64
	Roll    int
}

// Challenge evaluates a challenge field against the context's roll.
// A field that is not a challenge is read as a flat chance when it
// evaluates to a number, and as a zero chance otherwise.
func (e *Evaluator) Challenge(c *Context, src string) ChallengeResult {
	chance := e.ChanceOf(c, src)
	roll := c.Roll()
	return ChallengeResult{Success: challenge.Succeeds(roll, chance), Chance: chance, Roll: roll}
}

// ChanceOf computes the success chance of a challenge field without
// consuming the roll.
func (e *Evaluator) ChanceOf(c *Context, src string) float64 {
	p := parser.New()
	ch, err := p.Challenge(src)
	c.warnAll(p.Warnings)
	if err == nil {
		return e.chance(c, ch)
	}
	c.Warn(asDiag(diag.InvalidChallengeSyntax, src, err))
	v, ok := e.Logic(c, src)
	if !ok {
		return 0
	}
	if n, ok := v.Number(); ok && v.Kind() != KindBool {
		return math.Max(0, math.Min(100, n))
	}
	return 0
}

// Eval evaluates a syntax tree node.
func (e *Evaluator) Eval(c *Context, n expr.Expr) Value {
	switch n := n.(type) {
	case nil, expr.Empty:
		return Str("")
	case expr.Text:
		return Str(n.Value)
	case expr.Template:
		var sb strings.Builder
		for _, part := range n.Parts {
			sb.WriteString(e.Eval(c, part).String())
		}
		return Str(sb.String())
	case expr.Block:
		return e.evalChain(c, n.Chain)
	case expr.Reparse:
		return e.evalReparse(c, n)
	case expr.Number:
		return Num(n.Value)
	case expr.String:
		return Str(n.Value)
	case expr.Bool:
		return Bool(n.Value)
	case expr.Ref:
		return e.evalRef(c, n)
	case expr.Macro:
		return e.evalMacro(c, n)
	case expr.Unary:
		return e.evalUnary(c, n)
	case expr.Binary:
		return e.evalBinary(c, n)
	case expr.Percent:
		return Bool(c.Roll() <= mutation.ClampInt(math.Floor(e.number(c, e.Eval(c, n.X), n.String()))))
	case expr.Range:
		lo := mutation.ClampInt(math.Round(e.number(c, e.Eval(c, n.Lo), n.String())))
		hi := mutation.ClampInt(math.Round(e.number(c, e.Eval(c, n.Hi), n.String())))
		if !random.Fits(lo, hi) {
			c.Warn(diag.New(diag.TypeMismatch, n.String(), "range too wide, drawing from its lower part"))
		}
		return Num(float64(random.Between(e.rng, lo, hi)))
	case expr.Challenge:
		return Bool(challenge.Succeeds(c.Roll(), e.chance(c, n)))
	case expr.AliasAssign:
		c.SetAlias(n.Name, e.Eval(c, n.Value))
		return Str("")
	case expr.Mutate:
		if !c.effect {
			c.Warn(diag.New(diag.ParseError, n.String(), "mutation outside an effect"))
			return Str("")
		}
		e.applyMutate(c, n)
		return Str("")
	case expr.Effect:
		e.applyEffect(c, n)
		return Str("")
	}
	c.Warn(diag.Newf(diag.ParseError, n.String(), "cannot evaluate %T", n))
	return Str("")
}

// selectClause picks the clause a chain resolves to. Conditional chains
// take the first clause whose condition holds, or an unconditioned
// clause reached in order. Chains without any condition choose one
// clause uniformly at random.
func (e *Evaluator) selectClause(c *Context, ch expr.Chain) (expr.Clause, bool) {
	switch {
	case len(ch.Clauses) == 0:
		return expr.Clause{}, false
	case !ch.Conditional():
		if len(ch.Clauses) == 1 {
			return ch.Clauses[0], true
		}
		return ch.Clauses[e.rng.IntN(len(ch.Clauses))], true
	}
	for _, cl := range ch.Clauses {
		if cl.Cond == nil || e.Eval(c, cl.Cond).Truthy() {
			return cl, true
		}
	}
	return expr.Clause{}, false
}

func (e *Evaluator) evalChain(c *Context, ch expr.Chain) Value {
	cl, ok := e.selectClause(c, ch)
	if !ok {
		return Str("")
	}
	v := e.Eval(c, cl.Body)
	if v.Kind() == KindString {
		return Str(strings.TrimSpace(v.String()))
	}
	return v
}

func (e *Evaluator) evalReparse(c *Context, n expr.Reparse) Value {
	src := e.evalChain(c, n.Inner.Chain).String()
	if c.Depth >= e.recursionLimit {
		c.Warn(diag.New(diag.RecursionLimitExceeded, src, "re-parse depth exceeded"))
		return Str(src)
	}
	c.Depth++
	defer func() { c.Depth-- }()
	v, ok := e.Logic(c, src)
	if !ok {
		return Str(src)
	}
	return v
}

func (e *Evaluator) evalUnary(c *Context, n expr.Unary) Value {
	v := e.Eval(c, n.X)
	if n.Op == token.NOT {
		return Bool(!v.Truthy())
	}
	return Num(-e.number(c, v, n.String()))
}

func (e *Evaluator) evalBinary(c *Context, n expr.Binary) Value {
	switch n.Op {
	case token.AND:
		return Bool(e.Eval(c, n.X).Truthy() && e.Eval(c, n.Y).Truthy())
	case token.OR:
		return Bool(e.Eval(c, n.X).Truthy() || e.Eval(c, n.Y).Truthy())
	}

	x, y := e.Eval(c, n.X), e.Eval(c, n.Y)
	switch n.Op {
	case token.EQ:
		return Bool(x.Equal(y))
	case token.NE:
		return Bool(!x.Equal(y))
	}

	a, b := e.number(c, x, n.String()), e.number(c, y, n.String())
	switch n.Op {
	case token.GT:
		return Bool(a > b)
	case token.LT:
		return Bool(a < b)
	case token.GE:
		return Bool(a >= b)
	case token.LE:
		return Bool(a <= b)
	case token.PLUS:
		return Num(a + b)
	case token.MINUS:
		return Num(a - b)
	case token.STAR:
		return Num(a * b)
	case token.SLASH:
		if b == 0 {
			c.Warn(diag.New(diag.TypeMismatch, n.String(), "division by zero"))
			return Num(0)
		}
		return Num(a / b)
	}
	c.Warn(diag.Newf(diag.ParseError, n.String(), "unsupported operator %s", n.Op))
	return Str("")
}

// chance computes a challenge's success chance. $luck as the stat is a
// flat chance and ignores modifiers.
func (e *Evaluator) chance(c *Context, ch expr.Challenge) float64 {
	target := e.number(c, e.Eval(c, ch.Target), ch.String())
	if ref, ok := ch.Stat.(expr.Ref); ok && ref.Sigil == token.VAR && ref.Name == token.Luck && !ref.HasArg && ref.Prop == "" {
		return challenge.Luck(ch.Op, target)
	}
	stat := e.number(c, e.Eval(c, ch.Stat), ch.String())

	var mods challenge.Modifiers
	for i, m := range ch.Mods.Positional {
		mods.Set(i, e.number(c, e.Eval(c, m), ch.String()))
	}
	for _, m := range ch.Mods.Named {
		mods.SetNamed(m.Key, e.number(c, e.Eval(c, m.Value), ch.String()))
	}
	return challenge.Chance(ch.Op, stat, target, mods.Resolve(target))
}

// number coerces v, warning when a non-numeric string is read as 0.
func (e *Evaluator) number(c *Context, v Value, field string) float64 {
	n, ok := v.Number()
	if !ok {
		c.Warn(diag.Newf(diag.TypeMismatch, field, "%q is not a number", v.String()))
	}
	return n
}

// fragment parses and evaluates raw logic such as a macro argument.
func (e *Evaluator) fragment(c *Context, raw string) Value {
	v, _ := e.Logic(c, raw)
	return v
}

func asDiag(code diag.Code, field string, err error) *diag.Error {
	if d, ok := err.(*diag.Error); ok {
		return d
	}
	return diag.Wrap(code, field, "evaluation failed", err)
}
