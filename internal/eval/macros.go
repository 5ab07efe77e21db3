// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"nickandperla.net/scribescript/internal/diag"
	"nickandperla.net/scribescript/internal/expr"
	"nickandperla.net/scribescript/internal/mutation"
	"nickandperla.net/scribescript/internal/parser"
	"nickandperla.net/scribescript/internal/quality"
	"nickandperla.net/scribescript/internal/scanner"
	"nickandperla.net/scribescript/internal/token"
)

// MacroFunc is the signature for %macro handlers.
type MacroFunc func(e *Evaluator, c *Context, args expr.Args) Value

// builtinMacros returns the default macro table.
func builtinMacros() map[string]MacroFunc {
	return map[string]MacroFunc{
		"pick":     macroPick,
		"chance":   macroChance,
		"random":   macroRandom,
		"schedule": macroSchedule,
		"cancel":   macroCancel,
		"min":      macroMin,
		"max":      macroMax,
		"round":    macroRound,
		"count":    macroCount,
	}
}

func (e *Evaluator) evalMacro(c *Context, m expr.Macro) Value {
	fn, ok := e.macros[m.Name]
	if !ok {
		c.Warn(diag.Newf(diag.UnknownIdentifier, m.String(), "unknown macro %%%s", m.Name))
		return Str("")
	}
	return fn(e, c, m.Args)
}

// macroPick chooses one option by weight using the independent random
// source. An item "3: text" has weight 3; unkeyed items weigh 1.
func macroPick(e *Evaluator, c *Context, args expr.Args) Value {
	type option struct {
		raw    string
		weight int
	}
	var opts []option
	total := 0
	for _, it := range args.Items {
		w := 1
		raw := it.Raw
		if it.Key != "" {
			n, err := strconv.Atoi(it.Key)
			if err != nil {
				raw = it.Key + ":" + it.Raw
			} else {
				w = n
			}
		}
		if w <= 0 {
			continue
		}
		if w > math.MaxInt-total {
			c.Warn(diag.Newf(diag.TypeMismatch, args.Raw, "pick weights exceed %d", math.MaxInt))
			w = math.MaxInt - total
			if w == 0 {
				continue
			}
		}
		opts = append(opts, option{raw: raw, weight: w})
		total += w
	}
	if total == 0 {
		return Str("")
	}
	r := e.rng.IntN(total)
	for _, o := range opts {
		if r < o.weight {
			return e.fragment(c, o.raw)
		}
		r -= o.weight
	}
	return Str("")
}

// macroChance returns a challenge's success chance without rolling.
func macroChance(e *Evaluator, c *Context, args expr.Args) Value {
	return Num(e.ChanceOf(c, args.Raw))
}

// macroRandom tests the Resolution Roll against a percentage.
func macroRandom(e *Evaluator, c *Context, args expr.Args) Value {
	n := e.number(c, e.fragment(c, args.Raw), args.Raw)
	return Bool(c.Roll() <= mutation.ClampInt(math.Floor(n)))
}

func macroMin(e *Evaluator, c *Context, args expr.Args) Value {
	return fold(e, c, args, math.Min)
}

func macroMax(e *Evaluator, c *Context, args expr.Args) Value {
	return fold(e, c, args, math.Max)
}

func fold(e *Evaluator, c *Context, args expr.Args, f func(a, b float64) float64) Value {
	if len(args.Items) == 0 {
		return Num(0)
	}
	acc := e.number(c, e.fragment(c, args.Items[0].Raw), args.Raw)
	for _, it := range args.Items[1:] {
		acc = f(acc, e.number(c, e.fragment(c, it.Raw), args.Raw))
	}
	return Num(acc)
}

// macroRound rounds to the nearest integer, or to N places with a
// second argument.
func macroRound(e *Evaluator, c *Context, args expr.Args) Value {
	if len(args.Items) == 0 {
		return Num(0)
	}
	x := e.number(c, e.fragment(c, args.Items[0].Raw), args.Raw)
	places := 0.0
	if len(args.Items) > 1 {
		places = e.number(c, e.fragment(c, args.Items[1].Raw), args.Raw)
	}
	scale := math.Pow(10, math.Round(places))
	return Num(math.Round(x*scale) / scale)
}

// macroCount counts held qualities whose definition lists a category.
func macroCount(e *Evaluator, c *Context, args expr.Args) Value {
	category := strings.TrimSpace(e.Text(c, args.Raw))
	n := 0
	for _, id := range c.State.IDs() {
		def, ok := e.registry.Lookup(id)
		if !ok || !def.InCategory(category) {
			continue
		}
		if q, _ := c.State.Get(id); held(q) {
			n++
		}
	}
	return Num(float64(n))
}

func held(q *quality.Quality) bool {
	if q.Type == quality.String {
		return q.StringValue != ""
	}
	return q.Level != 0
}

// macroSchedule creates a pending event from "effect : delay" or
// "effect : interval : recurring". The value is evaluated now.
func macroSchedule(e *Evaluator, c *Context, args expr.Args) Value {
	parts := scanner.SplitTop(args.Raw, ':')
	if len(parts) < 2 || len(parts) > 3 {
		c.Warn(diag.New(diag.ParseError, args.Raw, "expected 'effect : duration'"))
		return Str("")
	}
	delay, err := mutation.ParseDuration(e.Text(c, parts[1]))
	if err != nil {
		c.Warn(diag.Wrap(diag.ParseError, args.Raw, "bad schedule duration", err))
		return Str("")
	}
	recurring := len(parts) == 3 && isRecurring(parts[2])

	p := parser.New()
	eff, err := p.Effect(parts[0])
	c.warnAll(p.Warnings)
	if err != nil || len(eff.Stmts) != 1 {
		c.Warn(diag.New(diag.ParseError, args.Raw, "schedule needs exactly one mutation"))
		return Str("")
	}
	m, ok := eff.Stmts[0].(expr.Mutate)
	if !ok || m.Target.Sigil != token.VAR || m.Target.Name == token.All {
		c.Warn(diag.New(diag.ParseError, args.Raw, "schedule needs a single $quality mutation"))
		return Str("")
	}
	op, _ := mutation.FromToken(m.Op)
	ev := mutation.PendingEvent{
		ID:              mutation.NewEventID(),
		TargetQualityID: m.Target.Name,
		Op:              op,
		TriggerTime:     c.Now().Add(delay),
		Recurring:       recurring,
		Interval:        delay,
	}
	if m.Target.Name == token.Self && c.Self != nil {
		ev.TargetQualityID = c.Self.ID
	}
	if m.Value != nil {
		ev.Value = e.Eval(c, m.Value).String()
	}
	if m.Target.HasArg {
		if tag, ok := strings.CutPrefix(strings.TrimSpace(e.Text(c, m.Target.Arg)), sourceArg); ok {
			ev.Tag = strings.TrimSpace(tag)
		}
	}
	c.out.Scheduled = append(c.out.Scheduled, ev)
	return Str("")
}

func isRecurring(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "recurring", "repeat", "true", "yes", "1":
		return true
	}
	return false
}

// macroCancel cancels every pending event for a quality, including
// those scheduled earlier in the same call.
func macroCancel(e *Evaluator, c *Context, args expr.Args) Value {
	raw := strings.TrimSpace(args.Raw)
	id := strings.TrimPrefix(raw, string(rune(token.SigilVar)))
	if id == token.Self && c.Self != nil {
		id = c.Self.ID
	}
	if id == "" {
		c.Warn(diag.New(diag.ParseError, args.Raw, "cancel needs a $quality"))
		return Str("")
	}
	c.out.Scheduled = slices.DeleteFunc(c.out.Scheduled, func(ev mutation.PendingEvent) bool {
		return ev.TargetQualityID == id
	})
	c.out.Cancelled = append(c.out.Cancelled, mutation.Cancellation{TargetQualityID: id})
	return Str("")
}
