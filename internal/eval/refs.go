// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"strings"

	"nickandperla.net/scribescript/internal/diag"
	"nickandperla.net/scribescript/internal/expr"
	"nickandperla.net/scribescript/internal/mutation"
	"nickandperla.net/scribescript/internal/quality"
	"nickandperla.net/scribescript/internal/random"
	"nickandperla.net/scribescript/internal/token"
)

// sourceArg is the bracket prefix selecting a source tag: $id[source:tag].
const sourceArg = "source:"

func (e *Evaluator) evalRef(c *Context, r expr.Ref) Value {
	switch r.Sigil {
	case token.ALIAS:
		v, ok := c.Alias(r.Name)
		if !ok {
			c.Warn(diag.Newf(diag.UnknownIdentifier, r.String(), "alias @%s is not bound", r.Name))
			return Str("")
		}
		if r.Prop != "" || r.HasArg {
			c.Warn(diag.Newf(diag.TypeMismatch, r.String(), "alias @%s has no properties", r.Name))
		}
		return v
	case token.WORLD:
		q, _ := e.world.Get(r.Name)
		return e.qualityValue(c, r, q, false)
	}

	switch r.Name {
	case token.Luck:
		return Num(float64(random.Between(e.rng, 1, 100)))
	case token.Self:
		if c.Self == nil {
			c.Warn(diag.New(diag.UnknownIdentifier, r.String(), "$self has no quality in this context"))
			return Str("")
		}
		if q, ok := c.State.Get(c.Self.ID); ok {
			return e.qualityValue(c, r, q, true)
		}
		return e.qualityValue(c, r, c.Self, true)
	}
	q, _ := c.State.Get(r.Name)
	return e.qualityValue(c, r, q, true)
}

// qualityValue resolves a reference against q, which may be nil when the
// character does not hold the quality.
func (e *Evaluator) qualityValue(c *Context, r expr.Ref, q *quality.Quality, mutable bool) Value {
	id := r.Name
	if q != nil {
		id = q.ID
	}
	def, hasDef := e.registry.Lookup(id)
	if q == nil && !hasDef {
		c.Warn(diag.Newf(diag.UnknownIdentifier, r.String(), "unknown quality %q", id))
	}
	if q == nil {
		typ := quality.Counter
		if hasDef {
			typ = def.Type
		}
		q = quality.New(id, typ)
	}

	if r.HasArg {
		arg := strings.TrimSpace(e.Text(c, r.Arg))
		if tag, ok := strings.CutPrefix(arg, sourceArg); ok {
			return Num(float64(q.SourceCount(strings.TrimSpace(tag))))
		}
		c.Warn(diag.Newf(diag.ParseError, r.String(), "unsupported argument %q", arg))
	}

	switch r.Prop {
	case "":
		if q.Type == quality.String {
			return Str(q.StringValue)
		}
		return Num(float64(q.Level))
	case "level":
		return Num(float64(q.Level))
	case "cp":
		return Num(float64(q.ChangePoints))
	case "value":
		return Str(q.StringValue)
	case "type":
		return Str(q.Type.String())
	case "name":
		if hasDef && def.Name != "" {
			return Str(def.Name)
		}
		return Str(id)
	case "category":
		return Str(def.Category)
	case "description":
		return e.describe(c, q, def.Description)
	case "bonus":
		return e.describe(c, q, def.Bonus)
	case "source":
		if c.effect && mutable {
			if held, ok := c.State.Get(q.ID); ok {
				if m, tag, ok := mutation.ConsumeSource(held); ok {
					c.out.Mutations = append(c.out.Mutations, m)
					return Str(tag)
				}
			}
			return Str("")
		}
		tag, _ := q.LatestSource()
		return Str(tag)
	}
	if v, ok := q.CustomProperties[r.Prop]; ok {
		return Str(v)
	}
	c.Warn(diag.Newf(diag.UnknownIdentifier, r.String(), "unknown property %q", r.Prop))
	return Str("")
}

// describe evaluates a definition template with $self bound to q. Past
// the recursion limit the raw template is returned.
func (e *Evaluator) describe(c *Context, q *quality.Quality, tmpl string) Value {
	if tmpl == "" {
		return Str("")
	}
	if c.Depth >= e.recursionLimit {
		c.Warn(diag.Newf(diag.RecursionLimitExceeded, tmpl, "description of %q nested too deeply", q.ID))
		return Str(tmpl)
	}
	self, effect := c.Self, c.effect
	c.Self, c.effect = q, false
	c.Depth++
	defer func() {
		c.Self, c.effect = self, effect
		c.Depth--
	}()
	return Str(e.Text(c, tmpl))
}
