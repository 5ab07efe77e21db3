// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package expr defines ScribeScript expression types.
package expr

import (
	"strconv"
	"strings"

	"nickandperla.net/scribescript/internal/challenge"
	"nickandperla.net/scribescript/internal/token"
)

// Expr is the interface all expression types implement.
type Expr interface {
	// String returns the serializable representation of the expression.
	String() string
	// IsEmpty returns true if this is an empty expression.
	IsEmpty() bool
}

// Empty represents an empty/absent value.
type Empty struct{}

func (e Empty) String() string { return "" }
func (e Empty) IsEmpty() bool  { return true }

// Text represents literal prose.
type Text struct {
	Value string
}

func (t Text) String() string { return t.Value }
func (t Text) IsEmpty() bool  { return t.Value == "" }

// Template is prose interleaved with blocks.
type Template struct {
	Parts []Expr
}

func (t Template) String() string {
	var sb strings.Builder
	for _, p := range t.Parts {
		sb.WriteString(p.String())
	}
	return sb.String()
}
func (t Template) IsEmpty() bool { return len(t.Parts) == 0 }

// Block is a {…} region holding a clause chain. A block with no
// clauses is a ghost block.
type Block struct {
	Raw   string
	Chain Chain
}

func (b Block) String() string { return "{" + b.Raw + "}" }
func (b Block) IsEmpty() bool  { return len(b.Chain.Clauses) == 0 }

// Reparse is a double-brace block: the inner block's result is parsed
// and evaluated again as logic.
type Reparse struct {
	Inner Block
}

func (r Reparse) String() string { return "{" + r.Inner.String() + "}" }
func (r Reparse) IsEmpty() bool  { return false }

// Clause is one `cond : body` arm of a chain. Cond is nil for an
// unconditioned clause.
type Clause struct {
	Cond    Expr
	Body    Expr
	Raw     string // Whole clause
	BodyRaw string // Text after the condition
}

// Chain is a `c1 : t1 | c2 : t2 | default` sequence.
type Chain struct {
	Clauses []Clause
}

func (c Chain) String() string {
	parts := make([]string, len(c.Clauses))
	for i, cl := range c.Clauses {
		parts[i] = strings.TrimSpace(cl.Raw)
	}
	return strings.Join(parts, " | ")
}
func (c Chain) IsEmpty() bool { return len(c.Clauses) == 0 }

// Conditional reports whether any clause carries a condition.
func (c Chain) Conditional() bool {
	for _, cl := range c.Clauses {
		if cl.Cond != nil {
			return true
		}
	}
	return false
}

// Number is a numeric literal.
type Number struct {
	Value float64
}

func (n Number) String() string { return strconv.FormatFloat(n.Value, 'f', -1, 64) }
func (n Number) IsEmpty() bool  { return false }

// String is a quoted string literal.
type String struct {
	Value string
}

func (s String) String() string { return strconv.Quote(s.Value) }
func (s String) IsEmpty() bool  { return false }

// Bool is true or false.
type Bool struct {
	Value bool
}

func (b Bool) String() string { return strconv.FormatBool(b.Value) }
func (b Bool) IsEmpty() bool  { return false }

// Ref is a sigil reference: $id, @id or #id, with an optional bracket
// argument and property.
type Ref struct {
	Sigil  token.Token // VAR, ALIAS or WORLD
	Name   string
	Arg    string // Raw bracket content
	HasArg bool
	Prop   string
}

func (r Ref) String() string {
	var sb strings.Builder
	switch r.Sigil {
	case token.ALIAS:
		sb.WriteByte(token.SigilAlias)
	case token.WORLD:
		sb.WriteByte(token.SigilWorld)
	default:
		sb.WriteByte(token.SigilVar)
	}
	sb.WriteString(r.Name)
	if r.HasArg {
		sb.WriteString("[" + r.Arg + "]")
	}
	if r.Prop != "" {
		sb.WriteString("." + r.Prop)
	}
	return sb.String()
}
func (r Ref) IsEmpty() bool { return false }

// Arg is one `;`-separated macro argument, with an optional `key:` prefix.
type Arg struct {
	Key string
	Raw string
}

// Args holds a macro's raw argument text and its split items.
type Args struct {
	Raw   string
	Items []Arg
}

// Macro is a %name[…] call.
type Macro struct {
	Name string
	Args Args
}

func (m Macro) String() string { return "%" + m.Name + "[" + m.Args.Raw + "]" }
func (m Macro) IsEmpty() bool  { return false }

// Unary is a prefix operation (-x, !x).
type Unary struct {
	Op token.Token
	X  Expr
}

func (u Unary) String() string { return u.Op.String() + u.X.String() }
func (u Unary) IsEmpty() bool  { return false }

// Binary is an infix arithmetic, comparison or boolean operation.
type Binary struct {
	Op   token.Token
	X, Y Expr
}

func (b Binary) String() string { return "(" + b.X.String() + " " + b.Op.String() + " " + b.Y.String() + ")" }
func (b Binary) IsEmpty() bool  { return false }

// Percent is the `N%` roll shorthand.
type Percent struct {
	X Expr
}

func (p Percent) String() string { return p.X.String() + "%" }
func (p Percent) IsEmpty() bool  { return false }

// Range is an inclusive random range `lo ~ hi`.
type Range struct {
	Lo, Hi Expr
}

func (r Range) String() string { return r.Lo.String() + " ~ " + r.Hi.String() }
func (r Range) IsEmpty() bool  { return false }

// NamedMod is a `key:value` challenge modifier.
type NamedMod struct {
	Key   string
	Value Expr
}

// Modifiers are the optional curve parameters of a challenge.
type Modifiers struct {
	Positional []Expr // margin, min, max, pivot
	Named      []NamedMod
}

// IsEmpty returns true when no modifier was given.
func (m Modifiers) IsEmpty() bool { return len(m.Positional) == 0 && len(m.Named) == 0 }

func (m Modifiers) String() string {
	var parts []string
	for _, p := range m.Positional {
		parts = append(parts, p.String())
	}
	for _, n := range m.Named {
		parts = append(parts, n.Key+":"+n.Value.String())
	}
	return strings.Join(parts, ", ")
}

// Challenge is `stat OP target [; modifiers]`.
type Challenge struct {
	Stat   Expr
	Op     challenge.Op
	Target Expr
	Mods   Modifiers
}

func (c Challenge) String() string {
	s := c.Stat.String() + " " + c.Op.String() + " " + c.Target.String()
	if !c.Mods.IsEmpty() {
		s += "; " + c.Mods.String()
	}
	return s
}
func (c Challenge) IsEmpty() bool { return false }

// AliasAssign is `@name = value`.
type AliasAssign struct {
	Name  string
	Value Expr
}

func (a AliasAssign) String() string { return "@" + a.Name + " = " + a.Value.String() }
func (a AliasAssign) IsEmpty() bool  { return false }

// Mutate is an effect statement `$target OP value`. Value is nil for
// ++ and --.
type Mutate struct {
	Target Ref
	Op     token.Token
	Value  Expr
}

func (m Mutate) String() string {
	if m.Value == nil {
		return m.Target.String() + m.Op.String()
	}
	return m.Target.String() + " " + m.Op.String() + " " + m.Value.String()
}
func (m Mutate) IsEmpty() bool { return false }

// Effect is a comma-separated list of statements applied left to right.
type Effect struct {
	Raw   string
	Stmts []Expr
}

func (e Effect) String() string { return e.Raw }
func (e Effect) IsEmpty() bool  { return len(e.Stmts) == 0 }
