// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package parser builds ScribeScript syntax trees.
//
// Fields come in two flavours. Text fields are prose templates: literal
// text with {…} blocks. Logic fields (conditions, challenges, effects)
// are code from the first character. Block content is a clause chain
//
//	cond1 : body1 | cond2 : body2 | default
//
// split on the raw text at top-level '|' and ':' before the pieces are
// tokenized. A clause body is parsed as an expression when it is one,
// and as a prose template otherwise.
package parser

import (
	"strings"

	"nickandperla.net/scribescript/internal/challenge"
	"nickandperla.net/scribescript/internal/diag"
	"nickandperla.net/scribescript/internal/expr"
	"nickandperla.net/scribescript/internal/scanner"
	"nickandperla.net/scribescript/internal/token"
)

// Parser turns field strings into syntax trees, collecting non-fatal
// diagnostics as it goes.
type Parser struct {
	Warnings diag.Warnings
}

// New creates a Parser.
func New() *Parser {
	return &Parser{}
}

// Template parses a prose field.
func (p *Parser) Template(src string) (expr.Template, error) {
	items, err := scanner.New(src, scanner.Prose).All()
	if err != nil {
		return expr.Template{}, parseError(src, err)
	}
	var t expr.Template
	for _, it := range items {
		switch it.Token {
		case token.TEXT:
			t.Parts = append(t.Parts, expr.Text{Value: it.Value})
		case token.BLOCK:
			b, err := p.block(it.Value)
			if err != nil {
				return expr.Template{}, err
			}
			t.Parts = append(t.Parts, b)
		}
	}
	return t, nil
}

// Logic parses a logic field: the whole string is block content.
func (p *Parser) Logic(src string) (expr.Expr, error) {
	return p.block(src)
}

// Condition parses a condition field. It is a logic field whose plain
// body must be an expression rather than prose.
func (p *Parser) Condition(src string) (expr.Expr, error) {
	n, err := p.block(src)
	if err != nil {
		return nil, err
	}
	if b, ok := n.(expr.Block); ok && len(b.Chain.Clauses) == 1 && b.Chain.Clauses[0].Cond == nil {
		if _, err := p.tryExpression(strings.TrimSpace(scanner.StripComments(src))); err != nil {
			return nil, diag.Wrap(diag.ParseError, src, "not a condition", err)
		}
	}
	return n, nil
}

// Expression parses src as a single expression that must consume the
// whole input.
func (p *Parser) Expression(src string) (expr.Expr, error) {
	ep, err := p.newExprParser(src)
	if err != nil {
		return nil, err
	}
	if ep.peek().Token == token.EOF {
		return nil, diag.New(diag.ParseError, src, "empty expression")
	}
	var e expr.Expr
	if ep.peek().Token == token.ALIAS && ep.peekAt(1).Token == token.ASSIGN {
		name := ep.next().Value
		ep.next()
		value, err := ep.parseRange()
		if err != nil {
			return nil, err
		}
		e = expr.AliasAssign{Name: name, Value: value}
	} else if e, err = ep.parseRange(); err != nil {
		return nil, err
	}
	if it := ep.peek(); it.Token != token.EOF {
		return nil, diag.Newf(diag.ParseError, src, "unexpected %s %q", it.Token, it.Value)
	}
	return e, nil
}

// Challenge parses a challenge field. Plain comparisons read as their
// directional challenge equivalents.
func (p *Parser) Challenge(src string) (expr.Challenge, error) {
	src = strings.TrimSpace(scanner.StripComments(src))
	e, err := p.Expression(src)
	if err != nil {
		return expr.Challenge{}, diag.Wrap(diag.InvalidChallengeSyntax, src, "not a challenge", err)
	}
	switch n := e.(type) {
	case expr.Challenge:
		return n, nil
	case expr.Binary:
		if op, ok := comparisonOp(n.Op); ok {
			return expr.Challenge{Stat: n.X, Op: op, Target: n.Y}, nil
		}
	}
	return expr.Challenge{}, diag.New(diag.InvalidChallengeSyntax, src, "expected 'stat OP target'")
}

// Modifiers parses a challenge modifier list such as "10, 0, 100" or
// "margin:10, pivot:50".
func (p *Parser) Modifiers(src string) (expr.Modifiers, error) {
	ep, err := p.newExprParser(src)
	if err != nil {
		return expr.Modifiers{}, err
	}
	mods, err := ep.parseModifierList()
	if err != nil {
		return expr.Modifiers{}, err
	}
	if it := ep.peek(); it.Token != token.EOF {
		return expr.Modifiers{}, diag.Newf(diag.ParseError, src, "unexpected %s %q in modifiers", it.Token, it.Value)
	}
	return mods, nil
}

// block parses block content: a ghost block, a double-brace reparse,
// or a clause chain.
func (p *Parser) block(raw string) (expr.Expr, error) {
	src := scanner.StripComments(raw)
	if scanner.IsBlank(src) {
		return expr.Block{Raw: raw}, nil
	}
	trimmed := strings.TrimSpace(src)
	if trimmed[0] == '{' {
		it, err := scanner.New(trimmed, scanner.Logic).Next()
		if err != nil {
			return nil, parseError(raw, err)
		}
		if it.Token == token.BLOCK && it.End == len(trimmed) {
			inner, err := p.block(it.Value)
			if err != nil {
				return nil, err
			}
			if b, ok := inner.(expr.Block); ok {
				return expr.Reparse{Inner: b}, nil
			}
			return expr.Reparse{Inner: expr.Block{Raw: it.Value, Chain: expr.Chain{Clauses: []expr.Clause{{Body: inner, Raw: it.Value, BodyRaw: it.Value}}}}}, nil
		}
	}
	chain, err := p.chain(src)
	if err != nil {
		return nil, err
	}
	return expr.Block{Raw: raw, Chain: chain}, nil
}

func (p *Parser) chain(src string) (expr.Chain, error) {
	var c expr.Chain
	for _, raw := range scanner.SplitTop(src, '|') {
		cl, err := p.clause(raw)
		if err != nil {
			return expr.Chain{}, err
		}
		c.Clauses = append(c.Clauses, cl)
	}
	return c, nil
}

func (p *Parser) clause(raw string) (expr.Clause, error) {
	condRaw, bodyRaw, found := scanner.CutTop(raw, ':', isModifierKey)
	if found {
		cond, err := p.tryExpression(strings.TrimSpace(condRaw))
		if err == nil {
			body, err := p.body(bodyRaw)
			if err != nil {
				return expr.Clause{}, err
			}
			return expr.Clause{Cond: cond, Body: body, Raw: raw, BodyRaw: bodyRaw}, nil
		}
		if strings.ContainsAny(condRaw, "$@#%") {
			p.Warnings.Add(diag.Wrap(diag.ParseError, condRaw, "condition treated as text", err))
		}
	}
	body, err := p.body(raw)
	if err != nil {
		return expr.Clause{}, err
	}
	return expr.Clause{Body: body, Raw: raw, BodyRaw: raw}, nil
}

// body parses a clause body or assignment value: an expression when the
// whole text is one, otherwise a prose template.
func (p *Parser) body(raw string) (expr.Expr, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return expr.Text{}, nil
	}
	if e, err := p.tryExpression(trimmed); err == nil {
		return e, nil
	}
	t, err := p.Template(trimmed)
	if err != nil {
		return nil, err
	}
	if len(t.Parts) == 1 {
		return t.Parts[0], nil
	}
	return t, nil
}

// tryExpression parses an expression, discarding warnings raised by a
// failed attempt.
func (p *Parser) tryExpression(src string) (expr.Expr, error) {
	mark := len(p.Warnings)
	e, err := p.Expression(src)
	if err != nil {
		p.Warnings = p.Warnings[:mark]
	}
	return e, err
}

// Effect parses a comma-separated effect field.
func (p *Parser) Effect(src string) (expr.Effect, error) {
	eff := expr.Effect{Raw: src}
	for _, raw := range scanner.SplitTop(scanner.StripComments(src), ',') {
		if scanner.IsBlank(raw) {
			continue
		}
		stmt, err := p.statement(strings.TrimSpace(raw))
		if err != nil {
			return expr.Effect{Raw: src}, err
		}
		eff.Stmts = append(eff.Stmts, stmt)
	}
	return eff, nil
}

func (p *Parser) statement(src string) (expr.Expr, error) {
	ep, err := p.newExprParser(src)
	if err != nil {
		return nil, err
	}
	first := ep.peek()
	if first.Token.IsReference() {
		ref, err := ep.parseRef()
		if err != nil {
			return nil, err
		}
		op := ep.peek()
		if op.Token.IsAssignment() {
			ep.next()
			return p.assignment(src, ref, op, ep)
		}
	}
	return p.Expression(src)
}

func (p *Parser) assignment(src string, ref expr.Expr, op *scanner.Item, ep *exprParser) (expr.Expr, error) {
	target, ok := ref.(expr.Ref)
	if !ok || target.Prop != "" {
		return nil, diag.New(diag.ParseError, src, "cannot assign to "+ref.String())
	}
	var value expr.Expr
	if op.Token == token.INC || op.Token == token.DEC {
		if it := ep.peek(); it.Token != token.EOF {
			return nil, diag.Newf(diag.ParseError, src, "unexpected %q after %s", it.Value, op.Token)
		}
	} else {
		rest := src[op.End:]
		if scanner.IsBlank(rest) {
			return nil, diag.New(diag.ParseError, src, "missing value")
		}
		var err error
		if value, err = p.body(rest); err != nil {
			return nil, err
		}
	}
	if target.Sigil == token.ALIAS {
		return aliasAssignment(target, op.Token, value), nil
	}
	return expr.Mutate{Target: target, Op: op.Token, Value: value}, nil
}

// aliasAssignment lowers compound alias operators to a plain binding.
func aliasAssignment(target expr.Ref, op token.Token, value expr.Expr) expr.Expr {
	self := expr.Ref{Sigil: token.ALIAS, Name: target.Name}
	switch op {
	case token.ADD_ASSIGN:
		value = expr.Binary{Op: token.PLUS, X: self, Y: value}
	case token.SUB_ASSIGN:
		value = expr.Binary{Op: token.MINUS, X: self, Y: value}
	case token.MUL_ASSIGN:
		value = expr.Binary{Op: token.STAR, X: self, Y: value}
	case token.INC:
		value = expr.Binary{Op: token.PLUS, X: self, Y: expr.Number{Value: 1}}
	case token.DEC:
		value = expr.Binary{Op: token.MINUS, X: self, Y: expr.Number{Value: 1}}
	}
	return expr.AliasAssign{Name: target.Name, Value: value}
}

// ParseArgs splits macro arguments at top-level ';'. A leading simple
// word followed by ':' becomes the item's key.
func ParseArgs(raw string) expr.Args {
	args := expr.Args{Raw: raw}
	if scanner.IsBlank(raw) {
		return args
	}
	for _, item := range scanner.SplitTop(raw, ';') {
		key, value, found := scanner.CutTop(item, ':', nil)
		if found && isSimpleWord(strings.TrimSpace(key)) {
			args.Items = append(args.Items, expr.Arg{Key: strings.TrimSpace(key), Raw: strings.TrimSpace(value)})
			continue
		}
		args.Items = append(args.Items, expr.Arg{Raw: strings.TrimSpace(item)})
	}
	return args
}

func isSimpleWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

// isModifierKey reports whether the text before a ':' ends with a
// challenge modifier key, so the colon is not a clause separator.
func isModifierKey(before string) bool {
	w := scanner.TrailingWord(before)
	if _, ok := challenge.SlotByName(w); !ok {
		return false
	}
	rest := strings.TrimRight(before, " \t\r\n")
	rest = rest[:len(rest)-len(w)]
	return !strings.HasSuffix(rest, "$") && !strings.HasSuffix(rest, "@") &&
		!strings.HasSuffix(rest, "#") && !strings.HasSuffix(rest, ".") && !strings.HasSuffix(rest, "%")
}

func comparisonOp(t token.Token) (challenge.Op, bool) {
	switch t {
	case token.HIGHER, token.GT, token.GE:
		return challenge.Higher, true
	case token.LOWER, token.LT, token.LE:
		return challenge.Lower, true
	case token.PRECISION:
		return challenge.Precision, true
	case token.AVOIDANCE:
		return challenge.Avoidance, true
	}
	return challenge.Higher, false
}

func parseError(src string, err error) *diag.Error {
	return diag.Wrap(diag.ParseError, src, "malformed field", err)
}
