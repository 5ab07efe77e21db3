// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package parser

import (
	"strconv"

	"nickandperla.net/scribescript/internal/challenge"
	"nickandperla.net/scribescript/internal/diag"
	"nickandperla.net/scribescript/internal/expr"
	"nickandperla.net/scribescript/internal/scanner"
	"nickandperla.net/scribescript/internal/token"
)

// Bracketed references that are really statement macros: $schedule[…]
// and $cancel[…] are the same as %schedule[…] and %cancel[…].
var refMacros = map[string]bool{
	"schedule": true,
	"cancel":   true,
}

// exprParser is a recursive-descent parser over Logic tokens.
//
// Precedence, lowest first: range (~), ||, &&, comparison and challenge
// operators, + -, * /, unary - !, postfix %.
type exprParser struct {
	p     *Parser
	src   string
	items []*scanner.Item
	pos   int
	eof   *scanner.Item
}

func (p *Parser) newExprParser(src string) (*exprParser, error) {
	items, err := scanner.New(src, scanner.Logic).All()
	if err != nil {
		return nil, parseError(src, err)
	}
	return &exprParser{
		p:     p,
		src:   src,
		items: items,
		eof:   &scanner.Item{Token: token.EOF, Pos: len(src), End: len(src)},
	}, nil
}

func (e *exprParser) peek() *scanner.Item {
	return e.peekAt(0)
}

func (e *exprParser) peekAt(n int) *scanner.Item {
	if i := e.pos + n; i < len(e.items) {
		return e.items[i]
	}
	return e.eof
}

func (e *exprParser) next() *scanner.Item {
	it := e.peek()
	if e.pos < len(e.items) {
		e.pos++
	}
	return it
}

func (e *exprParser) errorf(format string, args ...any) error {
	return diag.Newf(diag.ParseError, e.src, format, args...)
}

func (e *exprParser) parseRange() (expr.Expr, error) {
	lo, err := e.parseOr()
	if err != nil {
		return nil, err
	}
	if e.peek().Token != token.TILDE {
		return lo, nil
	}
	e.next()
	hi, err := e.parseOr()
	if err != nil {
		return nil, err
	}
	return expr.Range{Lo: lo, Hi: hi}, nil
}

func (e *exprParser) parseOr() (expr.Expr, error) {
	x, err := e.parseAnd()
	if err != nil {
		return nil, err
	}
	for e.peek().Token == token.OR {
		e.next()
		y, err := e.parseAnd()
		if err != nil {
			return nil, err
		}
		x = expr.Binary{Op: token.OR, X: x, Y: y}
	}
	return x, nil
}

func (e *exprParser) parseAnd() (expr.Expr, error) {
	x, err := e.parseComparison()
	if err != nil {
		return nil, err
	}
	for e.peek().Token == token.AND {
		e.next()
		y, err := e.parseComparison()
		if err != nil {
			return nil, err
		}
		x = expr.Binary{Op: token.AND, X: x, Y: y}
	}
	return x, nil
}

func (e *exprParser) parseComparison() (expr.Expr, error) {
	x, err := e.parseAdditive()
	if err != nil {
		return nil, err
	}
	op := e.peek().Token
	if !op.IsComparison() && !op.IsChallenge() {
		return x, nil
	}
	e.next()
	y, err := e.parseAdditive()
	if err != nil {
		return nil, err
	}

	var mods expr.Modifiers
	switch it := e.peek(); it.Token {
	case token.SEMI:
		e.next()
		if mods, err = e.parseModifierList(); err != nil {
			return nil, err
		}
	case token.BRACKET:
		e.next()
		if mods, err = e.p.Modifiers(it.Value); err != nil {
			return nil, err
		}
	}

	if !op.IsChallenge() && mods.IsEmpty() {
		return expr.Binary{Op: op, X: x, Y: y}, nil
	}
	cop, ok := comparisonOp(op)
	if !ok {
		return nil, e.errorf("modifiers are not allowed after %s", op)
	}
	return expr.Challenge{Stat: x, Op: cop, Target: y, Mods: mods}, nil
}

// parseModifierList parses `v, v, key:v` items. Values are additive
// expressions so the list may follow a comparison directly.
func (e *exprParser) parseModifierList() (expr.Modifiers, error) {
	var mods expr.Modifiers
	for {
		if e.peek().Token == token.IDENT && e.peekAt(1).Token == token.COLON {
			key := e.next().Value
			if _, ok := challenge.SlotByName(key); !ok {
				return mods, e.errorf("unknown modifier %q", key)
			}
			e.next()
			v, err := e.parseAdditive()
			if err != nil {
				return mods, err
			}
			mods.Named = append(mods.Named, expr.NamedMod{Key: key, Value: v})
		} else {
			v, err := e.parseAdditive()
			if err != nil {
				return mods, err
			}
			mods.Positional = append(mods.Positional, v)
		}
		if t := e.peek().Token; t != token.COMMA && t != token.SEMI {
			return mods, nil
		}
		e.next()
	}
}

func (e *exprParser) parseAdditive() (expr.Expr, error) {
	x, err := e.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for op := e.peek().Token; op == token.PLUS || op == token.MINUS; op = e.peek().Token {
		e.next()
		y, err := e.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		x = expr.Binary{Op: op, X: x, Y: y}
	}
	return x, nil
}

func (e *exprParser) parseMultiplicative() (expr.Expr, error) {
	x, err := e.parseUnary()
	if err != nil {
		return nil, err
	}
	for op := e.peek().Token; op == token.STAR || op == token.SLASH; op = e.peek().Token {
		e.next()
		y, err := e.parseUnary()
		if err != nil {
			return nil, err
		}
		x = expr.Binary{Op: op, X: x, Y: y}
	}
	return x, nil
}

func (e *exprParser) parseUnary() (expr.Expr, error) {
	if op := e.peek().Token; op == token.MINUS || op == token.NOT {
		e.next()
		x, err := e.parseUnary()
		if err != nil {
			return nil, err
		}
		return expr.Unary{Op: op, X: x}, nil
	}
	x, err := e.parsePrimary()
	if err != nil {
		return nil, err
	}
	if e.peek().Token == token.PERCENT {
		e.next()
		return expr.Percent{X: x}, nil
	}
	return x, nil
}

func (e *exprParser) parsePrimary() (expr.Expr, error) {
	it := e.peek()
	switch it.Token {
	case token.NUMBER:
		e.next()
		v, err := strconv.ParseFloat(it.Value, 64)
		if err != nil {
			return nil, e.errorf("bad number %q", it.Value)
		}
		return expr.Number{Value: v}, nil
	case token.STRING:
		e.next()
		return expr.String{Value: it.Value}, nil
	case token.IDENT:
		switch it.Value {
		case "true", "false":
			e.next()
			return expr.Bool{Value: it.Value == "true"}, nil
		}
		return nil, e.errorf("unexpected word %q", it.Value)
	case token.VAR, token.ALIAS, token.WORLD:
		return e.parseRef()
	case token.MACRO:
		e.next()
		return expr.Macro{Name: it.Value, Args: ParseArgs(it.Arg)}, nil
	case token.LPAREN:
		e.next()
		x, err := e.parseRange()
		if err != nil {
			return nil, err
		}
		if e.next().Token != token.RPAREN {
			return nil, e.errorf("expected ')'")
		}
		return x, nil
	case token.BLOCK:
		e.next()
		return e.p.block(it.Value)
	case token.EOF:
		return nil, e.errorf("unexpected end of expression")
	}
	return nil, e.errorf("unexpected %s %q", it.Token, it.Value)
}

// parseRef parses a sigil reference with its optional adjacent bracket
// argument and property.
func (e *exprParser) parseRef() (expr.Expr, error) {
	it := e.next()
	if !it.Token.IsReference() {
		return nil, e.errorf("expected reference, got %s", it.Token)
	}
	ref := expr.Ref{Sigil: it.Token, Name: it.Value}
	end := it.End
	if b := e.peek(); b.Token == token.BRACKET && b.Pos == end {
		e.next()
		ref.Arg, ref.HasArg = b.Value, true
		end = b.End
		if it.Token == token.VAR && refMacros[it.Value] {
			return expr.Macro{Name: it.Value, Args: ParseArgs(b.Value)}, nil
		}
	}
	if pr := e.peek(); pr.Token == token.PROP && pr.Pos == end {
		e.next()
		ref.Prop = pr.Value
	}
	return ref, nil
}
