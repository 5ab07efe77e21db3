// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package scanner provides the ScribeScript lexer.
//
// The scanner works in one of two modes. In Prose mode, text outside
// braces is returned as TEXT and each balanced {…} region is returned as
// a single BLOCK item. In Logic mode the input is code: sigil references,
// numbers, strings, operators, and compound BLOCK/BRACKET/MACRO items
// whose raw content is parsed recursively by the caller.
package scanner

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"nickandperla.net/scribescript/internal/token"
)

// Mode selects how the scanner treats text outside braces.
type Mode int

const (
	Prose Mode = iota
	Logic
)

// Scanner tokenizes ScribeScript input.
type Scanner struct {
	src    string
	pos    int
	line   int // Current line number (1-based)
	mode   Mode
	peeked *Item
}

// Item represents a scanned token with its value.
type Item struct {
	Token token.Token
	Value string
	Arg   string // Raw bracket content for MACRO items
	Pos   int    // Byte offset of the first character
	End   int    // Byte offset just past the last character
	Line  int    // Line number where this token started
}

// Error reports malformed input such as unbalanced braces.
type Error struct {
	Pos  int
	Line int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// New creates a Scanner over src.
func New(src string, mode Mode) *Scanner {
	return &Scanner{src: src, line: 1, mode: mode}
}

// Line returns the current line number (1-based).
func (s *Scanner) Line() int {
	return s.line
}

// Peek returns the next item without consuming it.
func (s *Scanner) Peek() (*Item, error) {
	if s.peeked != nil {
		return s.peeked, nil
	}
	item, err := s.Next()
	if err != nil {
		return nil, err
	}
	s.peeked = item
	return item, nil
}

// Next returns the next token from the input.
func (s *Scanner) Next() (*Item, error) {
	if s.peeked != nil {
		item := s.peeked
		s.peeked = nil
		return item, nil
	}
	if s.mode == Prose {
		return s.nextProse()
	}
	return s.nextLogic()
}

// All scans the remaining input, excluding the final EOF.
func (s *Scanner) All() ([]*Item, error) {
	var items []*Item
	for {
		item, err := s.Next()
		if err != nil {
			return nil, err
		}
		if item.Token == token.EOF {
			return items, nil
		}
		items = append(items, item)
	}
}

func (s *Scanner) nextProse() (*Item, error) {
	start, startLine := s.pos, s.line
	if s.pos >= len(s.src) {
		return s.item(token.EOF, "", start, startLine), nil
	}
	switch s.src[s.pos] {
	case '{':
		return s.balanced(token.BLOCK, '{', '}')
	case '}':
		return nil, s.errorf(start, "unmatched '}'")
	}
	for s.pos < len(s.src) && s.src[s.pos] != '{' && s.src[s.pos] != '}' {
		s.advance()
	}
	return s.item(token.TEXT, s.src[start:s.pos], start, startLine), nil
}

func (s *Scanner) nextLogic() (*Item, error) {
	s.skipSpace()
	start, startLine := s.pos, s.line
	if s.pos >= len(s.src) {
		return s.item(token.EOF, "", start, startLine), nil
	}

	c := s.src[s.pos]
	switch {
	case c == '{':
		return s.balanced(token.BLOCK, '{', '}')
	case c == '[':
		return s.balanced(token.BRACKET, '[', ']')
	case c == '}' || c == ']':
		return nil, s.errorf(start, "unmatched '%c'", c)
	case c == '"' || c == '\'':
		return s.scanString(c)
	case isDigit(c) || (c == '.' && isDigit(s.at(1))):
		return s.scanNumber(), nil
	case c == '.' && isIdentStart(s.runeAt(1)):
		s.pos++
		name := s.scanIdent()
		return s.item(token.PROP, name, start, startLine), nil
	case c == token.SigilVar || c == token.SigilAlias || c == token.SigilWorld:
		if !isIdentStart(s.runeAt(1)) && !isDigit(s.at(1)) {
			break
		}
		s.pos++
		name := s.scanIdent()
		return s.item(token.FromSigil(c), name, start, startLine), nil
	case c == token.SigilMacro && isIdentStart(s.runeAt(1)):
		if item, ok, err := s.scanMacro(); ok {
			return item, err
		}
	case isIdentStart(s.runeAt(0)):
		name := s.scanIdent()
		return s.item(token.IDENT, name, start, startLine), nil
	}

	if tok, n := token.LookupOperator(s.src[s.pos:]); n > 0 {
		s.pos += n
		return s.item(tok, s.src[start:s.pos], start, startLine), nil
	}
	_, size := utf8.DecodeRuneInString(s.src[s.pos:])
	s.pos += size
	return s.item(token.ILLEGAL, s.src[start:s.pos], start, startLine), nil
}

// scanMacro scans %name[…]. It reports ok=false, without consuming
// input, when the name is not followed by a bracket.
func (s *Scanner) scanMacro() (*Item, bool, error) {
	start, startLine := s.pos, s.line
	s.pos++
	name := s.scanIdent()
	if s.at(0) != '[' {
		s.pos = start
		return nil, false, nil
	}
	arg, err := s.balanced(token.BRACKET, '[', ']')
	if err != nil {
		return nil, true, err
	}
	item := s.item(token.MACRO, name, start, startLine)
	item.Arg = arg.Value
	return item, true, nil
}

// balanced scans a delimited region whose opener is at the current
// position and returns its inner content.
func (s *Scanner) balanced(tok token.Token, open, close byte) (*Item, error) {
	start, startLine := s.pos, s.line
	depth := 0
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		s.advance()
		switch c {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s.item(tok, s.src[start+1:s.pos-1], start, startLine), nil
			}
		}
	}
	return nil, s.errorf(start, "unclosed '%c'", open)
}

func (s *Scanner) scanString(quote byte) (*Item, error) {
	start, startLine := s.pos, s.line
	s.pos++
	var sb strings.Builder
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '\\' && s.pos+1 < len(s.src):
			sb.WriteByte(s.src[s.pos+1])
			s.pos += 2
			continue
		case c == quote:
			s.pos++
			return s.item(token.STRING, sb.String(), start, startLine), nil
		}
		sb.WriteByte(c)
		s.advance()
	}
	return nil, s.errorf(start, "unterminated string")
}

func (s *Scanner) scanNumber() *Item {
	start, startLine := s.pos, s.line
	for isDigit(s.at(0)) {
		s.pos++
	}
	if s.at(0) == '.' && isDigit(s.at(1)) {
		s.pos++
		for isDigit(s.at(0)) {
			s.pos++
		}
	}
	return s.item(token.NUMBER, s.src[start:s.pos], start, startLine)
}

func (s *Scanner) scanIdent() string {
	start := s.pos
	for s.pos < len(s.src) {
		r, size := utf8.DecodeRuneInString(s.src[s.pos:])
		if !isIdentChar(r) {
			break
		}
		s.pos += size
	}
	return s.src[start:s.pos]
}

func (s *Scanner) skipSpace() {
	for s.pos < len(s.src) {
		r, size := utf8.DecodeRuneInString(s.src[s.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		if r == '\n' {
			s.line++
		}
		s.pos += size
	}
}

func (s *Scanner) advance() {
	if s.src[s.pos] == '\n' {
		s.line++
	}
	s.pos++
}

func (s *Scanner) at(offset int) byte {
	if i := s.pos + offset; i < len(s.src) {
		return s.src[i]
	}
	return 0
}

func (s *Scanner) runeAt(offset int) rune {
	if i := s.pos + offset; i < len(s.src) {
		r, _ := utf8.DecodeRuneInString(s.src[i:])
		return r
	}
	return 0
}

func (s *Scanner) item(tok token.Token, value string, start, line int) *Item {
	return &Item{Token: tok, Value: value, Pos: start, End: s.pos, Line: line}
}

func (s *Scanner) errorf(pos int, format string, args ...any) error {
	return &Error{Pos: pos, Line: s.line, Msg: fmt.Sprintf(format, args...)}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// isIdentStart returns true if the rune can begin an identifier.
func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

// isIdentChar returns true if the rune is valid in an identifier (letter, digit, underscore).
func isIdentChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
