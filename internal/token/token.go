// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package token defines ScribeScript token types and sigil constants.
package token

// Token represents a ScribeScript token type.
type Token int

const (
	EOF Token = iota
	ILLEGAL
	TEXT // Literal prose outside braces

	// Compound items carrying raw, balanced content
	BLOCK   // {…}   Value holds the content between the braces
	BRACKET // […]   Value holds the content between the brackets
	MACRO   // %name Value holds the name; Arg holds the raw bracket content

	// Literals and references
	NUMBER
	STRING
	IDENT // Bare word (true, false, property names)
	VAR   // $id
	ALIAS // @id
	WORLD // #id
	PROP  // .name after a reference

	// Comparison
	EQ // ==
	NE // !=
	GT // >
	LT // <
	GE // >=
	LE // <=

	// Challenge
	HIGHER    // >>
	LOWER     // <<
	PRECISION // ><
	AVOIDANCE // <>

	// Boolean
	AND // &&
	OR  // ||
	NOT // !

	// Arithmetic
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // % (postfix roll shorthand)
	TILDE   // ~

	// Flow and punctuation
	COLON  // :
	PIPE   // |
	SEMI   // ;
	COMMA  // ,
	LPAREN // (
	RPAREN // )

	// Assignment
	ASSIGN     // =
	ADD_ASSIGN // +=
	SUB_ASSIGN // -=
	MUL_ASSIGN // *=
	INC        // ++
	DEC        // --
)

// Sigils introducing references.
const (
	SigilVar   = '$'
	SigilAlias = '@'
	SigilWorld = '#'
	SigilMacro = '%'
)

// FromSigil returns the reference token for a sigil byte.
func FromSigil(c byte) Token {
	switch c {
	case SigilVar:
		return VAR
	case SigilAlias:
		return ALIAS
	case SigilWorld:
		return WORLD
	}
	return ILLEGAL
}

// Reserved identifiers.
const (
	Luck = "luck"
	Self = "self"
	All  = "all"
)

var names = map[Token]string{
	EOF: "EOF", ILLEGAL: "ILLEGAL", TEXT: "TEXT",
	BLOCK: "BLOCK", BRACKET: "BRACKET", MACRO: "MACRO",
	NUMBER: "NUMBER", STRING: "STRING", IDENT: "IDENT",
	VAR: "VAR", ALIAS: "ALIAS", WORLD: "WORLD", PROP: "PROP",
	EQ: "==", NE: "!=", GT: ">", LT: "<", GE: ">=", LE: "<=",
	HIGHER: ">>", LOWER: "<<", PRECISION: "><", AVOIDANCE: "<>",
	AND: "&&", OR: "||", NOT: "!",
	PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/", PERCENT: "%", TILDE: "~",
	COLON: ":", PIPE: "|", SEMI: ";", COMMA: ",", LPAREN: "(", RPAREN: ")",
	ASSIGN: "=", ADD_ASSIGN: "+=", SUB_ASSIGN: "-=", MUL_ASSIGN: "*=", INC: "++", DEC: "--",
}

// String returns the string representation of a token.
func (t Token) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// IsComparison returns true for the ordinary comparison operators.
func (t Token) IsComparison() bool {
	switch t {
	case EQ, NE, GT, LT, GE, LE:
		return true
	}
	return false
}

// IsChallenge returns true for the challenge operators.
func (t Token) IsChallenge() bool {
	switch t {
	case HIGHER, LOWER, PRECISION, AVOIDANCE:
		return true
	}
	return false
}

// IsAssignment returns true for mutation operators.
func (t Token) IsAssignment() bool {
	switch t {
	case ASSIGN, ADD_ASSIGN, SUB_ASSIGN, MUL_ASSIGN, INC, DEC:
		return true
	}
	return false
}

// IsReference returns true for sigil references.
func (t Token) IsReference() bool {
	switch t {
	case VAR, ALIAS, WORLD:
		return true
	}
	return false
}

// operators lists multi- and single-character operators, longest first.
var operators = []struct {
	text string
	tok  Token
}{
	{"==", EQ}, {"!=", NE}, {">=", GE}, {"<=", LE},
	{">>", HIGHER}, {"<<", LOWER}, {"><", PRECISION}, {"<>", AVOIDANCE},
	{"&&", AND}, {"||", OR},
	{"+=", ADD_ASSIGN}, {"-=", SUB_ASSIGN}, {"*=", MUL_ASSIGN},
	{"++", INC}, {"--", DEC},
	{">", GT}, {"<", LT}, {"!", NOT},
	{"+", PLUS}, {"-", MINUS}, {"*", STAR}, {"/", SLASH}, {"%", PERCENT}, {"~", TILDE},
	{":", COLON}, {"|", PIPE}, {";", SEMI}, {",", COMMA}, {"(", LPAREN}, {")", RPAREN},
	{"=", ASSIGN},
}

// LookupOperator returns the longest operator at the start of s and its length.
func LookupOperator(s string) (Token, int) {
	for _, op := range operators {
		if len(s) >= len(op.text) && s[:len(op.text)] == op.text {
			return op.tok, len(op.text)
		}
	}
	return ILLEGAL, 0
}
