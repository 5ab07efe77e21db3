// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package scanner

import "strings"

// walkTop calls fn with the index of every byte that sits outside any
// (), [] or {} group and outside quoted strings. Iteration stops when
// fn returns false.
//
// A quote only opens a string when it follows a non-word character and
// has a matching close, so apostrophes in prose ("can't") are ignored.
func walkTop(s string, fn func(i int) bool) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '{', '[', '(':
			depth++
			continue
		case '}', ']', ')':
			if depth > 0 {
				depth--
			}
			continue
		case '"', '\'':
			if j := closingQuote(s, i); j > 0 {
				i = j
				continue
			}
		}
		if depth == 0 && !fn(i) {
			return
		}
	}
}

func closingQuote(s string, i int) int {
	if i > 0 && isWordByte(s[i-1]) {
		return -1
	}
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case q:
			return j
		}
	}
	return -1
}

func isWordByte(c byte) bool {
	return c == '_' || isDigit(c) || (c|0x20 >= 'a' && c|0x20 <= 'z') || c >= 0x80
}

// SplitTop splits s at every top-level occurrence of sep. A '|' that is
// part of "||" is never a separator.
func SplitTop(s string, sep byte) []string {
	var parts []string
	last := 0
	walkTop(s, func(i int) bool {
		if s[i] != sep {
			return true
		}
		if sep == '|' && (i+1 < len(s) && s[i+1] == '|' || i > 0 && s[i-1] == '|') {
			return true
		}
		parts = append(parts, s[last:i])
		last = i + 1
		return true
	})
	return append(parts, s[last:])
}

// CutTop slices s around the first top-level sep for which skip, given
// the text before it, returns false. skip may be nil.
func CutTop(s string, sep byte, skip func(before string) bool) (before, after string, found bool) {
	idx := -1
	walkTop(s, func(i int) bool {
		if s[i] != sep || (skip != nil && skip(s[:i])) {
			return true
		}
		idx = i
		return false
	})
	if idx < 0 {
		return s, "", false
	}
	return s[:idx], s[idx+1:], true
}

// TrailingWord returns the identifier immediately before the end of s,
// ignoring trailing whitespace.
func TrailingWord(s string) string {
	s = strings.TrimRight(s, " \t\r\n")
	i := len(s)
	for i > 0 && isWordByte(s[i-1]) {
		i--
	}
	return s[i:]
}

// StripComments removes // line comments. Comment markers inside quoted
// strings, and those directly after ':' as in URLs, are kept.
func StripComments(s string) string {
	if !strings.Contains(s, "//") {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\'' {
			if j := closingQuote(s, i); j > 0 {
				sb.WriteString(s[i : j+1])
				i = j
				continue
			}
		}
		if c == '/' && i+1 < len(s) && s[i+1] == '/' && (i == 0 || s[i-1] != ':') {
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				sb.WriteByte('\n')
			}
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// IsBlank reports whether s holds only whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
