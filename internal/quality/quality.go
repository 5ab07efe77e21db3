// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package quality defines the typed, persistent state ScribeScript
// evaluates against: qualities, their definitions, and the leveling and
// source-tracking rules that keep them consistent.
package quality

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Type is the kind of a quality.
type Type int

const (
	Pyramidal Type = iota // Levels earned through triangular Change Points
	Counter               // Plain signed number
	Item                  // Non-negative count, optionally source-tagged
	Equipable             // Item that carries a bonus template
	String                // Free text
)

// String returns the canonical name of a quality type.
func (t Type) String() string {
	switch t {
	case Pyramidal:
		return "pyramidal"
	case Counter:
		return "counter"
	case Item:
		return "item"
	case Equipable:
		return "equipable"
	case String:
		return "string"
	}
	return "unknown"
}

// ParseType parses a quality type name (case-insensitive).
func ParseType(s string) (Type, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pyramidal", "p":
		return Pyramidal, true
	case "counter", "c":
		return Counter, true
	case "item", "i":
		return Item, true
	case "equipable", "equippable", "e":
		return Equipable, true
	case "string", "s":
		return String, true
	}
	return Counter, false
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, ok := ParseType(string(b))
	if !ok {
		return fmt.Errorf("unknown quality type %q", string(b))
	}
	*t = parsed
	return nil
}

// IsNumeric reports whether the type reads as a number.
func (t Type) IsNumeric() bool {
	return t != String
}

// Unsigned reports whether levels of this type are clamped at zero.
func (t Type) Unsigned() bool {
	return t == Item || t == Equipable || t == Pyramidal
}

// Source is a tagged contribution to an Item or Counter level.
type Source struct {
	Tag   string `yaml:"tag" json:"tag"`
	Count int    `yaml:"count" json:"count"`
}

// Quality is one piece of character or world state.
type Quality struct {
	ID               string            `yaml:"id" json:"id"`
	Type             Type              `yaml:"type" json:"type"`
	Level            int               `yaml:"level" json:"level"`
	ChangePoints     int               `yaml:"cp,omitempty" json:"changePoints,omitempty"`
	StringValue      string            `yaml:"value,omitempty" json:"stringValue,omitempty"`
	Sources          []Source          `yaml:"sources,omitempty" json:"sources,omitempty"`
	CustomProperties map[string]string `yaml:"properties,omitempty" json:"customProperties,omitempty"`
}

// New creates an empty quality of the given type.
func New(id string, typ Type) *Quality {
	return &Quality{ID: id, Type: typ}
}

// Clone returns a deep copy.
func (q *Quality) Clone() *Quality {
	if q == nil {
		return nil
	}
	c := *q
	c.Sources = slices.Clone(q.Sources)
	c.CustomProperties = maps.Clone(q.CustomProperties)
	return &c
}

// Snapshot captures the mutable fields of a quality.
type Snapshot struct {
	Level        int    `json:"level"`
	ChangePoints int    `json:"changePoints,omitempty"`
	StringValue  string `json:"stringValue,omitempty"`
}

// Snapshot returns the current mutable fields.
func (q *Quality) Snapshot() Snapshot {
	if q == nil {
		return Snapshot{}
	}
	return Snapshot{Level: q.Level, ChangePoints: q.ChangePoints, StringValue: q.StringValue}
}

// State maps quality IDs to qualities. It is mutated in place by the
// mutation engine and must have a single writer.
type State map[string]*Quality

// Get returns the quality with the given ID.
func (s State) Get(id string) (*Quality, bool) {
	q, ok := s[id]
	return q, ok && q != nil
}

// Ensure returns the quality with the given ID, creating it with typ if absent.
func (s State) Ensure(id string, typ Type) *Quality {
	if q, ok := s.Get(id); ok {
		return q
	}
	q := New(id, typ)
	s[id] = q
	return q
}

// IDs returns all quality IDs in sorted order.
func (s State) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	c := make(State, len(s))
	for id, q := range s {
		c[id] = q.Clone()
	}
	return c
}
