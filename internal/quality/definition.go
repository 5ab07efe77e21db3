// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package quality

import "strings"

// Definition is the authored, read-only description of a quality.
type Definition struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Category    string `yaml:"category,omitempty" json:"category,omitempty"` // Comma-separated list
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Type        Type   `yaml:"type" json:"type"`
	Bonus       string `yaml:"bonus,omitempty" json:"bonus,omitempty"` // Equipable only
}

// Categories returns the trimmed, non-empty entries of the category list.
func (d Definition) Categories() []string {
	var out []string
	for _, c := range strings.Split(d.Category, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// InCategory reports whether the definition lists category (case-insensitive).
func (d Definition) InCategory(category string) bool {
	category = strings.TrimSpace(category)
	for _, c := range d.Categories() {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// Registry resolves quality definitions. Implementations are injected;
// the engine never reads a global registry.
type Registry interface {
	// Lookup returns the definition for id, if any.
	Lookup(id string) (Definition, bool)
}

// MapRegistry is an in-memory Registry keyed by ID.
type MapRegistry map[string]Definition

// Lookup implements Registry.
func (r MapRegistry) Lookup(id string) (Definition, bool) {
	d, ok := r[id]
	return d, ok
}

// NewMapRegistry builds a MapRegistry from a list of definitions.
func NewMapRegistry(defs ...Definition) MapRegistry {
	r := make(MapRegistry, len(defs))
	for _, d := range defs {
		r[d.ID] = d
	}
	return r
}

// Empty is a Registry with no definitions.
var Empty Registry = MapRegistry(nil)
