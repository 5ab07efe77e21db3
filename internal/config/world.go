// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"nickandperla.net/scribescript/internal/quality"
)

// World is the content of a world file: quality definitions, world
// qualities and starting characters.
type World struct {
	Definitions []quality.Definition
	World       quality.State
	Characters  map[string]quality.State
}

// Registry returns the world's definitions as a registry.
func (w *World) Registry() quality.MapRegistry {
	return quality.NewMapRegistry(w.Definitions...)
}

type worldFile struct {
	Definitions []definitionEntry                  `yaml:"definitions"`
	World       map[string]qualityEntry            `yaml:"world"`
	Characters  map[string]map[string]qualityEntry `yaml:"characters"`
}

type definitionEntry struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
	Bonus       string `yaml:"bonus"`
}

// qualityEntry is a quality keyed by ID in the file. An omitted type
// falls back to the definition's, then to counter.
type qualityEntry struct {
	Type       string            `yaml:"type"`
	Level      int               `yaml:"level"`
	CP         int               `yaml:"cp"`
	Value      string            `yaml:"value"`
	Sources    []quality.Source  `yaml:"sources"`
	Properties map[string]string `yaml:"properties"`
}

// LoadWorld reads and validates a world file.
func LoadWorld(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading world %s: %w", path, err)
	}
	w, err := ParseWorld(data)
	if err != nil {
		return nil, fmt.Errorf("parsing world %s: %w", path, err)
	}
	return w, nil
}

// ParseWorld decodes world YAML.
func ParseWorld(data []byte) (*World, error) {
	var f worldFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	w := &World{World: quality.State{}, Characters: make(map[string]quality.State, len(f.Characters))}
	seen := make(map[string]bool, len(f.Definitions))
	for i, d := range f.Definitions {
		if d.ID == "" {
			return nil, fmt.Errorf("definition %d: missing id", i)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("definition %q: duplicate id", d.ID)
		}
		seen[d.ID] = true
		typ := quality.Counter
		if d.Type != "" {
			var ok bool
			if typ, ok = quality.ParseType(d.Type); !ok {
				return nil, fmt.Errorf("definition %q: unknown type %q", d.ID, d.Type)
			}
		}
		w.Definitions = append(w.Definitions, quality.Definition{
			ID:          d.ID,
			Name:        d.Name,
			Category:    d.Category,
			Description: d.Description,
			Type:        typ,
			Bonus:       d.Bonus,
		})
	}

	reg := w.Registry()
	var err error
	if w.World, err = buildState(f.World, reg); err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	for id, entries := range f.Characters {
		if w.Characters[id], err = buildState(entries, reg); err != nil {
			return nil, fmt.Errorf("character %q: %w", id, err)
		}
	}
	return w, nil
}

func buildState(entries map[string]qualityEntry, reg quality.Registry) (quality.State, error) {
	state := make(quality.State, len(entries))
	for id, e := range entries {
		typ := quality.Counter
		if d, ok := reg.Lookup(id); ok {
			typ = d.Type
		}
		if e.Type != "" {
			var ok bool
			if typ, ok = quality.ParseType(e.Type); !ok {
				return nil, fmt.Errorf("quality %q: unknown type %q", id, e.Type)
			}
		}
		q := &quality.Quality{
			ID:               id,
			Type:             typ,
			StringValue:      e.Value,
			Sources:          e.Sources,
			CustomProperties: e.Properties,
		}
		switch {
		case typ == quality.Pyramidal && e.CP > 0:
			q.AddCP(e.CP)
		case typ == quality.Pyramidal:
			q.SetLevel(e.Level)
		default:
			q.Level = e.Level
		}
		state[id] = q
	}
	return state, nil
}
