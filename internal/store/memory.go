// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package store

import (
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"nickandperla.net/scribescript/internal/quality"
	"nickandperla.net/scribescript/internal/schedule"
)

// Memory is an in-memory store for testing.
type Memory struct {
	mu         sync.RWMutex
	characters map[string]quality.State
	defs       map[string]quality.Definition
	world      quality.State
	events     map[string]schedule.Entry
	log        map[string][]LogEntry
	seq        int64
	metadata   map[string]string
}

// NewMemory creates a new in-memory store.
func NewMemory() *Memory {
	return &Memory{
		characters: make(map[string]quality.State),
		defs:       make(map[string]quality.Definition),
		world:      quality.State{},
		events:     make(map[string]schedule.Entry),
		log:        make(map[string][]LogEntry),
		metadata:   make(map[string]string),
	}
}

// Lookup implements quality.Registry.
func (m *Memory) Lookup(id string) (quality.Definition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.defs[id]
	return d, ok
}

// Character returns a copy of a character's state.
func (m *Memory) Character(id string) (quality.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.characters[id]; ok {
		return s.Clone(), nil
	}
	return quality.State{}, nil
}

// SaveCharacter stores a copy of state.
func (m *Memory) SaveCharacter(id string, state quality.State) error {
	if id == "" {
		return ErrEmptyCharacter
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.characters[id] = state.Clone()
	return nil
}

// Characters lists stored character IDs.
func (m *Memory) Characters() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.characters)), nil
}

// PutDefinition stores a definition.
func (m *Memory) PutDefinition(d quality.Definition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defs[d.ID] = d
	return nil
}

// Definitions returns all definitions sorted by ID.
func (m *Memory) Definitions() ([]quality.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	defs := slices.Collect(maps.Values(m.defs))
	slices.SortFunc(defs, func(a, b quality.Definition) int { return strings.Compare(a.ID, b.ID) })
	return defs, nil
}

// World returns a copy of the world qualities.
func (m *Memory) World() (quality.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.world.Clone(), nil
}

// SaveWorld replaces the world qualities.
func (m *Memory) SaveWorld(state quality.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.world = state.Clone()
	return nil
}

// Commit applies a batch. The memory store cannot fail halfway, so
// the batch is trivially atomic.
func (m *Memory) Commit(character string, state quality.State, b Batch) error {
	if character == "" {
		return ErrEmptyCharacter
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.characters[character]
	if !ok {
		stored = quality.State{}
		m.characters[character] = stored
	}
	for _, id := range touched(b.Mutations) {
		if q, ok := state.Get(id); ok {
			stored[id] = q.Clone()
		}
	}
	now := time.Now().UTC()
	for _, mut := range b.Mutations {
		m.seq++
		m.log[character] = append(m.log[character], LogEntry{Seq: m.seq, Mutation: mut, Ts: now})
	}
	for _, c := range b.Cancelled {
		for id, e := range m.events {
			if e.CharacterID == character && e.Event.TargetQualityID == c.TargetQualityID {
				delete(m.events, id)
			}
		}
	}
	for _, id := range b.Fired {
		delete(m.events, id)
	}
	for _, ev := range b.Rescheduled {
		if e, ok := m.events[ev.ID]; ok {
			e.Event = ev
			m.events[ev.ID] = e
		}
	}
	for _, ev := range b.Scheduled {
		m.events[ev.ID] = schedule.Entry{CharacterID: character, Event: ev}
	}
	return nil
}

// History returns logged mutations newest first.
func (m *Memory) History(character string, limit int) ([]LogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	log := m.log[character]
	if len(log) == 0 {
		return nil, nil
	}
	out := slices.Clone(log)
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PendingEvents returns all pending events, oldest first.
func (m *Memory) PendingEvents() ([]schedule.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := slices.Collect(maps.Values(m.events))
	sortEntries(entries)
	return entries, nil
}

// RemoveEvents deletes pending events by ID.
func (m *Memory) RemoveEvents(ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.events, id)
	}
	return nil
}

// Close is a no-op for memory store.
func (m *Memory) Close() error {
	return nil
}

// GetMetadata retrieves a metadata value by key.
func (m *Memory) GetMetadata(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metadata[key], nil
}

// SetMetadata stores a metadata value by key.
func (m *Memory) SetMetadata(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[key] = value
	return nil
}

func sortEntries(entries []schedule.Entry) {
	slices.SortFunc(entries, func(a, b schedule.Entry) int {
		if c := a.Event.TriggerTime.Compare(b.Event.TriggerTime); c != 0 {
			return c
		}
		return strings.Compare(a.Event.ID, b.Event.ID)
	})
}
