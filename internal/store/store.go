// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package store persists characters, quality definitions, world
// qualities and pending events.
package store

import (
	"errors"
	"time"

	"nickandperla.net/scribescript/internal/mutation"
	"nickandperla.net/scribescript/internal/quality"
	"nickandperla.net/scribescript/internal/schedule"
)

// ErrEmptyCharacter is returned for a blank character ID.
var ErrEmptyCharacter = errors.New("store: empty character id")

// Store is the interface for runtime persistence. Every Store is also a
// quality.Registry over its stored definitions.
type Store interface {
	quality.Registry

	// Character returns a character's quality state. An unknown
	// character has an empty state.
	Character(id string) (quality.State, error)
	// SaveCharacter replaces a character's quality state.
	SaveCharacter(id string, state quality.State) error
	// Characters lists every character with stored state.
	Characters() ([]string, error)

	// PutDefinition stores a quality definition, overwriting if it exists.
	PutDefinition(d quality.Definition) error
	// Definitions returns all definitions sorted by ID.
	Definitions() ([]quality.Definition, error)

	// World returns the world qualities.
	World() (quality.State, error)
	// SaveWorld replaces the world qualities.
	SaveWorld(state quality.State) error

	// Commit atomically persists the result of an action for a
	// character: the qualities touched by the mutations (read from
	// state), the mutation log, new pending events and cancellations.
	Commit(character string, state quality.State, b Batch) error
	// History returns a character's most recent mutations, newest first.
	// limit <= 0 returns all of them.
	History(character string, limit int) ([]LogEntry, error)

	// PendingEvents returns every pending event, oldest first.
	PendingEvents() ([]schedule.Entry, error)
	// RemoveEvents deletes pending events by ID.
	RemoveEvents(ids ...string) error

	// Close releases resources.
	Close() error
}

// Batch is what one action hands to persistence.
type Batch struct {
	Mutations   []mutation.StateMutation
	Scheduled   []mutation.PendingEvent
	Rescheduled []mutation.PendingEvent // Existing events with a new trigger time
	Fired       []string                // IDs of one-shot events that have fired
	Cancelled   []mutation.Cancellation
}

// LogEntry is one persisted mutation.
type LogEntry struct {
	Seq      int64
	Mutation mutation.StateMutation
	Ts       time.Time
}

// touched returns the IDs of the qualities a batch changed, in first-seen
// order.
func touched(muts []mutation.StateMutation) []string {
	seen := make(map[string]bool, len(muts))
	var ids []string
	for _, m := range muts {
		if !seen[m.QualityID] {
			seen[m.QualityID] = true
			ids = append(ids, m.QualityID)
		}
	}
	return ids
}

// Import loads definitions, world qualities and characters into s.
func Import(s Store, defs []quality.Definition, world quality.State, characters map[string]quality.State) error {
	for _, d := range defs {
		if err := s.PutDefinition(d); err != nil {
			return err
		}
	}
	if len(world) > 0 {
		if err := s.SaveWorld(world); err != nil {
			return err
		}
	}
	for id, state := range characters {
		if err := s.SaveCharacter(id, state); err != nil {
			return err
		}
	}
	return nil
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*SQLite)(nil)
)
