// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package schedule holds pending events between the moment an effect
// schedules them and the moment they come due.
package schedule

import (
	"slices"
	"strings"
	"sync"
	"time"

	"nickandperla.net/scribescript/internal/mutation"
)

// Entry is a pending event owned by a character.
type Entry struct {
	CharacterID string
	Event       mutation.PendingEvent
}

// Queue is a goroutine-safe set of pending events keyed by event ID.
type Queue struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{entries: make(map[string]Entry, 32)}
}

// Add queues events for a character. An event whose ID is already
// queued replaces the old one.
func (q *Queue) Add(character string, events ...mutation.PendingEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, ev := range events {
		if ev.ID == "" {
			ev.ID = mutation.NewEventID()
		}
		q.entries[ev.ID] = Entry{CharacterID: character, Event: ev}
	}
}

// Replace discards every queued event and queues entries instead.
func (q *Queue) Replace(entries []Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = make(map[string]Entry, max(len(entries), 32))
	for _, e := range entries {
		if e.Event.ID == "" {
			e.Event.ID = mutation.NewEventID()
		}
		q.entries[e.Event.ID] = e
	}
}

// Cancel removes every event for the character targeting quality and
// returns how many were removed.
func (q *Queue) Cancel(character, target string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for id, e := range q.entries {
		if e.CharacterID == character && e.Event.TargetQualityID == target {
			delete(q.entries, id)
			n++
		}
	}
	return n
}

// Due returns the entries whose trigger time is at or before now, oldest
// first. They stay queued until removed or rescheduled.
func (q *Queue) Due(now time.Time) []Entry {
	q.mu.Lock()
	var due []Entry
	for _, e := range q.entries {
		if e.Event.Due(now) {
			due = append(due, e)
		}
	}
	q.mu.Unlock()
	sortEntries(due)
	return due
}

// Reschedule replaces a queued event with its new trigger time. It
// reports false when the event is no longer queued, e.g. after a
// concurrent Cancel.
func (q *Queue) Reschedule(ev mutation.PendingEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[ev.ID]
	if !ok {
		return false
	}
	e.Event = ev
	q.entries[ev.ID] = e
	return true
}

// Remove drops events by ID.
func (q *Queue) Remove(ids ...string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, id := range ids {
		delete(q.entries, id)
	}
}

// ForCharacter returns the character's queued events, oldest first.
func (q *Queue) ForCharacter(character string) []mutation.PendingEvent {
	q.mu.Lock()
	var list []Entry
	for _, e := range q.entries {
		if e.CharacterID == character {
			list = append(list, e)
		}
	}
	q.mu.Unlock()
	sortEntries(list)
	events := make([]mutation.PendingEvent, len(list))
	for i, e := range list {
		events[i] = e.Event
	}
	return events
}

// Next returns the earliest trigger time in the queue.
func (q *Queue) Next() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var next time.Time
	found := false
	for _, e := range q.entries {
		if !found || e.Event.TriggerTime.Before(next) {
			next, found = e.Event.TriggerTime, true
		}
	}
	return next, found
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func sortEntries(list []Entry) {
	slices.SortFunc(list, func(a, b Entry) int {
		if c := a.Event.TriggerTime.Compare(b.Event.TriggerTime); c != 0 {
			return c
		}
		return strings.Compare(a.Event.ID, b.Event.ID)
	})
}
