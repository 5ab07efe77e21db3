// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package scribe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"nickandperla.net/scribescript/internal/schedule"
	"nickandperla.net/scribescript/internal/store"
)

// ErrNoStore is returned by calls that need persistence when the engine
// has no store.
var ErrNoStore = errors.New("scribe: no store configured")

// Play resolves an action for a stored character and commits the result:
// changed qualities, the mutation log and pending-event changes. The
// queue, if configured, is updated after the commit succeeds.
func (e *Engine) Play(character string, a Action, opts ...CallOption) (Resolution, error) {
	if e.store == nil {
		return Resolution{}, ErrNoStore
	}
	state, err := e.store.Character(character)
	if err != nil {
		return Resolution{}, fmt.Errorf("load character %q: %w", character, err)
	}
	res, err := e.Resolve(state, a, opts...)
	if err != nil || res.Locked {
		return res, err
	}

	batch := store.Batch{
		Mutations: res.Effect.Mutations,
		Scheduled: res.Effect.Scheduled,
		Cancelled: res.Effect.Cancelled,
	}
	if err := e.store.Commit(character, state, batch); err != nil {
		return res, fmt.Errorf("commit %q: %w", character, err)
	}
	if e.queue != nil {
		for _, c := range res.Effect.Cancelled {
			e.queue.Cancel(character, c.TargetQualityID)
		}
		e.queue.Add(character, res.Effect.Scheduled...)
	}
	return res, nil
}

// LoadQueue replaces the configured queue's contents with the store's
// pending events, so events cancelled or fired elsewhere are dropped.
func (e *Engine) LoadQueue() error {
	if e.store == nil {
		return ErrNoStore
	}
	if e.queue == nil {
		return errors.New("scribe: no queue configured")
	}
	entries, err := e.store.PendingEvents()
	if err != nil {
		return fmt.Errorf("load pending events: %w", err)
	}
	e.queue.Replace(entries)
	return nil
}

// DueHandler returns a schedule.Handler that fires due events per
// character, commits the results and updates the queue.
func (e *Engine) DueHandler() schedule.Handler {
	return func(ctx context.Context, now time.Time, due []schedule.Entry) error {
		if e.store == nil {
			return ErrNoStore
		}
		byCharacter := make(map[string][]schedule.Entry)
		var order []string
		for _, en := range due {
			if _, ok := byCharacter[en.CharacterID]; !ok {
				order = append(order, en.CharacterID)
			}
			byCharacter[en.CharacterID] = append(byCharacter[en.CharacterID], en)
		}

		var errs []error
		for _, character := range order {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := e.fireFor(character, byCharacter[character], now); err != nil {
				e.logger.Error("firing events failed", zap.String("character", character), zap.Error(err))
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

func (e *Engine) fireFor(character string, entries []schedule.Entry, now time.Time) error {
	state, err := e.store.Character(character)
	if err != nil {
		return fmt.Errorf("load character %q: %w", character, err)
	}
	events, gone, err := e.stillPending(entries)
	if err != nil {
		return err
	}
	if e.queue != nil {
		for _, ev := range events {
			e.queue.Reschedule(ev)
		}
	}
	if len(gone) > 0 {
		e.logger.Debug("skipping events no longer pending",
			zap.String("character", character),
			zap.Strings("ids", gone),
		)
		if e.queue != nil {
			e.queue.Remove(gone...)
		}
	}
	if len(events) == 0 {
		return nil
	}
	res := e.evaluator.FireDue(state, events, now)

	var done []string
	for _, ev := range res.Fired {
		done = append(done, ev.ID)
	}
	for _, ev := range res.Skipped {
		done = append(done, ev.ID)
	}
	batch := store.Batch{Mutations: res.Mutations, Rescheduled: res.Rescheduled, Fired: done}
	if err := e.store.Commit(character, state, batch); err != nil {
		return fmt.Errorf("commit %q: %w", character, err)
	}
	if e.queue != nil {
		e.queue.Remove(done...)
		for _, ev := range res.Rescheduled {
			e.queue.Reschedule(ev)
		}
	}
	return nil
}

// stillPending checks queued entries against the store and returns the
// stored events that remain, plus the IDs of those cancelled or fired
// by another process since the queue was loaded.
func (e *Engine) stillPending(entries []schedule.Entry) ([]Event, []string, error) {
	stored, err := e.store.PendingEvents()
	if err != nil {
		return nil, nil, fmt.Errorf("load pending events: %w", err)
	}
	byID := make(map[string]Event, len(stored))
	for _, en := range stored {
		byID[en.Event.ID] = en.Event
	}
	var (
		events []Event
		gone   []string
	)
	for _, en := range entries {
		ev, ok := byID[en.Event.ID]
		if !ok {
			gone = append(gone, en.Event.ID)
			continue
		}
		events = append(events, ev)
	}
	return events, gone, nil
}
