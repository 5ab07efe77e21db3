// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package scribe provides the public API for the ScribeScript runtime.
package scribe

import (
	"time"

	"go.uber.org/zap"

	"nickandperla.net/scribescript/internal/eval"
	"nickandperla.net/scribescript/internal/mutation"
	"nickandperla.net/scribescript/internal/quality"
	"nickandperla.net/scribescript/internal/random"
	"nickandperla.net/scribescript/internal/schedule"
	"nickandperla.net/scribescript/internal/store"
)

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry sets the quality-definition registry.
func WithRegistry(r Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithWorld sets the read-only world qualities (#id).
func WithWorld(w State) Option {
	return func(e *Engine) { e.world = w }
}

// WithStore configures persistence. Unless overridden, the store also
// serves as the registry and the source of world qualities.
func WithStore(s Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithQueue sets the pending-event queue that Play and the due handler
// keep in sync with the store.
func WithQueue(q *schedule.Queue) Option {
	return func(e *Engine) { e.queue = q }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithSeed makes both random streams deterministic.
func WithSeed(seed int64) Option {
	return func(e *Engine) {
		e.rng = random.NewSource(seed)
		e.rolls = random.NewSource(seed + 1)
	}
}

// WithRandom sets the independent random source used by ranges, picks
// and random alternatives.
func WithRandom(src random.Source) Option {
	return func(e *Engine) { e.rng = src }
}

// WithRollSource sets the source of Resolution Rolls.
func WithRollSource(src random.Source) Option {
	return func(e *Engine) { e.rolls = src }
}

// WithClock sets the time source used for scheduling.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.clock = now }
}

// WithRecursionLimit sets the maximum recursion depth.
func WithRecursionLimit(n int) Option {
	return func(e *Engine) { e.recursionLimit = n }
}

// WithMacro registers a custom %macro handler.
func WithMacro(name string, fn MacroFunc) Option {
	return func(e *Engine) { e.macros[name] = fn }
}

// CallOption configures a single evaluation.
type CallOption = eval.CallOption

// Roll pins the Resolution Roll (1–100) for one call.
func Roll(n int) CallOption { return eval.FixedRoll(n) }

// Self sets the quality $self refers to.
func Self(q *Quality) CallOption { return eval.SelfQuality(q) }

// Depth sets the starting recursion depth.
func Depth(n int) CallOption { return eval.StartDepth(n) }

// At sets the evaluation time used for scheduling.
func At(t time.Time) CallOption { return eval.At(t) }

// Registry resolves quality definitions.
type Registry = quality.Registry

// Definition is an authored quality definition.
type Definition = quality.Definition

// Quality is one piece of character or world state.
type Quality = quality.Quality

// State maps quality IDs to qualities.
type State = quality.State

// Store interface for custom stores.
type Store = store.Store

// MacroFunc is a %macro handler.
type MacroFunc = eval.MacroFunc

// Event is a pending scheduled mutation.
type Event = mutation.PendingEvent
