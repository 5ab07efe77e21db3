// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package eval implements the ScribeScript evaluator.
//
// An Evaluator holds the configuration shared by every call: the
// quality-definition registry, world qualities, random sources, clock,
// macro table and logger. Each outer call (one option click, one
// rendered field) runs against a Context that carries the mutable
// character state, the alias scope, the recursion depth and the lazily
// generated Resolution Roll.
package eval

import (
	"time"

	"go.uber.org/zap"

	"nickandperla.net/scribescript/internal/diag"
	"nickandperla.net/scribescript/internal/quality"
	"nickandperla.net/scribescript/internal/random"
)

// DefaultRecursionLimit bounds description lookups and double-brace
// re-parses.
const DefaultRecursionLimit = 8

// Evaluator interprets ScribeScript fields.
type Evaluator struct {
	registry       quality.Registry
	world          quality.State
	rng            random.Source // Independent draws: ~, %pick, $luck, random alternatives
	rollSource     random.Source // Resolution Roll
	clock          func() time.Time
	logger         *zap.Logger
	recursionLimit int
	macros         map[string]MacroFunc
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithRegistry sets the quality-definition registry.
func WithRegistry(r quality.Registry) Option {
	return func(e *Evaluator) { e.registry = r }
}

// WithWorld sets the world qualities readable as #id.
func WithWorld(w quality.State) Option {
	return func(e *Evaluator) { e.world = w }
}

// WithRandom sets the independent random source.
func WithRandom(src random.Source) Option {
	return func(e *Evaluator) { e.rng = src }
}

// WithRollSource sets the source of Resolution Rolls.
func WithRollSource(src random.Source) Option {
	return func(e *Evaluator) { e.rollSource = src }
}

// WithClock sets the time source used for scheduling.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) { e.clock = now }
}

// WithLogger sets the logger for diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// WithRecursionLimit sets the maximum recursion depth.
func WithRecursionLimit(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.recursionLimit = n
		}
	}
}

// WithMacro registers or replaces a macro handler.
func WithMacro(name string, fn MacroFunc) Option {
	return func(e *Evaluator) { e.macros[name] = fn }
}

// New creates an Evaluator with the built-in macros.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		registry:       quality.Empty,
		world:          quality.State{},
		clock:          time.Now,
		logger:         zap.NewNop(),
		recursionLimit: DefaultRecursionLimit,
		macros:         builtinMacros(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = random.NewDefaultSource()
	}
	if e.rollSource == nil {
		e.rollSource = e.rng
	}
	return e
}

// Registry returns the configured definition registry.
func (e *Evaluator) Registry() quality.Registry {
	return e.registry
}

// Logger returns the configured logger.
func (e *Evaluator) Logger() *zap.Logger {
	return e.logger
}

// Context is the per-call evaluation state.
type Context struct {
	State quality.State
	Self  *quality.Quality
	Depth int

	eval     *Evaluator
	aliases  map[string]Value
	roll     int
	now      time.Time
	effect   bool
	warnings diag.Warnings
	out      EffectResult
}

// CallOption configures a Context.
type CallOption func(*Context)

// FixedRoll pins the Resolution Roll (1–100) for the call.
func FixedRoll(roll int) CallOption {
	return func(c *Context) { c.roll = roll }
}

// SelfQuality sets the quality $self refers to.
func SelfQuality(q *quality.Quality) CallOption {
	return func(c *Context) { c.Self = q }
}

// StartDepth sets the initial recursion depth.
func StartDepth(depth int) CallOption {
	return func(c *Context) { c.Depth = depth }
}

// At sets the evaluation time used for scheduling.
func At(now time.Time) CallOption {
	return func(c *Context) { c.now = now }
}

// NewContext creates a Context over state. A nil state is replaced with
// an empty one.
func (e *Evaluator) NewContext(state quality.State, opts ...CallOption) *Context {
	if state == nil {
		state = quality.State{}
	}
	c := &Context{
		State:   state,
		eval:    e,
		aliases: make(map[string]Value),
		now:     e.clock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Roll returns the Resolution Roll, generating it on first use.
func (c *Context) Roll() int {
	if c.roll < 1 || c.roll > 100 {
		c.roll = random.Roll(c.eval.rollSource)
	}
	return c.roll
}

// Now returns the evaluation time.
func (c *Context) Now() time.Time {
	return c.now
}

// Alias returns the value bound to @name.
func (c *Context) Alias(name string) (Value, bool) {
	v, ok := c.aliases[name]
	return v, ok
}

// SetAlias binds @name for the rest of the call.
func (c *Context) SetAlias(name string, v Value) {
	c.aliases[name] = v
}

// Warnings returns the diagnostics collected so far.
func (c *Context) Warnings() diag.Warnings {
	return c.warnings
}

// Warn records a diagnostic.
func (c *Context) Warn(w *diag.Error) {
	if w == nil {
		return
	}
	c.warnings.Add(w)
	c.eval.logger.Debug("scribescript diagnostic",
		zap.String("code", string(w.Code)),
		zap.String("field", w.Field),
		zap.String("message", w.Message),
	)
}

func (c *Context) warnAll(ws diag.Warnings) {
	for _, w := range ws {
		c.Warn(w)
	}
}

// Evaluator returns the evaluator that owns the context.
func (c *Context) Evaluator() *Evaluator {
	return c.eval
}
