// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package scribe

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"nickandperla.net/scribescript/internal/diag"
	"nickandperla.net/scribescript/internal/eval"
	"nickandperla.net/scribescript/internal/mutation"
	"nickandperla.net/scribescript/internal/random"
	"nickandperla.net/scribescript/internal/schedule"
)

// ErrNilState is returned when a call is given no state to work on.
var ErrNilState = errors.New("scribe: nil state")

// Engine evaluates ScribeScript fields against character state.
type Engine struct {
	evaluator      *eval.Evaluator
	registry       Registry
	world          State
	store          Store
	queue          *schedule.Queue
	logger         *zap.Logger
	rng            random.Source
	rolls          random.Source
	clock          func() time.Time
	recursionLimit int
	macros         map[string]MacroFunc
}

// New creates an Engine with the given options.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: zap.NewNop(),
		clock:  time.Now,
		macros: make(map[string]MacroFunc),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.store != nil {
		if e.registry == nil {
			e.registry = e.store
		}
		if e.world == nil {
			w, err := e.store.World()
			if err != nil {
				return nil, fmt.Errorf("load world: %w", err)
			}
			e.world = w
		}
	}

	evalOpts := []eval.Option{
		eval.WithLogger(e.logger),
		eval.WithClock(e.clock),
		eval.WithRecursionLimit(e.recursionLimit),
	}
	if e.registry != nil {
		evalOpts = append(evalOpts, eval.WithRegistry(e.registry))
	}
	if e.world != nil {
		evalOpts = append(evalOpts, eval.WithWorld(e.world))
	}
	if e.rng != nil {
		evalOpts = append(evalOpts, eval.WithRandom(e.rng))
	}
	if e.rolls != nil {
		evalOpts = append(evalOpts, eval.WithRollSource(e.rolls))
	}
	for name, fn := range e.macros {
		evalOpts = append(evalOpts, eval.WithMacro(name, fn))
	}
	e.evaluator = eval.New(evalOpts...)
	return e, nil
}

// Close releases the store, if any.
func (e *Engine) Close() error {
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// TextResult is a rendered text field.
type TextResult struct {
	Text     string
	Warnings diag.Warnings
}

// EvaluateText renders a text field.
func (e *Engine) EvaluateText(template string, state State, opts ...CallOption) (TextResult, error) {
	if state == nil {
		return TextResult{}, ErrNilState
	}
	c := e.evaluator.NewContext(state, opts...)
	text := e.evaluator.Text(c, template)
	return TextResult{Text: text, Warnings: c.Warnings()}, nil
}

// ConditionResult is an evaluated visibility or unlock condition.
type ConditionResult struct {
	Value    bool
	Warnings diag.Warnings
}

// EvaluateCondition evaluates a condition. An empty condition is true.
func (e *Engine) EvaluateCondition(expr string, state State, opts ...CallOption) (ConditionResult, error) {
	if state == nil {
		return ConditionResult{}, ErrNilState
	}
	c := e.evaluator.NewContext(state, opts...)
	v := e.evaluator.Condition(c, expr)
	return ConditionResult{Value: v, Warnings: c.Warnings()}, nil
}

// ChallengeResult is a resolved challenge.
type ChallengeResult struct {
	Success  bool
	Chance   float64
	Roll     int
	Warnings diag.Warnings
}

// EvaluateChallenge resolves a challenge field. A roll outside 1–100
// draws a fresh Resolution Roll.
func (e *Engine) EvaluateChallenge(expr string, state State, roll int, opts ...CallOption) (ChallengeResult, error) {
	if state == nil {
		return ChallengeResult{}, ErrNilState
	}
	c := e.evaluator.NewContext(state, append(opts, eval.FixedRoll(roll))...)
	r := e.evaluator.Challenge(c, expr)
	return ChallengeResult{Success: r.Success, Chance: r.Chance, Roll: r.Roll, Warnings: c.Warnings()}, nil
}

// EffectResult is what an effect field did, in application order.
type EffectResult struct {
	Mutations []mutation.StateMutation
	Scheduled []mutation.PendingEvent
	Cancelled []mutation.Cancellation
	Warnings  diag.Warnings
}

// ApplyEffect applies an effect field to state in place.
func (e *Engine) ApplyEffect(expr string, state State, opts ...CallOption) (EffectResult, error) {
	if state == nil {
		return EffectResult{}, ErrNilState
	}
	c := e.evaluator.NewContext(state, opts...)
	r := e.evaluator.Effect(c, expr)
	return EffectResult{Mutations: r.Mutations, Scheduled: r.Scheduled, Cancelled: r.Cancelled, Warnings: c.Warnings()}, nil
}

// FireResult is the outcome of firing due events.
type FireResult = eval.FireResult

// FireDue applies the events in events that are due at now to state.
func (e *Engine) FireDue(state State, events []mutation.PendingEvent, now time.Time) (FireResult, error) {
	if state == nil {
		return FireResult{}, ErrNilState
	}
	return e.evaluator.FireDue(state, events, now), nil
}
