// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package scribe

import (
	"strings"

	"go.uber.org/zap"

	"nickandperla.net/scribescript/internal/diag"
)

// Branch is the outcome half of an action.
type Branch struct {
	Text   string `yaml:"text" json:"text"`
	Effect string `yaml:"effect" json:"effect"`
}

// Action is one option a player can choose.
type Action struct {
	ID        string `yaml:"id" json:"id"`
	Condition string `yaml:"condition" json:"condition"` // Unlock condition; empty is always open
	Challenge string `yaml:"challenge" json:"challenge"` // Empty means the action always succeeds
	Success   Branch `yaml:"success" json:"success"`
	Failure   Branch `yaml:"failure" json:"failure"`
}

// Resolution is the outcome of resolving an action.
type Resolution struct {
	Locked   bool // The unlock condition was false; nothing was applied
	Success  bool
	Chance   float64
	Roll     int
	Text     string
	Effect   EffectResult
	Warnings diag.Warnings
}

// Resolve plays one action against state: the challenge first, then the
// matching branch's effect, then its text. Every step shares one
// Resolution Roll and one alias scope.
func (e *Engine) Resolve(state State, a Action, opts ...CallOption) (Resolution, error) {
	if state == nil {
		return Resolution{}, ErrNilState
	}
	c := e.evaluator.NewContext(state, opts...)

	if !e.evaluator.Condition(c, a.Condition) {
		return Resolution{Locked: true, Warnings: c.Warnings()}, nil
	}

	res := Resolution{Success: true, Chance: 100}
	if strings.TrimSpace(a.Challenge) != "" {
		r := e.evaluator.Challenge(c, a.Challenge)
		res.Success, res.Chance, res.Roll = r.Success, r.Chance, r.Roll
	}
	branch := a.Success
	if !res.Success {
		branch = a.Failure
	}

	fx := e.evaluator.Effect(c, branch.Effect)
	res.Effect = EffectResult{Mutations: fx.Mutations, Scheduled: fx.Scheduled, Cancelled: fx.Cancelled}
	res.Text = e.evaluator.Text(c, branch.Text)
	res.Warnings = c.Warnings()
	res.Effect.Warnings = res.Warnings

	e.logger.Debug("action resolved",
		zap.String("action", a.ID),
		zap.Bool("success", res.Success),
		zap.Int("roll", res.Roll),
		zap.Int("mutations", len(res.Effect.Mutations)),
	)
	return res, nil
}
