// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"slices"
	"time"

	"go.uber.org/zap"

	"nickandperla.net/scribescript/internal/diag"
	"nickandperla.net/scribescript/internal/mutation"
	"nickandperla.net/scribescript/internal/quality"
)

// MaxCatchUp bounds how many missed intervals of one recurring event
// fire in a single pass.
const MaxCatchUp = 64

// FireResult is the outcome of firing due events.
type FireResult struct {
	Mutations   []mutation.StateMutation
	Fired       []mutation.PendingEvent // Events that fired and are finished
	Rescheduled []mutation.PendingEvent // Recurring events moved to their next trigger
	Skipped     []mutation.PendingEvent // Events dropped because their target is gone
	Pending     []mutation.PendingEvent // Everything still waiting, rescheduled included
	Warnings    diag.Warnings
}

// FireDue applies every event in events whose trigger time is at or
// before now, in trigger order, to state. Recurring events fire once per
// elapsed interval, up to MaxCatchUp, then move to their next trigger.
func (e *Evaluator) FireDue(state quality.State, events []mutation.PendingEvent, now time.Time) FireResult {
	var res FireResult
	queue := slices.Clone(events)
	slices.SortStableFunc(queue, func(a, b mutation.PendingEvent) int {
		return a.TriggerTime.Compare(b.TriggerTime)
	})

	for _, ev := range queue {
		if !ev.Due(now) {
			res.Pending = append(res.Pending, ev)
			continue
		}
		q, ok := state.Get(ev.TargetQualityID)
		if !ok {
			w := diag.Newf(diag.ScheduledTargetMissing, ev.String(), "target quality %q no longer exists", ev.TargetQualityID)
			res.Warnings.Add(w)
			res.Skipped = append(res.Skipped, ev)
			e.logger.Warn("scheduled event skipped",
				zap.String("event", ev.ID),
				zap.String("target", ev.TargetQualityID),
			)
			continue
		}

		fires, elapsed := 1, 1
		if ev.Recurring && ev.Interval > 0 {
			elapsed = int(now.Sub(ev.TriggerTime)/ev.Interval) + 1
			fires = min(elapsed, MaxCatchUp)
		}
		for range fires {
			m, w := mutation.Apply(q, ev.Op, ev.Operand(), ev.Tag)
			if w != nil {
				res.Warnings.Add(w)
				break
			}
			res.Mutations = append(res.Mutations, m)
		}

		if !ev.Recurring || ev.Interval <= 0 {
			res.Fired = append(res.Fired, ev)
			continue
		}
		next := ev
		next.TriggerTime = ev.TriggerTime.Add(time.Duration(elapsed) * ev.Interval)
		res.Rescheduled = append(res.Rescheduled, next)
		res.Pending = append(res.Pending, next)
	}

	if len(res.Mutations) > 0 || len(res.Skipped) > 0 {
		e.logger.Info("fired scheduled events",
			zap.Int("mutations", len(res.Mutations)),
			zap.Int("fired", len(res.Fired)),
			zap.Int("rescheduled", len(res.Rescheduled)),
			zap.Int("skipped", len(res.Skipped)),
		)
	}
	return res
}
