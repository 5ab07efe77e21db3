// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package mutation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PendingEvent is a deferred mutation created by $schedule. The value is
// captured when the event is scheduled.
type PendingEvent struct {
	ID              string        `json:"id" yaml:"id"`
	TargetQualityID string        `json:"targetQualityId" yaml:"target"`
	Op              Op            `json:"op" yaml:"op"`
	Value           string        `json:"value,omitempty" yaml:"value,omitempty"`
	Tag             string        `json:"tag,omitempty" yaml:"tag,omitempty"`
	TriggerTime     time.Time     `json:"triggerTime" yaml:"trigger_time"`
	Recurring       bool          `json:"recurring,omitempty" yaml:"recurring,omitempty"`
	Interval        time.Duration `json:"interval,omitempty" yaml:"interval,omitempty"`
}

// NewEventID returns a fresh pending-event identifier.
func NewEventID() string {
	return uuid.NewString()
}

// Operand returns the event's captured value as an operand.
func (e PendingEvent) Operand() Operand {
	n, _ := strconv.ParseFloat(strings.TrimSpace(e.Value), 64)
	return Operand{Number: n, Text: e.Value}
}

// Due reports whether the event should fire at now.
func (e PendingEvent) Due(now time.Time) bool {
	return !e.TriggerTime.After(now)
}

// Next returns the event rescheduled by one interval. Only meaningful for
// recurring events.
func (e PendingEvent) Next() PendingEvent {
	e.TriggerTime = e.TriggerTime.Add(e.Interval)
	return e
}

func (e PendingEvent) String() string {
	s := fmt.Sprintf("$%s %s %s @ %s", e.TargetQualityID, e.Op, e.Value, e.TriggerTime.Format(time.RFC3339))
	if e.Recurring {
		s += " every " + e.Interval.String()
	}
	return s
}

// Cancellation asks the scheduler to drop every pending event for a quality.
type Cancellation struct {
	TargetQualityID string `json:"targetQualityId"`
}

// Units beyond time.ParseDuration.
var longUnits = map[string]time.Duration{
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
}

// ParseDuration parses a scheduling delay. It accepts Go duration syntax
// ("1h30m") extended with days and weeks ("2d", "1w3d"). A bare number
// is a count of minutes.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative duration %q", s)
		}
		return time.Duration(n * float64(time.Minute)), nil
	}

	var total time.Duration
	rest := strings.ReplaceAll(s, " ", "")
	for rest != "" {
		i := 0
		for i < len(rest) && (rest[i] >= '0' && rest[i] <= '9' || rest[i] == '.') {
			i++
		}
		j := i
		for j < len(rest) && !(rest[j] >= '0' && rest[j] <= '9' || rest[j] == '.') {
			j++
		}
		if i == 0 || j == i {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		num, unit := rest[:i], rest[i:j]
		if scale, ok := longUnits[unit]; ok {
			n, err := strconv.ParseFloat(num, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid duration %q: %w", s, err)
			}
			total += time.Duration(n * float64(scale))
		} else {
			d, err := time.ParseDuration(num + unit)
			if err != nil {
				return 0, fmt.Errorf("invalid duration %q: %w", s, err)
			}
			total += d
		}
		rest = rest[j:]
	}
	return total, nil
}
