// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package schedule

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the poll period when none is configured.
const DefaultInterval = time.Minute

// Handler receives the entries due at now. It owns removing or
// rescheduling them on the queue.
type Handler func(ctx context.Context, now time.Time, due []Entry) error

// Poller periodically hands due entries to a Handler.
type Poller struct {
	queue    *Queue
	handler  Handler
	interval time.Duration
	clock    func() time.Time
	logger   *zap.Logger
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithInterval sets the poll period.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) PollerOption {
	return func(p *Poller) { p.clock = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) PollerOption {
	return func(p *Poller) { p.logger = l }
}

// NewPoller creates a poller over queue.
func NewPoller(queue *Queue, handler Handler, opts ...PollerOption) *Poller {
	p := &Poller{
		queue:    queue,
		handler:  handler,
		interval: DefaultInterval,
		clock:    time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Poll runs one pass: due entries, if any, go to the handler.
func (p *Poller) Poll(ctx context.Context) error {
	now := p.clock()
	due := p.queue.Due(now)
	if len(due) == 0 {
		return nil
	}
	p.logger.Debug("pending events due", zap.Int("count", len(due)), zap.Time("now", now))
	return p.handler(ctx, now, due)
}

// Run polls immediately and then on every tick until ctx is done.
// Handler errors are logged and do not stop the loop.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Error("poll failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
