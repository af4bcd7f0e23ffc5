package poller

import (
	"context"
	"errors"
	"time"

	"github.com/blackandwhitetux/solafans-rs485/solafans"
)

// Handler consumes one reading. It runs on the bus goroutine and must
// return only once the reading has been fully published, so a bus never
// starts a cycle while the previous one is still in flight.
type Handler func(ctx context.Context, c Controller, r *solafans.Reading)

// Bus polls every controller on one channel, in order, once per interval.
type Bus struct {
	name        string
	p           *Poller
	interval    time.Duration
	controllers []Controller
}

func NewBus(name string, p *Poller, interval time.Duration, controllers []Controller) (*Bus, error) {
	if p == nil {
		return nil, errors.New("poller: bus requires a poller")
	}
	if interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if len(controllers) == 0 {
		return nil, errors.New("poller: at least one controller required")
	}
	return &Bus{
		name:        name,
		p:           p,
		interval:    interval,
		controllers: controllers,
	}, nil
}

// PollOnce runs one cycle over all controllers. A controller that fails
// with a transport error is logged and skipped; the remaining controllers
// are still polled. Only context cancellation is returned.
func (b *Bus) PollOnce(ctx context.Context, h Handler) error {
	for _, c := range b.controllers {
		r, err := b.p.Poll(ctx, c)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			b.p.metrics.PollError(c.Name)
			b.p.log.Errorw("poll failed", "bus", b.name, "controller", c.Name, "err", err)
			continue
		}
		b.p.metrics.Reading(c.Name, r)
		h(ctx, c, r)
	}
	return nil
}

// Run polls immediately and then on every tick until ctx is cancelled.
// Ticks that arrive while a cycle is running are dropped.
func (b *Bus) Run(ctx context.Context, h Handler) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		if err := b.PollOnce(ctx, h); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
