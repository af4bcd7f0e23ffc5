// Package publish pushes decoded readings and combined values to a state
// store, one named sensor at a time.
package publish

import (
	"context"
	"sync/atomic"

	"github.com/blackandwhitetux/solafans-rs485/logger"
	"github.com/blackandwhitetux/solafans-rs485/metrics"
	"golang.org/x/sync/errgroup"
)

// Sink stores one sensor value. Publishing the same sensor twice
// overwrites the previous value.
type Sink interface {
	Publish(ctx context.Context, s Sensor) error
}

// FanOut publishes every sensor concurrently, at most limit at a time
// (unlimited when limit <= 0), and returns once all of them finished.
// Failures do not affect the other sensors; each one is passed to onErr,
// which may be called from several goroutines. The number of failed
// sensors is returned.
func FanOut(ctx context.Context, sink Sink, sensors []Sensor, limit int, onErr func(Sensor, error)) int {
	var (
		g      errgroup.Group
		failed int32
	)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, s := range sensors {
		g.Go(func() error {
			if err := sink.Publish(ctx, s); err != nil {
				atomic.AddInt32(&failed, 1)
				if onErr != nil {
					onErr(s, err)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(atomic.LoadInt32(&failed))
}

// Publisher fans sensors out to a sink, logging and counting failures.
type Publisher struct {
	sink    Sink
	limit   int
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewPublisher(sink Sink, limit int, log *logger.Logger, m *metrics.Metrics) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{sink: sink, limit: limit, log: log, metrics: m}
}

// Publish blocks until every sensor has been attempted.
func (p *Publisher) Publish(ctx context.Context, sensors []Sensor) {
	failed := FanOut(ctx, p.sink, sensors, p.limit, func(s Sensor, err error) {
		p.log.Warnw("failed to update sensor", "entity", s.EntityID(), "err", err)
	})
	p.metrics.Published(len(sensors)-failed, failed)
	p.log.Debugw("published sensors", "count", len(sensors), "failed", failed)
}
