// Package poller drives the query/response cycle against charge
// controllers sharing one serial channel.
package poller

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/blackandwhitetux/solafans-rs485/logger"
	"github.com/blackandwhitetux/solafans-rs485/metrics"
	"github.com/blackandwhitetux/solafans-rs485/solafans"
)

var ErrRetriesExhausted = errors.New("poller: no valid frame within attempt limit")

// Channel is an exclusively owned duplex byte stream, normally a serial
// port opened with a read timeout.
type Channel interface {
	io.Reader
	io.Writer
}

// flusher is implemented by serial ports that can discard buffered input.
type flusher interface {
	Flush() error
}

// Controller is one addressable device on a channel.
type Controller struct {
	Name    string
	Address uint8
}

type Config struct {
	// MaxAttempts bounds the send/receive attempts per poll. 0 retries
	// until a valid frame arrives.
	MaxAttempts int
}

type state int

const (
	stateIdle state = iota
	stateSending
	stateAwaitingResponse
	stateValidating
	stateRetrying
	stateDecoded
)

// Poller queries controllers over a single channel. It is not safe for
// concurrent use; each channel gets its own Poller.
type Poller struct {
	ch      Channel
	cfg     Config
	log     *logger.Logger
	metrics *metrics.Metrics
}

func New(ch Channel, cfg Config, log *logger.Logger, m *metrics.Metrics) (*Poller, error) {
	if ch == nil {
		return nil, errors.New("poller: channel required")
	}
	if cfg.MaxAttempts < 0 {
		return nil, errors.New("poller: max attempts must be >= 0")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Poller{ch: ch, cfg: cfg, log: log, metrics: m}, nil
}

// Poll sends a status query to c and returns the decoded response.
// Short reads and checksum mismatches are retried immediately without
// backoff. Transport errors abort the poll. The context is checked
// between attempts.
func (p *Poller) Poll(ctx context.Context, c Controller) (*solafans.Reading, error) {
	var (
		cmd      solafans.Command
		resp     []byte
		fr       solafans.Frame
		attempts int
		invalid  int
		err      error
	)

	st := stateIdle
	for {
		switch st {
		case stateIdle:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if p.cfg.MaxAttempts > 0 && attempts >= p.cfg.MaxAttempts {
				return nil, fmt.Errorf("%w: %s after %d attempts", ErrRetriesExhausted, c.Name, attempts)
			}
			attempts++
			cmd = solafans.BuildCommand(c.Address, solafans.FunctionStatus)
			st = stateSending

		case stateSending:
			if f, ok := p.ch.(flusher); ok {
				if err := f.Flush(); err != nil {
					p.log.Debugw("flush failed", "controller", c.Name, "err", err)
				}
			}
			if _, err := p.ch.Write(cmd.Bytes()); err != nil {
				return nil, fmt.Errorf("poller: write to %s: %w", c.Name, err)
			}
			st = stateAwaitingResponse

		case stateAwaitingResponse:
			resp, err = solafans.ReadResponse(p.ch)
			if err != nil {
				return nil, fmt.Errorf("poller: read from %s: %w", c.Name, err)
			}
			st = stateValidating

		case stateValidating:
			fr, err = solafans.Validate(resp)
			if err != nil {
				invalid++
				p.metrics.Frame(c.Name, frameResult(err))
				logf := p.log.Debugw
				if invalid > 1 {
					logf = p.log.Warnw
				}
				logf("invalid frame, retrying",
					"controller", c.Name,
					"attempt", attempts,
					"err", err,
					"data", fmt.Sprintf("%X", resp),
				)
				st = stateRetrying
				continue
			}
			p.metrics.Frame(c.Name, metrics.FrameOK)
			st = stateDecoded

		case stateRetrying:
			st = stateIdle

		case stateDecoded:
			return solafans.Decode(fr)
		}
	}
}

func frameResult(err error) string {
	if errors.Is(err, solafans.ErrChecksum) {
		return metrics.FrameChecksum
	}
	return metrics.FrameLength
}
