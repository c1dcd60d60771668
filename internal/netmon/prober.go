package netmon

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Pinger is the reachability probe the Prober runs, usually rpc.Client.Ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober drives a Monitor from actual backend reachability. While online it
// re-probes at a steady interval; once a probe fails it flips the monitor
// offline and backs off exponentially (with jitter) until the backend answers
// again, which is the reconnect event the flusher subscribes to.
type Prober struct {
	monitor  *Monitor
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	log      zerolog.Logger
}

// NewProber wires a probe loop for monitor. interval is the steady-state
// probe period while online; timeout bounds each individual probe.
func NewProber(monitor *Monitor, pinger Pinger, interval, timeout time.Duration, log zerolog.Logger) *Prober {
	return &Prober{
		monitor:  monitor,
		pinger:   pinger,
		interval: interval,
		timeout:  timeout,
		log:      log.With().Str("component", "prober").Logger(),
	}
}

// Run probes until ctx is cancelled. It blocks; start it on its own
// goroutine.
func (p *Prober) Run(ctx context.Context) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = p.interval
	bo.MaxElapsedTime = 0 // keep probing for the lifetime of the process

	for {
		reachable := p.probe(ctx)
		p.monitor.SetOnline(reachable)

		var wait time.Duration
		if reachable {
			bo.Reset()
			wait = p.interval
		} else {
			wait = bo.NextBackOff()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (p *Prober) probe(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.pinger.Ping(pctx); err != nil {
		if ctx.Err() == nil {
			p.log.Debug().Err(err).Msg("backend unreachable")
		}
		return false
	}
	return true
}
