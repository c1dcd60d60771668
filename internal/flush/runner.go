package flush

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/neyyar-dairy/fieldsync/internal/netmon"
)

// Runner triggers flushes automatically: on every offline→online transition
// of the monitor, and on a periodic timer as a fallback for the case where
// connectivity never formally "transitioned" (e.g. the backend was up the
// whole time but a single request failed).
type Runner struct {
	flusher  *Flusher
	monitor  *netmon.Monitor
	interval time.Duration
	kick     chan struct{}
	log      zerolog.Logger
}

// NewRunner builds a Runner; interval <= 0 disables the periodic trigger.
func NewRunner(flusher *Flusher, monitor *netmon.Monitor, interval time.Duration, log zerolog.Logger) *Runner {
	return &Runner{
		flusher:  flusher,
		monitor:  monitor,
		interval: interval,
		kick:     make(chan struct{}, 1),
		log:      log.With().Str("component", "flush-runner").Logger(),
	}
}

// Kick requests an asynchronous flush. Coalesces: if a flush is already
// pending, the request is dropped rather than stacked.
func (r *Runner) Kick() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Run subscribes to reconnect events and services the trigger channel until
// ctx is cancelled. It blocks; start it on its own goroutine.
func (r *Runner) Run(ctx context.Context) {
	unsubscribe := r.monitor.Subscribe(func(online bool) {
		if online {
			r.log.Info().Msg("reconnected, scheduling flush")
			r.Kick()
		}
	})
	defer unsubscribe()

	var tick <-chan time.Time
	if r.interval > 0 {
		t := time.NewTicker(r.interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.kick:
		case <-tick:
			if !r.monitor.IsOnline() {
				continue
			}
		}
		if _, err := r.flusher.Flush(ctx); err != nil && ctx.Err() == nil {
			r.log.Error().Err(err).Msg("flush run failed")
		}
	}
}
