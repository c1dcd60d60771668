// Package flush drains the offline queue against the backend: oldest entry
// first, one failure never blocking the rest. Overlapping flushes (a manual
// "sync now" racing the reconnect trigger) are safe: each entry is claimed
// atomically in the store before it is sent, and the backend's idempotency
// token is the final arbiter if a response was lost after commit.
package flush

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/neyyar-dairy/fieldsync/internal/domain"
	"github.com/neyyar-dairy/fieldsync/internal/queue"
	"github.com/neyyar-dairy/fieldsync/internal/rpc"
)

var (
	flushRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsync_flush_entries_total",
			Help: "Queue entries processed by flush runs, by result.",
		},
		[]string{"result"},
	)
	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fieldsync_queue_depth",
			Help: "Transactions currently waiting to sync.",
		},
	)
)

func init() {
	prometheus.MustRegister(flushRuns, queueDepth)
}

// Flusher replays queued transactions through the RPC boundary.
type Flusher struct {
	caller rpc.Caller
	store  *queue.Store
	log    zerolog.Logger
}

// New builds a Flusher over the shared store.
func New(caller rpc.Caller, store *queue.Store, log zerolog.Logger) *Flusher {
	return &Flusher{
		caller: caller,
		store:  store,
		log:    log.With().Str("component", "flush").Logger(),
	}
}

// Flush attempts redelivery of every pending entry in enqueue order and
// reports counts. Per-entry results:
//
//   - delivered (or duplicate-suppressed): entry removed, Succeeded++.
//   - transient failure: entry released back to pending, Failed++, continue.
//   - deterministic rejection: entry moved to the dead-letter table,
//     DeadLettered++. Replaying it forever would never succeed.
//   - claimed by a concurrent flush: skipped entirely, not counted.
//
// Storage failures abort the run; a store that cannot be read cannot be
// drained.
func (f *Flusher) Flush(ctx context.Context) (domain.FlushReport, error) {
	tr := otel.Tracer("flush/Flusher")
	ctx, span := tr.Start(ctx, "Flush")
	defer span.End()

	var report domain.FlushReport

	// A run whose context is already done reports zero attempts; it must not
	// surface as a storage error.
	if ctx.Err() != nil {
		return report, nil
	}

	entries, err := f.store.ListPending(ctx)
	if err != nil {
		return report, err
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}

		claimed, err := f.store.Claim(ctx, entry.ID)
		if err != nil {
			return report, err
		}
		if !claimed {
			continue
		}
		report.Attempted++

		switch f.deliver(ctx, entry) {
		case deliveryOK:
			if err := f.store.Remove(ctx, entry.ID); err != nil {
				return report, err
			}
			report.Succeeded++
			flushRuns.WithLabelValues("succeeded").Inc()
		case deliveryRejected:
			report.DeadLettered++
			flushRuns.WithLabelValues("dead_lettered").Inc()
		default:
			if err := f.store.Release(ctx, entry.ID); err != nil {
				return report, err
			}
			report.Failed++
			flushRuns.WithLabelValues("failed").Inc()
		}
	}

	if n, err := f.store.Count(ctx); err == nil {
		queueDepth.Set(float64(n))
	}

	span.SetAttributes(
		attribute.Int("flush.attempted", report.Attempted),
		attribute.Int("flush.succeeded", report.Succeeded),
		attribute.Int("flush.failed", report.Failed),
	)
	f.log.Info().
		Int("attempted", report.Attempted).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("dead_lettered", report.DeadLettered).
		Msg("flush complete")
	return report, nil
}

type deliveryResult int

const (
	deliveryOK deliveryResult = iota
	deliveryFailed
	deliveryRejected
)

// deliver replays one claimed entry. Undecodable payloads are dead-lettered:
// they can never replay, and leaving them pending wedges the queue head.
func (f *Flusher) deliver(ctx context.Context, entry domain.QueueEntry) deliveryResult {
	p, err := domain.DecodePayload(entry.Kind, entry.Payload)
	if err != nil {
		f.log.Error().Uint("queue_id", entry.ID).Err(err).Msg("corrupt queue entry")
		if dlErr := f.store.DeadLetter(ctx, entry, err.Error()); dlErr != nil {
			f.log.Error().Uint("queue_id", entry.ID).Err(dlErr).Msg("dead-letter failed")
			return deliveryFailed
		}
		return deliveryRejected
	}

	_, err = f.caller.Call(ctx, p.Procedure(), p.Params())
	switch {
	case err == nil, errors.Is(err, rpc.ErrDuplicateSuppressed):
		return deliveryOK
	case rpc.IsBusiness(err):
		f.log.Warn().
			Uint("queue_id", entry.ID).
			Str("kind", string(entry.Kind)).
			Err(err).
			Msg("backend rejected queued transaction")
		if dlErr := f.store.DeadLetter(ctx, entry, err.Error()); dlErr != nil {
			f.log.Error().Uint("queue_id", entry.ID).Err(dlErr).Msg("dead-letter failed")
			return deliveryFailed
		}
		return deliveryRejected
	default:
		f.log.Debug().Uint("queue_id", entry.ID).Err(err).Msg("redelivery failed")
		return deliveryFailed
	}
}
