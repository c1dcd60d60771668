// Package dispatch is the single entry point for "perform this business
// transaction now if possible, else queue it". It collapses "monitor says
// offline" and "send failed while nominally online" into one path: every
// transient failure ends in a durable enqueue, because a stale online flag
// must never cost a sale record.
package dispatch

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neyyar-dairy/fieldsync/internal/domain"
	"github.com/neyyar-dairy/fieldsync/internal/netmon"
	"github.com/neyyar-dairy/fieldsync/internal/queue"
	"github.com/neyyar-dairy/fieldsync/internal/rpc"
)

// Status says how a submission left the gateway.
type Status string

const (
	// StatusDelivered: the backend accepted the transaction synchronously.
	StatusDelivered Status = "delivered"
	// StatusQueued: the transaction is durably stored for later replay.
	StatusQueued Status = "queued"
)

// Outcome is the discriminated result of Submit.
type Outcome struct {
	Status Status
	// Result carries the backend payload when Status is StatusDelivered.
	Result rpc.Result
	// QueueID is the local queue entry id when Status is StatusQueued.
	QueueID uint
}

var submissions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fieldsync_submissions_total",
		Help: "Business transaction submissions by kind and outcome.",
	},
	[]string{"kind", "outcome"},
)

func init() {
	prometheus.MustRegister(submissions)
}

// Dispatcher routes validated payloads to the backend or the offline queue.
// All collaborators are injected; there is no package-level state beyond
// metrics.
type Dispatcher struct {
	caller  rpc.Caller
	store   *queue.Store
	monitor *netmon.Monitor
	log     zerolog.Logger
}

// New builds a Dispatcher.
func New(caller rpc.Caller, store *queue.Store, monitor *netmon.Monitor, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		caller:  caller,
		store:   store,
		monitor: monitor,
		log:     log.With().Str("component", "dispatch").Logger(),
	}
}

// Submit attempts immediate delivery of p and falls back to the durable
// queue on any transient failure.
//
// Error contract:
//   - *rpc.BusinessError: deterministic rejection, never queued; the caller
//     must surface it to the user.
//   - queue.ErrStorageUnavailable: neither sent nor stored; a hard failure.
//   - nil: the Outcome says whether p was delivered or queued.
//
// rpc.ErrDuplicateSuppressed counts as delivered: the backend already did
// the work on an earlier attempt whose response was lost.
func (d *Dispatcher) Submit(ctx context.Context, p domain.Payload) (Outcome, error) {
	tr := otel.Tracer("dispatch/Dispatcher")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(attribute.String("txn.kind", string(p.Kind()))),
	)
	defer span.End()

	if err := p.Validate(); err != nil {
		return Outcome{}, err
	}

	if d.monitor.IsOnline() {
		res, err := d.caller.Call(ctx, p.Procedure(), p.Params())
		switch {
		case err == nil:
			submissions.WithLabelValues(string(p.Kind()), "delivered").Inc()
			return Outcome{Status: StatusDelivered, Result: res}, nil
		case rpc.IsBusiness(err):
			// Deterministic: retrying yields the same rejection. Surface it.
			submissions.WithLabelValues(string(p.Kind()), "rejected").Inc()
			return Outcome{}, err
		case errors.Is(err, rpc.ErrDuplicateSuppressed):
			submissions.WithLabelValues(string(p.Kind()), "delivered").Inc()
			return Outcome{Status: StatusDelivered, Result: rpc.Result{}}, nil
		default:
			// Transient. Fall through to the queue; the monitor was wrong
			// or the link dropped mid-request.
			d.log.Warn().
				Str("kind", string(p.Kind())).
				Str("client_txn_id", p.TxnID()).
				Err(err).
				Msg("immediate delivery failed, queueing")
		}
	}

	id, err := d.store.Enqueue(ctx, p)
	if err != nil {
		submissions.WithLabelValues(string(p.Kind()), "lost").Inc()
		return Outcome{}, err
	}
	submissions.WithLabelValues(string(p.Kind()), "queued").Inc()
	d.log.Info().
		Str("kind", string(p.Kind())).
		Str("client_txn_id", p.TxnID()).
		Uint("queue_id", id).
		Msg("transaction queued for sync")
	return Outcome{Status: StatusQueued, QueueID: id}, nil
}

// SubmitOnline delivers p without the queue fallback, for administrative
// operations (daily arrival, stock reconciliation) where a blind replay is
// riskier than asking the clerk to retry. Transient failures come back as
// errors.
func (d *Dispatcher) SubmitOnline(ctx context.Context, p domain.Payload) (rpc.Result, error) {
	if err := p.Validate(); err != nil {
		return rpc.Result{}, err
	}
	res, err := d.caller.Call(ctx, p.Procedure(), p.Params())
	if errors.Is(err, rpc.ErrDuplicateSuppressed) {
		return rpc.Result{}, nil
	}
	if err != nil {
		return rpc.Result{}, err
	}
	submissions.WithLabelValues(string(p.Kind()), "delivered").Inc()
	return res, nil
}
