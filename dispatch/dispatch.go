// Package dispatch wires an incoming subscription to the Policy Retrieval
// Point and the evaluator: it retrieves the matching documents, starts one
// evaluation stream per document, combines them with the PDP's top-level
// algorithm, deduplicates on structural equality, and tracks the
// subscription's own state across that lifetime.
package dispatch

import (
	"context"

	"github.com/sapl-run/sapl-core/combine"
	"github.com/sapl-run/sapl-core/decision"
	"github.com/sapl-run/sapl-core/evalctx"
	"github.com/sapl-run/sapl-core/evaluator"
	"github.com/sapl-run/sapl-core/prp"
	"github.com/sapl-run/sapl-core/stream"
)

// Dispatcher tracks one subscription's state across its lifetime: it starts
// Subscribed, moves to SubscribedIndeterminate the first time an aggregate
// decision comes back Indeterminate, and moves to Cancelled once its
// Decisions stream is torn down. The transition is one-way in each
// dimension — State never reports Subscribed again after an indeterminate
// decision, and never leaves Cancelled.
type Dispatcher struct {
	state atomicState
}

// NewDispatcher returns a Dispatcher in the Subscribed state.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// State reports the dispatcher's current position in the subscription
// state machine.
func (d *Dispatcher) State() State { return d.state.load() }

// Dispatch retrieves source's matching-documents stream for ctx.Subscription
// and evaluates it continuously: every new MatchingDocuments snapshot
// cancels the in-flight evaluation of the previous one and starts fresh, so
// obligations and advice from different snapshots are never combined into
// one aggregate decision. Cancelling the returned stream's context
// unsubscribes from every contained document's evaluation and from the
// retrieval point, and moves State to Cancelled.
func (d *Dispatcher) Dispatch(ctx evalctx.Context, source prp.Source, algo combine.Algorithm) stream.Source[decision.Decision] {
	return func(cctx context.Context) <-chan decision.Decision {
		out := make(chan decision.Decision)
		go func() {
			defer close(out)
			defer d.state.markCancelled()

			cctx2, cancelAll := context.WithCancel(cctx)
			defer cancelAll()

			var childCancel context.CancelFunc
			for snap := range source.RetrievePolicies(ctx.Subscription)(cctx2) {
				if childCancel != nil {
					childCancel()
					childCancel = nil
				}
				childCtx, cancel := context.WithCancel(cctx2)
				childCancel = cancel
				childOut := evaluateSnapshot(snap, ctx, childCtx, algo)
				if !forwardUntilReplaced(cctx, childCtx, out, childOut, &d.state) {
					return
				}
			}
		}()
		return out
	}
}

func evaluateSnapshot(snap prp.MatchingDocuments, ctx evalctx.Context, cctx context.Context, algo combine.Algorithm) <-chan decision.Decision {
	if len(snap.Matches) == 0 {
		ch := make(chan decision.Decision, 1)
		ch <- decision.NotApplicableDecision()
		close(ch)
		return ch
	}
	srcs := make([]stream.Source[decision.Decision], len(snap.Matches))
	for i, doc := range snap.Matches {
		srcs[i] = evaluator.Evaluate(doc, ctx)
	}
	combined := stream.CombineLatest(srcs...)
	aggregated := stream.Map(combined, algo)
	return stream.Distinct(aggregated, decision.Decision.Equal)(cctx)
}

// forwardUntilReplaced relays childOut to out until it closes (a new
// MatchingDocuments snapshot replaced it), the outer subscription context
// is cancelled, or the caller requested shutdown via cctx.
func forwardUntilReplaced(cctx, childCtx context.Context, out chan<- decision.Decision, childOut <-chan decision.Decision, st *atomicState) bool {
	for {
		select {
		case d, ok := <-childOut:
			if !ok {
				return true
			}
			if d.Entitlement == decision.Indeterminate {
				st.markIndeterminate()
			}
			select {
			case out <- d:
			case <-cctx.Done():
				return false
			}
		case <-childCtx.Done():
			return true
		case <-cctx.Done():
			return false
		}
	}
}
