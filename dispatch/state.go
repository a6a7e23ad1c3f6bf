package dispatch

import "sync/atomic"

// State is a subscription's position in the dispatcher's lifecycle.
type State int32

const (
	Subscribed State = iota
	SubscribedIndeterminate
	Cancelled
)

func (s State) String() string {
	switch s {
	case Subscribed:
		return "subscribed"
	case SubscribedIndeterminate:
		return "subscribed-indeterminate"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// atomicState holds a State that only ever moves forward: Subscribed ->
// SubscribedIndeterminate -> Cancelled, with Cancelled always winning
// regardless of when it's set relative to an indeterminate decision.
type atomicState struct {
	v atomic.Int32
}

func (a *atomicState) load() State { return State(a.v.Load()) }

func (a *atomicState) markIndeterminate() {
	a.v.CompareAndSwap(int32(Subscribed), int32(SubscribedIndeterminate))
}

func (a *atomicState) markCancelled() {
	a.v.Store(int32(Cancelled))
}
