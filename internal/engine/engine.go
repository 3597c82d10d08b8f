// Package engine drives connections through the aggregate, respond and emit cycle.
// The protocol logic is identical everywhere; the three drivers differ purely in how
// suspension and task lifetime are managed:
//
//   - Callback: connections are multiplexed over a fixed pool of event loops,
//     everything for one connection happens as callbacks on its loop goroutine.
//   - Detached: same loops, but responder calls run in untracked goroutines. Cheaper
//     dispatch, weaker teardown guarantees.
//   - Structured: one goroutine per connection under a bounded errgroup, with
//     backpressure coming naturally from blocking reads and writes.
package engine

// Engine serves accepted connections, each according to its own discipline. Handle
// blocks until the connection is fully torn down, which makes it a direct fit for a
// per-connection accept goroutine.
type Engine interface {
	Handle(c *Conn)
}
