package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

var _ Engine = new(Structured)

// Structured serves every connection as one task under a common group, admission
// bounded by a semaphore. Within a task, fragments are pulled and responses pushed
// one at a time, suspending whenever the transport has nothing to give or cannot
// absorb more: the task never runs ahead of the wire. Cancelling the group's context
// cancels all connection tasks along with their in-flight responder calls.
type Structured struct {
	ctx   context.Context
	group *errgroup.Group
	sem   *semaphore.Weighted
}

func NewStructured(ctx context.Context, maxConns int64) *Structured {
	group, ctx := errgroup.WithContext(ctx)

	return &Structured{
		ctx:   ctx,
		group: group,
		sem:   semaphore.NewWeighted(maxConns),
	}
}

func (e *Structured) Handle(c *Conn) {
	if err := e.sem.Acquire(e.ctx, 1); err != nil {
		// shutting down, the connection never gets a seat
		c.teardown(err)
		return
	}

	done := make(chan struct{})
	e.group.Go(func() error {
		defer close(done)
		defer e.sem.Release(1)

		return c.serve(e.ctx)
	})

	<-done
}

// Wait blocks until every connection task has terminated. Call after the listener is
// down and the context is cancelled to guarantee nothing outlives the server.
func (e *Structured) Wait() error {
	return e.group.Wait()
}
