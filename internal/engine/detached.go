package engine

var _ Engine = new(Detached)

// Detached runs the event loops of Callback, but responder invocations are offloaded
// to independently scheduled goroutines that no scope keeps track of. Responses are
// still transmitted in strict request order through a bounded per-connection queue.
//
// The trade-off is explicit: dispatch is cheaper and a slow responder doesn't occupy
// its event loop, but tearing the connection down does NOT cancel responder calls
// already in flight, and their failures may go unobserved.
type Detached struct {
	pool       *pool
	queueDepth int
}

func NewDetached(loops, queueDepth int) *Detached {
	return &Detached{
		pool:       newPool(loops),
		queueDepth: queueDepth,
	}
}

func (e *Detached) Handle(c *Conn) {
	c.dispatch = queueDispatch
	c.pending = make(chan pendingResponse, e.queueDepth)
	go c.transmitLoop()

	pump(c, e.pool.assign())
}
