package engine

var _ Engine = new(Callback)

// Callback chains every step of a request's lifecycle as callbacks on the
// connection's event loop. No goroutine ever blocks on another: a slow responder
// simply occupies its loop, delaying only the connections assigned to it.
type Callback struct {
	pool *pool
}

func NewCallback(loops int) *Callback {
	return &Callback{pool: newPool(loops)}
}

func (e *Callback) Handle(c *Conn) {
	c.dispatch = inlineDispatch
	pump(c, e.pool.assign())
}
