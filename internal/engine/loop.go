package engine

import (
	"bytes"
	"sync/atomic"

	"github.com/indigo-web/trident/fragment"
)

type event struct {
	conn *Conn
	frag fragment.Fragment
	err  error
}

// loop is a single cooperative execution context. All the connections assigned to it
// have their callbacks executed strictly sequentially on its goroutine, so none of
// their state needs locking.
type loop struct {
	events chan event
}

func newLoop() *loop {
	l := &loop{events: make(chan event)}
	go l.run()

	return l
}

func (l *loop) run() {
	for ev := range l.events {
		ev.conn.onEvent(ev.frag, ev.err)
	}
}

// pool distributes connections across a fixed set of loops round-robin.
type pool struct {
	loops []*loop
	next  atomic.Uint32
}

func newPool(n int) *pool {
	p := &pool{loops: make([]*loop, n)}
	for i := range p.loops {
		p.loops[i] = newLoop()
	}

	return p
}

func (p *pool) assign() *loop {
	return p.loops[int(p.next.Add(1))%len(p.loops)]
}

// pump feeds the connection's fragments into its loop until the source is drained or
// the connection is torn down. The blocking channel send bounds the source to at most
// one fragment ahead of what the loop has processed, never further.
func pump(c *Conn, l *loop) {
	for {
		frag, err := c.src.Next()
		if frag.Kind == fragment.KindBody {
			// the payload is only valid until the next Next call, while the loop
			// goroutine may still be reading it
			frag.Data = bytes.Clone(frag.Data)
		}

		l.events <- event{conn: c, frag: frag, err: err}

		if err != nil || c.closed.Load() {
			return
		}
	}
}
