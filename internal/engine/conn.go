package engine

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/indigo-web/trident/fragment"
	"github.com/indigo-web/trident/http"
	"github.com/indigo-web/trident/http/proto"
	"github.com/indigo-web/trident/http/status"
	"github.com/indigo-web/trident/internal/aggregate"
	"github.com/indigo-web/trident/internal/emit"
	"github.com/indigo-web/trident/internal/obs"
)

// Conn bundles everything one connection owns: its fragment source and sink, its
// aggregator and, in the detached driver, its transmission queue. Sources and sinks
// are never shared between connections, so a failure in one can neither block nor
// corrupt another.
type Conn struct {
	id        string
	src       fragment.Source
	sink      fragment.Sink
	transport io.Closer
	responder http.Responder
	observer  *obs.Sink
	agg       *aggregate.Aggregator
	dispatch  func(c *Conn, request *http.Request)
	pending   chan pendingResponse
	closed    atomic.Bool
}

type pendingResponse struct {
	proto  proto.Proto
	result chan *http.Response
}

func NewConn(
	id string, src fragment.Source, sink fragment.Sink,
	transport io.Closer, responder http.Responder, observer *obs.Sink,
) *Conn {
	return &Conn{
		id:        id,
		src:       src,
		sink:      sink,
		transport: transport,
		responder: responder,
		observer:  observer,
		agg:       aggregate.New(),
	}
}

// respond invokes the responder. Any failure is substituted, exactly once, with a 500
// carrying the error's text; it never propagates further.
func (c *Conn) respond(ctx context.Context, request *http.Request) *http.Response {
	response, err := c.responder.Respond(ctx, request)
	if err != nil {
		c.observer.ResponderFailed(c.id, err)

		return http.NewResponse().
			Code(status.InternalServerError).
			String(err.Error())
	}

	if response == nil {
		response = http.NewResponse()
	}

	return response
}

// teardown closes the connection and reports it, exactly once. io.EOF stands for the
// peer disconnecting between requests and is not an error.
func (c *Conn) teardown(err error) {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}

	if err == io.EOF {
		err = nil
	}

	c.observer.ConnClosed(c.id, err)
	_ = c.transport.Close()
}

// serve is the structured discipline: pull a fragment, feed the aggregator, answer
// completed requests, all on the calling goroutine. Blocking reads and writes give
// backpressure for free. The returned error is always nil: connection failures are
// isolated and must never bring sibling connections down through the task group.
func (c *Conn) serve(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			c.teardown(err)
			return nil
		}

		frag, err := c.src.Next()
		if err != nil {
			c.teardown(err)
			return nil
		}

		request, err := c.agg.Feed(frag)
		if err != nil {
			// unrecoverable framing breach, no response can be sent
			c.teardown(err)
			return nil
		}

		if request == nil {
			continue
		}

		response := c.respond(ctx, request)
		if err := emit.Emit(request.Proto, response, c.sink); err != nil {
			c.teardown(err)
			return nil
		}
	}
}

// onEvent is the callback counterpart of serve: invoked by the owning event loop for
// every fragment (or terminal error) of this connection.
func (c *Conn) onEvent(frag fragment.Fragment, err error) {
	if c.closed.Load() {
		return
	}

	if err != nil {
		c.finish(err)
		return
	}

	request, err := c.agg.Feed(frag)
	if err != nil {
		c.finish(err)
		return
	}

	if request != nil {
		c.dispatch(c, request)
	}
}

// finish ends the fragment stream. With a transmission queue attached, a graceful end
// lets already dispatched responses drain first; everything else tears down at once.
func (c *Conn) finish(err error) {
	if c.pending == nil {
		c.teardown(err)
		return
	}

	if err != io.EOF {
		c.teardown(err)
	}

	close(c.pending)
}

// inlineDispatch answers the request right on the event loop: the pure callback
// discipline, single-threaded per loop.
func inlineDispatch(c *Conn, request *http.Request) {
	response := c.respond(context.Background(), request)
	if err := emit.Emit(request.Proto, response, c.sink); err != nil {
		c.teardown(err)
	}
}

// queueDispatch offloads the responder call to an untracked goroutine and enqueues
// its future result for in-order transmission. Nothing awaits the goroutine: if the
// connection dies first, the call finishes into the void. Enqueueing blocks the loop
// once the queue is full.
func queueDispatch(c *Conn, request *http.Request) {
	p := pendingResponse{
		proto:  request.Proto,
		result: make(chan *http.Response, 1),
	}

	go func() {
		p.result <- c.respond(context.Background(), request)
	}()

	c.pending <- p
}

// transmitLoop is the single writer of a queued connection: it emits responses
// strictly in request order, draining the queue to the end even after the peer has
// stopped sending.
func (c *Conn) transmitLoop() {
	for p := range c.pending {
		response := <-p.result

		if c.closed.Load() {
			// already torn down, the leftovers have nowhere to go
			continue
		}

		if err := emit.Emit(p.proto, response, c.sink); err != nil {
			c.teardown(err)
		}
	}

	c.teardown(nil)
}
