package http

import "context"

// Responder produces a response for a fully reassembled request. Implementations are
// shared across all connections, so they must be safe for concurrent invocation and
// must not hold connection-affine mutable state. The context is cancelled when the
// serving task is torn down, which drivers may or may not propagate to calls already
// in flight.
type Responder interface {
	Respond(ctx context.Context, request *Request) (*Response, error)
}

// ResponderFunc adapts a plain function to the Responder interface.
type ResponderFunc func(ctx context.Context, request *Request) (*Response, error)

func (f ResponderFunc) Respond(ctx context.Context, request *Request) (*Response, error) {
	return f(ctx, request)
}
