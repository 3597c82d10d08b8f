package http

import (
	"github.com/indigo-web/trident/fragment"
	"github.com/indigo-web/trident/http/proto"
	"github.com/indigo-web/trident/kv"
)

// Request is a single fully reassembled request. It is a plain value: holding onto it
// gives no access to the connection it arrived on.
type Request struct {
	Proto   proto.Proto
	Method  string
	Path    string
	Headers *kv.Storage
	// Body is nil if the request carried no body fragments at all, otherwise it is
	// the concatenation of all of them in arrival order.
	Body []byte
}

// NewRequest combines a head and an assembled body into a complete request.
func NewRequest(head fragment.Head, body []byte) *Request {
	return &Request{
		Proto:   head.Proto,
		Method:  head.Method,
		Path:    head.Path,
		Headers: head.Headers,
		Body:    body,
	}
}

// HasBody tells whether any body fragments were seen at all. A request with an empty
// yet present body is distinguishable from one without a body.
func (r *Request) HasBody() bool {
	return r.Body != nil
}

// Respond returns a fresh response builder. Purely a shorthand.
func (r *Request) Respond() *Response {
	return NewResponse()
}
