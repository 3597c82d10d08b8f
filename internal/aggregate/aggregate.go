// Package aggregate reassembles the inbound fragment stream of one connection into
// complete requests. The state machine is pure: it knows nothing about how fragments
// are scheduled or delivered, which is exactly what lets the same logic back every
// concurrency driver.
package aggregate

import (
	"github.com/indigo-web/trident/fragment"
	"github.com/indigo-web/trident/http"
	"github.com/indigo-web/trident/http/status"
)

type state uint8

const (
	// idle awaits the head of the next request.
	idle state = iota
	// headReceived holds a head and awaits either body fragments or the end marker.
	headReceived
	// bodyAccumulating additionally holds a partially assembled body.
	bodyAccumulating
)

// Aggregator owns the accumulation buffer exclusively until a complete request is
// handed off, after which a fresh one is started. Not safe for concurrent use: one
// aggregator per connection.
type Aggregator struct {
	state state
	head  fragment.Head
	body  []byte
}

func New() *Aggregator {
	return new(Aggregator)
}

// Feed advances the state machine by a single fragment. A complete Head..End cycle
// produces exactly one request and returns the machine to the idle state, ready for
// the next request of the same connection. A fragment arriving in a state it could
// never legally arrive in results in status.ErrProtocolViolation: the stream framing
// is unrecoverable at that point, so the caller must close the connection.
func (a *Aggregator) Feed(frag fragment.Fragment) (*http.Request, error) {
	switch frag.Kind {
	case fragment.KindHead:
		if a.state != idle {
			return nil, status.ErrProtocolViolation
		}

		a.head = frag.Head
		a.state = headReceived
	case fragment.KindBody:
		switch a.state {
		case headReceived:
			a.state = bodyAccumulating
			a.body = append(a.body, frag.Data...)
		case bodyAccumulating:
			a.body = append(a.body, frag.Data...)
		default:
			return nil, status.ErrProtocolViolation
		}
	case fragment.KindEnd:
		switch a.state {
		case headReceived:
			return a.complete(nil), nil
		case bodyAccumulating:
			body := a.body
			if body == nil {
				// zero-length body fragments still count as a seen body
				body = []byte{}
			}

			return a.complete(body), nil
		default:
			return nil, status.ErrProtocolViolation
		}
	default:
		return nil, status.ErrProtocolViolation
	}

	return nil, nil
}

func (a *Aggregator) complete(body []byte) *http.Request {
	request := http.NewRequest(a.head, body)
	// the buffer is handed off together with the request, so start a fresh one
	a.head = fragment.Head{}
	a.body = nil
	a.state = idle

	return request
}
