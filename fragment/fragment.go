// Package fragment defines the units the wire protocol is exchanged in once the raw
// byte stream is already decoded: a head carrying request metadata, any number of body
// chunks and an end marker. A connection is a back-to-back sequence of such triples.
package fragment

import (
	"github.com/indigo-web/trident/http/proto"
	"github.com/indigo-web/trident/http/status"
	"github.com/indigo-web/trident/kv"
)

type Kind uint8

const (
	KindHead Kind = iota + 1
	KindBody
	KindEnd
)

func (k Kind) String() string {
	switch k {
	case KindHead:
		return "head"
	case KindBody:
		return "body"
	case KindEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Head carries the already parsed metadata of a single inbound request.
type Head struct {
	Proto   proto.Proto
	Method  string
	Path    string
	Headers *kv.Storage
}

// Fragment is a tagged union: exactly one of Head or Data is meaningful, depending
// on Kind. KindEnd carries no payload at all.
type Fragment struct {
	Kind Kind
	Head Head
	Data []byte
}

func NewHead(head Head) Fragment {
	return Fragment{Kind: KindHead, Head: head}
}

func NewBody(data []byte) Fragment {
	return Fragment{Kind: KindBody, Data: data}
}

func NewEnd() Fragment {
	return Fragment{Kind: KindEnd}
}

// Source supplies the inbound fragments of a single connection, strictly in wire order.
// Next blocks until a fragment is available, returning io.EOF once the peer has
// disconnected between requests. A fragment's Data is valid only until the next Next
// call: implementations are free to reuse their read buffer, so a consumer keeping the
// payload around longer must copy it. A Source must never be shared across connections.
type Source interface {
	Next() (Fragment, error)
}

// Sink accepts the outbound fragments of a single connection. A response is written as
// exactly one Head call, any number of Body calls and exactly one End call, in that
// order. Calls may block if the outbound path is saturated. A Sink must never be
// written to concurrently.
type Sink interface {
	Head(p proto.Proto, code status.Code, text status.Status, headers *kv.Storage) error
	Body(data []byte) error
	End() error
}
