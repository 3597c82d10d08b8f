package http1

import (
	"strconv"

	"github.com/indigo-web/trident/fragment"
	"github.com/indigo-web/trident/http/proto"
	"github.com/indigo-web/trident/http/status"
	"github.com/indigo-web/trident/kv"
	"github.com/indigo-web/trident/transport"
)

const (
	crlf              = "\r\n"
	unknownStatusText = "Unknown Status Code"
)

var _ fragment.Sink = new(Serializer)

// Serializer renders outbound fragments into HTTP/1.x wire format. If the head
// carries no content-length, the body is framed as chunked transfer encoding and
// every body fragment is flushed onto the socket immediately; sized responses are
// buffered and transmitted in one piece on End.
type Serializer struct {
	client  transport.Client
	buff    []byte
	chunked bool
}

func NewSerializer(client transport.Client, buffSize int) *Serializer {
	return &Serializer{
		client: client,
		buff:   make([]byte, 0, buffSize),
	}
}

func (s *Serializer) Head(p proto.Proto, code status.Code, text status.Status, headers *kv.Storage) error {
	protocol := p.String()
	if len(protocol) == 0 {
		protocol = proto.HTTP11.String()
	}

	if len(text) == 0 {
		text = status.Text(code)
		if len(text) == 0 {
			text = unknownStatusText
		}
	}

	s.buff = append(s.buff, protocol...)
	s.buff = append(s.buff, ' ')
	s.buff = strconv.AppendUint(s.buff, uint64(code), 10)
	s.buff = append(s.buff, ' ')
	s.buff = append(s.buff, text...)
	s.buff = append(s.buff, crlf...)

	for key, value := range headers.Pairs() {
		s.buff = append(s.buff, key...)
		s.buff = append(s.buff, ": "...)
		s.buff = append(s.buff, value...)
		s.buff = append(s.buff, crlf...)
	}

	s.chunked = !headers.Has("Content-Length")
	if s.chunked {
		s.buff = append(s.buff, "Transfer-Encoding: chunked"+crlf...)
	}

	s.buff = append(s.buff, crlf...)

	return nil
}

func (s *Serializer) Body(data []byte) error {
	if len(data) == 0 {
		// a zero-sized chunk would terminate the chunked stream prematurely
		return nil
	}

	if !s.chunked {
		s.buff = append(s.buff, data...)
		return nil
	}

	s.buff = strconv.AppendUint(s.buff, uint64(len(data)), 16)
	s.buff = append(s.buff, crlf...)
	s.buff = append(s.buff, data...)
	s.buff = append(s.buff, crlf...)

	// streamed fragments must reach the peer without waiting for the terminator
	return s.flush()
}

func (s *Serializer) End() error {
	if s.chunked {
		s.buff = append(s.buff, "0"+crlf+crlf...)
	}

	return s.flush()
}

func (s *Serializer) flush() (err error) {
	if len(s.buff) > 0 {
		err = s.client.Write(s.buff)
		s.buff = s.buff[:0]
	}

	return err
}
