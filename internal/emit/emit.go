// Package emit serializes responses into outbound fragments: one head, the body
// fragments and exactly one end marker, never interleaving two responses on one sink.
package emit

import (
	"strconv"

	"github.com/indigo-web/trident/fragment"
	"github.com/indigo-web/trident/http"
	"github.com/indigo-web/trident/http/proto"
	"github.com/indigo-web/trident/http/status"
)

// Emit writes the whole response onto the sink. The protocol version is carried over
// from the request the response answers. The head is finalized here, right before
// transmission: for sized bodies the content-length header is set exactly once,
// overwriting whatever value the responder might have put there. Streamed bodies get
// no content-length, leaving the framing decision to the sink.
//
// A non-nil error means the emit sequence was aborted midway and the connection must
// be closed: a partially framed response can never be resumed.
func Emit(p proto.Proto, response *http.Response, sink fragment.Sink) error {
	fields := response.Reveal()
	headers := fields.Headers

	if !fields.IsStream() {
		headers.Set("Content-Length", strconv.Itoa(len(fields.Body)))
	} else {
		headers.Delete("Content-Length")
	}

	text := fields.Status
	if len(text) == 0 {
		text = status.Text(fields.Code)
	}

	if err := sink.Head(p, fields.Code, text, headers); err != nil {
		return err
	}

	if err := writeBody(fields, sink); err != nil {
		return err
	}

	return sink.End()
}

func writeBody(fields *http.Fields, sink fragment.Sink) error {
	if fields.IsStream() {
		return fields.Stream(bodyWriter{sink})
	}

	if len(fields.Body) == 0 {
		// nothing to transmit, the head already says content-length: 0
		return nil
	}

	return sink.Body(fields.Body)
}

// bodyWriter is the capability handed to streamed body producers. Each Write is
// forwarded as a single outbound body fragment.
type bodyWriter struct {
	sink fragment.Sink
}

func (w bodyWriter) Write(data []byte) error {
	return w.sink.Body(data)
}
