package http

import (
	"github.com/indigo-web/trident/http/status"
	"github.com/indigo-web/trident/kv"
	"github.com/indigo-web/utils/uf"
	json "github.com/json-iterator/go"
)

// BodyWriter is handed to a streamed body producer. Every Write call becomes exactly
// one outbound body fragment, in call order.
type BodyWriter interface {
	Write(data []byte) error
}

// Producer emits a streamed response body through the writer. It may write any number
// of buffers, including zero. Returning an error aborts the connection, as the head
// has already been transmitted by then.
type Producer func(w BodyWriter) error

const preallocRespHeaders = 7

// Fields is the raw content of a response builder. Internal packages obtain it via
// Response.Reveal.
type Fields struct {
	Code    status.Code
	Status  status.Status
	Headers *kv.Storage
	Body    []byte
	Stream  Producer
}

// IsStream tells whether the body length is unknown a priori.
func (f *Fields) IsStream() bool {
	return f.Stream != nil
}

// Response is a builder over Fields. It is mutable up until handed over for
// transmission, at which point it must not be touched anymore.
type Response struct {
	fields Fields
}

// NewResponse returns a new response with the status code set to 200 OK and no body.
func NewResponse() *Response {
	return &Response{
		fields: Fields{
			Code:    status.OK,
			Headers: kv.NewPrealloc(preallocRespHeaders),
		},
	}
}

// Code sets the status code.
func (r *Response) Code(code status.Code) *Response {
	r.fields.Code = code
	return r
}

// Status sets a custom status text. Clients generally ignore it, so there's rarely
// a reason to call this.
func (r *Response) Status(text status.Status) *Response {
	r.fields.Status = text
	return r
}

// Header adds header values to a key. Already existing entries of the key are kept.
func (r *Response) Header(key string, values ...string) *Response {
	for i := range values {
		r.fields.Headers.Add(key, values[i])
	}

	return r
}

// String sets the response body to the passed string.
func (r *Response) String(body string) *Response {
	return r.Bytes(uf.S2B(body))
}

// Bytes sets the response body to the passed slice WITHOUT copying it. Modifying the
// slice later will affect the response.
func (r *Response) Bytes(body []byte) *Response {
	r.fields.Body = body
	r.fields.Stream = nil
	return r
}

// Write implements io.Writer by appending to the response body. Always succeeds.
func (r *Response) Write(b []byte) (n int, err error) {
	r.fields.Body = append(r.fields.Body, b...)
	return len(b), nil
}

// Stream sets a producer-driven body of a priori unknown length. Any previously set
// sized body is discarded.
func (r *Response) Stream(producer Producer) *Response {
	r.fields.Stream = producer
	r.fields.Body = nil
	return r
}

// TryJSON serializes the model into the response body and sets the content type.
func (r *Response) TryJSON(model any) (*Response, error) {
	r.fields.Body = r.fields.Body[:0]
	stream := json.ConfigDefault.BorrowStream(r)
	stream.WriteVal(model)
	err := stream.Flush()
	json.ConfigDefault.ReturnStream(stream)

	return r.Header("Content-Type", "application/json"), err
}

// JSON does the same as TryJSON does, except the error is implicitly wrapped by Error.
func (r *Response) JSON(model any) *Response {
	resp, err := r.TryJSON(model)
	if err != nil {
		return r.Error(err)
	}

	return resp
}

// Error renders the error into the response: code from status.HTTPError if the passed
// error is one (500 otherwise), the error's text as the body. Passing nil is a no-op.
func (r *Response) Error(err error, code ...status.Code) *Response {
	if err == nil {
		return r
	}

	if http, ok := err.(status.HTTPError); ok {
		return r.Code(http.Code).String(http.Message)
	}

	c := status.InternalServerError
	if len(code) > 0 {
		// peek the first, ignore the rest
		c = code[0]
	}

	return r.
		Code(c).
		String(err.Error())
}

// Reveal returns the fields filled by the builder. Used mostly in internal purposes.
func (r *Response) Reveal() *Fields {
	return &r.fields
}

// Clear discards everything was done with the builder before.
func (r *Response) Clear() *Response {
	r.fields.Code = status.OK
	r.fields.Status = ""
	r.fields.Headers.Clear()
	r.fields.Body = nil
	r.fields.Stream = nil

	return r
}
