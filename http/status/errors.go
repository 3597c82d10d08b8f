package status

type HTTPError struct {
	Message string
	Code    Code
}

func NewError(code Code, message string) error {
	return HTTPError{
		Code:    code,
		Message: message,
	}
}

func (h HTTPError) Error() string {
	return h.Message
}

var (
	// ErrCloseConnection is a signal to actively close the connection without any
	// protocol-level misbehavior involved.
	ErrCloseConnection = NewError(ServiceUnavailable, "actively closing the connection")
	// ErrProtocolViolation is returned when an inbound fragment arrives in a state it
	// could never legally arrive in. Fatal to the connection, no response is sent.
	ErrProtocolViolation = NewError(BadRequest, "wire fragment out of order")

	ErrBadRequest           = NewError(BadRequest, "bad request")
	ErrTooLongRequestLine   = NewError(RequestURITooLong, "request line is too long")
	ErrHeaderFieldsTooLarge = NewError(HeaderFieldsTooLarge, "too large headers section")
	ErrInternalServerError  = NewError(InternalServerError, "internal server error")
	ErrRequestTimeout       = NewError(RequestTimeout, "request timeout")
	ErrMethodNotImplemented = NewError(NotImplemented, "request method is not supported")
	ErrUnsupportedProtocol  = NewError(HTTPVersionNotSupported, "HTTP version not supported")
	ErrShutdown             = NewError(ServiceUnavailable, "the server is shutting down")
	ErrGracefulShutdown     = NewError(ServiceUnavailable, "graceful shutdown")
)
