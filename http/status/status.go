package status

type (
	Code   uint16
	Status string
)

const (
	OK        Code = 200
	Created   Code = 201
	Accepted  Code = 202
	NoContent Code = 204

	BadRequest            Code = 400
	NotFound              Code = 404
	MethodNotAllowed      Code = 405
	RequestTimeout        Code = 408
	RequestEntityTooLarge Code = 413
	RequestURITooLong     Code = 414
	HeaderFieldsTooLarge  Code = 431

	InternalServerError     Code = 500
	NotImplemented          Code = 501
	ServiceUnavailable      Code = 503
	HTTPVersionNotSupported Code = 505
)

// Text returns a status text for the code, or an empty string if the code is unknown.
func Text(code Code) Status {
	switch code {
	case OK:
		return "OK"
	case Created:
		return "Created"
	case Accepted:
		return "Accepted"
	case NoContent:
		return "No Content"
	case BadRequest:
		return "Bad Request"
	case NotFound:
		return "Not Found"
	case MethodNotAllowed:
		return "Method Not Allowed"
	case RequestTimeout:
		return "Request Timeout"
	case RequestEntityTooLarge:
		return "Request Entity Too Large"
	case RequestURITooLong:
		return "Request URI Too Long"
	case HeaderFieldsTooLarge:
		return "Header Fields Too Large"
	case InternalServerError:
		return "Internal Server Error"
	case NotImplemented:
		return "Not Implemented"
	case ServiceUnavailable:
		return "Service Unavailable"
	case HTTPVersionNotSupported:
		return "HTTP Version Not Supported"
	default:
		return ""
	}
}
