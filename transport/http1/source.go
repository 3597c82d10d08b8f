// Package http1 is the HTTP/1.x wire codec: it decodes the raw byte stream into
// inbound fragments and serializes outbound fragments back into bytes.
package http1

import (
	"bytes"
	"io"
	"strconv"

	"github.com/indigo-web/chunkedbody"
	"github.com/indigo-web/trident/config"
	"github.com/indigo-web/trident/fragment"
	"github.com/indigo-web/trident/http/proto"
	"github.com/indigo-web/trident/http/status"
	"github.com/indigo-web/trident/kv"
	"github.com/indigo-web/trident/transport"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
	"golang.org/x/net/http/httpguts"
)

type phase uint8

const (
	phaseHead phase = iota
	phaseSized
	phaseChunked
	phaseEnd
)

var _ fragment.Source = new(Source)

// Source decodes the inbound byte stream of one connection into a fragment sequence:
// a head, the body pieces exactly as they arrive from the socket, and an end marker
// per request.
type Source struct {
	client    transport.Client
	chunked   *chunkedbody.Parser
	headBuff  []byte
	maxHead   int
	phase     phase
	remaining int
}

func NewSource(client transport.Client, cfg config.NET) *Source {
	return &Source{
		client:  client,
		chunked: chunkedbody.NewParser(chunkedbody.DefaultSettings()),
		maxHead: cfg.MaxHeadSize,
	}
}

func (s *Source) Next() (fragment.Fragment, error) {
	switch s.phase {
	case phaseHead:
		return s.head()
	case phaseSized:
		return s.sized()
	case phaseChunked:
		return s.chunkedBody()
	case phaseEnd:
		s.phase = phaseHead
		return fragment.NewEnd(), nil
	default:
		panic("BUG: unknown wire codec phase")
	}
}

const headTerminator = "\r\n\r\n"

func (s *Source) head() (fragment.Fragment, error) {
	for {
		data, err := s.client.Read()
		if len(data) == 0 && err != nil {
			if err == io.EOF && len(s.headBuff) > 0 {
				// the peer vanished in the middle of a request head
				err = io.ErrUnexpectedEOF
			}

			return fragment.Fragment{}, err
		}

		s.headBuff = append(s.headBuff, data...)
		if len(s.headBuff) > s.maxHead {
			return fragment.Fragment{}, status.ErrHeaderFieldsTooLarge
		}

		terminator := bytes.Index(s.headBuff, []byte(headTerminator))
		if terminator == -1 {
			continue
		}

		extra := s.headBuff[terminator+len(headTerminator):]
		s.client.Unread(bytes.Clone(extra))

		head, err := s.parseHead(s.headBuff[:terminator])
		s.headBuff = s.headBuff[:0]
		if err != nil {
			return fragment.Fragment{}, err
		}

		return fragment.NewHead(head), nil
	}
}

func (s *Source) parseHead(raw []byte) (head fragment.Head, err error) {
	line, rest, _ := bytes.Cut(raw, []byte("\r\n"))

	method, line, ok := bytes.Cut(line, []byte(" "))
	if !ok || len(method) == 0 {
		return head, status.ErrBadRequest
	}

	path, protoToken, ok := bytes.Cut(line, []byte(" "))
	if !ok || len(path) == 0 {
		return head, status.ErrBadRequest
	}

	protocol := proto.FromBytes(protoToken)
	if protocol == proto.Unknown {
		return head, status.ErrUnsupportedProtocol
	}

	headers, err := parseHeaders(rest)
	if err != nil {
		return head, err
	}

	if err = s.decideBodyPhase(headers); err != nil {
		return head, err
	}

	return fragment.Head{
		Proto:   protocol,
		Method:  string(method),
		Path:    string(path),
		Headers: headers,
	}, nil
}

func parseHeaders(raw []byte) (*kv.Storage, error) {
	headers := kv.New()

	for len(raw) > 0 {
		var line []byte
		line, raw, _ = bytes.Cut(raw, []byte("\r\n"))

		key, value, ok := bytes.Cut(line, []byte(":"))
		if !ok {
			return nil, status.ErrBadRequest
		}

		value = bytes.Trim(value, " \t")
		if !httpguts.ValidHeaderFieldName(uf.B2S(key)) ||
			!httpguts.ValidHeaderFieldValue(uf.B2S(value)) {
			return nil, status.ErrBadRequest
		}

		headers.Add(string(key), string(value))
	}

	return headers, nil
}

func (s *Source) decideBodyPhase(headers *kv.Storage) error {
	if strcomp.EqualFold(headers.Value("Transfer-Encoding"), "chunked") {
		s.phase = phaseChunked
		return nil
	}

	contentLength := headers.ValueOr("Content-Length", "0")
	length, err := strconv.Atoi(contentLength)
	if err != nil || length < 0 {
		return status.ErrBadRequest
	}

	if length == 0 {
		s.phase = phaseEnd
		return nil
	}

	s.phase = phaseSized
	s.remaining = length

	return nil
}

func (s *Source) sized() (fragment.Fragment, error) {
	data, err := s.read()
	if err != nil {
		return fragment.Fragment{}, err
	}

	if len(data) >= s.remaining {
		body := data[:s.remaining]
		s.client.Unread(data[s.remaining:])
		s.remaining = 0
		s.phase = phaseEnd

		return fragment.NewBody(body), nil
	}

	s.remaining -= len(data)

	return fragment.NewBody(data), nil
}

func (s *Source) chunkedBody() (fragment.Fragment, error) {
	for {
		data, err := s.read()
		if err != nil {
			return fragment.Fragment{}, err
		}

		chunk, extra, err := s.chunked.Parse(data, false)
		switch err {
		case nil:
		case io.EOF:
			s.phase = phaseEnd
		default:
			return fragment.Fragment{}, err
		}

		s.client.Unread(extra)

		if len(chunk) > 0 {
			return fragment.NewBody(chunk), nil
		}

		if s.phase == phaseEnd {
			// final zero-sized chunk with no payload left over
			s.phase = phaseHead
			return fragment.NewEnd(), nil
		}
	}
}

// read never returns data alongside an error. A disconnect in the middle of a body is
// always unexpected.
func (s *Source) read() ([]byte, error) {
	data, err := s.client.Read()
	if len(data) == 0 && err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}

		return nil, err
	}

	return data, nil
}
