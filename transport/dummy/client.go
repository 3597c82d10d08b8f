package dummy

import (
	"io"
	"net"

	"github.com/indigo-web/trident/transport"
)

var _ transport.Client = new(CircularClient)

// CircularClient replays the pieces it was initialised with on every read, restarting
// from the beginning once drained unless marked OneTime. Used in tests and benchmarks
// in place of a socket.
type CircularClient struct {
	data            [][]byte
	pending         []byte
	pointer         int
	closed, oneTime bool
}

func NewCircularClient(data ...[]byte) *CircularClient {
	return &CircularClient{data: data}
}

func (c *CircularClient) Read() (data []byte, err error) {
	if c.closed {
		return nil, io.EOF
	}

	if len(c.pending) > 0 {
		data, c.pending = c.pending, nil
		return data, nil
	}

	if c.pointer >= len(c.data) {
		if c.oneTime {
			c.closed = true
			return nil, io.EOF
		}

		c.pointer = 0
	}

	piece := c.data[c.pointer]
	c.pointer++

	return piece, nil
}

func (c *CircularClient) Unread(b []byte) {
	if len(b) > 0 {
		c.pending = b
	}
}

func (*CircularClient) Write(b []byte) error {
	return nil
}

func (*CircularClient) Remote() net.Addr {
	return nil
}

func (c *CircularClient) Close() error {
	c.closed = true
	return nil
}

// OneTime makes the client report io.EOF once all the pieces are read.
func (c *CircularClient) OneTime() *CircularClient {
	c.oneTime = true
	return c
}

var _ transport.Client = new(SinkholeClient)

// SinkholeClient accumulates everything written into it and never yields any data.
type SinkholeClient struct {
	Data   []byte
	closed bool
}

func NewSinkholeClient() *SinkholeClient {
	return new(SinkholeClient)
}

func (s *SinkholeClient) Read() ([]byte, error) {
	return nil, io.EOF
}

func (*SinkholeClient) Unread([]byte) {}

func (s *SinkholeClient) Write(b []byte) error {
	s.Data = append(s.Data, b...)
	return nil
}

func (*SinkholeClient) Remote() net.Addr {
	return nil
}

func (s *SinkholeClient) Close() error {
	s.closed = true
	return nil
}
