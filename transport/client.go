// Package transport owns the raw byte exchange with a peer. Everything above it deals
// in fragments, everything below is a plain net.Conn.
package transport

import (
	"net"
	"time"
)

// Client reads and writes raw bytes of a single connection. Unread returns a tail of
// a previously read slice, making it the next Read's result; the wire codec relies on
// this to hand back bytes that belong to the next message.
type Client interface {
	Read() ([]byte, error)
	Unread([]byte)
	Write([]byte) error
	Remote() net.Addr
	Close() error
}

type client struct {
	conn    net.Conn
	buff    []byte
	pending []byte
	timeout time.Duration
}

func NewClient(conn net.Conn, timeout time.Duration, buff []byte) Client {
	return &client{
		conn:    conn,
		buff:    buff,
		timeout: timeout,
	}
}

func (c *client) Read() (data []byte, err error) {
	if len(c.pending) > 0 {
		data, c.pending = c.pending, nil
		return data, nil
	}

	if err = c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, err
	}

	n, err := c.conn.Read(c.buff)

	return c.buff[:n], err
}

func (c *client) Unread(b []byte) {
	if len(b) > 0 {
		c.pending = b
	}
}

func (c *client) Write(b []byte) error {
	_, err := c.conn.Write(b)

	return err
}

func (c *client) Remote() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *client) Close() error {
	return c.conn.Close()
}
