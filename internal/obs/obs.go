// Package obs is the observability sink of the engine: connection lifecycle and
// locally recovered failures end up here and nowhere else.
package obs

import (
	"net"

	"github.com/dchest/uniuri"
	"go.uber.org/zap"
)

const connIDLength = 12

// NewConnID returns a random identifier tying together all the log entries of one
// connection's lifetime.
func NewConnID() string {
	return uniuri.NewLen(connIDLength)
}

type Sink struct {
	log *zap.Logger
}

// NewSink wraps a logger. Passing nil yields a silent sink.
func NewSink(log *zap.Logger) *Sink {
	if log == nil {
		log = zap.NewNop()
	}

	return &Sink{log: log}
}

func (s *Sink) ConnAccepted(id string, remote net.Addr) {
	s.log.Debug("connection accepted",
		zap.String("conn", id),
		zap.Stringer("remote", remote),
	)
}

// ConnClosed reports the end of a connection. A nil error means the peer simply
// disconnected between requests.
func (s *Sink) ConnClosed(id string, err error) {
	if err == nil {
		s.log.Debug("connection closed", zap.String("conn", id))
		return
	}

	s.log.Warn("connection closed abruptly",
		zap.String("conn", id),
		zap.Error(err),
	)
}

// ResponderFailed reports a responder error that was substituted with a 500. The
// connection keeps running, so this is informational.
func (s *Sink) ResponderFailed(id string, err error) {
	s.log.Info("responder failed, substituting 500",
		zap.String("conn", id),
		zap.Error(err),
	)
}
