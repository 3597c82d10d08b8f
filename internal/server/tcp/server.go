package tcp

import (
	"net"
	"sync"

	"github.com/indigo-web/trident/http/status"
)

type OnConn func(net.Conn)

type Server struct {
	sock     net.Listener
	onConn   OnConn
	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	shutdown bool
}

func NewServer(sock net.Listener, onConn OnConn) *Server {
	return &Server{
		sock:   sock,
		onConn: onConn,
		conns:  map[net.Conn]struct{}{},
	}
}

// Start accepts connections until the listener is closed, spawning a handler
// goroutine per connection. It returns only after all the handlers are done.
func (s *Server) Start() error {
	wg := new(sync.WaitGroup)

	for {
		conn, err := s.sock.Accept()
		if err != nil {
			wg.Wait()

			s.mu.Lock()
			down := s.shutdown
			s.mu.Unlock()
			if down {
				return status.ErrShutdown
			}

			return err
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		wg.Add(1)
		go s.connHandler(wg, conn)
	}
}

func (s *Server) stopListener() error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	return s.sock.Close()
}

// Stop shuts the listener and ALL the connections down.
func (s *Server) Stop() error {
	if err := s.stopListener(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
	}

	return nil
}

// GracefulShutdown stops the listener, leaving all the connections free to end
// their lives peacefully.
func (s *Server) GracefulShutdown() error {
	return s.stopListener()
}

func (s *Server) connHandler(wg *sync.WaitGroup, conn net.Conn) {
	s.onConn(conn)

	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	wg.Done()
}
