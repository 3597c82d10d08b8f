// Package trident is a minimal HTTP/1.1 request/response engine built to compare
// concurrency disciplines under one roof: the same protocol state machine is driven
// either by callback chaining over event loops, by detached tasks, or by structured
// per-connection tasks with native backpressure.
package trident

import (
	"context"
	"fmt"
	"net"

	"github.com/indigo-web/trident/config"
	"github.com/indigo-web/trident/http"
	"github.com/indigo-web/trident/http/status"
	"github.com/indigo-web/trident/internal/engine"
	"github.com/indigo-web/trident/internal/obs"
	"github.com/indigo-web/trident/internal/server/tcp"
	"github.com/indigo-web/trident/transport"
	"github.com/indigo-web/trident/transport/http1"
	"golang.org/x/net/netutil"
)

// Driver selects the concurrency discipline connections are served with. The wire
// behavior is identical across all three; only scheduling and teardown guarantees
// differ.
type Driver uint8

const (
	// Callback serves every connection as a chain of callbacks on one of a fixed
	// pool of event loops.
	Callback Driver = iota
	// Detached keeps the event loops, but offloads responder calls to untracked
	// goroutines. Teardown does not cancel calls already in flight.
	Detached
	// Structured spawns one task per connection under a bounded group; cancelling
	// the server cancels every connection task and its in-flight responder call.
	Structured
)

type ListenerConstructor func(network, addr string) (net.Listener, error)

type App struct {
	addr        string
	cfg         *config.Config
	driver      Driver
	constructor ListenerConstructor
	maxAccepted int
	hooks       hooks
	errCh       chan error
}

// New returns a new App serving on the address with the Callback driver and default
// config.
func New(addr string) *App {
	return &App{
		addr:        addr,
		cfg:         config.Default(),
		constructor: net.Listen,
		errCh:       make(chan error),
	}
}

// Tune replaces the default config.
func (a *App) Tune(cfg *config.Config) *App {
	a.cfg = cfg
	return a
}

// Use selects the concurrency driver.
func (a *App) Use(driver Driver) *App {
	a.driver = driver
	return a
}

// Listener replaces the default listener constructor, mainly for tests.
func (a *App) Listener(constructor ListenerConstructor) *App {
	a.constructor = constructor
	return a
}

// LimitAccepted caps how many connections may be accepted simultaneously, on top of
// whatever bound the chosen driver itself imposes.
func (a *App) LimitAccepted(n int) *App {
	a.maxAccepted = n
	return a
}

// NotifyOnStart calls the callback at the moment the server is started. It isn't
// strongly guaranteed that it is able to accept new connections immediately.
func (a *App) NotifyOnStart(cb func()) *App {
	a.hooks.OnStart = cb
	return a
}

// NotifyOnStop calls the callback when the server is down and all the clients are
// already disconnected.
func (a *App) NotifyOnStop(cb func()) *App {
	a.hooks.OnStop = cb
	return a
}

// Serve starts the engine. Passing nil as the responder answers every request with
// an empty 200.
func (a *App) Serve(r http.Responder) error {
	if r == nil {
		r = http.ResponderFunc(func(_ context.Context, request *http.Request) (*http.Response, error) {
			return request.Respond(), nil
		})
	}

	sock, err := a.constructor("tcp", a.addr)
	if err != nil {
		return err
	}

	if a.maxAccepted > 0 {
		sock = netutil.LimitListener(sock, a.maxAccepted)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := a.newEngine(ctx)
	sink := obs.NewSink(a.cfg.Logger)
	srv := tcp.NewServer(sock, a.newTCPCallback(eng, sink, r))

	go func() {
		a.errCh <- srv.Start()
	}()

	callIfNotNil(a.hooks.OnStart)

	err = <-a.errCh
	switch err {
	case status.ErrGracefulShutdown:
		// stop listening to new clients and process till the end all the old ones
		_ = srv.GracefulShutdown()
		<-a.errCh
	case status.ErrShutdown:
		cancel()
		_ = srv.Stop()
		<-a.errCh
	default:
		// the listener went down on its own
		cancel()
		_ = srv.Stop()
	}

	if waiter, ok := eng.(interface{ Wait() error }); ok {
		_ = waiter.Wait()
	}

	callIfNotNil(a.hooks.OnStop)

	return err
}

// GracefulStop stops accepting new connections, but keeps serving old ones.
//
// NOTE: the call isn't blocking, the server keeps working for a while after it
// returns.
func (a *App) GracefulStop() {
	a.errCh <- status.ErrGracefulShutdown
}

// Stop stops the whole application immediately.
//
// NOTE: the call isn't blocking, the server keeps working for a while after it
// returns.
func (a *App) Stop() {
	a.errCh <- status.ErrShutdown
}

func (a *App) newEngine(ctx context.Context) engine.Engine {
	e := a.cfg.Engine

	switch a.driver {
	case Callback:
		return engine.NewCallback(e.EventLoops)
	case Detached:
		return engine.NewDetached(e.EventLoops, e.PendingResponses)
	case Structured:
		return engine.NewStructured(ctx, e.MaxConnections)
	default:
		panic(fmt.Sprintf("trident: unknown driver: %d", a.driver))
	}
}

func (a *App) newTCPCallback(eng engine.Engine, sink *obs.Sink, r http.Responder) tcp.OnConn {
	return func(conn net.Conn) {
		client := transport.NewClient(conn, a.cfg.NET.ReadTimeout, make([]byte, a.cfg.NET.ReadBufferSize))
		src := http1.NewSource(client, a.cfg.NET)
		serializer := http1.NewSerializer(client, a.cfg.NET.WriteBufferSize)

		id := obs.NewConnID()
		sink.ConnAccepted(id, conn.RemoteAddr())
		eng.Handle(engine.NewConn(id, src, serializer, client, r, sink))
	}
}

type hooks struct {
	OnStart, OnStop func()
}

func callIfNotNil(f func()) {
	if f != nil {
		f()
	}
}
