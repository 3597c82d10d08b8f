package engine

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/indigo-web/trident/fragment"
	"github.com/indigo-web/trident/fragment/dummy"
	"github.com/indigo-web/trident/http"
	"github.com/indigo-web/trident/http/proto"
	"github.com/indigo-web/trident/http/status"
	"github.com/indigo-web/trident/internal/obs"
	"github.com/indigo-web/trident/kv"
	"github.com/stretchr/testify/require"
)

type nopCloser struct {
	closed atomic.Bool
}

func (n *nopCloser) Close() error {
	n.closed.Store(true)
	return nil
}

func getHead(path string) fragment.Head {
	return fragment.Head{
		Proto:   proto.HTTP11,
		Method:  "GET",
		Path:    path,
		Headers: kv.New(),
	}
}

func helloResponder() http.Responder {
	return http.ResponderFunc(func(_ context.Context, request *http.Request) (*http.Response, error) {
		return request.Respond().String("Hello"), nil
	})
}

func newConn(src fragment.Source, sink fragment.Sink, r http.Responder) (*Conn, *nopCloser) {
	closer := new(nopCloser)
	return NewConn("test", src, sink, closer, r, obs.NewSink(nil)), closer
}

func engines() map[string]Engine {
	return map[string]Engine{
		"callback":   NewCallback(2),
		"detached":   NewDetached(2, 8),
		"structured": NewStructured(context.Background(), 8),
	}
}

func eventually(t *testing.T, cond func() bool) {
	require.Eventually(t, cond, time.Second, 5*time.Millisecond)
}

func TestHelloScenario(t *testing.T) {
	for name, eng := range engines() {
		t.Run(name, func(t *testing.T) {
			src := dummy.NewSliceSource(
				fragment.NewHead(getHead("/")),
				fragment.NewEnd(),
			)
			sink := dummy.NewRecordingSink()
			c, closer := newConn(src, sink, helloResponder())

			eng.Handle(c)

			eventually(t, func() bool { return closer.closed.Load() })

			frags := sink.Fragments()
			require.Len(t, frags, 3)
			require.Equal(t, fragment.KindHead, frags[0].Kind)
			require.Equal(t, status.OK, frags[0].Head.Code)
			require.Equal(t, "5", frags[0].Head.Headers.Value("content-length"))
			require.Equal(t, "Hello", string(frags[1].Data))
			require.Equal(t, fragment.KindEnd, frags[2].Kind)
		})
	}
}

func TestRequestBodyAssembly(t *testing.T) {
	for name, eng := range engines() {
		t.Run(name, func(t *testing.T) {
			var gotBody atomic.Value
			echo := http.ResponderFunc(func(_ context.Context, request *http.Request) (*http.Response, error) {
				gotBody.Store(string(request.Body))
				return request.Respond().Bytes(request.Body), nil
			})

			src := dummy.NewSliceSource(
				fragment.NewHead(getHead("/")),
				fragment.NewBody([]byte("ab")),
				fragment.NewBody([]byte("cd")),
				fragment.NewEnd(),
			)
			sink := dummy.NewRecordingSink()
			c, closer := newConn(src, sink, echo)

			eng.Handle(c)

			eventually(t, func() bool { return closer.closed.Load() })
			require.Equal(t, "abcd", gotBody.Load())
		})
	}
}

func TestResponderFailure(t *testing.T) {
	for name, eng := range engines() {
		t.Run(name, func(t *testing.T) {
			var calls atomic.Int32
			flaky := http.ResponderFunc(func(_ context.Context, request *http.Request) (*http.Response, error) {
				if calls.Add(1) == 1 {
					return nil, errors.New("boom")
				}

				return request.Respond().String("fine now"), nil
			})

			src := dummy.NewSliceSource(
				fragment.NewHead(getHead("/first")),
				fragment.NewEnd(),
				fragment.NewHead(getHead("/second")),
				fragment.NewEnd(),
			)
			sink := dummy.NewRecordingSink()
			c, closer := newConn(src, sink, flaky)

			eng.Handle(c)

			eventually(t, func() bool { return closer.closed.Load() })

			frags := sink.Fragments()
			require.Len(t, frags, 6, "the connection must survive the failure")
			require.Equal(t, status.InternalServerError, frags[0].Head.Code)
			require.Equal(t, "boom", string(frags[1].Data))
			require.Equal(t, status.OK, frags[3].Head.Code)
			require.Equal(t, "fine now", string(frags[4].Data))
		})
	}
}

// reusingSource replays fragments out of one shared buffer, overwriting it on every
// call, exactly the way a wire decoder backed by a single read buffer behaves.
type reusingSource struct {
	fragments []fragment.Fragment
	buff      []byte
	pointer   int
}

func newReusingSource(fragments ...fragment.Fragment) *reusingSource {
	return &reusingSource{fragments: fragments}
}

func (s *reusingSource) Next() (fragment.Fragment, error) {
	if s.pointer >= len(s.fragments) {
		return fragment.Fragment{}, io.EOF
	}

	frag := s.fragments[s.pointer]
	s.pointer++

	if frag.Kind == fragment.KindBody {
		s.buff = append(s.buff[:0], frag.Data...)
		frag.Data = s.buff
	}

	return frag, nil
}

func TestBodyOutlivesReadBuffer(t *testing.T) {
	// the loop goroutine runs one fragment behind the reader, so payloads must stay
	// intact after the source has moved on to the next one
	for name, eng := range map[string]Engine{
		"callback": NewCallback(2),
		"detached": NewDetached(2, 8),
	} {
		t.Run(name, func(t *testing.T) {
			var gotBody atomic.Value
			echo := http.ResponderFunc(func(_ context.Context, request *http.Request) (*http.Response, error) {
				gotBody.Store(string(request.Body))
				return request.Respond().Bytes(request.Body), nil
			})

			pieces := []string{
				strings.Repeat("a", 4096),
				strings.Repeat("b", 4096),
				strings.Repeat("c", 4096),
			}
			src := newReusingSource(
				fragment.NewHead(getHead("/")),
				fragment.NewBody([]byte(pieces[0])),
				fragment.NewBody([]byte(pieces[1])),
				fragment.NewBody([]byte(pieces[2])),
				fragment.NewEnd(),
			)
			sink := dummy.NewRecordingSink()
			c, closer := newConn(src, sink, echo)

			eng.Handle(c)

			eventually(t, func() bool { return closer.closed.Load() })
			require.Equal(t, strings.Join(pieces, ""), gotBody.Load())
		})
	}
}

func TestProtocolViolationClosesConnection(t *testing.T) {
	for name, eng := range engines() {
		t.Run(name, func(t *testing.T) {
			src := dummy.NewSliceSource(fragment.NewBody([]byte("stray")))
			sink := dummy.NewRecordingSink()
			c, closer := newConn(src, sink, helloResponder())

			eng.Handle(c)

			eventually(t, func() bool { return closer.closed.Load() })
			require.Empty(t, sink.Fragments(), "no response may be sent after a framing breach")
		})
	}
}

func TestResponsesAreOrdered(t *testing.T) {
	for name, eng := range engines() {
		t.Run(name, func(t *testing.T) {
			slowFirst := http.ResponderFunc(func(_ context.Context, request *http.Request) (*http.Response, error) {
				if request.Path == "/first" {
					time.Sleep(30 * time.Millisecond)
				}

				return request.Respond().String(request.Path), nil
			})

			src := dummy.NewSliceSource(
				fragment.NewHead(getHead("/first")),
				fragment.NewEnd(),
				fragment.NewHead(getHead("/second")),
				fragment.NewEnd(),
			)
			sink := dummy.NewRecordingSink()
			c, closer := newConn(src, sink, slowFirst)

			eng.Handle(c)

			eventually(t, func() bool { return closer.closed.Load() })

			frags := sink.Fragments()
			require.Len(t, frags, 6)
			require.Equal(t, "/first", string(frags[1].Data),
				"the first response must be fully emitted before the second")
			require.Equal(t, "/second", string(frags[4].Data))
			require.Equal(t, 2, sink.Ends())
		})
	}
}

func TestEmitFailureIsFatal(t *testing.T) {
	for name, eng := range engines() {
		t.Run(name, func(t *testing.T) {
			src := dummy.NewSliceSource(
				fragment.NewHead(getHead("/")),
				fragment.NewEnd(),
				fragment.NewHead(getHead("/never-answered")),
				fragment.NewEnd(),
			)
			sink := dummy.NewRecordingSink()
			sink.FailAfter, sink.FailErr = 1, errors.New("connection reset")
			c, closer := newConn(src, sink, helloResponder())

			eng.Handle(c)

			eventually(t, func() bool { return closer.closed.Load() })
			require.Equal(t, 0, sink.Ends(), "the aborted response must not be terminated")
		})
	}
}

func TestConnectionsAreIsolated(t *testing.T) {
	// a responder stuck on one connection must not prevent another from being served
	for name, eng := range map[string]Engine{
		"detached":   NewDetached(1, 8),
		"structured": NewStructured(context.Background(), 8),
	} {
		t.Run(name, func(t *testing.T) {
			release := make(chan struct{})
			responder := http.ResponderFunc(func(_ context.Context, request *http.Request) (*http.Response, error) {
				if request.Path == "/stuck" {
					<-release
				}

				return request.Respond().String("done"), nil
			})

			stuckSrc := dummy.NewSliceSource(
				fragment.NewHead(getHead("/stuck")),
				fragment.NewEnd(),
			)
			stuckSink := dummy.NewRecordingSink()
			stuck, _ := newConn(stuckSrc, stuckSink, responder)

			go eng.Handle(stuck)

			quickSrc := dummy.NewSliceSource(
				fragment.NewHead(getHead("/quick")),
				fragment.NewEnd(),
			)
			quickSink := dummy.NewRecordingSink()
			quick, quickCloser := newConn(quickSrc, quickSink, responder)

			go eng.Handle(quick)

			eventually(t, func() bool { return quickCloser.closed.Load() })
			require.Equal(t, 1, quickSink.Ends())

			close(release)
			eventually(t, func() bool { return stuckSink.Ends() == 1 })
		})
	}
}

func TestStructuredCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	eng := NewStructured(ctx, 8)

	blocked := make(chan struct{})
	responder := http.ResponderFunc(func(ctx context.Context, request *http.Request) (*http.Response, error) {
		close(blocked)
		<-ctx.Done()

		return nil, ctx.Err()
	})

	src := dummy.NewSliceSource(
		fragment.NewHead(getHead("/")),
		fragment.NewEnd(),
	)
	sink := dummy.NewRecordingSink()
	c, closer := newConn(src, sink, responder)

	done := make(chan struct{})
	go func() {
		eng.Handle(c)
		close(done)
	}()

	<-blocked
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cancelling the group must cancel the in-flight responder call")
	}

	require.NoError(t, eng.Wait())
	require.True(t, closer.closed.Load())
}
