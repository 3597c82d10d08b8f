// Package dummy provides in-memory fragment sources and sinks for tests and
// benchmarks, sparing them a real transport.
package dummy

import (
	"io"
	"sync"

	"github.com/indigo-web/trident/fragment"
	"github.com/indigo-web/trident/http/proto"
	"github.com/indigo-web/trident/http/status"
	"github.com/indigo-web/trident/kv"
)

var _ fragment.Source = new(SliceSource)

// SliceSource replays a fixed sequence of fragments and reports io.EOF afterwards.
type SliceSource struct {
	mu        sync.Mutex
	fragments []fragment.Fragment
	pointer   int
	err       error
}

func NewSliceSource(fragments ...fragment.Fragment) *SliceSource {
	return &SliceSource{fragments: fragments}
}

// FailWith makes the source return the error instead of io.EOF once drained.
func (s *SliceSource) FailWith(err error) *SliceSource {
	s.err = err
	return s
}

func (s *SliceSource) Next() (fragment.Fragment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pointer >= len(s.fragments) {
		if s.err != nil {
			return fragment.Fragment{}, s.err
		}

		return fragment.Fragment{}, io.EOF
	}

	frag := s.fragments[s.pointer]
	s.pointer++

	return frag, nil
}

var _ fragment.Sink = new(RecordingSink)

// RecordedHead is a single head fragment as observed by a RecordingSink.
type RecordedHead struct {
	Proto   proto.Proto
	Code    status.Code
	Text    status.Status
	Headers *kv.Storage
}

// Recorded is a single outbound fragment as observed by a RecordingSink.
type Recorded struct {
	Kind fragment.Kind
	Head RecordedHead
	Data []byte
}

// RecordingSink captures every outbound fragment in order. FailAfter can be used to
// simulate a transport write failure at an arbitrary point of the emit sequence.
type RecordingSink struct {
	mu sync.Mutex
	// FailAfter is the number of successful writes allowed before every following
	// write is rejected with FailErr. Zero means never fail.
	FailAfter int
	FailErr   error
	writes    int
	fragments []Recorded
}

func NewRecordingSink() *RecordingSink {
	return new(RecordingSink)
}

func (r *RecordingSink) Head(p proto.Proto, code status.Code, text status.Status, headers *kv.Storage) error {
	return r.record(Recorded{
		Kind: fragment.KindHead,
		Head: RecordedHead{Proto: p, Code: code, Text: text, Headers: headers.Clone()},
	})
}

func (r *RecordingSink) Body(data []byte) error {
	copied := make([]byte, len(data))
	copy(copied, data)

	return r.record(Recorded{Kind: fragment.KindBody, Data: copied})
}

func (r *RecordingSink) End() error {
	return r.record(Recorded{Kind: fragment.KindEnd})
}

func (r *RecordingSink) record(frag Recorded) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailAfter > 0 && r.writes >= r.FailAfter {
		return r.FailErr
	}

	r.writes++
	r.fragments = append(r.fragments, frag)

	return nil
}

// Fragments returns everything recorded so far.
func (r *RecordingSink) Fragments() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Recorded(nil), r.fragments...)
}

// Ends counts the end markers recorded so far.
func (r *RecordingSink) Ends() (n int) {
	for _, frag := range r.Fragments() {
		if frag.Kind == fragment.KindEnd {
			n++
		}
	}

	return n
}
