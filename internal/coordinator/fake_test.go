package coordinator

import (
	"context"
	"io"
	"sync"

	"github.com/user/finsight/internal/types"
	"github.com/user/finsight/pkg/insights"
)

func strp(s string) *string { return &s }

type fakeStream struct {
	msgs    []types.StreamMessage
	err     error
	release chan struct{}

	mu     sync.Mutex
	pos    int
	closed bool
}

func (s *fakeStream) Next() (types.StreamMessage, error) {
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos < len(s.msgs) {
		msg := s.msgs[s.pos]
		s.pos++
		return msg, nil
	}
	if s.err != nil {
		return types.StreamMessage{}, s.err
	}
	return types.StreamMessage{}, io.EOF
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// fakeBackend serves one scripted stream per query.
type fakeBackend struct {
	mu         sync.Mutex
	streams    map[string]*fakeStream
	prepareErr error
	openErr    error
	opened     map[string]chan struct{}
	queries    map[types.RequestID]string
	prepared   []insights.PrepareRequest

	generate  func(req insights.GenerateRequest) (*insights.GenerateResult, error)
	generated []insights.GenerateRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		streams: map[string]*fakeStream{},
		opened:  map[string]chan struct{}{},
		queries: map[types.RequestID]string{},
	}
}

// script registers the stream served for query and returns a channel
// closed once the stream is opened.
func (b *fakeBackend) script(query string, s *fakeStream) <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.streams[query] = s
	ch := make(chan struct{})
	b.opened[query] = ch
	return ch
}

func (b *fakeBackend) PrepareStream(_ context.Context, req insights.PrepareRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prepared = append(b.prepared, req)
	if b.prepareErr != nil {
		return b.prepareErr
	}
	b.queries[types.RequestID(req.RequestID)] = req.Query
	return nil
}

func (b *fakeBackend) OpenStream(_ context.Context, id types.RequestID) (MessageStream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	query := b.queries[id]
	s, ok := b.streams[query]
	if !ok {
		s = &fakeStream{}
	}
	if ch, ok := b.opened[query]; ok {
		close(ch)
		delete(b.opened, query)
	}
	return s, nil
}

func (b *fakeBackend) Generate(_ context.Context, req insights.GenerateRequest) (*insights.GenerateResult, error) {
	b.mu.Lock()
	b.generated = append(b.generated, req)
	fn := b.generate
	b.mu.Unlock()
	if fn == nil {
		return nil, insights.ErrServer
	}
	return fn(req)
}

func (b *fakeBackend) generateCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.generated)
}

type fakeSessions struct {
	mu      sync.Mutex
	id      types.SessionID
	adopted []types.SessionID
}

func (s *fakeSessions) Current() (types.SessionID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, s.id != ""
}

func (s *fakeSessions) Adopt(_ context.Context, id types.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	s.adopted = append(s.adopted, id)
	return nil
}

func (s *fakeSessions) rotate(id types.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
}
