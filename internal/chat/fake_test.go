package chat

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/alumnihub/alumni-backend/internal/domain"
)

var errDown = errors.New("backend down")

type fakeBackend struct {
	name string

	mu       sync.Mutex
	msgs     map[string]*domain.Message
	fail     error
	inserts  int
	reads    int
	marks    int
	block    bool
	subErr   error
	subs     []*fakeStream
	openSubs int
	maxOpen  int
}

func newFake(name string) *fakeBackend {
	return &fakeBackend{name: name, msgs: make(map[string]*domain.Message)}
}

func (f *fakeBackend) setFail(err error) {
	f.mu.Lock()
	f.fail = err
	f.mu.Unlock()
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) wait(ctx context.Context) error {
	f.mu.Lock()
	block, fail := f.block, f.fail
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return fail
}

func (f *fakeBackend) Insert(ctx context.Context, m *domain.Message) error {
	f.mu.Lock()
	f.inserts++
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *m
	f.msgs[m.ID] = &cp
	return nil
}

func (f *fakeBackend) list(match func(*domain.Message) bool) []*domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Message
	for _, m := range f.msgs {
		if match(m) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (f *fakeBackend) Conversation(ctx context.Context, a, b string) ([]*domain.Message, error) {
	f.mu.Lock()
	f.reads++
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.list(func(m *domain.Message) bool { return m.Between(a, b) }), nil
}

func (f *fakeBackend) Involving(ctx context.Context, userID string) ([]*domain.Message, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.list(func(m *domain.Message) bool { return m.SenderID == userID || m.ReceiverID == userID }), nil
}

func (f *fakeBackend) MarkRead(ctx context.Context, peerID, selfID string) (int64, error) {
	f.mu.Lock()
	f.marks++
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.msgs {
		if m.SenderID == peerID && m.ReceiverID == selfID && !m.Read {
			m.Read = true
			n++
		}
	}
	return n, nil
}

func (f *fakeBackend) Publish(ctx context.Context, m *domain.Message) error {
	f.mu.Lock()
	subs := append([]*fakeStream(nil), f.subs...)
	f.mu.Unlock()
	for _, s := range subs {
		s.push(m)
	}
	return nil
}

func (f *fakeBackend) Subscribe(ctx context.Context, selfID, peerID string) (domain.MessageStream, error) {
	f.mu.Lock()
	err := f.subErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	snap := f.list(func(m *domain.Message) bool { return m.Between(selfID, peerID) })

	f.mu.Lock()
	defer f.mu.Unlock()
	s := &fakeStream{owner: f, snap: snap, updates: make(chan *domain.Message, 16)}
	f.subs = append(f.subs, s)
	f.openSubs++
	if f.openSubs > f.maxOpen {
		f.maxOpen = f.openSubs
	}
	return s, nil
}

func (f *fakeBackend) open() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.openSubs
}

type fakeStream struct {
	owner   *fakeBackend
	snap    []*domain.Message
	updates chan *domain.Message

	mu     sync.Mutex
	closed bool
	err    error
}

func (s *fakeStream) Snapshot() []*domain.Message     { return s.snap }
func (s *fakeStream) Updates() <-chan *domain.Message { return s.updates }

func (s *fakeStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeStream) push(m *domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.updates <- m
	}
}

func (s *fakeStream) end(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	close(s.updates)
	s.owner.mu.Lock()
	s.owner.openSubs--
	s.owner.mu.Unlock()
}

func (s *fakeStream) Close() error {
	s.end(nil)
	return nil
}

type countingRefresher struct {
	mu    sync.Mutex
	calls [][]string
	done  chan struct{}
}

func newRefresher() *countingRefresher {
	return &countingRefresher{done: make(chan struct{}, 16)}
}

func (r *countingRefresher) Refresh(_ context.Context, userIDs ...string) {
	r.mu.Lock()
	r.calls = append(r.calls, userIDs)
	r.mu.Unlock()
	r.done <- struct{}{}
}
