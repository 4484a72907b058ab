package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/alumnihub/alumni-backend/internal/domain"
	pkglogger "github.com/alumnihub/alumni-backend/pkg/logger"
	"github.com/rs/zerolog"
)

var (
	// ErrSessionClosed is returned by operations on a closed Session
	ErrSessionClosed = errors.New("chat session closed")
	// ErrInvalidTransition is returned when an operation is not allowed in the current state
	ErrInvalidTransition = errors.New("invalid session state transition")
	// ErrNoConversation is returned by Send before any peer has been selected
	ErrNoConversation = errors.New("no conversation selected")
	// ErrConversationLoading is returned by Send while the selected conversation is loading
	ErrConversationLoading = errors.New("conversation is still loading")
)

// State is the lifecycle state of a chat view
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// CanTransition reports whether s may move to next
func (s State) CanTransition(next State) bool {
	switch s {
	case StateIdle, StateReady, StateFailed:
		return next == StateLoading
	case StateLoading:
		return next == StateReady || next == StateFailed
	}
	return false
}

// Event drives mode transitions
type Event int

const (
	EventPeerChanged Event = iota
	EventSubscriptionFailed
)

// nextMode is the mode transition table. A failed subscription always drops to REST.
func nextMode(m Mode, ev Event) Mode {
	if ev == EventSubscriptionFailed {
		return ModeREST
	}
	return m
}

// SessionConfig configures a Session
type SessionConfig struct {
	Router   *Router
	SelfID   string
	SelfRole domain.Role
	Mode     Mode
	// Buffer is the capacity of the Messages channel
	Buffer int
	// Context is the parent of the session's background work; it may carry a bearer token
	Context context.Context
}

// Session is the state of one open chat view: the selected peer and at most one
// live subscription. Select and Retry are serialized.
type Session struct {
	router   *Router
	selfID   string
	selfRole domain.Role
	log      zerolog.Logger

	opMu sync.Mutex

	mu       sync.Mutex
	state    State
	mode     Mode
	peerID   string
	cycle    uint64
	fellBack bool
	stream   domain.MessageStream
	seen     map[string]struct{}
	closed   bool

	out    chan *domain.Message
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSession creates an idle session
func NewSession(cfg SessionConfig) *Session {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	mode := cfg.Mode
	if cfg.Router == nil || cfg.Router.Live() == nil {
		mode = ModeREST
	}
	parent := cfg.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		router:   cfg.Router,
		selfID:   cfg.SelfID,
		selfRole: cfg.SelfRole,
		log:      pkglogger.WithComponent("chat.session").With().Str("user_id", cfg.SelfID).Logger(),
		state:    StateIdle,
		mode:     mode,
		seen:     make(map[string]struct{}),
		out:      make(chan *domain.Message, cfg.Buffer),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Mode returns the current mode. It only ever moves from live to REST.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Peer returns the selected peer
func (s *Session) Peer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerID
}

// Messages streams messages that arrive after the snapshot returned by Select.
// The channel is closed by Close.
func (s *Session) Messages() <-chan *domain.Message {
	return s.out
}

// Select switches the view to peerID and returns its conversation oldest first.
// Any standing subscription is released before a new one is opened.
func (s *Session) Select(ctx context.Context, peerID string) ([]*domain.Message, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.load(ctx, peerID)
}

// Retry reloads the current peer after a failure
func (s *Session) Retry(ctx context.Context) ([]*domain.Message, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	state, peer := s.state, s.peerID
	s.mu.Unlock()
	if state != StateFailed {
		return nil, fmt.Errorf("retry from %s: %w", state, ErrInvalidTransition)
	}
	return s.load(ctx, peer)
}

// Send delivers content to the selected peer using the session's current mode.
// A sent message is also emitted on Messages exactly once.
// Sending is refused until a peer is selected and while it is loading.
func (s *Session) Send(ctx context.Context, receiverRole domain.Role, content string) (*domain.Message, error) {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return nil, ErrSessionClosed
	case s.peerID == "":
		s.mu.Unlock()
		return nil, ErrNoConversation
	case s.state == StateLoading:
		s.mu.Unlock()
		return nil, ErrConversationLoading
	}
	peer, mode, cycle := s.peerID, s.mode, s.cycle
	s.mu.Unlock()

	msg, err := s.router.SendMode(ctx, mode, &domain.SendMessageRequest{
		SenderID:     s.selfID,
		ReceiverID:   peer,
		SenderRole:   s.selfRole,
		ReceiverRole: receiverRole,
		Content:      content,
	})
	if err != nil {
		return nil, err
	}
	// the live echo of this message is then dropped as already seen
	if s.admit(cycle, msg) {
		s.emit(msg)
	}
	return msg, nil
}

// Close releases the subscription and closes Messages. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cycle++
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	s.cancel()
	var err error
	if stream != nil {
		err = stream.Close()
	}
	s.wg.Wait()
	close(s.out)
	return err
}

func (s *Session) load(ctx context.Context, peerID string) ([]*domain.Message, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if !s.state.CanTransition(StateLoading) {
		state := s.state
		s.mu.Unlock()
		return nil, fmt.Errorf("select from %s: %w", state, ErrInvalidTransition)
	}
	s.state = StateLoading
	s.cycle++
	cycle := s.cycle
	old := s.stream
	s.stream = nil
	s.peerID = peerID
	s.fellBack = false
	s.seen = make(map[string]struct{})
	mode := s.mode
	s.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			s.log.Debug().Err(err).Msg("closing previous subscription")
		}
	}

	var (
		msgs []*domain.Message
		err  error
	)
	if mode == ModeLive {
		msgs, err = s.openLive(ctx, cycle, peerID)
	} else {
		msgs, err = s.router.Fetch(ctx, s.selfID, peerID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cycle != s.cycle {
		return nil, ErrSessionClosed
	}
	if err != nil {
		s.state = StateFailed
		return nil, err
	}
	for _, m := range msgs {
		s.seen[m.ID] = struct{}{}
	}
	s.state = StateReady
	return msgs, nil
}

// openLive subscribes and merges the live snapshot with the primary one.
// A failed subscribe drops the session to REST and issues the cycle's one fallback fetch.
func (s *Session) openLive(ctx context.Context, cycle uint64, peerID string) ([]*domain.Message, error) {
	stream, err := s.router.Live().Subscribe(ctx, s.selfID, peerID)
	if err != nil {
		s.log.Warn().Err(err).Str("peer_id", peerID).Msg("live subscription failed, falling back to REST")
		if !s.markFallback(cycle) {
			return nil, err
		}
		return s.router.Fetch(ctx, s.selfID, peerID)
	}

	primary, perr := s.router.FetchPrimary(ctx, s.selfID, peerID)
	if perr != nil {
		s.log.Debug().Err(perr).Msg("primary snapshot unavailable, using live snapshot only")
	}
	msgs := MergeMessages(stream.Snapshot(), primary)

	s.mu.Lock()
	if cycle != s.cycle || s.closed {
		s.mu.Unlock()
		_ = stream.Close()
		return nil, ErrSessionClosed
	}
	s.stream = stream
	for _, m := range msgs {
		s.seen[m.ID] = struct{}{}
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go s.pump(cycle, stream)
	return msgs, nil
}

// markFallback records the cycle's fallback. It reports false if one already happened.
func (s *Session) markFallback(cycle uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cycle != s.cycle || s.fellBack {
		return false
	}
	s.fellBack = true
	s.mode = nextMode(s.mode, EventSubscriptionFailed)
	liveFallbacks.Inc()
	return true
}

func (s *Session) pump(cycle uint64, stream domain.MessageStream) {
	defer s.wg.Done()

	for m := range stream.Updates() {
		if !s.admit(cycle, m) {
			continue
		}
		if !s.emit(m) {
			return
		}
	}

	err := stream.Err()
	if err == nil {
		return
	}
	s.log.Warn().Err(err).Msg("live subscription ended, falling back to REST")

	s.mu.Lock()
	if cycle != s.cycle || s.closed || s.fellBack {
		s.mu.Unlock()
		return
	}
	s.fellBack = true
	s.mode = nextMode(s.mode, EventSubscriptionFailed)
	s.stream = nil
	s.state = StateLoading
	peer := s.peerID
	s.mu.Unlock()
	liveFallbacks.Inc()

	msgs, ferr := s.router.Fetch(s.ctx, s.selfID, peer)

	s.mu.Lock()
	if cycle != s.cycle {
		s.mu.Unlock()
		return
	}
	if ferr != nil {
		s.state = StateFailed
		s.mu.Unlock()
		s.log.Error().Err(ferr).Msg("fallback fetch failed")
		return
	}
	s.state = StateReady
	s.mu.Unlock()

	for _, m := range msgs {
		if s.admit(cycle, m) && !s.emit(m) {
			return
		}
	}
}

// admit reports whether m belongs to the current cycle and has not been delivered yet
func (s *Session) admit(cycle uint64, m *domain.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cycle != s.cycle || m == nil {
		return false
	}
	if _, ok := s.seen[m.ID]; ok {
		return false
	}
	s.seen[m.ID] = struct{}{}
	return true
}

func (s *Session) emit(m *domain.Message) bool {
	select {
	case s.out <- m:
		return true
	case <-s.ctx.Done():
		return false
	}
}
