package chat

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/alumnihub/alumni-backend/internal/domain"
	pkglogger "github.com/alumnihub/alumni-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const refreshTimeout = 10 * time.Second

// Config wires the router's backends
type Config struct {
	// Primary is the main message store (tried first)
	Primary Backend
	// Secondary is the live store; only written to in ModeLive
	Secondary LiveBackend
	// Facade is the authenticated REST façade over Primary (tried last)
	Facade Backend

	Mode        Mode
	StepTimeout time.Duration
	Refresher   Refresher
}

// Router sends, fetches and marks chat messages, trying backends in a fixed order.
// It is safe for concurrent use; per-view state lives in Session.
type Router struct {
	primary     Backend
	secondary   LiveBackend
	facade      Backend
	mode        Mode
	stepTimeout time.Duration
	refresher   Refresher
	log         zerolog.Logger

	now   func() time.Time
	newID func() string
}

// NewRouter creates a Router
func NewRouter(cfg Config) *Router {
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = 5 * time.Second
	}
	return &Router{
		primary:     cfg.Primary,
		secondary:   cfg.Secondary,
		facade:      cfg.Facade,
		mode:        cfg.Mode,
		stepTimeout: cfg.StepTimeout,
		refresher:   cfg.Refresher,
		log:         pkglogger.WithComponent("chat.router"),
		now:         func() time.Time { return time.Now().UTC() },
		newID:       func() string { return uuid.New().String() },
	}
}

// SetRefresher sets the conversation refresher after construction
func (r *Router) SetRefresher(ref Refresher) {
	r.refresher = ref
}

// Mode returns the router's default mode
func (r *Router) Mode() Mode { return r.mode }

// Live returns the live backend, or nil
func (r *Router) Live() LiveBackend { return r.secondary }

// Send delivers a message using the router's default mode
func (r *Router) Send(ctx context.Context, req *domain.SendMessageRequest) (*domain.Message, error) {
	return r.SendMode(ctx, r.mode, req)
}

// SendMode delivers a message: primary, then secondary when mode is live, then the façade.
// Every backend failure falls through to the next; only exhausting all of them is an error.
func (r *Router) SendMode(ctx context.Context, mode Mode, req *domain.SendMessageRequest) (*domain.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:           r.newID(),
		SenderID:     req.SenderID,
		ReceiverID:   req.ReceiverID,
		SenderRole:   req.SenderRole,
		ReceiverRole: req.ReceiverRole,
		Content:      strings.TrimSpace(req.Content),
		Read:         false,
		CreatedAt:    r.now(),
	}

	var errs []error
	for _, b := range r.sendOrder(mode) {
		err := r.step(ctx, func(ctx context.Context) error { return b.Insert(ctx, msg) })
		observeAttempt("send", b.Name(), err)
		if err != nil {
			errs = append(errs, err)
			r.log.Debug().Err(err).Str("backend", b.Name()).Str("message_id", msg.ID).Msg("send attempt failed, trying next backend")
			continue
		}

		if r.secondary != nil && b != Backend(r.secondary) {
			r.announce(msg)
		}
		r.refreshAsync(msg.SenderID, msg.ReceiverID)
		return msg, nil
	}

	derr := deliveryError("send", errs)
	deliveryFailures.WithLabelValues("send", string(derr.Cause)).Inc()
	r.log.Error().Err(derr.Last).Str("cause", string(derr.Cause)).Msg("send failed on all backends")
	return nil, derr
}

func (r *Router) sendOrder(mode Mode) []Backend {
	order := make([]Backend, 0, 3)
	if r.primary != nil {
		order = append(order, r.primary)
	}
	if mode == ModeLive && r.secondary != nil {
		order = append(order, r.secondary)
	}
	if r.facade != nil {
		order = append(order, r.facade)
	}
	return order
}

// Fetch returns the (selfID, peerID) conversation oldest first.
// The primary snapshot comes from the first of primary or façade that answers; the
// secondary store, when configured, is merged in so messages delivered there are not lost.
func (r *Router) Fetch(ctx context.Context, selfID, peerID string) ([]*domain.Message, error) {
	return r.collect(ctx, "fetch", func(ctx context.Context, b Backend) ([]*domain.Message, error) {
		return b.Conversation(ctx, selfID, peerID)
	}, true)
}

// FetchPrimary returns the conversation from the primary chain only
func (r *Router) FetchPrimary(ctx context.Context, selfID, peerID string) ([]*domain.Message, error) {
	return r.collect(ctx, "fetch", func(ctx context.Context, b Backend) ([]*domain.Message, error) {
		return b.Conversation(ctx, selfID, peerID)
	}, false)
}

// Involving returns every message sent or received by userID, merged across backends
func (r *Router) Involving(ctx context.Context, userID string) ([]*domain.Message, error) {
	return r.collect(ctx, "involving", func(ctx context.Context, b Backend) ([]*domain.Message, error) {
		return b.Involving(ctx, userID)
	}, true)
}

func (r *Router) collect(ctx context.Context, op string, read func(context.Context, Backend) ([]*domain.Message, error), withSecondary bool) ([]*domain.Message, error) {
	var (
		errs    []error
		batches [][]*domain.Message
		ok      bool
	)

	for _, b := range []Backend{r.primary, r.facade} {
		if b == nil {
			continue
		}
		var msgs []*domain.Message
		err := r.step(ctx, func(ctx context.Context) error {
			var err error
			msgs, err = read(ctx, b)
			return err
		})
		observeAttempt(op, b.Name(), err)
		if err != nil {
			errs = append(errs, err)
			r.log.Debug().Err(err).Str("backend", b.Name()).Str("op", op).Msg("read attempt failed")
			continue
		}
		batches = append(batches, msgs)
		ok = true
		break
	}

	if withSecondary && r.secondary != nil {
		var msgs []*domain.Message
		err := r.step(ctx, func(ctx context.Context) error {
			var err error
			msgs, err = read(ctx, r.secondary)
			return err
		})
		observeAttempt(op, r.secondary.Name(), err)
		if err != nil {
			errs = append(errs, err)
			r.log.Debug().Err(err).Str("backend", r.secondary.Name()).Str("op", op).Msg("read attempt failed")
		} else {
			batches = append(batches, msgs)
			ok = true
		}
	}

	if !ok {
		derr := deliveryError(op, errs)
		deliveryFailures.WithLabelValues(op, string(derr.Cause)).Inc()
		r.log.Error().Err(derr.Last).Str("op", op).Str("cause", string(derr.Cause)).Msg("read failed on all backends")
		return nil, derr
	}
	return MergeMessages(batches...), nil
}

// MarkRead marks everything peerID sent to selfID as read. Backend errors are logged
// and swallowed; the returned count is the total flipped across stores.
func (r *Router) MarkRead(ctx context.Context, peerID, selfID string) int64 {
	var total int64
	mark := func(b Backend) bool {
		var n int64
		err := r.step(ctx, func(ctx context.Context) error {
			var err error
			n, err = b.MarkRead(ctx, peerID, selfID)
			return err
		})
		observeAttempt("mark_read", b.Name(), err)
		if err != nil {
			r.log.Debug().Err(err).Str("backend", b.Name()).Msg("mark-read attempt failed")
			return false
		}
		total += n
		return true
	}

	primaryDone := r.primary != nil && mark(r.primary)
	anyDone := primaryDone
	if r.secondary != nil && mark(r.secondary) {
		anyDone = true
	}
	if !primaryDone && r.facade != nil && mark(r.facade) {
		anyDone = true
	}
	if !anyDone {
		r.log.Error().Str("peer_id", peerID).Str("self_id", selfID).Msg("mark-read failed on all backends")
	}

	r.refreshAsync(peerID, selfID)
	return total
}

func (r *Router) step(ctx context.Context, fn func(context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, r.stepTimeout)
	defer cancel()
	return fn(stepCtx)
}

func (r *Router) announce(msg *domain.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), r.stepTimeout)
	defer cancel()
	if err := r.secondary.Publish(ctx, msg); err != nil {
		r.log.Debug().Err(err).Str("message_id", msg.ID).Msg("live announce failed")
	}
}

func (r *Router) refreshAsync(userIDs ...string) {
	if r.refresher == nil {
		return
	}
	ref := r.refresher
	go func() {
		defer func() {
			if p := recover(); p != nil {
				r.log.Error().Interface("panic", p).Msg("conversation refresh panicked")
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		ref.Refresh(ctx, userIDs...)
	}()
}

// MergeMessages unions message batches by ID and orders them oldest first.
// A message seen as read in any batch stays read.
func MergeMessages(batches ...[]*domain.Message) []*domain.Message {
	byID := make(map[string]*domain.Message)
	for _, batch := range batches {
		for _, m := range batch {
			if m == nil {
				continue
			}
			if prev, ok := byID[m.ID]; ok {
				if m.Read && !prev.Read {
					cp := *prev
					cp.Read = true
					byID[m.ID] = &cp
				}
				continue
			}
			byID[m.ID] = m
		}
	}

	out := make([]*domain.Message, 0, len(byID))
	for _, m := range byID {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
