package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/alumnihub/alumni-backend/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	redisMsgPrefix  = "chat:msg:"
	redisConvPrefix = "chat:conv:"
	redisUserPrefix = "chat:user:"
	redisLivePrefix = "chat:live:"

	defaultLiveCheck = 15 * time.Second
)

// MessageRedisStore is the secondary chat store with a live-update channel.
// Messages are kept as JSON under chat:msg:<id> and indexed by conversation
// pair and by participant in sorted sets scored by creation time.
type MessageRedisStore struct {
	client *redis.Client
	// liveCheck is how often an open subscription pings the server.
	// go-redis reconnects pub/sub silently, so a dropped server only shows up here.
	liveCheck time.Duration
}

// NewMessageRedisStore creates a new MessageRedisStore
func NewMessageRedisStore(client *redis.Client) *MessageRedisStore {
	return &MessageRedisStore{client: client, liveCheck: defaultLiveCheck}
}

// Name identifies the backend in logs and metrics
func (s *MessageRedisStore) Name() string { return "redis" }

// pairKey is order-independent
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func score(m *domain.Message) float64 {
	return float64(m.CreatedAt.UnixNano())
}

// Insert stores the message and announces it on the conversation channel
func (s *MessageRedisStore) Insert(ctx context.Context, m *domain.Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	pair := pairKey(m.SenderID, m.ReceiverID)
	z := redis.Z{Score: score(m), Member: m.ID}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, redisMsgPrefix+m.ID, data, 0)
		p.ZAdd(ctx, redisConvPrefix+pair, z)
		p.ZAdd(ctx, redisUserPrefix+m.SenderID, z)
		p.ZAdd(ctx, redisUserPrefix+m.ReceiverID, z)
		p.Publish(ctx, redisLivePrefix+pair, data)
		return nil
	})
	return err
}

// Publish announces a message stored elsewhere to live subscribers without storing it
func (s *MessageRedisStore) Publish(ctx context.Context, m *domain.Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, redisLivePrefix+pairKey(m.SenderID, m.ReceiverID), data).Err()
}

// Conversation returns messages between a and b, oldest first
func (s *MessageRedisStore) Conversation(ctx context.Context, a, b string) ([]*domain.Message, error) {
	ids, err := s.client.ZRange(ctx, redisConvPrefix+pairKey(a, b), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return s.load(ctx, ids)
}

// Involving returns messages sent or received by userID, newest first
func (s *MessageRedisStore) Involving(ctx context.Context, userID string) ([]*domain.Message, error) {
	ids, err := s.client.ZRevRange(ctx, redisUserPrefix+userID, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return s.load(ctx, ids)
}

// MarkRead flips unread messages from peerID to selfID
func (s *MessageRedisStore) MarkRead(ctx context.Context, peerID, selfID string) (int64, error) {
	msgs, err := s.Conversation(ctx, peerID, selfID)
	if err != nil {
		return 0, err
	}

	var updated int64
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, m := range msgs {
			if m.SenderID != peerID || m.ReceiverID != selfID || m.Read {
				continue
			}
			m.Read = true
			data, err := json.Marshal(m)
			if err != nil {
				return err
			}
			p.Set(ctx, redisMsgPrefix+m.ID, data, 0)
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

func (s *MessageRedisStore) load(ctx context.Context, ids []string) ([]*domain.Message, error) {
	out := make([]*domain.Message, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisMsgPrefix + id
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue // index entry without a body
		}
		var m domain.Message
		if err := json.Unmarshal([]byte(str), &m); err != nil {
			return nil, fmt.Errorf("decode stored message: %w", err)
		}
		out = append(out, &m)
	}
	return out, nil
}

// Subscribe opens a live stream for the (selfID, peerID) conversation.
// The channel is joined before the snapshot is taken so nothing published in between is lost.
func (s *MessageRedisStore) Subscribe(ctx context.Context, selfID, peerID string) (domain.MessageStream, error) {
	pubsub := s.client.Subscribe(ctx, redisLivePrefix+pairKey(selfID, peerID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	snapshot, err := s.Conversation(ctx, selfID, peerID)
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	st := &redisStream{
		pubsub:    pubsub,
		snapshot:  snapshot,
		updates:   make(chan *domain.Message, 64),
		done:      make(chan struct{}),
		self:      selfID,
		peer:      peerID,
		liveCheck: s.liveCheck,
	}
	go st.pump()
	return st, nil
}

type redisStream struct {
	pubsub    *redis.PubSub
	snapshot  []*domain.Message
	updates   chan *domain.Message
	done      chan struct{}
	self      string
	peer      string
	liveCheck time.Duration

	mu     sync.Mutex
	err    error
	closed bool
}

func (st *redisStream) pump() {
	defer close(st.updates)

	ch := st.pubsub.Channel()
	ticker := time.NewTicker(st.liveCheck)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var m domain.Message
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				st.fail(fmt.Errorf("decode live message: %w", err))
				return
			}
			if !m.Between(st.self, st.peer) {
				continue
			}
			select {
			case st.updates <- &m:
			case <-st.done:
				return
			}
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), st.liveCheck)
			err := st.pubsub.Ping(ctx)
			cancel()
			if err != nil {
				st.fail(fmt.Errorf("live subscription lost: %w", err))
				return
			}
		case <-st.done:
			return
		}
	}
}

func (st *redisStream) fail(err error) {
	st.mu.Lock()
	if st.err == nil && !st.closed {
		st.err = err
	}
	st.mu.Unlock()
	_ = st.pubsub.Close()
}

func (st *redisStream) Snapshot() []*domain.Message { return st.snapshot }

func (st *redisStream) Updates() <-chan *domain.Message { return st.updates }

func (st *redisStream) Err() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.err
}

// Close is idempotent
func (st *redisStream) Close() error {
	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return nil
	}
	st.closed = true
	close(st.done)
	st.mu.Unlock()
	return st.pubsub.Close()
}
