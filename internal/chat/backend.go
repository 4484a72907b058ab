// Package chat routes chat operations across redundant message stores.
package chat

import (
	"context"

	"github.com/alumnihub/alumni-backend/internal/domain"
)

// Backend is one message store the router can deliver to
type Backend interface {
	Name() string
	Insert(ctx context.Context, m *domain.Message) error
	Conversation(ctx context.Context, a, b string) ([]*domain.Message, error)
	Involving(ctx context.Context, userID string) ([]*domain.Message, error)
	MarkRead(ctx context.Context, peerID, selfID string) (int64, error)
}

// LiveBackend is a Backend with a live-update channel
type LiveBackend interface {
	Backend
	Publish(ctx context.Context, m *domain.Message) error
	Subscribe(ctx context.Context, selfID, peerID string) (domain.MessageStream, error)
}

// Refresher recomputes conversation summaries after a write
type Refresher interface {
	Refresh(ctx context.Context, userIDs ...string)
}

// Mode selects whether live updates are used
type Mode int

const (
	ModeREST Mode = iota
	ModeLive
)

func (m Mode) String() string {
	if m == ModeLive {
		return "live"
	}
	return "rest"
}

// ParseMode maps a config value onto a Mode
func ParseMode(s string) Mode {
	if s == "live" {
		return ModeLive
	}
	return ModeREST
}

type bearerKey struct{}

// WithBearerToken attaches the caller's token for backends that forward it
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey{}, token)
}

// BearerToken returns the token attached by WithBearerToken
func BearerToken(ctx context.Context) string {
	tok, _ := ctx.Value(bearerKey{}).(string)
	return tok
}
