package service

import (
	"context"
	"errors"

	"github.com/alumnihub/alumni-backend/internal/common"
	"github.com/alumnihub/alumni-backend/internal/domain"
	"github.com/alumnihub/alumni-backend/internal/repository"
	"github.com/alumnihub/alumni-backend/internal/ws"
	"github.com/alumnihub/alumni-backend/pkg/cache"
	pkglogger "github.com/alumnihub/alumni-backend/pkg/logger"
	"github.com/rs/zerolog"
)

// EventPusher pushes real-time events to a user's open connections
type EventPusher interface {
	SendToUser(userID string, event *ws.Event)
}

// MessageSource lists every message a user sent or received
type MessageSource interface {
	Involving(ctx context.Context, userID string) ([]*domain.Message, error)
}

// ConversationService loads, caches and refreshes conversation summaries
type ConversationService struct {
	users    repository.UserRepository
	messages MessageSource
	cache    cache.Service
	pusher   EventPusher
	log      zerolog.Logger
}

// NewConversationService creates a new ConversationService. cacheSvc and pusher may be nil.
func NewConversationService(users repository.UserRepository, messages MessageSource, cacheSvc cache.Service, pusher EventPusher) *ConversationService {
	if cacheSvc == nil {
		cacheSvc = cache.NewService(nil)
	}
	return &ConversationService{
		users:    users,
		messages: messages,
		cache:    cacheSvc,
		pusher:   pusher,
		log:      pkglogger.WithComponent("conversations"),
	}
}

// Conversations returns selfID's conversation list, served from cache when fresh
func (s *ConversationService) Conversations(ctx context.Context, selfID string) ([]domain.ConversationSummary, error) {
	var cached []domain.ConversationSummary
	err := s.cache.GetConversations(ctx, selfID, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.log.Debug().Err(err).Str("user_id", selfID).Msg("conversation cache read failed")
	}

	summaries, err := s.compute(ctx, selfID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetConversations(ctx, selfID, summaries); err != nil {
		s.log.Debug().Err(err).Str("user_id", selfID).Msg("conversation cache write failed")
	}
	return summaries, nil
}

// Directory returns the users selfID may start a conversation with
func (s *ConversationService) Directory(ctx context.Context, selfID string) ([]domain.DirectoryUser, error) {
	self, err := s.users.FindByID(selfID)
	if err != nil {
		return nil, err
	}
	if self == nil {
		return nil, common.ErrUserNotFound
	}
	candidates, err := s.users.FindByRoles(CandidateRoles(self.Role)...)
	if err != nil {
		return nil, err
	}
	out := make([]domain.DirectoryUser, 0, len(candidates))
	for _, c := range candidates {
		if c.ID != selfID {
			out = append(out, c)
		}
	}
	return out, nil
}

// Refresh recomputes the lists of userIDs, overwrites the cache and notifies open connections.
// Failures are logged per user.
func (s *ConversationService) Refresh(ctx context.Context, userIDs ...string) {
	for _, id := range userIDs {
		summaries, err := s.compute(ctx, id)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", id).Msg("conversation refresh failed")
			if err := s.cache.InvalidateConversations(ctx, id); err != nil {
				s.log.Debug().Err(err).Str("user_id", id).Msg("conversation cache invalidate failed")
			}
			continue
		}
		if err := s.cache.SetConversations(ctx, id, summaries); err != nil {
			s.log.Debug().Err(err).Str("user_id", id).Msg("conversation cache write failed")
		}
		if s.pusher != nil {
			s.pusher.SendToUser(id, &ws.Event{Type: ws.EventConversations, Payload: summaries})
		}
	}
}

func (s *ConversationService) compute(ctx context.Context, selfID string) ([]domain.ConversationSummary, error) {
	candidates, err := s.Directory(ctx, selfID)
	if err != nil {
		return nil, err
	}
	messages, err := s.messages.Involving(ctx, selfID)
	if err != nil {
		return nil, err
	}
	return AggregateConversations(selfID, messages, candidates), nil
}
