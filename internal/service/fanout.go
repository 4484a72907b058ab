package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alumnihub/alumni-backend/internal/domain"
	"github.com/alumnihub/alumni-backend/internal/repository"
	"github.com/alumnihub/alumni-backend/internal/ws"
	pkglogger "github.com/alumnihub/alumni-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// FanoutService writes one notification per audience member for a new resource
type FanoutService struct {
	users         repository.UserRepository
	notifications repository.NotificationRepository
	pusher        EventPusher
	concurrency   int
	log           zerolog.Logger

	now   func() time.Time
	newID func() string
}

// NewFanoutService creates a new FanoutService. pusher may be nil.
func NewFanoutService(users repository.UserRepository, notifications repository.NotificationRepository, pusher EventPusher, concurrency int) *FanoutService {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &FanoutService{
		users:         users,
		notifications: notifications,
		pusher:        pusher,
		concurrency:   concurrency,
		log:           pkglogger.WithComponent("fanout"),
		now:           func() time.Time { return time.Now().UTC() },
		newID:         func() string { return uuid.New().String() },
	}
}

// Notify notifies every user with the audience role about item.
// A failed insert is counted and the rest continue; only the audience lookup can fail the call.
// Once started, the run is not cancelled by ctx.
func (s *FanoutService) Notify(ctx context.Context, item domain.FanoutItem, audience domain.Role) (*domain.FanoutResult, error) {
	recipients, err := s.users.FindByRole(audience)
	if err != nil {
		return nil, fmt.Errorf("load %s audience: %w", audience, err)
	}
	result := &domain.FanoutResult{Notifications: []domain.Notification{}}
	if len(recipients) == 0 {
		s.log.Info().Str("type", string(item.Type)).Str("item_id", item.ID).Str("audience", string(audience)).Msg("no recipients")
		return result, nil
	}

	ctx = context.WithoutCancel(ctx)
	title, message := item.Template()
	createdAt := s.now()

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.concurrency)

	for _, r := range recipients {
		userID := r.ID
		g.Go(func() error {
			n := domain.Notification{
				ID:        s.newID(),
				UserID:    userID,
				Title:     title,
				Message:   message,
				Type:      item.Type,
				ItemID:    item.ID,
				Read:      false,
				CreatedBy: item.Creator(),
				CreatedAt: createdAt,
			}
			if err := s.notifications.Create(ctx, &n); err != nil {
				s.log.Warn().Err(err).Str("user_id", userID).Str("item_id", item.ID).Msg("notification insert failed")
				fanoutTotal.WithLabelValues(string(item.Type), "failed").Inc()
				mu.Lock()
				result.Failed++
				mu.Unlock()
				return nil
			}

			fanoutTotal.WithLabelValues(string(item.Type), "created").Inc()
			mu.Lock()
			result.Created++
			result.Notifications = append(result.Notifications, n)
			mu.Unlock()

			if s.pusher != nil {
				s.pusher.SendToUser(userID, &ws.Event{Type: ws.EventNotification, Payload: n})
			}
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info().
		Str("type", string(item.Type)).
		Str("item_id", item.ID).
		Int("created", result.Created).
		Int("failed", result.Failed).
		Msg("fan-out complete")
	return result, nil
}
