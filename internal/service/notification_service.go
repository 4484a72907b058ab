package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/alumnihub/alumni-backend/internal/common"
	"github.com/alumnihub/alumni-backend/internal/domain"
	"github.com/alumnihub/alumni-backend/internal/repository"
	"github.com/google/uuid"
)

// NotificationService handles notification business logic
type NotificationService struct {
	repo     repository.NotificationRepository
	notifier Notifier

	newID func() string
}

// NewNotificationService creates a new NotificationService.
// notifier may be nil, in which case Broadcast is unavailable.
func NewNotificationService(repo repository.NotificationRepository, notifier Notifier) *NotificationService {
	return &NotificationService{
		repo:     repo,
		notifier: notifier,
		newID:    func() string { return uuid.New().String() },
	}
}

// GetUnreadCount returns the unread notification count for a user
func (s *NotificationService) GetUnreadCount(userID string) (*domain.NotificationSummaryResponse, error) {
	count, err := s.repo.GetUnreadCount(userID)
	if err != nil {
		return nil, err
	}
	return &domain.NotificationSummaryResponse{TotalUnread: count}, nil
}

// GetList returns paginated notifications for a user, newest first
func (s *NotificationService) GetList(userID string, page, limit int) (*domain.NotificationListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	offset := (page - 1) * limit
	notifications, total, err := s.repo.GetList(userID, offset, limit)
	if err != nil {
		return nil, err
	}

	unreadCount, err := s.repo.GetUnreadCount(userID)
	if err != nil {
		return nil, err
	}

	if notifications == nil {
		notifications = []domain.Notification{}
	}
	return &domain.NotificationListResponse{
		Items:       notifications,
		Total:       total,
		UnreadCount: unreadCount,
		Page:        page,
		Limit:       limit,
		TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

// MarkAsRead marks a notification as read after ownership check
func (s *NotificationService) MarkAsRead(notificationID, requestingUserID string) error {
	if _, err := s.owned(notificationID, requestingUserID); err != nil {
		return err
	}
	return s.repo.MarkAsRead(notificationID)
}

// MarkAllAsRead marks every unread notification of userID as read
func (s *NotificationService) MarkAllAsRead(userID string) (int64, error) {
	return s.repo.MarkAllAsRead(userID)
}

// Delete deletes a notification after ownership check
func (s *NotificationService) Delete(notificationID, requestingUserID string) error {
	if _, err := s.owned(notificationID, requestingUserID); err != nil {
		return err
	}
	return s.repo.Delete(notificationID)
}

// DeleteAll deletes every notification of userID and returns how many were removed
func (s *NotificationService) DeleteAll(userID string) (int64, error) {
	return s.repo.DeleteAll(userID)
}

// CanBroadcast reports whether role may send free-form announcements
func CanBroadcast(role domain.Role) bool {
	return role == domain.RoleTeacher || role == domain.RoleAlumni
}

// Broadcast fans a free-form announcement out to every user of req.Role
func (s *NotificationService) Broadcast(ctx context.Context, sender Creator, req *domain.BroadcastRequest) (*domain.FanoutResult, error) {
	if !CanBroadcast(sender.Role) {
		return nil, common.ErrForbidden
	}
	title := strings.TrimSpace(req.Title)
	message := strings.TrimSpace(req.Message)
	switch {
	case title == "":
		return nil, common.NewValidationError("title", "is required")
	case message == "":
		return nil, common.NewValidationError("message", "is required")
	case !req.Role.Valid():
		return nil, common.NewValidationError("role", "must be student, teacher or alumni")
	}
	if s.notifier == nil {
		return nil, errors.New("broadcast not configured")
	}

	return s.notifier.Notify(ctx, domain.FanoutItem{
		Type:       domain.NotificationGeneric,
		ID:         s.newID(),
		CreatedBy:  sender.UserID,
		RawTitle:   title,
		RawMessage: message,
	}, req.Role)
}

func (s *NotificationService) owned(notificationID, userID string) (*domain.Notification, error) {
	n, err := s.repo.FindByID(notificationID)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, common.ErrNotificationNotFound
	}
	if n.UserID != userID {
		return nil, common.ErrForbidden
	}
	return n, nil
}
