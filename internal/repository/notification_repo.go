package repository

import (
	"context"
	"errors"

	"github.com/alumnihub/alumni-backend/internal/domain"
	"gorm.io/gorm"
)

// NotificationRepository notification data access interface
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	FindByID(id string) (*domain.Notification, error)
	GetList(userID string, offset, limit int) ([]domain.Notification, int64, error)
	GetUnreadCount(userID string) (int64, error)
	MarkAsRead(id string) error
	MarkAllAsRead(userID string) (int64, error)
	Delete(id string) error
	DeleteAll(userID string) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create inserts a new notification
func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// FindByID returns a notification by ID, or nil when missing
func (r *notificationRepository) FindByID(id string) (*domain.Notification, error) {
	var notification domain.Notification
	err := r.db.Where("id = ?", id).First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &notification, nil
}

// GetList returns paginated notifications for a user, newest first
func (r *notificationRepository) GetList(userID string, offset, limit int) ([]domain.Notification, int64, error) {
	var notifications []domain.Notification
	var total int64

	if err := r.db.Model(&domain.Notification{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&notifications).Error; err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

// GetUnreadCount returns the number of unread notifications for a user
func (r *notificationRepository) GetUnreadCount(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkAsRead marks a notification as read
func (r *notificationRepository) MarkAsRead(id string) error {
	return r.db.Model(&domain.Notification{}).
		Where("id = ?", id).
		Update("is_read", true).Error
}

// MarkAllAsRead marks all unread notifications of a user as read
func (r *notificationRepository) MarkAllAsRead(userID string) (int64, error) {
	res := r.db.Model(&domain.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// Delete deletes a notification by ID
func (r *notificationRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&domain.Notification{}).Error
}

// DeleteAll deletes every notification of a user
func (r *notificationRepository) DeleteAll(userID string) (int64, error) {
	res := r.db.Where("user_id = ?", userID).Delete(&domain.Notification{})
	return res.RowsAffected, res.Error
}
