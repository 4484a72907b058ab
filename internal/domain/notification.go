package domain

import "time"

// NotificationType classifies what a notification refers to
type NotificationType string

const (
	NotificationEvent      NotificationType = "event"
	NotificationJob        NotificationType = "job"
	NotificationCourse     NotificationType = "course"
	NotificationMentorship NotificationType = "mentorship"
	NotificationGeneric    NotificationType = "generic"
)

// CreatedBySystem marks notifications without a human creator
const CreatedBySystem = "system"

// Notification represents a user notification
type Notification struct {
	ID        string           `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID    string           `gorm:"column:user_id;index;size:64" json:"userId"`
	Title     string           `gorm:"column:title;size:255" json:"title"`
	Message   string           `gorm:"column:message;type:text" json:"message"`
	Type      NotificationType `gorm:"column:type;size:20" json:"type"`
	ItemID    string           `gorm:"column:item_id;index;size:64" json:"itemId"`
	Read      bool             `gorm:"column:is_read;index" json:"read"`
	CreatedBy string           `gorm:"column:created_by;size:64" json:"createdBy"`
	CreatedAt time.Time        `gorm:"column:created_at;index" json:"createdAt"`
}

// TableName returns the table name
func (Notification) TableName() string {
	return "notifications"
}

// NotificationSummaryResponse represents unread count response
type NotificationSummaryResponse struct {
	TotalUnread int64 `json:"total_unread"`
}

// NotificationListResponse represents notification list response
type NotificationListResponse struct {
	Items       []Notification `json:"items"`
	Total       int64          `json:"total"`
	UnreadCount int64          `json:"unread_count"`
	Page        int            `json:"page"`
	Limit       int            `json:"limit"`
	TotalPages  int            `json:"total_pages"`
}

// BroadcastRequest is a free-form announcement sent to every user of one role
type BroadcastRequest struct {
	Title   string `json:"title" binding:"required"`
	Message string `json:"message" binding:"required"`
	Role    Role   `json:"role" binding:"required"`
}
