package domain

import (
	"fmt"

	"github.com/alumnihub/alumni-backend/internal/common"
)

// FanoutItem is the freshly created resource that triggers a fan-out
type FanoutItem struct {
	Type      NotificationType
	ID        string
	Title     string
	CreatedBy string

	// Template details
	Company    string
	OwnerName  string
	RawTitle   string
	RawMessage string
}

// Template renders the per-type notification title and message
func (i FanoutItem) Template() (title, message string) {
	switch i.Type {
	case NotificationEvent:
		return "New Event Available",
			fmt.Sprintf("A new event \"%s\" has been added. Check it out!", i.Title)
	case NotificationJob:
		return "New Job Opportunity",
			fmt.Sprintf("A new job \"%s\" at %s has been posted. Apply now!", i.Title, i.Company)
	case NotificationCourse:
		return "New Course Available",
			fmt.Sprintf("A new course \"%s\" by %s is now available for enrollment.", i.Title, i.OwnerName)
	case NotificationMentorship:
		return "New Mentorship Opportunity",
			fmt.Sprintf("A new mentorship program \"%s\" by %s is now available.", i.Title, i.OwnerName)
	default:
		return i.RawTitle, i.RawMessage
	}
}

// Creator returns CreatedBy or "system"
func (i FanoutItem) Creator() string {
	if i.CreatedBy == "" {
		return CreatedBySystem
	}
	return i.CreatedBy
}

// FanoutResult summarizes one fan-out run
type FanoutResult struct {
	Notifications []Notification `json:"-"`
	Created       int            `json:"created"`
	Failed        int            `json:"failed"`
}

// Err returns a *common.PartialFanoutError when some recipients failed
func (r *FanoutResult) Err() error {
	if r == nil || r.Failed == 0 {
		return nil
	}
	return &common.PartialFanoutError{Failed: r.Failed, Total: r.Created + r.Failed}
}
