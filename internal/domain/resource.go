package domain

import (
	"strings"
	"time"

	"github.com/alumnihub/alumni-backend/internal/common"
)

// Event is an alumni/teacher-hosted event
type Event struct {
	ID          string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	Title       string    `gorm:"column:title;size:255" json:"title"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	Location    string    `gorm:"column:location;size:255" json:"location"`
	StartsAt    time.Time `gorm:"column:starts_at" json:"startsAt"`
	CreatedBy   string    `gorm:"column:created_by;size:64" json:"createdBy"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (Event) TableName() string { return "events" }

func (e *Event) ToFanoutItem() FanoutItem {
	return FanoutItem{Type: NotificationEvent, ID: e.ID, Title: e.Title, CreatedBy: e.CreatedBy}
}

// Job is a job posting
type Job struct {
	ID          string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	Title       string    `gorm:"column:title;size:255" json:"title"`
	Company     string    `gorm:"column:company;size:255" json:"company"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	CreatedBy   string    `gorm:"column:created_by;size:64" json:"createdBy"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (Job) TableName() string { return "jobs" }

func (j *Job) ToFanoutItem() FanoutItem {
	return FanoutItem{Type: NotificationJob, ID: j.ID, Title: j.Title, Company: j.Company, CreatedBy: j.CreatedBy}
}

// Course is a teacher-run course
type Course struct {
	ID          string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	Title       string    `gorm:"column:title;size:255" json:"title"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	TeacherID   string    `gorm:"column:teacher_id;size:64" json:"teacherId"`
	TeacherName string    `gorm:"column:teacher_name;size:100" json:"teacherName"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (Course) TableName() string { return "courses" }

func (c *Course) ToFanoutItem() FanoutItem {
	return FanoutItem{Type: NotificationCourse, ID: c.ID, Title: c.Title, OwnerName: c.TeacherName, CreatedBy: c.TeacherID}
}

// Mentorship is a mentorship program offered by a teacher or alumnus
type Mentorship struct {
	ID          string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	Title       string    `gorm:"column:title;size:255" json:"title"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	MentorID    string    `gorm:"column:mentor_id;size:64" json:"mentorId"`
	MentorName  string    `gorm:"column:mentor_name;size:100" json:"mentorName"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (Mentorship) TableName() string { return "mentorships" }

func (m *Mentorship) ToFanoutItem() FanoutItem {
	return FanoutItem{Type: NotificationMentorship, ID: m.ID, Title: m.Title, OwnerName: m.MentorName, CreatedBy: m.MentorID}
}

// CreateResourceRequest is the shared body for resource creation endpoints
type CreateResourceRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Company     string    `json:"company,omitempty"`
	Location    string    `json:"location,omitempty"`
	StartsAt    time.Time `json:"startsAt,omitempty"`
}

// Validate checks required fields. Company is only required for jobs.
func (r *CreateResourceRequest) Validate(kind NotificationType) error {
	if strings.TrimSpace(r.Title) == "" {
		return common.NewValidationError("title", "must not be empty")
	}
	if kind == NotificationJob && strings.TrimSpace(r.Company) == "" {
		return common.NewValidationError("company", "must not be empty")
	}
	return nil
}

// CreateResourceResponse reports the created resource and the fan-out outcome
type CreateResourceResponse struct {
	Resource interface{}   `json:"resource"`
	Fanout   *FanoutResult `json:"notifications"`
}
