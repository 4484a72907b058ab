package repository

import (
	"github.com/alumnihub/alumni-backend/internal/domain"
	"gorm.io/gorm"
)

// ResourceRepository persists fan-out triggering resources
type ResourceRepository interface {
	CreateEvent(e *domain.Event) error
	CreateJob(j *domain.Job) error
	CreateCourse(c *domain.Course) error
	CreateMentorship(m *domain.Mentorship) error
}

type resourceRepository struct {
	db *gorm.DB
}

// NewResourceRepository creates a new ResourceRepository
func NewResourceRepository(db *gorm.DB) ResourceRepository {
	return &resourceRepository{db: db}
}

func (r *resourceRepository) CreateEvent(e *domain.Event) error {
	return r.db.Create(e).Error
}

func (r *resourceRepository) CreateJob(j *domain.Job) error {
	return r.db.Create(j).Error
}

func (r *resourceRepository) CreateCourse(c *domain.Course) error {
	return r.db.Create(c).Error
}

func (r *resourceRepository) CreateMentorship(m *domain.Mentorship) error {
	return r.db.Create(m).Error
}
