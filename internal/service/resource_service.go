package service

import (
	"context"
	"strings"
	"time"

	"github.com/alumnihub/alumni-backend/internal/common"
	"github.com/alumnihub/alumni-backend/internal/domain"
	"github.com/alumnihub/alumni-backend/internal/repository"
	pkglogger "github.com/alumnihub/alumni-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Notifier runs a fan-out for a freshly created resource
type Notifier interface {
	Notify(ctx context.Context, item domain.FanoutItem, audience domain.Role) (*domain.FanoutResult, error)
}

// Creator identifies the user creating a resource
type Creator struct {
	UserID string
	Role   domain.Role
}

// ResourceService creates events, jobs, courses and mentorships and announces them
type ResourceService struct {
	repo     repository.ResourceRepository
	users    repository.UserRepository
	notifier Notifier
	audience domain.Role
	log      zerolog.Logger

	now   func() time.Time
	newID func() string
}

// NewResourceService creates a new ResourceService. New resources are announced to students.
func NewResourceService(repo repository.ResourceRepository, users repository.UserRepository, notifier Notifier) *ResourceService {
	return &ResourceService{
		repo:     repo,
		users:    users,
		notifier: notifier,
		audience: domain.RoleStudent,
		log:      pkglogger.WithComponent("resources"),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
}

// CanCreate reports whether role may create resources of kind
func CanCreate(kind domain.NotificationType, role domain.Role) bool {
	switch kind {
	case domain.NotificationCourse:
		return role == domain.RoleTeacher
	case domain.NotificationEvent, domain.NotificationJob, domain.NotificationMentorship:
		return role == domain.RoleTeacher || role == domain.RoleAlumni
	}
	return false
}

// CreateEvent persists an event and notifies the audience
func (s *ResourceService) CreateEvent(ctx context.Context, creator Creator, req *domain.CreateResourceRequest) (*domain.CreateResourceResponse, error) {
	if err := s.check(domain.NotificationEvent, creator, req); err != nil {
		return nil, err
	}
	e := &domain.Event{
		ID:          s.newID(),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		CreatedBy:   creator.UserID,
		CreatedAt:   s.now(),
	}
	if err := s.repo.CreateEvent(e); err != nil {
		return nil, err
	}
	return s.announce(ctx, e, e.ToFanoutItem()), nil
}

// CreateJob persists a job posting and notifies the audience
func (s *ResourceService) CreateJob(ctx context.Context, creator Creator, req *domain.CreateResourceRequest) (*domain.CreateResourceResponse, error) {
	if err := s.check(domain.NotificationJob, creator, req); err != nil {
		return nil, err
	}
	j := &domain.Job{
		ID:          s.newID(),
		Title:       strings.TrimSpace(req.Title),
		Company:     strings.TrimSpace(req.Company),
		Description: req.Description,
		CreatedBy:   creator.UserID,
		CreatedAt:   s.now(),
	}
	if err := s.repo.CreateJob(j); err != nil {
		return nil, err
	}
	return s.announce(ctx, j, j.ToFanoutItem()), nil
}

// CreateCourse persists a course and notifies the audience
func (s *ResourceService) CreateCourse(ctx context.Context, creator Creator, req *domain.CreateResourceRequest) (*domain.CreateResourceResponse, error) {
	if err := s.check(domain.NotificationCourse, creator, req); err != nil {
		return nil, err
	}
	c := &domain.Course{
		ID:          s.newID(),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		TeacherID:   creator.UserID,
		TeacherName: s.displayName(creator.UserID),
		CreatedAt:   s.now(),
	}
	if err := s.repo.CreateCourse(c); err != nil {
		return nil, err
	}
	return s.announce(ctx, c, c.ToFanoutItem()), nil
}

// CreateMentorship persists a mentorship program and notifies the audience
func (s *ResourceService) CreateMentorship(ctx context.Context, creator Creator, req *domain.CreateResourceRequest) (*domain.CreateResourceResponse, error) {
	if err := s.check(domain.NotificationMentorship, creator, req); err != nil {
		return nil, err
	}
	m := &domain.Mentorship{
		ID:          s.newID(),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		MentorID:    creator.UserID,
		MentorName:  s.displayName(creator.UserID),
		CreatedAt:   s.now(),
	}
	if err := s.repo.CreateMentorship(m); err != nil {
		return nil, err
	}
	return s.announce(ctx, m, m.ToFanoutItem()), nil
}

func (s *ResourceService) check(kind domain.NotificationType, creator Creator, req *domain.CreateResourceRequest) error {
	if !CanCreate(kind, creator.Role) {
		return common.ErrForbidden
	}
	return req.Validate(kind)
}

// announce runs the fan-out. Its failures are reported in the response, never returned.
func (s *ResourceService) announce(ctx context.Context, resource interface{}, item domain.FanoutItem) *domain.CreateResourceResponse {
	resp := &domain.CreateResourceResponse{Resource: resource}

	result, err := s.notifier.Notify(ctx, item, s.audience)
	if err != nil {
		s.log.Error().Err(err).Str("type", string(item.Type)).Str("item_id", item.ID).Msg("fan-out failed")
		resp.Fanout = &domain.FanoutResult{}
		return resp
	}
	if perr := result.Err(); perr != nil {
		s.log.Warn().Err(perr).Str("type", string(item.Type)).Str("item_id", item.ID).Msg("fan-out partially failed")
	}
	resp.Fanout = result
	return resp
}

func (s *ResourceService) displayName(userID string) string {
	u, err := s.users.FindByID(userID)
	if err != nil || u == nil || u.DisplayName == "" {
		return userID
	}
	return u.DisplayName
}
