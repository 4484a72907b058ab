package service

import (
	"context"
	"sync"

	"github.com/alumnihub/alumni-backend/internal/domain"
	"github.com/alumnihub/alumni-backend/internal/ws"
	"github.com/stretchr/testify/mock"
)

// --- Mock UserRepository ---

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(user *domain.User) error {
	return m.Called(user).Error(0)
}

func (m *mockUserRepo) FindByID(id string) (*domain.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) FindByEmail(email string) (*domain.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) FindByRole(role domain.Role) ([]domain.DirectoryUser, error) {
	args := m.Called(role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DirectoryUser), args.Error(1)
}

func (m *mockUserRepo) FindByRoles(roles ...domain.Role) ([]domain.DirectoryUser, error) {
	args := m.Called(roles)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DirectoryUser), args.Error(1)
}

// --- Mock NotificationRepository ---

type mockNotificationRepo struct {
	mock.Mock
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *mockNotificationRepo) FindByID(id string) (*domain.Notification, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

func (m *mockNotificationRepo) GetList(userID string, offset, limit int) ([]domain.Notification, int64, error) {
	args := m.Called(userID, offset, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Notification), args.Get(1).(int64), args.Error(2)
}

func (m *mockNotificationRepo) GetUnreadCount(userID string) (int64, error) {
	args := m.Called(userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotificationRepo) MarkAsRead(id string) error {
	return m.Called(id).Error(0)
}

func (m *mockNotificationRepo) MarkAllAsRead(userID string) (int64, error) {
	args := m.Called(userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotificationRepo) Delete(id string) error {
	return m.Called(id).Error(0)
}

func (m *mockNotificationRepo) DeleteAll(userID string) (int64, error) {
	args := m.Called(userID)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock ResourceRepository ---

type mockResourceRepo struct {
	mock.Mock
}

func (m *mockResourceRepo) CreateEvent(e *domain.Event) error {
	return m.Called(e).Error(0)
}

func (m *mockResourceRepo) CreateJob(j *domain.Job) error {
	return m.Called(j).Error(0)
}

func (m *mockResourceRepo) CreateCourse(c *domain.Course) error {
	return m.Called(c).Error(0)
}

func (m *mockResourceRepo) CreateMentorship(ms *domain.Mentorship) error {
	return m.Called(ms).Error(0)
}

// --- Fakes ---

type staticMessages struct {
	msgs  []*domain.Message
	err   error
	calls int
}

func (s *staticMessages) Involving(_ context.Context, userID string) ([]*domain.Message, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []*domain.Message
	for _, m := range s.msgs {
		if m.SenderID == userID || m.ReceiverID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

type recordingPusher struct {
	mu     sync.Mutex
	events map[string][]*ws.Event
}

func newRecordingPusher() *recordingPusher {
	return &recordingPusher{events: make(map[string][]*ws.Event)}
}

func (p *recordingPusher) SendToUser(userID string, event *ws.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[userID] = append(p.events[userID], event)
}

func (p *recordingPusher) count(userID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events[userID])
}
