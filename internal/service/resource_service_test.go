package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alumnihub/alumni-backend/internal/common"
	"github.com/alumnihub/alumni-backend/internal/domain"
	"github.com/alumnihub/alumni-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestResourceService_JobSucceedsDespitePartialFanout(t *testing.T) {
	resources := new(mockResourceRepo)
	users := new(mockUserRepo)
	notifs := new(mockNotificationRepo)

	resources.On("CreateJob", mock.Anything).Return(nil)
	users.On("FindByRole", domain.RoleStudent).Return(students("s1", "s2", "s3"), nil)
	notifs.On("Create", mock.Anything, forUser("s2")).Return(errors.New("insert failed"))
	notifs.On("Create", mock.Anything, mock.Anything).Return(nil)

	svc := NewResourceService(resources, users, NewFanoutService(users, notifs, nil, 1))
	resp, err := svc.CreateJob(context.Background(), Creator{UserID: "t1", Role: domain.RoleTeacher},
		&domain.CreateResourceRequest{Title: "Backend Engineer", Company: "Acme"})
	require.NoError(t, err)

	job, ok := resp.Resource.(*domain.Job)
	require.True(t, ok)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "t1", job.CreatedBy)
	assert.Equal(t, 2, resp.Fanout.Created)
	assert.Equal(t, 1, resp.Fanout.Failed)

	for _, n := range resp.Fanout.Notifications {
		assert.Equal(t, job.ID, n.ItemID)
		assert.Equal(t, "t1", n.CreatedBy)
	}
}

func TestResourceService_RoleChecks(t *testing.T) {
	svc := NewResourceService(new(mockResourceRepo), new(mockUserRepo), nil)
	req := &domain.CreateResourceRequest{Title: "x", Company: "y"}
	ctx := context.Background()

	_, err := svc.CreateCourse(ctx, Creator{UserID: "a1", Role: domain.RoleAlumni}, req)
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = svc.CreateJob(ctx, Creator{UserID: "s1", Role: domain.RoleStudent}, req)
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = svc.CreateEvent(ctx, Creator{UserID: "s1", Role: domain.RoleStudent}, req)
	assert.ErrorIs(t, err, common.ErrForbidden)

	assert.True(t, CanCreate(domain.NotificationMentorship, domain.RoleAlumni))
	assert.True(t, CanCreate(domain.NotificationCourse, domain.RoleTeacher))
	assert.False(t, CanCreate(domain.NotificationGeneric, domain.RoleTeacher))
}

func TestResourceService_Validation(t *testing.T) {
	resources := new(mockResourceRepo)
	svc := NewResourceService(resources, new(mockUserRepo), nil)

	_, err := svc.CreateJob(context.Background(), Creator{UserID: "t1", Role: domain.RoleTeacher}, &domain.CreateResourceRequest{Title: "Dev"})
	var verr *common.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "company", verr.Field)
	resources.AssertNotCalled(t, "CreateJob", mock.Anything)
}

func TestResourceService_FanoutFailureDoesNotFailCreation(t *testing.T) {
	resources := new(mockResourceRepo)
	users := new(mockUserRepo)
	resources.On("CreateEvent", mock.Anything).Return(nil)
	users.On("FindByRole", domain.RoleStudent).Return(nil, errors.New("db down"))

	svc := NewResourceService(resources, users, NewFanoutService(users, new(mockNotificationRepo), nil, 1))
	resp, err := svc.CreateEvent(context.Background(), Creator{UserID: "t1", Role: domain.RoleTeacher}, &domain.CreateResourceRequest{Title: "Reunion"})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Fanout.Created)
}

func TestResourceService_CourseUsesTeacherName(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.AutoMigrate(&domain.Course{}))
	users := repository.NewUserRepository(db)
	notifs := repository.NewNotificationRepository(db)
	require.NoError(t, users.Create(&domain.User{ID: "t1", Email: "t@x.io", DisplayName: "Ms. K", Role: domain.RoleTeacher}))
	require.NoError(t, users.Create(&domain.User{ID: "s1", Email: "s1@x.io", DisplayName: "Sam", Role: domain.RoleStudent}))
	require.NoError(t, users.Create(&domain.User{ID: "s2", Email: "s2@x.io", DisplayName: "Sue", Role: domain.RoleStudent}))

	svc := NewResourceService(repository.NewResourceRepository(db), users, NewFanoutService(users, notifs, nil, 1))
	resp, err := svc.CreateCourse(context.Background(), Creator{UserID: "t1", Role: domain.RoleTeacher}, &domain.CreateResourceRequest{Title: "Go 101"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Fanout.Created)

	list, _, err := notifs.GetList("s1", 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, `A new course "Go 101" by Ms. K is now available for enrollment.`, list[0].Message)
	assert.Equal(t, resp.Resource.(*domain.Course).ID, list[0].ItemID)
}
