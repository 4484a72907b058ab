package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/alumnihub/alumni-backend/internal/common"
	"github.com/alumnihub/alumni-backend/internal/domain"
	"github.com/alumnihub/alumni-backend/internal/ws"
	"github.com/alumnihub/alumni-backend/pkg/cache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (cache.Service, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return cache.NewService(rdb), mr
}

func conversationFixture() (*mockUserRepo, *staticMessages) {
	users := new(mockUserRepo)
	users.On("FindByID", "A").Return(&domain.User{ID: "A", Role: domain.RoleStudent}, nil)
	users.On("FindByID", "B").Return(&domain.User{ID: "B", Role: domain.RoleTeacher}, nil)
	users.On("FindByRoles", []domain.Role{domain.RoleTeacher}).Return([]domain.DirectoryUser{
		{ID: "B", DisplayName: "Bea", Role: domain.RoleTeacher},
		{ID: "C", DisplayName: "Cal", Role: domain.RoleTeacher},
	}, nil)
	users.On("FindByRoles", []domain.Role{domain.RoleStudent}).Return([]domain.DirectoryUser{
		{ID: "A", DisplayName: "Ann", Role: domain.RoleStudent},
	}, nil)

	msgs := &staticMessages{msgs: []*domain.Message{
		{ID: "1", SenderID: "A", ReceiverID: "B", Content: "hi", CreatedAt: at(1)},
		{ID: "2", SenderID: "B", ReceiverID: "A", Content: "hello", CreatedAt: at(2)},
	}}
	return users, msgs
}

func TestConversationService_CachesResult(t *testing.T) {
	users, msgs := conversationFixture()
	c, mr := newTestCache(t)
	svc := NewConversationService(users, msgs, c, nil)
	ctx := context.Background()

	first, err := svc.Conversations(ctx, "A")
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "B", first[0].PeerUserID)
	assert.Equal(t, 1, first[0].UnreadCount)
	assert.True(t, mr.Exists(cache.PrefixConversations+"A"))

	second, err := svc.Conversations(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 1, msgs.calls)
	require.Len(t, second, 2)
	assert.Equal(t, first[1].PeerUserID, second[1].PeerUserID)
}

func TestConversationService_RefreshPushesAndOverwrites(t *testing.T) {
	users, msgs := conversationFixture()
	c, _ := newTestCache(t)
	pusher := newRecordingPusher()
	svc := NewConversationService(users, msgs, c, pusher)
	ctx := context.Background()

	_, err := svc.Conversations(ctx, "A")
	require.NoError(t, err)

	msgs.msgs = append(msgs.msgs, &domain.Message{ID: "3", SenderID: "C", ReceiverID: "A", Content: "yo", CreatedAt: at(3)})
	svc.Refresh(ctx, "A", "B")

	assert.Equal(t, 1, pusher.count("A"))
	assert.Equal(t, 1, pusher.count("B"))
	assert.Equal(t, ws.EventConversations, pusher.events["A"][0].Type)

	got, err := svc.Conversations(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "C", got[0].PeerUserID)
}

func TestConversationService_Errors(t *testing.T) {
	users := new(mockUserRepo)
	users.On("FindByID", "ghost").Return(nil, nil)
	svc := NewConversationService(users, &staticMessages{}, nil, nil)

	_, err := svc.Conversations(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrNotFound)

	users2, _ := conversationFixture()
	down := &staticMessages{err: &common.DeliveryError{Op: "involving", Cause: common.CauseNetwork, Last: errors.New("x")}}
	svc = NewConversationService(users2, down, nil, nil)
	_, err = svc.Conversations(context.Background(), "A")
	var derr *common.DeliveryError
	require.ErrorAs(t, err, &derr)
}

func TestConversationService_DirectoryExcludesSelf(t *testing.T) {
	users := new(mockUserRepo)
	users.On("FindByID", "A").Return(&domain.User{ID: "A", Role: domain.RoleAlumni}, nil)
	users.On("FindByRoles", []domain.Role{domain.RoleStudent, domain.RoleTeacher}).Return([]domain.DirectoryUser{
		{ID: "A", DisplayName: "Me"}, {ID: "B", DisplayName: "Bea"},
	}, nil)

	got, err := NewConversationService(users, &staticMessages{}, nil, nil).Directory(context.Background(), "A")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].ID)
}
