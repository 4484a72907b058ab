package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alumnihub/alumni-backend/internal/chat"
	"github.com/alumnihub/alumni-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	studentA = "A:student"
	teacherB = "B:teacher"
)

func sendBody(sender, receiver string, content string) domain.SendMessageRequest {
	return domain.SendMessageRequest{
		SenderID: sender, ReceiverID: receiver,
		SenderRole: domain.RoleStudent, ReceiverRole: domain.RoleTeacher,
		Content: content,
	}
}

func TestMessages_SendFetchMarkRead(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/messages/send", studentA, sendBody("A", "B", "hello"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sent domain.Message
	decode(t, w, &sent)
	assert.NotEmpty(t, sent.ID)
	assert.False(t, sent.Read)

	w = app.do(t, http.MethodGet, "/api/messages/B/A", teacherB, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var msgs []domain.Message
	decode(t, w, &msgs)
	require.Len(t, msgs, 1)
	assert.Equal(t, sent.ID, msgs[0].ID)

	w = app.do(t, http.MethodPut, "/api/messages/mark-read/A/B", teacherB, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var marked domain.MarkReadResponse
	decode(t, w, &marked)
	assert.Equal(t, int64(1), marked.Updated)

	// idempotent
	w = app.do(t, http.MethodPut, "/api/messages/mark-read/A/B", teacherB, nil)
	decode(t, w, &marked)
	assert.Equal(t, int64(0), marked.Updated)
}

func TestMessages_OwnershipChecks(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"send as someone else", http.MethodPost, "/api/messages/send", sendBody("C", "B", "hi")},
		{"fetch other user's thread", http.MethodGet, "/api/messages/B/C", nil},
		{"conversations of other user", http.MethodGet, "/api/messages/conversations/B", nil},
		{"mark read for other user", http.MethodPut, "/api/messages/mark-read/C/B", nil},
		{"facade fetch of other user", http.MethodGet, "/api/messages-db/B/C", nil},
		{"facade involving of other user", http.MethodGet, "/api/messages-db/user/B", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(t, tt.method, tt.path, studentA, tt.body)
			assert.Equal(t, http.StatusForbidden, w.Code)
		})
	}
}

func TestMessages_RequiresAuth(t *testing.T) {
	app := newTestApp(t)
	w := app.do(t, http.MethodGet, "/api/messages/A/B", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMessages_ValidationError(t *testing.T) {
	app := newTestApp(t)
	w := app.do(t, http.MethodPost, "/api/messages/send", studentA, sendBody("A", "B", "   "))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, app.store.msgs)
}

func TestMessages_AllBackendsDownReturns503(t *testing.T) {
	app := newTestApp(t)
	app.store.setFail(errStoreDown)

	w := app.do(t, http.MethodPost, "/api/messages/send", studentA, sendBody("A", "B", "hello"))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "DELIVERY_FAILED", body.Error.Code)
	assert.Equal(t, "server", body.Error.Details)
}

func TestMessages_Conversations(t *testing.T) {
	app := newTestApp(t)
	app.seedUser(t, "A", "Ann", domain.RoleStudent)
	app.seedUser(t, "B", "Bea", domain.RoleTeacher)
	app.seedUser(t, "C", "Cal", domain.RoleTeacher)

	w := app.do(t, http.MethodPost, "/api/messages/send", teacherB, domain.SendMessageRequest{
		SenderID: "B", ReceiverID: "A", SenderRole: domain.RoleTeacher, ReceiverRole: domain.RoleStudent, Content: "hi Ann",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = app.do(t, http.MethodGet, "/api/messages/conversations/A", studentA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []domain.ConversationSummary
	decode(t, w, &list)
	require.Len(t, list, 2)
	assert.Equal(t, "B", list[0].PeerUserID)
	assert.Equal(t, 1, list[0].UnreadCount)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, "hi Ann", list[0].LastMessage.Content)
	assert.Equal(t, "C", list[1].PeerUserID)
	assert.Nil(t, list[1].LastMessage)

	w = app.do(t, http.MethodGet, "/api/directory", studentA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var dir []domain.DirectoryUser
	decode(t, w, &dir)
	assert.Len(t, dir, 2)
}

func TestMessageDB_Facade(t *testing.T) {
	app := newTestApp(t)

	msg := domain.Message{
		ID: "m1", SenderID: "A", ReceiverID: "B",
		SenderRole: domain.RoleStudent, ReceiverRole: domain.RoleTeacher,
		Content: "via facade", CreatedAt: time.Now().UTC().Add(-10 * time.Second).Truncate(time.Millisecond),
	}
	w := app.do(t, http.MethodPost, "/api/messages-db/send", studentA, msg)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = app.do(t, http.MethodGet, "/api/messages-db/user/B", teacherB, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var msgs []domain.Message
	decode(t, w, &msgs)
	require.Len(t, msgs, 1)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.True(t, msg.CreatedAt.Equal(msgs[0].CreatedAt))
}

// The REST backend of one router talks to the facade of another instance.
func TestRESTBackend_AgainstFacade(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.engine)
	t.Cleanup(srv.Close)

	down := &memStore{}
	down.setFail(errStoreDown)
	router := chat.NewRouter(chat.Config{
		Primary:     down,
		Facade:      chat.NewRESTBackend(chat.RESTBackendConfig{BaseURL: srv.URL}),
		StepTimeout: 2 * time.Second,
	})
	ctx := chat.WithBearerToken(context.Background(), studentA)

	req := sendBody("A", "B", "over http")
	sent, err := router.Send(ctx, &req)
	require.NoError(t, err)

	stored, err := app.store.Conversation(context.Background(), "A", "B")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, sent.ID, stored[0].ID)

	got, err := router.Fetch(ctx, "A", "B")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "over http", got[0].Content)
}

func TestMessageDB_SendIgnoresClientReadAndFutureTime(t *testing.T) {
	app := newTestApp(t)

	msg := domain.Message{
		ID: "m1", SenderID: "A", ReceiverID: "B",
		SenderRole: domain.RoleStudent, ReceiverRole: domain.RoleTeacher,
		Content: "pinned", Read: true, CreatedAt: time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	before := time.Now().UTC()
	w := app.do(t, http.MethodPost, "/api/messages-db/send", studentA, msg)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	stored, err := app.store.Conversation(context.Background(), "A", "B")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.False(t, stored[0].Read)
	assert.WithinDuration(t, before, stored[0].CreatedAt, 5*time.Second)

	count, err := app.store.MarkRead(context.Background(), "A", "B")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
