package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alumnihub/alumni-backend/internal/common"
	"github.com/alumnihub/alumni-backend/internal/domain"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRESTBackend_ForwardsTokenAndDecodes(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(common.APIResponse{Data: []*domain.Message{{ID: "1", SenderID: "A", ReceiverID: "B", Content: "hi"}}})
	}))
	defer srv.Close()

	b := NewRESTBackend(RESTBackendConfig{BaseURL: srv.URL + "/"})
	ctx := WithBearerToken(context.Background(), "tok")

	got, err := b.Conversation(ctx, "A", "B")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hi", got[0].Content)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "/api/messages-db/A/B", gotPath)
}

func TestRESTBackend_MarkRead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/messages-db/mark-read/B/A", r.URL.Path)
		_ = json.NewEncoder(w).Encode(common.APIResponse{Data: domain.MarkReadResponse{Updated: 3}})
	}))
	defer srv.Close()

	n, err := NewRESTBackend(RESTBackendConfig{BaseURL: srv.URL}).MarkRead(context.Background(), "B", "A")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestRESTBackend_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewRESTBackend(RESTBackendConfig{BaseURL: srv.URL}).Insert(context.Background(), &domain.Message{ID: "1"})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Status)
	assert.Equal(t, common.CauseServer, classify(err))
}

func TestRESTBackend_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewRESTBackend(RESTBackendConfig{BaseURL: url}).Insert(context.Background(), &domain.Message{ID: "1"})
	require.Error(t, err)
	assert.Equal(t, common.CauseNetwork, classify(err))
}

func TestRESTBackend_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := NewRESTBackend(RESTBackendConfig{BaseURL: srv.URL}).Insert(ctx, &domain.Message{ID: "1"})
	require.Error(t, err)
	assert.Equal(t, common.CauseTimeout, classify(err))
}

func TestRESTBackend_BreakerOpens(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	b := NewRESTBackend(RESTBackendConfig{BaseURL: srv.URL, MaxFailures: 2, OpenTimeout: time.Minute})
	for i := 0; i < 2; i++ {
		require.Error(t, b.Insert(context.Background(), &domain.Message{ID: "1"}))
	}
	err := b.Insert(context.Background(), &domain.Message{ID: "1"})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, calls)
	assert.Equal(t, common.CauseNetwork, classify(err))
}

func TestRESTBackend_ClientErrorsDoNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	b := NewRESTBackend(RESTBackendConfig{BaseURL: srv.URL, MaxFailures: 1})
	for i := 0; i < 3; i++ {
		var se *StatusError
		require.ErrorAs(t, b.Insert(context.Background(), &domain.Message{ID: "1"}), &se)
	}
}
