package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alumnihub/alumni-backend/internal/chat"
	"github.com/alumnihub/alumni-backend/internal/domain"
	"github.com/alumnihub/alumni-backend/internal/handler"
	"github.com/alumnihub/alumni-backend/internal/middleware"
	"github.com/alumnihub/alumni-backend/internal/migration"
	"github.com/alumnihub/alumni-backend/internal/repository"
	"github.com/alumnihub/alumni-backend/internal/routes"
	"github.com/alumnihub/alumni-backend/internal/service"
	"github.com/alumnihub/alumni-backend/internal/ws"
	"github.com/alumnihub/alumni-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var errStoreDown = errors.New("store down")

// headerAuth treats the bearer token as "uid:role"
type headerAuth struct{}

func (headerAuth) Authenticate(token string) (*middleware.Identity, error) {
	parts := strings.SplitN(token, ":", 2)
	if len(parts) != 2 || parts[0] == "" {
		return nil, middleware.ErrMissingToken
	}
	return &middleware.Identity{UserID: parts[0], Role: domain.Role(parts[1])}, nil
}

// memStore is an in-memory chat.Backend
type memStore struct {
	mu    sync.Mutex
	msgs  []*domain.Message
	fail  error
	reads int
	// gate, when set, holds reads until it is closed
	gate    chan struct{}
	waiting int
}

func (s *memStore) Name() string { return "mem" }

func (s *memStore) setFail(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

func (s *memStore) loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func (s *memStore) Insert(_ context.Context, m *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	cp := *m
	s.msgs = append(s.msgs, &cp)
	return nil
}

func (s *memStore) hold() chan struct{} {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()
	return gate
}

// snapshot returns every stored message without passing the gate
func (s *memStore) snapshot() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, 0, len(s.msgs))
	for _, m := range s.msgs {
		out = append(out, *m)
	}
	return out
}

func (s *memStore) held() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiting
}

func (s *memStore) filter(match func(*domain.Message) bool) ([]*domain.Message, error) {
	s.mu.Lock()
	gate := s.gate
	if gate != nil {
		s.waiting++
	}
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	s.reads++
	out := []*domain.Message{}
	for _, m := range s.msgs {
		if match(m) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) Conversation(_ context.Context, a, b string) ([]*domain.Message, error) {
	return s.filter(func(m *domain.Message) bool { return m.Between(a, b) })
}

func (s *memStore) Involving(_ context.Context, userID string) ([]*domain.Message, error) {
	return s.filter(func(m *domain.Message) bool { return m.SenderID == userID || m.ReceiverID == userID })
}

func (s *memStore) MarkRead(_ context.Context, peerID, selfID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return 0, s.fail
	}
	var n int64
	for _, m := range s.msgs {
		if m.SenderID == peerID && m.ReceiverID == selfID && !m.Read {
			m.Read = true
			n++
		}
	}
	return n, nil
}

type testApp struct {
	engine *gin.Engine
	db     *gorm.DB
	store  *memStore
	router *chat.Router
	users  repository.UserRepository
	notifs repository.NotificationRepository
	hub    *ws.Hub
}

func newTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, migration.Run(db))
	return db
}

func newTestApp(t *testing.T) *testApp {
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	notifs := repository.NewNotificationRepository(db)
	store := &memStore{}

	router := chat.NewRouter(chat.Config{Primary: store, StepTimeout: time.Second})
	conversations := service.NewConversationService(users, router, nil, nil)
	fanout := service.NewFanoutService(users, notifs, nil, 2)

	hub := ws.NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Stop)

	engine := gin.New()
	routes.Setup(engine, routes.Handlers{
		Auth:         handler.NewAuthHandler(service.NewAuthService(users, jwt.NewManager("test-secret", 3600))),
		Message:      handler.NewMessageHandler(router, conversations),
		MessageDB:    handler.NewMessageDBHandler(store),
		Notification: handler.NewNotificationHandler(service.NewNotificationService(notifs, fanout)),
		Resource:     handler.NewResourceHandler(service.NewResourceService(repository.NewResourceRepository(db), users, fanout)),
		WS:           handler.NewWSHandler(hub, router, ""),
	}, headerAuth{}, nil, routes.Limits{})

	return &testApp{engine: engine, db: db, store: store, router: router, users: users, notifs: notifs, hub: hub}
}

func (a *testApp) seedUser(t *testing.T, id, name string, role domain.Role) {
	require.NoError(t, a.users.Create(&domain.User{
		ID: id, Email: id + "@example.com", DisplayName: name, Role: role, CreatedAt: time.Now().UTC(),
	}))
}

// do performs a request as token ("uid:role"; empty for anonymous)
func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

// decode unwraps the {"data": ...} envelope
func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, dest), w.Body.String())
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}
