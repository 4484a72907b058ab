package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alumnihub/alumni-backend/internal/domain"
	pkglogger "github.com/alumnihub/alumni-backend/pkg/logger"
	"github.com/sony/gobreaker"
)

// StatusError is a non-2xx answer from the message façade
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("message facade returned %d: %s", e.Status, e.Body)
}

// RESTBackendConfig configures RESTBackend
type RESTBackendConfig struct {
	BaseURL     string
	MaxFailures int
	OpenTimeout time.Duration
	Client      *http.Client
}

// RESTBackend talks to the primary store through its authenticated HTTP façade.
// Requests go through a circuit breaker; the caller's bearer token is forwarded.
type RESTBackend struct {
	base   string
	client *http.Client
	cb     *gobreaker.CircuitBreaker
}

// NewRESTBackend creates a RESTBackend
func NewRESTBackend(cfg RESTBackendConfig) *RESTBackend {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}

	log := pkglogger.WithComponent("chat.rest")
	maxFailures := uint32(cfg.MaxFailures)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "message-facade",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// 4xx is the caller's problem, not the façade's health
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			se, ok := err.(*StatusError)
			return ok && se.Status < 500
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	return &RESTBackend{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		client: client,
		cb:     cb,
	}
}

func (b *RESTBackend) Name() string { return "facade" }

func (b *RESTBackend) Insert(ctx context.Context, m *domain.Message) error {
	return b.do(ctx, http.MethodPost, "/api/messages-db/send", m, nil)
}

func (b *RESTBackend) Conversation(ctx context.Context, a, c string) ([]*domain.Message, error) {
	var out []*domain.Message
	path := "/api/messages-db/" + url.PathEscape(a) + "/" + url.PathEscape(c)
	if err := b.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *RESTBackend) Involving(ctx context.Context, userID string) ([]*domain.Message, error) {
	var out []*domain.Message
	if err := b.do(ctx, http.MethodGet, "/api/messages-db/user/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *RESTBackend) MarkRead(ctx context.Context, peerID, selfID string) (int64, error) {
	var out domain.MarkReadResponse
	path := "/api/messages-db/mark-read/" + url.PathEscape(peerID) + "/" + url.PathEscape(selfID)
	if err := b.do(ctx, http.MethodPut, path, nil, &out); err != nil {
		return 0, err
	}
	return out.Updated, nil
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

func (b *RESTBackend) do(ctx context.Context, method, path string, body, dest interface{}) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.roundTrip(ctx, method, path, body, dest)
	})
	return err
}

func (b *RESTBackend) roundTrip(ctx context.Context, method, path string, body, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := BearerToken(ctx); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if dest == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
