package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/alumnihub/alumni-backend/internal/chat"
	"github.com/alumnihub/alumni-backend/internal/common"
	"github.com/alumnihub/alumni-backend/internal/domain"
	"github.com/alumnihub/alumni-backend/internal/middleware"
	"github.com/alumnihub/alumni-backend/internal/ws"
	pkglogger "github.com/alumnihub/alumni-backend/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Inbound frame types on a chat connection
const (
	frameSend  = "send"
	frameRetry = "retry"
)

// chatFrame is a client frame on a connection opened with ?peer=
type chatFrame struct {
	Type         string      `json:"type"`
	Content      string      `json:"content"`
	ReceiverRole domain.Role `json:"receiverRole"`
}

// WSHandler handles WebSocket connections
type WSHandler struct {
	hub            *ws.Hub
	router         *chat.Router
	allowedOrigins []string
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler. router may be nil to disable chat sessions.
func NewWSHandler(hub *ws.Hub, router *chat.Router, allowedOrigins string) *WSHandler {
	h := &WSHandler{
		hub:            hub,
		router:         router,
		allowedOrigins: parseOrigins(allowedOrigins),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// parseOrigins parses comma-separated origins string
func parseOrigins(origins string) []string {
	if origins == "" {
		return nil
	}
	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" && trimmed != "*" {
			result = append(result, trimmed)
		}
	}
	return result
}

func (h *WSHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.allowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// Connect handles GET /ws
// @Summary Real-time notifications, conversation refreshes and live chat (?peer=)
// @Tags ws
// @Param peer query string false "open a chat session with this user"
// @Router /ws [get]
func (h *WSHandler) Connect(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		common.ErrorResponse(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}
	peer := c.Query("peer")
	if peer == userID {
		common.ErrorResponse(c, http.StatusBadRequest, "Cannot chat with yourself", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := ws.NewClient(h.hub, conn, userID)
	if peer != "" && h.router != nil {
		// the request context ends with this handler, so the session gets its own
		ctx := chat.WithBearerToken(context.Background(), middleware.GetToken(c))
		h.attachSession(ctx, client, middleware.GetUserRole(c), peer)
	}
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// attachSession binds a chat session for peer to the client's lifetime
func (h *WSHandler) attachSession(ctx context.Context, client *ws.Client, role domain.Role, peer string) {
	log := pkglogger.WithComponent("ws.chat").With().Str("user_id", client.UserID()).Str("peer_id", peer).Logger()
	session := chat.NewSession(chat.SessionConfig{
		Router:   h.router,
		SelfID:   client.UserID(),
		SelfRole: role,
		Mode:     h.router.Mode(),
		Context:  ctx,
	})

	// frames wait for the first load so a send always has its receiver
	loaded := make(chan struct{})

	client.OnClose(func() {
		if err := session.Close(); err != nil {
			log.Debug().Err(err).Msg("close chat session")
		}
	})
	client.OnInbound(func(data []byte) {
		var frame chatFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			client.Push(errorEvent("malformed frame"))
			return
		}
		<-loaded
		switch frame.Type {
		case frameRetry:
			history, err := session.Retry(ctx)
			if err != nil {
				client.Push(errorEvent(err.Error()))
				return
			}
			pushAll(client, history)
		case frameSend:
			if _, err := session.Send(ctx, frame.ReceiverRole, frame.Content); err != nil {
				client.Push(errorEvent(userMessage(err)))
			}
		default:
			client.Push(errorEvent("unknown frame type"))
		}
	})

	go func() {
		history, err := session.Select(ctx, peer)
		if err != nil {
			log.Warn().Err(err).Msg("initial load failed")
			client.Push(errorEvent(userMessage(err)))
		} else {
			pushAll(client, history)
		}
		close(loaded)
		for m := range session.Messages() {
			client.Push(&ws.Event{Type: ws.EventMessage, Payload: m})
		}
	}()
}

func pushAll(client *ws.Client, msgs []*domain.Message) {
	for _, m := range msgs {
		client.Push(&ws.Event{Type: ws.EventMessage, Payload: m})
	}
}

func errorEvent(msg string) *ws.Event {
	return &ws.Event{Type: ws.EventError, Payload: gin.H{"message": msg}}
}

// userMessage hides backend details behind the delivery cause
func userMessage(err error) string {
	var derr *common.DeliveryError
	if errors.As(err, &derr) {
		return derr.Message()
	}
	return err.Error()
}
