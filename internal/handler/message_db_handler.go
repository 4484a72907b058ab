package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/alumnihub/alumni-backend/internal/chat"
	"github.com/alumnihub/alumni-backend/internal/common"
	"github.com/alumnihub/alumni-backend/internal/domain"
	"github.com/alumnihub/alumni-backend/internal/middleware"
	"github.com/alumnihub/alumni-backend/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxClockSkew bounds how far a client-supplied CreatedAt may be from server time
const maxClockSkew = time.Minute

// MessageDBHandler exposes the primary store directly over HTTP.
// It is what the router's REST backend talks to, so it must never go through the router itself.
type MessageDBHandler struct {
	store chat.Backend
}

// NewMessageDBHandler creates a new MessageDBHandler
func NewMessageDBHandler(store chat.Backend) *MessageDBHandler {
	return &MessageDBHandler{store: store}
}

// Send handles POST /api/messages-db/send
func (h *MessageDBHandler) Send(c *gin.Context) {
	var msg domain.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if msg.SenderID != middleware.GetUserID(c) {
		common.ErrorResponse(c, http.StatusForbidden, "senderId must be the caller", nil)
		return
	}

	req := domain.SendMessageRequest{
		SenderID: msg.SenderID, ReceiverID: msg.ReceiverID,
		SenderRole: msg.SenderRole, ReceiverRole: msg.ReceiverRole,
		Content: msg.Content,
	}
	if err := req.Validate(); err != nil {
		common.WriteError(c, err, "Invalid message")
		return
	}

	// the router's ID and timestamp are kept so every store holds the same record,
	// but a timestamp outside the clock skew allowance is replaced
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if msg.CreatedAt.IsZero() || msg.CreatedAt.Sub(now).Abs() > maxClockSkew {
		msg.CreatedAt = now
	}
	msg.Read = false
	msg.Content = strings.TrimSpace(msg.Content)

	if err := h.store.Insert(c.Request.Context(), &msg); err != nil {
		storeError(c, "insert", err)
		return
	}

	common.CreatedResponse(c, &msg)
}

// Conversation handles GET /api/messages-db/:selfId/:peerId
func (h *MessageDBHandler) Conversation(c *gin.Context) {
	selfID, ok := requireSelf(c, "selfId")
	if !ok {
		return
	}

	msgs, err := h.store.Conversation(c.Request.Context(), selfID, c.Param("peerId"))
	if err != nil {
		storeError(c, "load", err)
		return
	}
	common.SuccessResponse(c, msgs, nil)
}

// Involving handles GET /api/messages-db/user/:userId
func (h *MessageDBHandler) Involving(c *gin.Context) {
	userID, ok := requireSelf(c, "userId")
	if !ok {
		return
	}

	msgs, err := h.store.Involving(c.Request.Context(), userID)
	if err != nil {
		storeError(c, "load", err)
		return
	}
	common.SuccessResponse(c, msgs, nil)
}

// MarkRead handles PUT /api/messages-db/mark-read/:peerId/:selfId
func (h *MessageDBHandler) MarkRead(c *gin.Context) {
	selfID, ok := requireSelf(c, "selfId")
	if !ok {
		return
	}

	n, err := h.store.MarkRead(c.Request.Context(), c.Param("peerId"), selfID)
	if err != nil {
		storeError(c, "mark read", err)
		return
	}
	common.SuccessResponse(c, domain.MarkReadResponse{Updated: n}, nil)
}

func storeError(c *gin.Context, op string, err error) {
	logger.Ctx(c.Request.Context()).Error().Err(err).Str("op", op).Msg("primary store failed")
	common.ErrorResponse(c, http.StatusInternalServerError, "Message store unavailable", err)
}
