package handler

import (
	"context"
	"net/http"

	"github.com/alumnihub/alumni-backend/internal/chat"
	"github.com/alumnihub/alumni-backend/internal/common"
	"github.com/alumnihub/alumni-backend/internal/domain"
	"github.com/alumnihub/alumni-backend/internal/middleware"
	"github.com/alumnihub/alumni-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// MessageHandler handles chat requests through the delivery router
type MessageHandler struct {
	router        *chat.Router
	conversations *service.ConversationService
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(router *chat.Router, conversations *service.ConversationService) *MessageHandler {
	return &MessageHandler{router: router, conversations: conversations}
}

// Send handles POST /api/messages/send
// @Summary Send a chat message
// @Tags messages
// @Accept json
// @Produce json
// @Param request body domain.SendMessageRequest true "message"
// @Success 201 {object} common.APIResponse{data=domain.Message}
// @Failure 503 {object} common.APIResponse
// @Router /messages/send [post]
func (h *MessageHandler) Send(c *gin.Context) {
	var req domain.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.SenderID != middleware.GetUserID(c) {
		common.ErrorResponse(c, http.StatusForbidden, "senderId must be the caller", nil)
		return
	}
	if req.SenderRole == "" {
		req.SenderRole = middleware.GetUserRole(c)
	}

	msg, err := h.router.Send(requestContext(c), &req)
	if err != nil {
		common.WriteError(c, err, "Failed to send message")
		return
	}

	common.CreatedResponse(c, msg)
}

// Conversations handles GET /api/messages/conversations/:selfId
// @Summary Conversation list
// @Tags messages
// @Produce json
// @Param selfId path string true "caller id"
// @Success 200 {object} common.APIResponse{data=[]domain.ConversationSummary}
// @Router /messages/conversations/{selfId} [get]
func (h *MessageHandler) Conversations(c *gin.Context) {
	selfID, ok := requireSelf(c, "selfId")
	if !ok {
		return
	}

	list, err := h.conversations.Conversations(requestContext(c), selfID)
	if err != nil {
		common.WriteError(c, err, "Failed to load conversations")
		return
	}

	common.SuccessResponse(c, list, nil)
}

// Fetch handles GET /api/messages/:selfId/:peerId
// @Summary Messages between caller and peer
// @Tags messages
// @Produce json
// @Param selfId path string true "caller id"
// @Param peerId path string true "peer id"
// @Success 200 {object} common.APIResponse{data=[]domain.Message}
// @Router /messages/{selfId}/{peerId} [get]
func (h *MessageHandler) Fetch(c *gin.Context) {
	selfID, ok := requireSelf(c, "selfId")
	if !ok {
		return
	}

	msgs, err := h.router.Fetch(requestContext(c), selfID, c.Param("peerId"))
	if err != nil {
		common.WriteError(c, err, "Failed to load messages")
		return
	}

	common.SuccessResponse(c, msgs, nil)
}

// MarkRead handles PUT /api/messages/mark-read/:peerId/:selfId
// @Summary Mark a conversation read
// @Tags messages
// @Produce json
// @Param peerId path string true "peer id"
// @Param selfId path string true "caller id"
// @Success 200 {object} common.APIResponse{data=domain.MarkReadResponse}
// @Router /messages/mark-read/{peerId}/{selfId} [put]
func (h *MessageHandler) MarkRead(c *gin.Context) {
	selfID, ok := requireSelf(c, "selfId")
	if !ok {
		return
	}

	updated := h.router.MarkRead(requestContext(c), c.Param("peerId"), selfID)
	common.SuccessResponse(c, domain.MarkReadResponse{Updated: updated}, nil)
}

// Directory handles GET /api/directory
// @Summary Users the caller may start a conversation with
// @Tags messages
// @Produce json
// @Success 200 {object} common.APIResponse{data=[]domain.DirectoryUser}
// @Router /directory [get]
func (h *MessageHandler) Directory(c *gin.Context) {
	users, err := h.conversations.Directory(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		common.WriteError(c, err, "Failed to load directory")
		return
	}
	common.SuccessResponse(c, users, nil)
}

// requireSelf returns the path parameter when it names the caller, writing 403 otherwise
func requireSelf(c *gin.Context, param string) (string, bool) {
	id := c.Param(param)
	if id == "" || id != middleware.GetUserID(c) {
		common.ErrorResponse(c, http.StatusForbidden, "You can only access your own messages", nil)
		return "", false
	}
	return id, true
}

// requestContext carries the caller's token so the REST backend can forward it
func requestContext(c *gin.Context) context.Context {
	return chat.WithBearerToken(c.Request.Context(), middleware.GetToken(c))
}
