package handler

import (
	"net/http"

	"github.com/alumnihub/alumni-backend/internal/common"
	"github.com/alumnihub/alumni-backend/internal/domain"
	"github.com/alumnihub/alumni-backend/internal/middleware"
	"github.com/alumnihub/alumni-backend/internal/service"
	"github.com/alumnihub/alumni-backend/pkg/ginutil"
	"github.com/gin-gonic/gin"
)

// NotificationHandler handles notification requests
type NotificationHandler struct {
	service *service.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(service *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// GetUnreadCount handles GET /api/notifications/unread-count
// @Summary Unread notification count
// @Tags notifications
// @Produce json
// @Success 200 {object} common.APIResponse{data=domain.NotificationSummaryResponse}
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	summary, err := h.service.GetUnreadCount(middleware.GetUserID(c))
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "Failed to count notifications", err)
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Data: summary})
}

// GetList handles GET /api/notifications
// @Summary Notifications of the caller, newest first
// @Tags notifications
// @Produce json
// @Param page query int false "page"
// @Param limit query int false "page size"
// @Success 200 {object} common.APIResponse{data=domain.NotificationListResponse}
// @Router /notifications [get]
func (h *NotificationHandler) GetList(c *gin.Context) {
	page, limit := ginutil.Page(c, 20, 100)

	result, err := h.service.GetList(middleware.GetUserID(c), page, limit)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "Failed to load notifications", err)
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Data: result})
}

// MarkAsRead handles PUT /api/notifications/:id/read
// @Summary Mark one notification read
// @Tags notifications
// @Param id path string true "notification id"
// @Success 200 {object} common.APIResponse
// @Failure 403 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	if err := h.service.MarkAsRead(c.Param("id"), middleware.GetUserID(c)); err != nil {
		common.WriteError(c, err, "Failed to mark notification read")
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Data: gin.H{"success": true}})
}

// MarkAllAsRead handles PUT /api/notifications/mark-all-read
// @Summary Mark all of the caller's notifications read
// @Tags notifications
// @Success 200 {object} common.APIResponse
// @Router /notifications/mark-all-read [put]
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	updated, err := h.service.MarkAllAsRead(middleware.GetUserID(c))
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "Failed to mark notifications read", err)
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Data: gin.H{"success": true, "updated": updated}})
}

// Delete handles DELETE /api/notifications/:id
// @Summary Delete one notification
// @Tags notifications
// @Param id path string true "notification id"
// @Success 200 {object} common.APIResponse
// @Router /notifications/{id} [delete]
func (h *NotificationHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Param("id"), middleware.GetUserID(c)); err != nil {
		common.WriteError(c, err, "Failed to delete notification")
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Data: gin.H{"success": true}})
}

// DeleteAll handles DELETE /api/notifications
// @Summary Delete all of the caller's notifications
// @Tags notifications
// @Success 200 {object} common.APIResponse
// @Router /notifications [delete]
func (h *NotificationHandler) DeleteAll(c *gin.Context) {
	deleted, err := h.service.DeleteAll(middleware.GetUserID(c))
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "Failed to delete notifications", err)
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Data: gin.H{"success": true, "deleted": deleted}})
}

// Broadcast handles POST /api/notifications/broadcast
// @Summary Announce a message to every user of one role
// @Tags notifications
// @Accept json
// @Produce json
// @Param body body domain.BroadcastRequest true "announcement"
// @Success 201 {object} common.APIResponse{data=domain.FanoutResult}
// @Failure 403 {object} common.APIResponse
// @Router /notifications/broadcast [post]
func (h *NotificationHandler) Broadcast(c *gin.Context) {
	var req domain.BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	sender := service.Creator{UserID: middleware.GetUserID(c), Role: middleware.GetUserRole(c)}
	result, err := h.service.Broadcast(c.Request.Context(), sender, &req)
	if err != nil {
		common.WriteError(c, err, "Failed to send broadcast")
		return
	}

	common.CreatedResponse(c, result)
}
