package handler

import (
	"context"
	"net/http"

	"github.com/alumnihub/alumni-backend/internal/common"
	"github.com/alumnihub/alumni-backend/internal/domain"
	"github.com/alumnihub/alumni-backend/internal/middleware"
	"github.com/alumnihub/alumni-backend/internal/service"
	"github.com/gin-gonic/gin"
)

type createFunc func(ctx context.Context, creator service.Creator, req *domain.CreateResourceRequest) (*domain.CreateResourceResponse, error)

// ResourceHandler creates events, jobs, courses and mentorships
type ResourceHandler struct {
	service *service.ResourceService
}

// NewResourceHandler creates a new ResourceHandler
func NewResourceHandler(service *service.ResourceService) *ResourceHandler {
	return &ResourceHandler{service: service}
}

// CreateEvent handles POST /api/events
// @Summary Create an event and notify students
// @Tags resources
// @Accept json
// @Produce json
// @Param request body domain.CreateResourceRequest true "event"
// @Success 201 {object} common.APIResponse{data=domain.CreateResourceResponse}
// @Router /events [post]
func (h *ResourceHandler) CreateEvent(c *gin.Context) { h.create(c, h.service.CreateEvent) }

// CreateJob handles POST /api/jobs
// @Summary Create a job posting and notify students
// @Tags resources
// @Router /jobs [post]
func (h *ResourceHandler) CreateJob(c *gin.Context) { h.create(c, h.service.CreateJob) }

// CreateCourse handles POST /api/courses
// @Summary Create a course and notify students
// @Tags resources
// @Router /courses [post]
func (h *ResourceHandler) CreateCourse(c *gin.Context) { h.create(c, h.service.CreateCourse) }

// CreateMentorship handles POST /api/mentorships
// @Summary Create a mentorship program and notify students
// @Tags resources
// @Router /mentorships [post]
func (h *ResourceHandler) CreateMentorship(c *gin.Context) { h.create(c, h.service.CreateMentorship) }

func (h *ResourceHandler) create(c *gin.Context, fn createFunc) {
	var req domain.CreateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	creator := service.Creator{UserID: middleware.GetUserID(c), Role: middleware.GetUserRole(c)}
	resp, err := fn(c.Request.Context(), creator, &req)
	if err != nil {
		common.WriteError(c, err, "Failed to create resource")
		return
	}

	common.CreatedResponse(c, resp)
}
