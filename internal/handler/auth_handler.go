package handler

import (
	"errors"
	"net/http"

	"github.com/alumnihub/alumni-backend/internal/common"
	"github.com/alumnihub/alumni-backend/internal/domain"
	"github.com/alumnihub/alumni-backend/internal/middleware"
	"github.com/alumnihub/alumni-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var registerValidator = validator.New()

// AuthHandler handles authentication requests
type AuthHandler struct {
	service service.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service service.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// Login handles POST /api/auth/login
// @Summary Issue an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body domain.LoginRequest true "credentials"
// @Success 200 {object} common.APIResponse{data=domain.LoginResponse}
// @Failure 401 {object} common.APIResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	response, err := h.service.Login(req.Email, req.Password)
	if errors.Is(err, common.ErrInvalidCredentials) {
		common.ErrorResponse(c, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "Login failed", err)
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Data: response})
}

// Register handles POST /api/auth/register
// @Summary Create an account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.RegisterRequest true "account"
// @Success 201 {object} common.APIResponse{data=domain.DirectoryUser}
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := registerValidator.Struct(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Validation failed", err)
		return
	}

	user, err := h.service.Register(&req)
	if err != nil {
		common.WriteError(c, err, "Registration failed")
		return
	}

	common.CreatedResponse(c, user)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, common.APIResponse{
		Data: gin.H{
			"id":   middleware.GetUserID(c),
			"role": middleware.GetUserRole(c),
		},
	})
}
