package service

import (
	"strings"
	"time"

	"github.com/alumnihub/alumni-backend/internal/common"
	"github.com/alumnihub/alumni-backend/internal/domain"
	"github.com/alumnihub/alumni-backend/internal/repository"
	"github.com/alumnihub/alumni-backend/pkg/jwt"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email       string      `json:"email" binding:"required" validate:"email,max=255"`
	Password    string      `json:"password" binding:"required" validate:"min=8,max=72"`
	DisplayName string      `json:"display_name" binding:"required" validate:"max=100"`
	Role        domain.Role `json:"role" binding:"required" validate:"oneof=student teacher alumni"`
}

// AuthService authentication business logic
type AuthService interface {
	Login(email, password string) (*domain.LoginResponse, error)
	Register(req *RegisterRequest) (*domain.DirectoryUser, error)
}

type authService struct {
	userRepo   repository.UserRepository
	jwtManager *jwt.Manager
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repository.UserRepository, jwtManager *jwt.Manager) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
	}
}

// Login authenticates a user and issues an access token
func (s *authService) Login(email, password string) (*domain.LoginResponse, error) {
	user, err := s.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil || user == nil {
		return nil, common.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, common.ErrInvalidCredentials
	}

	token, err := s.jwtManager.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}

	return &domain.LoginResponse{
		AccessToken: token,
		User:        user.ToDirectory(),
	}, nil
}

// Register creates a user with a bcrypt password hash
func (s *authService) Register(req *RegisterRequest) (*domain.DirectoryUser, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, common.NewValidationError("email", "is invalid")
	}
	if len(req.Password) < 8 {
		return nil, common.NewValidationError("password", "must be at least 8 characters")
	}
	if !req.Role.Valid() {
		return nil, common.NewValidationError("role", "must be student, teacher or alumni")
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		return nil, common.NewValidationError("display_name", "must not be empty")
	}

	existing, err := s.userRepo.FindByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, common.NewValidationError("email", "is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Role:         req.Role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	dir := user.ToDirectory()
	return &dir, nil
}
