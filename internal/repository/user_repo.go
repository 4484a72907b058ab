package repository

import (
	"errors"

	"github.com/alumnihub/alumni-backend/internal/domain"
	"gorm.io/gorm"
)

// UserRepository user data access interface
type UserRepository interface {
	Create(user *domain.User) error
	FindByID(id string) (*domain.User, error)
	FindByEmail(email string) (*domain.User, error)
	FindByRole(role domain.Role) ([]domain.DirectoryUser, error)
	FindByRoles(roles ...domain.Role) ([]domain.DirectoryUser, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *domain.User) error {
	return r.db.Create(user).Error
}

// FindByID returns nil, nil when the user does not exist
func (r *userRepository) FindByID(id string) (*domain.User, error) {
	var user domain.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// FindByEmail returns nil, nil when no user has that email
func (r *userRepository) FindByEmail(email string) (*domain.User, error) {
	var user domain.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// FindByRole returns the audience for a role-targeted fan-out
func (r *userRepository) FindByRole(role domain.Role) ([]domain.DirectoryUser, error) {
	return r.FindByRoles(role)
}

// FindByRoles returns directory entries for any of the given roles, ordered by display name
func (r *userRepository) FindByRoles(roles ...domain.Role) ([]domain.DirectoryUser, error) {
	if len(roles) == 0 {
		return []domain.DirectoryUser{}, nil
	}

	var users []domain.User
	if err := r.db.Where("role IN ?", roles).
		Order("display_name ASC, id ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}

	out := make([]domain.DirectoryUser, len(users))
	for i := range users {
		out[i] = users[i].ToDirectory()
	}
	return out, nil
}
