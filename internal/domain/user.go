package domain

import "time"

// Role is a platform role
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAlumni  Role = "alumni"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAlumni:
		return true
	}
	return false
}

// User is a registered platform member
type User struct {
	ID           string    `gorm:"column:id;primaryKey;size:64" json:"id"`
	Email        string    `gorm:"column:email;uniqueIndex;size:255" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;size:255" json:"-"`
	DisplayName  string    `gorm:"column:display_name;size:100" json:"display_name"`
	Role         Role      `gorm:"column:role;index;size:20" json:"role"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName returns the table name
func (User) TableName() string {
	return "users"
}

// DirectoryUser is the directory projection of a User
type DirectoryUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
}

// ToDirectory projects a User for directory listings
func (u *User) ToDirectory() DirectoryUser {
	return DirectoryUser{ID: u.ID, DisplayName: u.DisplayName, Role: u.Role}
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries an issued access token
type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	User        DirectoryUser `json:"user"`
}
