package migration

import (
	"fmt"
	"time"

	"github.com/alumnihub/alumni-backend/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Models lists every table owned by the relational store
func Models() []interface{} {
	return []interface{}{
		&domain.User{},
		&domain.Notification{},
		&domain.Event{},
		&domain.Job{},
		&domain.Course{},
		&domain.Mentorship{},
	}
}

// Run executes AutoMigrate for users, notifications and resources
func Run(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// DemoPassword is the password of every seeded demo account
const DemoPassword = "password123"

// SeedDemo inserts one account per role when the users table is empty.
// Returns the number of users created.
func SeedDemo(db *gorm.DB) (int, error) {
	var count int64
	if err := db.Model(&domain.User{}).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	users := []domain.User{
		{DisplayName: "Demo Student", Email: "student@example.com", Role: domain.RoleStudent},
		{DisplayName: "Demo Teacher", Email: "teacher@example.com", Role: domain.RoleTeacher},
		{DisplayName: "Demo Alumni", Email: "alumni@example.com", Role: domain.RoleAlumni},
	}
	for i := range users {
		users[i].ID = uuid.New().String()
		users[i].PasswordHash = string(hash)
		users[i].CreatedAt = now
	}
	if err := db.Create(&users).Error; err != nil {
		return 0, fmt.Errorf("seed demo users: %w", err)
	}
	return len(users), nil
}

// Counts returns the row count of every migrated table
func Counts(db *gorm.DB) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, model := range Models() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, err
		}
		var n int64
		if err := db.Model(model).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("count %s: %w", stmt.Schema.Table, err)
		}
		out[stmt.Schema.Table] = n
	}
	return out, nil
}
