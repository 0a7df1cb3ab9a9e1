package users

import (
	"strings"
	"time"
)

// User is a registered account. Email is unique and stored normalized.
type User struct {
	ID           string    `gorm:"column:id;primaryKey;size:36;not null" json:"_id"`
	Email        string    `gorm:"column:email;size:320;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;size:100;not null" json:"-"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName exposes the table backing user accounts.
func (User) TableName() string {
	return "users"
}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
