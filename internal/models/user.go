package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a tenant account that owns automation rules and campaign objects.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Password  string         `gorm:"size:255" json:"-"` // bcrypt hash
	Email     string         `gorm:"size:255" json:"email"`
	Role      string         `gorm:"size:50;default:user" json:"role"` // admin, user
	Timezone  string         `gorm:"size:64" json:"timezone"`          // IANA name, e.g. Asia/Ho_Chi_Minh
	IsActive  bool           `json:"is_active"` // set explicitly on create; a column default would swallow false
	LastLogin *time.Time     `json:"last_login"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }
