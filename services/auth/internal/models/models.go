package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	StatusInactive = "inactive"
	StatusActive   = "active"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"             json:"id"`
	Name         string    `gorm:"not null"                         json:"name"`
	Email        string    `gorm:"uniqueIndex;not null"             json:"email"`
	PasswordHash string    `gorm:"not null"                         json:"-"`
	Role         string    `gorm:"not null;default:user"            json:"role"`
	Status       string    `gorm:"index;not null;default:inactive"  json:"status"`
	CreatedAt    time.Time `gorm:"not null"                         json:"createdAt"`
	UpdatedAt    time.Time `gorm:"not null"                         json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsActive() bool { return u.Status == StatusActive }
func (u *User) IsAdmin() bool  { return u.Role == RoleAdmin }
