package repo

import (
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/order_portal/services/auth/internal/models"
)

var (
	ErrUserAlreadyExist = errors.New("user already exist")
	ErrUserNotFound     = errors.New("user not found")
)

type GormRepo struct {
	DB *gorm.DB
}

func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

func (r *GormRepo) Migrate() error {
	return r.DB.AutoMigrate(&models.User{})
}
