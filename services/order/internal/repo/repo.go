package repo

import (
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/order_portal/services/order/internal/models"
)

var (
	ErrArticleExists     = errors.New("article code already exists")
	ErrArticleNotFound   = errors.New("article not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type GormRepo struct {
	DB *gorm.DB
}

func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

func (r *GormRepo) Migrate() error {
	return r.DB.AutoMigrate(&models.Article{}, &models.Order{}, &models.Counter{})
}
