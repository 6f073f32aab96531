package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Article struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"                          json:"id"`
	Code      string          `gorm:"uniqueIndex;not null"                          json:"code"`
	Name      string          `gorm:"not null"                                      json:"name"`
	Stock     int             `gorm:"not null;check:chk_articles_stock,stock >= 0"  json:"stock"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"                   json:"unitPrice"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (Article) TableName() string { return "articles" }

func (a *Article) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type Order struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"                json:"id"`
	OrderNumber  string          `gorm:"uniqueIndex;not null"                json:"orderNumber"`
	Date         time.Time       `gorm:"not null"                            json:"date"`
	UserName     string          `gorm:"not null"                            json:"userName"`
	UserEmail    string          `gorm:"index;not null"                      json:"userEmail"`
	CustomerName string          `gorm:"not null"                            json:"customerName"`
	ArticleCode  string          `gorm:"index;not null"                      json:"articleCode"`
	Quantity     int             `gorm:"not null;check:chk_orders_quantity,quantity > 0" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:numeric(12,2);not null"         json:"unitPrice"`
	TotalAmount  decimal.Decimal `gorm:"type:numeric(14,2);not null"         json:"totalAmount"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// Counter backs named monotonic sequences such as order numbers.
type Counter struct {
	Name  string `gorm:"primaryKey"`
	Value int64  `gorm:"not null"`
}

func (Counter) TableName() string { return "counters" }
