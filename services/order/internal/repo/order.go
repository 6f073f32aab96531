package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/order_portal/services/order/internal/models"
)

type OrderDraft struct {
	UserName     string
	UserEmail    string
	CustomerName string
	ArticleCode  string
	Quantity     int
	Date         time.Time
}

// Numberer turns a sequence value into an order number.
type Numberer struct {
	Counter string
	Format  func(n int64) string
}

// reserveStock decrements stock only if enough is left. An unknown code and a
// short article both report ErrInsufficientStock.
func reserveStock(tx *gorm.DB, code string, qty int) error {
	res := tx.Model(&models.Article{}).
		Where("code = ? AND stock >= ?", code, qty).
		Updates(map[string]any{"stock": gorm.Expr("stock - ?", qty)})
	if res.Error != nil {
		return fmt.Errorf("reserve stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// PlaceOrder reserves stock, allocates the order number and inserts the order
// in one transaction. Any failure rolls back the reservation.
func (r *GormRepo) PlaceOrder(ctx context.Context, d OrderDraft, num Numberer) (*models.Order, error) {
	var order *models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := reserveStock(tx, d.ArticleCode, d.Quantity); err != nil {
			return err
		}

		seq, err := nextSequence(tx, num.Counter)
		if err != nil {
			return err
		}

		var a models.Article
		if err := tx.Where("code = ?", d.ArticleCode).Take(&a).Error; err != nil {
			return fmt.Errorf("read reserved article: %w", err)
		}

		order = &models.Order{
			OrderNumber:  num.Format(seq),
			Date:         d.Date,
			UserName:     d.UserName,
			UserEmail:    d.UserEmail,
			CustomerName: d.CustomerName,
			ArticleCode:  a.Code,
			Quantity:     d.Quantity,
			UnitPrice:    a.UnitPrice,
			TotalAmount:  a.UnitPrice.Mul(decimal.NewFromInt(int64(d.Quantity))),
		}
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders returns the newest orders first. An empty email lists everyone's.
func (r *GormRepo) ListOrders(ctx context.Context, userEmail string) ([]models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{})
	if userEmail != "" {
		q = q.Where("user_email = ?", userEmail)
	}

	var orders []models.Order
	if err := q.Order("created_at DESC").Order("order_number DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// OrderLines returns the code, quantity and date of every order a user placed.
func (r *GormRepo) OrderLines(ctx context.Context, userEmail string) ([]models.Order, error) {
	var lines []models.Order
	err := r.DB.WithContext(ctx).
		Select("article_code", "quantity", "date").
		Where("user_email = ?", userEmail).
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

type ArticleTotal struct {
	Code          string
	TotalQuantity int64
}

// GlobalTop sums ordered quantity per article code over all users.
func (r *GormRepo) GlobalTop(ctx context.Context, limit int) ([]ArticleTotal, error) {
	var out []ArticleTotal
	err := r.DB.WithContext(ctx).
		Model(&models.Order{}).
		Select("article_code AS code, SUM(quantity) AS total_quantity").
		Group("article_code").
		Order("total_quantity DESC").
		Order("code ASC").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
