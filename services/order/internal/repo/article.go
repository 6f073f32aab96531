package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/order_portal/services/order/internal/models"
)

type ArticlePatch struct {
	Name      *string
	Stock     *int
	UnitPrice *decimal.Decimal
}

func (p ArticlePatch) updates() map[string]any {
	m := map[string]any{}
	if p.Name != nil {
		m["name"] = *p.Name
	}
	if p.Stock != nil {
		m["stock"] = *p.Stock
	}
	if p.UnitPrice != nil {
		m["unit_price"] = *p.UnitPrice
	}
	return m
}

func (r *GormRepo) CreateArticle(ctx context.Context, a *models.Article) error {
	if err := r.DB.WithContext(ctx).Create(a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrArticleExists
		}
		return err
	}
	return nil
}

func (r *GormRepo) GetArticleByCode(ctx context.Context, code string) (*models.Article, error) {
	var a models.Article
	if err := r.DB.WithContext(ctx).Where("code = ?", code).Take(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *GormRepo) ListArticles(ctx context.Context) ([]models.Article, error) {
	var items []models.Article
	if err := r.DB.WithContext(ctx).Order("code ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindByCodes returns the articles that still exist, keyed by code.
func (r *GormRepo) FindByCodes(ctx context.Context, codes []string) (map[string]models.Article, error) {
	out := make(map[string]models.Article, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	var items []models.Article
	if err := r.DB.WithContext(ctx).Where("code IN ?", codes).Find(&items).Error; err != nil {
		return nil, err
	}
	for _, a := range items {
		out[a.Code] = a
	}
	return out, nil
}

// UpdateArticle writes only the fields present in the patch, so a concurrent
// reservation is never overwritten by a stale stock value.
func (r *GormRepo) UpdateArticle(ctx context.Context, id uuid.UUID, patch ArticlePatch) (*models.Article, error) {
	var a models.Article
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).Take(&a).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrArticleNotFound
			}
			return err
		}
		if fields := patch.updates(); len(fields) > 0 {
			if err := tx.Model(&a).Updates(fields).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id).Take(&a).Error
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SearchArticles is the database fallback when no search index is configured.
func (r *GormRepo) SearchArticles(ctx context.Context, q string, limit int) ([]models.Article, error) {
	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"

	var items []models.Article
	err := r.DB.WithContext(ctx).
		Where(`LOWER(code) LIKE ? ESCAPE '\' OR LOWER(name) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("code ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
