// Package testutil opens throwaway databases for the order service tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	pkgdb "github.com/Skotchmaster/order_portal/pkg/db"
	"github.com/Skotchmaster/order_portal/services/order/internal/models"
	"github.com/Skotchmaster/order_portal/services/order/internal/repo"
)

func NewRepo(t *testing.T) *repo.GormRepo {
	t.Helper()

	dsn := "sqlite://" + filepath.Join(t.TempDir(), "order.db") + "?_pragma=busy_timeout(5000)"
	db, err := pkgdb.Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { pkgdb.Close(db) })

	r := repo.NewGormRepo(db)
	require.NoError(t, r.Migrate())
	return r
}

func SeedArticle(t *testing.T, r *repo.GormRepo, code string, stock int, price string) *models.Article {
	t.Helper()

	a := &models.Article{
		Code:      code,
		Name:      "Article " + code,
		Stock:     stock,
		UnitPrice: decimal.RequireFromString(price),
	}
	require.NoError(t, r.CreateArticle(context.Background(), a))
	return a
}

func Stock(t *testing.T, r *repo.GormRepo, code string) int {
	t.Helper()

	a, err := r.GetArticleByCode(context.Background(), code)
	require.NoError(t, err)
	return a.Stock
}
