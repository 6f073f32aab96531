// Package testutil opens throwaway databases for the auth service tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	pkgdb "github.com/Skotchmaster/order_portal/pkg/db"
	"github.com/Skotchmaster/order_portal/services/auth/internal/repo"
)

func NewRepo(t *testing.T) *repo.GormRepo {
	t.Helper()

	db := NewDB(t)
	r := repo.NewGormRepo(db)
	require.NoError(t, r.Migrate())
	return r
}

func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "sqlite://" + filepath.Join(t.TempDir(), "auth.db") + "?_pragma=busy_timeout(5000)"
	db, err := pkgdb.Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { pkgdb.Close(db) })
	return db
}
