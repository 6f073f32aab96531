package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite://"

type poolSettings struct {
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
	connMaxIdleTime time.Duration
}

var postgresPool = poolSettings{
	maxOpenConns:    20,
	maxIdleConns:    10,
	connMaxLifetime: 30 * time.Minute,
	connMaxIdleTime: 5 * time.Minute,
}

// SQLite allows a single writer, so the pool is pinned to one connection and
// concurrent transactions queue on the pool instead of failing with SQLITE_BUSY.
var sqlitePool = poolSettings{
	maxOpenConns: 1,
	maxIdleConns: 1,
}

func configurePool(sqlDB *sql.DB, p poolSettings) {
	sqlDB.SetMaxOpenConns(p.maxOpenConns)
	sqlDB.SetMaxIdleConns(p.maxIdleConns)
	sqlDB.SetConnMaxLifetime(p.connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(p.connMaxIdleTime)
}

func IsSQLite(dsn string) bool {
	return strings.HasPrefix(dsn, sqlitePrefix) || strings.HasPrefix(dsn, "file:")
}

// Open connects to postgres, or to SQLite when the DSN starts with sqlite://
// or file:. The returned handle has been pinged.
func Open(ctx context.Context, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	var (
		dialector gorm.Dialector
		pool      poolSettings
		prepare   bool
	)
	if IsSQLite(dsn) {
		dialector = sqlite.Open(strings.TrimPrefix(dsn, sqlitePrefix))
		pool = sqlitePool
	} else {
		dialector = postgres.Open(dsn)
		pool = postgresPool
		prepare = true
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		PrepareStmt:    prepare,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	configurePool(sqlDB, pool)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

func Close(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Ping backs the readiness probes.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	pingCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return sqlDB.PingContext(pingCtx)
}
