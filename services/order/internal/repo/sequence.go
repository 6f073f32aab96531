package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/order_portal/services/order/internal/models"
)

// nextSequence bumps the named counter, creating it on first use. The row
// stays locked by the upsert until tx ends, so the follow-up read sees our
// own increment.
func nextSequence(tx *gorm.DB, name string) (int64, error) {
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]any{"value": gorm.Expr("counters.value + 1")}),
	}).Create(&models.Counter{Name: name, Value: 1}).Error
	if err != nil {
		return 0, fmt.Errorf("increment counter %q: %w", name, err)
	}

	var c models.Counter
	if err := tx.Where("name = ?", name).Take(&c).Error; err != nil {
		return 0, fmt.Errorf("read counter %q: %w", name, err)
	}
	return c.Value, nil
}

// NextSequence allocates one value outside of any order transaction.
func (r *GormRepo) NextSequence(ctx context.Context, name string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		n, err = nextSequence(tx, name)
		return err
	})
	return n, err
}
