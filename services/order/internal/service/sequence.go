package service

import (
	"context"
	"fmt"
)

const (
	DefaultOrderPrefix = "ORD"
	OrderCounter       = "orderNumber"
)

// FormatOrderNumber renders n zero-padded to six digits. Wider values keep all
// their digits.
func FormatOrderNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s-%06d", prefix, n)
}

type SequenceStore interface {
	NextSequence(ctx context.Context, name string) (int64, error)
}

// Sequencer hands out strictly increasing values per key.
type Sequencer struct {
	Store SequenceStore
}

func (s *Sequencer) Next(ctx context.Context, key string) (int64, error) {
	return s.Store.NextSequence(ctx, key)
}
