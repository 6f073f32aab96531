package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Skotchmaster/order_portal/services/order/internal/models"
	"github.com/Skotchmaster/order_portal/services/order/internal/repo"
	"github.com/Skotchmaster/order_portal/services/order/internal/transport"
)

const (
	RecommendationsLimit = 5
	candidateLimit       = RecommendationsLimit * 2

	reminderAfterDays   = 45
	recurringWithinDays = 14
	reminderBonus       = 4
	recurringBonus      = 2

	TagReminder  = "Reminder"
	TagRecurring = "Recurring"
	TagTrending  = "Trending"

	ReasonCatalog = "available in catalog"
)

type RecommendationStore interface {
	OrderLines(ctx context.Context, userEmail string) ([]models.Order, error)
	GlobalTop(ctx context.Context, limit int) ([]repo.ArticleTotal, error)
	ListArticles(ctx context.Context) ([]models.Article, error)
}

type RecommendationService struct {
	Repo RecommendationStore
	Now  func() time.Time
}

func (s *RecommendationService) Recommend(ctx context.Context, userEmail string) ([]transport.Recommendation, error) {
	var history []models.Order
	if userEmail != "" {
		var err error
		if history, err = s.Repo.OrderLines(ctx, userEmail); err != nil {
			return nil, fmt.Errorf("order history: %w", err)
		}
	}
	global, err := s.Repo.GlobalTop(ctx, candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("global top: %w", err)
	}
	catalog, err := s.Repo.ListArticles(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	return Rank(history, global, catalog, now), nil
}

type articleStat struct {
	Code  string
	Total int64
	Last  time.Time
}

// foldHistory sums quantities per code and keeps the latest order date.
// Heaviest first; ties go to the most recent, then to the code.
func foldHistory(lines []models.Order) []articleStat {
	idx := map[string]int{}
	var stats []articleStat
	for _, o := range lines {
		i, ok := idx[o.ArticleCode]
		if !ok {
			i = len(stats)
			idx[o.ArticleCode] = i
			stats = append(stats, articleStat{Code: o.ArticleCode})
		}
		stats[i].Total += int64(o.Quantity)
		if o.Date.After(stats[i].Last) {
			stats[i].Last = o.Date
		}
	}
	sort.Slice(stats, func(i, j int) bool {
		a, b := stats[i], stats[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		if !a.Last.Equal(b.Last) {
			return a.Last.After(b.Last)
		}
		return a.Code < b.Code
	})
	return stats
}

func daysSince(now, then time.Time) int {
	d := int(now.Sub(then) / (24 * time.Hour))
	if d < 0 {
		return 0
	}
	return d
}

func personal(st articleStat, a models.Article, now time.Time) transport.Recommendation {
	days := daysSince(now, st.Last)
	rec := transport.Recommendation{Article: a, Score: st.Total, Tags: []string{}}
	switch {
	case days > reminderAfterDays:
		rec.Score += reminderBonus
		rec.Tags = append(rec.Tags, TagReminder)
		rec.Reason = fmt.Sprintf("It has been %d days since your last order", days)
	case days <= recurringWithinDays:
		rec.Score += recurringBonus
		rec.Tags = append(rec.Tags, TagRecurring)
		rec.Reason = fmt.Sprintf("Last ordered %d days ago", days)
	default:
		rec.Reason = fmt.Sprintf("You ordered this %d times", st.Total)
	}
	return rec
}

// Rank builds at most RecommendationsLimit suggestions from the caller's
// history, then global best sellers, then the rest of the catalog. A code is
// never suggested twice and codes missing from the catalog are skipped.
func Rank(history []models.Order, global []repo.ArticleTotal, catalog []models.Article, now time.Time) []transport.Recommendation {
	byCode := make(map[string]models.Article, len(catalog))
	for _, a := range catalog {
		byCode[a.Code] = a
	}

	out := make([]transport.Recommendation, 0, RecommendationsLimit)
	seen := map[string]bool{}

	stats := foldHistory(history)
	if len(stats) > candidateLimit {
		stats = stats[:candidateLimit]
	}
	for _, st := range stats {
		if len(out) >= RecommendationsLimit {
			break
		}
		a, ok := byCode[st.Code]
		if !ok {
			continue
		}
		out = append(out, personal(st, a, now))
		seen[st.Code] = true
	}

	for _, g := range global {
		if len(out) >= RecommendationsLimit {
			break
		}
		a, ok := byCode[g.Code]
		if !ok || seen[g.Code] {
			continue
		}
		out = append(out, transport.Recommendation{
			Article: a,
			Score:   g.TotalQuantity,
			Reason:  "Popular with other customers",
			Tags:    []string{TagTrending},
		})
		seen[g.Code] = true
	}

	for _, a := range catalog {
		if len(out) >= RecommendationsLimit {
			break
		}
		if seen[a.Code] {
			continue
		}
		out = append(out, transport.Recommendation{
			Article: a,
			Reason:  ReasonCatalog,
			Tags:    []string{},
		})
		seen[a.Code] = true
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
