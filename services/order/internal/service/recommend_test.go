package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/order_portal/services/order/internal/models"
	"github.com/Skotchmaster/order_portal/services/order/internal/repo"
)

var rankNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func catalogOf(codes ...string) []models.Article {
	out := make([]models.Article, 0, len(codes))
	for _, c := range codes {
		out = append(out, models.Article{Code: c, Name: "Article " + c, Stock: 10, UnitPrice: decimal.NewFromInt(1)})
	}
	return out
}

func line(code string, qty int, daysAgo int) models.Order {
	return models.Order{ArticleCode: code, Quantity: qty, Date: rankNow.AddDate(0, 0, -daysAgo)}
}

func TestRank_ReminderScenario(t *testing.T) {
	t.Parallel()

	history := []models.Order{line("A100", 2, 120), line("A100", 3, 90), line("A100", 2, 60)}
	recs := Rank(history, nil, catalogOf("A100", "B200"), rankNow)

	require.NotEmpty(t, recs)
	top := recs[0]
	assert.Equal(t, "A100", top.Article.Code)
	assert.Equal(t, []string{TagReminder}, top.Tags)
	assert.EqualValues(t, 11, top.Score)
	assert.Equal(t, "It has been 60 days since your last order", top.Reason)
}

func TestRank_Tiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		history []models.Order
		wantTag []string
		score   int64
		reason  string
	}{
		{name: "recurring", history: []models.Order{line("A100", 3, 14)}, wantTag: []string{TagRecurring}, score: 5, reason: "Last ordered 14 days ago"},
		{name: "plain", history: []models.Order{line("A100", 3, 30)}, wantTag: []string{}, score: 3, reason: "You ordered this 3 times"},
		{name: "reminder boundary", history: []models.Order{line("A100", 1, 46)}, wantTag: []string{TagReminder}, score: 5, reason: "It has been 46 days since your last order"},
		{name: "45 days is not a reminder", history: []models.Order{line("A100", 1, 45)}, wantTag: []string{}, score: 1, reason: "You ordered this 1 times"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			recs := Rank(tt.history, nil, catalogOf("A100"), rankNow)
			require.Len(t, recs, 1)
			assert.Equal(t, tt.wantTag, recs[0].Tags)
			assert.Equal(t, tt.score, recs[0].Score)
			assert.Equal(t, tt.reason, recs[0].Reason)
		})
	}
}

func TestRank_FillsFromGlobalThenCatalog(t *testing.T) {
	t.Parallel()

	history := []models.Order{line("A100", 1, 30)}
	global := []repo.ArticleTotal{
		{Code: "A100", TotalQuantity: 50},
		{Code: "GONE", TotalQuantity: 40},
		{Code: "B200", TotalQuantity: 20},
	}
	recs := Rank(history, global, catalogOf("A100", "B200", "C300", "D400", "E500", "F600"), rankNow)

	require.Len(t, recs, RecommendationsLimit)
	assert.Equal(t, "B200", recs[0].Article.Code)
	assert.Equal(t, []string{TagTrending}, recs[0].Tags)
	assert.EqualValues(t, 20, recs[0].Score)
	assert.Equal(t, "A100", recs[1].Article.Code, "personal tier keeps its own score, not the global one")
	assert.EqualValues(t, 1, recs[1].Score)

	for _, r := range recs[2:] {
		assert.Zero(t, r.Score)
		assert.Empty(t, r.Tags)
		assert.NotNil(t, r.Tags)
	}
	assert.Equal(t, "C300", recs[2].Article.Code)
	assert.Equal(t, "E500", recs[4].Article.Code)
}

func TestRank_NeverRepeatsAndSkipsRetiredCodes(t *testing.T) {
	t.Parallel()

	var history []models.Order
	for i, code := range []string{"A", "B", "C", "D", "E", "F", "G", "RETIRED"} {
		history = append(history, line(code, 10-i, 20))
	}
	history = append(history, line("RETIRED", 50, 1))
	global := []repo.ArticleTotal{{Code: "A", TotalQuantity: 99}, {Code: "H", TotalQuantity: 1}}

	recs := Rank(history, global, catalogOf("A", "B", "C", "D", "E", "F", "G", "H"), rankNow)

	require.Len(t, recs, RecommendationsLimit)
	seen := map[string]bool{}
	for _, r := range recs {
		assert.False(t, seen[r.Article.Code], "duplicate %s", r.Article.Code)
		seen[r.Article.Code] = true
		assert.NotEqual(t, "RETIRED", r.Article.Code)
	}
	assert.Equal(t, "A", recs[0].Article.Code)
}

func TestRank_LengthIsCatalogSizeWhenSmall(t *testing.T) {
	t.Parallel()

	recs := Rank(nil, nil, catalogOf("A", "B", "C"), rankNow)
	assert.Len(t, recs, 3)
	for _, r := range recs {
		assert.Equal(t, "available in catalog", r.Reason)
		assert.Zero(t, r.Score)
		assert.Empty(t, r.Tags)
	}

	recs = Rank([]models.Order{line("A", 1, 1)}, nil, nil, rankNow)
	assert.Empty(t, recs)
	assert.NotNil(t, recs)
}

func TestFoldHistory_Ordering(t *testing.T) {
	t.Parallel()

	stats := foldHistory([]models.Order{
		line("B", 2, 10),
		line("A", 2, 5),
		line("C", 2, 5),
		line("D", 1, 1),
		line("A", 0, 1),
	})

	require.Len(t, stats, 4)
	assert.Equal(t, "A", stats[0].Code, "most recent wins a tie")
	assert.Equal(t, rankNow.AddDate(0, 0, -1), stats[0].Last)
	assert.Equal(t, "C", stats[1].Code)
	assert.Equal(t, "B", stats[2].Code)
	assert.Equal(t, "D", stats[3].Code)
}
