package transport

import (
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/order_portal/services/order/internal/models"
)

type CreateOrderRequest struct {
	CustomerName string `json:"customerName"`
	ArticleCode  string `json:"articleCode"`
	Quantity     int    `json:"quantity"`
}

type CreateArticleRequest struct {
	Code      string           `json:"code"`
	Name      string           `json:"name"`
	Stock     *int             `json:"stock"`
	UnitPrice *decimal.Decimal `json:"unitPrice"`
}

type UpdateArticleRequest struct {
	Name      *string          `json:"name"`
	Stock     *int             `json:"stock"`
	UnitPrice *decimal.Decimal `json:"unitPrice"`
}

type Recommendation struct {
	Article models.Article `json:"article"`
	Score   int64          `json:"score"`
	Reason  string         `json:"reason"`
	Tags    []string       `json:"tags"`
}

type OrderEvent struct {
	OrderNumber string          `json:"orderNumber"`
	UserEmail   string          `json:"userEmail"`
	ArticleCode string          `json:"articleCode"`
	Quantity    int             `json:"quantity"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

type ArticleEvent struct {
	ID        string          `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Stock     int             `json:"stock"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

func ToArticleEvent(a *models.Article) ArticleEvent {
	return ArticleEvent{
		ID:        a.ID.String(),
		Code:      a.Code,
		Name:      a.Name,
		Stock:     a.Stock,
		UnitPrice: a.UnitPrice,
	}
}
