package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/order_portal/pkg/events"
	"github.com/Skotchmaster/order_portal/pkg/logging"
	"github.com/Skotchmaster/order_portal/pkg/validation"
	"github.com/Skotchmaster/order_portal/services/order/internal/models"
	"github.com/Skotchmaster/order_portal/services/order/internal/repo"
	"github.com/Skotchmaster/order_portal/services/order/internal/transport"
)

type OrderStore interface {
	PlaceOrder(ctx context.Context, d repo.OrderDraft, num repo.Numberer) (*models.Order, error)
	ListOrders(ctx context.Context, userEmail string) ([]models.Order, error)
}

type OrderService struct {
	Repo   OrderStore
	Events events.Publisher
	// Prefix of generated order numbers; DefaultOrderPrefix when empty.
	Prefix string
	Now    func() time.Time
}

// Customer is the authenticated caller placing or listing orders.
type Customer struct {
	Name    string
	Email   string
	IsAdmin bool
}

type CreateOrderInput struct {
	Customer     Customer
	CustomerName string
	ArticleCode  string
	Quantity     int
}

func (s *OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *OrderService) numberer() repo.Numberer {
	prefix := s.Prefix
	if prefix == "" {
		prefix = DefaultOrderPrefix
	}
	return repo.Numberer{
		Counter: OrderCounter,
		Format:  func(n int64) string { return FormatOrderNumber(prefix, n) },
	}
}

// CreateOrder reserves stock and records the order atomically. There is no
// idempotency key: a client retry after a lost response places a second order.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.create")

	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.ArticleCode = validation.NormalizeCode(in.ArticleCode)

	errs := validation.Errors{}
	if !validation.MinLen(in.CustomerName, 2) {
		errs.Add("customerName", "must be at least 2 characters")
	}
	if in.ArticleCode == "" {
		errs.Add("articleCode", "is required")
	}
	if in.Quantity <= 0 {
		errs.Add("quantity", "must be a positive integer")
	}
	if err := errs.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	order, err := s.Repo.PlaceOrder(ctx, repo.OrderDraft{
		UserName:     in.Customer.Name,
		UserEmail:    in.Customer.Email,
		CustomerName: in.CustomerName,
		ArticleCode:  in.ArticleCode,
		Quantity:     in.Quantity,
		Date:         s.now(),
	}, s.numberer())
	if err != nil {
		if errors.Is(err, repo.ErrInsufficientStock) {
			l.Info("create_order_rejected", "reason", "insufficient stock", "article_code", in.ArticleCode, "quantity", in.Quantity)
			return nil, ErrInsufficientStock
		}
		return nil, err
	}

	events.Emit(ctx, s.Events, events.TopicOrders, order.UserEmail, events.New("order_created", transport.OrderEvent{
		OrderNumber: order.OrderNumber,
		UserEmail:   order.UserEmail,
		ArticleCode: order.ArticleCode,
		Quantity:    order.Quantity,
		TotalAmount: order.TotalAmount,
	}))
	l.Info("create_order_success", "order_number", order.OrderNumber)
	return order, nil
}

// ListOrders scopes the result to the caller unless they are an admin.
func (s *OrderService) ListOrders(ctx context.Context, c Customer) ([]models.Order, error) {
	if c.IsAdmin {
		return s.Repo.ListOrders(ctx, "")
	}
	if c.Email == "" {
		return []models.Order{}, nil
	}
	return s.Repo.ListOrders(ctx, c.Email)
}
