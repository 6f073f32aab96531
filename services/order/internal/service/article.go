package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/order_portal/pkg/events"
	"github.com/Skotchmaster/order_portal/pkg/logging"
	"github.com/Skotchmaster/order_portal/pkg/validation"
	"github.com/Skotchmaster/order_portal/services/order/internal/models"
	"github.com/Skotchmaster/order_portal/services/order/internal/repo"
	"github.com/Skotchmaster/order_portal/services/order/internal/transport"
)

const searchLimit = 20

type ArticleStore interface {
	CreateArticle(ctx context.Context, a *models.Article) error
	GetArticleByCode(ctx context.Context, code string) (*models.Article, error)
	ListArticles(ctx context.Context) ([]models.Article, error)
	FindByCodes(ctx context.Context, codes []string) (map[string]models.Article, error)
	UpdateArticle(ctx context.Context, id uuid.UUID, patch repo.ArticlePatch) (*models.Article, error)
	SearchArticles(ctx context.Context, q string, limit int) ([]models.Article, error)
}

// SearchIndex is optional; without one, search falls back to the database.
type SearchIndex interface {
	IndexArticle(ctx context.Context, a *models.Article) error
	SearchCodes(ctx context.Context, query string, size int) ([]string, error)
}

type ArticleService struct {
	Repo   ArticleStore
	Index  SearchIndex
	Events events.Publisher
}

func (s *ArticleService) CreateArticle(ctx context.Context, in transport.CreateArticleRequest) (*models.Article, error) {
	l := logging.FromContext(ctx).With("svc", "article.create")

	in.Code = validation.NormalizeCode(in.Code)
	in.Name = strings.TrimSpace(in.Name)

	errs := validation.Errors{}
	if in.Code == "" {
		errs.Add("code", "is required")
	}
	if !validation.MinLen(in.Name, 2) {
		errs.Add("name", "must be at least 2 characters")
	}
	if in.Stock == nil {
		errs.Add("stock", "is required")
	} else if *in.Stock < 0 {
		errs.Add("stock", "must be zero or more")
	}
	if in.UnitPrice == nil {
		errs.Add("unitPrice", "is required")
	} else if in.UnitPrice.IsNegative() {
		errs.Add("unitPrice", "must be zero or more")
	}
	if err := errs.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if _, err := s.Repo.GetArticleByCode(ctx, in.Code); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, repo.ErrArticleNotFound) {
		return nil, err
	}

	a := &models.Article{
		Code:      in.Code,
		Name:      in.Name,
		Stock:     *in.Stock,
		UnitPrice: *in.UnitPrice,
	}
	if err := s.Repo.CreateArticle(ctx, a); err != nil {
		if errors.Is(err, repo.ErrArticleExists) {
			return nil, ErrConflict
		}
		return nil, err
	}

	s.afterWrite(ctx, "article_created", a)
	l.Info("create_article_success", "code", a.Code)
	return a, nil
}

func (s *ArticleService) ListArticles(ctx context.Context) ([]models.Article, error) {
	return s.Repo.ListArticles(ctx)
}

// UpdateArticle applies a partial edit. Stock is set to the given absolute
// value, not adjusted.
func (s *ArticleService) UpdateArticle(ctx context.Context, rawID string, in transport.UpdateArticleRequest) (*models.Article, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrInvalidID
	}

	errs := validation.Errors{}
	patch := repo.ArticlePatch{Stock: in.Stock, UnitPrice: in.UnitPrice}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if !validation.MinLen(name, 2) {
			errs.Add("name", "must be at least 2 characters")
		}
		patch.Name = &name
	}
	if in.Stock != nil && *in.Stock < 0 {
		errs.Add("stock", "must be zero or more")
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		errs.Add("unitPrice", "must be zero or more")
	}
	if err := errs.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	a, err := s.Repo.UpdateArticle(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repo.ErrArticleNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.afterWrite(ctx, "article_updated", a)
	return a, nil
}

// SearchArticles matches code or name. Hits from the index are re-read from
// the database so stock and price are current.
func (s *ArticleService) SearchArticles(ctx context.Context, q string) ([]models.Article, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return s.Repo.ListArticles(ctx)
	}
	if s.Index == nil {
		return s.Repo.SearchArticles(ctx, q, searchLimit)
	}

	codes, err := s.Index.SearchCodes(ctx, q, searchLimit)
	if err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "error", err)
		return s.Repo.SearchArticles(ctx, q, searchLimit)
	}
	found, err := s.Repo.FindByCodes(ctx, codes)
	if err != nil {
		return nil, err
	}
	out := make([]models.Article, 0, len(codes))
	for _, code := range codes {
		if a, ok := found[code]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *ArticleService) afterWrite(ctx context.Context, eventType string, a *models.Article) {
	if s.Index != nil {
		if err := s.Index.IndexArticle(ctx, a); err != nil {
			logging.FromContext(ctx).Warn("search_index_failed", "code", a.Code, "error", err)
		}
	}
	events.Emit(ctx, s.Events, events.TopicCatalog, a.Code, events.New(eventType, transport.ToArticleEvent(a)))
}
