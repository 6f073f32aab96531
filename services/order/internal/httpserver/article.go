package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/order_portal/pkg/apperr"
	"github.com/Skotchmaster/order_portal/pkg/logging"
	"github.com/Skotchmaster/order_portal/services/order/internal/transport"
)

func (h *OrderHTTP) ListArticles(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "article.list")

	articles, err := h.Articles.ListArticles(ctx)
	if err != nil {
		return fail(l, "list_articles_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"articles": articles})
}

func (h *OrderHTTP) SearchArticles(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "article.search")

	articles, err := h.Articles.SearchArticles(ctx, c.QueryParam("q"))
	if err != nil {
		return fail(l, "search_articles_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"articles": articles})
}

func (h *OrderHTTP) CreateArticle(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "article.create")

	var req transport.CreateArticleRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_article_error", "status", 400, "reason", "invalid body", "error", err)
		return apperr.Validation("invalid body", nil)
	}

	article, err := h.Articles.CreateArticle(ctx, req)
	if err != nil {
		return fail(l, "create_article_error", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"article": article})
}

func (h *OrderHTTP) UpdateArticle(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "article.update")

	var req transport.UpdateArticleRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_article_error", "status", 400, "reason", "invalid body", "error", err)
		return apperr.Validation("invalid body", nil)
	}

	article, err := h.Articles.UpdateArticle(ctx, c.Param("id"), req)
	if err != nil {
		return fail(l, "update_article_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"article": article})
}
