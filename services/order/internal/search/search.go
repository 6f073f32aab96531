// Package search keeps an elasticsearch index of the article catalog.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/Skotchmaster/order_portal/services/order/internal/config"
	"github.com/Skotchmaster/order_portal/services/order/internal/models"
)

type document struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// NewClient connects and checks the cluster answers.
func NewClient(ctx context.Context, cfg config.ESConfig) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch info: %s", res.Status())
	}
	return client, nil
}

type ESIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewESIndex(client *elasticsearch.Client, index string) *ESIndex {
	return &ESIndex{client: client, index: index}
}

// IndexArticle upserts the article under its code.
func (x *ESIndex) IndexArticle(ctx context.Context, a *models.Article) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(document{ID: a.ID.String(), Code: a.Code, Name: a.Name}); err != nil {
		return fmt.Errorf("encode article: %w", err)
	}

	res, err := x.client.Index(
		x.index,
		&buf,
		x.client.Index.WithContext(ctx),
		x.client.Index.WithDocumentID(a.Code),
		x.client.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("index article: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index article: %s: %s", res.Status(), readError(res.Body))
	}
	return nil
}

// SearchCodes returns matching article codes, best match first.
func (x *ESIndex) SearchCodes(ctx context.Context, query string, size int) ([]string, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"code^2", "name"},
				"fuzziness": "AUTO",
			},
		},
		"size":    size,
		"_source": []string{"code"},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := x.client.Search(
		x.client.Search.WithContext(ctx),
		x.client.Search.WithIndex(x.index),
		x.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search: %s: %s", res.Status(), readError(res.Body))
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	codes := make([]string, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		if h.Source.Code != "" {
			codes = append(codes, h.Source.Code)
		}
	}
	return codes, nil
}

func readError(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}
