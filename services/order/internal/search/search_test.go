package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/order_portal/services/order/internal/config"
	"github.com/Skotchmaster/order_portal/services/order/internal/models"
)

// fakeCluster speaks just enough of the elasticsearch REST API for the index.
type fakeCluster struct {
	mu      sync.Mutex
	docs    map[string]document
	queries []map[string]any
	fail    bool
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail && r.URL.Path != "/" {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"boom"}`)
		return
	}

	switch {
	case r.URL.Path == "/":
		_, _ = io.WriteString(w, `{"name":"fake","cluster_name":"test","version":{"number":"9.0.0","build_flavor":"default"},"tagline":"You Know, for Search"}`)
	case strings.HasPrefix(r.URL.Path, "/articles/_doc/"):
		var d document
		_ = json.NewDecoder(r.Body).Decode(&d)
		f.docs[strings.TrimPrefix(r.URL.Path, "/articles/_doc/")] = d
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	case r.URL.Path == "/articles/_search":
		var q map[string]any
		_ = json.NewDecoder(r.Body).Decode(&q)
		f.queries = append(f.queries, q)
		_, _ = io.WriteString(w, `{"hits":{"total":{"value":2},"hits":[{"_source":{"code":"B200"}},{"_source":{"code":"A100"}},{"_source":{}}]}}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{}`)
	}
}

func newIndex(t *testing.T) (*ESIndex, *fakeCluster) {
	t.Helper()

	fc := &fakeCluster{docs: map[string]document{}}
	srv := httptest.NewServer(fc)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), config.ESConfig{URL: srv.URL, Index: "articles"})
	require.NoError(t, err)
	return NewESIndex(client, "articles"), fc
}

func TestESIndex_IndexArticle(t *testing.T) {
	t.Parallel()

	idx, fc := newIndex(t)
	a := &models.Article{ID: uuid.New(), Code: "A100", Name: "Widget"}

	require.NoError(t, idx.IndexArticle(context.Background(), a))

	fc.mu.Lock()
	defer fc.mu.Unlock()
	require.Contains(t, fc.docs, "A100")
	assert.Equal(t, "Widget", fc.docs["A100"].Name)
	assert.Equal(t, a.ID.String(), fc.docs["A100"].ID)
}

func TestESIndex_SearchCodes(t *testing.T) {
	t.Parallel()

	idx, fc := newIndex(t)

	codes, err := idx.SearchCodes(context.Background(), "widg", 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"B200", "A100"}, codes)

	fc.mu.Lock()
	defer fc.mu.Unlock()
	require.Len(t, fc.queries, 1)
	mm := fc.queries[0]["query"].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "widg", mm["query"])
	assert.EqualValues(t, 20, fc.queries[0]["size"])
}

func TestESIndex_ErrorsSurface(t *testing.T) {
	t.Parallel()

	idx, fc := newIndex(t)
	fc.mu.Lock()
	fc.fail = true
	fc.mu.Unlock()

	_, err := idx.SearchCodes(context.Background(), "x", 5)
	assert.Error(t, err)
	assert.Error(t, idx.IndexArticle(context.Background(), &models.Article{Code: "A1"}))
}
