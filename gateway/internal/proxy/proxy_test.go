package proxy

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsRelativeTarget(t *testing.T) {
	_, err := New("localhost:4002", "")
	require.Error(t, err)
}

func TestServe_ForwardsAndStripsPrefix(t *testing.T) {
	var gotPath, gotProto, gotHost string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotProto = r.Header.Get("X-Forwarded-Proto")
		gotHost = r.Header.Get("X-Forwarded-Host")
		w.Header().Set("X-Upstream", "order")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, "created")
	}))
	defer srv.Close()

	p, err := New(srv.URL, "/v1")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "http://portal.test/v1/api/orders", nil)
	require.NoError(t, p.Serve(rec, req, nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "created", rec.Body.String())
	assert.Equal(t, "order", rec.Header().Get("X-Upstream"))
	assert.Equal(t, "/api/orders", gotPath)
	assert.Equal(t, "http", gotProto)
	assert.Equal(t, "portal.test", gotHost)
}

func TestServe_RejectedResponseIsNotWritten(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream", "order")
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, err := New(srv.URL, "")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = p.Serve(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil), func(resp *http.Response) bool {
		return resp.StatusCode == http.StatusUnauthorized
	})

	var rej *RejectedError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, http.StatusUnauthorized, rej.Status)
	assert.Empty(t, rec.Header().Get("X-Upstream"))
	assert.Zero(t, rec.Body.Len())
}

func TestServe_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()

	p, err := New(target, "")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = p.Serve(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil), nil)
	require.Error(t, err)
	assert.Zero(t, rec.Body.Len())
}

func TestServeHTTP_WritesBadGateway(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()

	p, err := New(target, "")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"code":"INTERNAL_ERROR","message":"upstream service unavailable"}`, rec.Body.String())
}
