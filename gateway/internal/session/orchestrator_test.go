package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/order_portal/gateway/internal/proxy"
	"github.com/Skotchmaster/order_portal/gateway/internal/session"
	"github.com/Skotchmaster/order_portal/pkg/apperr"
	"github.com/Skotchmaster/order_portal/pkg/authclient"
)

type fakeIdentity struct {
	mu           sync.Mutex
	refreshCalls int
	refreshed    []string

	login   func(email, password string) (*authclient.Session, error)
	refresh func(token string) (*authclient.Session, error)
	me      func(token string) (*authclient.User, error)
}

func (f *fakeIdentity) Login(_ context.Context, email, password string) (*authclient.Session, error) {
	return f.login(email, password)
}

func (f *fakeIdentity) Refresh(_ context.Context, token string) (*authclient.Session, error) {
	f.mu.Lock()
	f.refreshCalls++
	f.refreshed = append(f.refreshed, token)
	f.mu.Unlock()
	return f.refresh(token)
}

func (f *fakeIdentity) Me(_ context.Context, token string) (*authclient.User, error) {
	return f.me(token)
}

func (f *fakeIdentity) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

func newSession(token, refresh string) *authclient.Session {
	return &authclient.Session{
		Token:            token,
		RefreshToken:     refresh,
		ExpiresAt:        time.Now().Add(15 * time.Minute),
		RefreshExpiresAt: time.Now().Add(24 * time.Hour),
		User:             authclient.User{ID: "u-1", Name: "Ada", Email: "ada@example.com", Role: "user", Status: "active"},
	}
}

func rotateTo(token string) func(string) (*authclient.Session, error) {
	return func(string) (*authclient.Session, error) { return newSession(token, "refresh-2"), nil }
}

type hit struct {
	auth   string
	cookie string
	body   string
}

type upstream struct {
	mu   sync.Mutex
	hits []hit
}

// newUpstream serves 200 to the tokens in valid and answers everyone else
// with the given status and error code.
func newUpstream(t *testing.T, valid map[string]bool, status int, code string) (*upstream, *proxy.Proxy) {
	t.Helper()
	u := &upstream{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		u.mu.Lock()
		u.hits = append(u.hits, hit{auth: r.Header.Get("Authorization"), cookie: r.Header.Get("Cookie"), body: string(b)})
		u.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if valid[token] {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"orders":[]}`))
			return
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(apperr.Body{Code: code, Message: "rejected"})
	}))
	t.Cleanup(srv.Close)

	p, err := proxy.New(srv.URL, "")
	require.NoError(t, err)
	return u, p
}

func (u *upstream) all() []hit {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]hit(nil), u.hits...)
}

func newContext(method, target, body string, cookies map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for name, value := range cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func cookiesNamed(rec *httptest.ResponseRecorder, name string) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func requireCode(t *testing.T, err error, status int, code string) {
	t.Helper()
	require.Error(t, err)
	gotStatus, body := apperr.BodyOf(err)
	assert.Equal(t, status, gotStatus)
	assert.Equal(t, code, body.Code)
}

func requireCleared(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	for _, name := range []string{session.AccessCookie, session.RefreshCookie} {
		got := cookiesNamed(rec, name)
		require.Len(t, got, 1, name)
		assert.Empty(t, got[0].Value)
		assert.Negative(t, got[0].MaxAge)
	}
}

func TestForward_NoCredentials(t *testing.T) {
	id := &fakeIdentity{}
	_, p := newUpstream(t, nil, http.StatusUnauthorized, apperr.CodeTokenInvalid)
	o := &session.Orchestrator{Identity: id}

	c, _ := newContext(http.MethodGet, "/api/orders", "", nil)
	requireCode(t, o.Forward(c, p), http.StatusUnauthorized, apperr.CodeUnauthorized)
	assert.Zero(t, id.calls())
}

func TestForward_ValidAccessToken(t *testing.T) {
	id := &fakeIdentity{}
	up, p := newUpstream(t, map[string]bool{"good": true}, http.StatusUnauthorized, apperr.CodeTokenInvalid)
	o := &session.Orchestrator{Identity: id}

	c, rec := newContext(http.MethodPost, "/api/orders", `{"quantity":1}`, map[string]string{
		session.AccessCookie:  "good",
		session.RefreshCookie: "refresh-1",
	})
	require.NoError(t, o.Forward(c, p))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"orders":[]}`, rec.Body.String())
	hits := up.all()
	require.Len(t, hits, 1)
	assert.Equal(t, "Bearer good", hits[0].auth)
	assert.Empty(t, hits[0].cookie, "session cookies must not reach the services")
	assert.Equal(t, `{"quantity":1}`, hits[0].body)
	assert.Zero(t, id.calls())
}

func TestForward_RejectedTokenRefreshesOnceAndRetries(t *testing.T) {
	id := &fakeIdentity{refresh: rotateTo("fresh")}
	up, p := newUpstream(t, map[string]bool{"fresh": true}, http.StatusUnauthorized, apperr.CodeTokenInvalid)
	o := &session.Orchestrator{Identity: id, Secure: true}

	c, rec := newContext(http.MethodPost, "/api/orders", `{"quantity":2}`, map[string]string{
		session.AccessCookie:  "stale",
		session.RefreshCookie: "refresh-1",
	})
	require.NoError(t, o.Forward(c, p))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, id.calls())
	assert.Equal(t, []string{"refresh-1"}, id.refreshed)

	hits := up.all()
	require.Len(t, hits, 2)
	assert.Equal(t, "Bearer stale", hits[0].auth)
	assert.Equal(t, "Bearer fresh", hits[1].auth)
	assert.Equal(t, `{"quantity":2}`, hits[1].body, "body is replayed on retry")

	access := cookiesNamed(rec, session.AccessCookie)
	require.Len(t, access, 1)
	assert.Equal(t, "fresh", access[0].Value)
	assert.True(t, access[0].HttpOnly)
	assert.True(t, access[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, access[0].SameSite)
	refresh := cookiesNamed(rec, session.RefreshCookie)
	require.Len(t, refresh, 1)
	assert.Equal(t, "refresh-2", refresh[0].Value)
}

func TestForward_SecondRejectionEndsSession(t *testing.T) {
	id := &fakeIdentity{refresh: rotateTo("also-bad")}
	up, p := newUpstream(t, nil, http.StatusUnauthorized, apperr.CodeTokenInvalid)
	o := &session.Orchestrator{Identity: id}

	c, rec := newContext(http.MethodGet, "/api/orders", "", map[string]string{
		session.AccessCookie:  "stale",
		session.RefreshCookie: "refresh-1",
	})
	requireCode(t, o.Forward(c, p), http.StatusUnauthorized, apperr.CodeUnauthorized)

	assert.Equal(t, 1, id.calls(), "exactly one refresh attempt")
	assert.Len(t, up.all(), 2)
	requireCleared(t, rec)
}

func TestForward_RefreshRejectedEndsSession(t *testing.T) {
	id := &fakeIdentity{refresh: func(string) (*authclient.Session, error) { return nil, authclient.ErrTokenInvalid }}
	up, p := newUpstream(t, nil, http.StatusUnauthorized, apperr.CodeTokenInvalid)
	o := &session.Orchestrator{Identity: id}

	c, rec := newContext(http.MethodGet, "/api/orders", "", map[string]string{
		session.AccessCookie:  "stale",
		session.RefreshCookie: "refresh-1",
	})
	requireCode(t, o.Forward(c, p), http.StatusUnauthorized, apperr.CodeUnauthorized)
	assert.Len(t, up.all(), 1)
	requireCleared(t, rec)
}

func TestForward_IdentityOutageKeepsCookies(t *testing.T) {
	id := &fakeIdentity{refresh: func(string) (*authclient.Session, error) {
		return nil, errors.Join(authclient.ErrUnavailable, errors.New("dial tcp: connection refused"))
	}}
	_, p := newUpstream(t, nil, http.StatusUnauthorized, apperr.CodeTokenInvalid)
	o := &session.Orchestrator{Identity: id}

	c, rec := newContext(http.MethodGet, "/api/orders", "", map[string]string{
		session.AccessCookie:  "stale",
		session.RefreshCookie: "refresh-1",
	})
	requireCode(t, o.Forward(c, p), http.StatusServiceUnavailable, apperr.CodeAuthUnavailable)
	assert.Empty(t, rec.Result().Cookies(), "an outage is not a logout")
}

func TestForward_ForbiddenPassesThrough(t *testing.T) {
	id := &fakeIdentity{}
	_, p := newUpstream(t, nil, http.StatusForbidden, apperr.CodeForbidden)
	o := &session.Orchestrator{Identity: id}

	c, rec := newContext(http.MethodPost, "/api/articles", `{"code":"A1"}`, map[string]string{
		session.AccessCookie:  "user-token",
		session.RefreshCookie: "refresh-1",
	})
	require.NoError(t, o.Forward(c, p))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	var body apperr.Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apperr.CodeForbidden, body.Code)
	assert.Zero(t, id.calls())
}

func TestForward_InactiveUserRetriesThenEnds(t *testing.T) {
	id := &fakeIdentity{refresh: func(string) (*authclient.Session, error) { return nil, authclient.ErrUserInactive }}
	up, p := newUpstream(t, nil, http.StatusForbidden, apperr.CodeUserInactive)
	o := &session.Orchestrator{Identity: id}

	c, rec := newContext(http.MethodGet, "/api/orders", "", map[string]string{
		session.AccessCookie:  "token",
		session.RefreshCookie: "refresh-1",
	})
	requireCode(t, o.Forward(c, p), http.StatusUnauthorized, apperr.CodeUnauthorized)
	assert.Equal(t, 1, id.calls())
	assert.Len(t, up.all(), 1)
	requireCleared(t, rec)
}

func TestForward_RefreshOnlyExchangesFirst(t *testing.T) {
	id := &fakeIdentity{refresh: rotateTo("fresh")}
	up, p := newUpstream(t, map[string]bool{"fresh": true}, http.StatusUnauthorized, apperr.CodeTokenInvalid)
	o := &session.Orchestrator{Identity: id}

	c, rec := newContext(http.MethodGet, "/api/orders", "", map[string]string{session.RefreshCookie: "refresh-1"})
	require.NoError(t, o.Forward(c, p))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, id.calls())
	hits := up.all()
	require.Len(t, hits, 1)
	assert.Equal(t, "Bearer fresh", hits[0].auth)
}

func TestForward_NoRefreshCookie_RejectionEndsSession(t *testing.T) {
	id := &fakeIdentity{}
	_, p := newUpstream(t, nil, http.StatusUnauthorized, apperr.CodeTokenInvalid)
	o := &session.Orchestrator{Identity: id}

	c, rec := newContext(http.MethodGet, "/api/orders", "", map[string]string{session.AccessCookie: "stale"})
	requireCode(t, o.Forward(c, p), http.StatusUnauthorized, apperr.CodeUnauthorized)
	assert.Zero(t, id.calls())
	requireCleared(t, rec)
}

func TestForward_LocalVerificationFailureRefreshesFirst(t *testing.T) {
	id := &fakeIdentity{refresh: rotateTo("fresh")}
	up, p := newUpstream(t, map[string]bool{"fresh": true, "forged": true}, http.StatusUnauthorized, apperr.CodeTokenInvalid)
	o := &session.Orchestrator{
		Identity: id,
		Verify: func(token string) error {
			if token == "forged" {
				return errors.New("bad signature")
			}
			return nil
		},
	}

	c, _ := newContext(http.MethodGet, "/api/orders", "", map[string]string{
		session.AccessCookie:  "forged",
		session.RefreshCookie: "refresh-1",
	})
	require.NoError(t, o.Forward(c, p))

	hits := up.all()
	require.Len(t, hits, 1)
	assert.Equal(t, "Bearer fresh", hits[0].auth)
}

func TestForward_UpstreamDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, err := proxy.New(url, "")
	require.NoError(t, err)
	o := &session.Orchestrator{Identity: &fakeIdentity{}}

	c, _ := newContext(http.MethodGet, "/api/orders", "", map[string]string{session.AccessCookie: "good"})
	requireCode(t, o.Forward(c, p), http.StatusBadGateway, apperr.CodeInternal)
}

func TestForward_BodyTooLarge(t *testing.T) {
	_, p := newUpstream(t, map[string]bool{"good": true}, http.StatusUnauthorized, apperr.CodeTokenInvalid)
	o := &session.Orchestrator{Identity: &fakeIdentity{}, MaxBody: 8}

	c, _ := newContext(http.MethodPost, "/api/orders", `{"customerName":"too long"}`, map[string]string{session.AccessCookie: "good"})
	requireCode(t, o.Forward(c, p), http.StatusRequestEntityTooLarge, apperr.CodeValidation)
}

func TestCurrentUser(t *testing.T) {
	ada := &authclient.User{ID: "u-1", Email: "ada@example.com", Status: "active"}

	t.Run("anonymous", func(t *testing.T) {
		o := &session.Orchestrator{Identity: &fakeIdentity{}}
		c, rec := newContext(http.MethodGet, "/api/session", "", nil)
		u, err := o.CurrentUser(c)
		require.NoError(t, err)
		assert.Nil(t, u)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("valid access token", func(t *testing.T) {
		id := &fakeIdentity{me: func(string) (*authclient.User, error) { return ada, nil }}
		o := &session.Orchestrator{Identity: id}
		c, _ := newContext(http.MethodGet, "/api/session", "", map[string]string{session.AccessCookie: "good"})
		u, err := o.CurrentUser(c)
		require.NoError(t, err)
		assert.Equal(t, ada, u)
		assert.Zero(t, id.calls())
	})

	t.Run("expired access token is refreshed", func(t *testing.T) {
		id := &fakeIdentity{
			me:      func(string) (*authclient.User, error) { return nil, authclient.ErrTokenInvalid },
			refresh: rotateTo("fresh"),
		}
		o := &session.Orchestrator{Identity: id}
		c, rec := newContext(http.MethodGet, "/api/session", "", map[string]string{
			session.AccessCookie:  "stale",
			session.RefreshCookie: "refresh-1",
		})
		u, err := o.CurrentUser(c)
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, "u-1", u.ID)
		assert.Equal(t, "fresh", cookiesNamed(rec, session.AccessCookie)[0].Value)
	})

	t.Run("rejected without refresh token", func(t *testing.T) {
		id := &fakeIdentity{me: func(string) (*authclient.User, error) { return nil, authclient.ErrUserInactive }}
		o := &session.Orchestrator{Identity: id}
		c, rec := newContext(http.MethodGet, "/api/session", "", map[string]string{session.AccessCookie: "token"})
		u, err := o.CurrentUser(c)
		require.NoError(t, err)
		assert.Nil(t, u)
		requireCleared(t, rec)
	})

	t.Run("refresh rejected", func(t *testing.T) {
		id := &fakeIdentity{refresh: func(string) (*authclient.Session, error) { return nil, authclient.ErrTokenInvalid }}
		o := &session.Orchestrator{Identity: id}
		c, rec := newContext(http.MethodGet, "/api/session", "", map[string]string{session.RefreshCookie: "refresh-1"})
		u, err := o.CurrentUser(c)
		require.NoError(t, err)
		assert.Nil(t, u)
		requireCleared(t, rec)
	})

	t.Run("identity outage", func(t *testing.T) {
		id := &fakeIdentity{me: func(string) (*authclient.User, error) { return nil, authclient.ErrUnavailable }}
		o := &session.Orchestrator{Identity: id}
		c, rec := newContext(http.MethodGet, "/api/session", "", map[string]string{session.AccessCookie: "good"})
		_, err := o.CurrentUser(c)
		requireCode(t, err, http.StatusServiceUnavailable, apperr.CodeAuthUnavailable)
		assert.Empty(t, rec.Result().Cookies())
	})
}

func TestLogin(t *testing.T) {
	id := &fakeIdentity{login: func(email, password string) (*authclient.Session, error) {
		switch {
		case email == "ada@example.com" && password == "Secret123":
			return newSession("access-1", "refresh-1"), nil
		case email == "off@example.com":
			return nil, authclient.ErrUserInactive
		case email == "busy@example.com":
			return nil, &authclient.StatusError{Status: http.StatusTooManyRequests, Body: apperr.Body{Code: apperr.CodeRateLimited, Message: "slow down"}}
		case email == "down@example.com":
			return nil, authclient.ErrUnavailable
		}
		return nil, authclient.ErrInvalidCredentials
	}}
	o := &session.Orchestrator{Identity: id}

	c, rec := newContext(http.MethodPost, "/api/auth/login", "", nil)
	u, err := o.Login(c, "ada@example.com", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	access := cookiesNamed(rec, session.AccessCookie)
	require.Len(t, access, 1)
	assert.Equal(t, "access-1", access[0].Value)
	assert.True(t, access[0].HttpOnly)
	assert.Positive(t, access[0].MaxAge)
	assert.Equal(t, "refresh-1", cookiesNamed(rec, session.RefreshCookie)[0].Value)

	tests := []struct {
		email  string
		status int
		code   string
	}{
		{"ada@example.com", http.StatusUnauthorized, apperr.CodeInvalidCreds},
		{"off@example.com", http.StatusForbidden, apperr.CodeUserInactive},
		{"busy@example.com", http.StatusTooManyRequests, apperr.CodeRateLimited},
		{"down@example.com", http.StatusServiceUnavailable, apperr.CodeAuthUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			c, rec := newContext(http.MethodPost, "/api/auth/login", "", nil)
			_, err := o.Login(c, tt.email, "wrong")
			requireCode(t, err, tt.status, tt.code)
			assert.Empty(t, rec.Result().Cookies())
		})
	}
}
