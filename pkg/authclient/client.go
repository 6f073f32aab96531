package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Skotchmaster/order_portal/pkg/apperr"
)

var (
	ErrTokenInvalid       = errors.New("authclient: token invalid")
	ErrUserInactive       = errors.New("authclient: user inactive")
	ErrInvalidCredentials = errors.New("authclient: invalid credentials")
	ErrUnavailable        = errors.New("authclient: identity service unavailable")
)

// StatusError carries any other rejection so callers can pass it through.
type StatusError struct {
	Status int
	Body   apperr.Body
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("authclient: status %d: %s", e.Status, e.Body.Message)
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) IsAdmin() bool  { return u.Role == "admin" }
func (u User) IsActive() bool { return u.Status == "active" }

type Session struct {
	Token            string    `json:"token"`
	RefreshToken     string    `json:"refreshToken"`
	ExpiresAt        time.Time `json:"expiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
	User             User      `json:"user"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(authServiceURL string) *Client {
	return NewClientWithHTTP(authServiceURL, &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	})
}

func NewClientWithHTTP(authServiceURL string, hc *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(authServiceURL, "/"),
		httpClient: hc,
	}
}

// Me asks the identity service who owns the token. Any answer other than
// 200, 401 or 403 is reported as ErrUnavailable.
func (c *Client) Me(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/me", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, ErrTokenInvalid
	case http.StatusForbidden:
		return nil, ErrUserInactive
	default:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out struct {
		User *User `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.User == nil || out.User.ID == "" {
		return nil, fmt.Errorf("%w: malformed identity response", ErrUnavailable)
	}
	return out.User, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	return c.postSession(ctx, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, ErrInvalidCredentials)
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	return c.postSession(ctx, "/api/auth/refresh", map[string]string{
		"refreshToken": refreshToken,
	}, ErrTokenInvalid)
}

func (c *Client) postSession(ctx context.Context, path string, payload any, unauthorized error) (*Session, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, unauthorized
	case resp.StatusCode == http.StatusForbidden:
		return nil, ErrUserInactive
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		return nil, &StatusError{Status: resp.StatusCode, Body: readBody(resp.Body, resp.StatusCode)}
	}

	var s Session
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil || s.Token == "" {
		return nil, fmt.Errorf("%w: malformed session response", ErrUnavailable)
	}
	return &s, nil
}

func readBody(r io.Reader, status int) apperr.Body {
	var b apperr.Body
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&b); err != nil || b.Code == "" {
		return apperr.Body{Code: apperr.CodeForStatus(status), Message: http.StatusText(status)}
	}
	return b
}
