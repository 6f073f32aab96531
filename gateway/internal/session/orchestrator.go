// Package session keeps the browser session in httpOnly cookies and forwards
// authenticated calls to the backend services with a bearer token.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/order_portal/gateway/internal/proxy"
	"github.com/Skotchmaster/order_portal/pkg/apperr"
	"github.com/Skotchmaster/order_portal/pkg/authclient"
	"github.com/Skotchmaster/order_portal/pkg/logging"
)

const DefaultMaxBody = 1 << 20

type Identity interface {
	Login(ctx context.Context, email, password string) (*authclient.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*authclient.Session, error)
	Me(ctx context.Context, accessToken string) (*authclient.User, error)
}

type Upstream interface {
	Serve(w http.ResponseWriter, r *http.Request, reject proxy.RejectFunc) error
}

type Orchestrator struct {
	Identity Identity
	Secure   bool
	MaxBody  int64
	// Verify, when set, drops access tokens that fail a local signature check
	// so they are refreshed before being forwarded.
	Verify func(token string) error
}

// Forward sends the request upstream with the session's access token. A
// rejected token triggers one silent refresh and retry; a second rejection
// ends the session.
func (o *Orchestrator) Forward(c echo.Context, up Upstream) error {
	req := c.Request()
	l := logging.FromContext(req.Context()).With("handler", "session.Forward")

	access := readCookie(req, AccessCookie)
	refresh := readCookie(req, RefreshCookie)
	if access != "" && o.Verify != nil {
		if err := o.Verify(access); err != nil {
			l.Debug("access_cookie_rejected_locally", "error", err)
			access = ""
		}
	}
	if access == "" && refresh == "" {
		return apperr.Unauthorized("not signed in")
	}

	body, err := o.readBody(c)
	if err != nil {
		return err
	}

	refreshed := false
	if access == "" {
		s, err := o.refresh(c, refresh)
		if err != nil {
			return err
		}
		access, refreshed = s.Token, true
	}

	for {
		err := up.Serve(c.Response(), upstreamRequest(req, body, access), retryable)
		if err == nil {
			return nil
		}

		var rej *proxy.RejectedError
		if !errors.As(err, &rej) {
			l.Error("upstream_failed", "error", err)
			return apperr.New(http.StatusBadGateway, apperr.CodeInternal, "upstream service unavailable")
		}
		if refreshed || refresh == "" {
			l.Info("session_ended", "reason", "rejected_after_refresh", "status", rej.Status)
			o.ClearSession(c)
			return apperr.Unauthorized("session expired")
		}

		s, err := o.refresh(c, refresh)
		if err != nil {
			return err
		}
		access, refreshed = s.Token, true
	}
}

// CurrentUser resolves the signed-in user, refreshing once when the access
// token is missing or rejected. It returns nil without error when there is
// no usable session.
func (o *Orchestrator) CurrentUser(c echo.Context) (*authclient.User, error) {
	req := c.Request()
	ctx := req.Context()
	access := readCookie(req, AccessCookie)
	refresh := readCookie(req, RefreshCookie)

	if access != "" {
		u, err := o.Identity.Me(ctx, access)
		switch {
		case err == nil:
			return u, nil
		case errors.Is(err, authclient.ErrUnavailable):
			logging.FromContext(ctx).Warn("identity_unavailable", "error", err)
			return nil, apperr.AuthUnavailable()
		}
	}
	if refresh == "" {
		if access != "" {
			o.ClearSession(c)
		}
		return nil, nil
	}

	s, err := o.refresh(c, refresh)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusUnauthorized {
			return nil, nil
		}
		return nil, err
	}
	u := s.User
	return &u, nil
}

// Login exchanges credentials for a session and stores it in cookies.
func (o *Orchestrator) Login(c echo.Context, email, password string) (*authclient.User, error) {
	s, err := o.Identity.Login(c.Request().Context(), email, password)
	if err != nil {
		var se *authclient.StatusError
		switch {
		case errors.Is(err, authclient.ErrInvalidCredentials):
			return nil, apperr.InvalidCredentials()
		case errors.Is(err, authclient.ErrUserInactive):
			return nil, apperr.UserInactive()
		case errors.Is(err, authclient.ErrUnavailable):
			logging.FromContext(c.Request().Context()).Warn("identity_unavailable", "error", err)
			return nil, apperr.AuthUnavailable()
		case errors.As(err, &se):
			return nil, echo.NewHTTPError(se.Status, se.Body)
		default:
			return nil, err
		}
	}
	o.SetSession(c, s)
	u := s.User
	return &u, nil
}

// refresh rotates the pair. An identity outage keeps the cookies; any
// rejection clears them.
func (o *Orchestrator) refresh(c echo.Context, token string) (*authclient.Session, error) {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx)

	s, err := o.Identity.Refresh(ctx, token)
	if err == nil {
		o.SetSession(c, s)
		l.Info("session_refreshed", "user_id", s.User.ID)
		return s, nil
	}

	var se *authclient.StatusError
	switch {
	case errors.Is(err, authclient.ErrUnavailable):
		l.Warn("identity_unavailable", "error", err)
		return nil, apperr.AuthUnavailable()
	case errors.As(err, &se):
		return nil, echo.NewHTTPError(se.Status, se.Body)
	default:
		l.Info("session_ended", "reason", "refresh_rejected", "error", err)
		o.ClearSession(c)
		return nil, apperr.Unauthorized("session expired")
	}
}

func (o *Orchestrator) readBody(c echo.Context) ([]byte, error) {
	req := c.Request()
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	limit := o.MaxBody
	if limit <= 0 {
		limit = DefaultMaxBody
	}
	b, err := io.ReadAll(http.MaxBytesReader(c.Response(), req.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.New(http.StatusRequestEntityTooLarge, apperr.CodeValidation, "request body too large")
		}
		return nil, apperr.Validation("invalid body", nil)
	}
	return b, nil
}

func upstreamRequest(req *http.Request, body []byte, access string) *http.Request {
	out := req.Clone(req.Context())
	out.Header.Del("Cookie")
	out.Header.Set(echo.HeaderAuthorization, "Bearer "+access)
	if body == nil {
		out.Body = http.NoBody
		out.ContentLength = 0
		out.GetBody = nil
		return out
	}
	out.Body = io.NopCloser(bytes.NewReader(body))
	out.ContentLength = int64(len(body))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return out
}

// retryable reports whether the upstream refused the token itself rather
// than the action. A plain FORBIDDEN is an authorization answer and passes
// through.
func retryable(resp *http.Response) bool {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return true
	case http.StatusForbidden:
		return errorCode(resp) == apperr.CodeUserInactive
	}
	return false
}

// errorCode peeks at the JSON error body and leaves it readable.
func errorCode(resp *http.Response) string {
	if resp.Body == nil {
		return ""
	}
	head, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	resp.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), resp.Body), resp.Body}

	var b apperr.Body
	if err := json.Unmarshal(head, &b); err != nil {
		return ""
	}
	return b.Code
}
