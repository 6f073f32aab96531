package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/order_portal/pkg/authclient"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

func readCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (o *Orchestrator) sessionCookie(name, value string, expires time.Time) *http.Cookie {
	maxAge := int(time.Until(expires).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

// SetSession stores a freshly issued pair, replacing any session cookie
// already queued on the response.
func (o *Orchestrator) SetSession(c echo.Context, s *authclient.Session) {
	dropSessionCookies(c.Response().Header())
	c.SetCookie(o.sessionCookie(AccessCookie, s.Token, s.ExpiresAt))
	c.SetCookie(o.sessionCookie(RefreshCookie, s.RefreshToken, s.RefreshExpiresAt))
}

func (o *Orchestrator) ClearSession(c echo.Context) {
	dropSessionCookies(c.Response().Header())
	for _, name := range []string{AccessCookie, RefreshCookie} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   o.Secure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
}

func dropSessionCookies(h http.Header) {
	values := h.Values(echo.HeaderSetCookie)
	if len(values) == 0 {
		return
	}
	kept := values[:0:0]
	for _, v := range values {
		if strings.HasPrefix(v, AccessCookie+"=") || strings.HasPrefix(v, RefreshCookie+"=") {
			continue
		}
		kept = append(kept, v)
	}
	h.Del(echo.HeaderSetCookie)
	for _, v := range kept {
		h.Add(echo.HeaderSetCookie, v)
	}
}
