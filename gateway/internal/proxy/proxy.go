// Package proxy forwards gateway requests to the backend services.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/Skotchmaster/order_portal/pkg/apperr"
)

var errRejected = errors.New("upstream response rejected")

// RejectFunc inspects an upstream response before anything is written to the
// client. Returning true discards the response.
type RejectFunc func(resp *http.Response) bool

// RejectedError reports a response discarded by a RejectFunc.
type RejectedError struct {
	Status int
}

func (e *RejectedError) Error() string {
	return "upstream rejected the request with status " + http.StatusText(e.Status)
}

type outcome struct {
	reject   RejectFunc
	rejected int
	err      error
}

type outcomeKey struct{}

type Proxy struct {
	rp *httputil.ReverseProxy
}

func New(target, stripPrefix string) (*Proxy, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("proxy target must be an absolute URL: " + target)
	}

	baseTransport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 60 * time.Second,
		}).DialContext,
		MaxIdleConns:          200,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	p := httputil.NewSingleHostReverseProxy(u)
	p.Transport = baseTransport

	origDirector := p.Director
	p.Director = func(req *http.Request) {
		originalHost := req.Host
		originalProto := "http"
		if req.TLS != nil {
			originalProto = "https"
		} else if xf := req.Header.Get("X-Forwarded-Proto"); xf != "" {
			originalProto = xf
		}

		origDirector(req)

		if stripPrefix != "" && strings.HasPrefix(req.URL.Path, stripPrefix) {
			req.URL.Path = strings.TrimPrefix(req.URL.Path, stripPrefix)
			if rp := req.URL.RawPath; rp != "" && strings.HasPrefix(rp, stripPrefix) {
				req.URL.RawPath = strings.TrimPrefix(rp, stripPrefix)
			}
		}

		if req.Header.Get("X-Forwarded-Proto") == "" {
			req.Header.Set("X-Forwarded-Proto", originalProto)
		}
		if req.Header.Get("X-Forwarded-Host") == "" && originalHost != "" {
			req.Header.Set("X-Forwarded-Host", originalHost)
		}
	}

	p.ModifyResponse = func(resp *http.Response) error {
		o, ok := resp.Request.Context().Value(outcomeKey{}).(*outcome)
		if ok && o.reject != nil && o.reject(resp) {
			o.rejected = resp.StatusCode
			return errRejected
		}
		return nil
	}
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		if o, ok := r.Context().Value(outcomeKey{}).(*outcome); ok {
			if !errors.Is(err, errRejected) {
				o.err = err
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(apperr.Body{Code: apperr.CodeInternal, Message: "upstream service unavailable"})
	}

	p.FlushInterval = 100 * time.Millisecond

	return &Proxy{rp: p}, nil
}

// Serve forwards r and streams the answer to w. A transport failure or a
// rejected response is returned instead of being written, so the caller can
// retry or render its own error.
func (p *Proxy) Serve(w http.ResponseWriter, r *http.Request, reject RejectFunc) error {
	o := &outcome{reject: reject}
	p.rp.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), outcomeKey{}, o)))
	switch {
	case o.rejected != 0:
		return &RejectedError{Status: o.rejected}
	case o.err != nil:
		return o.err
	}
	return nil
}

// ServeHTTP forwards without inspection.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.rp.ServeHTTP(w, r)
}
