// Package gateway is the public session gateway. It relays /api requests to
// the backend, passing cookies through in both directions, and enforces the
// CORS allow-list before anything reaches the backend.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jwelary/internal/platform/metrics"
	"jwelary/pkg/platform/httputil"
	"jwelary/pkg/platform/middleware/request"
	"jwelary/pkg/requestcontext"
)

// forwardedRequestHeaders are copied verbatim to the backend.
var forwardedRequestHeaders = []string{
	"Cookie",
	"Authorization",
	"Content-Type",
	"User-Agent",
	request.HeaderRequestID,
}

// Relay forwards one request to the backend and copies the response back.
type Relay struct {
	backend *url.URL
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewRelay builds a relay for backendURL. timeout bounds each upstream call,
// including reading the response body.
func NewRelay(backendURL string, timeout time.Duration, logger *slog.Logger, m *metrics.Metrics) (*Relay, error) {
	u, err := url.Parse(backendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q", backendURL)
	}
	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
	}
	return &Relay{
		backend: u,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:  logger,
		metrics: m,
	}, nil
}

// Handler relays to the same path with the /api prefix removed. op names the
// operation in errors and metrics. noStore marks the response uncacheable.
func (rl *Relay) Handler(op string, noStore bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		start := time.Now()

		if noStore {
			w.Header().Set("Cache-Control", "no-store")
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, httputil.MaxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				httputil.WriteErrorStatus(w, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
			httputil.WriteErrorStatus(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		resp, err := rl.forward(ctx, r, body)
		if err != nil {
			rl.metrics.ObserveUpstream(op, "error", start)
			rl.logger.ErrorContext(ctx, "upstream request failed",
				"op", op,
				"error", err,
				"request_id", request.GetRequestID(ctx),
			)
			httputil.WriteErrorStatus(w, http.StatusBadGateway, "Upstream "+op+" failed")
			return
		}
		defer resp.Body.Close()

		copyResponseHeaders(w.Header(), resp.Header)
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			rl.logger.WarnContext(ctx, "failed to relay upstream body", "op", op, "error", err)
		}
		rl.metrics.ObserveUpstream(op, strconv.Itoa(resp.StatusCode), start)
	}
}

func (rl *Relay) forward(ctx context.Context, r *http.Request, body []byte) (*http.Response, error) {
	target := *rl.backend
	target.Path = strings.TrimSuffix(rl.backend.Path, "/") + strings.TrimPrefix(r.URL.Path, "/api")
	target.RawQuery = r.URL.RawQuery

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	out, err := http.NewRequestWithContext(ctx, r.Method, target.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	for _, name := range forwardedRequestHeaders {
		for _, v := range r.Header.Values(name) {
			out.Header.Add(name, v)
		}
	}
	if out.Header.Get(request.HeaderRequestID) == "" {
		if id := request.GetRequestID(ctx); id != "" {
			out.Header.Set(request.HeaderRequestID, id)
		}
	}
	if ip := requestcontext.ClientIP(ctx); ip != "" && ip != "unknown" {
		out.Header.Set("X-Forwarded-For", ip)
	}

	return rl.client.Do(out)
}

func copyResponseHeaders(dst, src http.Header) {
	if ct := src.Get("Content-Type"); ct != "" {
		dst.Set("Content-Type", ct)
	}
	for _, c := range src.Values("Set-Cookie") {
		dst.Add("Set-Cookie", c)
	}
	if id := src.Get(request.HeaderRequestID); id != "" {
		dst.Set(request.HeaderRequestID, id)
	}
	if loc := src.Get("Location"); loc != "" {
		dst.Set("Location", loc)
	}
}
