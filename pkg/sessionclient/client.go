// Package sessionclient is a Go client for the storefront session API, plus
// the client-side idle timeout that signs a user out after inactivity.
package sessionclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	jwttoken "jwelary/internal/jwt_token"
)

const (
	accessCookieName = "auth-token"
	defaultTimeout   = 10 * time.Second
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// User is the signed-in user as the API reports it.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type userEnvelope struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

// Client talks to the gateway's /api surface. Session cookies live in its
// cookie jar.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	clock   func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each API call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithClock sets the clock used to judge access token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.clock = now
		}
	}
}

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.http.Transport = rt }
}

// New creates a client for the gateway at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid gateway URL %q", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	c := &Client{
		base:    u,
		http:    &http.Client{Jar: jar},
		timeout: defaultTimeout,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Register(ctx context.Context, email, password, name string) (User, error) {
	var out userEnvelope
	err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	}, &out)
	return out.User, err
}

// Login stores the session cookies in the jar.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var out userEnvelope
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	return out.User, err
}

// Logout always clears the local session, even when the call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.clearSession()
	return err
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var out User
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out)
	return out, err
}

// Refresh exchanges the refresh cookie for a new access cookie.
func (c *Client) Refresh(ctx context.Context) (User, error) {
	var out userEnvelope
	err := c.do(ctx, http.MethodPost, "/api/auth/refresh", nil, &out)
	return out.User, err
}

// AccessToken returns the access token in the jar, or "".
func (c *Client) AccessToken() string {
	for _, ck := range c.http.Jar.Cookies(c.base) {
		if ck.Name == accessCookieName {
			return ck.Value
		}
	}
	return ""
}

// AccessTokenExpiringSoon reports whether the access token is missing or
// close to expiry.
func (c *Client) AccessTokenExpiringSoon() bool {
	return jwttoken.IsExpiringSoon(c.AccessToken(), c.clock())
}

func (c *Client) clearSession() {
	jar, err := cookiejar.New(nil)
	if err == nil {
		c.http.Jar = jar
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
			apiErr.Message = envelope.Error
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
