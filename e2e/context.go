// Package e2e drives a running gateway through the storefront session flows.
// Set GATEWAY_URL to the gateway's base URL to run it.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// TestContext holds one scenario's browser-like state: a cookie jar and the
// last response.
type TestContext struct {
	baseURL *url.URL
	client  *http.Client

	lastStatus  int
	lastBody    []byte
	lastHeaders http.Header
	email       string
}

// NewTestContext creates a context for the gateway at baseURL.
func NewTestContext(baseURL string) (*TestContext, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, err
	}
	tc := &TestContext{baseURL: u}
	return tc, tc.Reset()
}

// Reset forgets cookies and the last response.
func (tc *TestContext) Reset() error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	tc.client = &http.Client{Jar: jar, Timeout: 10 * time.Second}
	tc.lastStatus, tc.lastBody, tc.lastHeaders = 0, nil, nil
	return nil
}

func (tc *TestContext) POST(path string, body any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	return tc.do(http.MethodPost, path, reader, map[string]string{"Content-Type": "application/json"})
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) do(method, path string, body io.Reader, headers map[string]string) error {
	req, err := http.NewRequest(method, tc.baseURL.String()+path, body)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.lastStatus = resp.StatusCode
	tc.lastHeaders = resp.Header
	return nil
}

func (tc *TestContext) LastStatus() int { return tc.lastStatus }

func (tc *TestContext) LastHeader(name string) string { return tc.lastHeaders.Get(name) }

// LastSetCookie returns the named cookie set by the last response, or nil.
func (tc *TestContext) LastSetCookie(name string) *http.Cookie {
	resp := http.Response{Header: tc.lastHeaders}
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// GetResponseField reads a dotted path like "user.role" from the last JSON
// body.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var v any
	if err := json.Unmarshal(tc.lastBody, &v); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	for _, part := range strings.Split(field, ".") {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: not an object", field)
		}
		if v, ok = obj[part]; !ok {
			return nil, fmt.Errorf("field %q not found in %s", field, tc.lastBody)
		}
	}
	return v, nil
}

// Cookie returns a cookie currently held in the jar.
func (tc *TestContext) Cookie(name string) *http.Cookie {
	for _, c := range tc.client.Jar.Cookies(tc.baseURL) {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// SetCookie replaces a cookie in the jar, e.g. to present a forged token.
func (tc *TestContext) SetCookie(name, value string) {
	tc.client.Jar.SetCookies(tc.baseURL, []*http.Cookie{{Name: name, Value: value, Path: "/"}})
}

// UniqueEmail returns an address unique to this run, remembered for later
// steps.
func (tc *TestContext) UniqueEmail(prefix string) string {
	tc.email = fmt.Sprintf("%s+%d@example.com", prefix, time.Now().UnixNano())
	return tc.email
}

func (tc *TestContext) Email() string { return tc.email }
