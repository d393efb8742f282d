package gateway

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"jwelary/internal/platform/logger"
	"jwelary/pkg/platform/middleware/cors"
	"jwelary/pkg/testutil"
)

type upstreamCall struct {
	method string
	path   string
	query  string
	body   string
	cookie string
	reqID  string
}

type GatewaySuite struct {
	suite.Suite
	backend *httptest.Server
	hits    atomic.Int32
	last    atomic.Pointer[upstreamCall]
	router  http.Handler
}

func TestGatewaySuite(t *testing.T) {
	suite.Run(t, new(GatewaySuite))
}

func (s *GatewaySuite) SetupTest() {
	s.hits.Store(0)
	s.backend = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		body, _ := io.ReadAll(r.Body)
		s.last.Store(&upstreamCall{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			body:   string(body),
			cookie: r.Header.Get("Cookie"),
			reqID:  r.Header.Get("X-Request-ID"),
		})
		switch r.URL.Path {
		case "/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "auth-token", Value: "a", HttpOnly: true, MaxAge: 7200})
			http.SetCookie(w, &http.Cookie{Name: "refresh-token", Value: "r", HttpOnly: true, MaxAge: 604800})
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"message":"Login successful"}`))
		case "/auth/me":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Authentication required"}`))
		case "/redirect":
			http.Redirect(w, r, "/elsewhere", http.StatusFound)
		default:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	s.T().Cleanup(s.backend.Close)

	relay, err := NewRelay(s.backend.URL, 2*time.Second, logger.Discard(), nil)
	s.Require().NoError(err)
	s.router = NewRouter(relay, cors.NewOriginPolicy([]string{"https://shop.jwelary.com"}), logger.Discard(), nil)
}

func (s *GatewaySuite) TestRelaysLoginCookiesVerbatim() {
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/api/auth/login", `{"email":"a@b.co","password":"x"}`)
	req.Header.Set("Cookie", "existing=1")
	req.Header.Set("X-Request-ID", "req-42")
	rr := testutil.DoRequest(s.router, req)

	s.Equal(http.StatusOK, rr.Code)
	s.Equal("no-store", rr.Header().Get("Cache-Control"))
	s.Equal("application/json", rr.Header().Get("Content-Type"))
	cookies := rr.Header().Values("Set-Cookie")
	s.Require().Len(cookies, 2)
	s.Contains(cookies[0], "auth-token=a")
	s.Contains(cookies[1], "refresh-token=r")
	s.JSONEq(`{"message":"Login successful"}`, rr.Body.String())

	call := s.last.Load()
	s.Equal(http.MethodPost, call.method)
	s.Equal("/auth/login", call.path)
	s.Equal(`{"email":"a@b.co","password":"x"}`, call.body)
	s.Equal("existing=1", call.cookie)
	s.Equal("req-42", call.reqID)
}

func (s *GatewaySuite) TestRelaysUpstreamRejectionsUnchanged() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/auth/me"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "Authentication required")
}

func (s *GatewaySuite) TestProductsKeepQueryAndAllowCaching() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/products?category=rings&featured=true"))
	s.Equal(http.StatusOK, rr.Code)
	s.Empty(rr.Header().Get("Cache-Control"))

	call := s.last.Load()
	s.Equal("/products", call.path)
	s.Equal("category=rings&featured=true", call.query)

	testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodDelete, "/api/products/abc"))
	s.Equal("/products/abc", s.last.Load().path)
	s.Equal(http.MethodDelete, s.last.Load().method)
}

func (s *GatewaySuite) TestRejectsDisallowedOriginBeforeUpstream() {
	req := testutil.NewRequest(s.T(), http.MethodPost, "/api/auth/login")
	req.Header.Set("Origin", "https://evil.example")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "Not allowed by CORS")
	s.Zero(s.hits.Load())
}

func (s *GatewaySuite) TestAllowedOriginGetsCredentialedCORS() {
	req := testutil.NewRequest(s.T(), http.MethodOptions, "/api/auth/login")
	req.Header.Set("Origin", "https://shop.jwelary.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := testutil.DoRequest(s.router, req)

	s.Equal(http.StatusNoContent, rr.Code)
	s.Equal("https://shop.jwelary.com", rr.Header().Get("Access-Control-Allow-Origin"))
	s.Equal("true", rr.Header().Get("Access-Control-Allow-Credentials"))
	s.Zero(s.hits.Load())
}

func (s *GatewaySuite) TestUnknownRoute() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/orders"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "Route not found")
}

func (s *GatewaySuite) TestHealth() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/health"))
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "status", "OK")
}

func TestUpstreamUnreachable(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	url := backend.URL
	backend.Close()

	relay, err := NewRelay(url, time.Second, logger.Discard(), nil)
	require.NoError(t, err)
	router := NewRouter(relay, cors.NewOriginPolicy(nil), logger.Discard(), nil)

	rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/api/auth/login", `{}`))
	testutil.AssertStatusAndError(t, rr, http.StatusBadGateway, "Upstream login failed")
	testutil.AssertNoSetCookie(t, rr)
}

func TestUpstreamTimeout(t *testing.T) {
	release := make(chan struct{})
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer backend.Close()
	defer close(release)

	relay, err := NewRelay(backend.URL, 50*time.Millisecond, logger.Discard(), nil)
	require.NoError(t, err)
	router := NewRouter(relay, cors.NewOriginPolicy(nil), logger.Discard(), nil)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/api/auth/refresh"))
	testutil.AssertStatusAndError(t, rr, http.StatusBadGateway, "Upstream refresh failed")
}

func TestRelayDoesNotFollowRedirects(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer backend.Close()

	relay, err := NewRelay(backend.URL, time.Second, logger.Discard(), nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	relay.Handler("products", false)(rr, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/elsewhere", rr.Header().Get("Location"))
}

func TestNewRelayRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "localhost:5000", "://bad"} {
		_, err := NewRelay(u, time.Second, logger.Discard(), nil)
		assert.Error(t, err, u)
	}
}

func TestRelayRejectsOversizedBody(t *testing.T) {
	relay, err := NewRelay("http://127.0.0.1:1", time.Second, logger.Discard(), nil)
	require.NoError(t, err)
	big := strings.Repeat("x", (1<<20)+1)
	rr := httptest.NewRecorder()
	relay.Handler("register", true)(rr, httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(big)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}
