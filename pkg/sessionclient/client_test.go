package sessionclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"jwelary/internal/auth/password"
	authservice "jwelary/internal/auth/service"
	"jwelary/internal/auth/store/revocation"
	"jwelary/internal/auth/store/user"
	catalogservice "jwelary/internal/catalog/service"
	catalogstore "jwelary/internal/catalog/store"
	"jwelary/internal/gateway"
	jwttoken "jwelary/internal/jwt_token"
	"jwelary/internal/platform/logger"
	httptransport "jwelary/internal/transport/http"
	"jwelary/pkg/platform/middleware/cors"
)

// ClientSuite runs the client against a gateway relaying to a real backend,
// all sharing one controllable clock.
type ClientSuite struct {
	suite.Suite
	now     time.Time
	backend *httptest.Server
	gateway *httptest.Server
	client  *Client
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) clock() time.Time { return s.now }

func (s *ClientSuite) SetupTest() {
	s.now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	log := logger.Discard()

	tokens := jwttoken.NewJWTService("test-secret", "jwelary", jwttoken.WithClock(s.clock))
	trl := revocation.NewInMemoryTRL(revocation.WithClock(s.clock))
	s.backend = httptest.NewServer(httptransport.NewRouter(httptransport.Dependencies{
		Auth:    authservice.New(user.New(), password.NewHasher(password.WithCost(4)), tokens, trl, log),
		Tokens:  tokens,
		Catalog: catalogservice.New(catalogstore.NewInMemory(), log),
		Policy:  cors.NewOriginPolicy(nil),
		Logger:  log,
		Clock:   s.clock,
	}))
	s.T().Cleanup(s.backend.Close)

	relay, err := gateway.NewRelay(s.backend.URL, 5*time.Second, log, nil)
	s.Require().NoError(err)
	s.gateway = httptest.NewServer(gateway.NewRouter(relay, cors.NewOriginPolicy(nil), log, nil))
	s.T().Cleanup(s.gateway.Close)

	s.client, err = New(s.gateway.URL, WithClock(s.clock), WithTimeout(5*time.Second))
	s.Require().NoError(err)
}

func (s *ClientSuite) signUp(ctx context.Context) {
	_, err := s.client.Register(ctx, "alice@example.com", "secret123", "Alice")
	s.Require().NoError(err)
	_, err = s.client.Login(ctx, "alice@example.com", "secret123")
	s.Require().NoError(err)
}

func (s *ClientSuite) TestLoginMeLogout() {
	ctx := context.Background()

	registered, err := s.client.Register(ctx, "alice@example.com", "secret123", "Alice")
	s.Require().NoError(err)
	s.Equal("USER", registered.Role)

	loggedIn, err := s.client.Login(ctx, "alice@example.com", "secret123")
	s.Require().NoError(err)
	s.Equal(registered.ID, loggedIn.ID)
	s.NotEmpty(s.client.AccessToken())

	me, err := s.client.Me(ctx)
	s.Require().NoError(err)
	s.Equal("Alice", me.Name)

	s.Require().NoError(s.client.Logout(ctx))
	s.Empty(s.client.AccessToken())

	_, err = s.client.Me(ctx)
	s.True(IsUnauthorized(err))
}

func (s *ClientSuite) TestWrongPassword() {
	ctx := context.Background()
	_, err := s.client.Register(ctx, "bob@example.com", "secret123", "Bob")
	s.Require().NoError(err)

	_, err = s.client.Login(ctx, "bob@example.com", "wrong")
	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(http.StatusUnauthorized, apiErr.Status)
	s.Equal("Invalid credentials", apiErr.Message)
	s.Empty(s.client.AccessToken())
}

func (s *ClientSuite) TestExpiringSoonAndRefresh() {
	ctx := context.Background()
	s.signUp(ctx)
	s.False(s.client.AccessTokenExpiringSoon())

	s.now = s.now.Add(2*time.Hour - 10*time.Minute)
	s.True(s.client.AccessTokenExpiringSoon())

	before := s.client.AccessToken()
	_, err := s.client.Refresh(ctx)
	s.Require().NoError(err)
	s.NotEqual(before, s.client.AccessToken())
	s.False(s.client.AccessTokenExpiringSoon())
}

func (s *ClientSuite) TestSessionSilentRefreshOnActiveTick() {
	ctx := context.Background()
	_, err := s.client.Register(ctx, "carol@example.com", "secret123", "Carol")
	s.Require().NoError(err)

	session := NewSession(s.client, NewMonitor(DefaultMonitorConfig()), logger.Discard(), WithSessionClock(s.clock))
	_, err = session.Start(ctx, "carol@example.com", "secret123")
	s.Require().NoError(err)
	first := s.client.AccessToken()

	session.handle(ctx, EventNone)
	s.Equal(first, s.client.AccessToken())

	s.now = s.now.Add(2*time.Hour - 5*time.Minute)
	session.handle(ctx, EventNone)
	s.NotEqual(first, s.client.AccessToken())
}

func (s *ClientSuite) TestSessionExpiryLogsOut() {
	ctx := context.Background()
	s.signUp(ctx)

	var warned, expired int
	var reason EndReason
	session := NewSession(s.client, NewMonitor(DefaultMonitorConfig()), logger.Discard(),
		WithSessionClock(s.clock),
		OnWarn(func() { warned++ }),
		OnExpire(func(r EndReason) { expired++; reason = r }),
	)
	session.monitor.Activate(s.now)

	session.handle(ctx, session.monitor.Tick(s.now.Add(25*time.Minute)))
	s.Equal(1, warned)
	s.Equal(Warned, session.State())

	session.handle(ctx, session.monitor.Tick(s.now.Add(30*time.Minute)))
	s.Equal(1, expired)
	s.Equal(EndIdle, reason)
	s.Equal(Expired, session.State())
	s.Empty(s.client.AccessToken())
}

func (s *ClientSuite) TestSessionDecline() {
	ctx := context.Background()
	s.signUp(ctx)

	var expired int
	var reason EndReason
	session := NewSession(s.client, NewMonitor(DefaultMonitorConfig()), logger.Discard(),
		WithSessionClock(s.clock),
		OnExpire(func(r EndReason) { expired++; reason = r }),
	)
	session.monitor.Activate(s.now)
	session.handle(ctx, session.monitor.Tick(s.now.Add(25*time.Minute)))

	session.Respond(ctx, false)
	s.Equal(1, expired)
	s.Equal(EndDeclined, reason)
	s.Equal(Expired, session.State())
	s.Empty(s.client.AccessToken())

	session.Respond(ctx, false)
	s.Equal(1, expired)
}

func (s *ClientSuite) TestSessionConfirmKeepsSignedIn() {
	ctx := context.Background()
	s.signUp(ctx)

	session := NewSession(s.client, NewMonitor(DefaultMonitorConfig()), logger.Discard(), WithSessionClock(s.clock))
	session.monitor.Activate(s.now)
	session.handle(ctx, session.monitor.Tick(s.now.Add(25*time.Minute)))

	s.now = s.now.Add(26 * time.Minute)
	session.Respond(ctx, true)
	s.Equal(Active, session.State())
	s.NotEmpty(s.client.AccessToken())
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "gateway", "://x"} {
		_, err := New(u)
		assert.Error(t, err, u)
	}
}

func TestUnreachableGatewayIsNotAnAPIError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url, WithTimeout(time.Second))
	require.NoError(t, err)
	_, err = c.Login(context.Background(), "a@b.co", "x")
	require.Error(t, err)
	var apiErr *APIError
	assert.NotErrorAs(t, err, &apiErr)
}

func TestAPIErrorWithoutJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	_, err = c.Me(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}
