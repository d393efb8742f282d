package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"jwelary/internal/auth/handler/mocks"
	"jwelary/internal/auth/models"
	"jwelary/internal/platform/logger"
	id "jwelary/pkg/domain"
	dErrors "jwelary/pkg/domain-errors"
	"jwelary/pkg/requestcontext"
	"jwelary/pkg/testutil"
)

type AuthHandlerSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	mockService *mocks.MockService
	router      chi.Router
	userID      id.UserID
}

func (s *AuthHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockService = mocks.NewMockService(s.ctrl)
	s.userID = id.NewUserID()
	s.router = s.newRouter(false)
}

func (s *AuthHandlerSuite) newRouter(secure bool) chi.Router {
	h := New(s.mockService, logger.Discard(), secure)
	r := chi.NewRouter()
	userID := s.userID
	fakeGuard := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithUserID(r.Context(), userID)))
		})
	}
	h.Register(r, fakeGuard)
	return r
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

func (s *AuthHandlerSuite) publicUser() models.PublicUser {
	return models.PublicUser{ID: s.userID.String(), Email: "alice@example.com", Name: "Alice", Role: id.RoleUser}
}

func (s *AuthHandlerSuite) TestRegister() {
	s.Run("201 with user", func() {
		s.mockService.EXPECT().Register(gomock.Any(), models.Registration{Email: "alice@example.com", Password: "secret123", Name: "Alice"}).
			Return(s.publicUser(), nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/register", map[string]string{
			"email": "alice@example.com", "password": "secret123", "name": "Alice",
		})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[models.UserResponse](s.T(), rr)
		s.Equal("User created successfully", resp.Message)
		s.Equal("alice@example.com", resp.User.Email)
		testutil.AssertNoSetCookie(s.T(), rr)
	})

	s.Run("missing fields", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/register", map[string]string{"email": "alice@example.com"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "Email, password, and name are required")
	})

	s.Run("existing email is a 400", func() {
		s.mockService.EXPECT().Register(gomock.Any(), gomock.Any()).
			Return(models.PublicUser{}, dErrors.New(dErrors.CodeConflict, "User already exists"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/register", map[string]string{
			"email": "alice@example.com", "password": "secret123", "name": "Alice",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "User already exists")
	})

	s.Run("malformed body", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/auth/register", "{not json")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "Invalid request body")
	})
}

func (s *AuthHandlerSuite) TestLogin() {
	s.Run("sets both cookies", func() {
		s.mockService.EXPECT().Login(gomock.Any(), models.Credentials{Email: "alice@example.com", Password: "secret123"}).
			Return(&models.LoginResult{
				User:    s.publicUser(),
				Access:  models.IssuedCookie{Value: "access-jwt", MaxAge: 2 * time.Hour},
				Refresh: models.IssuedCookie{Value: "refresh-jwt", MaxAge: 7 * 24 * time.Hour},
			}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
			"email": "alice@example.com", "password": "secret123",
		})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		access := testutil.ResponseCookie(rr, AccessCookieName)
		s.Require().NotNil(access)
		s.Equal("access-jwt", access.Value)
		s.Equal(7200, access.MaxAge)
		s.True(access.HttpOnly)
		s.False(access.Secure)
		s.Equal(http.SameSiteStrictMode, access.SameSite)
		s.Equal("/", access.Path)

		refresh := testutil.ResponseCookie(rr, RefreshCookieName)
		s.Require().NotNil(refresh)
		s.Equal("refresh-jwt", refresh.Value)
		s.Equal(604800, refresh.MaxAge)
		s.True(refresh.HttpOnly)

		resp := testutil.UnmarshalResponse[models.UserResponse](s.T(), rr)
		s.Equal("Login successful", resp.Message)
	})

	s.Run("invalid credentials set no cookies", func() {
		s.mockService.EXPECT().Login(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "Invalid credentials"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
			"email": "alice@example.com", "password": "wrong",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertNoSetCookie(s.T(), rr)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "Invalid credentials")
	})

	s.Run("missing fields", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{"email": "alice@example.com"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "Email and password are required")
	})

	s.Run("internal errors are opaque", func() {
		s.mockService.EXPECT().Login(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInternal, "failed to look up user"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
			"email": "alice@example.com", "password": "x",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, "Internal server error")
	})
}

func (s *AuthHandlerSuite) TestSecureCookiesInProduction() {
	router := s.newRouter(true)
	s.mockService.EXPECT().Login(gomock.Any(), gomock.Any()).Return(&models.LoginResult{
		User:    s.publicUser(),
		Access:  models.IssuedCookie{Value: "a", MaxAge: time.Hour},
		Refresh: models.IssuedCookie{Value: "r", MaxAge: time.Hour},
	}, nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{"email": "a@b.co", "password": "x"})
	rr := testutil.DoRequest(router, req)

	s.True(testutil.ResponseCookie(rr, AccessCookieName).Secure)
	s.True(testutil.ResponseCookie(rr, RefreshCookieName).Secure)
}

func (s *AuthHandlerSuite) TestLogout() {
	s.Run("passes presented tokens and clears cookies", func() {
		s.mockService.EXPECT().Logout(gomock.Any(), models.LogoutRequest{AccessToken: "a", RefreshToken: "r"})

		req := testutil.WithCookies(testutil.NewRequest(s.T(), http.MethodPost, "/auth/logout"),
			&http.Cookie{Name: AccessCookieName, Value: "a"},
			&http.Cookie{Name: RefreshCookieName, Value: "r"},
		)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "message", "Logged out successfully")
		for _, name := range []string{AccessCookieName, RefreshCookieName} {
			c := testutil.ResponseCookie(rr, name)
			s.Require().NotNil(c, name)
			s.Empty(c.Value)
			s.Negative(c.MaxAge)
		}
	})

	s.Run("succeeds without a session", func() {
		s.mockService.EXPECT().Logout(gomock.Any(), models.LogoutRequest{}).Times(2)

		for range 2 {
			rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/auth/logout"))
			testutil.AssertStatusOK(s.T(), rr)
		}
	})
}

func (s *AuthHandlerSuite) TestRefresh() {
	s.Run("sets only the access cookie without rotation", func() {
		s.mockService.EXPECT().Refresh(gomock.Any(), "refresh-jwt").Return(&models.RefreshResult{
			User:   s.publicUser(),
			Access: models.IssuedCookie{Value: "new-access", MaxAge: 2 * time.Hour},
		}, nil)

		req := testutil.WithCookies(testutil.NewRequest(s.T(), http.MethodPost, "/auth/refresh"),
			&http.Cookie{Name: RefreshCookieName, Value: "refresh-jwt"})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		s.Equal("new-access", testutil.ResponseCookie(rr, AccessCookieName).Value)
		s.Nil(testutil.ResponseCookie(rr, RefreshCookieName))
		testutil.AssertJSONContains(s.T(), rr, "message", "Token refreshed successfully")
	})

	s.Run("replaces the refresh cookie when rotated", func() {
		s.mockService.EXPECT().Refresh(gomock.Any(), "refresh-jwt").Return(&models.RefreshResult{
			User:    s.publicUser(),
			Access:  models.IssuedCookie{Value: "new-access", MaxAge: 2 * time.Hour},
			Refresh: &models.IssuedCookie{Value: "new-refresh", MaxAge: 7 * 24 * time.Hour},
		}, nil)

		req := testutil.WithCookies(testutil.NewRequest(s.T(), http.MethodPost, "/auth/refresh"),
			&http.Cookie{Name: RefreshCookieName, Value: "refresh-jwt"})
		rr := testutil.DoRequest(s.router, req)

		s.Equal("new-refresh", testutil.ResponseCookie(rr, RefreshCookieName).Value)
	})

	s.Run("missing cookie", func() {
		s.mockService.EXPECT().Refresh(gomock.Any(), "").
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "Refresh token not found"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/auth/refresh"))
		testutil.AssertNoSetCookie(s.T(), rr)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "Refresh token not found")
	})
}

func (s *AuthHandlerSuite) TestMe() {
	s.Run("returns the user", func() {
		s.mockService.EXPECT().Me(gomock.Any(), s.userID).Return(s.publicUser(), nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/auth/me"))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "email", "alice@example.com")
	})

	s.Run("user not found", func() {
		s.mockService.EXPECT().Me(gomock.Any(), s.userID).
			Return(models.PublicUser{}, dErrors.New(dErrors.CodeNotFound, "User not found"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/auth/me"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "User not found")
	})
}

func TestCookieValue(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, cookieValue(req, RefreshCookieName))
	req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: "v"})
	require.Equal(t, "v", cookieValue(req, RefreshCookieName))
}
