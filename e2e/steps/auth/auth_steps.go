package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

const (
	accessCookie  = "auth-token"
	refreshCookie = "refresh-token"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string, headers map[string]string) error
	Cookie(name string) *http.Cookie
	SetCookie(name, value string)
	UniqueEmail(prefix string) string
	Email() string
}

// RegisterSteps registers authentication-related step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc}

	ctx.Step(`^I register a new user named "([^"]*)" with password "([^"]*)"$`, steps.registerNew)
	ctx.Step(`^I register the same email again$`, steps.registerAgain)
	ctx.Step(`^I log in with password "([^"]*)"$`, steps.login)
	ctx.Step(`^I request my profile$`, steps.me)
	ctx.Step(`^I request my profile with the bearer token$`, steps.meWithBearer)
	ctx.Step(`^I log out$`, steps.logout)
	ctx.Step(`^I refresh my session$`, steps.refresh)
	ctx.Step(`^I present the refresh token as my access token$`, steps.swapRefreshIntoAccess)
	ctx.Step(`^I present a tampered refresh token$`, steps.tamperRefresh)
	ctx.Step(`^I remember my access token$`, steps.rememberAccess)
	ctx.Step(`^I present the remembered access token$`, steps.presentRemembered)
}

type authSteps struct {
	tc         TestContext
	name       string
	password   string
	remembered string
}

func (s *authSteps) registerNew(ctx context.Context, name, password string) error {
	s.name, s.password = name, password
	return s.tc.POST("/api/auth/register", map[string]string{
		"email":    s.tc.UniqueEmail("e2e"),
		"password": password,
		"name":     name,
	})
}

func (s *authSteps) registerAgain(ctx context.Context) error {
	return s.tc.POST("/api/auth/register", map[string]string{
		"email":    s.tc.Email(),
		"password": s.password,
		"name":     s.name,
	})
}

func (s *authSteps) login(ctx context.Context, password string) error {
	return s.tc.POST("/api/auth/login", map[string]string{
		"email":    s.tc.Email(),
		"password": password,
	})
}

func (s *authSteps) me(ctx context.Context) error {
	return s.tc.GET("/api/auth/me", nil)
}

func (s *authSteps) meWithBearer(ctx context.Context) error {
	c := s.tc.Cookie(accessCookie)
	if c == nil {
		return fmt.Errorf("no access token held")
	}
	return s.tc.GET("/api/auth/me", map[string]string{"Authorization": "Bearer " + c.Value})
}

func (s *authSteps) logout(ctx context.Context) error {
	return s.tc.POST("/api/auth/logout", nil)
}

func (s *authSteps) refresh(ctx context.Context) error {
	return s.tc.POST("/api/auth/refresh", nil)
}

func (s *authSteps) swapRefreshIntoAccess(ctx context.Context) error {
	c := s.tc.Cookie(refreshCookie)
	if c == nil {
		return fmt.Errorf("no refresh token held")
	}
	s.tc.SetCookie(accessCookie, c.Value)
	return nil
}

func (s *authSteps) tamperRefresh(ctx context.Context) error {
	s.tc.SetCookie(refreshCookie, "tampered.refresh.token")
	return nil
}

func (s *authSteps) rememberAccess(ctx context.Context) error {
	c := s.tc.Cookie(accessCookie)
	if c == nil {
		return fmt.Errorf("no access token held")
	}
	s.remembered = c.Value
	return nil
}

func (s *authSteps) presentRemembered(ctx context.Context) error {
	s.tc.SetCookie(accessCookie, s.remembered)
	return nil
}
