package common

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// TestContext is what the generic steps need from the scenario context.
type TestContext interface {
	GET(path string, headers map[string]string) error
	LastStatus() int
	LastHeader(name string) string
	LastSetCookie(name string) *http.Cookie
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers request and assertion steps shared by all features.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^I GET "([^"]*)"$`, steps.get)
	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.fieldShouldBe)
	ctx.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, steps.headerShouldBe)
	ctx.Step(`^the response should set cookie "([^"]*)" for (\d+) seconds$`, steps.cookieSetFor)
	ctx.Step(`^the response should clear cookie "([^"]*)"$`, steps.cookieCleared)
	ctx.Step(`^the response should not set cookie "([^"]*)"$`, steps.cookieNotSet)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(path, nil)
}

func (s *commonSteps) statusShouldBe(ctx context.Context, want int) error {
	if got := s.tc.LastStatus(); got != want {
		return fmt.Errorf("expected status %d, got %d", want, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldBe(ctx context.Context, field, want string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("expected %s = %q, got %q", field, want, got)
	}
	return nil
}

func (s *commonSteps) headerShouldBe(ctx context.Context, name, want string) error {
	if got := s.tc.LastHeader(name); got != want {
		return fmt.Errorf("expected header %s = %q, got %q", name, want, got)
	}
	return nil
}

func (s *commonSteps) cookieSetFor(ctx context.Context, name string, seconds int) error {
	c := s.tc.LastSetCookie(name)
	if c == nil {
		return fmt.Errorf("cookie %s was not set", name)
	}
	if c.MaxAge != seconds {
		return fmt.Errorf("cookie %s max-age: expected %d, got %d", name, seconds, c.MaxAge)
	}
	if !c.HttpOnly {
		return fmt.Errorf("cookie %s is not HttpOnly", name)
	}
	if c.SameSite != http.SameSiteStrictMode {
		return fmt.Errorf("cookie %s is not SameSite=Strict", name)
	}
	return nil
}

func (s *commonSteps) cookieCleared(ctx context.Context, name string) error {
	c := s.tc.LastSetCookie(name)
	if c == nil {
		return fmt.Errorf("cookie %s was not cleared", name)
	}
	if c.Value != "" || c.MaxAge >= 0 {
		return fmt.Errorf("cookie %s still holds a session", name)
	}
	return nil
}

func (s *commonSteps) cookieNotSet(ctx context.Context, name string) error {
	if c := s.tc.LastSetCookie(name); c != nil {
		return fmt.Errorf("cookie %s was set", name)
	}
	return nil
}
