package sessionclient

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// EndReason says why a session was logged out by the monitor.
type EndReason string

const (
	EndIdle     EndReason = "idle timeout"
	EndDeclined EndReason = "declined"
)

// Session signs a user in and keeps them signed in while they are active. The
// monitor's expiry, or declining the warning, logs out through the client.
type Session struct {
	client  *Client
	monitor *Monitor
	logger  *slog.Logger
	clock   func() time.Time

	onWarn   func()
	onExpire func(EndReason)

	// respondMu is held across Decline and the logout it triggers, so Run
	// cannot return while that logout is in flight.
	respondMu sync.Mutex
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// OnWarn is called when the user should be asked to confirm presence. It must
// not block; answer later with Respond.
func OnWarn(fn func()) SessionOption {
	return func(s *Session) { s.onWarn = fn }
}

// OnExpire is called after the session has been logged out for inactivity or
// by declining the warning.
func OnExpire(fn func(reason EndReason)) SessionOption {
	return func(s *Session) { s.onExpire = fn }
}

// WithSessionClock sets the clock for activity timestamps.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.clock = now
		}
	}
}

func NewSession(client *Client, monitor *Monitor, logger *slog.Logger, opts ...SessionOption) *Session {
	s := &Session{
		client:   client,
		monitor:  monitor,
		logger:   logger,
		clock:    time.Now,
		onWarn:   func() {},
		onExpire: func(EndReason) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start logs in and activates the idle monitor.
func (s *Session) Start(ctx context.Context, email, password string) (User, error) {
	user, err := s.client.Login(ctx, email, password)
	if err != nil {
		return User{}, err
	}
	s.monitor.Activate(s.clock())
	s.logger.InfoContext(ctx, "session started", "email", user.Email)
	return user, nil
}

// Run drives the idle monitor until it expires, Stop is called, or ctx ends.
// It returns only after a logout started by Respond has finished.
func (s *Session) Run(ctx context.Context) error {
	err := s.monitor.Run(ctx, s.handle)
	s.respondMu.Lock()
	defer s.respondMu.Unlock()
	return err
}

// Activity records a user interaction.
func (s *Session) Activity() {
	s.monitor.Touch(s.clock())
}

// Respond answers the presence warning. Declining logs out even if ctx is
// cancelled while the request is in flight.
func (s *Session) Respond(ctx context.Context, stay bool) {
	if stay {
		s.monitor.Confirm(s.clock())
		return
	}
	s.respondMu.Lock()
	defer s.respondMu.Unlock()
	if s.monitor.Decline() == EventExpire {
		s.logout(context.WithoutCancel(ctx), EndDeclined)
	}
}

// State exposes the monitor state.
func (s *Session) State() State {
	return s.monitor.State()
}

// Stop logs out explicitly and tears the monitor down.
func (s *Session) Stop(ctx context.Context) error {
	s.monitor.Stop()
	return s.client.Logout(ctx)
}

func (s *Session) handle(ctx context.Context, ev Event) {
	switch ev {
	case EventWarn:
		s.logger.InfoContext(ctx, "session idle warning")
		s.onWarn()
	case EventExpire:
		s.logout(context.WithoutCancel(ctx), EndIdle)
	default:
		if s.monitor.State() == Active && s.client.AccessTokenExpiringSoon() {
			if _, err := s.client.Refresh(ctx); err != nil {
				s.logger.WarnContext(ctx, "silent refresh failed", "error", err)
			}
		}
	}
}

func (s *Session) logout(ctx context.Context, reason EndReason) {
	if err := s.client.Logout(ctx); err != nil {
		s.logger.WarnContext(ctx, "logout failed", "reason", string(reason), "error", err)
	}
	s.logger.InfoContext(ctx, "session ended", "reason", string(reason))
	s.onExpire(reason)
}
