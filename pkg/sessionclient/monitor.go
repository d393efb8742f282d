package sessionclient

import (
	"context"
	"sync"
	"time"
)

// State is the idle monitor's state.
type State int

const (
	// Inactive means no signed-in user. Nothing fires.
	Inactive State = iota
	// Active means signed in and counting idle time.
	Active
	// Warned means the user has been asked to confirm they are still there.
	Warned
	// Expired means the idle limit was reached or the user declined. Nothing
	// fires until the next Activate.
	Expired
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Active:
		return "active"
	case Warned:
		return "warned"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// Event is what a transition asks the caller to do.
type Event int

const (
	EventNone Event = iota
	// EventWarn asks the user to confirm continued presence.
	EventWarn
	// EventExpire asks the caller to log out.
	EventExpire
)

// MonitorConfig sets the idle policy.
type MonitorConfig struct {
	Timeout       time.Duration
	WarnBefore    time.Duration
	CheckInterval time.Duration
}

// DefaultMonitorConfig warns after 25 idle minutes and expires after 30,
// checking once a minute.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Timeout:       30 * time.Minute,
		WarnBefore:    5 * time.Minute,
		CheckInterval: time.Minute,
	}
}

// Monitor is the client-side idle timeout. It is a state machine advanced by
// Tick; there are no independent timers to tear down.
//
// Activity recorded by Touch does not reset the countdown by itself. The next
// Tick notices it and restarts the countdown from that activity. Once warned,
// only Confirm restarts it.
type Monitor struct {
	cfg   MonitorConfig
	clock func() time.Time

	mu           sync.Mutex
	state        State
	armedAt      time.Time
	lastActivity time.Time
	wake         chan struct{}
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithMonitorClock sets the clock used by Run.
func WithMonitorClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) {
		if now != nil {
			m.clock = now
		}
	}
}

// NewMonitor creates an inactive monitor. Zero fields in cfg take their
// defaults.
func NewMonitor(cfg MonitorConfig, opts ...MonitorOption) *Monitor {
	def := DefaultMonitorConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.WarnBefore <= 0 || cfg.WarnBefore >= cfg.Timeout {
		cfg.WarnBefore = min(def.WarnBefore, cfg.Timeout/2)
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = def.CheckInterval
	}
	m := &Monitor{
		cfg:   cfg,
		clock: time.Now,
		wake:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Activate starts counting from now. It also restarts an expired monitor.
func (m *Monitor) Activate(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Active
	m.armedAt = now
	m.lastActivity = now
}

// Touch records user activity.
func (m *Monitor) Touch(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if (m.state == Active || m.state == Warned) && now.After(m.lastActivity) {
		m.lastActivity = now
	}
}

// Confirm answers the warning with "still here" and restarts the countdown.
// It reports whether the monitor was running.
func (m *Monitor) Confirm(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Active && m.state != Warned {
		return false
	}
	m.state = Active
	m.armedAt = now
	m.lastActivity = now
	return true
}

// Decline answers the warning with "sign me out". It returns EventExpire when
// the caller should log out.
func (m *Monitor) Decline() Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Active && m.state != Warned {
		return EventNone
	}
	m.state = Expired
	m.signal()
	return EventExpire
}

// Stop tears the monitor down. Nothing fires afterwards.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Inactive
	m.signal()
}

// Tick advances the state machine to now. Each of EventWarn and EventExpire
// is returned at most once per activation.
func (m *Monitor) Tick(now time.Time) Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case Active:
		if m.lastActivity.After(m.armedAt) {
			m.armedAt = m.lastActivity
		}
		idle := now.Sub(m.armedAt)
		if idle >= m.cfg.Timeout {
			m.state = Expired
			return EventExpire
		}
		if idle >= m.cfg.Timeout-m.cfg.WarnBefore {
			m.state = Warned
			return EventWarn
		}
	case Warned:
		if now.Sub(m.armedAt) >= m.cfg.Timeout {
			m.state = Expired
			return EventExpire
		}
	}
	return EventNone
}

// Run ticks every CheckInterval and passes each tick's event to handle. It
// returns when ctx ends, after Stop, or once the monitor has expired.
func (m *Monitor) Run(ctx context.Context, handle func(context.Context, Event)) error {
	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		if s := m.State(); s == Inactive || s == Expired {
			return nil
		}
		select {
		case <-ctx.Done():
			m.Stop()
			return ctx.Err()
		case <-m.wake:
		case <-ticker.C:
			handle(ctx, m.Tick(m.clock()))
		}
	}
}

func (m *Monitor) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}
