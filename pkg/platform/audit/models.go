// Package audit carries security audit events from request handlers to a
// sink without ever blocking or failing the request.
//
// Events are enqueued on a bounded ring buffer that drops the oldest entry
// when full. A single background worker flushes batches to the configured
// Sink. Close drains whatever is still buffered.
package audit

import "time"

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers account lifecycle events with long retention.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers events for monitoring and forensics.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine activity.
	CategoryOperations EventCategory = "operations"
)

// AuditEvent names an auditable action.
type AuditEvent string

const (
	EventUserRegistered       AuditEvent = "user_registered"
	EventLoginSucceeded       AuditEvent = "login_succeeded"
	EventLoginFailed          AuditEvent = "login_failed"
	EventTokenRefreshed       AuditEvent = "token_refreshed"
	EventRefreshReuseDetected AuditEvent = "refresh_reuse_detected"
	EventLoggedOut            AuditEvent = "logged_out"
	EventAdminAccessDenied    AuditEvent = "admin_access_denied"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventUserRegistered:       CategoryCompliance,
	EventLoginFailed:          CategorySecurity,
	EventRefreshReuseDetected: CategorySecurity,
	EventAdminAccessDenied:    CategorySecurity,
	EventLoginSucceeded:       CategoryOperations,
	EventTokenRefreshed:       CategoryOperations,
	EventLoggedOut:            CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Severity levels for SIEM routing.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is one audit record. Subject is the user ID when known, otherwise the
// email that was presented.
type Event struct {
	Timestamp time.Time     `json:"timestamp"`
	Action    AuditEvent    `json:"action"`
	Category  EventCategory `json:"category"`
	Severity  Severity      `json:"severity"`
	Subject   string        `json:"subject,omitempty"`
	Email     string        `json:"email,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	IP        string        `json:"ip,omitempty"`
	Device    string        `json:"device,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// normalize fills defaults derived from the action.
func (e *Event) normalize(now time.Time) {
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	if e.Category == "" {
		e.Category = e.Action.Category()
	}
	if e.Severity == "" {
		e.Severity = SeverityInfo
	}
}
