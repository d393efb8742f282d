// Package device turns User-Agent strings into short labels for audit events.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// ParseUserAgent returns a "<browser> on <os>" label, or "Unknown Device" for
// an empty string.
func ParseUserAgent(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return unknownDevice
	}
	ua := useragent.New(userAgent)

	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	os := ua.OS()
	if os == "" {
		os = ua.Platform()
	}
	if os == "" {
		os = "Unknown OS"
	}
	label := strings.TrimSpace(browser) + " on " + strings.TrimSpace(os)
	if ua.Mobile() {
		label += " (mobile)"
	}
	return label
}

// IsBot reports whether the User-Agent identifies a crawler.
func IsBot(userAgent string) bool {
	if userAgent == "" {
		return false
	}
	return useragent.New(userAgent).Bot()
}
