// Package config provides configuration management for triage.
package config

import "time"

// Default configuration values for triage.
const (
	// DefaultAddr is the address the web UI listens on.
	DefaultAddr = "127.0.0.1:4567"

	// DefaultHistorySize is the number of moves that can be undone.
	DefaultHistorySize = 10

	// DefaultRecentTags is the number of recent tags offered for reuse.
	DefaultRecentTags = 6

	// DefaultRetentionDays is the number of days journal entries are kept.
	DefaultRetentionDays = 30

	// DefaultSessionCookie is the name of the browser session cookie.
	DefaultSessionCookie = "triage_session"

	// DefaultSessionTTL is how long an idle browser session is kept.
	DefaultSessionTTL = 30 * 24 * time.Hour
)

// DefaultExtensions is the image extension allow-list.
var DefaultExtensions = []string{"jpg", "jpeg", "png", "gif", "webp"}
