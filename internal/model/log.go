package model

import "time"

// LogLevel classifies a Log Sink entry
type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelSuccess LogLevel = "success"
	LogLevelWarn    LogLevel = "warn"
	LogLevelError   LogLevel = "error"
)

// Log categories used by the core
const (
	LogCategoryLaunch = "launch"
	LogCategoryManual = "manual"
)

// LogEntry is one user-facing diagnostic record
type LogEntry struct {
	Time     time.Time `json:"time"`
	Message  string    `json:"message"`
	Level    LogLevel  `json:"level"`
	Category string    `json:"category,omitempty"`
}
