package model

import "errors"

// Common errors used across the application
var (
	// Account errors
	ErrAccountNotFound  = errors.New("account not found")
	ErrDuplicateWinUser = errors.New("os user is already bound to another account")
	ErrInvalidAccount   = errors.New("invalid account")
	ErrInvalidOrder     = errors.New("order does not match configured accounts")

	// Launch errors
	ErrInvalidLaunchMode = errors.New("invalid launch mode")

	// Notification errors
	ErrNoNotification = errors.New("no notification is open")
	ErrInvalidAction  = errors.New("invalid notification action")
	ErrActionInFlight = errors.New("notification action already running")

	// Tool errors
	ErrUnknownTool          = errors.New("unknown tool")
	ErrConfirmationRequired = errors.New("confirmation required")

	// Backend errors
	ErrBackendTimeout = errors.New("backend call timed out")
)
