package domain

import "errors"

// Domain errors for session management and the watch pipeline
var (
	// ErrSessionNotFound is returned when no watcher session exists for the user
	ErrSessionNotFound = errors.New("watcher session not found")

	// ErrNotConnected is returned when an operation requires a connected client
	ErrNotConnected = errors.New("watcher client is not connected")

	// ErrAuthenticationFailed is returned when the stored session is no longer authorized
	ErrAuthenticationFailed = errors.New("telegram authentication failed")

	// ErrAuthNotFound is returned when no in-flight authorization matches the user
	ErrAuthNotFound = errors.New("authorization flow not found")

	// ErrAuthInProgress is returned when an authorization flow is already pending for the user
	ErrAuthInProgress = errors.New("authorization flow already in progress")

	// ErrNoCredentials is returned when the credential store has no session for the user
	ErrNoCredentials = errors.New("no stored credentials for user")

	// ErrMessageNotFound is returned when a cached message does not exist
	ErrMessageNotFound = errors.New("cached message not found")

	// ErrNoMedia is returned when a capture is requested for a message without media
	ErrNoMedia = errors.New("message carries no media")

	// ErrDatabaseOperation is returned when a database operation fails
	ErrDatabaseOperation = errors.New("database operation failed")
)
