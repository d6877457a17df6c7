package domain

import (
	"context"
	"time"
)

// AuthStatus is the state of an in-flight authorization flow
type AuthStatus string

const (
	AuthStatusPending         AuthStatus = "pending"
	AuthStatusWaitingCode     AuthStatus = "waiting_code"
	AuthStatusWaitingPassword AuthStatus = "waiting_password"
	AuthStatusSuccess         AuthStatus = "success"
	AuthStatusFailed          AuthStatus = "failed"
	AuthStatusCancelled       AuthStatus = "cancelled"
)

// AuthSession is a snapshot of one in-flight authorization
type AuthSession struct {
	ID        string
	UserID    int64
	Status    AuthStatus
	Error     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// AuthManager runs phone-code authorization flows, at most one per user.
// A flow is inserted into the table when it starts and removed when it
// completes, fails, expires or is cancelled.
type AuthManager interface {
	// BeginAuth starts a new flow and sends the verification code.
	// Returns ErrAuthInProgress when a flow is already pending for the user.
	BeginAuth(ctx context.Context, userID int64, phone string) (*AuthSession, error)

	// SubmitCode feeds the verification code into the pending flow
	SubmitCode(ctx context.Context, userID int64, code string) (*AuthSession, error)

	// SubmitPassword feeds the 2FA password into the pending flow
	SubmitPassword(ctx context.Context, userID int64, password string) (*AuthSession, error)

	// Status returns the current snapshot of the pending flow
	Status(ctx context.Context, userID int64) (*AuthSession, error)

	// Cancel aborts the pending flow
	Cancel(ctx context.Context, userID int64) error
}
