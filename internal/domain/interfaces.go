package domain

import (
	"context"
	"time"

	"github.com/Conte777/ChatSentinel/internal/domain/watch/entities"
)

// StartResult describes the outcome of a session start request
type StartResult string

const (
	StartOK             StartResult = "started"
	StartAlreadyRunning StartResult = "already_running"
	StartFailed         StartResult = "failed"
)

// StopResult describes the outcome of a session stop request
type StopResult string

const (
	StopOK       StopResult = "stopped"
	StopNotFound StopResult = "not_found"
)

// FetchedMessage is one element of a batched message lookup.
// Absent means the backend returned its empty sentinel for the id,
// which the reconciliation sweep treats as a deletion.
type FetchedMessage struct {
	ID     int
	Absent bool
	Event  *entities.MessageEvent
}

// WatcherClient is a connected per-user MTProto session.
// All blocking operations take a context and return explicit errors;
// none of them may panic the owning goroutine.
type WatcherClient interface {
	// Connect establishes the session using stored credentials.
	// Returns ErrAuthenticationFailed when the credentials are no longer valid.
	Connect(ctx context.Context) error

	// Disconnect closes the session and releases its goroutines
	Disconnect(ctx context.Context) error

	// IsConnected reports whether the client is currently connected
	IsConnected() bool

	// UserID returns the identifier of the account the session belongs to
	UserID() int64

	// Attach registers the event sink that receives parsed updates.
	// Must be called before Connect.
	Attach(sink EventSink)

	// FetchMessages performs one batched lookup of message ids in a chat.
	// The result has one entry per requested id, in request order.
	FetchMessages(ctx context.Context, chatID int64, ids []int) ([]FetchedMessage, error)

	// RefetchMessage re-reads a single message from the backend
	RefetchMessage(ctx context.Context, chatID int64, msgID int) (*entities.MessageEvent, error)

	// DownloadInMemory downloads the event media into memory
	DownloadInMemory(ctx context.Context, evt *entities.MessageEvent) ([]byte, error)

	// DownloadToFile downloads the event media to the given path
	DownloadToFile(ctx context.Context, evt *entities.MessageEvent, path string) error

	// SaveToSelfArchive uploads a local file to the account's saved messages
	SaveToSelfArchive(ctx context.Context, path string, caption string) error
}

// EventSink consumes normalized update events for one session
type EventSink interface {
	HandleNewMessage(ctx context.Context, evt *entities.MessageEvent)
	HandleEditMessage(ctx context.Context, evt *entities.MessageEvent)
}

// SinkFactory builds the per-session event sink bound to its client
type SinkFactory func(userID int64, client WatcherClient) EventSink

// InitializationReport summarizes a bulk session restore
type InitializationReport struct {
	Total      int
	Successful int
	Failed     int
	Errors     map[int64]string
	Duration   time.Duration
}

// SessionManager owns the registry of active watcher sessions
type SessionManager interface {
	// StartSession starts a watcher session for the user from stored credentials.
	// Starting an already-running session is a no-op reported as StartAlreadyRunning.
	StartSession(ctx context.Context, userID int64) (StartResult, error)

	// StopSession tears down the user's session and removes stored credentials.
	// Stopping an absent session is not an error.
	StopSession(ctx context.Context, userID int64) StopResult

	// Get returns the active client for the user
	Get(userID int64) (WatcherClient, error)

	// ListActive returns a snapshot of user ids with running sessions
	ListActive() []int64

	// ActiveCount returns the number of running sessions
	ActiveCount() int

	// RestoreAll starts sessions for every stored credential in parallel.
	// Individual failures are isolated and collected into the report.
	RestoreAll(ctx context.Context) *InitializationReport

	// Shutdown disconnects all sessions without touching stored credentials
	Shutdown(ctx context.Context) int
}

// CredentialStore persists watcher session credentials
type CredentialStore interface {
	List(ctx context.Context) ([]entities.Credential, error)
	Get(ctx context.Context, userID int64) ([]byte, error)
	Save(ctx context.Context, userID int64, session []byte) error
	Delete(ctx context.Context, userID int64) error
}
