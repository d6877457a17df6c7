package telegram

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Conte777/ChatSentinel/config"
	"github.com/Conte777/ChatSentinel/internal/domain"
	"github.com/Conte777/ChatSentinel/internal/infrastructure/metrics"
)

// ClientFactory is a function type for creating watcher clients
type ClientFactory func(cfg WatcherClientConfig) (domain.WatcherClient, error)

// connectTimeout bounds a single session start
const connectTimeout = 2 * time.Minute

// disconnectTimeout bounds a single session teardown
const disconnectTimeout = 10 * time.Second

// sessionManager manages the registry of per-user watcher sessions
type sessionManager struct {
	sessions map[int64]domain.WatcherClient // userID -> client
	mu       sync.RWMutex

	apiID   int
	apiHash string

	creds       domain.CredentialStore
	sinkFactory domain.SinkFactory
	metrics     *metrics.Metrics
	logger      zerolog.Logger

	// clientFactory is used to create new clients (can be overridden for testing)
	clientFactory ClientFactory
}

// NewSessionManager creates a new session manager
func NewSessionManager(
	cfg *config.TelegramConfig,
	creds domain.CredentialStore,
	sinkFactory domain.SinkFactory,
	m *metrics.Metrics,
	logger zerolog.Logger,
) domain.SessionManager {
	return &sessionManager{
		sessions:      make(map[int64]domain.WatcherClient),
		apiID:         cfg.APIID,
		apiHash:       cfg.APIHash,
		creds:         creds,
		sinkFactory:   sinkFactory,
		metrics:       m,
		logger:        logger.With().Str("component", "session_manager").Logger(),
		clientFactory: defaultClientFactory,
	}
}

// defaultClientFactory is the default factory that creates real WatcherClient instances
func defaultClientFactory(cfg WatcherClientConfig) (domain.WatcherClient, error) {
	return NewWatcherClient(cfg)
}

// StartSession starts a watcher session for the user from stored credentials.
// A session that is already running is left untouched.
func (m *sessionManager) StartSession(ctx context.Context, userID int64) (domain.StartResult, error) {
	m.mu.RLock()
	_, exists := m.sessions[userID]
	m.mu.RUnlock()
	if exists {
		m.logger.Debug().Int64("user_id", userID).Msg("session already running")
		return domain.StartAlreadyRunning, nil
	}

	client, err := m.clientFactory(WatcherClientConfig{
		APIID:   m.apiID,
		APIHash: m.apiHash,
		UserID:  userID,
		Store:   m.creds,
		Logger:  m.logger,
	})
	if err != nil {
		m.metrics.RecordSessionFailure("create_client")
		return domain.StartFailed, fmt.Errorf("create client: %w", err)
	}

	// The sink must be attached before the client connects so that
	// no update is delivered without a consumer
	client.Attach(m.sinkFactory(userID, client))

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Connect(connectCtx); err != nil {
		reason := "connect"
		if errors.Is(err, domain.ErrAuthenticationFailed) {
			reason = "auth"
		}
		m.metrics.RecordSessionFailure(reason)
		m.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to start session")
		return domain.StartFailed, fmt.Errorf("connect: %w", err)
	}

	m.mu.Lock()
	if _, exists := m.sessions[userID]; exists {
		m.mu.Unlock()
		// Lost the race against a concurrent start, drop this client
		disconnectCtx, cancelDisconnect := context.WithTimeout(context.Background(), disconnectTimeout)
		defer cancelDisconnect()
		_ = client.Disconnect(disconnectCtx)
		return domain.StartAlreadyRunning, nil
	}
	m.sessions[userID] = client
	active := len(m.sessions)
	m.mu.Unlock()

	m.metrics.RecordSessionStart()
	m.metrics.UpdateActiveSessions(active)
	m.logger.Info().Int64("user_id", userID).Int("active", active).Msg("session started")
	return domain.StartOK, nil
}

// StopSession tears down the user's session and removes stored credentials.
// Stopping an absent session is reported, not an error.
func (m *sessionManager) StopSession(ctx context.Context, userID int64) domain.StopResult {
	m.mu.Lock()
	client, exists := m.sessions[userID]
	if exists {
		delete(m.sessions, userID)
	}
	active := len(m.sessions)
	m.mu.Unlock()

	if !exists {
		m.logger.Debug().Int64("user_id", userID).Msg("no session to stop")
		return domain.StopNotFound
	}

	disconnectCtx, cancel := context.WithTimeout(ctx, disconnectTimeout)
	defer cancel()
	if err := client.Disconnect(disconnectCtx); err != nil {
		m.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to disconnect cleanly")
	}

	// An explicit stop is an unsubscribe, drop the stored credentials
	if err := m.creds.Delete(ctx, userID); err != nil {
		m.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to delete credentials")
	}

	m.metrics.RecordSessionStop()
	m.metrics.UpdateActiveSessions(active)
	m.logger.Info().Int64("user_id", userID).Int("active", active).Msg("session stopped")
	return domain.StopOK
}

// Get returns the active client for the user
func (m *sessionManager) Get(userID int64) (domain.WatcherClient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	client, exists := m.sessions[userID]
	if !exists {
		return nil, domain.ErrSessionNotFound
	}
	return client, nil
}

// ListActive returns a snapshot of user ids with running sessions
func (m *sessionManager) ListActive() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ActiveCount returns the number of running sessions
func (m *sessionManager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// RestoreAll starts sessions for every stored credential in parallel.
//
// The method implements the following safety measures:
// - Worker pool pattern to limit concurrent goroutines
// - Context cancellation support (graceful shutdown)
// - Per-user failure isolation: one bad credential never blocks the rest
func (m *sessionManager) RestoreAll(ctx context.Context) *domain.InitializationReport {
	started := time.Now()
	report := &domain.InitializationReport{
		Errors: make(map[int64]string),
	}

	creds, err := m.creds.List(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to list stored credentials")
		return report
	}

	report.Total = len(creds)
	if len(creds) == 0 {
		m.logger.Info().Msg("no stored sessions to restore")
		return report
	}

	const maxConcurrent = 10
	m.logger.Info().
		Int("count", len(creds)).
		Int("max_concurrent", maxConcurrent).
		Msg("Starting session restore")

	var wg sync.WaitGroup
	reportMu := sync.Mutex{}

	// Semaphore for limiting concurrent goroutines (worker pool pattern)
	semaphore := make(chan struct{}, maxConcurrent)

	for _, cred := range creds {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()

			// Check for context cancellation before starting work
			select {
			case <-ctx.Done():
				reportMu.Lock()
				report.Errors[userID] = ctx.Err().Error()
				report.Failed++
				reportMu.Unlock()
				return
			default:
			}

			// Acquire semaphore (worker pool)
			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				reportMu.Lock()
				report.Errors[userID] = ctx.Err().Error()
				report.Failed++
				reportMu.Unlock()
				return
			}

			result, err := m.StartSession(ctx, userID)
			if err != nil || result == domain.StartFailed {
				msg := "start failed"
				if err != nil {
					msg = err.Error()
				}
				reportMu.Lock()
				report.Errors[userID] = msg
				report.Failed++
				reportMu.Unlock()
				return
			}

			reportMu.Lock()
			report.Successful++
			reportMu.Unlock()
		}(cred.UserID)
	}

	// Wait for all goroutines to complete
	wg.Wait()

	report.Duration = time.Since(started)
	m.metrics.RecordRestore(report.Duration)
	m.logger.Info().
		Int("total", report.Total).
		Int("successful", report.Successful).
		Int("failed", report.Failed).
		Dur("duration", report.Duration).
		Msg("Session restore completed")

	return report
}

// Shutdown disconnects all sessions without touching stored credentials
func (m *sessionManager) Shutdown(ctx context.Context) int {
	m.mu.Lock()
	clients := make([]domain.WatcherClient, 0, len(m.sessions))
	for _, client := range m.sessions {
		clients = append(clients, client)
	}
	m.sessions = make(map[int64]domain.WatcherClient)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, client := range clients {
		wg.Add(1)
		go func(c domain.WatcherClient) {
			defer wg.Done()
			if err := c.Disconnect(ctx); err != nil {
				m.logger.Warn().Err(err).Int64("user_id", c.UserID()).Msg("failed to disconnect during shutdown")
			}
		}(client)
	}
	wg.Wait()

	m.metrics.UpdateActiveSessions(0)
	m.logger.Info().Int("count", len(clients)).Msg("all sessions disconnected")
	return len(clients)
}

// Ensure sessionManager implements domain.SessionManager interface
var _ domain.SessionManager = (*sessionManager)(nil)
