package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"

	"github.com/Conte777/ChatSentinel/config"
	"github.com/Conte777/ChatSentinel/internal/domain"
)

// authFlowTimeout bounds the whole phone-code flow
const authFlowTimeout = 5 * time.Minute

// maskPhoneNumber masks phone number for logging (keeps first 2 and last 2 digits)
func maskPhoneNumber(phone string) string {
	if len(phone) < 4 {
		return "***"
	}
	return phone[:2] + strings.Repeat("*", len(phone)-4) + phone[len(phone)-2:]
}

// pendingAuth is one in-flight phone-code authorization
type pendingAuth struct {
	snapshot domain.AuthSession
	mu       sync.Mutex

	phone        string
	codeChan     chan string
	passwordChan chan string
	cancelFunc   context.CancelFunc
}

func (p *pendingAuth) setStatus(status domain.AuthStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshot.Status = status
}

func (p *pendingAuth) setError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshot.Status = domain.AuthStatusFailed
	p.snapshot.Error = err.Error()
}

func (p *pendingAuth) getSnapshot() *domain.AuthSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.snapshot
	return &s
}

// AuthManager implements phone-code authorization keyed by user id
type AuthManager struct {
	pending map[int64]*pendingAuth
	mu      sync.Mutex

	telegramCfg *config.TelegramConfig
	creds       domain.CredentialStore
	sessions    domain.SessionManager
	logger      zerolog.Logger
}

// NewAuthManager creates a new authorization manager
func NewAuthManager(
	telegramCfg *config.TelegramConfig,
	creds domain.CredentialStore,
	sessions domain.SessionManager,
	logger zerolog.Logger,
) domain.AuthManager {
	return &AuthManager{
		pending:     make(map[int64]*pendingAuth),
		telegramCfg: telegramCfg,
		creds:       creds,
		sessions:    sessions,
		logger:      logger.With().Str("component", "auth_manager").Logger(),
	}
}

// BeginAuth starts a new flow and sends the verification code
func (m *AuthManager) BeginAuth(ctx context.Context, userID int64, phone string) (*domain.AuthSession, error) {
	if phone == "" {
		return nil, fmt.Errorf("phone number is required")
	}

	now := time.Now()
	flow := &pendingAuth{
		snapshot: domain.AuthSession{
			ID:        uuid.New().String(),
			UserID:    userID,
			Status:    domain.AuthStatusPending,
			CreatedAt: now,
			ExpiresAt: now.Add(authFlowTimeout),
		},
		phone:        phone,
		codeChan:     make(chan string, 1),
		passwordChan: make(chan string, 1),
	}

	// The flow context is created and stored before the flow is published,
	// so cancelFunc is immutable once any other goroutine can see it
	runCtx, cancel := context.WithTimeout(context.Background(), authFlowTimeout)
	flow.cancelFunc = cancel

	// Insert-on-start: only one flow per user may be in flight
	m.mu.Lock()
	if _, exists := m.pending[userID]; exists {
		m.mu.Unlock()
		cancel()
		return nil, domain.ErrAuthInProgress
	}
	m.pending[userID] = flow
	m.mu.Unlock()

	m.logger.Info().
		Int64("user_id", userID).
		Str("phone", maskPhoneNumber(phone)).
		Str("flow_id", flow.snapshot.ID).
		Msg("starting phone-code authorization")

	// Channel to learn whether the code was sent
	codeSent := make(chan error, 1)

	go m.runAuth(runCtx, flow, codeSent)

	select {
	case err := <-codeSent:
		if err != nil {
			m.remove(userID)
			return nil, err
		}
	case <-time.After(30 * time.Second):
		m.cancelFlow(flow)
		m.remove(userID)
		return nil, fmt.Errorf("timeout waiting for verification code dispatch")
	case <-ctx.Done():
		m.cancelFlow(flow)
		m.remove(userID)
		return nil, ctx.Err()
	}

	return flow.getSnapshot(), nil
}

// SubmitCode feeds the verification code into the pending flow
func (m *AuthManager) SubmitCode(ctx context.Context, userID int64, code string) (*domain.AuthSession, error) {
	flow, err := m.get(userID)
	if err != nil {
		return nil, err
	}

	if flow.getSnapshot().Status != domain.AuthStatusWaitingCode {
		return nil, fmt.Errorf("flow is not waiting for a code")
	}

	select {
	case flow.codeChan <- code:
		m.logger.Debug().Int64("user_id", userID).Msg("verification code submitted")
	default:
		return nil, fmt.Errorf("flow is not waiting for a code")
	}

	// Give the flow goroutine a moment to advance
	time.Sleep(500 * time.Millisecond)

	return flow.getSnapshot(), nil
}

// SubmitPassword feeds the 2FA password into the pending flow
func (m *AuthManager) SubmitPassword(ctx context.Context, userID int64, password string) (*domain.AuthSession, error) {
	flow, err := m.get(userID)
	if err != nil {
		return nil, err
	}

	if flow.getSnapshot().Status != domain.AuthStatusWaitingPassword {
		return nil, fmt.Errorf("flow is not waiting for a password")
	}

	select {
	case flow.passwordChan <- password:
		m.logger.Debug().Int64("user_id", userID).Msg("2FA password submitted")
	default:
		return nil, fmt.Errorf("flow is not waiting for a password")
	}

	time.Sleep(500 * time.Millisecond)

	return flow.getSnapshot(), nil
}

// Status returns the current snapshot of the pending flow
func (m *AuthManager) Status(ctx context.Context, userID int64) (*domain.AuthSession, error) {
	flow, err := m.get(userID)
	if err != nil {
		return nil, err
	}
	return flow.getSnapshot(), nil
}

// Cancel aborts the pending flow
func (m *AuthManager) Cancel(ctx context.Context, userID int64) error {
	flow, err := m.get(userID)
	if err != nil {
		return err
	}

	flow.setStatus(domain.AuthStatusCancelled)
	m.cancelFlow(flow)
	m.remove(userID)

	m.logger.Info().Int64("user_id", userID).Msg("authorization cancelled")
	return nil
}

func (m *AuthManager) get(userID int64) (*pendingAuth, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	flow, exists := m.pending[userID]
	if !exists {
		return nil, domain.ErrAuthNotFound
	}
	return flow, nil
}

// remove implements the remove-on-complete-or-cancel discipline
func (m *AuthManager) remove(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, userID)
}

func (m *AuthManager) cancelFlow(flow *pendingAuth) {
	flow.cancelFunc()
}

// runAuth drives one phone-code flow in its own goroutine
func (m *AuthManager) runAuth(ctx context.Context, flow *pendingAuth, codeSent chan<- error) {
	userID := flow.snapshot.UserID
	defer m.remove(userID)
	defer flow.cancelFunc()

	// Authorize against a throwaway in-memory session first; the
	// credential store only sees sessions that completed successfully
	tempStorage := &memorySessionStorage{}

	client := telegram.NewClient(
		m.telegramCfg.APIID,
		m.telegramCfg.APIHash,
		telegram.Options{
			SessionStorage: tempStorage,
		},
	)

	err := client.Run(ctx, func(ctx context.Context) error {
		sent, err := client.Auth().SendCode(ctx, flow.phone, auth.SendCodeOptions{})
		if err != nil {
			codeSent <- fmt.Errorf("send code: %w", err)
			return err
		}

		sentCode, ok := sent.(*tg.AuthSentCode)
		if !ok {
			err := fmt.Errorf("unexpected sent code response %T", sent)
			codeSent <- err
			return err
		}

		flow.setStatus(domain.AuthStatusWaitingCode)
		codeSent <- nil

		var code string
		select {
		case code = <-flow.codeChan:
		case <-ctx.Done():
			flow.setError(ctx.Err())
			return ctx.Err()
		}

		_, err = client.Auth().SignIn(ctx, flow.phone, code, sentCode.PhoneCodeHash)
		if err != nil {
			if !errors.Is(err, auth.ErrPasswordAuthNeeded) {
				if tgerr.Is(err, "PHONE_CODE_INVALID") {
					flow.setError(fmt.Errorf("invalid verification code"))
					return err
				}
				flow.setError(err)
				return fmt.Errorf("sign in: %w", err)
			}

			// 2FA enabled on the account
			flow.setStatus(domain.AuthStatusWaitingPassword)
			m.logger.Info().Int64("user_id", userID).Msg("2FA password required")

			var password string
			select {
			case password = <-flow.passwordChan:
			case <-ctx.Done():
				flow.setError(ctx.Err())
				return ctx.Err()
			}

			if _, err := client.Auth().Password(ctx, password); err != nil {
				if tgerr.Is(err, "PASSWORD_HASH_INVALID") {
					flow.setError(fmt.Errorf("invalid 2FA password"))
					return err
				}
				flow.setError(err)
				return fmt.Errorf("2FA auth failed: %w", err)
			}
		}

		return m.finalizeAuth(ctx, flow, tempStorage)
	})

	if err != nil {
		snapshot := flow.getSnapshot()
		if snapshot.Status != domain.AuthStatusSuccess && snapshot.Status != domain.AuthStatusCancelled {
			flow.setError(err)
		}
		m.logger.Warn().Err(err).Int64("user_id", userID).Msg("authorization failed")
	}
}

// finalizeAuth persists the fresh session and starts watching
func (m *AuthManager) finalizeAuth(ctx context.Context, flow *pendingAuth, tempStorage *memorySessionStorage) error {
	userID := flow.snapshot.UserID

	sessionData, err := tempStorage.LoadSession(ctx)
	if err != nil || len(sessionData) == 0 {
		err := fmt.Errorf("authorized session has no data")
		flow.setError(err)
		return err
	}

	if err := m.creds.Save(ctx, userID, sessionData); err != nil {
		flow.setError(err)
		return fmt.Errorf("store credentials: %w", err)
	}

	m.logger.Info().
		Int64("user_id", userID).
		Str("phone", maskPhoneNumber(flow.phone)).
		Msg("authorization successful")

	// Start watching right away; failure here is not fatal for the
	// stored credential, the session restores on the next startup
	if _, err := m.sessions.StartSession(ctx, userID); err != nil {
		m.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to start session after auth")
	}

	flow.setStatus(domain.AuthStatusSuccess)
	return nil
}

// memorySessionStorage is a simple in-memory session storage for temporary use
type memorySessionStorage struct {
	mu   sync.Mutex
	data []byte
}

// LoadSession loads session data from memory
func (s *memorySessionStorage) LoadSession(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.data) == 0 {
		return nil, session.ErrNotFound
	}
	return s.data, nil
}

// StoreSession stores session data in memory
func (s *memorySessionStorage) StoreSession(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make([]byte, len(data))
	copy(s.data, data)
	return nil
}

// Ensure AuthManager implements domain.AuthManager interface
var _ domain.AuthManager = (*AuthManager)(nil)
