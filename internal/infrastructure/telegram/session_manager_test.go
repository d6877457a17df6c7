package telegram

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/ChatSentinel/config"
	"github.com/Conte777/ChatSentinel/internal/domain"
	"github.com/Conte777/ChatSentinel/internal/domain/watch/entities"
	"github.com/Conte777/ChatSentinel/internal/infrastructure/metrics"
)

type stubCredentialStore struct {
	creds   map[int64][]byte
	deleted []int64
	listErr error
}

func newStubCredentialStore(userIDs ...int64) *stubCredentialStore {
	creds := make(map[int64][]byte)
	for _, id := range userIDs {
		creds[id] = []byte("session-data")
	}
	return &stubCredentialStore{creds: creds}
}

func (s *stubCredentialStore) List(ctx context.Context) ([]entities.Credential, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]entities.Credential, 0, len(s.creds))
	for id, data := range s.creds {
		out = append(out, entities.Credential{UserID: id, Session: data})
	}
	return out, nil
}

func (s *stubCredentialStore) Get(ctx context.Context, userID int64) ([]byte, error) {
	data, ok := s.creds[userID]
	if !ok {
		return nil, domain.ErrNoCredentials
	}
	return data, nil
}

func (s *stubCredentialStore) Save(ctx context.Context, userID int64, session []byte) error {
	s.creds[userID] = session
	return nil
}

func (s *stubCredentialStore) Delete(ctx context.Context, userID int64) error {
	delete(s.creds, userID)
	s.deleted = append(s.deleted, userID)
	return nil
}

type stubWatcherClient struct {
	userID      int64
	connectErr  error
	connects    int
	disconnects int
	sink        domain.EventSink
}

func (c *stubWatcherClient) Connect(ctx context.Context) error {
	c.connects++
	return c.connectErr
}

func (c *stubWatcherClient) Disconnect(ctx context.Context) error {
	c.disconnects++
	return nil
}

func (c *stubWatcherClient) IsConnected() bool            { return c.connects > c.disconnects }
func (c *stubWatcherClient) UserID() int64                { return c.userID }
func (c *stubWatcherClient) Attach(sink domain.EventSink) { c.sink = sink }

func (c *stubWatcherClient) FetchMessages(ctx context.Context, chatID int64, ids []int) ([]domain.FetchedMessage, error) {
	return nil, nil
}

func (c *stubWatcherClient) RefetchMessage(ctx context.Context, chatID int64, msgID int) (*entities.MessageEvent, error) {
	return nil, fmt.Errorf("not implemented")
}

func (c *stubWatcherClient) DownloadInMemory(ctx context.Context, evt *entities.MessageEvent) ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}

func (c *stubWatcherClient) DownloadToFile(ctx context.Context, evt *entities.MessageEvent, path string) error {
	return fmt.Errorf("not implemented")
}

func (c *stubWatcherClient) SaveToSelfArchive(ctx context.Context, path string, caption string) error {
	return fmt.Errorf("not implemented")
}

type noopSink struct{}

func (noopSink) HandleNewMessage(ctx context.Context, evt *entities.MessageEvent)  {}
func (noopSink) HandleEditMessage(ctx context.Context, evt *entities.MessageEvent) {}

func newTestManager(store *stubCredentialStore, factory ClientFactory) *sessionManager {
	cfg := &config.TelegramConfig{APIID: 1, APIHash: "hash"}
	sinkFactory := func(userID int64, client domain.WatcherClient) domain.EventSink {
		return noopSink{}
	}

	manager := NewSessionManager(cfg, store, sinkFactory, metrics.GetDefaultMetrics(), zerolog.Nop()).(*sessionManager)
	manager.clientFactory = factory
	return manager
}

func staticFactory(clients map[int64]*stubWatcherClient) ClientFactory {
	return func(cfg WatcherClientConfig) (domain.WatcherClient, error) {
		client, ok := clients[cfg.UserID]
		if !ok {
			return nil, fmt.Errorf("no stub for user %d", cfg.UserID)
		}
		return client, nil
	}
}

func TestStartSession(t *testing.T) {
	store := newStubCredentialStore(1)
	client := &stubWatcherClient{userID: 1}
	m := newTestManager(store, staticFactory(map[int64]*stubWatcherClient{1: client}))

	result, err := m.StartSession(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StartOK, result)
	assert.Equal(t, 1, client.connects)
	assert.NotNil(t, client.sink, "sink must be attached before connect")
	assert.Equal(t, 1, m.ActiveCount())
}

func TestStartSession_AlreadyRunning(t *testing.T) {
	store := newStubCredentialStore(1)
	client := &stubWatcherClient{userID: 1}
	m := newTestManager(store, staticFactory(map[int64]*stubWatcherClient{1: client}))

	_, err := m.StartSession(context.Background(), 1)
	require.NoError(t, err)

	result, err := m.StartSession(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StartAlreadyRunning, result)
	assert.Equal(t, 1, client.connects)
}

func TestStartSession_ConnectFailure(t *testing.T) {
	store := newStubCredentialStore(1)
	client := &stubWatcherClient{userID: 1, connectErr: fmt.Errorf("network unreachable")}
	m := newTestManager(store, staticFactory(map[int64]*stubWatcherClient{1: client}))

	result, err := m.StartSession(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, domain.StartFailed, result)
	assert.Equal(t, 0, m.ActiveCount())
}

func TestStopSession_RemovesCredentials(t *testing.T) {
	store := newStubCredentialStore(1)
	client := &stubWatcherClient{userID: 1}
	m := newTestManager(store, staticFactory(map[int64]*stubWatcherClient{1: client}))

	_, err := m.StartSession(context.Background(), 1)
	require.NoError(t, err)

	result := m.StopSession(context.Background(), 1)
	assert.Equal(t, domain.StopOK, result)
	assert.Equal(t, 1, client.disconnects)
	assert.Equal(t, []int64{1}, store.deleted)
	assert.Equal(t, 0, m.ActiveCount())
}

func TestStopSession_NotFound(t *testing.T) {
	store := newStubCredentialStore()
	m := newTestManager(store, staticFactory(nil))

	result := m.StopSession(context.Background(), 42)
	assert.Equal(t, domain.StopNotFound, result)
	assert.Empty(t, store.deleted)
}

func TestShutdown_KeepsCredentials(t *testing.T) {
	store := newStubCredentialStore(1, 2)
	clients := map[int64]*stubWatcherClient{
		1: {userID: 1},
		2: {userID: 2},
	}
	m := newTestManager(store, staticFactory(clients))

	for id := range clients {
		_, err := m.StartSession(context.Background(), id)
		require.NoError(t, err)
	}

	disconnected := m.Shutdown(context.Background())
	assert.Equal(t, 2, disconnected)
	assert.Equal(t, 0, m.ActiveCount())

	// Shutdown is not an unsubscribe, credentials survive for the next start
	assert.Empty(t, store.deleted)
	assert.Len(t, store.creds, 2)
}

func TestListActive_Sorted(t *testing.T) {
	store := newStubCredentialStore(3, 1, 2)
	clients := map[int64]*stubWatcherClient{
		1: {userID: 1},
		2: {userID: 2},
		3: {userID: 3},
	}
	m := newTestManager(store, staticFactory(clients))

	for id := range clients {
		_, err := m.StartSession(context.Background(), id)
		require.NoError(t, err)
	}

	assert.Equal(t, []int64{1, 2, 3}, m.ListActive())
}

func TestRestoreAll_IsolatesFailures(t *testing.T) {
	store := newStubCredentialStore(1, 2, 3)
	clients := map[int64]*stubWatcherClient{
		1: {userID: 1},
		2: {userID: 2, connectErr: fmt.Errorf("AUTH_KEY_UNREGISTERED")},
		3: {userID: 3},
	}
	m := newTestManager(store, staticFactory(clients))

	report := m.RestoreAll(context.Background())

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Successful)
	assert.Equal(t, 1, report.Failed)
	require.Contains(t, report.Errors, int64(2))
	assert.Equal(t, []int64{1, 3}, m.ListActive())
}

func TestRestoreAll_ListFailure(t *testing.T) {
	store := newStubCredentialStore(1)
	store.listErr = fmt.Errorf("database down")
	m := newTestManager(store, staticFactory(nil))

	report := m.RestoreAll(context.Background())
	assert.Equal(t, 0, report.Total)
	assert.Equal(t, 0, m.ActiveCount())
}

func TestGet(t *testing.T) {
	store := newStubCredentialStore(1)
	client := &stubWatcherClient{userID: 1}
	m := newTestManager(store, staticFactory(map[int64]*stubWatcherClient{1: client}))

	_, err := m.Get(1)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, startErr := m.StartSession(context.Background(), 1)
	require.NoError(t, startErr)

	got, err := m.Get(1)
	require.NoError(t, err)
	assert.Same(t, client, got)
}
