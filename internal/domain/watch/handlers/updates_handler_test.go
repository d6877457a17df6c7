package handlers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/ChatSentinel/config"
	"github.com/Conte777/ChatSentinel/internal/domain"
	"github.com/Conte777/ChatSentinel/internal/domain/watch/entities"
	"github.com/Conte777/ChatSentinel/internal/domain/watch/secret"
)

type fakeMessageRepo struct {
	upserts   []*entities.CachedMessage
	upsertErr error
	stored    *entities.CachedMessage
	getErr    error
}

func (f *fakeMessageRepo) Upsert(ctx context.Context, msg *entities.CachedMessage) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, msg)
	return nil
}

func (f *fakeMessageRepo) Get(ctx context.Context, msgID int, chatID, userID int64) (*entities.CachedMessage, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.stored == nil {
		return nil, domain.ErrMessageNotFound
	}
	return f.stored, nil
}

func (f *fakeMessageRepo) RecentForOwner(ctx context.Context, userID int64, limit int) ([]entities.CachedMessage, error) {
	return nil, nil
}

func (f *fakeMessageRepo) Delete(ctx context.Context, msgID int, chatID, userID int64) error {
	return nil
}

func (f *fakeMessageRepo) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	return 0, nil
}

type fakeNotifier struct {
	alerts []string
}

func (f *fakeNotifier) SendAlert(ctx context.Context, userID int64, text string) error {
	f.alerts = append(f.alerts, text)
	return nil
}

func (f *fakeNotifier) SendMediaFile(ctx context.Context, userID int64, kind entities.MediaKind, path, caption string) error {
	return nil
}

func (f *fakeNotifier) SendMediaRef(ctx context.Context, userID int64, kind entities.MediaKind, fileID, caption string) error {
	return nil
}

type fakeMetrics struct {
	ingested []string
	edits    int
	secrets  []string
}

func (f *fakeMetrics) EventIngested(kind string)      { f.ingested = append(f.ingested, kind) }
func (f *fakeMetrics) EditDetected()                  { f.edits++ }
func (f *fakeMetrics) SecretDetected(tier string)     { f.secrets = append(f.secrets, tier) }
func (f *fakeMetrics) CaptureResult(outcome string)   {}
func (f *fakeMetrics) DeletionDetected()              {}
func (f *fakeMetrics) SweepCompleted(_ time.Duration) {}
func (f *fakeMetrics) SweepSkipped()                  {}
func (f *fakeMetrics) NotifyError()                   {}

// fakeClient is a stand-in watcher session; onDownload observes capture order
type fakeClient struct {
	downloads  int
	onDownload func()
}

func (f *fakeClient) Connect(ctx context.Context) error    { return nil }
func (f *fakeClient) Disconnect(ctx context.Context) error { return nil }
func (f *fakeClient) IsConnected() bool                    { return true }
func (f *fakeClient) UserID() int64                        { return 1 }
func (f *fakeClient) Attach(sink domain.EventSink)         {}

func (f *fakeClient) FetchMessages(ctx context.Context, chatID int64, ids []int) ([]domain.FetchedMessage, error) {
	return nil, nil
}

func (f *fakeClient) RefetchMessage(ctx context.Context, chatID int64, msgID int) (*entities.MessageEvent, error) {
	return nil, fmt.Errorf("not available")
}

func (f *fakeClient) DownloadInMemory(ctx context.Context, evt *entities.MessageEvent) ([]byte, error) {
	f.downloads++
	if f.onDownload != nil {
		f.onDownload()
	}
	return []byte("payload"), nil
}

func (f *fakeClient) DownloadToFile(ctx context.Context, evt *entities.MessageEvent, path string) error {
	return fmt.Errorf("not available")
}

func (f *fakeClient) SaveToSelfArchive(ctx context.Context, path string, caption string) error {
	return nil
}

type handlerFixture struct {
	handler  *WatchHandler
	repo     *fakeMessageRepo
	notifier *fakeNotifier
	metrics  *fakeMetrics
	client   *fakeClient
}

func newFixture(t *testing.T) *handlerFixture {
	t.Helper()

	repo := &fakeMessageRepo{}
	notifier := &fakeNotifier{}
	metrics := &fakeMetrics{}
	client := &fakeClient{}

	classifier := secret.NewClassifier(zerolog.Nop())
	capturer := secret.NewCapturer(notifier, metrics, t.TempDir(), zerolog.Nop())

	handler := NewWatchHandler(1, 999, client, repo, notifier, classifier, capturer, metrics, zerolog.Nop())

	return &handlerFixture{
		handler:  handler,
		repo:     repo,
		notifier: notifier,
		metrics:  metrics,
		client:   client,
	}
}

func incomingEvent() *entities.MessageEvent {
	return &entities.MessageEvent{
		MsgID:      42,
		ChatID:     500,
		SenderID:   500,
		SenderName: "Bob",
		Text:       "hello",
		Private:    true,
		Date:       time.Now(),
	}
}

func TestHandleNewMessage_PersistsIncoming(t *testing.T) {
	f := newFixture(t)

	f.handler.HandleNewMessage(context.Background(), incomingEvent())

	require.Len(t, f.repo.upserts, 1)
	cached := f.repo.upserts[0]
	assert.Equal(t, 42, cached.MessageID)
	assert.Equal(t, int64(1), cached.UserID)
	assert.Equal(t, "hello", cached.Content)
	assert.Equal(t, []string{""}, f.metrics.ingested)
}

func TestHandleNewMessage_MediaPlaceholder(t *testing.T) {
	f := newFixture(t)

	evt := incomingEvent()
	evt.Text = ""
	evt.MediaKind = entities.MediaPhoto

	f.handler.HandleNewMessage(context.Background(), evt)

	require.Len(t, f.repo.upserts, 1)
	assert.Equal(t, "[Photo]", f.repo.upserts[0].Content)
}

func TestHandleNewMessage_IgnoresNonPrivate(t *testing.T) {
	f := newFixture(t)

	evt := incomingEvent()
	evt.Private = false

	f.handler.HandleNewMessage(context.Background(), evt)
	assert.Empty(t, f.repo.upserts)
}

func TestHandleNewMessage_IgnoresOutgoing(t *testing.T) {
	f := newFixture(t)

	evt := incomingEvent()
	evt.Out = true

	f.handler.HandleNewMessage(context.Background(), evt)
	assert.Empty(t, f.repo.upserts)
}

func TestHandleNewMessage_IgnoresBotTraffic(t *testing.T) {
	f := newFixture(t)

	evt := incomingEvent()
	evt.ChatID = 999
	evt.SenderID = 999

	f.handler.HandleNewMessage(context.Background(), evt)
	assert.Empty(t, f.repo.upserts)
}

func TestHandleNewMessage_PersistBeforeCapture(t *testing.T) {
	f := newFixture(t)

	persistedBeforeDownload := false
	f.client.onDownload = func() {
		persistedBeforeDownload = len(f.repo.upserts) == 1
	}

	evt := incomingEvent()
	evt.Text = ""
	evt.MediaKind = entities.MediaPhoto
	evt.TTLSeconds = 60

	f.handler.HandleNewMessage(context.Background(), evt)

	assert.Equal(t, 1, f.client.downloads)
	assert.True(t, persistedBeforeDownload)
	assert.Equal(t, []string{secret.TierExplicitMarker}, f.metrics.secrets)
}

func TestHandleNewMessage_ProtectedTextNoCapture(t *testing.T) {
	f := newFixture(t)

	evt := incomingEvent()
	evt.Protected = true

	f.handler.HandleNewMessage(context.Background(), evt)

	require.Len(t, f.repo.upserts, 1)
	assert.Equal(t, []string{secret.TierExplicitMarker}, f.metrics.secrets)

	// Nothing to download for text-only protected content
	assert.Equal(t, 0, f.client.downloads)
	assert.Empty(t, f.notifier.alerts)
}

func TestHandleNewMessage_PersistFailureSkipsCapture(t *testing.T) {
	f := newFixture(t)
	f.repo.upsertErr = fmt.Errorf("database down")

	evt := incomingEvent()
	evt.TTLSeconds = 60
	evt.MediaKind = entities.MediaPhoto

	f.handler.HandleNewMessage(context.Background(), evt)

	assert.Equal(t, 0, f.client.downloads)
	assert.Empty(t, f.metrics.secrets)
}

func TestHandleEditMessage_AlertsOnChange(t *testing.T) {
	f := newFixture(t)
	f.repo.stored = &entities.CachedMessage{
		MessageID: 42,
		ChatID:    500,
		UserID:    1,
		Content:   "original text",
	}

	evt := incomingEvent()
	evt.Text = "edited text"

	f.handler.HandleEditMessage(context.Background(), evt)

	assert.Equal(t, 1, f.metrics.edits)
	require.Len(t, f.notifier.alerts, 1)
	assert.Contains(t, f.notifier.alerts[0], "original text")
	assert.Contains(t, f.notifier.alerts[0], "edited text")

	// The new state replaces the cached snapshot
	require.Len(t, f.repo.upserts, 1)
	assert.Equal(t, "edited text", f.repo.upserts[0].Content)
}

func TestHandleEditMessage_NoAlertWhenUnchanged(t *testing.T) {
	f := newFixture(t)
	f.repo.stored = &entities.CachedMessage{
		MessageID: 42,
		Content:   "hello",
	}

	f.handler.HandleEditMessage(context.Background(), incomingEvent())

	assert.Equal(t, 0, f.metrics.edits)
	assert.Empty(t, f.notifier.alerts)
	// Snapshot is still refreshed
	assert.Len(t, f.repo.upserts, 1)
}

func TestHandleEditMessage_UnknownMessageCached(t *testing.T) {
	f := newFixture(t)

	f.handler.HandleEditMessage(context.Background(), incomingEvent())

	assert.Empty(t, f.notifier.alerts)
	assert.Equal(t, 0, f.metrics.edits)
	require.Len(t, f.repo.upserts, 1)
	assert.Equal(t, "hello", f.repo.upserts[0].Content)
}

func TestNewSinkFactory(t *testing.T) {
	repo := &fakeMessageRepo{}
	notifier := &fakeNotifier{}
	metrics := &fakeMetrics{}
	classifier := secret.NewClassifier(zerolog.Nop())
	capturer := secret.NewCapturer(notifier, metrics, t.TempDir(), zerolog.Nop())

	factory := NewSinkFactory(&config.BotConfig{Token: "999:token"}, repo, notifier, classifier, capturer, metrics, zerolog.Nop())

	sink := factory(7, &fakeClient{})
	require.NotNil(t, sink)

	sink.HandleNewMessage(context.Background(), incomingEvent())
	require.Len(t, repo.upserts, 1)
	assert.Equal(t, int64(7), repo.upserts[0].UserID)
}
