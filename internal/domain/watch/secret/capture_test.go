package secret

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/ChatSentinel/internal/domain/watch/entities"
)

type fakeDownloader struct {
	memData   []byte
	memErr    error
	fileErr   error
	saveErr   error
	saveCalls int
}

func (f *fakeDownloader) DownloadInMemory(ctx context.Context, evt *entities.MessageEvent) ([]byte, error) {
	if f.memErr != nil {
		return nil, f.memErr
	}
	return f.memData, nil
}

func (f *fakeDownloader) DownloadToFile(ctx context.Context, evt *entities.MessageEvent, path string) error {
	if f.fileErr != nil {
		return f.fileErr
	}
	return os.WriteFile(path, []byte("disk-payload"), 0o600)
}

func (f *fakeDownloader) SaveToSelfArchive(ctx context.Context, path string, caption string) error {
	f.saveCalls++
	return f.saveErr
}

type fakeNotifier struct {
	alerts     []string
	mediaPaths []string
	mediaErr   error
	alertErr   error
}

func (f *fakeNotifier) SendAlert(ctx context.Context, userID int64, text string) error {
	if f.alertErr != nil {
		return f.alertErr
	}
	f.alerts = append(f.alerts, text)
	return nil
}

func (f *fakeNotifier) SendMediaFile(ctx context.Context, userID int64, kind entities.MediaKind, path, caption string) error {
	if f.mediaErr != nil {
		return f.mediaErr
	}
	f.mediaPaths = append(f.mediaPaths, path)
	return nil
}

func (f *fakeNotifier) SendMediaRef(ctx context.Context, userID int64, kind entities.MediaKind, fileID, caption string) error {
	return nil
}

type fakeMetrics struct {
	outcomes []string
}

func (f *fakeMetrics) EventIngested(kind string)         {}
func (f *fakeMetrics) EditDetected()                     {}
func (f *fakeMetrics) SecretDetected(tier string)        {}
func (f *fakeMetrics) CaptureResult(outcome string)      { f.outcomes = append(f.outcomes, outcome) }
func (f *fakeMetrics) DeletionDetected()                 {}
func (f *fakeMetrics) SweepCompleted(_ time.Duration)    {}
func (f *fakeMetrics) SweepSkipped()                     {}
func (f *fakeMetrics) NotifyError()                      {}

func testEvent() *entities.MessageEvent {
	return &entities.MessageEvent{
		MsgID:      10,
		ChatID:     200,
		SenderName: "Alice",
		ChatTitle:  "Alice",
		MediaKind:  entities.MediaPhoto,
	}
}

func artifactCount(t *testing.T, dir string) int {
	t.Helper()
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(files)
}

func TestCapture_ForwardedFromMemory(t *testing.T) {
	dir := t.TempDir()
	notifier := &fakeNotifier{}
	metrics := &fakeMetrics{}
	dl := &fakeDownloader{memData: []byte("mem-payload")}

	c := NewCapturer(notifier, metrics, dir, zerolog.Nop())
	c.Capture(context.Background(), 1, dl, testEvent(), entities.MediaPhoto)

	require.Len(t, notifier.mediaPaths, 1)
	assert.Equal(t, []string{OutcomeForwarded}, metrics.outcomes)
	assert.Empty(t, notifier.alerts)

	// Artifact is removed after delivery
	assert.Equal(t, 0, artifactCount(t, dir))
}

func TestCapture_DiskFallback(t *testing.T) {
	dir := t.TempDir()
	notifier := &fakeNotifier{}
	metrics := &fakeMetrics{}
	dl := &fakeDownloader{memErr: fmt.Errorf("stream failed")}

	c := NewCapturer(notifier, metrics, dir, zerolog.Nop())
	c.Capture(context.Background(), 1, dl, testEvent(), entities.MediaVideo)

	require.Len(t, notifier.mediaPaths, 1)
	assert.Equal(t, filepath.Dir(notifier.mediaPaths[0]), dir)
	assert.Equal(t, []string{OutcomeForwarded}, metrics.outcomes)
}

func TestCapture_DownloadUnavailable(t *testing.T) {
	dir := t.TempDir()
	notifier := &fakeNotifier{}
	metrics := &fakeMetrics{}
	dl := &fakeDownloader{
		memErr:  fmt.Errorf("stream failed"),
		fileErr: fmt.Errorf("file failed"),
	}

	c := NewCapturer(notifier, metrics, dir, zerolog.Nop())
	c.Capture(context.Background(), 1, dl, testEvent(), entities.MediaPhoto)

	assert.Equal(t, []string{OutcomeUnavailable}, metrics.outcomes)
	require.Len(t, notifier.alerts, 1)
	assert.Contains(t, notifier.alerts[0], "could not be downloaded")
	assert.Equal(t, 0, dl.saveCalls)
}

func TestCapture_SelfArchiveFallback(t *testing.T) {
	dir := t.TempDir()
	notifier := &fakeNotifier{mediaErr: fmt.Errorf("bot send failed")}
	metrics := &fakeMetrics{}
	dl := &fakeDownloader{memData: []byte("mem-payload")}

	c := NewCapturer(notifier, metrics, dir, zerolog.Nop())
	c.Capture(context.Background(), 1, dl, testEvent(), entities.MediaPhoto)

	assert.Equal(t, 1, dl.saveCalls)
	assert.Equal(t, []string{OutcomeSelfArchived}, metrics.outcomes)
	assert.Empty(t, notifier.alerts)
	assert.Equal(t, 0, artifactCount(t, dir))
}

func TestCapture_AllDeliveryFailed(t *testing.T) {
	dir := t.TempDir()
	notifier := &fakeNotifier{mediaErr: fmt.Errorf("bot send failed")}
	metrics := &fakeMetrics{}
	dl := &fakeDownloader{
		memData: []byte("mem-payload"),
		saveErr: fmt.Errorf("archive failed"),
	}

	c := NewCapturer(notifier, metrics, dir, zerolog.Nop())
	c.Capture(context.Background(), 1, dl, testEvent(), entities.MediaPhoto)

	assert.Equal(t, []string{OutcomeLost}, metrics.outcomes)
	require.Len(t, notifier.alerts, 1)
	assert.Contains(t, notifier.alerts[0], "could not be delivered")
	assert.Equal(t, 0, artifactCount(t, dir))
}
