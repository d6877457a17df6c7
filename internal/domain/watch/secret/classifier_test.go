package secret

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/ChatSentinel/internal/domain"
	"github.com/Conte777/ChatSentinel/internal/domain/watch/entities"
)

// viewOnceTTL is the sentinel TTL the backend sets on view-once media
const viewOnceTTL = 1<<31 - 1

type fakeRefetcher struct {
	fresh *entities.MessageEvent
	err   error
	calls int
}

func (f *fakeRefetcher) RefetchMessage(ctx context.Context, chatID int64, msgID int) (*entities.MessageEvent, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.fresh, nil
}

func newTestClassifier() *Classifier {
	c := NewClassifier(zerolog.Nop())
	c.settleDelay = time.Millisecond
	return c
}

func TestClassify_ExplicitTTL(t *testing.T) {
	c := newTestClassifier()

	evt := &entities.MessageEvent{
		MsgID:      1,
		ChatID:     100,
		MediaKind:  entities.MediaPhoto,
		TTLSeconds: 60,
	}

	v := c.Classify(context.Background(), evt, nil)
	require.True(t, v.Secret)
	assert.Equal(t, TierExplicitMarker, v.Tier)
	assert.Equal(t, entities.MediaPhoto, v.Kind)
}

func TestClassify_ProtectedContent(t *testing.T) {
	c := newTestClassifier()

	evt := &entities.MessageEvent{
		MsgID:     2,
		MediaKind: entities.MediaVideo,
		Protected: true,
	}

	v := c.Classify(context.Background(), evt, nil)
	require.True(t, v.Secret)
	assert.Equal(t, TierExplicitMarker, v.Tier)
}

func TestClassify_MediaAttributeTTL(t *testing.T) {
	c := newTestClassifier()

	media := &tg.MessageMediaPhoto{}
	media.SetTTLSeconds(30)

	evt := &entities.MessageEvent{
		MsgID:     3,
		MediaKind: entities.MediaPhoto,
		Raw:       &tg.Message{Media: media},
	}

	v := c.Classify(context.Background(), evt, nil)
	require.True(t, v.Secret)
	assert.Equal(t, TierMediaAttr, v.Tier)
}

func TestClassify_ViewOnceSentinel(t *testing.T) {
	c := newTestClassifier()

	media := &tg.MessageMediaDocument{}
	media.SetTTLSeconds(viewOnceTTL)

	evt := &entities.MessageEvent{
		MsgID:     4,
		MediaKind: entities.MediaVoice,
		Raw:       &tg.Message{Media: media},
	}

	v := c.Classify(context.Background(), evt, nil)
	require.True(t, v.Secret)
	assert.Equal(t, TierMediaAttr, v.Tier)
	assert.Equal(t, entities.MediaVoice, v.Kind)
}

func TestClassify_RefetchProbe(t *testing.T) {
	c := newTestClassifier()

	freshMedia := &tg.MessageMediaDocument{}
	freshMedia.SetTTLSeconds(viewOnceTTL)
	fresh := &entities.MessageEvent{
		MsgID:     5,
		ChatID:    100,
		MediaKind: entities.MediaVideoNote,
		Raw:       &tg.Message{Media: freshMedia},
	}

	refetcher := &fakeRefetcher{fresh: fresh}
	evt := &entities.MessageEvent{
		MsgID:     5,
		ChatID:    100,
		MediaKind: entities.MediaUnsupported,
		Raw:       &tg.Message{Media: &tg.MessageMediaUnsupported{}},
	}

	v := c.Classify(context.Background(), evt, refetcher)
	require.True(t, v.Secret)
	assert.Equal(t, TierRefetchProbe, v.Tier)
	assert.Equal(t, 1, refetcher.calls)

	// The event carries the fresh payload so capture downloads the typed media
	assert.Equal(t, entities.MediaVideoNote, evt.MediaKind)
	assert.Same(t, fresh.Raw, evt.Raw)
}

func TestClassify_RefetchProbeAbsent(t *testing.T) {
	c := newTestClassifier()

	// The message vanished within the settle window: consumed view-once
	refetcher := &fakeRefetcher{err: domain.ErrMessageNotFound}
	evt := &entities.MessageEvent{
		MsgID:     6,
		ChatID:    100,
		MediaKind: entities.MediaUnsupported,
	}

	v := c.Classify(context.Background(), evt, refetcher)
	require.True(t, v.Secret)
	assert.Equal(t, TierRefetchProbe, v.Tier)
	assert.Equal(t, 1, refetcher.calls)
}

func TestClassify_RefetchProbeTransientError(t *testing.T) {
	c := newTestClassifier()

	// Transport errors are not evidence, the lower tiers decide
	refetcher := &fakeRefetcher{err: fmt.Errorf("FLOOD_WAIT (5)")}
	evt := &entities.MessageEvent{
		MsgID:     6,
		MediaKind: entities.MediaUnsupported,
	}

	v := c.Classify(context.Background(), evt, refetcher)
	assert.False(t, v.Secret)
	assert.Equal(t, 1, refetcher.calls)
}

func TestClassify_RawScanKeyword(t *testing.T) {
	c := newTestClassifier()

	raw := &tg.Message{Media: &tg.MessageMediaUnsupported{}}
	raw.SetTTLPeriod(42)

	evt := &entities.MessageEvent{
		MsgID:     7,
		MediaKind: entities.MediaUnsupported,
		Raw:       raw,
	}

	v := c.Classify(context.Background(), evt, nil)
	require.True(t, v.Secret)
	assert.Equal(t, TierRawScan, v.Tier)
}

func TestClassify_PlainTextNotSecret(t *testing.T) {
	c := newTestClassifier()

	evt := &entities.MessageEvent{
		MsgID: 8,
		Text:  "hello there",
		Raw:   &tg.Message{Message: "hello there"},
	}

	v := c.Classify(context.Background(), evt, nil)
	assert.False(t, v.Secret)
	assert.Empty(t, v.Tier)
}

func TestClassify_RegularMediaNotSecret(t *testing.T) {
	c := newTestClassifier()

	evt := &entities.MessageEvent{
		MsgID:     9,
		MediaKind: entities.MediaPhoto,
		Raw:       &tg.Message{Media: &tg.MessageMediaPhoto{}},
	}

	v := c.Classify(context.Background(), evt, nil)
	assert.False(t, v.Secret)
}

func TestClassify_NilEvent(t *testing.T) {
	c := newTestClassifier()
	v := c.Classify(context.Background(), nil, nil)
	assert.False(t, v.Secret)
}
