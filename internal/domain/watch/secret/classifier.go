// Package secret detects and captures self-destructing media before it
// disappears from the conversation.
package secret

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"

	"github.com/Conte777/ChatSentinel/internal/domain"
	"github.com/Conte777/ChatSentinel/internal/domain/watch/entities"
)

// Classification tiers, strongest evidence first
const (
	TierExplicitMarker = "explicit_marker"
	TierMediaAttr      = "media_attr"
	TierRefetchProbe   = "refetch_probe"
	TierRawScan        = "raw_scan"
)

// rawScanKeywords are matched against the lowercased raw message dump.
// The scan is a last resort for payload shapes the typed checks miss.
var rawScanKeywords = []string{
	"ttl_period",
	"view_once",
	"expire",
	"ttl_seconds",
	"destroy",
	"ttl",
}

// Verdict is the result of classifying one message event
type Verdict struct {
	Secret bool
	Tier   string
	// Kind is the possibly refined media kind to capture
	Kind entities.MediaKind
}

// Refetcher re-reads a message from the backend for the probe tier
type Refetcher interface {
	RefetchMessage(ctx context.Context, chatID int64, msgID int) (*entities.MessageEvent, error)
}

// Classifier decides whether a message carries secret media.
// Tiers are ranked; the first decisive verdict wins and later tiers
// only run when the earlier ones could not decide.
type Classifier struct {
	settleDelay time.Duration
	logger      zerolog.Logger
}

// NewClassifier creates a classifier with the default probe settle delay
func NewClassifier(logger zerolog.Logger) *Classifier {
	return &Classifier{
		settleDelay: 2 * time.Second,
		logger:      logger.With().Str("component", "secret_classifier").Logger(),
	}
}

// Classify runs the tier chain on the event.
// The caller must have persisted the event before calling: the probe tier
// talks to the backend and may observe the message disappearing.
func (c *Classifier) Classify(ctx context.Context, evt *entities.MessageEvent, refetcher Refetcher) Verdict {
	if evt == nil {
		return Verdict{}
	}

	// Tier 1: explicit markers on the normalized event
	if v, decisive := c.checkExplicitMarkers(evt); decisive {
		return v
	}

	// Tier 2: nested media attributes the normalizer may have missed
	if v, decisive := c.checkMediaAttributes(evt); decisive {
		return v
	}

	// Tier 3: unsupported payloads are re-read after a settle delay
	if v, decisive := c.probeUnsupported(ctx, evt, refetcher); decisive {
		return v
	}

	// Tier 4: raw dump keyword scan
	return c.scanRawDump(evt)
}

// checkExplicitMarkers matches self-destruct timers and protected content
func (c *Classifier) checkExplicitMarkers(evt *entities.MessageEvent) (Verdict, bool) {
	if evt.TTLSeconds > 0 || evt.Protected {
		return Verdict{Secret: true, Tier: TierExplicitMarker, Kind: evt.MediaKind}, true
	}
	return Verdict{}, false
}

// checkMediaAttributes inspects the raw media payload directly
func (c *Classifier) checkMediaAttributes(evt *entities.MessageEvent) (Verdict, bool) {
	if evt.Raw == nil || evt.Raw.Media == nil {
		return Verdict{}, false
	}

	var ttl int
	switch m := evt.Raw.Media.(type) {
	case *tg.MessageMediaPhoto:
		ttl, _ = m.GetTTLSeconds()
	case *tg.MessageMediaDocument:
		ttl, _ = m.GetTTLSeconds()
	default:
		return Verdict{}, false
	}

	// The view-once sentinel is a large positive TTL, so one check covers
	// both timed and view-once media
	if ttl > 0 {
		return Verdict{Secret: true, Tier: TierMediaAttr, Kind: evt.MediaKind}, true
	}
	return Verdict{}, false
}

// probeUnsupported re-reads unsupported payloads after a settle delay.
// Media the transport cannot represent yet is frequently view-once sent
// from a newer client; a fresh read often comes back in a typed form.
func (c *Classifier) probeUnsupported(ctx context.Context, evt *entities.MessageEvent, refetcher Refetcher) (Verdict, bool) {
	if evt.MediaKind != entities.MediaUnsupported || refetcher == nil {
		return Verdict{}, false
	}

	select {
	case <-time.After(c.settleDelay):
	case <-ctx.Done():
		return Verdict{}, false
	}

	fresh, err := refetcher.RefetchMessage(ctx, evt.ChatID, evt.MsgID)
	if errors.Is(err, domain.ErrMessageNotFound) {
		// Gone within the settle window: view-once media consumed on arrival
		c.logger.Info().
			Int("msg_id", evt.MsgID).
			Int64("chat_id", evt.ChatID).
			Msg("probed message already gone, treating as view-once")
		return Verdict{Secret: true, Tier: TierRefetchProbe, Kind: evt.MediaKind}, true
	}
	if err != nil {
		c.logger.Debug().Err(err).
			Int("msg_id", evt.MsgID).
			Int64("chat_id", evt.ChatID).
			Msg("refetch probe failed")
		return Verdict{}, false
	}

	if v, decisive := c.checkExplicitMarkers(fresh); decisive {
		v.Tier = TierRefetchProbe
		// Keep the raw payload of the fresh read for the download
		*evt = *fresh
		return v, true
	}
	if v, decisive := c.checkMediaAttributes(fresh); decisive {
		v.Tier = TierRefetchProbe
		*evt = *fresh
		return v, true
	}

	return Verdict{}, false
}

// scanRawDump runs the keyword scan over the raw message dump.
// Only contentless messages are scanned; anything with text or a
// recognized media kind was already handled by the typed tiers.
func (c *Classifier) scanRawDump(evt *entities.MessageEvent) Verdict {
	if evt.Raw == nil || evt.Text != "" {
		return Verdict{}
	}
	if evt.MediaKind != entities.MediaUnsupported && evt.MediaKind != entities.MediaOther {
		return Verdict{}
	}

	dump := strings.ToLower(evt.Raw.String())
	for _, keyword := range rawScanKeywords {
		if strings.Contains(dump, keyword) {
			kind := evt.MediaKind
			if inferred := inferKindFromDump(dump); inferred != entities.MediaNone {
				kind = inferred
			}
			c.logger.Debug().
				Int("msg_id", evt.MsgID).
				Str("keyword", keyword).
				Str("kind", string(kind)).
				Msg("raw dump scan matched")
			return Verdict{Secret: true, Tier: TierRawScan, Kind: kind}
		}
	}
	return Verdict{}
}

// inferKindFromDump guesses the media kind from the raw dump
func inferKindFromDump(dump string) entities.MediaKind {
	switch {
	case strings.Contains(dump, "roundmessage:true"):
		return entities.MediaVideoNote
	case strings.Contains(dump, "voice:true"):
		return entities.MediaVoice
	case strings.Contains(dump, "messagemediaphoto"):
		return entities.MediaPhoto
	case strings.Contains(dump, "documentattributevideo"):
		return entities.MediaVideo
	default:
		return entities.MediaNone
	}
}
