package entities

import (
	"time"

	"github.com/gotd/td/tg"
)

// MediaKind identifies the kind of media attached to a message
type MediaKind string

const (
	MediaNone        MediaKind = ""
	MediaPhoto       MediaKind = "photo"
	MediaVideo       MediaKind = "video"
	MediaVoice       MediaKind = "voice"
	MediaVideoNote   MediaKind = "video_note"
	MediaAudio       MediaKind = "audio"
	MediaDocument    MediaKind = "document"
	MediaSticker     MediaKind = "sticker"
	MediaAnimation   MediaKind = "animation"
	MediaUnsupported MediaKind = "unsupported"
	MediaOther       MediaKind = "media"
)

// Placeholder returns the text stored for media messages without a caption
func (k MediaKind) Placeholder() string {
	switch k {
	case MediaPhoto:
		return "[Photo]"
	case MediaVideo:
		return "[Video]"
	case MediaVoice:
		return "[Voice message]"
	case MediaVideoNote:
		return "[Video note]"
	case MediaAudio:
		return "[Audio]"
	case MediaDocument:
		return "[File]"
	case MediaSticker:
		return "[Sticker]"
	case MediaAnimation:
		return "[GIF]"
	case MediaNone:
		return ""
	default:
		return "[Media]"
	}
}

// ArtifactExt returns the file extension used for captured artifacts of this kind
func (k MediaKind) ArtifactExt() string {
	switch k {
	case MediaPhoto, MediaSticker:
		return ".jpg"
	case MediaVideo, MediaVideoNote, MediaAnimation:
		return ".mp4"
	case MediaVoice:
		return ".ogg"
	default:
		return ".bin"
	}
}

// MessageEvent is a normalized incoming or edited message from a watcher session
type MessageEvent struct {
	MsgID          int
	ChatID         int64
	SenderID       int64
	SenderName     string
	SenderUsername string
	ChatTitle      string
	Text           string
	MediaKind      MediaKind
	MediaRef       string // Bot API file_id when encodable, empty otherwise
	TTLSeconds     int
	Protected      bool
	Out            bool
	Private        bool
	Date           time.Time

	// Raw keeps the transport message for media download and deep inspection
	Raw *tg.Message
}

// HasMedia reports whether the event carries downloadable media
func (e *MessageEvent) HasMedia() bool {
	return e.MediaKind != MediaNone
}

// SenderDisplay returns the sender name with username when known
func (e *MessageEvent) SenderDisplay() string {
	if e.SenderUsername != "" {
		return e.SenderName + " (@" + e.SenderUsername + ")"
	}
	return e.SenderName
}

// CachedMessage is the persisted snapshot of a watched message
type CachedMessage struct {
	MessageID      int
	ChatID         int64
	UserID         int64
	SenderID       int64
	SenderName     string
	SenderUsername string
	ChatTitle      string
	Content        string
	MediaKind      MediaKind
	MediaRef       string
	CapturedAt     time.Time
}

// ExcludedChat marks a chat the user opted out of watching
type ExcludedChat struct {
	UserID int64
	ChatID int64
	Title  string
}

// Credential is a stored watcher session for one user
type Credential struct {
	UserID  int64
	Session []byte
}
