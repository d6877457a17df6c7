package telegram

import (
	"strings"
	"time"

	"github.com/gotd/td/tg"

	"github.com/Conte777/ChatSentinel/internal/domain/watch/entities"
	"github.com/Conte777/ChatSentinel/internal/infrastructure/telegram/fileid"
)

// parseMessage normalizes a transport message into a MessageEvent.
// Returns nil for service messages and empty messages.
func parseMessage(msg *tg.Message, users map[int64]*tg.User, selfID int64) *entities.MessageEvent {
	if msg == nil {
		return nil
	}

	evt := &entities.MessageEvent{
		MsgID:     msg.ID,
		Out:       msg.Out,
		Protected: msg.Noforwards,
		Text:      msg.Message,
		Date:      time.Unix(int64(msg.Date), 0),
		Raw:       msg,
	}

	peerUser, ok := msg.PeerID.(*tg.PeerUser)
	if ok {
		evt.Private = true
		evt.ChatID = peerUser.UserID
	}

	// In private chats FromID is usually unset; the sender is either
	// the counterpart or the session owner for outgoing messages
	switch {
	case msg.Out:
		evt.SenderID = selfID
	default:
		if from, ok := msg.FromID.(*tg.PeerUser); ok {
			evt.SenderID = from.UserID
		} else if evt.Private {
			evt.SenderID = evt.ChatID
		}
	}

	if sender, ok := users[evt.SenderID]; ok {
		evt.SenderName = displayName(sender)
		evt.SenderUsername, _ = sender.GetUsername()
	}
	if evt.SenderName == "" {
		evt.SenderName = "Unknown"
	}

	// For one-to-one chats the title is the counterpart's name
	if evt.Private {
		if peer, ok := users[evt.ChatID]; ok {
			evt.ChatTitle = displayName(peer)
		}
	}

	kind, ttl := detectMedia(msg.Media)
	evt.MediaKind = kind
	evt.TTLSeconds = ttl
	if msg.Media != nil {
		evt.MediaRef = fileid.FromMedia(msg.Media, kind)
	}

	return evt
}

// detectMedia classifies the attached media and extracts its self-destruct timer
func detectMedia(media tg.MessageMediaClass) (entities.MediaKind, int) {
	switch m := media.(type) {
	case nil:
		return entities.MediaNone, 0
	case *tg.MessageMediaPhoto:
		ttl, _ := m.GetTTLSeconds()
		return entities.MediaPhoto, ttl
	case *tg.MessageMediaDocument:
		ttl, _ := m.GetTTLSeconds()
		doc, ok := m.Document.(*tg.Document)
		if !ok {
			return entities.MediaDocument, ttl
		}
		return documentKind(doc), ttl
	case *tg.MessageMediaUnsupported:
		return entities.MediaUnsupported, 0
	case *tg.MessageMediaWebPage:
		// Link previews carry no downloadable payload
		return entities.MediaNone, 0
	default:
		return entities.MediaOther, 0
	}
}

// documentKind derives the media kind from document attributes
func documentKind(doc *tg.Document) entities.MediaKind {
	var video *tg.DocumentAttributeVideo

	for _, attr := range doc.Attributes {
		switch a := attr.(type) {
		case *tg.DocumentAttributeVideo:
			video = a
		case *tg.DocumentAttributeAudio:
			if a.Voice {
				return entities.MediaVoice
			}
			return entities.MediaAudio
		case *tg.DocumentAttributeSticker:
			return entities.MediaSticker
		case *tg.DocumentAttributeAnimated:
			return entities.MediaAnimation
		}
	}

	if video != nil {
		if video.RoundMessage {
			return entities.MediaVideoNote
		}
		return entities.MediaVideo
	}
	return entities.MediaDocument
}

// displayName builds a human-readable user name
func displayName(user *tg.User) string {
	first, _ := user.GetFirstName()
	last, _ := user.GetLastName()
	name := strings.TrimSpace(first + " " + last)
	if name != "" {
		return name
	}
	if username, ok := user.GetUsername(); ok && username != "" {
		return "@" + username
	}
	return "Unknown"
}

// usersFromClasses builds a user lookup map from a raw API result
func usersFromClasses(users []tg.UserClass) map[int64]*tg.User {
	m := make(map[int64]*tg.User, len(users))
	for _, u := range users {
		if user, ok := u.(*tg.User); ok {
			m[user.ID] = user
		}
	}
	return m
}
