package telegram

import (
	"testing"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/ChatSentinel/internal/domain/watch/entities"
)

func testUser(id int64, first, username string) *tg.User {
	u := &tg.User{ID: id}
	u.SetFirstName(first)
	if username != "" {
		u.SetUsername(username)
	}
	return u
}

func TestParseMessage_IncomingPrivate(t *testing.T) {
	msg := &tg.Message{
		ID:      42,
		PeerID:  &tg.PeerUser{UserID: 500},
		Message: "hello",
		Date:    1700000000,
	}
	users := map[int64]*tg.User{500: testUser(500, "Alice", "alice")}

	evt := parseMessage(msg, users, 1)
	require.NotNil(t, evt)

	assert.Equal(t, 42, evt.MsgID)
	assert.True(t, evt.Private)
	assert.False(t, evt.Out)
	assert.Equal(t, int64(500), evt.ChatID)
	assert.Equal(t, int64(500), evt.SenderID)
	assert.Equal(t, "Alice", evt.SenderName)
	assert.Equal(t, "alice", evt.SenderUsername)
	assert.Equal(t, "Alice", evt.ChatTitle)
	assert.Equal(t, "hello", evt.Text)
	assert.Equal(t, entities.MediaNone, evt.MediaKind)
	assert.Same(t, msg, evt.Raw)
}

func TestParseMessage_Outgoing(t *testing.T) {
	msg := &tg.Message{
		ID:     43,
		Out:    true,
		PeerID: &tg.PeerUser{UserID: 500},
	}

	evt := parseMessage(msg, nil, 1)
	require.NotNil(t, evt)
	assert.True(t, evt.Out)
	assert.Equal(t, int64(1), evt.SenderID)
}

func TestParseMessage_GroupChatNotPrivate(t *testing.T) {
	msg := &tg.Message{
		ID:     44,
		PeerID: &tg.PeerChat{ChatID: 900},
	}

	evt := parseMessage(msg, nil, 1)
	require.NotNil(t, evt)
	assert.False(t, evt.Private)
}

func TestParseMessage_ProtectedContent(t *testing.T) {
	msg := &tg.Message{
		ID:         45,
		PeerID:     &tg.PeerUser{UserID: 500},
		Noforwards: true,
	}

	evt := parseMessage(msg, nil, 1)
	require.NotNil(t, evt)
	assert.True(t, evt.Protected)
}

func TestParseMessage_SelfDestructPhoto(t *testing.T) {
	media := &tg.MessageMediaPhoto{}
	media.SetTTLSeconds(60)

	msg := &tg.Message{
		ID:     46,
		PeerID: &tg.PeerUser{UserID: 500},
		Media:  media,
	}

	evt := parseMessage(msg, nil, 1)
	require.NotNil(t, evt)
	assert.Equal(t, entities.MediaPhoto, evt.MediaKind)
	assert.Equal(t, 60, evt.TTLSeconds)
}

func TestDetectMedia(t *testing.T) {
	voiceDoc := &tg.Document{Attributes: []tg.DocumentAttributeClass{
		&tg.DocumentAttributeAudio{Voice: true},
	}}
	audioDoc := &tg.Document{Attributes: []tg.DocumentAttributeClass{
		&tg.DocumentAttributeAudio{},
	}}
	roundDoc := &tg.Document{Attributes: []tg.DocumentAttributeClass{
		&tg.DocumentAttributeVideo{RoundMessage: true},
	}}
	videoDoc := &tg.Document{Attributes: []tg.DocumentAttributeClass{
		&tg.DocumentAttributeVideo{},
	}}
	stickerDoc := &tg.Document{Attributes: []tg.DocumentAttributeClass{
		&tg.DocumentAttributeSticker{},
	}}
	plainDoc := &tg.Document{}

	newDocMedia := func(doc *tg.Document) *tg.MessageMediaDocument {
		m := &tg.MessageMediaDocument{}
		m.SetDocument(doc)
		return m
	}

	tests := []struct {
		name  string
		media tg.MessageMediaClass
		want  entities.MediaKind
	}{
		{"none", nil, entities.MediaNone},
		{"photo", &tg.MessageMediaPhoto{}, entities.MediaPhoto},
		{"voice", newDocMedia(voiceDoc), entities.MediaVoice},
		{"audio", newDocMedia(audioDoc), entities.MediaAudio},
		{"video note", newDocMedia(roundDoc), entities.MediaVideoNote},
		{"video", newDocMedia(videoDoc), entities.MediaVideo},
		{"sticker", newDocMedia(stickerDoc), entities.MediaSticker},
		{"plain document", newDocMedia(plainDoc), entities.MediaDocument},
		{"unsupported", &tg.MessageMediaUnsupported{}, entities.MediaUnsupported},
		{"webpage", &tg.MessageMediaWebPage{}, entities.MediaNone},
		{"geo", &tg.MessageMediaGeo{}, entities.MediaOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, _ := detectMedia(tt.media)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestDisplayName(t *testing.T) {
	full := &tg.User{}
	full.SetFirstName("Alice")
	full.SetLastName("Smith")
	assert.Equal(t, "Alice Smith", displayName(full))

	usernameOnly := &tg.User{}
	usernameOnly.SetUsername("bob")
	assert.Equal(t, "@bob", displayName(usernameOnly))

	assert.Equal(t, "Unknown", displayName(&tg.User{}))
}

func TestMaskPhoneNumber(t *testing.T) {
	assert.Equal(t, "+1******89", maskPhoneNumber("+123456789"))
	assert.Equal(t, "***", maskPhoneNumber("12"))
}
