package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDirectMessage(t *testing.T) {
	tests := []struct {
		name      string
		sender    string
		recipient string
		kind      MessageType
		content   string
		fileURL   string
		wantErr   error
	}{
		{name: "text message", sender: "a", recipient: "b", kind: MessageTypeText, content: "hi"},
		{name: "default type is text", sender: "a", recipient: "b", content: "hi"},
		{name: "file message", sender: "a", recipient: "b", kind: MessageTypeFile, fileURL: "files/x.png"},
		{name: "missing sender", recipient: "b", kind: MessageTypeText, content: "hi", wantErr: ErrSenderRequired},
		{name: "missing recipient", sender: "a", kind: MessageTypeText, content: "hi", wantErr: ErrRecipientRequired},
		{name: "blank text", sender: "a", recipient: "b", kind: MessageTypeText, content: "   ", wantErr: ErrContentRequired},
		{name: "file without url", sender: "a", recipient: "b", kind: MessageTypeFile, content: "x", wantErr: ErrFileURLRequired},
		{name: "unknown type", sender: "a", recipient: "b", kind: "audio", content: "x", wantErr: ErrInvalidMessageType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewDirectMessage(tt.sender, tt.recipient, tt.kind, tt.content, tt.fileURL)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, IsValidationError(err))
				assert.Nil(t, m)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.sender, m.SenderID)
			require.NotNil(t, m.RecipientID)
			assert.Equal(t, tt.recipient, *m.RecipientID)
			assert.Nil(t, m.ChannelID)
			assert.True(t, m.IsDirect())
			assert.False(t, m.Seen)
		})
	}
}

func TestNewChannelMessage(t *testing.T) {
	m, err := NewChannelMessage("a", "ch1", MessageTypeText, "  hello  ", "")
	require.NoError(t, err)
	assert.Equal(t, "hello", m.Content)
	require.NotNil(t, m.ChannelID)
	assert.Equal(t, "ch1", *m.ChannelID)
	assert.Nil(t, m.RecipientID)
	assert.False(t, m.IsDirect())

	_, err = NewChannelMessage("a", "", MessageTypeText, "hello", "")
	assert.ErrorIs(t, err, ErrChannelRequired)
}

func TestMessage_Correspondent(t *testing.T) {
	m, err := NewDirectMessage("a", "b", MessageTypeText, "hi", "")
	require.NoError(t, err)

	assert.Equal(t, "b", m.Correspondent("a"))
	assert.Equal(t, "a", m.Correspondent("b"))
}

func TestPopulate(t *testing.T) {
	m, err := NewDirectMessage("a", "b", MessageTypeText, "hi", "")
	require.NoError(t, err)
	m.ID = "m1"

	pm := Populate(*m, map[string]UserSnippet{
		"a": {ID: "a", Email: "a@example.com", FirstName: "Ada"},
	})

	assert.Equal(t, "m1", pm.ID)
	assert.Equal(t, "Ada", pm.Sender.FirstName)
	require.NotNil(t, pm.Recipient)
	assert.Equal(t, "b", pm.Recipient.ID)
	assert.Empty(t, pm.Recipient.Email)
	assert.Empty(t, pm.ChannelID)
}

func TestEvent_RoundTrip(t *testing.T) {
	ev, err := NewEvent(EventUserStatusChanged, UserStatusPayload{UserID: "u1", IsOnline: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"userId":"u1","isOnline":true}`, string(ev.Data))

	var p UserStatusPayload
	require.NoError(t, ev.Decode(&p))
	assert.Equal(t, "u1", p.UserID)
	assert.True(t, p.IsOnline)
}

func TestUserSnippet_DisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", UserSnippet{FirstName: "Ada", LastName: "Lovelace"}.DisplayName())
	assert.Equal(t, "Ada", UserSnippet{FirstName: "Ada"}.DisplayName())
	assert.Equal(t, "ada@example.com", UserSnippet{Email: "ada@example.com"}.DisplayName())
	assert.Equal(t, "u1", UserSnippet{ID: "u1"}.DisplayName())
}
