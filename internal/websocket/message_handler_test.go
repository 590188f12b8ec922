package websocket

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"livechat/internal/channel"
	"livechat/pkg/chat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func lastError(t *testing.T, c *fakeConn) chat.ErrorPayload {
	t.Helper()
	events := c.named(chat.EventError)
	require.NotEmpty(t, events)
	var p chat.ErrorPayload
	require.NoError(t, events[len(events)-1].Decode(&p))
	return p
}

func TestMessageHandler_SendMessage(t *testing.T) {
	e := newEnv(t)
	mh := NewMessageHandler(e.router, zap.NewNop())
	alice := newFakeConn("c1", "alice")
	bob := newFakeConn("c2", "bob")
	e.registry.Register("alice", alice)
	e.registry.Register("bob", bob)

	mh.HandleMessage(context.Background(), alice,
		[]byte(`{"event":"sendMessage","data":{"sender":"alice","recipient":"bob","messageType":"text","content":"hello"}}`))

	require.Len(t, bob.named(chat.EventReceiveMessage), 1)
	require.Len(t, alice.named(chat.EventReceiveMessage), 1)
	assert.Empty(t, alice.named(chat.EventError))
	assert.Equal(t, 1, e.store.count())
}

func TestMessageHandler_SenderTakenFromConnection(t *testing.T) {
	e := newEnv(t)
	mh := NewMessageHandler(e.router, zap.NewNop())
	alice := newFakeConn("c1", "alice")
	e.registry.Register("alice", alice)

	mh.HandleMessage(context.Background(), alice,
		[]byte(`{"event":"sendMessage","data":{"recipient":"bob","content":"hello"}}`))

	require.Equal(t, 1, e.store.count())
	assert.Equal(t, "alice", e.store.messages[0].SenderID)
}

func TestMessageHandler_SendChannelMessage(t *testing.T) {
	e := newEnv(t, testChannel("general", "alice", "bob"))
	mh := NewMessageHandler(e.router, zap.NewNop())
	alice := newFakeConn("c1", "alice")
	bob := newFakeConn("c2", "bob")
	e.registry.Register("alice", alice)
	e.registry.Register("bob", bob)

	mh.HandleMessage(context.Background(), bob,
		[]byte(`{"event":"sendChannelMessage","data":{"channelId":"general","content":"hey all"}}`))

	assert.Len(t, alice.named(chat.EventReceiveChannelMessage), 1)
	assert.Len(t, bob.named(chat.EventReceiveChannelMessage), 1)
	assert.Len(t, e.channels.list("general"), 1)
}

func TestMessageHandler_Typing(t *testing.T) {
	e := newEnv(t)
	mh := NewMessageHandler(e.router, zap.NewNop())
	alice := newFakeConn("c1", "alice")
	bob := newFakeConn("c2", "bob")
	anon := newFakeConn("c0", "")
	e.registry.Register("alice", alice)
	e.registry.Register("bob", bob)

	mh.HandleMessage(context.Background(), alice, []byte(`{"event":"typing","data":{"recipientId":"bob","isTyping":true}}`))
	assert.Len(t, bob.named(chat.EventUserTyping), 1)

	mh.HandleMessage(context.Background(), anon, []byte(`{"event":"typing","data":{"recipientId":"bob","isTyping":true}}`))
	assert.Len(t, bob.named(chat.EventUserTyping), 1)
	assert.Empty(t, anon.received())

	mh.HandleMessage(context.Background(), alice, []byte(`{"event":"typing","data":{"isTyping":true}}`))
	assert.Equal(t, CodeValidation, lastError(t, alice).Code)
}

func TestMessageHandler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		frame    string
		wantCode string
	}{
		{name: "not json", userID: "alice", frame: `hello`, wantCode: CodeInvalidEvent},
		{name: "missing event name", userID: "alice", frame: `{"data":{}}`, wantCode: CodeInvalidEvent},
		{name: "unknown event", userID: "alice", frame: `{"event":"dance"}`, wantCode: CodeUnknownEvent},
		{name: "malformed payload", userID: "alice", frame: `{"event":"sendMessage","data":"oops"}`, wantCode: CodeInvalidEvent},
		{name: "blank content", userID: "alice", frame: `{"event":"sendMessage","data":{"recipient":"bob","content":"  "}}`, wantCode: CodeValidation},
		{name: "spoofed sender", userID: "alice", frame: `{"event":"sendMessage","data":{"sender":"bob","recipient":"carol","content":"hi"}}`, wantCode: CodeForbidden},
		{name: "anonymous without sender", frame: `{"event":"sendMessage","data":{"recipient":"bob","content":"hi"}}`, wantCode: CodeValidation},
		{name: "not a member", userID: "carol", frame: `{"event":"sendChannelMessage","data":{"channelId":"general","content":"hi"}}`, wantCode: CodeForbidden},
		{name: "unknown channel", userID: "alice", frame: `{"event":"sendChannelMessage","data":{"channelId":"nope","content":"hi"}}`, wantCode: CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, testChannel("general", "alice", "bob"))
			mh := NewMessageHandler(e.router, zap.NewNop())
			conn := newFakeConn("c1", tt.userID)
			if tt.userID != "" {
				e.registry.Register(tt.userID, conn)
			}

			mh.HandleMessage(context.Background(), conn, []byte(tt.frame))

			assert.Equal(t, tt.wantCode, lastError(t, conn).Code)
			assert.Zero(t, e.store.count())
		})
	}
}

func TestMessageHandler_PersistenceErrorHidesCause(t *testing.T) {
	e := newEnv(t)
	e.store.fail = errors.New("disk full")
	mh := NewMessageHandler(e.router, zap.NewNop())
	alice := newFakeConn("c1", "alice")
	bob := newFakeConn("c2", "bob")
	e.registry.Register("alice", alice)
	e.registry.Register("bob", bob)

	mh.HandleMessage(context.Background(), alice, []byte(`{"event":"sendMessage","data":{"recipient":"bob","content":"hi"}}`))

	p := lastError(t, alice)
	assert.Equal(t, CodePersistence, p.Code)
	assert.NotContains(t, p.Message, "disk full")
	assert.Empty(t, bob.received())
}

func TestResolveSender(t *testing.T) {
	tests := []struct {
		name    string
		conn    string
		payload string
		want    string
		wantErr error
	}{
		{name: "connection only", conn: "alice", want: "alice"},
		{name: "matching payload", conn: "alice", payload: "alice", want: "alice"},
		{name: "mismatch", conn: "alice", payload: "bob", wantErr: ErrSenderMismatch},
		{name: "anonymous uses payload", payload: "bob", want: "bob"},
		{name: "anonymous without payload", wantErr: chat.ErrSenderRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveSender(tt.conn, tt.payload)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, CodeValidation, errorCode(chat.ErrContentRequired))
	assert.Equal(t, CodeValidation, errorCode(ErrTypingTarget))
	assert.Equal(t, CodeForbidden, errorCode(ErrNotChannelMember))
	assert.Equal(t, CodeNotFound, errorCode(fmt.Errorf("load: %w", channel.ErrChannelNotFound)))
	assert.Equal(t, CodePersistence, errorCode(fmt.Errorf("%w: boom", ErrPersistence)))
	assert.Equal(t, CodeInternal, errorCode(errors.New("boom")))
}
