package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"livechat/pkg/chat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type seenRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *seenRecorder) MarkSeen(_ context.Context, userID string) error {
	r.mu.Lock()
	r.calls = append(r.calls, userID)
	r.mu.Unlock()
	return nil
}

func (r *seenRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

var (
	me    = chat.UserSnippet{ID: "me", Email: "me@example.com"}
	alice = chat.UserSnippet{ID: "alice", Email: "alice@example.com", FirstName: "Alice"}
	bob   = chat.UserSnippet{ID: "bob", Email: "bob@example.com", FirstName: "Bob"}
	carol = chat.UserSnippet{ID: "carol", Email: "carol@example.com", FirstName: "Carol"}
)

func newTestStore(t *testing.T) (*Store, *fakeClock, *seenRecorder) {
	t.Helper()
	clock := newFakeClock()
	seen := &seenRecorder{}
	return NewStore(me.ID, clock, seen, zap.NewNop()), clock, seen
}

func direct(id string, from, to chat.UserSnippet, at time.Time) chat.PopulatedMessage {
	recipient := to
	return chat.PopulatedMessage{
		ID:          id,
		Sender:      from,
		Recipient:   &recipient,
		MessageType: chat.MessageTypeText,
		Content:     id,
		Timestamp:   at,
	}
}

func contactIDs(s *Store) []string {
	var ids []string
	for _, c := range s.Contacts() {
		ids = append(ids, c.ID)
	}
	return ids
}

func seedContacts(s *Store) {
	s.SetContacts([]chat.ContactSummary{
		{UserSnippet: alice},
		{UserSnippet: bob},
		{UserSnippet: carol},
	})
}

func TestStore_ClosedConversationCountsUnseen(t *testing.T) {
	s, clock, seen := newTestStore(t)
	seedContacts(s)

	s.OnMessage(direct("m1", carol, me, clock.Now()))

	contacts := s.Contacts()
	assert.Equal(t, []string{"carol", "alice", "bob"}, contactIDs(s))
	assert.Equal(t, 1, contacts[0].UnseenCount)
	assert.Equal(t, clock.Now(), contacts[0].LastMessageTime)
	assert.Empty(t, s.Thread())
	assert.Empty(t, seen.all())

	s.OnMessage(direct("m2", carol, me, clock.Now()))
	assert.Equal(t, 2, s.Contacts()[0].UnseenCount)
}

func TestStore_OpenConversationAppendsAndMarksSeen(t *testing.T) {
	s, clock, seen := newTestStore(t)
	seedContacts(s)
	s.Select(Conversation{Kind: DirectConversation, ID: "bob"}, []chat.PopulatedMessage{
		direct("old", bob, me, clock.Now()),
	})

	s.OnMessage(direct("m1", bob, me, clock.Now()))

	assert.Equal(t, []string{"bob", "alice", "carol"}, contactIDs(s))
	assert.Zero(t, s.Contacts()[0].UnseenCount)

	thread := s.Thread()
	require.Len(t, thread, 2)
	assert.Equal(t, "m1", thread[1].ID)

	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"bob"}, seen.all())
	}, time.Second, 5*time.Millisecond)
}

func TestStore_OwnMessageNeverUnseen(t *testing.T) {
	s, clock, seen := newTestStore(t)
	seedContacts(s)
	s.Select(Conversation{Kind: DirectConversation, ID: "carol"}, nil)

	s.OnMessage(direct("m1", me, carol, clock.Now()))
	s.OnMessage(direct("m2", me, bob, clock.Now()))

	assert.Equal(t, []string{"bob", "carol", "alice"}, contactIDs(s))
	for _, c := range s.Contacts() {
		assert.Zero(t, c.UnseenCount, c.ID)
	}
	require.Len(t, s.Thread(), 1)
	assert.Equal(t, "m1", s.Thread()[0].ID)

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, seen.all())
}

func TestStore_NewCorrespondentSynthesized(t *testing.T) {
	s, clock, _ := newTestStore(t)
	seedContacts(s)
	dave := chat.UserSnippet{ID: "dave", Email: "dave@example.com"}

	s.OnMessage(direct("m1", dave, me, clock.Now()))
	erin := chat.UserSnippet{ID: "erin", Email: "erin@example.com"}
	s.OnMessage(direct("m2", me, erin, clock.Now()))

	contacts := s.Contacts()
	require.Len(t, contacts, 5)
	assert.Equal(t, "erin", contacts[0].ID)
	assert.Zero(t, contacts[0].UnseenCount)
	assert.Equal(t, "dave", contacts[1].ID)
	assert.Equal(t, 1, contacts[1].UnseenCount)
	assert.Equal(t, "dave@example.com", contacts[1].Email)
}

func TestStore_SelectClearsUnseen(t *testing.T) {
	s, clock, _ := newTestStore(t)
	seedContacts(s)
	s.OnMessage(direct("m1", alice, me, clock.Now()))
	require.Equal(t, 1, s.Contacts()[0].UnseenCount)

	s.Select(Conversation{Kind: DirectConversation, ID: "alice"}, nil)
	assert.Zero(t, s.Contacts()[0].UnseenCount)

	s.CloseConversation()
	_, open := s.Selected()
	assert.False(t, open)
	assert.Empty(t, s.Thread())
}

func TestStore_ChannelMessages(t *testing.T) {
	s, clock, seen := newTestStore(t)
	s.SetChannels([]chat.ChannelSummary{{ID: "c1", Name: "one"}, {ID: "c2", Name: "two"}})
	s.Select(Conversation{Kind: ChannelConversation, ID: "c2"}, nil)

	s.OnChannelMessage(chat.PopulatedMessage{ID: "m1", Sender: alice, ChannelID: "c2", Timestamp: clock.Now()})
	s.OnChannelMessage(chat.PopulatedMessage{ID: "m2", Sender: alice, ChannelID: "c1", Timestamp: clock.Now()})

	require.Len(t, s.Thread(), 1)
	assert.Equal(t, "m1", s.Thread()[0].ID)
	channels := s.Channels()
	assert.Equal(t, "c1", channels[0].ID)
	assert.Equal(t, clock.Now(), channels[0].UpdatedAt)
	assert.Empty(t, seen.all())
}

func TestStore_Presence(t *testing.T) {
	s, clock, _ := newTestStore(t)

	s.OnOnlineSnapshot([]string{"bob", "alice"})
	assert.Equal(t, []string{"alice", "bob"}, s.Online())

	s.OnPresence(chat.UserStatusPayload{UserID: "carol", IsOnline: true})
	s.OnPresence(chat.UserStatusPayload{UserID: "bob", IsOnline: false})

	assert.True(t, s.IsOnline("carol"))
	assert.False(t, s.IsOnline("bob"))
	seenAt, ok := s.LastSeen("bob")
	require.True(t, ok)
	assert.Equal(t, clock.Now(), seenAt)

	s.OnOnlineSnapshot([]string{"dave"})
	assert.Equal(t, []string{"dave"}, s.Online())
}

func TestStore_TypingExpiry(t *testing.T) {
	s, clock, _ := newTestStore(t)

	s.OnTyping(chat.UserTypingPayload{UserID: "bob", IsTyping: true})
	assert.True(t, s.IsTyping("bob"))

	clock.Advance(2999 * time.Millisecond)
	assert.True(t, s.IsTyping("bob"))

	clock.Advance(2 * time.Millisecond)
	assert.False(t, s.IsTyping("bob"))
}

func TestStore_TypingTimerPrunes(t *testing.T) {
	s, clock, _ := newTestStore(t)
	changes := 0
	s.OnChange(func() { changes++ })

	s.OnTyping(chat.UserTypingPayload{UserID: "bob", IsTyping: true})
	clock.Advance(2 * time.Second)
	s.OnTyping(chat.UserTypingPayload{UserID: "bob", IsTyping: true})
	clock.Advance(2 * time.Second)
	assert.True(t, s.IsTyping("bob"), "refresh re-arms the expiry")

	clock.Advance(time.Second)
	assert.False(t, s.IsTyping("bob"))
	assert.Zero(t, s.PruneTyping(), "timer already pruned the entry")
	assert.Equal(t, 3, changes)
	assert.Zero(t, clock.pending())
}

func TestStore_TypingStop(t *testing.T) {
	s, clock, _ := newTestStore(t)

	s.OnTyping(chat.UserTypingPayload{UserID: "bob", IsTyping: true})
	s.OnTyping(chat.UserTypingPayload{UserID: "bob", IsTyping: false})
	assert.False(t, s.IsTyping("bob"))
	assert.Zero(t, clock.pending())
}

func TestStore_Apply(t *testing.T) {
	s, clock, _ := newTestStore(t)

	events := []struct {
		name    string
		payload any
	}{
		{chat.EventOnlineUsers, []string{"alice"}},
		{chat.EventUserStatusChanged, chat.UserStatusPayload{UserID: "bob", IsOnline: true}},
		{chat.EventUserTyping, chat.UserTypingPayload{UserID: "bob", IsTyping: true}},
		{chat.EventReceiveMessage, direct("m1", bob, me, clock.Now())},
		{"somethingNew", map[string]string{}},
	}
	for _, e := range events {
		ev, err := chat.NewEvent(e.name, e.payload)
		require.NoError(t, err)
		require.NoError(t, s.Apply(ev))
	}

	assert.Equal(t, []string{"alice", "bob"}, s.Online())
	assert.True(t, s.IsTyping("bob"))
	assert.Equal(t, []string{"bob"}, contactIDs(s))

	assert.Error(t, s.Apply(chat.Event{Name: chat.EventReceiveMessage, Data: []byte(`"nope"`)}))
}
