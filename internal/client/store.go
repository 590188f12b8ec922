package client

import (
	"context"
	"sort"
	"sync"
	"time"

	"livechat/pkg/chat"

	"go.uber.org/zap"
)

// TypingTimeout is how long a typing signal stays valid without a refresh.
const TypingTimeout = 3 * time.Second

const markSeenTimeout = 5 * time.Second

type ConversationKind int

const (
	DirectConversation ConversationKind = iota + 1
	ChannelConversation
)

// Conversation identifies the open thread: a correspondent or a channel.
type Conversation struct {
	Kind ConversationKind
	ID   string
}

// SeenMarker flips the seen flag on every message from userID to the local
// user.
type SeenMarker interface {
	MarkSeen(ctx context.Context, userID string) error
}

// Store folds live events into the local view of conversations: the ordered
// contact list with unseen counts, the open thread, online users and who is
// typing. It is safe for concurrent use.
type Store struct {
	mu sync.Mutex

	self   string
	clock  Clock
	seen   SeenMarker
	logger *zap.Logger

	selected *Conversation
	thread   []chat.PopulatedMessage
	contacts []chat.ContactSummary
	channels []chat.ChannelSummary

	online       map[string]struct{}
	lastSeen     map[string]time.Time
	typing       map[string]time.Time
	typingTimers map[string]Timer

	onChange func()
}

func NewStore(selfID string, clock Clock, seen SeenMarker, logger *zap.Logger) *Store {
	return &Store{
		self:         selfID,
		clock:        clock,
		seen:         seen,
		logger:       logger,
		online:       make(map[string]struct{}),
		lastSeen:     make(map[string]time.Time),
		typing:       make(map[string]time.Time),
		typingTimers: make(map[string]Timer),
	}
}

// OnChange registers fn to run after every state change. fn runs without
// the store lock held.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Store) changed() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Apply decodes a live event and dispatches it. Unknown events are ignored.
func (s *Store) Apply(ev chat.Event) error {
	switch ev.Name {
	case chat.EventReceiveMessage:
		var pm chat.PopulatedMessage
		if err := ev.Decode(&pm); err != nil {
			return err
		}
		s.OnMessage(pm)
	case chat.EventReceiveChannelMessage:
		var pm chat.PopulatedMessage
		if err := ev.Decode(&pm); err != nil {
			return err
		}
		s.OnChannelMessage(pm)
	case chat.EventOnlineUsers:
		var ids []string
		if err := ev.Decode(&ids); err != nil {
			return err
		}
		s.OnOnlineSnapshot(ids)
	case chat.EventUserStatusChanged:
		var p chat.UserStatusPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		s.OnPresence(p)
	case chat.EventUserTyping:
		var p chat.UserTypingPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		s.OnTyping(p)
	default:
		s.logger.Debug("ignored event", zap.String("event", ev.Name))
	}
	return nil
}

// OnMessage applies a direct message. A message for the open conversation is
// appended to the thread and, when it came from the other party, marked
// seen. The correspondent always moves to the front of the contact list; it
// gains an unseen message only when the conversation is closed and the local
// user did not send it.
func (s *Store) OnMessage(pm chat.PopulatedMessage) {
	s.mu.Lock()

	fromSelf := pm.Sender.ID == s.self
	other := pm.Sender
	if fromSelf && pm.Recipient != nil {
		other = *pm.Recipient
	}

	open := s.selected != nil && s.selected.Kind == DirectConversation &&
		(s.selected.ID == pm.Sender.ID || (pm.Recipient != nil && s.selected.ID == pm.Recipient.ID))
	if open {
		s.thread = append(s.thread, pm)
	}

	idx := s.contactIndex(other.ID)
	var contact chat.ContactSummary
	if idx >= 0 {
		contact = s.contacts[idx]
		s.contacts = append(s.contacts[:idx], s.contacts[idx+1:]...)
		if !fromSelf && !open {
			contact.UnseenCount++
			contact.LastMessageTime = pm.Timestamp
		}
	} else {
		contact = chat.ContactSummary{UserSnippet: other, LastMessageTime: pm.Timestamp}
		if !fromSelf && !open {
			contact.UnseenCount = 1
		}
	}
	s.contacts = append([]chat.ContactSummary{contact}, s.contacts...)

	markSeen := open && !fromSelf
	s.mu.Unlock()

	if markSeen {
		s.markSeen(pm.Sender.ID)
	}
	s.changed()
}

// OnChannelMessage appends a channel message to the open thread and moves the
// channel to the front of the channel list.
func (s *Store) OnChannelMessage(pm chat.PopulatedMessage) {
	s.mu.Lock()
	if s.selected != nil && s.selected.Kind == ChannelConversation && s.selected.ID == pm.ChannelID {
		s.thread = append(s.thread, pm)
	}
	for i, ch := range s.channels {
		if ch.ID != pm.ChannelID {
			continue
		}
		ch.UpdatedAt = pm.Timestamp
		s.channels = append(s.channels[:i], s.channels[i+1:]...)
		s.channels = append([]chat.ChannelSummary{ch}, s.channels...)
		break
	}
	s.mu.Unlock()
	s.changed()
}

// OnOnlineSnapshot replaces the online set.
func (s *Store) OnOnlineSnapshot(ids []string) {
	s.mu.Lock()
	s.online = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.online[id] = struct{}{}
	}
	s.mu.Unlock()
	s.changed()
}

// OnPresence patches the online set and records when the user was last seen
// changing state.
func (s *Store) OnPresence(p chat.UserStatusPayload) {
	s.mu.Lock()
	if p.IsOnline {
		s.online[p.UserID] = struct{}{}
	} else {
		delete(s.online, p.UserID)
	}
	s.lastSeen[p.UserID] = s.clock.Now()
	s.mu.Unlock()
	s.changed()
}

// OnTyping records or clears a typing entry. A recorded entry expires after
// TypingTimeout even if no stop signal arrives.
func (s *Store) OnTyping(p chat.UserTypingPayload) {
	s.mu.Lock()
	if t, ok := s.typingTimers[p.UserID]; ok {
		t.Stop()
		delete(s.typingTimers, p.UserID)
	}
	if p.IsTyping {
		s.typing[p.UserID] = s.clock.Now()
		s.typingTimers[p.UserID] = s.clock.AfterFunc(TypingTimeout, func() {
			if s.PruneTyping() > 0 {
				s.changed()
			}
		})
	} else {
		delete(s.typing, p.UserID)
	}
	s.mu.Unlock()
	s.changed()
}

// IsTyping reports whether userID signalled typing less than TypingTimeout
// ago.
func (s *Store) IsTyping(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.typing[userID]
	return ok && s.clock.Now().Sub(at) < TypingTimeout
}

// PruneTyping drops expired typing entries and returns how many it removed.
func (s *Store) PruneTyping() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	removed := 0
	for id, at := range s.typing {
		if now.Sub(at) >= TypingTimeout {
			delete(s.typing, id)
			delete(s.typingTimers, id)
			removed++
		}
	}
	return removed
}

// Select opens a conversation with its fetched history. Opening a direct
// conversation clears the correspondent's unseen count.
func (s *Store) Select(conv Conversation, history []chat.PopulatedMessage) {
	s.mu.Lock()
	s.selected = &conv
	s.thread = append([]chat.PopulatedMessage(nil), history...)
	if conv.Kind == DirectConversation {
		if idx := s.contactIndex(conv.ID); idx >= 0 {
			s.contacts[idx].UnseenCount = 0
		}
	}
	s.mu.Unlock()
	s.changed()
}

func (s *Store) CloseConversation() {
	s.mu.Lock()
	s.selected = nil
	s.thread = nil
	s.mu.Unlock()
	s.changed()
}

func (s *Store) Selected() (Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return Conversation{}, false
	}
	return *s.selected, true
}

func (s *Store) SetContacts(contacts []chat.ContactSummary) {
	s.mu.Lock()
	s.contacts = append([]chat.ContactSummary(nil), contacts...)
	s.mu.Unlock()
	s.changed()
}

func (s *Store) Contacts() []chat.ContactSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.ContactSummary(nil), s.contacts...)
}

func (s *Store) SetChannels(channels []chat.ChannelSummary) {
	s.mu.Lock()
	s.channels = append([]chat.ChannelSummary(nil), channels...)
	s.mu.Unlock()
	s.changed()
}

func (s *Store) Channels() []chat.ChannelSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.ChannelSummary(nil), s.channels...)
}

func (s *Store) Thread() []chat.PopulatedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.PopulatedMessage(nil), s.thread...)
}

func (s *Store) IsOnline(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.online[userID]
	return ok
}

// Online returns the online user ids in sorted order.
func (s *Store) Online() []string {
	s.mu.Lock()
	ids := make([]string, 0, len(s.online))
	for id := range s.online {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Strings(ids)
	return ids
}

func (s *Store) LastSeen(userID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.lastSeen[userID]
	return t, ok
}

func (s *Store) contactIndex(userID string) int {
	for i, c := range s.contacts {
		if c.ID == userID {
			return i
		}
	}
	return -1
}

// markSeen runs the request in the background. Failures are logged only.
func (s *Store) markSeen(userID string) {
	if s.seen == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), markSeenTimeout)
		defer cancel()
		if err := s.seen.MarkSeen(ctx, userID); err != nil {
			s.logger.Warn("failed to mark messages seen", zap.String("user_id", userID), zap.Error(err))
		}
	}()
}
