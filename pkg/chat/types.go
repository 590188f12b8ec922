package chat

import (
	"encoding/json"
	"time"
)

// Live channel event names.
const (
	EventOnlineUsers           = "onlineUsers"
	EventUserStatusChanged     = "userStatusChanged"
	EventReceiveMessage        = "receiveMessage"
	EventReceiveChannelMessage = "receiveChannelMessage"
	EventUserTyping            = "userTyping"
	EventError                 = "error"

	EventTyping             = "typing"
	EventSendMessage        = "sendMessage"
	EventSendChannelMessage = "sendChannelMessage"
)

// Event is the envelope of every frame on the live channel.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent marshals payload into an event envelope.
func NewEvent(name string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Name: name, Data: data}, nil
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

type UserStatusPayload struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

type TypingPayload struct {
	RecipientID string `json:"recipientId"`
	IsTyping    bool   `json:"isTyping"`
}

type UserTypingPayload struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SendMessagePayload struct {
	Sender      string      `json:"sender"`
	Recipient   string      `json:"recipient"`
	MessageType MessageType `json:"messageType"`
	Content     string      `json:"content,omitempty"`
	FileURL     string      `json:"fileUrl,omitempty"`
}

type SendChannelMessagePayload struct {
	Sender      string      `json:"sender"`
	ChannelID   string      `json:"channelId"`
	MessageType MessageType `json:"messageType"`
	Content     string      `json:"content,omitempty"`
	FileURL     string      `json:"fileUrl,omitempty"`
}

// UserSnippet is the public profile embedded in populated messages and
// contact lists.
type UserSnippet struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
	ProfilePic   string `json:"profilePic,omitempty"`
	ProfileColor int    `json:"profileColor"`
}

func (u *User) Snippet() UserSnippet {
	return UserSnippet{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		ProfilePic:   u.ProfilePic,
		ProfileColor: u.ProfileColor,
	}
}

// DisplayName prefers the full name and falls back to the email.
func (u UserSnippet) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.Email != "":
		return u.Email
	}
	return u.ID
}

// PopulatedMessage is a message with sender and recipient expanded to
// profile snippets, as pushed on the live channel.
type PopulatedMessage struct {
	ID          string       `json:"id"`
	Sender      UserSnippet  `json:"sender"`
	Recipient   *UserSnippet `json:"recipient,omitempty"`
	ChannelID   string       `json:"channelId,omitempty"`
	MessageType MessageType  `json:"messageType"`
	Content     string       `json:"content,omitempty"`
	FileURL     string       `json:"fileUrl,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
	Seen        bool         `json:"seen"`
}

// Populate expands m with the snippets in users. Unknown ids keep a bare
// snippet carrying only the id.
func Populate(m Message, users map[string]UserSnippet) PopulatedMessage {
	pm := PopulatedMessage{
		ID:          m.ID,
		Sender:      lookupSnippet(users, m.SenderID),
		MessageType: m.MessageType,
		Content:     m.Content,
		FileURL:     m.FileURL,
		Timestamp:   m.Timestamp,
		Seen:        m.Seen,
	}
	if m.RecipientID != nil {
		r := lookupSnippet(users, *m.RecipientID)
		pm.Recipient = &r
	}
	if m.ChannelID != nil {
		pm.ChannelID = *m.ChannelID
	}
	return pm
}

func lookupSnippet(users map[string]UserSnippet, id string) UserSnippet {
	if s, ok := users[id]; ok {
		return s
	}
	return UserSnippet{ID: id}
}

// ContactSummary is one row of the direct-message contact list.
type ContactSummary struct {
	UserSnippet
	LastMessageTime time.Time `json:"lastMessageTime"`
	UnseenCount     int       `json:"unseenCount"`
}

type ChannelSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	AdminID   string    `json:"adminId"`
	Members   []string  `json:"members"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Channel) Summary() ChannelSummary {
	return ChannelSummary{
		ID:        c.ID,
		Name:      c.Name,
		AdminID:   c.AdminID,
		Members:   c.MemberIDs(),
		UpdatedAt: c.UpdatedAt,
	}
}
