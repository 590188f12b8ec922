package chat

import (
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"
)

type User struct {
	ID           string `gorm:"primaryKey;size:16"`
	Email        string `gorm:"uniqueIndex;not null"`
	Password     string `gorm:"not null"`
	FirstName    string
	LastName     string
	ProfilePic   string
	ProfileColor int  `gorm:"default:0"`
	ProfileSetup bool `gorm:"default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"index;not null"`
	TokenHash string `gorm:"not null"`
	ExpiresAt int64  `gorm:"index;not null"`
	CreatedAt time.Time
}

type MessageType string

const (
	MessageTypeText MessageType = "text"
	MessageTypeFile MessageType = "file"
)

// Message is a persisted direct or channel message. Exactly one of
// RecipientID and ChannelID is set.
type Message struct {
	ID          string      `gorm:"primaryKey;size:21" bson:"_id"`
	SenderID    string      `gorm:"index;not null" bson:"sender"`
	RecipientID *string     `gorm:"index" bson:"recipient,omitempty"`
	ChannelID   *string     `gorm:"index" bson:"channel_id,omitempty"`
	MessageType MessageType `gorm:"not null;default:text" bson:"message_type"`
	Content     string      `bson:"content,omitempty"`
	FileURL     string      `bson:"file_url,omitempty"`
	Timestamp   time.Time   `gorm:"index;not null" bson:"timestamp"`
	Seen        bool        `gorm:"index;default:false" bson:"seen"`
	CreatedAt   time.Time   `bson:"created_at"`
	UpdatedAt   time.Time   `bson:"updated_at"`
}

// IsDirect reports whether the message is addressed to a single user.
func (m *Message) IsDirect() bool {
	return m.ChannelID == nil
}

// Correspondent returns the other party of a direct message as seen from userID.
func (m *Message) Correspondent(userID string) string {
	if m.RecipientID == nil {
		return ""
	}
	if m.SenderID == userID {
		return *m.RecipientID
	}
	return m.SenderID
}

// EnsureID assigns a fresh id if the message does not have one yet. Stores
// that bypass gorm hooks call it before inserting.
func (m *Message) EnsureID() (err error) {
	if m.ID == "" {
		m.ID, err = nanoid.New()
	}
	return
}

type Channel struct {
	ID        string `gorm:"primaryKey;size:12"`
	Name      string `gorm:"not null"`
	AdminID   string `gorm:"index;not null"`
	Admin     User   `gorm:"foreignKey:AdminID"`
	Members   []ChannelMember
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MemberIDs returns the ids of every member, admin included.
func (c *Channel) MemberIDs() []string {
	ids := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// HasMember reports whether userID belongs to the channel.
func (c *Channel) HasMember(userID string) bool {
	if c.AdminID == userID {
		return true
	}
	for _, m := range c.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

type ChannelMember struct {
	ID        uint   `gorm:"primaryKey"`
	ChannelID string `gorm:"uniqueIndex:idx_channel_member;not null"`
	UserID    string `gorm:"uniqueIndex:idx_channel_member;not null"`
	User      User   `gorm:"foreignKey:UserID"`
	CreatedAt time.Time
}

// ChannelMessage is one entry of a channel's ordered message list. The
// auto-increment primary key carries the order.
type ChannelMessage struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	ChannelID string `gorm:"index;not null"`
	MessageID string `gorm:"not null"`
	CreatedAt time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID, err = nanoid.New(8)
	}
	return
}

func (c *Channel) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID, err = nanoid.New(6)
	}
	return
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	return m.EnsureID()
}

// Models lists every gorm model for auto-migration.
func Models() []any {
	return []any{
		&User{},
		&RefreshToken{},
		&Message{},
		&Channel{},
		&ChannelMember{},
		&ChannelMessage{},
	}
}
