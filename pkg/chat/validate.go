package chat

import (
	"errors"
	"strings"
)

var (
	ErrSenderRequired     = errors.New("sender is required")
	ErrRecipientRequired  = errors.New("recipient is required")
	ErrChannelRequired    = errors.New("channel id is required")
	ErrInvalidMessageType = errors.New("message type must be text or file")
	ErrContentRequired    = errors.New("content is required for text messages")
	ErrFileURLRequired    = errors.New("file url is required for file messages")
)

// IsValidationError reports whether err was produced by message validation.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrSenderRequired,
		ErrRecipientRequired,
		ErrChannelRequired,
		ErrInvalidMessageType,
		ErrContentRequired,
		ErrFileURLRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// NewDirectMessage validates the input and builds an unsaved direct message.
func NewDirectMessage(senderID, recipientID string, kind MessageType, content, fileURL string) (*Message, error) {
	if recipientID == "" {
		return nil, ErrRecipientRequired
	}
	m, err := newMessage(senderID, kind, content, fileURL)
	if err != nil {
		return nil, err
	}
	m.RecipientID = &recipientID
	return m, nil
}

// NewChannelMessage validates the input and builds an unsaved channel message.
func NewChannelMessage(senderID, channelID string, kind MessageType, content, fileURL string) (*Message, error) {
	if channelID == "" {
		return nil, ErrChannelRequired
	}
	m, err := newMessage(senderID, kind, content, fileURL)
	if err != nil {
		return nil, err
	}
	m.ChannelID = &channelID
	return m, nil
}

func newMessage(senderID string, kind MessageType, content, fileURL string) (*Message, error) {
	if senderID == "" {
		return nil, ErrSenderRequired
	}
	if kind == "" {
		kind = MessageTypeText
	}

	m := &Message{SenderID: senderID, MessageType: kind}
	switch kind {
	case MessageTypeText:
		content = strings.TrimSpace(content)
		if content == "" {
			return nil, ErrContentRequired
		}
		m.Content = content
	case MessageTypeFile:
		if fileURL == "" {
			return nil, ErrFileURLRequired
		}
		m.FileURL = fileURL
	default:
		return nil, ErrInvalidMessageType
	}
	return m, nil
}
