package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"livechat/internal/channel"
	"livechat/pkg/chat"

	"go.uber.org/zap"
)

// Error codes carried by error events.
const (
	CodeInvalidEvent = "INVALID_EVENT"
	CodeUnknownEvent = "UNKNOWN_EVENT"
	CodeValidation   = "VALIDATION_ERROR"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodePersistence  = "PERSISTENCE_ERROR"
	CodeRateLimited  = "RATE_LIMITED"
	CodeInternal     = "INTERNAL_ERROR"
)

var ErrSenderMismatch = errors.New("sender does not match the connection's user")

// MessageHandler decodes inbound events and dispatches them to the router.
// Failures are reported back to the originating connection only.
type MessageHandler struct {
	router *Router
	logger *zap.Logger
}

func NewMessageHandler(router *Router, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{router: router, logger: logger}
}

func (mh *MessageHandler) HandleMessage(ctx context.Context, client Conn, data []byte) {
	var ev chat.Event
	if err := json.Unmarshal(data, &ev); err != nil || ev.Name == "" {
		sendError(client, CodeInvalidEvent, "event must be a JSON object with an event name")
		return
	}

	switch ev.Name {
	case chat.EventSendMessage:
		mh.handleSendMessage(ctx, client, ev)
	case chat.EventSendChannelMessage:
		mh.handleSendChannelMessage(ctx, client, ev)
	case chat.EventTyping:
		mh.handleTyping(client, ev)
	default:
		sendError(client, CodeUnknownEvent, "unknown event "+ev.Name)
	}
}

func (mh *MessageHandler) handleSendMessage(ctx context.Context, client Conn, ev chat.Event) {
	var p chat.SendMessagePayload
	if err := ev.Decode(&p); err != nil {
		sendError(client, CodeInvalidEvent, "malformed sendMessage payload")
		return
	}

	sender, err := resolveSender(client.UserID(), p.Sender)
	if err != nil {
		mh.reportError(client, ev.Name, err)
		return
	}

	_, err = mh.router.SendDirect(ctx, DirectMessageInput{
		SenderID:    sender,
		RecipientID: p.Recipient,
		MessageType: p.MessageType,
		Content:     p.Content,
		FileURL:     p.FileURL,
	})
	if err != nil {
		mh.reportError(client, ev.Name, err)
	}
}

func (mh *MessageHandler) handleSendChannelMessage(ctx context.Context, client Conn, ev chat.Event) {
	var p chat.SendChannelMessagePayload
	if err := ev.Decode(&p); err != nil {
		sendError(client, CodeInvalidEvent, "malformed sendChannelMessage payload")
		return
	}

	sender, err := resolveSender(client.UserID(), p.Sender)
	if err != nil {
		mh.reportError(client, ev.Name, err)
		return
	}

	_, err = mh.router.SendChannel(ctx, ChannelMessageInput{
		SenderID:    sender,
		ChannelID:   p.ChannelID,
		MessageType: p.MessageType,
		Content:     p.Content,
		FileURL:     p.FileURL,
	})
	if err != nil {
		mh.reportError(client, ev.Name, err)
	}
}

// handleTyping forwards typing signals from registered connections. Signals
// from unregistered connections have no sender and are ignored.
func (mh *MessageHandler) handleTyping(client Conn, ev chat.Event) {
	var p chat.TypingPayload
	if err := ev.Decode(&p); err != nil {
		sendError(client, CodeInvalidEvent, "malformed typing payload")
		return
	}
	if client.UserID() == "" {
		mh.logger.Debug("typing from unregistered connection ignored", zap.String("conn_id", client.ID()))
		return
	}
	if _, err := mh.router.Typing(client.UserID(), p); err != nil {
		mh.reportError(client, ev.Name, err)
	}
}

func (mh *MessageHandler) reportError(client Conn, event string, err error) {
	code := errorCode(err)
	if code == CodeInternal || code == CodePersistence {
		mh.logger.Error("event failed",
			zap.String("event", event),
			zap.String("conn_id", client.ID()),
			zap.Error(err))
		sendError(client, code, "could not process "+event)
		return
	}
	mh.logger.Debug("event rejected",
		zap.String("event", event),
		zap.String("conn_id", client.ID()),
		zap.String("code", code),
		zap.Error(err))
	sendError(client, code, err.Error())
}

// resolveSender picks the sender id for a send event. The connection's own
// user id wins; unregistered connections fall back to the payload.
func resolveSender(connUserID, payloadSender string) (string, error) {
	if connUserID != "" {
		if payloadSender != "" && payloadSender != connUserID {
			return "", ErrSenderMismatch
		}
		return connUserID, nil
	}
	if payloadSender == "" {
		return "", chat.ErrSenderRequired
	}
	return payloadSender, nil
}

func errorCode(err error) string {
	switch {
	case chat.IsValidationError(err), errors.Is(err, ErrTypingTarget):
		return CodeValidation
	case errors.Is(err, ErrSenderMismatch), errors.Is(err, ErrNotChannelMember):
		return CodeForbidden
	case errors.Is(err, channel.ErrChannelNotFound):
		return CodeNotFound
	case errors.Is(err, ErrPersistence):
		return CodePersistence
	default:
		return CodeInternal
	}
}

func sendError(client Conn, code, message string) {
	ev, err := chat.NewEvent(chat.EventError, chat.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	client.Push(ev)
}
