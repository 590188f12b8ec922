package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"livechat/pkg/chat"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// WSClient is the client end of the live channel.
type WSClient struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	events chan chat.Event
	logger *zap.Logger
}

// DialWS opens the live channel at baseURL/ws, sending the session cookies
// from jar.
func DialWS(ctx context.Context, baseURL string, jar http.CookieJar, logger *zap.Logger) (*WSClient, error) {
	wsURL := "ws" + strings.TrimPrefix(strings.TrimRight(baseURL, "/"), "http") + "/ws"
	dialer := websocket.Dialer{Jar: jar, HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	return &WSClient{conn: conn, events: make(chan chat.Event, 64), logger: logger}, nil
}

// Start reads frames until the connection fails. Events arrive on Events in
// order; the channel is closed when reading stops.
func (c *WSClient) Start() {
	go func() {
		defer close(c.events)
		for {
			var ev chat.Event
			if err := c.conn.ReadJSON(&ev); err != nil {
				c.logger.Debug("ws read loop ended", zap.Error(err))
				return
			}
			c.events <- ev
		}
	}()
}

func (c *WSClient) Events() <-chan chat.Event {
	return c.events
}

func (c *WSClient) Send(name string, payload any) error {
	ev, err := chat.NewEvent(name, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(ev)
}

func (c *WSClient) SendMessage(recipientID, content string) error {
	return c.Send(chat.EventSendMessage, chat.SendMessagePayload{
		Recipient:   recipientID,
		MessageType: chat.MessageTypeText,
		Content:     content,
	})
}

func (c *WSClient) SendChannelMessage(channelID, content string) error {
	return c.Send(chat.EventSendChannelMessage, chat.SendChannelMessagePayload{
		ChannelID:   channelID,
		MessageType: chat.MessageTypeText,
		Content:     content,
	})
}

func (c *WSClient) Typing(recipientID string, isTyping bool) error {
	return c.Send(chat.EventTyping, chat.TypingPayload{RecipientID: recipientID, IsTyping: isTyping})
}

func (c *WSClient) Close() error {
	c.mu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	c.mu.Unlock()
	return c.conn.Close()
}
