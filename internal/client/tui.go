package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"livechat/pkg/chat"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

type mode int

const (
	modeList mode = iota
	modeSearch
	modeChat
)

const (
	requestTimeout = 10 * time.Second
	lastSeenLayout = "Jan 2 15:04"
)

type (
	liveEventMsg  chat.Event
	liveClosedMsg struct{}
	tickMsg       time.Time
	errMsg        struct{ err error }
	historyMsg    struct {
		conv     Conversation
		messages []chat.PopulatedMessage
	}
	searchResultMsg []chat.UserSnippet
)

// entry is one selectable row of the list view.
type entry struct {
	conv  Conversation
	label string
}

// Model is the terminal view over a Store.
type Model struct {
	self    Profile
	store   *Store
	api     *APIClient
	ws      *WSClient
	emitter *TypingEmitter
	logger  *zap.Logger

	mode    mode
	cursor  int
	results []chat.UserSnippet
	input   textinput.Model
	status  string
}

func NewModel(self Profile, store *Store, api *APIClient, ws *WSClient, logger *zap.Logger) Model {
	ti := textinput.New()
	ti.Placeholder = "Type your message here"
	ti.CharLimit = 1024
	ti.Width = 60

	emitter := NewTypingEmitter(RealClock(), func(recipientID string, isTyping bool) {
		if err := ws.Typing(recipientID, isTyping); err != nil {
			logger.Debug("failed to send typing signal", zap.Error(err))
		}
	})

	return Model{
		self:    self,
		store:   store,
		api:     api,
		ws:      ws,
		emitter: emitter,
		logger:  logger,
		input:   ti,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForEvent(), tick())
}

func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.ws.Events()
		if !ok {
			return liveClosedMsg{}
		}
		return liveEventMsg(ev)
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case liveEventMsg:
		ev := chat.Event(msg)
		if err := m.store.Apply(ev); err != nil {
			m.status = "bad event: " + err.Error()
		}
		if ev.Name == chat.EventError {
			var p chat.ErrorPayload
			if ev.Decode(&p) == nil {
				m.status = p.Code + ": " + p.Message
			}
		}
		return m, m.waitForEvent()

	case liveClosedMsg:
		m.status = "disconnected"
		return m, nil

	case tickMsg:
		m.store.PruneTyping()
		return m, tick()

	case errMsg:
		m.status = msg.err.Error()
		return m, nil

	case historyMsg:
		m.store.Select(msg.conv, msg.messages)
		m.mode = modeChat
		m.input.Placeholder = "Type your message here"
		m.input.Reset()
		m.input.Focus()
		return m, nil

	case searchResultMsg:
		m.results = msg
		m.cursor = 0
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.emitter.Stop()
		return m, tea.Quit
	}

	switch m.mode {
	case modeChat:
		return m.handleChatKey(msg)
	case modeSearch:
		return m.handleSearchKey(msg)
	default:
		return m.handleListKey(msg)
	}
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	entries := m.entries()
	switch msg.Type {
	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
	case tea.KeyDown:
		if m.cursor < len(entries)-1 {
			m.cursor++
		}
	case tea.KeyEnter:
		if m.cursor < len(entries) {
			return m, m.open(entries[m.cursor].conv)
		}
	case tea.KeyCtrlF:
		m.mode = modeSearch
		m.results = nil
		m.cursor = 0
		m.input.Placeholder = "Search by name or email"
		m.input.Reset()
		m.input.Focus()
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeList
		m.cursor = 0
		m.input.Blur()
		return m, nil
	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case tea.KeyDown:
		if m.cursor < len(m.results)-1 {
			m.cursor++
		}
		return m, nil
	case tea.KeyEnter:
		if len(m.results) > 0 && m.input.Value() == "" {
			return m, m.open(Conversation{Kind: DirectConversation, ID: m.results[m.cursor].ID})
		}
		query := m.input.Value()
		m.input.Reset()
		return m, m.search(query)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	conv, _ := m.store.Selected()
	switch msg.Type {
	case tea.KeyEsc:
		m.emitter.Stop()
		m.store.CloseConversation()
		m.mode = modeList
		m.cursor = 0
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		text := m.input.Value()
		m.input.Reset()
		m.emitter.Stop()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		var err error
		if conv.Kind == ChannelConversation {
			err = m.ws.SendChannelMessage(conv.ID, text)
		} else {
			err = m.ws.SendMessage(conv.ID, text)
		}
		if err != nil {
			m.status = "send failed: " + err.Error()
		}
		return m, nil
	}

	if conv.Kind == DirectConversation && msg.Type == tea.KeyRunes {
		m.emitter.Keystroke(conv.ID)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) open(conv Conversation) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		var (
			messages []chat.PopulatedMessage
			err      error
		)
		if conv.Kind == ChannelConversation {
			messages, err = m.api.ChannelMessages(ctx, conv.ID)
		} else {
			messages, err = m.api.Messages(ctx, conv.ID)
		}
		if err != nil {
			return errMsg{err}
		}
		return historyMsg{conv: conv, messages: messages}
	}
}

func (m Model) search(query string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		users, err := m.api.SearchContacts(ctx, query)
		if err != nil {
			return errMsg{err}
		}
		return searchResultMsg(users)
	}
}

func (m Model) entries() []entry {
	var out []entry
	for _, c := range m.store.Contacts() {
		label := c.DisplayName()
		if m.store.IsOnline(c.ID) {
			label += " (online)"
		} else if at, ok := m.store.LastSeen(c.ID); ok {
			label += " (last seen " + at.Local().Format(lastSeenLayout) + ")"
		}
		if c.UnseenCount > 0 {
			label += fmt.Sprintf(" [%d]", c.UnseenCount)
		}
		out = append(out, entry{conv: Conversation{Kind: DirectConversation, ID: c.ID}, label: label})
	}
	for _, ch := range m.store.Channels() {
		out = append(out, entry{conv: Conversation{Kind: ChannelConversation, ID: ch.ID}, label: "# " + ch.Name})
	}
	return out
}

func (m Model) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "livechat: %s\n\n", m.self.Email)

	switch m.mode {
	case modeChat:
		m.viewChat(&b)
	case modeSearch:
		b.WriteString("Search\n")
		for i, u := range m.results {
			b.WriteString(cursorMark(i == m.cursor) + u.DisplayName() + "\n")
		}
		b.WriteString("\n" + m.input.View())
		b.WriteString("\n[Enter] search / open  [Esc] back")
	default:
		entries := m.entries()
		if len(entries) == 0 {
			b.WriteString("No conversations yet.\n")
		}
		for i, e := range entries {
			b.WriteString(cursorMark(i == m.cursor) + e.label + "\n")
		}
		b.WriteString("\n[Enter] open  [Ctrl+F] find people  [Ctrl+C] quit")
	}

	if m.status != "" {
		b.WriteString("\n" + m.status)
	}
	return b.String()
}

func (m Model) viewChat(b *strings.Builder) {
	conv, _ := m.store.Selected()
	for _, msg := range m.store.Thread() {
		name := msg.Sender.DisplayName()
		if msg.Sender.ID == m.self.ID {
			name = "you"
		}
		text := msg.Content
		if msg.MessageType == chat.MessageTypeFile {
			text = "[file] " + msg.FileURL
		}
		fmt.Fprintf(b, "%s [%s]: %s\n", msg.Timestamp.Local().Format("15:04"), name, text)
	}
	if conv.Kind == DirectConversation && m.store.IsTyping(conv.ID) {
		b.WriteString("typing...\n")
	}
	b.WriteString("\n" + m.input.View())
	b.WriteString("\n[Enter] send  [Esc] back")
}

func cursorMark(selected bool) string {
	if selected {
		return "> "
	}
	return "  "
}
