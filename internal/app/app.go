package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"conduit/internal/chat"
	"conduit/internal/client"
	"conduit/internal/logging"
	"conduit/internal/types"
)

const (
	tickInterval     = 100 * time.Millisecond
	maxEventsPerTick = 64
	sidebarWidth     = 28
	minContentHeight = 6
)

// API is the backend surface the UI needs: session lifecycle plus the
// streaming query endpoint.
type API interface {
	chat.SessionAPI
	QueryStream(ctx context.Context, sessionID, query string) (*client.EventStream, error)
}

type uiMode int

const (
	uiModeNormal uiMode = iota
	uiModeRename
)

type tickMsg time.Time

type streamStartedMsg struct {
	messageID string
	stream    *client.EventStream
	err       error
}

type Model struct {
	api       API
	lifecycle *chat.Lifecycle
	turn      *chat.TurnController
	logger    logging.Logger

	mode        uiMode
	input       textarea.Model
	renameInput textinput.Model
	viewport    viewport.Model
	loader      spinner.Model

	width    int
	height   int
	ready    bool
	showPlan bool
	status   string

	pendingMessageID string
	nextLocalID      int
}

func New(api API, lifecycle *chat.Lifecycle, logger logging.Logger) *Model {
	if logger == nil {
		logger = logging.Nop()
	}
	input := textarea.New()
	input.Placeholder = "Ask the agents anything..."
	input.Prompt = "│ "
	input.SetHeight(3)
	input.CharLimit = 0
	input.ShowLineNumbers = false
	input.Focus()

	renameInput := textinput.New()
	renameInput.Prompt = "rename: "

	loader := spinner.New()
	loader.Spinner = spinner.MiniDot

	return &Model{
		api:         api,
		lifecycle:   lifecycle,
		turn:        chat.NewTurnController(maxEventsPerTick),
		logger:      logger,
		input:       input,
		renameInput: renameInput,
		loader:      loader,
		showPlan:    true,
	}
}

func (m *Model) Init() tea.Cmd {
	m.lifecycle.LoadCached()
	if err := m.lifecycle.Refresh(m.ctx()); err != nil {
		m.status = "session list unavailable: " + err.Error()
		m.logger.Warn("session refresh failed", logging.F("err", err))
	} else if m.lifecycle.ActiveID() == "" && len(m.lifecycle.Sessions()) > 0 {
		if err := m.lifecycle.Select(m.ctx(), m.lifecycle.Sessions()[0].ID); err != nil {
			m.status = err.Error()
		}
	}
	return tea.Batch(tick(), m.loader.Tick)
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Lifecycle calls run on the UI loop; the HTTP client's own timeout bounds
// them, so a background context is enough.
func (m *Model) ctx() context.Context {
	return context.Background()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tickMsg:
		m.drainTurn()
		return m, tick()
	case streamStartedMsg:
		m.onStreamStarted(msg)
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.loader, cmd = m.loader.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m *Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == uiModeRename {
		switch msg.Type {
		case tea.KeyEnter:
			m.finishRename()
			return m, nil
		case tea.KeyEsc:
			m.mode = uiModeNormal
			m.renameInput.Blur()
			m.input.Focus()
			return m, nil
		}
		var cmd tea.Cmd
		m.renameInput, cmd = m.renameInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "ctrl+c":
		m.turn.Cancel()
		return m, tea.Quit
	case "enter":
		return m, m.send()
	case "ctrl+n":
		m.newSession()
		return m, nil
	case "ctrl+r":
		m.beginRename()
		return m, nil
	case "ctrl+x":
		m.deleteActiveSession()
		return m, nil
	case "ctrl+j":
		m.cycleSession(1)
		return m, nil
	case "ctrl+k":
		m.cycleSession(-1)
		return m, nil
	case "ctrl+y":
		m.copyLastAnswer()
		return m, nil
	case "ctrl+e":
		m.showPlan = !m.showPlan
		m.refreshViewport()
		return m, nil
	case "ctrl+l":
		if err := m.lifecycle.Refresh(m.ctx()); err != nil {
			m.status = err.Error()
		} else {
			m.status = "sessions refreshed"
		}
		m.refreshViewport()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// send opens a turn: the user message is appended immediately, the stream
// is opened asynchronously and attached when it arrives.
func (m *Model) send() tea.Cmd {
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		return nil
	}
	if m.turn.Active() || m.pendingMessageID != "" {
		m.status = "still answering; switch sessions to abandon the turn"
		return nil
	}

	if m.lifecycle.ActiveID() == "" {
		if _, err := m.lifecycle.Create(m.ctx(), ""); err != nil {
			// Without a session nothing can be sent; this is terminal for
			// the attempt, not silent.
			m.appendErrorMessage("could not create a session: " + err.Error())
			m.refreshViewport()
			return nil
		}
	}
	sessionID := m.lifecycle.ActiveID()

	m.input.Reset()
	m.nextLocalID++
	userID := fmt.Sprintf("local-u-%d", m.nextLocalID)
	m.lifecycle.AppendMessage(&types.Message{
		ID:        userID,
		SessionID: sessionID,
		Role:      types.RoleUser,
		Content:   query,
		CreatedAt: time.Now(),
		Status:    types.MessageStatusCompleted,
	})

	m.nextLocalID++
	assistantID := fmt.Sprintf("local-a-%d", m.nextLocalID)
	m.lifecycle.AppendMessage(&types.Message{
		ID:        assistantID,
		SessionID: sessionID,
		Role:      types.RoleAssistant,
		CreatedAt: time.Now(),
		Status:    types.MessageStatusPending,
	})
	m.pendingMessageID = assistantID
	m.status = "thinking..."
	m.refreshViewport()

	api := m.api
	return func() tea.Msg {
		stream, err := api.QueryStream(context.Background(), sessionID, query)
		return streamStartedMsg{messageID: assistantID, stream: stream, err: err}
	}
}

func (m *Model) onStreamStarted(msg streamStartedMsg) {
	if msg.messageID != m.pendingMessageID {
		// The user moved on before the stream opened; a stale stream must
		// never feed the current view.
		if msg.stream != nil {
			msg.stream.Cancel()
		}
		return
	}
	m.pendingMessageID = ""
	if msg.err != nil {
		m.failMessage(msg.messageID, msg.err)
		m.refreshViewport()
		return
	}

	sessionID := m.lifecycle.ActiveID()
	reducer := chat.NewReducer(types.Message{
		ID:        msg.messageID,
		SessionID: sessionID,
		Role:      types.RoleAssistant,
		CreatedAt: time.Now(),
	}, func(title string) {
		m.lifecycle.SetSessionTitle(sessionID, title)
	})
	m.turn.Begin(msg.messageID, reducer, msg.stream.Events(), msg.stream.Cancel, msg.stream.Err)
}

func (m *Model) drainTurn() {
	changed, closed := m.turn.ConsumeTick()
	if !changed && !closed {
		return
	}
	if reducer := m.turn.Reducer(); reducer != nil {
		m.lifecycle.UpdateMessage(reducer.Message())
	}
	if closed {
		m.status = "ready"
	}
	m.refreshViewport()
}

func (m *Model) newSession() {
	m.turn.Cancel()
	m.pendingMessageID = ""
	if _, err := m.lifecycle.Create(m.ctx(), ""); err != nil {
		m.status = "create session: " + err.Error()
		return
	}
	m.status = "new session"
	m.refreshViewport()
}

func (m *Model) deleteActiveSession() {
	active := m.lifecycle.Active()
	if active == nil {
		return
	}
	m.turn.Cancel()
	m.pendingMessageID = ""
	if err := m.lifecycle.Delete(m.ctx(), active.ID); err != nil {
		m.status = "delete session: " + err.Error()
		return
	}
	m.status = "session deleted"
	m.refreshViewport()
}

func (m *Model) cycleSession(direction int) {
	sessions := m.lifecycle.Sessions()
	if len(sessions) < 2 {
		return
	}
	current := 0
	for i, session := range sessions {
		if session.ID == m.lifecycle.ActiveID() {
			current = i
			break
		}
	}
	next := (current + direction + len(sessions)) % len(sessions)
	m.turn.Cancel()
	m.pendingMessageID = ""
	if err := m.lifecycle.Select(m.ctx(), sessions[next].ID); err != nil {
		m.status = err.Error()
		return
	}
	m.status = sessions[next].DisplayTitle()
	m.refreshViewport()
}

func (m *Model) beginRename() {
	active := m.lifecycle.Active()
	if active == nil {
		return
	}
	m.mode = uiModeRename
	m.renameInput.SetValue(active.DisplayTitle())
	m.renameInput.CursorEnd()
	m.renameInput.Focus()
	m.input.Blur()
}

func (m *Model) finishRename() {
	defer func() {
		m.mode = uiModeNormal
		m.renameInput.Blur()
		m.input.Focus()
	}()
	active := m.lifecycle.Active()
	if active == nil {
		return
	}
	title := strings.TrimSpace(m.renameInput.Value())
	if title == "" || title == active.DisplayTitle() {
		return
	}
	if err := m.lifecycle.Rename(m.ctx(), active.ID, title); err != nil {
		m.status = "rename: " + err.Error()
		return
	}
	m.status = "renamed"
}

func (m *Model) copyLastAnswer() {
	messages := m.lifecycle.Messages()
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.RoleAssistant && messages[i].Content != "" {
			if err := copyTextToClipboard(messages[i].Content); err != nil {
				m.status = "copy failed: " + err.Error()
			} else {
				m.status = "answer copied"
			}
			return
		}
	}
	m.status = "nothing to copy"
}

func (m *Model) appendErrorMessage(text string) {
	m.nextLocalID++
	m.lifecycle.AppendMessage(&types.Message{
		ID:        fmt.Sprintf("local-e-%d", m.nextLocalID),
		Role:      types.RoleAssistant,
		Content:   text,
		CreatedAt: time.Now(),
		Status:    types.MessageStatusError,
	})
}

func (m *Model) failMessage(messageID string, err error) {
	messages := m.lifecycle.Messages()
	for _, message := range messages {
		if message.ID == messageID {
			updated := *message
			updated.Status = types.MessageStatusError
			updated.Content = "The request failed: " + err.Error()
			m.lifecycle.UpdateMessage(updated)
			break
		}
	}
	m.status = err.Error()
	m.logger.Error("turn failed", logging.F("err", err))
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	contentHeight := height - m.input.Height() - 2
	if contentHeight < minContentHeight {
		contentHeight = minContentHeight
	}
	contentWidth := width - sidebarWidth - 3
	if contentWidth < 20 {
		contentWidth = 20
	}
	if !m.ready {
		m.viewport = viewport.New(contentWidth, contentHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = contentHeight
	}
	m.input.SetWidth(width - 2)
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	var plan *chat.PlanView
	if reducer := m.turn.Reducer(); reducer != nil {
		view := reducer.Plan()
		plan = &view
	}
	lines := renderTranscript(m.lifecycle.Messages(), m.viewport.Width)
	if m.showPlan && plan != nil {
		lines = append(lines, renderPlan(*plan, m.viewport.Width)...)
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(strings.Join(lines, "\n"))
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}
	sidebar := renderSidebar(m.lifecycle.Sessions(), m.lifecycle.ActiveID(), sidebarWidth, m.viewport.Height)
	divider := strings.TrimRight(strings.Repeat("│\n", m.viewport.Height), "\n")
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, dividerStyle.Render(divider), m.viewport.View())

	var inputView string
	if m.mode == uiModeRename {
		inputView = m.renameInput.View()
	} else {
		inputView = m.input.View()
	}

	statusLine := m.statusLine()
	return lipgloss.JoinVertical(lipgloss.Left, body, inputView, statusLine)
}

func (m *Model) statusLine() string {
	status := m.status
	if m.turn.Active() || m.pendingMessageID != "" {
		status = m.loader.View() + " " + status
	}
	help := "enter send · ^n new · ^r rename · ^x delete · ^j/^k switch · ^y copy · ^e plan · ^c quit"
	return statusStyle.Render(status) + "  " + helpStyle.Render(help)
}
