package client

import (
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/harmonic-chat/harmonic/internal/models"
	"github.com/harmonic-chat/harmonic/internal/protocol"
	"github.com/harmonic-chat/harmonic/internal/themes"
	"github.com/harmonic-chat/harmonic/pkg/snowflake"
)

// FocusArea represents which area of the UI has focus
type FocusArea int

const (
	FocusSidebar FocusArea = iota
	FocusChat
	FocusInput
)

// App is the bubbletea model. It renders exclusively from the session's
// stores; every mutation goes through the session.
type App struct {
	width  int
	height int
	focus  FocusArea

	theme  *themes.Theme
	styles *themes.Styles

	session *Session

	channels     []*models.Channel
	channelIndex int

	input        textinput.Model
	chatViewport viewport.Model

	statusMessage string
	statusError   bool

	ready bool
}

// NewApp creates the application model around a session.
func NewApp(session *Session, theme *themes.Theme) *App {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = 2000
	input.Width = 50
	input.Focus()

	return &App{
		focus:   FocusInput,
		theme:   theme,
		styles:  theme.BuildStyles(),
		session: session,
		input:   input,
	}
}

// --- Message types for tea.Cmd ---

// StartedMsg indicates the session finished its initial load.
type StartedMsg struct{}

// EventMsg wakes the UI after the router applied a push event.
type EventMsg struct {
	Type      protocol.EventType
	ChannelID snowflake.ID
}

// HistoryLoadedMsg reports a completed history fetch.
type HistoryLoadedMsg struct {
	ChannelID snowflake.ID
	Added     int
}

// ErrorMsg carries a transient, user-visible failure.
type ErrorMsg struct {
	Error string
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		func() tea.Msg {
			if err := a.session.Start(); err != nil {
				return ErrorMsg{Error: err.Error()}
			}
			return StartedMsg{}
		},
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd := a.handleKeyPress(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.updateViewportSize()

	case StartedMsg:
		a.statusMessage = "Connected"
		a.statusError = false
		a.reloadChannels()
		if len(a.channels) > 0 {
			cmds = append(cmds, a.selectChannel(0))
		}

	case EventMsg:
		a.reloadChannels()
		if ch := a.currentChannel(); ch != nil && msg.ChannelID == ch.ID {
			atBottom := a.nearBottom()
			a.refreshChat()
			if atBottom {
				a.chatViewport.GotoBottom()
				cmds = append(cmds, a.markReadCmd())
			}
		}

	case HistoryLoadedMsg:
		if ch := a.currentChannel(); ch != nil && msg.ChannelID == ch.ID {
			a.refreshChat()
			a.chatViewport.GotoBottom()
			cmds = append(cmds, a.markReadCmd())
		}

	case ErrorMsg:
		a.statusMessage = msg.Error
		a.statusError = true
		a.refreshChat()
	}

	if a.focus == FocusInput {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		cmds = append(cmds, cmd)
	} else if a.focus == FocusChat {
		var cmd tea.Cmd
		a.chatViewport, cmd = a.chatViewport.Update(msg)
		cmds = append(cmds, cmd)
		if a.nearBottom() {
			cmds = append(cmds, a.markReadCmd())
		}
	}

	return a, tea.Batch(cmds...)
}

// handleKeyPress handles keyboard input.
func (a *App) handleKeyPress(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "ctrl+q":
		a.session.Stop()
		return tea.Quit

	case "tab":
		a.cycleFocus()

	case "enter":
		if a.focus == FocusInput {
			return a.handleSend()
		}

	case "esc":
		a.focus = FocusSidebar
		a.input.Blur()

	case "up", "k":
		if a.focus == FocusSidebar {
			return a.navigateSidebar(-1)
		}
		if a.focus == FocusChat {
			a.chatViewport.LineUp(1)
		}

	case "down", "j":
		if a.focus == FocusSidebar {
			return a.navigateSidebar(1)
		}
		if a.focus == FocusChat {
			a.chatViewport.LineDown(1)
		}

	case "pgup":
		if a.focus == FocusChat {
			a.chatViewport.HalfViewUp()
			if a.chatViewport.AtTop() {
				return a.loadOlderCmd()
			}
		}

	case "pgdown":
		if a.focus == FocusChat {
			a.chatViewport.HalfViewDown()
		}
	}

	return nil
}

func (a *App) cycleFocus() {
	switch a.focus {
	case FocusSidebar:
		a.focus = FocusChat
	case FocusChat:
		a.focus = FocusInput
		a.input.Focus()
	case FocusInput:
		a.focus = FocusSidebar
		a.input.Blur()
	}
}

func (a *App) navigateSidebar(delta int) tea.Cmd {
	if len(a.channels) == 0 {
		return nil
	}
	a.channelIndex += delta
	if a.channelIndex < 0 {
		a.channelIndex = len(a.channels) - 1
	} else if a.channelIndex >= len(a.channels) {
		a.channelIndex = 0
	}
	return a.selectChannel(a.channelIndex)
}

func (a *App) currentChannel() *models.Channel {
	if a.channelIndex < 0 || a.channelIndex >= len(a.channels) {
		return nil
	}
	return a.channels[a.channelIndex]
}

// reloadChannels re-reads the session channel cache in sidebar order.
func (a *App) reloadChannels() {
	channels := a.session.Channels()
	sort.Slice(channels, func(i, j int) bool {
		if channels[i].GuildID != channels[j].GuildID {
			return channels[i].GuildID < channels[j].GuildID
		}
		if channels[i].Position != channels[j].Position {
			return channels[i].Position < channels[j].Position
		}
		return channels[i].ID < channels[j].ID
	})
	a.channels = channels
	if a.channelIndex >= len(a.channels) {
		a.channelIndex = 0
	}
}

// selectChannel opens a channel: history load plus the member poll for its
// guild. A fetch for a channel navigated away from is allowed to complete
// and merge; the window is keyed by channel id, so the result is harmless.
func (a *App) selectChannel(index int) tea.Cmd {
	if index < 0 || index >= len(a.channels) {
		return nil
	}
	a.channelIndex = index
	ch := a.channels[index]
	a.session.StartMemberPoll(ch.GuildID)
	a.refreshChat()

	// A window seeded only by live pushes still needs its backlog.
	if !a.session.Messages.Fetched(ch.ID) {
		return a.loadHistoryCmd(ch.ID)
	}
	a.chatViewport.GotoBottom()
	return a.markReadCmd()
}

func (a *App) loadHistoryCmd(channelID snowflake.ID) tea.Cmd {
	return func() tea.Msg {
		added, err := a.session.LoadHistory(channelID)
		if err != nil {
			return ErrorMsg{Error: err.Error()}
		}
		return HistoryLoadedMsg{ChannelID: channelID, Added: added}
	}
}

func (a *App) loadOlderCmd() tea.Cmd {
	ch := a.currentChannel()
	if ch == nil || !a.session.Messages.HasMore(ch.ID) {
		return nil
	}
	return a.loadHistoryCmd(ch.ID)
}

// nearBottom reports whether the viewport sits within NearBottomThreshold
// rows of the newest message, which is the bar for counting it as read.
func (a *App) nearBottom() bool {
	return a.chatViewport.YOffset+a.chatViewport.Height+NearBottomThreshold >= a.chatViewport.TotalLineCount()
}

// markReadCmd acks the newest loaded message; the session debounces the
// actual network call.
func (a *App) markReadCmd() tea.Cmd {
	ch := a.currentChannel()
	if ch == nil {
		return nil
	}
	msgs := a.session.Messages.Messages(ch.ID)
	if len(msgs) == 0 {
		return nil
	}
	newest := msgs[len(msgs)-1].ID
	return func() tea.Msg {
		if err := a.session.MarkRead(ch.ID, newest); err != nil {
			return ErrorMsg{Error: err.Error()}
		}
		return nil
	}
}

func (a *App) handleSend() tea.Cmd {
	content := strings.TrimSpace(a.input.Value())
	if content == "" {
		return nil
	}
	ch := a.currentChannel()
	if ch == nil {
		return nil
	}
	a.input.Reset()

	// Stage synchronously so the pending row renders before the network
	// round-trip; only the POST runs in the command. The EventMsg afterwards
	// re-renders whatever state the transmit left behind.
	staged := a.session.Stage(ch.ID, content)
	a.refreshChat()
	a.chatViewport.GotoBottom()
	return func() tea.Msg {
		if err := a.session.Transmit(staged); err != nil {
			return ErrorMsg{Error: err.Error()}
		}
		return EventMsg{ChannelID: staged.ChannelID}
	}
}

func (a *App) updateViewportSize() {
	sidebarWidth := a.width / 5
	if sidebarWidth < 20 {
		sidebarWidth = 20
	}
	chatWidth := a.width - sidebarWidth - 2
	chatHeight := a.height - 5

	a.chatViewport = viewport.New(chatWidth, chatHeight)
	a.input.Width = chatWidth - 4
	a.ready = true
	a.refreshChat()
	a.chatViewport.GotoBottom()
}
