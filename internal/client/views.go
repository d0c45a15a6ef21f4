package client

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/harmonic-chat/harmonic/internal/models"
	"github.com/harmonic-chat/harmonic/pkg/snowflake"
)

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Loading..."
	}

	sidebar := a.renderSidebar()
	chat := a.renderChatPanel()

	main := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, chat)
	return lipgloss.JoinVertical(lipgloss.Left, main, a.renderStatusBar())
}

func (a *App) renderSidebar() string {
	width := a.width / 5
	if width < 20 {
		width = 20
	}
	height := a.height - 2

	var b strings.Builder
	for i, ch := range a.channels {
		if !ch.IsTextBased() {
			continue
		}

		name := ch.Name
		if ch.IsDM() {
			name = dmName(ch, a.session)
		}

		line := name
		style := a.styles.ChannelName
		if a.session.Unreads.IsUnread(ch.ID, ch.LastMessageID) {
			style = a.styles.UnreadName
		}
		if i == a.channelIndex {
			style = a.styles.ChannelSelected
		}
		line = style.Width(width - 4).Render(truncate(line, width-8))

		if n := a.session.Unreads.MentionCount(ch.ID); n > 0 {
			line += " " + a.styles.MentionBadge.Render(fmt.Sprintf("%d", n))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		Render(b.String())
}

// dmName labels a DM channel with the other participant's name.
func dmName(ch *models.Channel, s *Session) string {
	me := s.User()
	for _, r := range ch.Recipients {
		if me == nil || r.ID != me.ID {
			return "@" + r.Username
		}
	}
	return "@unknown"
}

func (a *App) renderChatPanel() string {
	header := ""
	if ch := a.currentChannel(); ch != nil {
		name := ch.Name
		if ch.IsDM() {
			name = dmName(ch, a.session)
		} else {
			name = "#" + name
		}
		header = a.styles.Status.Render(name)
	}

	inputLine := a.input.View()
	return lipgloss.JoinVertical(lipgloss.Left, header, a.chatViewport.View(), inputLine)
}

// refreshChat re-renders the current channel into the viewport from the
// composed view (authoritative plus pending).
func (a *App) refreshChat() {
	if !a.ready {
		return
	}
	ch := a.currentChannel()
	if ch == nil {
		a.chatViewport.SetContent("")
		return
	}

	msgs := a.session.View(ch.ID)
	var b strings.Builder
	var prev *models.Message
	for _, m := range msgs {
		b.WriteString(a.renderMessage(m, prev, ch))
		prev = m
	}
	a.chatViewport.SetContent(b.String())
}

func (a *App) renderMessage(m, prev *models.Message, ch *models.Channel) string {
	var b strings.Builder

	if !m.GroupsWith(prev) {
		ts := m.EffectiveTime().Local().Format("15:04")
		nameStyle := a.styles.UsernameOther
		me := a.session.User()
		if me != nil && m.Author.ID == me.ID {
			nameStyle = a.styles.UsernameSelf
		}
		b.WriteString("\n")
		b.WriteString(nameStyle.Render(m.Author.Username))
		b.WriteString(" ")
		b.WriteString(a.styles.Timestamp.Render(ts))
		b.WriteString("\n")
	}

	contentStyle := a.styles.Content
	if m.IsPending() {
		contentStyle = a.styles.Pending
	}
	b.WriteString(contentStyle.Render(m.Content))
	if m.IsPending() {
		b.WriteString(a.styles.Pending.Render(" (sending)"))
	}
	if m.IsEdited() {
		b.WriteString(a.styles.Edited.Render(" (edited)"))
	}
	b.WriteString("\n")

	if !m.IsPending() {
		var meID snowflake.ID
		if me := a.session.User(); me != nil {
			meID = me.ID
		}
		summaries := a.session.Reactions.ReactionsFor(ch.ID, m.ID, meID)
		if len(summaries) > 0 {
			var parts []string
			for _, r := range summaries {
				text := fmt.Sprintf("%s %d", r.Emoji, r.Count)
				if r.Me {
					parts = append(parts, a.styles.ReactionMine.Render(text))
				} else {
					parts = append(parts, a.styles.Reaction.Render(text))
				}
			}
			b.WriteString(strings.Join(parts, "  "))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func (a *App) renderStatusBar() string {
	style := a.styles.Status
	if a.statusError {
		style = a.styles.Error
	}
	text := a.statusMessage
	if text == "" {
		text = "tab: focus  pgup: older  ctrl+q: quit"
	}
	return style.Width(a.width).Render(truncate(text, a.width-2))
}

func truncate(s string, max int) string {
	if max <= 3 {
		return s
	}
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}
