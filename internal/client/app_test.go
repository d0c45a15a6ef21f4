package client

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harmonic-chat/harmonic/internal/models"
	"github.com/harmonic-chat/harmonic/internal/rest"
	"github.com/harmonic-chat/harmonic/internal/themes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(api *fakeAPI) *App {
	app := NewApp(newTestSession(api), themes.GetDefaultTheme())
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return app
}

func openTestChannel(app *App) *models.Channel {
	ch := &models.Channel{ID: testChannel, Type: models.ChannelTypeText, Name: "general"}
	app.channels = []*models.Channel{ch}
	app.channelIndex = 0
	return ch
}

func TestSendShowsPendingRowBeforeTransmit(t *testing.T) {
	api := &fakeAPI{echoNonce: true}
	app := newTestApp(api)
	openTestChannel(app)

	app.input.SetValue("hello optimistic")
	cmd := app.handleSend()
	require.NotNil(t, cmd)

	// The row is staged and rendered before anything hits the wire.
	assert.Empty(t, api.sent)
	assert.Equal(t, 1, app.session.Pending.Len())
	rendered := app.chatViewport.View()
	assert.Contains(t, rendered, "hello optimistic")
	assert.Contains(t, rendered, "(sending)")

	// The command completes the transmit; the row turns authoritative.
	msg := cmd()
	_, ok := msg.(EventMsg)
	require.True(t, ok)
	assert.Equal(t, []string{"hello optimistic"}, api.sent)
	assert.Equal(t, 0, app.session.Pending.Len())
	view := app.session.View(testChannel)
	require.Len(t, view, 1)
	assert.False(t, view[0].IsPending())
}

func TestSendFailureClearsPendingRow(t *testing.T) {
	api := &fakeAPI{sendErr: rest.ErrNetwork}
	app := newTestApp(api)
	openTestChannel(app)

	app.input.SetValue("doomed")
	cmd := app.handleSend()
	require.NotNil(t, cmd)
	assert.Equal(t, 1, app.session.Pending.Len())

	msg := cmd()
	errMsg, ok := msg.(ErrorMsg)
	require.True(t, ok)
	assert.NotEmpty(t, errMsg.Error)

	app.Update(msg)
	assert.Equal(t, 0, app.session.Pending.Len())
	assert.NotContains(t, app.chatViewport.View(), "doomed")
}

func TestNearBottomAllowsThresholdRows(t *testing.T) {
	app := newTestApp(&fakeAPI{})
	app.chatViewport.SetContent(strings.Repeat("line\n", 99) + "line")

	app.chatViewport.GotoTop()
	assert.False(t, app.nearBottom())

	app.chatViewport.GotoBottom()
	assert.True(t, app.nearBottom())

	app.chatViewport.LineUp(NearBottomThreshold)
	assert.True(t, app.nearBottom(), "within the threshold still counts as reading")

	app.chatViewport.LineUp(1)
	assert.False(t, app.nearBottom())
}

func TestOpenChannelLoadsBacklogBehindLivePushes(t *testing.T) {
	api := &fakeAPI{pages: [][]*models.Message{
		{{ID: idAt(100), ChannelID: testChannel, Content: "old", CreatedAt: idAt(100).Time()}},
	}}
	app := newTestApp(api)
	openTestChannel(app)

	// A live push seeded the window before the channel was ever opened.
	app.session.Messages.ApplyCreate(&models.Message{
		ID: idAt(500), ChannelID: testChannel, Content: "live", CreatedAt: idAt(500).Time(),
	})

	cmd := app.selectChannel(0)
	require.NotNil(t, cmd)
	loaded, ok := cmd().(HistoryLoadedMsg)
	require.True(t, ok)
	assert.Equal(t, testChannel, loaded.ChannelID)
	assert.Equal(t, 2, app.session.Messages.Len(testChannel), "backlog merged behind the live row")

	// Re-opening a fetched channel must not refetch.
	cmd = app.selectChannel(0)
	require.NotNil(t, cmd)
	cmd()
	assert.Len(t, api.pageCalls, 1)
}
