package client

import (
	"testing"
	"time"

	"github.com/harmonic-chat/harmonic/internal/models"
	"github.com/harmonic-chat/harmonic/internal/rest"
	"github.com/harmonic-chat/harmonic/internal/state"
	"github.com/harmonic-chat/harmonic/pkg/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChannel = snowflake.ID(42)

func idAt(ms int64) snowflake.ID {
	return snowflake.ID(ms) << 22
}

// fakeAPI implements RestAPI in memory.
type fakeAPI struct {
	pages     [][]*models.Message
	pageCalls []snowflake.ID

	sendErr   error
	echoNonce bool
	sent      []string

	acks    []snowflake.ID
	ackErr  error
	members [][]*models.Member
}

func (f *fakeAPI) Messages(channelID, before snowflake.ID) ([]*models.Message, error) {
	f.pageCalls = append(f.pageCalls, before)
	if len(f.pages) == 0 {
		return nil, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func (f *fakeAPI) SendMessage(channelID snowflake.ID, content, nonce string) (*models.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, content)
	msg := &models.Message{
		ID:        idAt(9000),
		ChannelID: channelID,
		Content:   content,
		CreatedAt: idAt(9000).Time(),
	}
	if f.echoNonce {
		msg.Nonce = nonce
	}
	return msg, nil
}

func (f *fakeAPI) EditMessage(channelID, messageID snowflake.ID, content string) (*models.Message, error) {
	return nil, nil
}

func (f *fakeAPI) DeleteMessage(channelID, messageID snowflake.ID) error { return nil }

func (f *fakeAPI) Ack(channelID, messageID snowflake.ID) error {
	if f.ackErr != nil {
		return f.ackErr
	}
	f.acks = append(f.acks, messageID)
	return nil
}

func (f *fakeAPI) Unreads() ([]models.UnreadRecord, error)    { return nil, nil }
func (f *fakeAPI) Channels() ([]*models.Channel, error)       { return nil, nil }
func (f *fakeAPI) Me() (*models.User, error)                  { return &models.User{ID: 7, Username: "ada"}, nil }
func (f *fakeAPI) Members(guildID snowflake.ID) ([]*models.Member, error) {
	if len(f.members) == 0 {
		return nil, nil
	}
	m := f.members[0]
	f.members = f.members[1:]
	return m, nil
}

func newTestSession(api *fakeAPI) *Session {
	s := NewSession(api, nil, nil)
	s.user = &models.User{ID: 7, Username: "ada"}
	return s
}

func TestLoadHistoryPagesBackwards(t *testing.T) {
	api := &fakeAPI{pages: [][]*models.Message{
		{
			{ID: idAt(300), ChannelID: testChannel, CreatedAt: idAt(300).Time()},
			{ID: idAt(200), ChannelID: testChannel, CreatedAt: idAt(200).Time()},
		},
		{
			{ID: idAt(100), ChannelID: testChannel, CreatedAt: idAt(100).Time()},
		},
	}}
	s := newTestSession(api)

	added, err := s.LoadHistory(testChannel)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, snowflake.ID(0), api.pageCalls[0], "first fetch has no cursor")

	added, err = s.LoadHistory(testChannel)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, idAt(200), api.pageCalls[1], "second fetch starts before the oldest row")
	assert.False(t, s.Messages.HasMore(testChannel))
}

func TestSendSuccessLeavesOneRow(t *testing.T) {
	api := &fakeAPI{echoNonce: true}
	s := newTestSession(api)

	require.NoError(t, s.Send(testChannel, "hello"))

	view := s.View(testChannel)
	require.Len(t, view, 1)
	assert.Equal(t, idAt(9000), view[0].ID)
	assert.Empty(t, s.Pending.Pending(testChannel))
}

func TestStageIsVisibleBeforeTransmit(t *testing.T) {
	// Staging and the network call are separate steps so a renderer can show
	// the optimistic row while the POST is still in flight.
	api := &fakeAPI{echoNonce: true}
	s := newTestSession(api)

	staged := s.Stage(testChannel, "hello")
	require.NotNil(t, staged)
	assert.Empty(t, api.sent, "nothing on the wire yet")

	view := s.View(testChannel)
	require.Len(t, view, 1)
	assert.True(t, view[0].IsPending())
	assert.Equal(t, "hello", view[0].Content)
	assert.Equal(t, snowflake.ID(7), view[0].Author.ID)

	require.NoError(t, s.Transmit(staged))
	view = s.View(testChannel)
	require.Len(t, view, 1)
	assert.False(t, view[0].IsPending())
	assert.Empty(t, s.Pending.Pending(testChannel))
}

func TestSendFailureRollsBack(t *testing.T) {
	api := &fakeAPI{sendErr: rest.ErrNetwork}
	s := newTestSession(api)

	err := s.Send(testChannel, "doomed")
	require.Error(t, err)
	assert.ErrorIs(t, err, rest.ErrNetwork)
	assert.Empty(t, s.View(testChannel), "no stuck sending row")
}

func TestSendWithoutNonceEchoStillReconciles(t *testing.T) {
	// The response path knows its own nonce, so even a backend that breaks
	// the echo contract cannot leave a duplicate through this path.
	api := &fakeAPI{echoNonce: false}
	s := newTestSession(api)

	require.NoError(t, s.Send(testChannel, "hello"))
	view := s.View(testChannel)
	require.Len(t, view, 1)
	assert.Equal(t, idAt(9000), view[0].ID)
	assert.Empty(t, s.Pending.Pending(testChannel))
}

func TestMarkReadDebouncesAcks(t *testing.T) {
	api := &fakeAPI{}
	s := newTestSession(api)

	clock := time.Unix(1700000000, 0)
	s.now = func() time.Time { return clock }

	require.NoError(t, s.MarkRead(testChannel, idAt(100)))
	require.Len(t, api.acks, 1)

	// Within the window: local pointer moves, no second ack.
	clock = clock.Add(3 * time.Second)
	require.NoError(t, s.MarkRead(testChannel, idAt(200)))
	assert.Len(t, api.acks, 1)
	assert.Equal(t, state.ReadStateRead, s.Unreads.State(testChannel, idAt(200)))

	// Past the window: ack fires again.
	clock = clock.Add(AckDebounce)
	require.NoError(t, s.MarkRead(testChannel, idAt(300)))
	assert.Len(t, api.acks, 2)
	assert.Equal(t, idAt(300), api.acks[1])
}

func TestMarkReadDebouncePerChannel(t *testing.T) {
	api := &fakeAPI{}
	s := newTestSession(api)
	clock := time.Unix(1700000000, 0)
	s.now = func() time.Time { return clock }

	require.NoError(t, s.MarkRead(testChannel, idAt(100)))
	require.NoError(t, s.MarkRead(snowflake.ID(99), idAt(100)))
	assert.Len(t, api.acks, 2, "channels debounce independently")
}

func TestMarkReadSurfacesAckFailure(t *testing.T) {
	api := &fakeAPI{ackErr: rest.ErrNetwork}
	s := newTestSession(api)

	err := s.MarkRead(testChannel, idAt(100))
	require.Error(t, err)
	// The local pointer still moved; the ack is best effort.
	assert.Equal(t, state.ReadStateRead, s.Unreads.State(testChannel, idAt(100)))
}

func TestMemberPollStops(t *testing.T) {
	api := &fakeAPI{members: [][]*models.Member{
		{{UserID: 7, GuildID: 9}},
	}}
	s := newTestSession(api)

	s.StartMemberPoll(snowflake.ID(9))
	s.mu.Lock()
	running := s.pollStop != nil
	s.mu.Unlock()
	assert.True(t, running)

	s.StopMemberPoll()
	s.mu.Lock()
	stopped := s.pollStop == nil
	s.mu.Unlock()
	assert.True(t, stopped)

	// Idempotent.
	s.StopMemberPoll()
}

func TestToggleReactionUsesSessionUser(t *testing.T) {
	s := newTestSession(&fakeAPI{})
	s.ToggleReaction(testChannel, idAt(100), "👍")

	got := s.Reactions.ReactionsFor(testChannel, idAt(100), 7)
	require.Len(t, got, 1)
	assert.True(t, got[0].Me)

	s.ToggleReaction(testChannel, idAt(100), "👍")
	assert.Nil(t, s.Reactions.ReactionsFor(testChannel, idAt(100), 7))
}
