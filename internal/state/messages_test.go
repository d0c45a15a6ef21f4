package state

import (
	"testing"
	"time"

	"github.com/harmonic-chat/harmonic/internal/models"
	"github.com/harmonic-chat/harmonic/pkg/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChannel = snowflake.ID(42)

// idAt builds a snowflake whose encoded timestamp is ms milliseconds after
// the epoch.
func idAt(ms int64) snowflake.ID {
	return snowflake.ID(ms) << 22
}

func authMsg(id snowflake.ID, content string) *models.Message {
	return &models.Message{
		ID:        id,
		ChannelID: testChannel,
		Author:    models.Author{ID: 7, Username: "ada"},
		Content:   content,
		CreatedAt: id.Time(),
	}
}

func TestMergeHistoryNormalizesAndDeduplicates(t *testing.T) {
	s := NewMessageStore()

	// Newest-first page, as the history endpoint typically returns.
	added := s.MergeHistory(testChannel, []*models.Message{
		authMsg(idAt(300), "c"),
		authMsg(idAt(200), "b"),
		authMsg(idAt(100), "a"),
	})
	assert.Equal(t, 3, added)

	// Overlapping older page, oldest-first this time.
	added = s.MergeHistory(testChannel, []*models.Message{
		authMsg(idAt(50), "z"),
		authMsg(idAt(100), "a"),
	})
	assert.Equal(t, 1, added)

	msgs := s.Messages(testChannel)
	require.Len(t, msgs, 4)
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].EffectiveTime().Before(msgs[i-1].EffectiveTime()))
	}
	seen := make(map[snowflake.ID]bool)
	for _, m := range msgs {
		assert.False(t, seen[m.ID], "duplicate id %s", m.ID)
		seen[m.ID] = true
	}
}

func TestMergeHistoryHasMoreHeuristic(t *testing.T) {
	s := NewMessageStore()

	full := make([]*models.Message, PageSize)
	for i := range full {
		full[i] = authMsg(idAt(int64(1000+i)), "x")
	}
	s.MergeHistory(testChannel, full)
	assert.True(t, s.HasMore(testChannel), "a full page implies more history")

	short := []*models.Message{
		authMsg(idAt(10), "old"),
		authMsg(idAt(20), "old"),
	}
	s.MergeHistory(testChannel, short[:2])
	assert.False(t, s.HasMore(testChannel), "a short page means the beginning was reached")
}

func TestMergeHistoryShortPage(t *testing.T) {
	s := NewMessageStore()
	page := make([]*models.Message, 12)
	for i := range page {
		page[i] = authMsg(idAt(int64(100+i)), "m")
	}
	assert.Equal(t, 12, s.MergeHistory(testChannel, page))
	assert.False(t, s.HasMore(testChannel))
}

func TestFetchedRequiresHistoryNotLiveEvents(t *testing.T) {
	s := NewMessageStore()

	assert.False(t, s.Fetched(testChannel))
	s.ApplyCreate(authMsg(idAt(100), "live"))
	assert.False(t, s.Fetched(testChannel), "a window seeded by pushes has no backlog yet")

	s.MergeHistory(testChannel, []*models.Message{authMsg(idAt(50), "old")})
	assert.True(t, s.Fetched(testChannel))
}

func TestFetchedSetByEmptyPage(t *testing.T) {
	s := NewMessageStore()
	s.MergeHistory(testChannel, nil)
	assert.True(t, s.Fetched(testChannel), "an empty channel is still a completed fetch")
	assert.False(t, s.HasMore(testChannel))
}

func TestApplyCreateInsertsOnce(t *testing.T) {
	s := NewMessageStore()
	msg := authMsg(idAt(100), "hi")

	assert.True(t, s.ApplyCreate(msg))
	assert.False(t, s.ApplyCreate(msg), "same id must not insert twice")
	assert.Len(t, s.Messages(testChannel), 1)
}

func TestApplyCreateInterleavedWithHistory(t *testing.T) {
	s := NewMessageStore()

	// Live create lands before history does.
	live := authMsg(idAt(500), "live")
	require.True(t, s.ApplyCreate(live))

	s.MergeHistory(testChannel, []*models.Message{
		authMsg(idAt(300), "h2"),
		authMsg(idAt(500), "live"), // the same message echoed in the page
		authMsg(idAt(100), "h1"),
	})

	msgs := s.Messages(testChannel)
	require.Len(t, msgs, 3)
	assert.Equal(t, idAt(100), msgs[0].ID)
	assert.Equal(t, idAt(300), msgs[1].ID)
	assert.Equal(t, idAt(500), msgs[2].ID)
}

func TestApplyUpdatePatchesInPlace(t *testing.T) {
	s := NewMessageStore()
	s.ApplyCreate(authMsg(idAt(100), "original"))

	edited := time.Now()
	assert.True(t, s.ApplyUpdate(testChannel, idAt(100), "edited", &edited))

	msgs := s.Messages(testChannel)
	require.Len(t, msgs, 1)
	assert.Equal(t, "edited", msgs[0].Content)
	require.NotNil(t, msgs[0].UpdatedAt)

	// Update for an unloaded message is a tolerated no-op.
	assert.False(t, s.ApplyUpdate(testChannel, idAt(999), "x", nil))
	assert.False(t, s.ApplyUpdate(snowflake.ID(9), idAt(100), "x", nil))
}

func TestApplyDelete(t *testing.T) {
	s := NewMessageStore()
	s.ApplyCreate(authMsg(idAt(100), "a"))
	s.ApplyCreate(authMsg(idAt(200), "b"))

	assert.True(t, s.ApplyDelete(testChannel, idAt(100)))
	assert.False(t, s.ApplyDelete(testChannel, idAt(100)), "second delete is a no-op")

	msgs := s.Messages(testChannel)
	require.Len(t, msgs, 1)
	assert.Equal(t, idAt(200), msgs[0].ID)
}

func TestOldestID(t *testing.T) {
	s := NewMessageStore()
	assert.True(t, s.OldestID(testChannel).IsZero())

	s.MergeHistory(testChannel, []*models.Message{
		authMsg(idAt(300), "c"),
		authMsg(idAt(100), "a"),
	})
	assert.Equal(t, idAt(100), s.OldestID(testChannel))
}

func TestComposeViewDropsAcknowledgedPending(t *testing.T) {
	echo := authMsg(idAt(100), "hello")
	echo.Nonce = "n-1"

	pending := &models.Message{
		Nonce:     "n-1",
		ChannelID: testChannel,
		Content:   "hello",
		CreatedAt: time.Now(),
	}
	other := &models.Message{
		Nonce:     "n-2",
		ChannelID: testChannel,
		Content:   "still sending",
		CreatedAt: time.Now(),
	}

	view := ComposeView([]*models.Message{echo}, []*models.Message{pending, other})
	require.Len(t, view, 2)
	assert.Equal(t, echo, view[0])
	assert.Equal(t, other, view[1])
}

func TestComposeViewOrdersPendingByWallClock(t *testing.T) {
	oldAuth := authMsg(idAt(100), "old")
	pending := &models.Message{
		Nonce:     "n-1",
		ChannelID: testChannel,
		CreatedAt: time.Now(),
	}
	view := ComposeView([]*models.Message{oldAuth}, []*models.Message{pending})
	require.Len(t, view, 2)
	assert.Equal(t, oldAuth, view[0])
	assert.Equal(t, pending, view[1])
}
