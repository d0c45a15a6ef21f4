package state

import (
	"testing"

	"github.com/harmonic-chat/harmonic/internal/models"
	"github.com/harmonic-chat/harmonic/pkg/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAuthor = models.Author{ID: 7, Username: "ada"}

func TestStageCreatesPendingMessage(t *testing.T) {
	s := NewPendingStore()

	msg := s.Stage(testChannel, "hello", testAuthor)
	require.NotNil(t, msg)
	assert.NotEmpty(t, msg.Nonce)
	assert.True(t, msg.IsPending())
	assert.Equal(t, "hello", msg.Content)
	assert.False(t, msg.CreatedAt.IsZero())

	pending := s.Pending(testChannel)
	require.Len(t, pending, 1)
	assert.Equal(t, msg.Nonce, pending[0].Nonce)
}

func TestNonceUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		n := NewNonce()
		assert.False(t, seen[n], "nonce collision: %s", n)
		seen[n] = true
	}
}

func TestReconcileRetiresExactlyOnce(t *testing.T) {
	s := NewPendingStore()
	msg := s.Stage(testChannel, "hello", testAuthor)

	retired := s.Reconcile(msg.Nonce)
	require.NotNil(t, retired)
	assert.Equal(t, msg.Nonce, retired.Nonce)
	assert.Empty(t, s.Pending(testChannel))

	assert.Nil(t, s.Reconcile(msg.Nonce), "second reconcile finds nothing")
}

func TestReconcileRequiresExactMatch(t *testing.T) {
	s := NewPendingStore()
	msg := s.Stage(testChannel, "hello", testAuthor)

	// A truncated or padded nonce must not match.
	assert.Nil(t, s.Reconcile(msg.Nonce[:len(msg.Nonce)-1]))
	assert.Nil(t, s.Reconcile(msg.Nonce+" "))
	assert.Nil(t, s.Reconcile(""))
	assert.Len(t, s.Pending(testChannel), 1)
}

func TestStageReconcileLeavesExactlyOneVisibleRow(t *testing.T) {
	messages := NewMessageStore()
	pending := NewPendingStore()

	staged := pending.Stage(testChannel, "hello", testAuthor)

	// The authoritative echo arrives via the normal event path.
	echo := &models.Message{
		ID:        idAt(1000),
		Nonce:     staged.Nonce,
		ChannelID: testChannel,
		Author:    testAuthor,
		Content:   "hello",
		CreatedAt: idAt(1000).Time(),
	}
	pending.Reconcile(echo.Nonce)
	messages.ApplyCreate(echo)

	view := ComposeView(messages.Messages(testChannel), pending.Pending(testChannel))
	require.Len(t, view, 1)
	assert.Equal(t, idAt(1000), view[0].ID)
	assert.Equal(t, "hello", view[0].Content)
}

func TestFailRollsBackStagedRow(t *testing.T) {
	s := NewPendingStore()
	msg := s.Stage(testChannel, "will fail", testAuthor)

	removed := s.Fail(msg.Nonce)
	require.NotNil(t, removed)
	assert.Empty(t, s.Pending(testChannel))
	assert.Zero(t, s.Len())
}

func TestPendingIsScopedPerChannel(t *testing.T) {
	s := NewPendingStore()
	s.Stage(testChannel, "a", testAuthor)
	s.Stage(snowflake.ID(99), "b", testAuthor)

	assert.Len(t, s.Pending(testChannel), 1)
	assert.Len(t, s.Pending(snowflake.ID(99)), 1)
	assert.Equal(t, 2, s.Len())
}
