package state

import (
	"testing"

	"github.com/harmonic-chat/harmonic/pkg/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	msgID  = snowflake.ID(1001)
	userA  = snowflake.ID(7)
	userB  = snowflake.ID(8)
	sessMe = userA
)

func TestToggleAddsAndRemoves(t *testing.T) {
	s := NewReactionStore()

	s.Toggle(testChannel, msgID, "👍", userA)
	got := s.ReactionsFor(testChannel, msgID, sessMe)
	require.Len(t, got, 1)
	assert.Equal(t, ReactionSummary{Emoji: "👍", Count: 1, Me: true}, got[0])

	s.Toggle(testChannel, msgID, "👍", userB)
	got = s.ReactionsFor(testChannel, msgID, sessMe)
	assert.Equal(t, 2, got[0].Count)

	s.Toggle(testChannel, msgID, "👍", userA)
	got = s.ReactionsFor(testChannel, msgID, sessMe)
	require.Len(t, got, 1)
	assert.Equal(t, ReactionSummary{Emoji: "👍", Count: 1, Me: false}, got[0])
}

func TestToggleInvolution(t *testing.T) {
	s := NewReactionStore()
	s.Toggle(testChannel, msgID, "🔥", userB)

	before := s.ReactionsFor(testChannel, msgID, sessMe)

	s.Toggle(testChannel, msgID, "🔥", userA)
	s.Toggle(testChannel, msgID, "🔥", userA)

	assert.Equal(t, before, s.ReactionsFor(testChannel, msgID, sessMe))
}

func TestZeroUserEmojiIsPruned(t *testing.T) {
	s := NewReactionStore()
	s.Toggle(testChannel, msgID, "👀", userA)
	s.Toggle(testChannel, msgID, "👀", userA)

	assert.Nil(t, s.ReactionsFor(testChannel, msgID, sessMe))
}

func TestReactionsKeepFirstToggleOrder(t *testing.T) {
	s := NewReactionStore()
	s.Toggle(testChannel, msgID, "🥇", userA)
	s.Toggle(testChannel, msgID, "🥈", userA)
	s.Toggle(testChannel, msgID, "🥇", userB)

	got := s.ReactionsFor(testChannel, msgID, sessMe)
	require.Len(t, got, 2)
	assert.Equal(t, "🥇", got[0].Emoji)
	assert.Equal(t, "🥈", got[1].Emoji)
}

func TestMeRecomputedPerIdentity(t *testing.T) {
	s := NewReactionStore()
	s.Toggle(testChannel, msgID, "👍", userB)

	asA := s.ReactionsFor(testChannel, msgID, userA)
	asB := s.ReactionsFor(testChannel, msgID, userB)
	assert.False(t, asA[0].Me)
	assert.True(t, asB[0].Me)
}

func TestDropMessage(t *testing.T) {
	s := NewReactionStore()
	s.Toggle(testChannel, msgID, "👍", userA)
	s.DropMessage(testChannel, msgID)
	assert.Nil(t, s.ReactionsFor(testChannel, msgID, sessMe))
}
