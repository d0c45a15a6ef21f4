package state

import (
	"sync"

	"github.com/harmonic-chat/harmonic/pkg/snowflake"
)

// ReactionSummary is what the UI renders per emoji on one message.
type ReactionSummary struct {
	Emoji string
	Count int
	Me    bool
}

type messageKey struct {
	channelID snowflake.ID
	messageID snowflake.ID
}

// emojiEntry tracks one emoji's reactors on one message. Entries keep their
// first-toggle order for stable rendering.
type emojiEntry struct {
	emoji string
	users map[snowflake.ID]struct{}
}

// ReactionStore aggregates per-message emoji reactions driven by toggle
// events. It does not distinguish an optimistic local toggle from an inbound
// echo of another user's; both flow through Toggle.
type ReactionStore struct {
	mu       sync.RWMutex
	messages map[messageKey][]*emojiEntry
}

// NewReactionStore creates an empty reaction aggregator.
func NewReactionStore() *ReactionStore {
	return &ReactionStore{
		messages: make(map[messageKey][]*emojiEntry),
	}
}

// Toggle flips userID's reaction with emoji on the message: removed if
// present, added otherwise. An emoji left with zero users is pruned, so two
// consecutive toggles for the same user restore the original state exactly.
func (s *ReactionStore) Toggle(channelID, messageID snowflake.ID, emoji string, userID snowflake.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := messageKey{channelID, messageID}
	entries := s.messages[key]
	for i, e := range entries {
		if e.emoji != emoji {
			continue
		}
		if _, ok := e.users[userID]; ok {
			delete(e.users, userID)
			if len(e.users) == 0 {
				entries = append(entries[:i], entries[i+1:]...)
				if len(entries) == 0 {
					delete(s.messages, key)
				} else {
					s.messages[key] = entries
				}
			}
		} else {
			e.users[userID] = struct{}{}
		}
		return
	}
	s.messages[key] = append(entries, &emojiEntry{
		emoji: emoji,
		users: map[snowflake.ID]struct{}{userID: {}},
	})
}

// ReactionsFor returns the message's reactions in first-toggle order. Me is
// computed against the passed session user, so it must be re-read whenever
// either the store or the current-user identity changes.
func (s *ReactionStore) ReactionsFor(channelID, messageID, me snowflake.ID) []ReactionSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.messages[messageKey{channelID, messageID}]
	if len(entries) == 0 {
		return nil
	}
	out := make([]ReactionSummary, 0, len(entries))
	for _, e := range entries {
		_, mine := e.users[me]
		out = append(out, ReactionSummary{
			Emoji: e.emoji,
			Count: len(e.users),
			Me:    mine,
		})
	}
	return out
}

// DropMessage discards all reaction state for a deleted message.
func (s *ReactionStore) DropMessage(channelID, messageID snowflake.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, messageKey{channelID, messageID})
}
