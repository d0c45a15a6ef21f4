package state

import (
	"sync"

	"github.com/harmonic-chat/harmonic/internal/models"
	"github.com/harmonic-chat/harmonic/pkg/snowflake"
)

// ReadState is the derived per-channel read status.
type ReadState int

const (
	// ReadStateUnknown means no unread record exists for the channel yet.
	ReadStateUnknown ReadState = iota
	// ReadStateRead means the last-read pointer covers the newest message.
	ReadStateRead
	// ReadStateUnread means messages newer than the last-read pointer exist.
	ReadStateUnread
)

// UnreadStore derives per-channel unread and mention state from snowflake
// timestamp comparisons. Unread status is always derived against a channel's
// last_message_id, never stored alongside the message list.
type UnreadStore struct {
	mu      sync.RWMutex
	records map[snowflake.ID]*models.UnreadRecord
}

// NewUnreadStore creates an empty unread tracker.
func NewUnreadStore() *UnreadStore {
	return &UnreadStore{
		records: make(map[snowflake.ID]*models.UnreadRecord),
	}
}

// LoadSnapshot replaces all records with the backend's unread snapshot.
func (s *UnreadStore) LoadSnapshot(records []models.UnreadRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[snowflake.ID]*models.UnreadRecord, len(records))
	for i := range records {
		rec := records[i]
		s.records[rec.ChannelID] = &rec
	}
}

// Apply replaces one channel's record, driven by an unread.updated event.
// Mention ids are taken from the payload verbatim; mention detection
// authority lives server-side.
func (s *UnreadStore) Apply(rec models.UnreadRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ChannelID] = &rec
}

// SetLastRead moves the channel's last-read pointer to messageID and clears
// accumulated mentions. Callers fire the backend ack separately.
func (s *UnreadStore) SetLastRead(channelID, messageID snowflake.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[channelID]
	if !ok {
		rec = &models.UnreadRecord{ChannelID: channelID}
		s.records[channelID] = rec
	}
	rec.LastReadMessageID = messageID
	rec.MentionedMessageIDs = nil
}

// State derives the channel's read state from its last_message_id. A channel
// with no record but a non-zero last message is conservatively unread; a
// channel that never had a message stays unknown. Comparison is by snowflake
// timestamp, not id equality.
func (s *UnreadStore) State(channelID, lastMessageID snowflake.ID) ReadState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[channelID]
	if !ok {
		if lastMessageID.IsZero() {
			return ReadStateUnknown
		}
		return ReadStateUnread
	}
	if lastMessageID.After(rec.LastReadMessageID) {
		return ReadStateUnread
	}
	return ReadStateRead
}

// IsUnread reports whether the channel has messages newer than the last-read
// pointer.
func (s *UnreadStore) IsUnread(channelID, lastMessageID snowflake.ID) bool {
	return s.State(channelID, lastMessageID) == ReadStateUnread
}

// MentionCount returns the channel's mention badge count.
func (s *UnreadStore) MentionCount(channelID snowflake.ID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[channelID]
	if !ok {
		return 0
	}
	return len(rec.MentionedMessageIDs)
}

// Record returns a copy of the channel's unread record, or false when none
// exists yet.
func (s *UnreadStore) Record(channelID snowflake.ID) (models.UnreadRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[channelID]
	if !ok {
		return models.UnreadRecord{}, false
	}
	return *rec, true
}

// All returns a copy of every unread record, used when persisting read state
// locally.
func (s *UnreadStore) All() []models.UnreadRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.UnreadRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	return out
}
