// Package state holds the client-side canonical stores: per-channel message
// windows, staged optimistic sends, reaction tallies and unread records.
// Each store owns exactly one concern and exposes a narrow read/write
// contract; rendering code reads from them and never mutates.
package state

import (
	"sort"
	"sync"
	"time"

	"github.com/harmonic-chat/harmonic/internal/models"
	"github.com/harmonic-chat/harmonic/pkg/snowflake"
)

// PageSize is the history fetch page size. A full page implies more history
// may exist; a short page means the beginning of the channel was reached.
// The boundary case where exactly PageSize messages remain is corrected by
// the next (empty) fetch.
const PageSize = 50

// channelWindow is the in-memory message window for one channel, kept sorted
// ascending by effective timestamp.
type channelWindow struct {
	list    []*models.Message
	byID    map[snowflake.ID]*models.Message
	hasMore bool
	fetched bool // at least one history page merged; live events alone never set it
}

// MessageStore is the merge engine: it combines paginated history fetches
// with live create/update/delete events into one de-duplicated, time-ordered
// list per channel.
type MessageStore struct {
	mu       sync.RWMutex
	channels map[snowflake.ID]*channelWindow
}

// NewMessageStore creates an empty message store.
func NewMessageStore() *MessageStore {
	return &MessageStore{
		channels: make(map[snowflake.ID]*channelWindow),
	}
}

func (s *MessageStore) window(channelID snowflake.ID) *channelWindow {
	w, ok := s.channels[channelID]
	if !ok {
		w = &channelWindow{
			byID:    make(map[snowflake.ID]*models.Message),
			hasMore: true,
		}
		s.channels[channelID] = w
	}
	return w
}

// MergeHistory merges a history page into the channel window, de-duplicating
// by id, and reports how many rows were new. The page may arrive newest-first
// or oldest-first; ordering is normalized here before the merge.
func (s *MessageStore) MergeHistory(channelID snowflake.ID, page []*models.Message) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.window(channelID)
	added := 0
	for _, msg := range page {
		if msg.ID.IsZero() {
			continue // history is authoritative, a row without an id is malformed
		}
		if _, ok := w.byID[msg.ID]; ok {
			continue
		}
		w.byID[msg.ID] = msg
		w.list = append(w.list, msg)
		added++
	}
	if added > 0 {
		sortWindow(w.list)
	}
	w.hasMore = len(page) == PageSize
	w.fetched = true
	return added
}

// Fetched reports whether the channel has completed at least one history
// fetch. A window seeded only by live create events has rows but no history
// behind them yet.
func (s *MessageStore) Fetched(channelID snowflake.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.channels[channelID]
	return ok && w.fetched
}

// HasMore reports whether older history may exist for the channel. This is
// the page-size heuristic, not an authoritative end-of-history signal.
func (s *MessageStore) HasMore(channelID snowflake.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.channels[channelID]
	if !ok {
		return true
	}
	return w.hasMore
}

// OldestID returns the id to use as the `before` cursor for the next history
// page, or zero when the window is empty.
func (s *MessageStore) OldestID(channelID snowflake.ID) snowflake.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.channels[channelID]
	if !ok || len(w.list) == 0 {
		return 0
	}
	return w.list[0].ID
}

// ApplyCreate inserts an authoritative message into the channel window. It
// returns false if a row with the same id is already present.
func (s *MessageStore) ApplyCreate(msg *models.Message) bool {
	if msg.ID.IsZero() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.window(msg.ChannelID)
	if _, ok := w.byID[msg.ID]; ok {
		return false
	}
	w.byID[msg.ID] = msg

	// Live creates are almost always the newest row; insert in place
	// instead of resorting the whole window.
	i := sort.Search(len(w.list), func(i int) bool {
		return laterThan(w.list[i], msg)
	})
	w.list = append(w.list, nil)
	copy(w.list[i+1:], w.list[i:])
	w.list[i] = msg
	return true
}

// ApplyUpdate patches content and the edit timestamp of a loaded message in
// place. It returns false when the message is not currently loaded; that is
// a tolerated no-op, not an error — a channel that is not open silently
// drops the update.
func (s *MessageStore) ApplyUpdate(channelID, messageID snowflake.ID, content string, updatedAt *time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.channels[channelID]
	if !ok {
		return false
	}
	msg, ok := w.byID[messageID]
	if !ok {
		return false
	}
	msg.Content = content
	msg.UpdatedAt = updatedAt
	return true
}

// ApplyDelete removes the message if present; no-op otherwise.
func (s *MessageStore) ApplyDelete(channelID, messageID snowflake.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.channels[channelID]
	if !ok {
		return false
	}
	if _, ok := w.byID[messageID]; !ok {
		return false
	}
	delete(w.byID, messageID)
	for i, msg := range w.list {
		if msg.ID == messageID {
			w.list = append(w.list[:i], w.list[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports whether an authoritative row with the given id is loaded.
func (s *MessageStore) Contains(channelID, messageID snowflake.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.channels[channelID]
	if !ok {
		return false
	}
	_, ok = w.byID[messageID]
	return ok
}

// Messages returns a copy of the channel's authoritative window, ascending
// by derived timestamp.
func (s *MessageStore) Messages(channelID snowflake.ID) []*models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.channels[channelID]
	if !ok {
		return nil
	}
	out := make([]*models.Message, len(w.list))
	copy(out, w.list)
	return out
}

// Len returns the number of authoritative rows loaded for the channel.
func (s *MessageStore) Len(channelID snowflake.ID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.channels[channelID]
	if !ok {
		return 0
	}
	return len(w.list)
}

// ComposeView merge-sorts the authoritative window with the channel's staged
// pending rows into the single ordered list the UI renders. A pending row
// whose nonce already appears on an authoritative row is dropped here, so a
// send and its server echo can never render twice even if reconciliation has
// not caught up yet. Both inputs are already ascending; pending rows carry
// only wall-clock timestamps, so they normally land at the tail.
func ComposeView(authoritative, pending []*models.Message) []*models.Message {
	if len(pending) == 0 {
		return authoritative
	}
	acked := make(map[string]struct{})
	for _, msg := range authoritative {
		if msg.Nonce != "" {
			acked[msg.Nonce] = struct{}{}
		}
	}
	out := make([]*models.Message, 0, len(authoritative)+len(pending))
	i, j := 0, 0
	for i < len(authoritative) || j < len(pending) {
		if j < len(pending) {
			if _, ok := acked[pending[j].Nonce]; ok {
				j++
				continue
			}
		}
		switch {
		case i == len(authoritative):
			out = append(out, pending[j])
			j++
		case j == len(pending):
			out = append(out, authoritative[i])
			i++
		case laterThan(authoritative[i], pending[j]):
			out = append(out, pending[j])
			j++
		default:
			out = append(out, authoritative[i])
			i++
		}
	}
	return out
}

func sortWindow(list []*models.Message) {
	sort.SliceStable(list, func(i, j int) bool {
		return laterThan(list[j], list[i])
	})
}

// laterThan reports whether a sorts strictly after b: by effective timestamp,
// with the snowflake id as tie-breaker so same-millisecond rows keep issuer
// order.
func laterThan(a, b *models.Message) bool {
	at, bt := a.EffectiveTime(), b.EffectiveTime()
	if !at.Equal(bt) {
		return at.After(bt)
	}
	return a.ID > b.ID
}
