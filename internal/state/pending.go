package state

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harmonic-chat/harmonic/internal/models"
	"github.com/harmonic-chat/harmonic/pkg/snowflake"
)

// PendingStore is the optimistic send tracker. It owns every staged message
// exclusively until the send is reconciled against its server echo or fails;
// staged entries are only ever removed as a unit, never edited in place by
// other components.
type PendingStore struct {
	mu      sync.RWMutex
	byNonce map[string]*models.Message
}

// NewPendingStore creates an empty pending-send tracker.
func NewPendingStore() *PendingStore {
	return &PendingStore{
		byNonce: make(map[string]*models.Message),
	}
}

// NewNonce generates a session-unique correlation token: millisecond
// timestamp plus a random suffix. A collision within one session is a
// defect, not something handled defensively.
func NewNonce() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// Stage records an optimistic send and returns the staged message. The
// caller fires the network call separately; the staged entry renders as
// "sending" until Reconcile or Fail retires it.
func (s *PendingStore) Stage(channelID snowflake.ID, content string, author models.Author) *models.Message {
	msg := &models.Message{
		Nonce:     NewNonce(),
		ChannelID: channelID,
		Author:    author,
		Content:   content,
		CreatedAt: time.Now(),
	}
	s.mu.Lock()
	s.byNonce[msg.Nonce] = msg
	s.mu.Unlock()
	return msg
}

// Reconcile retires the staged entry with the given nonce, typically because
// its authoritative counterpart arrived. Nonces match exactly, byte for
// byte; the authoritative message enters the canonical list via the normal
// event path, so removal is this method's only job. It returns the retired
// entry, or nil when no entry carries that nonce.
func (s *PendingStore) Reconcile(nonce string) *models.Message {
	if nonce == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.byNonce[nonce]
	if !ok {
		return nil
	}
	delete(s.byNonce, nonce)
	return msg
}

// Fail removes the staged entry after a send failure so no stuck "sending"
// row remains. It returns the removed entry, or nil if it was already
// reconciled.
func (s *PendingStore) Fail(nonce string) *models.Message {
	return s.Reconcile(nonce)
}

// Pending returns the channel's staged messages ascending by stage time.
func (s *PendingStore) Pending(channelID snowflake.ID) []*models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Message
	for _, msg := range s.byNonce {
		if msg.ChannelID == channelID {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Nonce < out[j].Nonce
	})
	return out
}

// Len returns the number of staged sends across all channels.
func (s *PendingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byNonce)
}
