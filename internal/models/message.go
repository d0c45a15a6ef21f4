package models

import (
	"time"

	"github.com/harmonic-chat/harmonic/pkg/snowflake"
)

// Message represents a chat message as the client sees it: either an
// authoritative row delivered by the backend (keyed by ID) or a pending
// optimistic send (keyed by Nonce until the server echo arrives).
type Message struct {
	ID        snowflake.ID `json:"id,omitempty"`
	Nonce     string       `json:"nonce,omitempty"`
	ChannelID snowflake.ID `json:"channel_id"`
	Author    Author       `json:"author"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt *time.Time   `json:"updated_at,omitempty"`

	Mentions          []snowflake.ID     `json:"mentions,omitempty"`
	MessageReferences []MessageReference `json:"message_references,omitempty"`
}

// Author is the message author as embedded in message payloads.
type Author struct {
	ID          snowflake.ID `json:"id"`
	Username    string       `json:"username"`
	DisplayName string       `json:"display_name,omitempty"`
	IsBot       bool         `json:"is_bot,omitempty"`
	IsWebhook   bool         `json:"is_webhook,omitempty"`
}

// MessageReference points at a message this one replies to. The model allows
// more than one; the UI renders at most the first.
type MessageReference struct {
	MessageID snowflake.ID `json:"message_id"`
}

// IsPending reports whether the message is a staged optimistic send that has
// not been acknowledged by the server yet.
func (m *Message) IsPending() bool {
	return m.ID.IsZero()
}

// IsEdited reports whether the message has been edited since creation.
func (m *Message) IsEdited() bool {
	return m.UpdatedAt != nil && !m.UpdatedAt.Equal(m.CreatedAt)
}

// ReplyTo returns the replied-to message ID, or zero if this is not a reply.
func (m *Message) ReplyTo() snowflake.ID {
	if len(m.MessageReferences) == 0 {
		return 0
	}
	return m.MessageReferences[0].MessageID
}

// MentionsUser reports whether the message mentions the given user.
func (m *Message) MentionsUser(userID snowflake.ID) bool {
	for _, id := range m.Mentions {
		if id == userID {
			return true
		}
	}
	return false
}

// EffectiveTime is the ordering key for the channel list: the snowflake
// timestamp for authoritative messages, the local wall clock for pending
// ones. Pending rows therefore sort after everything the server has already
// assigned an ID to at stage time.
func (m *Message) EffectiveTime() time.Time {
	if m.IsPending() {
		return m.CreatedAt
	}
	return m.ID.Time()
}

// SameLogical reports whether two rows describe the same logical message:
// equal non-zero IDs, or an exact nonce match when either side is still
// pending. Nonces compare byte for byte; no trimming or coercion.
func (m *Message) SameLogical(other *Message) bool {
	if !m.ID.IsZero() && !other.ID.IsZero() {
		return m.ID == other.ID
	}
	return m.Nonce != "" && m.Nonce == other.Nonce
}

// GroupGap is the maximum spacing between two consecutive messages from the
// same author for them to render as one visual group.
const GroupGap = 60 * time.Second

// GroupsWith reports whether m should render grouped under prev (no repeated
// author header). Pure presentation logic over two adjacent list entries.
func (m *Message) GroupsWith(prev *Message) bool {
	if prev == nil {
		return false
	}
	if prev.Author.ID != m.Author.ID {
		return false
	}
	return m.EffectiveTime().Sub(prev.EffectiveTime()) < GroupGap
}
