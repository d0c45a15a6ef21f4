package models

import "github.com/harmonic-chat/harmonic/pkg/snowflake"

// UnreadRecord is the per-channel read-state snapshot: the last message the
// user acknowledged plus mention ids accumulated since. Mention ids come from
// inbound events only; the client never scans message content itself.
type UnreadRecord struct {
	ChannelID           snowflake.ID   `json:"channel_id"`
	LastReadMessageID   snowflake.ID   `json:"last_read_message_id"`
	MentionedMessageIDs []snowflake.ID `json:"mentioned_message_ids,omitempty"`
}
