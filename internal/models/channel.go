package models

import "github.com/harmonic-chat/harmonic/pkg/snowflake"

// ChannelType represents the type of channel
type ChannelType int

const (
	ChannelTypeText     ChannelType = 0 // Text chat channel
	ChannelTypeDM       ChannelType = 1 // Direct message
	ChannelTypeCategory ChannelType = 3 // Channel category/folder
)

// Channel represents a communication channel within a guild, or a DM.
type Channel struct {
	ID            snowflake.ID `json:"channel_id"`
	GuildID       snowflake.ID `json:"guild_id,omitempty"` // Zero for DMs
	Type          ChannelType  `json:"type"`
	ParentID      snowflake.ID `json:"parent_id,omitempty"`
	Name          string       `json:"name"`
	Position      int          `json:"position"`
	LastMessageID snowflake.ID `json:"last_message_id,omitempty"`

	// For DM channels
	Recipients []Author `json:"recipients,omitempty"`

	// Permission overrides for roles; evaluation lives server-side, the
	// client only carries the bits.
	RolePermissions []RoleOverride `json:"role_permissions,omitempty"`
}

// RoleOverride allows/denies permission bits for a role in this channel.
type RoleOverride struct {
	RoleID snowflake.ID `json:"role_id"`
	Allow  int64        `json:"allow"`
	Deny   int64        `json:"deny"`
}

// IsDM returns true if this is a direct message channel.
func (c *Channel) IsDM() bool {
	return c.Type == ChannelTypeDM
}

// IsTextBased returns true if the channel holds messages.
func (c *Channel) IsTextBased() bool {
	return c.Type == ChannelTypeText || c.Type == ChannelTypeDM
}
