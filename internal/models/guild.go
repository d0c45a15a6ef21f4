package models

import "github.com/harmonic-chat/harmonic/pkg/snowflake"

// Guild represents a community grouping of channels and members.
type Guild struct {
	ID       snowflake.ID `json:"id"`
	Name     string       `json:"name"`
	IconHash string       `json:"icon_hash,omitempty"`
	OwnerID  snowflake.ID `json:"owner_id"`
}

// Role represents a guild role. Permission bits are carried verbatim; the
// client never evaluates the hierarchy.
type Role struct {
	ID          snowflake.ID `json:"id"`
	GuildID     snowflake.ID `json:"guild_id"`
	Name        string       `json:"name"`
	Color       int          `json:"color"`
	Permissions int64        `json:"permissions"`
	Position    int          `json:"position"`
}
