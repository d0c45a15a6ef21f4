package models

import (
	"time"

	"github.com/harmonic-chat/harmonic/pkg/snowflake"
)

// UserStatus represents the online status of a user
type UserStatus string

const (
	StatusOnline  UserStatus = "online"
	StatusIdle    UserStatus = "idle"
	StatusDND     UserStatus = "dnd"
	StatusOffline UserStatus = "offline"
)

// User represents a user profile as delivered by the backend.
type User struct {
	ID          snowflake.ID `json:"id"`
	Username    string       `json:"username"`
	DisplayName string       `json:"display_name,omitempty"`
	AvatarHash  string       `json:"avatar_hash,omitempty"`
	Status      UserStatus   `json:"status,omitempty"`
	StatusText  string       `json:"status_text,omitempty"`
	IsBot       bool         `json:"is_bot,omitempty"`
	IsWebhook   bool         `json:"is_webhook,omitempty"`
}

// GetDisplayName returns the display name if set, otherwise the username.
func (u *User) GetDisplayName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// Member represents a user's membership in a guild.
type Member struct {
	UserID   snowflake.ID   `json:"user_id"`
	GuildID  snowflake.ID   `json:"guild_id"`
	Nickname string         `json:"nickname,omitempty"`
	RoleIDs  []snowflake.ID `json:"role_ids"`
	JoinedAt time.Time      `json:"joined_at"`
}

// HasRole checks if the member has a specific role.
func (m *Member) HasRole(roleID snowflake.ID) bool {
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}
