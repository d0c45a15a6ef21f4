// Package protocol defines the wire schema shared with the backend: the push
// event envelope, the closed set of event types, and their payloads. Payload
// decoding is strict; an event whose type is not in the table below is
// rejected at parse time rather than probed for fields.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/harmonic-chat/harmonic/internal/models"
	"github.com/harmonic-chat/harmonic/pkg/snowflake"
	"github.com/tidwall/gjson"
)

// EventType discriminates inbound push events.
type EventType string

const (
	EventMessageCreated EventType = "message.created"
	EventMessageUpdated EventType = "message.updated"
	EventMessageDeleted EventType = "message.deleted"

	EventReactionToggled EventType = "reaction.toggled"
	EventUnreadUpdated   EventType = "unread.updated"

	EventMemberJoined  EventType = "member.joined"
	EventMemberUpdated EventType = "member.updated"
	EventMemberLeft    EventType = "member.left"

	EventRoleCreated EventType = "role.created"
	EventRoleUpdated EventType = "role.updated"
	EventRoleDeleted EventType = "role.deleted"

	EventFriendRequestCreated  EventType = "friendrequest.created"
	EventFriendRequestAccepted EventType = "friendrequest.accepted"
	EventFriendRequestDeclined EventType = "friendrequest.declined"

	EventUserUpdated EventType = "user.updated"
)

var knownEvents = map[EventType]struct{}{
	EventMessageCreated:        {},
	EventMessageUpdated:        {},
	EventMessageDeleted:        {},
	EventReactionToggled:       {},
	EventUnreadUpdated:         {},
	EventMemberJoined:          {},
	EventMemberUpdated:         {},
	EventMemberLeft:            {},
	EventRoleCreated:           {},
	EventRoleUpdated:           {},
	EventRoleDeleted:           {},
	EventFriendRequestCreated:  {},
	EventFriendRequestAccepted: {},
	EventFriendRequestDeclined: {},
	EventUserUpdated:           {},
}

// Event is the push envelope delivered on every subscribed scope.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ErrUnknownEvent is wrapped by ParseEvent when the type discriminator is
// not part of the schema.
var ErrUnknownEvent = fmt.Errorf("unknown event type")

// ParseEvent decodes a raw frame into an Event, rejecting unknown types.
// The type field is peeked first so malformed payloads of known types can be
// reported distinctly from frames this client does not understand at all.
func ParseEvent(data []byte) (*Event, error) {
	t := gjson.GetBytes(data, "type")
	if !t.Exists() {
		return nil, fmt.Errorf("event frame missing type field")
	}
	typ := EventType(t.String())
	if _, ok := knownEvents[typ]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, typ)
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("failed to parse %s event: %w", typ, err)
	}
	return &ev, nil
}

func (e *Event) decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.Type, err)
	}
	return nil
}

// --- Message events ---

// MessageCreatePayload carries the full authoritative message. The nonce is
// echoed verbatim for sends originated by this session so pending rows can
// be retired.
type MessageCreatePayload struct {
	models.Message
	GuildID snowflake.ID `json:"guild_id,omitempty"`
}

// MessageCreate decodes a message.created payload.
func (e *Event) MessageCreate() (*MessageCreatePayload, error) {
	var p MessageCreatePayload
	return &p, e.decode(&p)
}

// MessageUpdatePayload is a partial patch applied to an already loaded
// message; only content and the edit timestamp change.
type MessageUpdatePayload struct {
	ID        snowflake.ID `json:"id"`
	ChannelID snowflake.ID `json:"channel_id"`
	Content   string       `json:"content"`
	UpdatedAt *time.Time   `json:"updated_at,omitempty"`
}

// MessageUpdate decodes a message.updated payload.
func (e *Event) MessageUpdate() (*MessageUpdatePayload, error) {
	var p MessageUpdatePayload
	return &p, e.decode(&p)
}

// MessageDeletePayload identifies a removed message.
type MessageDeletePayload struct {
	ID        snowflake.ID `json:"id"`
	ChannelID snowflake.ID `json:"channel_id"`
}

// MessageDelete decodes a message.deleted payload.
func (e *Event) MessageDelete() (*MessageDeletePayload, error) {
	var p MessageDeletePayload
	return &p, e.decode(&p)
}

// --- Reaction / unread events ---

// ReactionTogglePayload mirrors another session's (or this one's) toggle.
type ReactionTogglePayload struct {
	ChannelID snowflake.ID `json:"channel_id"`
	MessageID snowflake.ID `json:"message_id"`
	UserID    snowflake.ID `json:"user_id"`
	Emoji     string       `json:"emoji"`
}

// ReactionToggle decodes a reaction.toggled payload.
func (e *Event) ReactionToggle() (*ReactionTogglePayload, error) {
	var p ReactionTogglePayload
	return &p, e.decode(&p)
}

// UnreadUpdatePayload replaces the unread record for one channel. Mention
// detection authority lives server-side; the ids arrive here.
type UnreadUpdatePayload struct {
	models.UnreadRecord
}

// UnreadUpdate decodes an unread.updated payload.
func (e *Event) UnreadUpdate() (*UnreadUpdatePayload, error) {
	var p UnreadUpdatePayload
	return &p, e.decode(&p)
}

// --- Member / role / user events ---

// MemberPayload covers member.joined, member.updated and member.left.
type MemberPayload struct {
	GuildID snowflake.ID   `json:"guild_id"`
	Member  *models.Member `json:"member,omitempty"`
	User    *models.User   `json:"user,omitempty"`
}

// MemberChange decodes a member.* payload.
func (e *Event) MemberChange() (*MemberPayload, error) {
	var p MemberPayload
	return &p, e.decode(&p)
}

// RolePayload covers role.created, role.updated and role.deleted. Deletes
// carry only the ids.
type RolePayload struct {
	GuildID snowflake.ID `json:"guild_id"`
	RoleID  snowflake.ID `json:"role_id"`
	Role    *models.Role `json:"role,omitempty"`
}

// RoleChange decodes a role.* payload.
func (e *Event) RoleChange() (*RolePayload, error) {
	var p RolePayload
	return &p, e.decode(&p)
}

// FriendRequestPayload covers the friendrequest.* lifecycle.
type FriendRequestPayload struct {
	ID   snowflake.ID `json:"id"`
	From models.User  `json:"from"`
	To   snowflake.ID `json:"to"`
}

// FriendRequest decodes a friendrequest.* payload.
func (e *Event) FriendRequest() (*FriendRequestPayload, error) {
	var p FriendRequestPayload
	return &p, e.decode(&p)
}

// UserUpdatePayload carries a refreshed user profile.
type UserUpdatePayload struct {
	models.User
}

// UserUpdate decodes a user.updated payload.
func (e *Event) UserUpdate() (*UserUpdatePayload, error) {
	var p UserUpdatePayload
	return &p, e.decode(&p)
}
