package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/harmonic-chat/harmonic/pkg/snowflake"
)

// Scope identifies a push event channel: the session user's private scope or
// one guild's scope.
type Scope string

// UserScope returns the private per-user scope identifier.
func UserScope(userID snowflake.ID) Scope {
	return Scope("user." + userID.String())
}

// GuildScope returns the scope identifier for one guild.
func GuildScope(guildID snowflake.ID) Scope {
	return Scope("guild." + guildID.String())
}

// Op is a client -> server frame kind.
type Op string

const (
	OpSubscribe   Op = "subscribe"
	OpUnsubscribe Op = "unsubscribe"
)

// Command is the client -> server frame for scope management.
type Command struct {
	Op     Op      `json:"op"`
	Scopes []Scope `json:"scopes"`
}

// NewSubscribe builds a subscribe frame for the given scopes.
func NewSubscribe(scopes ...Scope) *Command {
	return &Command{Op: OpSubscribe, Scopes: scopes}
}

// NewUnsubscribe builds an unsubscribe frame for the given scopes.
func NewUnsubscribe(scopes ...Scope) *Command {
	return &Command{Op: OpUnsubscribe, Scopes: scopes}
}

// Encode marshals the command for the wire.
func (c *Command) Encode() ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s command: %w", c.Op, err)
	}
	return data, nil
}
