package gateway

import (
	"fmt"
	"log"
	"sync"

	"github.com/harmonic-chat/harmonic/internal/protocol"
	"github.com/harmonic-chat/harmonic/internal/state"
)

// Subscriber is the slice of Connection the router needs: the ability to ask
// the backend for more scopes.
type Subscriber interface {
	Subscribe(scopes ...protocol.Scope) error
}

// Router fans inbound events out to the state stores. Routing is a static
// dispatch table on the event type; no ordering is enforced between event
// types for the same message beyond "operate on current state, no-op if
// absent".
type Router struct {
	Messages  *state.MessageStore
	Pending   *state.PendingStore
	Reactions *state.ReactionStore
	Unreads   *state.UnreadStore
	Directory *state.DirectoryStore

	// OnFriendRequest receives friendrequest.* events; the friends surface
	// lives outside the sync core.
	OnFriendRequest func(protocol.EventType, *protocol.FriendRequestPayload)

	// Notify runs after every successfully routed event, typically to wake
	// the UI.
	Notify func(*protocol.Event)

	mu         sync.Mutex
	subscribed map[protocol.Scope]struct{}
}

// NewRouter creates a router targeting the given stores.
func NewRouter(messages *state.MessageStore, pending *state.PendingStore, reactions *state.ReactionStore, unreads *state.UnreadStore, directory *state.DirectoryStore) *Router {
	return &Router{
		Messages:   messages,
		Pending:    pending,
		Reactions:  reactions,
		Unreads:    unreads,
		Directory:  directory,
		subscribed: make(map[protocol.Scope]struct{}),
	}
}

// EnsureScopes subscribes to any scope not already subscribed. Re-requesting
// a scope the router already holds is a no-op, so guild list refreshes never
// produce duplicate subscriptions.
func (r *Router) EnsureScopes(conn Subscriber, scopes ...protocol.Scope) error {
	r.mu.Lock()
	var missing []protocol.Scope
	for _, s := range scopes {
		if _, ok := r.subscribed[s]; !ok {
			missing = append(missing, s)
			r.subscribed[s] = struct{}{}
		}
	}
	r.mu.Unlock()

	if len(missing) == 0 {
		return nil
	}
	if err := conn.Subscribe(missing...); err != nil {
		// Roll back so a later attempt retries the subscribe.
		r.mu.Lock()
		for _, s := range missing {
			delete(r.subscribed, s)
		}
		r.mu.Unlock()
		return fmt.Errorf("failed to subscribe scopes: %w", err)
	}
	return nil
}

// Subscribed reports whether the router holds the scope.
func (r *Router) Subscribed(scope protocol.Scope) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.subscribed[scope]
	return ok
}

// Route dispatches one event to its store. Decode failures are returned, not
// fatal; the caller logs and moves on.
func (r *Router) Route(ev *protocol.Event) error {
	switch ev.Type {
	case protocol.EventMessageCreated:
		p, err := ev.MessageCreate()
		if err != nil {
			return err
		}
		// Retire the matching pending row before inserting so the UI never
		// observes both rows for one logical send.
		if p.Nonce != "" {
			r.Pending.Reconcile(p.Nonce)
		}
		msg := p.Message
		r.Messages.ApplyCreate(&msg)

	case protocol.EventMessageUpdated:
		p, err := ev.MessageUpdate()
		if err != nil {
			return err
		}
		r.Messages.ApplyUpdate(p.ChannelID, p.ID, p.Content, p.UpdatedAt)

	case protocol.EventMessageDeleted:
		p, err := ev.MessageDelete()
		if err != nil {
			return err
		}
		r.Messages.ApplyDelete(p.ChannelID, p.ID)
		r.Reactions.DropMessage(p.ChannelID, p.ID)

	case protocol.EventReactionToggled:
		p, err := ev.ReactionToggle()
		if err != nil {
			return err
		}
		r.Reactions.Toggle(p.ChannelID, p.MessageID, p.Emoji, p.UserID)

	case protocol.EventUnreadUpdated:
		p, err := ev.UnreadUpdate()
		if err != nil {
			return err
		}
		r.Unreads.Apply(p.UnreadRecord)

	case protocol.EventMemberJoined, protocol.EventMemberUpdated:
		p, err := ev.MemberChange()
		if err != nil {
			return err
		}
		r.Directory.PutMember(p.Member)
		r.Directory.PutUser(p.User)

	case protocol.EventMemberLeft:
		p, err := ev.MemberChange()
		if err != nil {
			return err
		}
		if p.User != nil {
			r.Directory.RemoveMember(p.GuildID, p.User.ID)
		}

	case protocol.EventRoleCreated, protocol.EventRoleUpdated:
		p, err := ev.RoleChange()
		if err != nil {
			return err
		}
		r.Directory.PutRole(p.Role)

	case protocol.EventRoleDeleted:
		p, err := ev.RoleChange()
		if err != nil {
			return err
		}
		r.Directory.RemoveRole(p.GuildID, p.RoleID)

	case protocol.EventFriendRequestCreated, protocol.EventFriendRequestAccepted, protocol.EventFriendRequestDeclined:
		p, err := ev.FriendRequest()
		if err != nil {
			return err
		}
		if r.OnFriendRequest != nil {
			r.OnFriendRequest(ev.Type, p)
		}

	case protocol.EventUserUpdated:
		p, err := ev.UserUpdate()
		if err != nil {
			return err
		}
		user := p.User
		r.Directory.PutUser(&user)

	default:
		// ParseEvent already rejects unknown types; reaching here means the
		// schema table and this switch drifted apart.
		return fmt.Errorf("unrouted event type %q", ev.Type)
	}

	if r.Notify != nil {
		r.Notify(ev)
	}
	return nil
}

// HandleEvent is the Connection callback: route and log, never crash.
func (r *Router) HandleEvent(ev *protocol.Event) {
	if err := r.Route(ev); err != nil {
		log.Printf("Failed to route %s event: %v", ev.Type, err)
	}
}
