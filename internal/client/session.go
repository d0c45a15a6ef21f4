package client

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/harmonic-chat/harmonic/internal/database"
	"github.com/harmonic-chat/harmonic/internal/gateway"
	"github.com/harmonic-chat/harmonic/internal/models"
	"github.com/harmonic-chat/harmonic/internal/protocol"
	"github.com/harmonic-chat/harmonic/internal/state"
	"github.com/harmonic-chat/harmonic/pkg/snowflake"
)

const (
	// AckDebounce caps read acknowledgements at one per channel per window.
	AckDebounce = 10 * time.Second
	// MemberPollInterval is how often the open channel's guild member list
	// is refreshed.
	MemberPollInterval = 5 * time.Second
	// NearBottomThreshold is how many rows above the newest message the
	// viewport may sit while scrolling still counts as reading it.
	NearBottomThreshold = 5
)

// RestAPI is the slice of the REST client the session consumes.
type RestAPI interface {
	Messages(channelID, before snowflake.ID) ([]*models.Message, error)
	SendMessage(channelID snowflake.ID, content, nonce string) (*models.Message, error)
	EditMessage(channelID, messageID snowflake.ID, content string) (*models.Message, error)
	DeleteMessage(channelID, messageID snowflake.ID) error
	Ack(channelID, messageID snowflake.ID) error
	Unreads() ([]models.UnreadRecord, error)
	Members(guildID snowflake.ID) ([]*models.Member, error)
	Channels() ([]*models.Channel, error)
	Me() (*models.User, error)
}

// Session wires the REST client, the gateway and the state stores into one
// logical client. All store mutation funnels through here or through the
// router, so the UI only ever reads.
type Session struct {
	rest   RestAPI
	conn   *gateway.Connection
	Router *gateway.Router

	Messages  *state.MessageStore
	Pending   *state.PendingStore
	Reactions *state.ReactionStore
	Unreads   *state.UnreadStore
	Directory *state.DirectoryStore

	cache *database.DB // optional local read-state cache

	mu       sync.Mutex
	user     *models.User
	channels map[snowflake.ID]*models.Channel
	lastAck  map[snowflake.ID]time.Time

	pollStop chan struct{}

	// now is the session clock, injectable for tests.
	now func() time.Time
}

// NewSession creates a session around the given REST client and gateway
// connection. cache may be nil.
func NewSession(api RestAPI, conn *gateway.Connection, cache *database.DB) *Session {
	messages := state.NewMessageStore()
	pending := state.NewPendingStore()
	reactions := state.NewReactionStore()
	unreads := state.NewUnreadStore()
	directory := state.NewDirectoryStore()

	s := &Session{
		rest:      api,
		conn:      conn,
		Router:    gateway.NewRouter(messages, pending, reactions, unreads, directory),
		Messages:  messages,
		Pending:   pending,
		Reactions: reactions,
		Unreads:   unreads,
		Directory: directory,
		cache:     cache,
		channels:  make(map[snowflake.ID]*models.Channel),
		lastAck:   make(map[snowflake.ID]time.Time),
		now:       time.Now,
	}
	if conn != nil {
		conn.SetHandlers(s.Router.HandleEvent, s.handleDisconnect)
	}
	return s
}

func (s *Session) handleDisconnect(err error) {
	if err != nil {
		log.Printf("Gateway disconnected: %v", err)
	}
}

// Start loads the session profile, channel list and unread snapshot, then
// connects the gateway and subscribes the user scope plus one scope per
// guild. The locally cached read state is loaded first so badges render
// sensibly even if the snapshot fetch fails.
func (s *Session) Start() error {
	user, err := s.rest.Me()
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	s.Directory.PutUser(user)

	channels, err := s.rest.Channels()
	if err != nil {
		return fmt.Errorf("failed to load channels: %w", err)
	}
	s.SetChannels(channels)

	if s.cache != nil {
		if cached, err := s.cache.LoadRecords(); err != nil {
			log.Printf("Failed to load cached read state: %v", err)
		} else {
			s.Unreads.LoadSnapshot(cached)
		}
	}
	if records, err := s.rest.Unreads(); err != nil {
		log.Printf("Failed to load unread snapshot: %v", err)
	} else {
		s.Unreads.LoadSnapshot(records)
	}

	if s.conn != nil {
		if err := s.conn.Connect(); err != nil {
			return err
		}
		if err := s.subscribeScopes(); err != nil {
			return err
		}
	}
	return nil
}

// Stop disconnects the gateway, cancels the member poll and flushes read
// state to the local cache.
func (s *Session) Stop() {
	s.StopMemberPoll()
	if s.conn != nil {
		s.conn.Disconnect()
	}
	if s.cache != nil {
		if err := s.cache.SaveAll(s.Unreads.All()); err != nil {
			log.Printf("Failed to persist read state: %v", err)
		}
	}
}

// User returns the session user.
func (s *Session) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// SetChannels replaces the channel cache and subscribes any newly visible
// guild scopes. The router's subscribed-scope set makes re-subscription a
// no-op.
func (s *Session) SetChannels(channels []*models.Channel) {
	s.mu.Lock()
	s.channels = make(map[snowflake.ID]*models.Channel, len(channels))
	for _, ch := range channels {
		s.channels[ch.ID] = ch
	}
	s.mu.Unlock()

	if s.conn != nil && s.conn.IsConnected() {
		if err := s.subscribeScopes(); err != nil {
			log.Printf("Failed to refresh scope subscriptions: %v", err)
		}
	}
}

func (s *Session) subscribeScopes() error {
	s.mu.Lock()
	scopes := make([]protocol.Scope, 0, len(s.channels)+1)
	if s.user != nil {
		scopes = append(scopes, protocol.UserScope(s.user.ID))
	}
	seen := make(map[snowflake.ID]struct{})
	for _, ch := range s.channels {
		if ch.GuildID.IsZero() {
			continue
		}
		if _, ok := seen[ch.GuildID]; ok {
			continue
		}
		seen[ch.GuildID] = struct{}{}
		scopes = append(scopes, protocol.GuildScope(ch.GuildID))
	}
	s.mu.Unlock()
	return s.Router.EnsureScopes(s.conn, scopes...)
}

// Channel returns the cached channel, or nil.
func (s *Session) Channel(channelID snowflake.ID) *models.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channels[channelID]
}

// Channels returns the cached channel list.
func (s *Session) Channels() []*models.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		out = append(out, ch)
	}
	return out
}

// LoadHistory fetches one page of history for the channel: the most recent
// page on first call, pages older than the current window afterwards. It
// returns the number of new rows merged.
func (s *Session) LoadHistory(channelID snowflake.ID) (int, error) {
	before := s.Messages.OldestID(channelID)
	page, err := s.rest.Messages(channelID, before)
	if err != nil {
		return 0, err
	}
	return s.Messages.MergeHistory(channelID, page), nil
}

// Stage records an optimistic row for the channel and returns it. The row
// shows up in View immediately; it stays pending until Transmit (or the
// matching message.created event) retires it.
func (s *Session) Stage(channelID snowflake.ID, content string) *models.Message {
	s.mu.Lock()
	user := s.user
	s.mu.Unlock()

	author := models.Author{}
	if user != nil {
		author = models.Author{
			ID:          user.ID,
			Username:    user.Username,
			DisplayName: user.DisplayName,
		}
	}
	return s.Pending.Stage(channelID, content, author)
}

// Transmit fires the POST for a staged row. On success the response echo is
// reconciled immediately; the message.created event takes the same path and
// whichever arrives first retires the pending row. On failure the staged row
// is rolled back and the error returned for a toast.
func (s *Session) Transmit(staged *models.Message) error {
	msg, err := s.rest.SendMessage(staged.ChannelID, staged.Content, staged.Nonce)
	if err != nil {
		s.Pending.Fail(staged.Nonce)
		return fmt.Errorf("message not sent: %w", err)
	}
	if msg != nil && !msg.ID.IsZero() {
		// The backend is contractually required to echo the nonce verbatim;
		// a mismatch here would surface as duplicate rows on other paths, so
		// it is logged loudly even though this path can reconcile by the
		// request's own nonce.
		if msg.Nonce != staged.Nonce {
			log.Printf("Backend broke nonce round-trip: sent %q, got %q", staged.Nonce, msg.Nonce)
		}
		s.Pending.Reconcile(staged.Nonce)
		s.Messages.ApplyCreate(msg)
	}
	return nil
}

// Send stages and transmits in one call, for callers with no rendering
// between the two.
func (s *Session) Send(channelID snowflake.ID, content string) error {
	return s.Transmit(s.Stage(channelID, content))
}

// Edit replaces a message's content server-side; the local patch arrives via
// the message.updated event.
func (s *Session) Edit(channelID, messageID snowflake.ID, content string) error {
	if _, err := s.rest.EditMessage(channelID, messageID, content); err != nil {
		return fmt.Errorf("edit failed: %w", err)
	}
	return nil
}

// Delete removes a message server-side.
func (s *Session) Delete(channelID, messageID snowflake.ID) error {
	if err := s.rest.DeleteMessage(channelID, messageID); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	return nil
}

// ToggleReaction applies an optimistic local toggle. The backend observes
// the toggle through its own channel and echoes a reaction.toggled event to
// other sessions; this one already reflects it.
func (s *Session) ToggleReaction(channelID, messageID snowflake.ID, emoji string) {
	s.mu.Lock()
	user := s.user
	s.mu.Unlock()
	if user == nil {
		return
	}
	s.Reactions.Toggle(channelID, messageID, emoji, user.ID)
}

// View returns the channel's render list: authoritative window merged with
// pending rows, ascending, no duplicate logical messages.
func (s *Session) View(channelID snowflake.ID) []*models.Message {
	return state.ComposeView(s.Messages.Messages(channelID), s.Pending.Pending(channelID))
}

// MarkRead moves the channel's last-read pointer to messageID and fires the
// backend ack, debounced to one call per channel per AckDebounce window. The
// local pointer always moves; only the ack is debounced. Ack failure is
// surfaced as a returned error for a toast and never retried.
func (s *Session) MarkRead(channelID, messageID snowflake.ID) error {
	s.Unreads.SetLastRead(channelID, messageID)

	if s.cache != nil {
		if rec, ok := s.Unreads.Record(channelID); ok {
			if err := s.cache.SaveRecord(rec); err != nil {
				log.Printf("Failed to cache read state: %v", err)
			}
		}
	}

	s.mu.Lock()
	last, ok := s.lastAck[channelID]
	now := s.now()
	if ok && now.Sub(last) < AckDebounce {
		s.mu.Unlock()
		return nil
	}
	s.lastAck[channelID] = now
	s.mu.Unlock()

	if err := s.rest.Ack(channelID, messageID); err != nil {
		return fmt.Errorf("read state not acknowledged: %w", err)
	}
	return nil
}

// StartMemberPoll begins refreshing the guild's member list every
// MemberPollInterval. Any previous poll is stopped first; the ticker is
// explicitly cancelled, never leaked.
func (s *Session) StartMemberPoll(guildID snowflake.ID) {
	s.StopMemberPoll()
	if guildID.IsZero() {
		return
	}

	stop := make(chan struct{})
	s.mu.Lock()
	s.pollStop = stop
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(MemberPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				members, err := s.rest.Members(guildID)
				if err != nil {
					log.Printf("Member poll failed: %v", err)
					continue
				}
				s.Directory.SetMembers(guildID, members)
			case <-stop:
				return
			}
		}
	}()
}

// StopMemberPoll cancels the member poll if one is running.
func (s *Session) StopMemberPoll() {
	s.mu.Lock()
	stop := s.pollStop
	s.pollStop = nil
	s.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}
