package state

import (
	"sync"

	"github.com/harmonic-chat/harmonic/internal/models"
	"github.com/harmonic-chat/harmonic/pkg/snowflake"
)

// DirectoryStore caches user profiles plus per-guild members and roles. It
// is fed from two directions: push events (member/role/user mutations) and
// the periodic member poll while a guild channel is open.
type DirectoryStore struct {
	mu      sync.RWMutex
	users   map[snowflake.ID]*models.User
	members map[snowflake.ID]map[snowflake.ID]*models.Member // guild -> user -> member
	roles   map[snowflake.ID]map[snowflake.ID]*models.Role   // guild -> role id -> role
}

// NewDirectoryStore creates an empty directory cache.
func NewDirectoryStore() *DirectoryStore {
	return &DirectoryStore{
		users:   make(map[snowflake.ID]*models.User),
		members: make(map[snowflake.ID]map[snowflake.ID]*models.Member),
		roles:   make(map[snowflake.ID]map[snowflake.ID]*models.Role),
	}
}

// PutUser upserts a user profile.
func (s *DirectoryStore) PutUser(user *models.User) {
	if user == nil || user.ID.IsZero() {
		return
	}
	s.mu.Lock()
	s.users[user.ID] = user
	s.mu.Unlock()
}

// User returns the cached profile, or nil.
func (s *DirectoryStore) User(id snowflake.ID) *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[id]
}

// PutMember upserts one guild membership.
func (s *DirectoryStore) PutMember(member *models.Member) {
	if member == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	guild, ok := s.members[member.GuildID]
	if !ok {
		guild = make(map[snowflake.ID]*models.Member)
		s.members[member.GuildID] = guild
	}
	guild[member.UserID] = member
}

// RemoveMember drops a membership after a member.left event.
func (s *DirectoryStore) RemoveMember(guildID, userID snowflake.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if guild, ok := s.members[guildID]; ok {
		delete(guild, userID)
	}
}

// SetMembers replaces a guild's member list wholesale, used by the poll.
func (s *DirectoryStore) SetMembers(guildID snowflake.ID, members []*models.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	guild := make(map[snowflake.ID]*models.Member, len(members))
	for _, m := range members {
		guild[m.UserID] = m
	}
	s.members[guildID] = guild
}

// Members returns the guild's cached member list.
func (s *DirectoryStore) Members(guildID snowflake.ID) []*models.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	guild := s.members[guildID]
	out := make([]*models.Member, 0, len(guild))
	for _, m := range guild {
		out = append(out, m)
	}
	return out
}

// PutRole upserts a guild role.
func (s *DirectoryStore) PutRole(role *models.Role) {
	if role == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	guild, ok := s.roles[role.GuildID]
	if !ok {
		guild = make(map[snowflake.ID]*models.Role)
		s.roles[role.GuildID] = guild
	}
	guild[role.ID] = role
}

// RemoveRole drops a role after a role.deleted event.
func (s *DirectoryStore) RemoveRole(guildID, roleID snowflake.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if guild, ok := s.roles[guildID]; ok {
		delete(guild, roleID)
	}
}

// Role returns a cached role, or nil.
func (s *DirectoryStore) Role(guildID, roleID snowflake.ID) *models.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if guild, ok := s.roles[guildID]; ok {
		return guild[roleID]
	}
	return nil
}
