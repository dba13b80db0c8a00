package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/marmos91/talko/pkg/store/chat"
)

// Export returns a full copy of the store's contents. Records are ordered
// by id so snapshots of equal stores compare equal.
func (s *Store) Export(ctx context.Context) (*chat.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, chat.ErrStoreClosed
	}

	snap := &chat.Snapshot{
		Users:        make([]chat.User, 0, len(s.users)),
		Chats:        make([]chat.Chat, 0, len(s.chats)),
		Participants: make([]chat.Participant, 0),
		Messages:     make([]chat.Message, 0),
	}

	for _, user := range s.users {
		snap.Users = append(snap.Users, user)
	}
	sort.Slice(snap.Users, func(i, j int) bool { return snap.Users[i].UserID < snap.Users[j].UserID })

	for _, c := range s.chats {
		snap.Chats = append(snap.Chats, c)
	}
	sort.Slice(snap.Chats, func(i, j int) bool { return snap.Chats[i].ChatID < snap.Chats[j].ChatID })

	for _, c := range snap.Chats {
		for _, userID := range s.members[c.ChatID] {
			snap.Participants = append(snap.Participants, chat.Participant{ChatID: c.ChatID, UserID: userID})
		}
		snap.Messages = append(snap.Messages, s.messages[c.ChatID]...)
	}
	sort.Slice(snap.Messages, func(i, j int) bool { return snap.Messages[i].MessageID < snap.Messages[j].MessageID })

	return snap, nil
}

// Import loads a snapshot into an empty store, preserving record ids. Id
// counters continue after the highest imported id.
func (s *Store) Import(ctx context.Context, snap *chat.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return chat.ErrStoreClosed
	}
	if len(s.users) > 0 || len(s.chats) > 0 {
		return fmt.Errorf("cannot import into a non-empty store")
	}

	for _, user := range snap.Users {
		s.users[user.UserID] = user
		s.usersByName[user.UserName] = user.UserID
		if user.UserID > s.nextUserID {
			s.nextUserID = user.UserID
		}
	}

	for _, c := range snap.Chats {
		s.chats[c.ChatID] = c
		if c.ChatID > s.nextChatID {
			s.nextChatID = c.ChatID
		}
	}

	for _, p := range snap.Participants {
		if _, ok := s.chats[p.ChatID]; !ok {
			return fmt.Errorf("participant references unknown chat %d", p.ChatID)
		}
		if _, ok := s.users[p.UserID]; !ok {
			return fmt.Errorf("participant references unknown user %d", p.UserID)
		}
		s.members[p.ChatID] = append(s.members[p.ChatID], p.UserID)
		s.userChats[p.UserID] = append(s.userChats[p.UserID], p.ChatID)
	}

	for _, msg := range snap.Messages {
		if _, ok := s.chats[msg.ChatID]; !ok {
			return fmt.Errorf("message %d references unknown chat %d", msg.MessageID, msg.ChatID)
		}
		s.messages[msg.ChatID] = append(s.messages[msg.ChatID], msg)
		if msg.MessageID > s.nextMessageID {
			s.nextMessageID = msg.MessageID
		}
	}

	return nil
}
