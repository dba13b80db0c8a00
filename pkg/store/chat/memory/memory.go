// Package memory implements an in-memory chat store.
//
// It backs database.type "memory" for throwaway deployments and keeps unit
// and end-to-end tests hermetic. All data is lost on close.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/marmos91/talko/pkg/store/chat"
)

// Store is a mutex-guarded, map-backed chat.Store implementation.
type Store struct {
	mu     sync.RWMutex
	closed bool

	users       map[int64]chat.User
	usersByName map[string]int64
	chats       map[int64]chat.Chat
	members     map[int64][]int64 // chat id -> user ids, insertion order
	userChats   map[int64][]int64 // user id -> chat ids, insertion order
	messages    map[int64][]chat.Message

	nextUserID    int64
	nextChatID    int64
	nextMessageID int64
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		users:       make(map[int64]chat.User),
		usersByName: make(map[string]int64),
		chats:       make(map[int64]chat.Chat),
		members:     make(map[int64][]int64),
		userChats:   make(map[int64][]int64),
		messages:    make(map[int64][]chat.Message),
	}
}

func (s *Store) GetUserByName(ctx context.Context, name string) (*chat.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, chat.ErrStoreClosed
	}

	id, ok := s.usersByName[name]
	if !ok {
		return nil, chat.ErrUserNotFound
	}
	user := s.users[id]
	return &user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*chat.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, chat.ErrStoreClosed
	}

	user, ok := s.users[id]
	if !ok {
		return nil, chat.ErrUserNotFound
	}
	return &user, nil
}

func (s *Store) CreateUser(ctx context.Context, name string) (*chat.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, chat.ErrStoreClosed
	}

	if _, exists := s.usersByName[name]; exists {
		return nil, chat.ErrUserExists
	}

	s.nextUserID++
	user := chat.User{UserID: s.nextUserID, UserName: name}
	s.users[user.UserID] = user
	s.usersByName[name] = user.UserID
	return &user, nil
}

func (s *Store) GetChat(ctx context.Context, chatID int64) (*chat.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, chat.ErrStoreClosed
	}

	c, ok := s.chats[chatID]
	if !ok {
		return nil, chat.ErrChatNotFound
	}
	return &c, nil
}

func (s *Store) ChatsForUser(ctx context.Context, userID int64) ([]chat.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, chat.ErrStoreClosed
	}

	if _, ok := s.users[userID]; !ok {
		return nil, chat.ErrUserNotFound
	}

	chats := make([]chat.Chat, 0, len(s.userChats[userID]))
	for _, chatID := range s.userChats[userID] {
		chats = append(chats, s.chats[chatID])
	}
	return chats, nil
}

func (s *Store) Participants(ctx context.Context, chatID int64) ([]chat.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, chat.ErrStoreClosed
	}

	if _, ok := s.chats[chatID]; !ok {
		return nil, chat.ErrChatNotFound
	}

	users := make([]chat.User, 0, len(s.members[chatID]))
	for _, userID := range s.members[chatID] {
		users = append(users, s.users[userID])
	}
	return users, nil
}

func (s *Store) FindPrivateChat(ctx context.Context, a, b int64) (*chat.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, chat.ErrStoreClosed
	}

	want := map[int64]bool{a: true, b: true}
	for chatID, c := range s.chats {
		if !c.Private {
			continue
		}
		ids := s.members[chatID]
		if len(ids) != len(want) {
			continue
		}
		match := true
		for _, id := range ids {
			if !want[id] {
				match = false
				break
			}
		}
		if match {
			found := c
			return &found, nil
		}
	}
	return nil, chat.ErrChatNotFound
}

func (s *Store) CreateChat(ctx context.Context, name string, private bool, userIDs []int64) (*chat.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, chat.ErrStoreClosed
	}

	unique := dedupe(userIDs)
	for _, id := range unique {
		if _, ok := s.users[id]; !ok {
			return nil, chat.ErrUserNotFound
		}
	}

	s.nextChatID++
	c := chat.Chat{ChatID: s.nextChatID, ChatName: name, Private: private}
	s.chats[c.ChatID] = c
	s.members[c.ChatID] = unique
	for _, id := range unique {
		s.userChats[id] = append(s.userChats[id], c.ChatID)
	}
	return &c, nil
}

func (s *Store) MessagesForChat(ctx context.Context, chatID int64) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, chat.ErrStoreClosed
	}

	if _, ok := s.chats[chatID]; !ok {
		return nil, chat.ErrChatNotFound
	}

	msgs := make([]chat.Message, len(s.messages[chatID]))
	copy(msgs, s.messages[chatID])
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].MessageTS != msgs[j].MessageTS {
			return msgs[i].MessageTS < msgs[j].MessageTS
		}
		return msgs[i].MessageID < msgs[j].MessageID
	})
	return msgs, nil
}

func (s *Store) LatestMessageTS(ctx context.Context, chatID int64) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, false, chat.ErrStoreClosed
	}

	var latest int64
	var found bool
	for _, msg := range s.messages[chatID] {
		if !found || msg.MessageTS > latest {
			latest = msg.MessageTS
			found = true
		}
	}
	return latest, found, nil
}

func (s *Store) CreateMessage(ctx context.Context, chatID, userID int64, text string, ts int64) (*chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, chat.ErrStoreClosed
	}

	if _, ok := s.chats[chatID]; !ok {
		return nil, chat.ErrChatNotFound
	}
	if _, ok := s.users[userID]; !ok {
		return nil, chat.ErrUserNotFound
	}

	s.nextMessageID++
	msg := chat.Message{
		MessageID:   s.nextMessageID,
		ChatID:      chatID,
		UserID:      userID,
		MessageText: text,
		MessageTS:   ts,
	}
	s.messages[chatID] = append(s.messages[chatID], msg)
	return &msg, nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return chat.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// dedupe collapses duplicate ids preserving first-seen order.
func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
