// Package instrument wraps a chat.Store with metrics and tracing.
package instrument

import (
	"context"
	"time"

	"github.com/marmos91/talko/internal/telemetry"
	"github.com/marmos91/talko/pkg/metrics"
	"github.com/marmos91/talko/pkg/store/chat"
)

// instrumentedStore decorates a chat.Store, recording a metrics
// observation and a span for every operation. Operation labels double as
// span names under the "store." prefix.
type instrumentedStore struct {
	store   chat.Store
	metrics metrics.StoreMetrics
}

// Wrap returns a chat.Store that records operation metrics on m and emits
// a store span per operation.
//
// When m is nil the store is returned unwrapped, so disabled metrics cost
// nothing.
func Wrap(store chat.Store, m metrics.StoreMetrics) chat.Store {
	if m == nil {
		return store
	}
	return &instrumentedStore{store: store, metrics: m}
}

// observe finishes one operation: metrics observation plus span error
// status when the operation failed.
func (s *instrumentedStore) observe(ctx context.Context, op string, start time.Time, err error) {
	s.metrics.ObserveOperation(op, time.Since(start), err)
	telemetry.RecordError(ctx, err)
}

func (s *instrumentedStore) GetUserByName(ctx context.Context, name string) (*chat.User, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "get_user_by_name", telemetry.UserName(name))
	defer span.End()

	start := time.Now()
	user, err := s.store.GetUserByName(ctx, name)
	s.observe(ctx, "get_user_by_name", start, err)
	return user, err
}

func (s *instrumentedStore) GetUserByID(ctx context.Context, id int64) (*chat.User, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "get_user_by_id", telemetry.UserID(id))
	defer span.End()

	start := time.Now()
	user, err := s.store.GetUserByID(ctx, id)
	s.observe(ctx, "get_user_by_id", start, err)
	return user, err
}

func (s *instrumentedStore) CreateUser(ctx context.Context, name string) (*chat.User, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "create_user", telemetry.UserName(name))
	defer span.End()

	start := time.Now()
	user, err := s.store.CreateUser(ctx, name)
	s.observe(ctx, "create_user", start, err)
	return user, err
}

func (s *instrumentedStore) GetChat(ctx context.Context, chatID int64) (*chat.Chat, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "get_chat", telemetry.ChatID(chatID))
	defer span.End()

	start := time.Now()
	c, err := s.store.GetChat(ctx, chatID)
	s.observe(ctx, "get_chat", start, err)
	return c, err
}

func (s *instrumentedStore) ChatsForUser(ctx context.Context, userID int64) ([]chat.Chat, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "chats_for_user", telemetry.UserID(userID))
	defer span.End()

	start := time.Now()
	chats, err := s.store.ChatsForUser(ctx, userID)
	s.observe(ctx, "chats_for_user", start, err)
	return chats, err
}

func (s *instrumentedStore) Participants(ctx context.Context, chatID int64) ([]chat.User, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "participants", telemetry.ChatID(chatID))
	defer span.End()

	start := time.Now()
	users, err := s.store.Participants(ctx, chatID)
	s.observe(ctx, "participants", start, err)
	return users, err
}

func (s *instrumentedStore) FindPrivateChat(ctx context.Context, a, b int64) (*chat.Chat, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "find_private_chat")
	defer span.End()

	start := time.Now()
	c, err := s.store.FindPrivateChat(ctx, a, b)
	s.observe(ctx, "find_private_chat", start, err)
	return c, err
}

func (s *instrumentedStore) CreateChat(ctx context.Context, name string, private bool, userIDs []int64) (*chat.Chat, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "create_chat",
		telemetry.ChatName(name), telemetry.ChatPrivate(private))
	defer span.End()

	start := time.Now()
	c, err := s.store.CreateChat(ctx, name, private, userIDs)
	s.observe(ctx, "create_chat", start, err)
	return c, err
}

func (s *instrumentedStore) MessagesForChat(ctx context.Context, chatID int64) ([]chat.Message, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "messages_for_chat", telemetry.ChatID(chatID))
	defer span.End()

	start := time.Now()
	msgs, err := s.store.MessagesForChat(ctx, chatID)
	s.observe(ctx, "messages_for_chat", start, err)
	return msgs, err
}

func (s *instrumentedStore) LatestMessageTS(ctx context.Context, chatID int64) (int64, bool, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "latest_message_ts", telemetry.ChatID(chatID))
	defer span.End()

	start := time.Now()
	ts, ok, err := s.store.LatestMessageTS(ctx, chatID)
	s.observe(ctx, "latest_message_ts", start, err)
	return ts, ok, err
}

func (s *instrumentedStore) CreateMessage(ctx context.Context, chatID, userID int64, text string, ts int64) (*chat.Message, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "create_message",
		telemetry.ChatID(chatID), telemetry.UserID(userID))
	defer span.End()

	start := time.Now()
	msg, err := s.store.CreateMessage(ctx, chatID, userID, text, ts)
	s.observe(ctx, "create_message", start, err)
	return msg, err
}

func (s *instrumentedStore) Ping(ctx context.Context) error {
	ctx, span := telemetry.StartStoreSpan(ctx, "ping")
	defer span.End()

	start := time.Now()
	err := s.store.Ping(ctx)
	s.observe(ctx, "ping", start, err)
	return err
}

func (s *instrumentedStore) Close() error {
	return s.store.Close()
}
