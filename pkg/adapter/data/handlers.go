package data

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/marmos91/talko/internal/logger"
	"github.com/marmos91/talko/pkg/adapter"
	"github.com/marmos91/talko/pkg/protocol"
	"github.com/marmos91/talko/pkg/store/chat"
)

// dispatch routes a decoded request to its method handler. Unknown methods
// get a protocol_error reply.
//
// Every handler returns the response to write plus the protocol error code
// for metrics, empty on success.
func (c *Connection) dispatch(ctx context.Context, req *protocol.Request) (*protocol.Response, string) {
	switch req.Method {
	case protocol.MethodGetUser:
		return c.handleGetUser(ctx, req)
	case protocol.MethodInsertUser:
		return c.handleInsertUser(ctx, req)
	case protocol.MethodGetChats:
		return c.handleGetChats(ctx, req)
	case protocol.MethodGetMessages:
		return c.handleGetMessages(ctx, req)
	case protocol.MethodInsertChat:
		return c.handleInsertChat(ctx, req)
	case protocol.MethodInsertMessage:
		return c.handleInsertMessage(ctx, req)
	default:
		return c.fail(req.ID, protocol.NewError(protocol.CodeProtocolError, "unknown method %q", req.Method))
	}
}

// handleGetUser looks a user up by id.
func (c *Connection) handleGetUser(ctx context.Context, req *protocol.Request) (*protocol.Response, string) {
	var params protocol.GetUserParams
	if err := req.DecodeParams(&params); err != nil {
		return c.fail(req.ID, protocol.NewError(protocol.CodeProtocolError, "%s", err.Error()))
	}

	user, err := c.server.store.GetUserByID(ctx, params.UserID)
	if errors.Is(err, chat.ErrUserNotFound) {
		return c.fail(req.ID, protocol.NewError(protocol.CodeNotFound, "user %d not found", params.UserID))
	}
	if err != nil {
		return c.storeFail(req.ID, err)
	}

	return c.ok(req.ID, protocol.GetUserResult{User: wireUser(*user)})
}

// handleInsertUser creates a user. Names are unique; a taken name is a
// store_error.
func (c *Connection) handleInsertUser(ctx context.Context, req *protocol.Request) (*protocol.Response, string) {
	var params protocol.InsertUserParams
	if err := req.DecodeParams(&params); err != nil {
		return c.fail(req.ID, protocol.NewError(protocol.CodeProtocolError, "%s", err.Error()))
	}
	if params.UserName == "" {
		return c.fail(req.ID, protocol.NewError(protocol.CodeProtocolError, "user_name must not be empty"))
	}

	user, err := c.server.store.CreateUser(ctx, params.UserName)
	if err != nil {
		return c.storeFail(req.ID, err)
	}

	logger.InfoCtx(ctx, "User created", "user_id", user.UserID, "user_name", user.UserName)
	return c.ok(req.ID, protocol.InsertUserResult{User: wireUser(*user)})
}

// rankedChat pairs a hydrated chat with its ordering key.
type rankedChat struct {
	chat        protocol.Chat
	ts          int64
	hasMessages bool
}

// handleGetChats returns every chat the user participates in, hydrated
// with participants and full message history, ordered by newest message
// first. Chats without messages sort last.
func (c *Connection) handleGetChats(ctx context.Context, req *protocol.Request) (*protocol.Response, string) {
	var params protocol.GetChatsParams
	if err := req.DecodeParams(&params); err != nil {
		return c.fail(req.ID, protocol.NewError(protocol.CodeProtocolError, "%s", err.Error()))
	}

	chats, err := c.server.store.ChatsForUser(ctx, params.UserID)
	if errors.Is(err, chat.ErrUserNotFound) {
		return c.fail(req.ID, protocol.NewError(protocol.CodeNotFound, "user %d not found", params.UserID))
	}
	if err != nil {
		return c.storeFail(req.ID, err)
	}

	ranked := make([]rankedChat, 0, len(chats))
	for _, ch := range chats {
		hydrated, ts, hasMessages, err := c.hydrateChat(ctx, ch, params.UserID)
		if err != nil {
			return c.storeFail(req.ID, err)
		}
		ranked = append(ranked, rankedChat{chat: hydrated, ts: ts, hasMessages: hasMessages})
	}

	// Newest activity first. Chats without messages sort last; ties break
	// on chat id descending so younger chats come first.
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.hasMessages != b.hasMessages {
			return a.hasMessages
		}
		if a.ts != b.ts {
			return a.ts > b.ts
		}
		return a.chat.ChatID > b.chat.ChatID
	})

	out := make([]protocol.Chat, len(ranked))
	for i, r := range ranked {
		out[i] = r.chat
	}

	return c.ok(req.ID, protocol.GetChatsResult{Chats: out})
}

// hydrateChat loads a chat's participants and messages and renders the
// wire form for the given viewer. Private chats are renamed to the other
// participant so the viewer sees who they are talking to instead of the
// stored name.
func (c *Connection) hydrateChat(ctx context.Context, ch chat.Chat, viewerID int64) (protocol.Chat, int64, bool, error) {
	users, err := c.server.store.Participants(ctx, ch.ChatID)
	if err != nil {
		return protocol.Chat{}, 0, false, err
	}

	messages, err := c.server.store.MessagesForChat(ctx, ch.ChatID)
	if err != nil {
		return protocol.Chat{}, 0, false, err
	}

	ts, hasMessages, err := c.server.store.LatestMessageTS(ctx, ch.ChatID)
	if err != nil {
		return protocol.Chat{}, 0, false, err
	}

	name := ch.ChatName
	if ch.Private {
		for _, u := range users {
			if u.UserID != viewerID {
				name = u.UserName
				break
			}
		}
	}

	return protocol.Chat{
		ChatID:   ch.ChatID,
		ChatName: name,
		Users:    wireUsers(users),
		Messages: wireMessages(messages, usersByID(users)),
	}, ts, hasMessages, nil
}

// handleGetMessages returns a chat's message history in ascending
// timestamp order, each message with its sender embedded.
func (c *Connection) handleGetMessages(ctx context.Context, req *protocol.Request) (*protocol.Response, string) {
	var params protocol.GetMessagesParams
	if err := req.DecodeParams(&params); err != nil {
		return c.fail(req.ID, protocol.NewError(protocol.CodeProtocolError, "%s", err.Error()))
	}

	messages, err := c.server.store.MessagesForChat(ctx, params.ChatID)
	if errors.Is(err, chat.ErrChatNotFound) {
		return c.fail(req.ID, protocol.NewError(protocol.CodeNotFound, "chat %d not found", params.ChatID))
	}
	if err != nil {
		return c.storeFail(req.ID, err)
	}

	users, err := c.server.store.Participants(ctx, params.ChatID)
	if err != nil {
		return c.storeFail(req.ID, err)
	}

	return c.ok(req.ID, protocol.GetMessagesResult{Messages: wireMessages(messages, usersByID(users))})
}

// handleInsertChat creates a chat with the given participants. A request
// naming exactly two users is a private chat; at most one private chat
// exists per pair, so an existing one is returned instead of creating a
// duplicate.
func (c *Connection) handleInsertChat(ctx context.Context, req *protocol.Request) (*protocol.Response, string) {
	var params protocol.InsertChatParams
	if err := req.DecodeParams(&params); err != nil {
		return c.fail(req.ID, protocol.NewError(protocol.CodeProtocolError, "%s", err.Error()))
	}
	if params.ChatName == "" {
		return c.fail(req.ID, protocol.NewError(protocol.CodeProtocolError, "chat_name must not be empty"))
	}
	if len(params.UserIDs) == 0 {
		return c.fail(req.ID, protocol.NewError(protocol.CodeProtocolError, "user_ids must not be empty"))
	}

	private := len(params.UserIDs) == 2

	if private {
		existing, err := c.server.store.FindPrivateChat(ctx, params.UserIDs[0], params.UserIDs[1])
		if err == nil {
			logger.DebugCtx(ctx, "Existing private chat reused", "chat_id", existing.ChatID)
			return c.chatReply(ctx, req.ID, existing)
		}
		if !errors.Is(err, chat.ErrChatNotFound) {
			return c.storeFail(req.ID, err)
		}
	}

	created, err := c.server.store.CreateChat(ctx, params.ChatName, private, params.UserIDs)
	if err != nil {
		return c.storeFail(req.ID, err)
	}

	logger.InfoCtx(ctx, "Chat created",
		"chat_id", created.ChatID, "chat_name", created.ChatName,
		"private", created.Private, "participants", len(params.UserIDs))
	return c.chatReply(ctx, req.ID, created)
}

// chatReply answers an InsertChat with the chat hydrated. The stored name
// is kept as-is; per-viewer renaming of private chats happens in GetChats,
// which knows who is asking.
func (c *Connection) chatReply(ctx context.Context, id json.RawMessage, ch *chat.Chat) (*protocol.Response, string) {
	users, err := c.server.store.Participants(ctx, ch.ChatID)
	if err != nil {
		return c.storeFail(id, err)
	}

	messages, err := c.server.store.MessagesForChat(ctx, ch.ChatID)
	if err != nil {
		return c.storeFail(id, err)
	}

	return c.ok(id, protocol.InsertChatResult{Chat: protocol.Chat{
		ChatID:   ch.ChatID,
		ChatName: ch.ChatName,
		Users:    wireUsers(users),
		Messages: wireMessages(messages, usersByID(users)),
	}})
}

// handleInsertMessage stores a message with a server-stamped timestamp and
// fans it out to the other participants through the broadcast server. The
// fan-out is best effort and never fails the insert.
func (c *Connection) handleInsertMessage(ctx context.Context, req *protocol.Request) (*protocol.Response, string) {
	var params protocol.InsertMessageParams
	if err := req.DecodeParams(&params); err != nil {
		return c.fail(req.ID, protocol.NewError(protocol.CodeProtocolError, "%s", err.Error()))
	}
	if params.MessageText == "" {
		return c.fail(req.ID, protocol.NewError(protocol.CodeProtocolError, "message_text must not be empty"))
	}

	participants, err := c.server.store.Participants(ctx, params.ChatID)
	if errors.Is(err, chat.ErrChatNotFound) {
		return c.fail(req.ID, protocol.NewError(protocol.CodeNotFound, "chat %d not found", params.ChatID))
	}
	if err != nil {
		return c.storeFail(req.ID, err)
	}

	var author *chat.User
	for i := range participants {
		if participants[i].UserID == params.UserID {
			author = &participants[i]
			break
		}
	}
	if author == nil {
		return c.fail(req.ID, protocol.NewError(protocol.CodeNotFound,
			"user %d is not a participant of chat %d", params.UserID, params.ChatID))
	}

	ts := time.Now().UnixMilli()
	msg, err := c.server.store.CreateMessage(ctx, params.ChatID, params.UserID, params.MessageText, ts)
	if err != nil {
		return c.storeFail(req.ID, err)
	}

	wireMsg := protocol.Message{
		MessageID:   msg.MessageID,
		ChatID:      msg.ChatID,
		User:        wireUser(*author),
		MessageText: msg.MessageText,
		MessageTS:   msg.MessageTS,
	}

	logger.InfoCtx(ctx, "Message stored",
		"chat_id", msg.ChatID, "message_id", msg.MessageID, "user_id", params.UserID)

	c.server.notifier.Notify(ctx, recipientIDs(participants, params.UserID), wireMsg)

	return c.ok(req.ID, protocol.InsertMessageResult{Message: wireMsg})
}

// fail builds an error reply and reports its code.
func (c *Connection) fail(id json.RawMessage, wireErr *protocol.Error) (*protocol.Response, string) {
	return adapter.MustErrorResponse(id, wireErr), wireErr.Code
}

// ok builds a success reply.
func (c *Connection) ok(id json.RawMessage, result any) (*protocol.Response, string) {
	resp, err := protocol.NewResponse(id, result)
	if err != nil {
		return c.fail(id, protocol.NewError(protocol.CodeInternal, "failed to encode result: %v", err))
	}
	return resp, ""
}

// storeFail translates a store error into an error reply.
func (c *Connection) storeFail(id json.RawMessage, err error) (*protocol.Response, string) {
	return c.fail(id, adapter.WireError(err))
}

// recipientIDs returns the participant ids minus the author.
func recipientIDs(participants []chat.User, authorID int64) []int64 {
	ids := make([]int64, 0, len(participants))
	for _, p := range participants {
		if p.UserID != authorID {
			ids = append(ids, p.UserID)
		}
	}
	return ids
}

// usersByID indexes users by id for sender lookups.
func usersByID(users []chat.User) map[int64]chat.User {
	byID := make(map[int64]chat.User, len(users))
	for _, u := range users {
		byID[u.UserID] = u
	}
	return byID
}

// wireUser converts a stored user to its wire form.
func wireUser(u chat.User) protocol.User {
	return protocol.User{UserID: u.UserID, UserName: u.UserName}
}

// wireUsers converts stored users, preserving order. The slice is non-nil
// so an empty set encodes as [] rather than null.
func wireUsers(users []chat.User) []protocol.User {
	out := make([]protocol.User, len(users))
	for i, u := range users {
		out[i] = wireUser(u)
	}
	return out
}

// wireMessages converts stored messages, embedding each sender resolved
// from the participant set. A sender no longer in the set renders as a
// bare id.
func wireMessages(messages []chat.Message, byID map[int64]chat.User) []protocol.Message {
	out := make([]protocol.Message, len(messages))
	for i, m := range messages {
		sender := protocol.User{UserID: m.UserID}
		if u, ok := byID[m.UserID]; ok {
			sender = wireUser(u)
		}
		out[i] = protocol.Message{
			MessageID:   m.MessageID,
			ChatID:      m.ChatID,
			User:        sender,
			MessageText: m.MessageText,
			MessageTS:   m.MessageTS,
		}
	}
	return out
}
