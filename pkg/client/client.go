// Package client is the Go client library for the talko chat backend.
//
// One-shot RPCs (users, chats, messages) dial the data server with a
// fresh connection per call, matching the server's one exchange per
// connection contract. OpenStream dials the broadcast server and returns
// a Stream that delivers pushed messages over a channel until closed.
package client

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/marmos91/talko/pkg/protocol"
	"github.com/marmos91/talko/pkg/wire"
)

// Config holds the client configuration.
type Config struct {
	// DataAddress is the host:port of the data server.
	DataAddress string

	// BroadcastAddress is the host:port of the broadcast server. Only
	// needed for OpenStream and CloseStream.
	BroadcastAddress string

	// DialTimeout bounds establishing a TCP connection.
	// Default: 5s.
	DialTimeout time.Duration

	// RequestTimeout bounds a whole one-shot exchange (send request, read
	// response). 0 means no timeout.
	// Default: 30s.
	RequestTimeout time.Duration
}

// applyDefaults fills in zero values with sensible defaults.
func (c *Config) applyDefaults() {
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
}

// Client talks to the talko servers. It holds no connections between
// calls and is safe for concurrent use.
type Client struct {
	config Config
}

// New creates a client. Zero config values are replaced with defaults.
func New(config Config) *Client {
	config.applyDefaults()
	return &Client{config: config}
}

// GetUser looks a user up by id.
func (c *Client) GetUser(ctx context.Context, userID int64) (*protocol.User, error) {
	var result protocol.GetUserResult
	err := c.call(ctx, c.config.DataAddress, protocol.MethodGetUser,
		protocol.GetUserParams{UserID: userID}, &result)
	if err != nil {
		return nil, err
	}
	return &result.User, nil
}

// InsertUser creates a user and returns it with its assigned id.
func (c *Client) InsertUser(ctx context.Context, userName string) (*protocol.User, error) {
	var result protocol.InsertUserResult
	err := c.call(ctx, c.config.DataAddress, protocol.MethodInsertUser,
		protocol.InsertUserParams{UserName: userName}, &result)
	if err != nil {
		return nil, err
	}
	return &result.User, nil
}

// GetChats lists the chats a user participates in, newest activity first.
// Every chat is hydrated with its participants and message history.
func (c *Client) GetChats(ctx context.Context, userID int64) ([]protocol.Chat, error) {
	var result protocol.GetChatsResult
	err := c.call(ctx, c.config.DataAddress, protocol.MethodGetChats,
		protocol.GetChatsParams{UserID: userID}, &result)
	if err != nil {
		return nil, err
	}
	return result.Chats, nil
}

// GetMessages lists a chat's messages in ascending timestamp order.
func (c *Client) GetMessages(ctx context.Context, chatID int64) ([]protocol.Message, error) {
	var result protocol.GetMessagesResult
	err := c.call(ctx, c.config.DataAddress, protocol.MethodGetMessages,
		protocol.GetMessagesParams{ChatID: chatID}, &result)
	if err != nil {
		return nil, err
	}
	return result.Messages, nil
}

// InsertChat creates a chat with the given participants. With exactly two
// participants the chat is private and the call is idempotent: an
// existing private chat for the same pair is returned instead of creating
// a duplicate.
func (c *Client) InsertChat(ctx context.Context, chatName string, userIDs []int64) (*protocol.Chat, error) {
	var result protocol.InsertChatResult
	err := c.call(ctx, c.config.DataAddress, protocol.MethodInsertChat,
		protocol.InsertChatParams{ChatName: chatName, UserIDs: userIDs}, &result)
	if err != nil {
		return nil, err
	}
	return &result.Chat, nil
}

// InsertMessage appends a message to a chat. The timestamp is stamped by
// the server; the returned message carries it along with the assigned id.
// Online participants other than the sender receive the message on their
// streams.
func (c *Client) InsertMessage(ctx context.Context, chatID, userID int64, text string) (*protocol.Message, error) {
	var result protocol.InsertMessageResult
	err := c.call(ctx, c.config.DataAddress, protocol.MethodInsertMessage,
		protocol.InsertMessageParams{ChatID: chatID, UserID: userID, MessageText: text}, &result)
	if err != nil {
		return nil, err
	}
	return &result.Message, nil
}

// CloseStream unregisters a user's push stream on the broadcast server.
// If the registered stream is a different connection it is closed by the
// server.
func (c *Client) CloseStream(ctx context.Context, userID int64) error {
	var result protocol.CloseStreamResult
	return c.call(ctx, c.config.BroadcastAddress, protocol.MethodCloseStream,
		protocol.CloseStreamParams{UserID: userID}, &result)
}

// call performs one one-shot exchange: dial, send the request, read the
// response, verify the id, decode the result, close.
func (c *Client) call(ctx context.Context, address, method string, params, result any) error {
	if address == "" {
		return fmt.Errorf("no server address configured for %s", method)
	}

	conn, err := c.dial(ctx, address)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	if c.config.RequestTimeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(c.config.RequestTimeout)); err != nil {
			return fmt.Errorf("failed to set request deadline: %w", err)
		}
	}

	req, err := protocol.NewRequest(method, params)
	if err != nil {
		return err
	}

	resp, err := exchange(conn, req)
	if err != nil {
		return fmt.Errorf("%s failed: %w", method, err)
	}

	return resp.DecodeResult(result)
}

// dial opens a TCP connection honoring the dial timeout and ctx.
func (c *Client) dial(ctx context.Context, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: c.config.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", address, err)
	}
	return conn, nil
}

// exchange writes one request frame and reads the matching response frame.
func exchange(conn net.Conn, req *protocol.Request) (*protocol.Response, error) {
	payload, err := protocol.EncodeRequest(req)
	if err != nil {
		return nil, err
	}
	if err := wire.WriteFrame(conn, payload); err != nil {
		return nil, err
	}

	raw, err := wire.ReadFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	resp, err := protocol.DecodeResponse(raw)
	if err != nil {
		return nil, err
	}
	if err := protocol.CheckID(req.ID, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
