package protocol

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Envelope Tests
// ============================================================================

func TestRequestRoundTrip(t *testing.T) {
	t.Parallel()

	req, err := NewRequest(MethodGetUser, GetUserParams{UserID: 42})
	require.NoError(t, err)
	assert.Equal(t, Version, req.JSONRPC)
	assert.NotEmpty(t, req.ID)

	data, err := EncodeRequest(req)
	require.NoError(t, err)

	decoded, err := DecodeRequest(data)
	require.NoError(t, err)
	assert.Equal(t, MethodGetUser, decoded.Method)
	assert.True(t, IDEqual(req.ID, decoded.ID))

	var params GetUserParams
	require.NoError(t, decoded.DecodeParams(&params))
	assert.Equal(t, int64(42), params.UserID)
}

func TestNewRequestMintsUUID(t *testing.T) {
	t.Parallel()

	req, err := NewRequest(MethodGetChats, GetChatsParams{UserID: 1})
	require.NoError(t, err)

	var id string
	require.NoError(t, json.Unmarshal(req.ID, &id))
	_, err = uuid.Parse(id)
	assert.NoError(t, err)
}

func TestDecodeRequestMissingMethod(t *testing.T) {
	t.Parallel()

	_, err := DecodeRequest([]byte(`{"params":{},"id":1}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing a method")
}

func TestDecodeRequestIgnoresUnknownKeys(t *testing.T) {
	t.Parallel()

	req, err := DecodeRequest([]byte(`{"jsonrpc":"1.9","method":"GetUser","params":{"user_id":8},"id":7,"extra":true}`))
	require.NoError(t, err)
	assert.Equal(t, "GetUser", req.Method)
	assert.Equal(t, json.RawMessage(`7`), req.ID)
}

func TestResponseEchoesIDExactly(t *testing.T) {
	t.Parallel()

	ids := []string{`"a-string-id"`, `12345`, `"00000000-0000-0000-0000-000000000000"`}
	for _, raw := range ids {
		resp, err := NewResponse(json.RawMessage(raw), GetUserResult{})
		require.NoError(t, err)

		data, err := EncodeResponse(resp)
		require.NoError(t, err)

		decoded, err := DecodeResponse(data)
		require.NoError(t, err)
		assert.Equal(t, raw, string(decoded.ID), "id %s", raw)
	}
}

func TestCheckID(t *testing.T) {
	t.Parallel()

	id := NewID()
	resp := &Response{ID: id}
	assert.NoError(t, CheckID(id, resp))

	other := &Response{ID: NewID()}
	err := CheckID(id, other)
	assert.ErrorIs(t, err, ErrIDMismatch)

	missing := &Response{}
	assert.ErrorIs(t, CheckID(id, missing), ErrIDMismatch)
}

func TestIDEqualIgnoresWhitespace(t *testing.T) {
	t.Parallel()

	assert.True(t, IDEqual(json.RawMessage(` 42 `), json.RawMessage(`42`)))
	assert.True(t, IDEqual(nil, nil))
	assert.False(t, IDEqual(json.RawMessage(`"42"`), json.RawMessage(`42`)))
}

func TestPushHasNoID(t *testing.T) {
	t.Parallel()

	push, err := NewPush(Message{MessageID: 1, ChatID: 2, MessageText: "hi"})
	require.NoError(t, err)

	data, err := EncodeResponse(push)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"id"`)

	var payload PushPayload
	decoded, err := DecodeResponse(data)
	require.NoError(t, err)
	require.NoError(t, decoded.DecodeResult(&payload))
	assert.Equal(t, "hi", payload.Message.MessageText)
}

// ============================================================================
// Result Decoding Tests
// ============================================================================

func TestDecodeResultError(t *testing.T) {
	t.Parallel()

	resp, err := NewErrorResponse(NewID(), NewError(CodeNotFound, "user %d not found", 9))
	require.NoError(t, err)

	var out GetUserResult
	err = resp.DecodeResult(&out)
	require.Error(t, err)

	var wireErr *Error
	require.ErrorAs(t, err, &wireErr)
	assert.Equal(t, CodeNotFound, wireErr.Code)
	assert.Equal(t, "user 9 not found", wireErr.Message)
}

func TestDecodeResultSuccess(t *testing.T) {
	t.Parallel()

	resp, err := NewResponse(NewID(), InsertUserResult{User: User{UserID: 3, UserName: "carol"}})
	require.NoError(t, err)

	var out InsertUserResult
	require.NoError(t, resp.DecodeResult(&out))
	assert.Equal(t, int64(3), out.User.UserID)
	assert.Equal(t, "carol", out.User.UserName)
}

func TestAsErrorIgnoresPlainResults(t *testing.T) {
	t.Parallel()

	assert.Nil(t, AsError(json.RawMessage(`{"user":{"user_id":1,"user_name":"alice"}}`)))
	assert.Nil(t, AsError(json.RawMessage(`{"chats":[]}`)))
	assert.Nil(t, AsError(nil))
	assert.NotNil(t, AsError(json.RawMessage(`{"error":{"code":"store_error","message":"boom"}}`)))
}

// ============================================================================
// Wire Type Tests
// ============================================================================

func TestChatEncodesEmptySlices(t *testing.T) {
	t.Parallel()

	chat := Chat{ChatID: 1, ChatName: "general", Users: []User{}, Messages: []Message{}}
	data, err := json.Marshal(chat)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"users":[]`)
	assert.Contains(t, string(data), `"messages":[]`)
}

func TestMessageFieldNames(t *testing.T) {
	t.Parallel()

	msg := Message{
		MessageID:   5,
		ChatID:      2,
		User:        User{UserID: 1, UserName: "alice"},
		MessageText: "hello",
		MessageTS:   1700000000123,
	}
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"message_id", "chat_id", "user", "message_text", "message_ts"} {
		assert.Contains(t, raw, key)
	}
}
