package adapter

import (
	"errors"

	"github.com/marmos91/talko/pkg/protocol"
	"github.com/marmos91/talko/pkg/store/chat"
)

// WireError translates a domain error into the wire error carried back to
// the client inside an error response.
//
// Handlers that already built a *protocol.Error (validation failures,
// unknown methods) pass through unchanged. Store sentinels map to wire
// codes:
//
//   - chat.ErrUserNotFound, chat.ErrChatNotFound, chat.ErrNotParticipant: not_found
//   - everything else (including chat.ErrUserExists): store_error
func WireError(err error) *protocol.Error {
	var wireErr *protocol.Error
	if errors.As(err, &wireErr) {
		return wireErr
	}

	switch {
	case errors.Is(err, chat.ErrUserNotFound),
		errors.Is(err, chat.ErrChatNotFound),
		errors.Is(err, chat.ErrNotParticipant):
		return protocol.NewError(protocol.CodeNotFound, "%s", err.Error())
	default:
		return protocol.NewError(protocol.CodeStoreError, "%s", err.Error())
	}
}
