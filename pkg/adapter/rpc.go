package adapter

import (
	"encoding/json"
	"errors"
	"net"

	"github.com/marmos91/talko/pkg/protocol"
)

// MustErrorResponse builds an error reply envelope. Marshalling a wire
// error cannot fail; a failure here is a programming error.
func MustErrorResponse(id json.RawMessage, wireErr *protocol.Error) *protocol.Response {
	resp, err := protocol.NewErrorResponse(id, wireErr)
	if err != nil {
		panic(err)
	}
	return resp
}

// RecoverID makes a best effort to pull the request id out of a payload
// that failed to decode, so an error reply still correlates with the
// request.
func RecoverID(payload []byte) json.RawMessage {
	var probe struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil
	}
	return probe.ID
}

// RemoteIP returns the peer's address without the port.
func RemoteIP(conn net.Conn) string {
	addr := conn.RemoteAddr().String()
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// IsTimeout reports whether err is a network timeout.
func IsTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
