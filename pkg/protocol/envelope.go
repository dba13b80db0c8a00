// Package protocol defines the RPC envelope and wire types spoken by the
// talko data and broadcast servers.
//
// Requests and responses are JSON objects in the JSON-RPC shape:
//
//	{"jsonrpc":"2.0","method":"GetUser","params":{...},"id":"<uuid>"}
//	{"jsonrpc":"2.0","result":{...},"id":"<uuid>"}
//
// The jsonrpc key is emitted on everything we send and ignored on receive.
// Ids are opaque: whatever the caller sent is echoed back byte-for-byte.
// Push frames from the broadcast server are responses without an id.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Version is the JSON-RPC version emitted on outgoing envelopes.
const Version = "2.0"

// ErrIDMismatch indicates a response whose id does not match the request id.
var ErrIDMismatch = errors.New("response id does not match request id")

// Request is an RPC request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// Response is an RPC response envelope. Push frames carry no id.
type Response struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// NewID mints a random request id (a JSON-encoded UUID string).
func NewID() json.RawMessage {
	return json.RawMessage(`"` + uuid.NewString() + `"`)
}

// NewRequest builds a request with marshalled params and a fresh id.
func NewRequest(method string, params any) (*Request, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s params: %w", method, err)
	}
	return &Request{
		JSONRPC: Version,
		Method:  method,
		Params:  raw,
		ID:      NewID(),
	}, nil
}

// NewResponse builds a response carrying result, echoing id.
func NewResponse(id json.RawMessage, result any) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &Response{JSONRPC: Version, Result: raw, ID: id}, nil
}

// NewErrorResponse builds a response whose result carries a wire error.
func NewErrorResponse(id json.RawMessage, wireErr *Error) (*Response, error) {
	return NewResponse(id, errorEnvelope{Error: wireErr})
}

// NewPush builds an id-less response used to push a message to a stream
// subscriber.
func NewPush(msg Message) (*Response, error) {
	return NewResponse(nil, PushPayload{Message: msg})
}

// EncodeRequest marshals a request envelope.
func EncodeRequest(req *Request) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return data, nil
}

// DecodeRequest unmarshals a request envelope. Unknown keys are ignored;
// a missing method is an error, a missing params is not.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	if req.Method == "" {
		return nil, fmt.Errorf("request is missing a method")
	}
	return &req, nil
}

// EncodeResponse marshals a response envelope.
func EncodeResponse(resp *Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return data, nil
}

// DecodeResponse unmarshals a response envelope.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// DecodeParams unmarshals request params into out.
func (r *Request) DecodeParams(out any) error {
	if len(r.Params) == 0 {
		return fmt.Errorf("%s request has no params", r.Method)
	}
	if err := json.Unmarshal(r.Params, out); err != nil {
		return fmt.Errorf("failed to decode %s params: %w", r.Method, err)
	}
	return nil
}

// DecodeResult unmarshals the response result into out. If the result is an
// error envelope, the wire error is returned instead and out is untouched.
func (r *Response) DecodeResult(out any) error {
	if wireErr := AsError(r.Result); wireErr != nil {
		return wireErr
	}
	if len(r.Result) == 0 {
		return fmt.Errorf("response has no result")
	}
	if err := json.Unmarshal(r.Result, out); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}
	return nil
}

// IDEqual reports whether two envelope ids are the same JSON value.
// Ids are compared byte-for-byte after compaction.
func IDEqual(a, b json.RawMessage) bool {
	return bytes.Equal(compactID(a), compactID(b))
}

// CheckID verifies that resp answers the request carrying id.
func CheckID(id json.RawMessage, resp *Response) error {
	if !IDEqual(id, resp.ID) {
		return fmt.Errorf("%w: sent %s, got %s", ErrIDMismatch, rawOrNull(id), rawOrNull(resp.ID))
	}
	return nil
}

func compactID(id json.RawMessage) []byte {
	if len(id) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, id); err != nil {
		return bytes.TrimSpace(id)
	}
	return buf.Bytes()
}

func rawOrNull(id json.RawMessage) string {
	if len(id) == 0 {
		return "null"
	}
	return string(id)
}
