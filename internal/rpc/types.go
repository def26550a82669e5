// Package rpc implements the JSON-RPC 2.0 client used to talk to a Substrate
// node over a websocket.
//
// Substrate nodes expose their RPC surface on a websocket (default
// ws://127.0.0.1:9944). Unlike the one-request-per-POST model of HTTP JSON-RPC,
// a single websocket carries every request and response of the session, so
// responses are matched back to callers by the request ID.
package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Request represents a JSON-RPC 2.0 request frame.
//
//	{"jsonrpc":"2.0","method":"state_getMetadata","params":[],"id":1}
type Request struct {
	JSONRPC string        `json:"jsonrpc"` // Always "2.0"
	Method  string        `json:"method"`  // RPC method name, e.g., "state_getMetadata"
	Params  []interface{} `json:"params"`  // Method arguments
	ID      uint64        `json:"id"`      // Unique per connection, starts at 1
}

// Response represents a JSON-RPC 2.0 response frame.
//
// Result stays raw so each typed method decodes it into its own shape.
// Notifications carry no id and decode with ID == 0, which never matches a
// pending request.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the error object of a failed JSON-RPC call. It implements error
// so node-side failures can be returned and matched with errors.As.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

var (
	// ErrClosed is returned by calls on a client whose connection is gone.
	ErrClosed = errors.New("rpc: connection closed")
	// ErrEmptyResult is returned when the node answers with a null or empty result.
	ErrEmptyResult = errors.New("rpc: empty result")
	// ErrMalformedResult is returned when a result does not have the expected shape.
	ErrMalformedResult = errors.New("rpc: malformed result")
)

// Envelope is a successful JSON-RPC response with a typed result. Files
// written in this shape can be read back by tools that expect a captured
// node response.
//
//	{"jsonrpc":"2.0","result":"0x6d657461...","id":1}
type Envelope[T any] struct {
	JSONRPC string `json:"jsonrpc"`
	Result  T      `json:"result"`
	ID      uint64 `json:"id"`
}

// NewEnvelope wraps result as the response to request 1.
func NewEnvelope[T any](result T) Envelope[T] {
	return Envelope[T]{JSONRPC: "2.0", Result: result, ID: 1}
}
