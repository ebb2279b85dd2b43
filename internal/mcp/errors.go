package mcp

import (
	"errors"
	"fmt"
)

// ErrConnectionClosed is returned by a transport once its connection has
// been closed (locally or by the remote side) and any call past that point
// fails immediately without retrying.
var ErrConnectionClosed = errors.New("mcp: connection closed")

// ErrServerNotFound is returned by Manager methods when asked to operate on
// a server ID that is not configured or not currently connected.
var ErrServerNotFound = errors.New("mcp: server not found")

// ProtocolError indicates a transport received a message that does not
// conform to JSON-RPC 2.0. It is fatal for that connection only; other
// connections managed by the same client/manager are unaffected.
type ProtocolError struct {
	// Transport identifies which server connection produced the error.
	Transport string
	// Raw is the offending line or payload, truncated by the caller if large.
	Raw string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("mcp protocol error on %s: %v", e.Transport, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
