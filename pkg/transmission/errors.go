package transmission

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable is returned when the daemon cannot be reached.
	ErrUnavailable = errors.New("transmission unavailable")

	// ErrUnauthorized is returned when the daemon rejects the credentials.
	ErrUnauthorized = errors.New("transmission unauthorized")

	// ErrProtocol is returned when the daemon answers with anything but success.
	ErrProtocol = errors.New("transmission protocol failure")

	// ErrNotFound is returned when the daemon does not know the torrent id.
	ErrNotFound = errors.New("torrent not found in daemon")
)

// RPCError is a non-success RPC result. It keeps the exact request and response
// bodies for diagnosis.
type RPCError struct {
	Request  string
	Response string
	Err      error
}

func (e *RPCError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transmission rpc failed: %v (request: %s, response: %s)", e.Err, e.Request, e.Response)
	}
	return fmt.Sprintf("transmission rpc failed (request: %s, response: %s)", e.Request, e.Response)
}

// Is reports ErrProtocol so callers can match on the sentinel.
func (e *RPCError) Is(target error) bool {
	return target == ErrProtocol
}

func (e *RPCError) Unwrap() error {
	return e.Err
}
