package tunnelgate

import (
	"errors"
	"fmt"
	"net"
)

// ErrorKind coarsely classifies a failure, and is the only part of a remote
// failure's identity that survives the gate boundary.
type ErrorKind string

const (
	// KindTransport indicates the underlying channel rejected a write or is
	// already closed.
	KindTransport ErrorKind = `transport`
	// KindUnknownTunnel indicates a call named a tunnel id with no registered
	// handler on the receiving gate.
	KindUnknownTunnel ErrorKind = `unknown-tunnel`
	// KindUnknownMethod indicates the handler does not expose the called method.
	KindUnknownMethod ErrorKind = `unknown-method`
	// KindHandler indicates the handler's method itself failed. Only the
	// failure message survives the boundary, not its type.
	KindHandler ErrorKind = `handler`
	// KindMalformedFrame indicates a received frame failed schema validation.
	// It is diagnosed locally and never propagates to a caller.
	KindMalformedFrame ErrorKind = `malformed-frame`
	// KindConnectionClosed indicates the gate closed while the call was
	// outstanding.
	KindConnectionClosed ErrorKind = `connection-closed`
	// KindSyncUnsupported indicates a synchronous method was invoked over a
	// transport that cannot pump inbound frames while the caller blocks.
	// This is a caller configuration error, surfaced before any send.
	KindSyncUnsupported ErrorKind = `sync-unsupported`
)

// Error is the failure type surfaced by gates, proxies, and dispatch.
// Remote failures are reconstructed as *Error carrying the original message
// and kind; local failures carry a cause reachable via [errors.Unwrap].
type Error struct {
	cause   error
	Message string
	Kind    ErrorKind
}

func newError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func wrapError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func (e *Error) Error() string {
	return fmt.Sprintf(`tunnelgate: %s: %s`, e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any. Remote errors have none.
func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same kind, and additionally matches
// [net.ErrClosed] for [KindConnectionClosed], so closed-gate failures
// integrate with code already checking for closed connections.
func (e *Error) Is(target error) bool {
	if target == net.ErrClosed {
		return e.Kind == KindConnectionClosed
	}
	if t, ok := target.(*Error); ok {
		return t.Kind == e.Kind && (t.Message == `` || t.Message == e.Message)
	}
	return false
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
