package tunnelgate

import "context"

type (
	// CallDetail identifies the call a handler invocation is serving.
	CallDetail struct {
		// Tunnel is the routing id of the tunnel the call arrived on.
		Tunnel string
		// Method is the invoked method name.
		Method string
		// Call is the caller-allocated correlation id.
		Call uint64
	}

	callDetailKeyType struct{}

	messageContextKeyType struct{}
)

var (
	callDetailKey     callDetailKeyType
	messageContextKey messageContextKeyType
)

// CallDetailFromContext returns the [CallDetail] for a handler invocation
// dispatched by a gate, or false if the context did not originate from one.
func CallDetailFromContext(ctx context.Context) (CallDetail, bool) {
	d, ok := ctx.Value(&callDetailKey).(CallDetail)
	return d, ok
}

// MessageContext returns the opaque per-message context the transport
// supplied for the frame that triggered a handler invocation, or nil.
// Host adapters use it to expose metadata such as sender identity; its
// values are intentionally not merged into the handler context, preventing
// transport state from leaking into handler-derived contexts.
func MessageContext(ctx context.Context) context.Context {
	if c, ok := ctx.Value(&messageContextKey).(context.Context); ok {
		return c
	}
	return nil
}

// makeCallContext builds the context for one handler invocation: derived
// from the gate's base context, carrying the call detail and the original
// transport-supplied message context.
func makeCallContext(base, msg context.Context, d CallDetail) context.Context {
	ctx := context.WithValue(base, &callDetailKey, d)
	if msg != nil {
		ctx = context.WithValue(ctx, &messageContextKey, msg)
	}
	return ctx
}
