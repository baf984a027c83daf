package tunnelgate

import (
	"context"

	"github.com/joeycumines/go-tunnelgate/internal/envelope"
)

// Frame is the diagnostic summary of one inbound envelope, published to
// [Gate.Tap] subscribers. It deliberately omits payloads.
type Frame struct {
	// Tunnel is the frame's tunnel id.
	Tunnel string
	// Method is set for call frames only.
	Method string
	// Kind is the wire kind: "call", "response", or "error".
	Kind string
	// Call is the correlation id.
	Call uint64
}

// Tap accepts any `target` that is a channel which can accept [Frame] values,
// and subscribes it to a summary of every inbound envelope, for diagnostics.
// The returned cancel func MUST be called, unless `ctx` is cancelled.
// WARNING: Sends to `target` are blocking from the gate's receive path, and
// callers must therefore always receive promptly.
func (g *Gate) Tap(ctx context.Context, target any) context.CancelFunc {
	return g.notifier.SubscribeCancel(ctx, nil, target)
}

func (g *Gate) publish(ctx context.Context, e *envelope.Envelope) {
	g.notifier.PublishContext(ctx, nil, Frame{
		Tunnel: e.TunnelID,
		Method: e.Method,
		Kind:   string(e.Kind),
		Call:   e.CallID,
	})
}
