package tunnelgate

import (
	"context"
	"fmt"

	"github.com/joeycumines/go-tunnelgate/internal/envelope"
)

// dispatch routes one inbound call envelope to its handler. Handler
// execution must never block the receive path, so the invocation runs on its
// own goroutine, or on the configured dispatch loop.
func (g *Gate) dispatch(ctx context.Context, e *envelope.Envelope) {
	run := func() { g.serve(ctx, e) }
	if g.loop != nil {
		if err := g.loop.Submit(run); err != nil {
			g.logger.Err().
				Err(err).
				Str(`tunnel`, e.TunnelID).
				Str(`method`, e.Method).
				Log(`dispatch loop rejected call`)
			g.reply(e, nil, newError(KindHandler, `dispatch loop not running`))
		}
		return
	}
	go run()
}

// serve invokes the handler and sends the terminal reply. Every call envelope
// produces exactly one response or error envelope, unless the gate closes
// first.
func (g *Gate) serve(ctx context.Context, e *envelope.Envelope) {
	handler, ok := g.handlers.query(e.TunnelID)
	if !ok {
		g.reply(e, nil, newError(KindUnknownTunnel, fmt.Sprintf(`tunnel %q not registered`, e.TunnelID)))
		return
	}
	method, ok := handler.TunnelMethod(e.Method)
	if !ok {
		g.reply(e, nil, newError(KindUnknownMethod, fmt.Sprintf(`tunnel %q has no method %q`, e.TunnelID, e.Method)))
		return
	}

	callCtx := makeCallContext(g.baseCtx, ctx, CallDetail{
		Tunnel: e.TunnelID,
		Method: e.Method,
		Call:   e.CallID,
	})

	result, err := invoke(callCtx, method, envelope.DecodeArgs(e.Args))
	if err != nil {
		g.reply(e, nil, err)
		return
	}
	g.reply(e, result, nil)
}

// invoke runs a handler method, converting a panic into a handler failure so
// one misbehaving handler cannot take down the receive side.
func invoke(ctx context.Context, method Method, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newError(KindHandler, fmt.Sprintf(`handler panic: %v`, r))
		}
	}()
	result, err = method(ctx, args)
	if err != nil {
		if _, ok := err.(*Error); !ok {
			err = newError(KindHandler, err.Error())
		}
	}
	return
}

// reply sends the terminal envelope for a served call. A result that cannot
// be serialized degrades to an error envelope rather than going unanswered.
func (g *Gate) reply(e *envelope.Envelope, result any, failure error) {
	out := envelope.Envelope{
		TunnelID: e.TunnelID,
		CallID:   e.CallID,
	}
	if failure == nil {
		val, err := envelope.EncodeValue(result)
		if err != nil {
			failure = newError(KindHandler, fmt.Sprintf(`unserializable result: %s`, err))
		} else {
			out.Kind = envelope.KindResponse
			out.Result = val
		}
	}
	if failure != nil {
		out.Kind = envelope.KindError
		out.Err = remoteError(failure)
	}
	if err := g.send(&out); err != nil {
		g.logger.Warning().
			Err(err).
			Str(`tunnel`, e.TunnelID).
			Uint64(`call`, e.CallID).
			Log(`reply send failed`)
	}
}

// remoteError projects a handler-side failure onto the wire error payload.
// Only the message and a coarse kind survive the boundary.
func remoteError(err error) *envelope.RemoteError {
	if e, ok := err.(*Error); ok {
		return &envelope.RemoteError{Message: e.Message, Kind: string(e.Kind)}
	}
	return &envelope.RemoteError{Message: err.Error(), Kind: string(KindHandler)}
}
